package mqtt

import (
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/idle-sensor/internal/activity"
)

// doneToken is a paho.Token that has already completed.
type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type sent struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// fakeClient implements the parts of paho.Client the publisher uses.
type fakeClient struct {
	paho.Client

	mu        sync.Mutex
	connected bool
	sent      []sent
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sent{topic, qos, retained, string(payload.([]byte))})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *fakeClient) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *fakeClient) messages() []sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sent(nil), c.sent...)
}

func TestRealPublisherPublishesWhenConnected(t *testing.T) {
	client := &fakeClient{connected: true}
	p := newPublisher(client, 10)

	if err := p.Publish(activity.Transition{At: ts, From: activity.StateIdle, To: activity.StateActive}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := client.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].topic != TopicActivity || msgs[0].qos != 0 || msgs[0].retained {
		t.Errorf("unexpected activity publish: %+v", msgs[0])
	}
	if msgs[1].topic != TopicSystem || msgs[1].qos != 1 || !msgs[1].retained {
		t.Errorf("unexpected system publish: %+v", msgs[1])
	}
	if !p.IsConnected() {
		t.Error("expected IsConnected to follow the client")
	}
}

func TestRealPublisherBuffersWhileOffline(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, 10)

	p.Publish(activity.Transition{At: ts, To: activity.StateIdle})
	p.Publish(activity.Transition{At: ts, From: activity.StateIdle, To: activity.StateActive})
	p.PublishSystem(SystemEvent{Timestamp: ts, Event: "HEARTBEAT"})

	if n := len(client.messages()); n != 0 {
		t.Fatalf("expected nothing sent while offline, got %d", n)
	}
	if p.Buffered() != 3 {
		t.Fatalf("expected 3 buffered, got %d", p.Buffered())
	}

	client.setConnected(true)
	p.onConnect(client)

	msgs := client.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 replayed messages, got %d", len(msgs))
	}
	wantTopics := []string{TopicActivity, TopicActivity, TopicSystem}
	for i, m := range msgs {
		if m.topic != wantTopics[i] {
			t.Errorf("message %d: topic %s, want %s", i, m.topic, wantTopics[i])
		}
	}
	if p.Buffered() != 0 {
		t.Errorf("expected empty buffer after replay, got %d", p.Buffered())
	}
}

func TestRealPublisherKeepsOrderBeforeReplay(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, 10)

	p.Publish(activity.Transition{At: ts, From: activity.StateActive, To: activity.StateIdle})

	// Connection is open but onConnect has not replayed the backlog yet
	client.setConnected(true)
	if err := p.Publish(activity.Transition{At: ts, From: activity.StateIdle, To: activity.StateActive}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(client.messages()); n != 0 {
		t.Fatalf("expected new edge to wait behind the backlog, got %d sent", n)
	}

	p.onConnect(client)

	msgs := client.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0].payload, `"event":"IDLE"`) {
		t.Errorf("message 0: expected IDLE first, got %s", msgs[0].payload)
	}
	if !strings.Contains(msgs[1].payload, `"event":"RESUME"`) {
		t.Errorf("message 1: expected RESUME last, got %s", msgs[1].payload)
	}

	// Backlog gone: publishes go straight out again
	p.Publish(activity.Transition{At: ts, From: activity.StateActive, To: activity.StateIdle})
	if n := len(client.messages()); n != 3 {
		t.Errorf("expected direct publish after replay, got %d sent", n)
	}
}

func TestRealPublisherOnConnectWithEmptyBuffer(t *testing.T) {
	client := &fakeClient{connected: true}
	p := newPublisher(client, 10)

	p.onConnect(client)

	if n := len(client.messages()); n != 0 {
		t.Errorf("expected no messages, got %d", n)
	}
}

func TestNewRealPublisherRequiresBroker(t *testing.T) {
	if _, err := NewRealPublisher(Options{ClientID: "idle-sensor"}); err == nil {
		t.Error("expected error without brokers")
	}
}
