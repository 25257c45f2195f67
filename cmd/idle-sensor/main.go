// Command idle-sensor watches local input devices for user activity and
// publishes idle/resume transitions to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/sweeney/idle-sensor/internal/activity"
	"github.com/sweeney/idle-sensor/internal/config"
	"github.com/sweeney/idle-sensor/internal/evdev"
	"github.com/sweeney/idle-sensor/internal/gpio"
	"github.com/sweeney/idle-sensor/internal/mqtt"
	"github.com/sweeney/idle-sensor/internal/status"
	"github.com/sweeney/idle-sensor/internal/web"
)

// transitionQueue bounds the edges waiting for the main loop.
const transitionQueue = 64

// options holds command-line flags. Flags override the config file only
// when set explicitly.
type options struct {
	configPath  string
	idle        time.Duration
	throttle    time.Duration
	heartbeat   time.Duration
	broker      string
	httpAddr    string
	wsBroker    string
	devices     []string
	disabled    bool
	printConfig bool

	fs *flag.FlagSet
}

func parseFlags(args []string) (*options, error) {
	o := &options{fs: flag.NewFlagSet("idle-sensor", flag.ContinueOnError)}
	fs := o.fs
	fs.StringVarP(&o.configPath, "config", "c", config.DefaultPath, "Path to YAML config file")
	fs.DurationVar(&o.idle, "idle", activity.DefaultIdle, "Inactivity before reporting idle")
	fs.DurationVar(&o.throttle, "throttle", activity.DefaultThrottle, "Minimum spacing between accepted pointer moves")
	fs.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	fs.StringVar(&o.broker, "broker", "tcp://localhost:1883", "MQTT broker address")
	fs.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	fs.StringVar(&o.wsBroker, "ws-broker", "", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	fs.StringArrayVar(&o.devices, "device", nil, "Input device to watch (repeatable; default: discover keyboards and mice)")
	fs.BoolVar(&o.disabled, "disabled", false, "Start with activity tracking disabled")
	fs.BoolVar(&o.printConfig, "print-config", false, "Print the effective config and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

// apply copies explicitly set flags over cfg.
func (o *options) apply(cfg *config.Config) {
	if o.fs.Changed("idle") {
		cfg.Idle = o.idle
	}
	if o.fs.Changed("throttle") {
		cfg.Throttle = o.throttle
	}
	if o.fs.Changed("heartbeat") {
		cfg.Heartbeat = o.heartbeat
	}
	if o.fs.Changed("broker") {
		cfg.Broker = o.broker
	}
	if o.fs.Changed("http") {
		cfg.HTTP = o.httpAddr
	}
	if o.fs.Changed("ws-broker") {
		cfg.WSBroker = o.wsBroker
	}
	if o.fs.Changed("device") {
		cfg.Devices = o.devices
	}
	if o.fs.Changed("disabled") {
		cfg.Enabled = !o.disabled
	}
}

// load reads the config file, applies flag overrides and validates the
// combined result.
func (o *options) load() (*config.Config, error) {
	cfg, err := config.Read(o.configPath)
	if err != nil {
		return nil, err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("fatal: %v", err)
	}

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o *options) error {
	cfg, err := o.load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if o.printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Print(string(data))
		return nil
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Brokers:  []string{cfg.Broker},
		ClientID: cfg.ClientID,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Activity sources feed the default bus
	sources, closers := openSources(cfg, activity.Default)
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	if len(sources) == 0 {
		log.Printf("no activity sources opened; only the web toggle will change state")
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg, sources))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	transitions := make(chan activity.Transition, transitionQueue)
	l := &loop{
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		reload:     o.load,
		source:     activity.Default,
		onEdge:     enqueue(transitions),
		sources:    sources,
		now:        time.Now,
	}

	ctrl, err := activity.New(l.activityConfig(cfg))
	if err != nil {
		return fmt.Errorf("init activity controller: %w", err)
	}
	defer ctrl.Close()
	l.ctrl = ctrl
	l.refresh()

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, toggler{ctrl: ctrl, tracker: tracker})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	log.Printf("started: idle=%v throttle=%v enabled=%v broker=%s heartbeat=%v sources=%d",
		cfg.Idle, cfg.Throttle, cfg.Enabled, cfg.Broker, cfg.Heartbeat, len(sources))

	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.Heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	return l.run(transitions, heartbeat, sigCh)
}

// openSources opens configured input devices and the GPIO line. When neither
// is configured, keyboards and mice are discovered. Failures are logged and
// skipped.
func openSources(cfg *config.Config, sink activity.Emitter) ([]string, []io.Closer) {
	var names []string
	var closers []io.Closer

	paths := cfg.Devices
	if len(paths) == 0 && cfg.GPIO == nil {
		found, err := evdev.Discover()
		if err != nil {
			log.Printf("evdev: discover: %v", err)
		}
		paths = found
	}

	for _, path := range paths {
		dev, err := evdev.Open(path)
		if err != nil {
			log.Printf("evdev: %v", err)
			continue
		}
		go func() {
			if err := dev.Run(sink); err != nil {
				log.Printf("evdev: %v", err)
			}
		}()
		names = append(names, dev.Path())
		closers = append(closers, dev)
		log.Printf("evdev: watching %s", dev.Path())
	}

	if g := cfg.GPIO; g != nil {
		w, err := gpio.NewWatcher(gpio.Options{
			Chip:      g.Chip,
			Pin:       g.Pin,
			Event:     g.Event,
			ActiveLow: g.ActiveLow,
			Debounce:  g.Debounce,
		}, sink)
		if err != nil {
			log.Printf("gpio: %v", err)
		} else {
			names = append(names, fmt.Sprintf("%s:%d", g.Chip, g.Pin))
			closers = append(closers, w)
		}
	}

	return names, closers
}

// enqueue returns a transition callback that hands edges to the main loop.
// It runs under the controller lock, so it never blocks: when the queue is
// full the edge is logged and dropped.
func enqueue(ch chan<- activity.Transition) func(activity.Transition) {
	return func(t activity.Transition) {
		select {
		case ch <- t:
		default:
			log.Printf("activity: transition queue full, dropping %s edge", t.To)
		}
	}
}

// toggler lets the web server switch tracking on and off.
type toggler struct {
	ctrl    *activity.Controller
	tracker *status.Tracker
}

func (t toggler) SetEnabled(enabled bool) error {
	if err := t.ctrl.SetEnabled(enabled); err != nil {
		return err
	}
	log.Printf("activity tracking enabled=%v", enabled)
	t.tracker.Update(t.ctrl.State(), t.ctrl.Enabled(), t.ctrl.Counts(), t.ctrl.LastActivity())
	return nil
}

func statusConfig(cfg *config.Config, sources []string) status.Config {
	return status.Config{
		IdleMs:      cfg.Idle.Milliseconds(),
		ThrottleMs:  cfg.Throttle.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTP,
		WSBroker:    resolveWSBroker(cfg.WSBroker, cfg.Broker),
		Events:      cfg.Events,
		Sources:     sources,
	}
}

// loop owns the controller after startup and serializes publishing,
// heartbeats, reloads and shutdown.
type loop struct {
	ctrl       *activity.Controller
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	reload     func() (*config.Config, error)
	source     activity.EventSource
	onEdge     func(activity.Transition)
	sources    []string
	now        func() time.Time
}

// activityConfig builds the controller config for cfg bound to the loop's
// source and callback.
func (l *loop) activityConfig(cfg *config.Config) activity.Config {
	a := cfg.Activity()
	a.Source = l.source
	a.OnTransition = l.onEdge
	return a
}

// refresh copies controller and connection state into the tracker.
func (l *loop) refresh() {
	l.tracker.Update(l.ctrl.State(), l.ctrl.Enabled(), l.ctrl.Counts(), l.ctrl.LastActivity())
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func (l *loop) publishStatus(event, reason string, retained bool) error {
	snap := l.tracker.Snapshot()
	return l.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
}

func (l *loop) run(transitions <-chan activity.Transition, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case t := <-transitions:
			from := string(t.From)
			if from == "" {
				from = "START"
			}
			log.Printf("activity: %s -> %s (idle=%d resume=%d)", from, t.To, t.Count.Idle, t.Count.Resume)
			if err := l.publisher.Publish(t); err != nil {
				log.Printf("publish error: %v", err)
				// Don't crash on publish failure
			}
			l.refresh()

		case <-heartbeat:
			l.refresh()
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				l.tracker.SetNetwork(net)
			}
			counts := l.ctrl.Counts()
			log.Printf("heartbeat: state=%s idle=%d resume=%d", l.ctrl.State(), counts.Idle, counts.Resume)
			if err := l.publishStatus("HEARTBEAT", "", false); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}

		case s := <-sig:
			if s == syscall.SIGHUP {
				l.reloadConfig()
				continue
			}

			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			l.ctrl.Close()
			l.refresh()
			if err := l.publishStatus("SHUTDOWN", signalName, true); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil
		}
	}
}

// reloadConfig re-reads the config file and reconfigures the controller.
// Sources, broker, HTTP address and heartbeat interval are fixed at startup.
func (l *loop) reloadConfig() {
	cfg, err := l.reload()
	if err != nil {
		log.Printf("reload: %v (keeping current config)", err)
		return
	}
	if err := l.ctrl.Reconfigure(l.activityConfig(cfg)); err != nil {
		log.Printf("reload: %v (keeping current config)", err)
		return
	}
	l.tracker.SetConfig(statusConfig(cfg, l.sources))
	l.refresh()
	log.Printf("reloaded: idle=%v throttle=%v enabled=%v", cfg.Idle, cfg.Throttle, cfg.Enabled)

	if err := l.publishStatus("RELOAD", "SIGHUP", false); err != nil {
		log.Printf("failed to publish reload event: %v", err)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the ws_broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty or
// "off" disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "" || ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
