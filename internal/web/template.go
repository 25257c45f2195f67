package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/idle-sensor/internal/mqtt"
	"github.com/sweeney/idle-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"since": func(t, now time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return now.Sub(t).Truncate(time.Second).String() + " ago"
	},
}).Parse(indexHTML))

// Messages shown for each state.
const (
	msgActive = "Hello there"
	msgIdle   = "Are you still there?"
)

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Idle Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.message { font-size: 2em; margin: 1em 0; }
.active { color: green; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
form { display: inline; }
</style>
</head>
<body>
<h1>Idle Sensor</h1>

<p id="message" class="message {{if .Idle}}idle{{else}}active{{end}}">{{.Message}}</p>

<h2>State</h2>
<table>
<tr><th>State</th><td id="state">{{if .State}}{{.State}}{{else}}UNKNOWN{{end}}</td></tr>
<tr><th>Tracking</th><td>{{if .Enabled}}enabled{{else}}disabled{{end}}
{{if .Enabled}}<form method="post" action="/disable"><button>disable</button></form>{{else}}<form method="post" action="/enable"><button>enable</button></form>{{end}}</td></tr>
<tr><th>Last activity</th><td>{{since .LastActivity .Now}}</td></tr>
<tr><th>Idle edges</th><td id="count-idle">{{.Counts.Idle}}</td></tr>
<tr><th>Resume edges</th><td id="count-resume">{{.Counts.Resume}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}: {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Idle after</th><td>{{.Config.IdleMs}}ms</td></tr>
<tr><th>Throttle</th><td>{{.Config.ThrottleMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
<tr><th>Events</th><td>{{range $i, $e := .Config.Events}}{{if $i}}, {{end}}{{$e}}{{end}}</td></tr>
{{range .Config.Sources}}<tr><th>Source</th><td>{{.}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Topic}}";
  var msgEl = document.getElementById("message");
  var stateEl = document.getElementById("state");
  var idleEl = document.getElementById("count-idle");
  var resumeEl = document.getElementById("count-resume");

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    client.subscribe(topic);
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.activity) {
        var idle = msg.activity.state === "IDLE";
        msgEl.textContent = idle ? "{{.IdleMessage}}" : "{{.ActiveMessage}}";
        msgEl.className = "message " + (idle ? "idle" : "active");
        stateEl.textContent = msg.activity.state;
        idleEl.textContent = msg.activity.counts.idle;
        resumeEl.textContent = msg.activity.counts.resume;
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

// message returns the greeting for a snapshot.
func message(snap status.Snapshot) string {
	if snap.Idle() {
		return msgIdle
	}
	return msgActive
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime        time.Duration
		Message       string
		ActiveMessage string
		IdleMessage   string
		Topic         string
	}{
		Snapshot:      snap,
		Uptime:        snap.Uptime(),
		Message:       message(snap),
		ActiveMessage: msgActive,
		IdleMessage:   msgIdle,
		Topic:         mqtt.TopicActivity,
	}
	indexTmpl.Execute(w, data)
}
