package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sweeney/zone5/internal/status"
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
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return humanize.Time(t)
	},
	"minutes": func(d time.Duration) string {
		return fmt.Sprintf("%.1f", d.Minutes())
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Zone 5</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.err { color: red; }
.connected { color: green; }
.disconnected { color: red; }
img { max-width: 100%; }
</style>
</head>
<body>
<h1>Zone 5</h1>

<p><img src="/api/zone5-contributions" alt="Zone 5 contribution graph"></p>

{{if eq .Config.Mode "monitor"}}
<h2>Sensor</h2>
<table>
<tr><th>State</th><td>{{.Sensor.State}}</td></tr>
<tr><th>Heart rate</th><td>{{printf "%.0f" .Sensor.LastBPM}} bpm</td></tr>
<tr><th>In Zone 5</th><td class="{{if .Sensor.InBand}}on{{else}}off{{end}}">{{if .Sensor.InBand}}yes{{else}}no{{end}}</td></tr>
<tr><th>Zone 5 this session</th><td>{{minutes .Sensor.InBandTime}} min</td></tr>
<tr><th>Last reading</th><td>{{ago .Sensor.LastReading}}</td></tr>
<tr><th>Pending samples</th><td>{{.Sensor.Pending}}</td></tr>
</table>
{{end}}

<h2>Sync</h2>
<table>
<tr><th>Syncs</th><td>{{.Syncs}}</td></tr>
<tr><th>Errors</th><td{{if .SyncErrors}} class="err"{{end}}>{{.SyncErrors}}</td></tr>
{{with .LastSync}}
<tr><th>Last sync</th><td>{{ago .Time}}</td></tr>
<tr><th>Zone 5 days</th><td>{{.TotalDays}}</td></tr>
<tr><th>Today</th><td>{{printf "%.1f" .TodayMinutes}} min</td></tr>
{{if .Err}}<tr><th>Last error</th><td class="err">{{.Err}}</td></tr>{{end}}
{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Store</th><td>{{.Config.Backend}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Mode</th><td>{{.Config.Mode}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Band</th><td>{{.Config.Band}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/zone5.html">Calendar</a> · <a href="/api/zone5-stats">Stats</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
