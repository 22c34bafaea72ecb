package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dome-weather/internal/status"
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
	"value": func(snap status.Snapshot, field string) string {
		v, _ := snap.Latest.Reading.Get(field)
		return v.String()
	},
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Dome Weather</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.safe { color: green; font-weight: bold; }
.unsafe { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Dome Weather</h1>

<h2>Safety</h2>
<table>
<tr><th>Verdict</th><td id="verdict" class="{{if not .Ready}}unknown{{else if .Safe}}safe{{else}}unsafe{{end}}">{{if not .Ready}}UNKNOWN{{else if .Safe}}SAFE{{else}}UNSAFE{{end}}</td></tr>
{{if .Ready}}{{range .Latest.Verdict.Conditions}}<tr><th>{{.Kind}}</th><td class="{{if .Safe}}safe{{else}}unsafe{{end}}">{{.Label}}{{if .Value}} ({{.Value}}){{end}}</td></tr>
{{end}}{{end}}</table>

{{if .Ready}}<h2>Reading</h2>
<table>
<tr><th>Captured</th><td>{{.Latest.Reading.Time.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
{{$snap := .Snapshot}}{{range .Fields}}<tr><th>{{.}}</th><td>{{value $snap .}}</td></tr>
{{end}}</table>
{{end}}

<h2>Heater</h2>
<table>
<tr><th>Mode</th><td>{{orUnknown (printf "%s" .Heater.Mode)}}</td></tr>
<tr><th>Duty</th><td>{{printf "%.1f" .Heater.Duty}}%</td></tr>
<tr><th>Target</th><td>{{printf "%.1f" .Heater.Target}}</td></tr>
</table>

<h2>Device</h2>
<table>
<tr><th>Name</th><td>{{orUnknown .Device.Name}}</td></tr>
<tr><th>Firmware</th><td>{{orUnknown .Device.Firmware}}</td></tr>
<tr><th>Serial</th><td>{{orUnknown .Device.Serial}}</td></tr>
<tr><th>Port</th><td>{{.Device.Port}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Cycles</th><td>{{.Cycles}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Safety delay</th><td>{{.Config.SafetyDelayMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/history.json">History</a> | <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Ready  bool
		Safe   bool
		Fields []string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Ready:    snap.Ready(),
		Safe:     snap.Safe(),
		Fields:   snap.SortedFields(),
	}
	return indexTmpl.Execute(w, data)
}
