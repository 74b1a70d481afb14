package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dtmf-gate/internal/status"
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
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>DTMF Gate</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.idle { color: #888; }
.accumulating { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>DTMF Gate</h1>

<h2>Entry</h2>
<table>
<tr><th>State</th><td class="{{if eq (printf "%s" .State) "ACCUMULATING"}}accumulating{{else}}idle{{end}}">{{.State}}</td></tr>
<tr><th>Buffered digits</th><td>{{.BufferLen}}</td></tr>
<tr><th>Code table size</th><td>{{.TableSize}}</td></tr>
<tr><th>Session</th><td>{{.Session}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Decision Counts</h2>
<table>
<tr><th>Valid</th><td>{{.Counts.Valid}}</td></tr>
<tr><th>Invalid</th><td>{{.Counts.Invalid}}</td></tr>
<tr><th>Inter-digit timeouts</th><td>{{.Counts.InterDigit}}</td></tr>
<tr><th>Entry timeouts</th><td>{{.Counts.EntryTimeout}}</td></tr>
<tr><th>Overflows</th><td>{{.Counts.Overflows}}</td></tr>
<tr><th>Discontinuities</th><td>{{.Counts.Discontinuities}}</td></tr>
<tr><th>Table reloads</th><td>{{.Reloads}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Codes file</th><td>{{.Config.CodesFile}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Inter-digit timeout</th><td>{{.Config.InterDigitMs}}ms</td></tr>
<tr><th>Entry timeout</th><td>{{.Config.EntryMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Pass-through</th><td>{{if .Config.PassThrough}}on{{else}}off{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but the template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
