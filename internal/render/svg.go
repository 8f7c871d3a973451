// Package render turns calendar grids and statistics into visual artifacts:
// the contribution graph SVG served to READMEs and an interactive calendar page.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"

	"github.com/sweeney/zone5/internal/zone"
)

// Theme is a named color palette.
type Theme struct {
	Name       string
	Background string
	Border     string
	Text       string
	// Levels are indexed by zone.Bucket.
	Levels [5]string
}

// Dark is the default palette.
var Dark = Theme{
	Name:       "dark",
	Background: "#0d1117",
	Border:     "#30363d",
	Text:       "#e6edf3",
	Levels:     [5]string{"#161b22", "#0e4429", "#006d32", "#26a641", "#39d353"},
}

// Light mirrors the light contribution graph palette.
var Light = Theme{
	Name:       "light",
	Background: "#ffffff",
	Border:     "#d0d7de",
	Text:       "#24292f",
	Levels:     [5]string{"#ebedf0", "#9be9a8", "#40c463", "#30a14e", "#216e39"},
}

// ThemeByName returns the named theme. Unknown names fall back to Dark.
func ThemeByName(name string) Theme {
	if strings.EqualFold(name, Light.Name) {
		return Light
	}
	return Dark
}

// Color returns the fill for a bucket.
func (t Theme) Color(b zone.Bucket) string {
	if b < zone.BucketEmpty || b > zone.BucketHigh {
		return t.Levels[zone.BucketEmpty]
	}
	return t.Levels[b]
}

const (
	cellSize  = 12
	cellGap   = 3
	cellPitch = cellSize + cellGap
)

type svgCell struct {
	X, Y  int
	Fill  string
	Title string
}

type svgLabel struct {
	X    int
	Text string
}

type svgData struct {
	Width, Height int
	LegendY       int
	Theme         Theme
	StatsLine     string
	Months        []svgLabel
	Cells         []svgCell
}

var svgTmpl = template.Must(template.New("svg").Funcs(template.FuncMap{
	"legendX": func(i int) int { return 35 + 15*i },
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="{{.Width}}" height="{{.Height}}" xmlns="http://www.w3.org/2000/svg">
  <style>
    .bg { fill: {{.Theme.Background}}; }
    .text { fill: {{.Theme.Text}}; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; font-size: 12px; }
    .title { font-size: 14px; font-weight: 600; }
    .stat { font-size: 11px; }
    .cell { stroke: {{.Theme.Border}}; stroke-width: 1; }
  </style>
  <rect class="bg" width="{{.Width}}" height="{{.Height}}" rx="6"/>
  <text class="text title" x="20" y="25">Zone 5 Training - Last 12 Months</text>
  <text class="text stat" x="20" y="45">{{.StatsLine}}</text>
  <g transform="translate(20, 60)">
{{- range .Months}}
    <text class="text stat" x="{{.X}}" y="-5">{{.Text}}</text>
{{- end}}
{{- range .Cells}}
    <rect class="cell" x="{{.X}}" y="{{.Y}}" width="12" height="12" rx="2" fill="{{.Fill}}"><title>{{.Title}}</title></rect>
{{- end}}
  </g>
  <g transform="translate(20, {{.LegendY}})">
    <text class="text stat" x="0" y="0">Less</text>
{{- range $i, $c := .Theme.Levels}}
    <rect class="cell" x="{{legendX $i}}" y="-10" width="10" height="10" rx="2" fill="{{$c}}"/>
{{- end}}
    <text class="text stat" x="110" y="0">More</text>
  </g>
</svg>
`))

// StatsLine is the one-line summary shown under the title.
func StatsLine(stats zone.Stats) string {
	return fmt.Sprintf("🔥 %d day streak  •  ⚡ %s total minutes  •  🎯 %d days goal met (%d+ min)",
		stats.CurrentStreak, humanize.CommafWithDigits(stats.TotalMinutes, 1),
		stats.DaysWithGoal, zone.GoalMinutes)
}

func cellTitle(c zone.Cell) string {
	if c.IsPad() {
		return "No data"
	}
	return fmt.Sprintf("%s: %s minutes in Zone 5", c.Date, humanize.CommafWithDigits(c.Minutes, 1))
}

// SVG writes the contribution graph for weeks to w. An empty weeks slice
// renders a frame with no cells.
func SVG(w io.Writer, weeks []zone.Week, stats zone.Stats, theme Theme) error {
	graphHeight := 7*cellPitch + 60
	data := svgData{
		Width:     len(weeks)*cellPitch + 100,
		Height:    graphHeight + 40,
		LegendY:   graphHeight + 20,
		Theme:     theme,
		StatsLine: StatsLine(stats),
		Cells:     make([]svgCell, 0, len(weeks)*7),
	}
	for _, l := range zone.MonthLabels(weeks) {
		data.Months = append(data.Months, svgLabel{X: l.Week * cellPitch, Text: l.Month.String()[:3]})
	}
	for wi, week := range weeks {
		for di, c := range week {
			fill := theme.Color(c.Bucket)
			if c.IsPad() {
				fill = theme.Background
			}
			data.Cells = append(data.Cells, svgCell{
				X:     wi * cellPitch,
				Y:     di * cellPitch,
				Fill:  fill,
				Title: cellTitle(c),
			})
		}
	}

	var buf bytes.Buffer
	if err := svgTmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
