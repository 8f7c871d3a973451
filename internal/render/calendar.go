package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/sweeney/zone5/internal/zone"
)

// calendarMax caps the color scale. Anything at or above the HIGH bucket
// is drawn in the darkest shade.
const calendarMax = 30

// CalendarChart builds an interactive calendar heatmap of the window ending
// at asOf.
func CalendarChart(record zone.DailyRecord, asOf zone.Day, stats zone.Stats, theme Theme) *charts.HeatMap {
	start := asOf.AddDays(-(zone.WindowDays - 1))

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       "Zone 5 Training",
			Width:           "1100px",
			Height:          "320px",
			BackgroundColor: theme.Background,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Zone 5 Training - Last 12 Months",
			Subtitle: StatsLine(stats),
			TitleStyle: &opts.TextStyle{
				Color: theme.Text,
			},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        calendarMax,
			InRange: &opts.VisualMapInRange{
				Color: theme.Levels[:],
			},
		}),
	)

	hm.AddCalendar(&opts.Calendar{
		Orient: "horizontal",
		Range:  []string{start.String(), asOf.String()},
		Top:    "100",
		Left:   "40",
		Right:  "40",
		ItemStyle: &opts.ItemStyle{
			Color:       theme.Background,
			BorderColor: theme.Border,
			BorderWidth: 1,
		},
	})

	hm.AddSeries("Zone 5 minutes", calendarData(record, start, asOf),
		charts.WithCoordinateSystem("calendar"))
	return hm
}

func calendarData(record zone.DailyRecord, start, end zone.Day) []opts.HeatMapData {
	if !start.Valid() || !end.Valid() {
		return nil
	}
	var items []opts.HeatMapData
	for d := start; d <= end; d = d.AddDays(1) {
		m, ok := record[d]
		if !ok || m <= 0 {
			continue
		}
		items = append(items, opts.HeatMapData{
			Name:  d.String(),
			Value: [2]interface{}{d.String(), m},
		})
	}
	return items
}

// CalendarPage renders the calendar heatmap as a standalone HTML page.
func CalendarPage(w io.Writer, record zone.DailyRecord, asOf zone.Day, stats zone.Stats, theme Theme) error {
	if !asOf.Valid() {
		return fmt.Errorf("render calendar: invalid day %q", asOf)
	}
	if err := CalendarChart(record, asOf, stats, theme).Render(w); err != nil {
		return fmt.Errorf("render calendar: %w", err)
	}
	return nil
}
