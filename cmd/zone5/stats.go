package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sweeney/zone5/internal/render"
	"github.com/sweeney/zone5/internal/store"
	"github.com/sweeney/zone5/internal/web"
	"github.com/sweeney/zone5/internal/zone"
)

func statsCmd(a *app) *cobra.Command {
	var (
		days   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print streaks, totals and the most recent days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, asOf, err := a.loadDocument(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeStatsJSON(cmd.OutOrStdout(), doc, asOf)
			}
			printStats(cmd.OutOrStdout(), doc, asOf, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 14, "number of recent days to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stats API response instead of a table")
	return cmd
}

func writeStatsJSON(w io.Writer, doc *store.Document, asOf zone.Day) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(web.StatsResponse{
		Stats:             zone.ComputeStats(doc.Achievements, asOf),
		AsOf:              asOf,
		LastUpdate:        doc.LastUpdate,
		TodayZone5Minutes: doc.Achievements[asOf],
		Zone5Range:        doc.Zone5Range,
	})
}

func printStats(w io.Writer, doc *store.Document, asOf zone.Day, days int) {
	stats := zone.ComputeStats(doc.Achievements, asOf)

	bold := color.New(color.Bold)
	bold.Fprintln(w, render.StatsLine(stats))
	fmt.Fprintln(w)

	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetStyle(table.StyleLight)
	summary.AppendRows([]table.Row{
		{"Current streak", streakText(stats.CurrentStreak)},
		{"Longest streak", streakText(stats.LongestStreak)},
		{"Total minutes", humanize.CommafWithDigits(stats.TotalMinutes, 1)},
		{"Days with data", humanize.Comma(int64(stats.DaysWithData))},
		{"Days goal met", humanize.Comma(int64(stats.DaysWithGoal))},
	})
	if doc.LastUpdate != "" {
		summary.AppendRow(table.Row{"Last update", doc.LastUpdate})
	}
	summary.Render()

	if days <= 0 {
		return
	}
	fmt.Fprintln(w)
	recent := table.NewWriter()
	recent.SetOutputMirror(w)
	recent.SetStyle(table.StyleLight)
	recent.AppendHeader(table.Row{"Day", "Minutes", ""})
	for i := days - 1; i >= 0; i-- {
		d := asOf.AddDays(-i)
		m := doc.Achievements[d]
		recent.AppendRow(table.Row{d, humanize.FtoaWithDigits(m, 1), bar(m)})
	}
	recent.Render()
}

func streakText(n int) string {
	if n == 1 {
		return "1 day"
	}
	return humanize.Comma(int64(n)) + " days"
}

// bar draws one block per two minutes, capped at the top bucket, coloured by
// whether the day met the goal.
func bar(minutes float64) string {
	n := int(minutes / 2)
	if n > 15 {
		n = 15
	}
	if n == 0 && minutes > 0 {
		n = 1
	}
	s := strings.Repeat("█", n)
	if zone.MeetsGoal(minutes) {
		return color.GreenString(s)
	}
	return color.YellowString(s)
}
