package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sweeney/zone5/internal/applehealth"
	"github.com/sweeney/zone5/internal/fitfile"
	"github.com/sweeney/zone5/internal/syncer"
	"github.com/sweeney/zone5/internal/zone"
)

func importCmd(a *app) *cobra.Command {
	var (
		tz     string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import <file.fit|export.xml|file.json>...",
		Short: "Import heart rate samples from FIT activities, Apple Health exports or ingest JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("--tz: %w", err)
			}
			batches := make([]syncer.Batch, 0, len(args))
			for _, path := range args {
				b, err := readBatch(path, loc)
				if err != nil {
					return err
				}
				batches = append(batches, b)
			}

			out := cmd.OutOrStdout()
			if dryRun {
				for i, b := range batches {
					fmt.Fprintf(out, "%s: %s samples\n", filepath.Base(args[i]), humanize.Comma(int64(len(b.Samples))))
					printDaily(out, a.aggregate(b))
				}
				return nil
			}

			publisher, _, err := a.newPublisher(nil)
			if err != nil {
				return err
			}
			defer publisher.Close()
			coord, cleanup, err := a.newCoordinator(cmd.Context(), publisher)
			if err != nil {
				return err
			}
			defer cleanup()

			for i, b := range batches {
				sum, err := coord.Sync(cmd.Context(), b)
				if err != nil {
					return fmt.Errorf("import %s: %w", args[i], err)
				}
				color.New(color.FgGreen).Fprintf(out, "%s: %s samples, %d new Zone 5 days (%d total), sync %s\n",
					filepath.Base(args[i]), humanize.Comma(int64(len(b.Samples))), sum.NewDays, sum.TotalDays, sum.SyncID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tz, "tz", "Local", "time zone used to assign FIT records to days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the per-day minutes without writing")
	return cmd
}

// readBatch decodes a FIT activity, an Apple Health export or an ingest JSON
// payload by extension.
func readBatch(path string, loc *time.Location) (syncer.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return syncer.Batch{}, err
	}
	defer f.Close()

	var b syncer.Batch
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fit":
		b, err = fitfile.Decode(f, loc)
	case ".xml":
		b, err = applehealth.Decode(f)
	case ".json":
		b, err = syncer.DecodeBatch(f)
	default:
		return syncer.Batch{}, fmt.Errorf("%s: unsupported file type (want .fit, .xml or .json)", path)
	}
	if err != nil {
		return syncer.Batch{}, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// aggregate applies the configured band and tick to b.
func (a *app) aggregate(b syncer.Batch) zone.DailyRecord {
	tick := a.cfg.Zone.Tick
	if b.Tick > 0 {
		tick = b.Tick
	}
	return zone.Aggregator{Band: a.cfg.Band(), Tick: tick}.Aggregate(b.Samples)
}

func printDaily(w io.Writer, record zone.DailyRecord) {
	days := make([]zone.Day, 0, len(record))
	for d := range record {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Day", "Zone 5 minutes", "Goal"})
	for _, d := range days {
		tbl.AppendRow(table.Row{d, humanize.FtoaWithDigits(record[d], 1), goalMark(record[d])})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d days", len(days)), "", ""})
	tbl.Render()
}

func goalMark(minutes float64) string {
	if zone.MeetsGoal(minutes) {
		return color.GreenString("✔")
	}
	return ""
}
