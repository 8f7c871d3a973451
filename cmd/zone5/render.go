package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/cli/browser"
	"github.com/spf13/cobra"

	"github.com/sweeney/zone5/internal/render"
	"github.com/sweeney/zone5/internal/zone"
)

func renderCmd(a *app) *cobra.Command {
	var (
		format string
		theme  string
		out    string
		open   bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the contribution graph as SVG or an interactive HTML calendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(format)
			if format != "svg" && format != "html" {
				return fmt.Errorf("--format must be svg or html, got %q", format)
			}
			if out == "" {
				out = "zone5." + format
			}

			doc, asOf, err := a.loadDocument(cmd.Context())
			if err != nil {
				return err
			}
			stats := zone.ComputeStats(doc.Achievements, asOf)
			th := render.ThemeByName(theme)

			var buf bytes.Buffer
			if format == "svg" {
				err = render.SVG(&buf, zone.BuildGrid(doc.Achievements, asOf), stats, th)
			} else {
				err = render.CalendarPage(&buf, doc.Achievements, asOf, stats, th)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			a.log.Info("rendered", "file", out, "format", format, "theme", th.Name)
			fmt.Fprintln(cmd.OutOrStdout(), out)

			if open {
				return browser.OpenFile(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "svg", "output format: svg or html")
	cmd.Flags().StringVar(&theme, "theme", "dark", "colour theme: dark or light")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default zone5.<format>)")
	cmd.Flags().BoolVar(&open, "open", false, "open the result in the default browser")
	return cmd
}
