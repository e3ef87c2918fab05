package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storage-watch/internal/app"
)

var (
	exportFrom      string
	exportTo        string
	exportLast      time.Duration
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the journaled storage weight as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportMaxPoints < 0 {
			return fmt.Errorf("--max-points cannot be negative")
		}
		if exportLast < 0 {
			return fmt.Errorf("--last cannot be negative")
		}
		if exportLast > 0 && exportFrom != "" {
			return fmt.Errorf("--last and --from are mutually exclusive")
		}

		opts := app.ExportOptions{
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		if exportTo != "" {
			to, err := time.Parse(time.RFC3339, exportTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		switch {
		case exportFrom != "":
			from, err := time.Parse(time.RFC3339, exportFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		case exportLast > 0:
			end := time.Now().UTC()
			if opts.To != nil {
				end = *opts.To
			}
			from := end.Add(-exportLast)
			opts.From = &from
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End timestamp (RFC3339, exclusive)")
	exportCmd.Flags().DurationVar(&exportLast, "last", 0, "Export this much history before --to (e.g. 24h), instead of --from")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write the weight chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write weight samples")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum samples to export (defaults to export.max_data_points)")
}
