package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storage-watch/internal/app"
)

var (
	eventsLimit int
	eventsPrune time.Duration
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Display recent journaled notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventsLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		if eventsPrune < 0 {
			return fmt.Errorf("--prune-older-than cannot be negative")
		}

		return getApp().Events(cmd.Context(), app.EventsOptions{
			Limit:      eventsLimit,
			PruneAfter: eventsPrune,
		})
	},
}

func init() {
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "Number of events to display")
	eventsCmd.Flags().DurationVar(&eventsPrune, "prune-older-than", 0, "Delete events older than this age before listing (e.g. 720h)")
}
