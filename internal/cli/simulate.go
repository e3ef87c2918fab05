package cli

import (
	"github.com/spf13/cobra"

	"storage-watch/internal/app"
	"storage-watch/internal/inventory"
)

var (
	simulateKind   string
	simulateItem   string
	simulateFrom   int64
	simulateTo     int64
	simulateWeight int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-event",
	Short: "Send one synthetic notification through the configured sink",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateEvent(cmd.Context(), app.SimulateOptions{
			Kind:   inventory.EventKind(simulateKind),
			Item:   simulateItem,
			From:   simulateFrom,
			To:     simulateTo,
			Weight: simulateWeight,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateKind, "kind", string(inventory.EventThresholdCrossed), "Event kind (monitoring_started, threshold_crossed, item_added, item_removed, item_vanished)")
	simulateCmd.Flags().StringVar(&simulateItem, "item", "", "Item name for item events")
	simulateCmd.Flags().Int64Var(&simulateFrom, "from", 0, "Previous amount for item events")
	simulateCmd.Flags().Int64Var(&simulateTo, "to", 0, "Current amount for item events")
	simulateCmd.Flags().Int64Var(&simulateWeight, "weight", 1790, "Total storage weight in KG")
}
