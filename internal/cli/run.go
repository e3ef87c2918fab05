package cli

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect the bot and run the storage monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Fetch and print the current storage contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Info(cmd.Context())
	},
}
