package cmd

import (
	"github.com/spf13/cobra"

	"FretLab/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the lesson playback server",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
