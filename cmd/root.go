package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FretLab/config"
	"FretLab/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fretlab",
	Short: "FretLab serves synchronized dual-stem playback of recorded guitar lessons.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.InfoLevel,
			OutputPath: "logs/fretlab.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
