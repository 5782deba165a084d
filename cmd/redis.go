package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"FretLab/db"
)

// redisCmd verifies the Redis connection with a round trip.
var redisCmd = &cobra.Command{
	Use:   "redis-check",
	Short: "Verify Redis connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.ConnectRedis(cfg); err != nil {
			return err
		}
		defer db.CloseRedis()

		if err := db.TestRedis(); err != nil {
			return err
		}
		fmt.Println("redis ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
