package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/openlibdata/ldx/internal"
	"github.com/openlibdata/ldx/internal/util"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "test connectivity to the configured database",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		defer util.RecoverPanic(log)

		dbURL := mustFlagString(cmd, "db-url", true)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var err error
		util.RunTaskWithSpinner("Testing connection...", func() {
			err = internal.TestDriver(ctx, log, dbURL)
		})
		if err != nil {
			log.Error("connection failed: %s", err)
			os.Exit(1)
		}
		log.Info("connection successful")
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
