package cmd

import (
	"context"
	"encoding/csv"
	"os"

	"github.com/spf13/cobra"

	"github.com/openlibdata/ldx/internal"
	"github.com/openlibdata/ldx/internal/util"
)

var exportCmd = &cobra.Command{
	Use:   "export [table]",
	Short: "export an extracted table as CSV",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		defer util.RecoverPanic(log)

		dbURL := mustFlagString(cmd, "db-url", true)
		limit := mustFlagInt(cmd, "limit", false)
		output := mustFlagString(cmd, "output", false)
		table := args[0]

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		driver, err := internal.NewDriver(ctx, log, dbURL)
		if err != nil {
			log.Error("error connecting to db: %s", err)
			os.Exit(1)
		}
		defer driver.Stop()

		columns, rows, err := driver.Query(ctx, table, limit)
		if err != nil {
			log.Error("error querying table %s: %s", table, err)
			os.Exit(1)
		}

		out := os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				log.Error("error creating %s: %s", output, err)
				os.Exit(1)
			}
			defer f.Close()
			out = f
		}

		w := csv.NewWriter(out)
		if err := w.Write(columns); err != nil {
			log.Error("error writing csv: %s", err)
			os.Exit(1)
		}
		record := make([]string, len(columns))
		for _, row := range rows {
			for i, v := range row {
				if v == nil {
					record[i] = ""
				} else {
					record[i] = formatValue(v)
				}
			}
			if err := w.Write(record); err != nil {
				log.Error("error writing csv: %s", err)
				os.Exit(1)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			log.Error("error writing csv: %s", err)
			os.Exit(1)
		}
		if output != "" && output != "-" {
			log.Info("wrote %d rows to %s", len(rows), output)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().Int("limit", 0, "the maximum number of rows to export (0 for all)")
	exportCmd.Flags().String("output", "", "write to a file instead of stdout")
}
