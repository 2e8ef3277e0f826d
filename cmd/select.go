package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openlibdata/ldx/internal"
	"github.com/openlibdata/ldx/internal/util"
)

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

var selectCmd = &cobra.Command{
	Use:   "select [table]",
	Short: "print rows from an extracted table",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := newLogger(cmd)
		defer util.RecoverPanic(log)

		dbURL := mustFlagString(cmd, "db-url", true)
		limit := mustFlagInt(cmd, "limit", false)
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

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, strings.Join(columns, "\t"))
		for _, row := range rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = formatValue(v)
			}
			fmt.Fprintln(w, strings.Join(cells, "\t"))
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(selectCmd)
	selectCmd.Flags().Int("limit", 50, "the maximum number of rows to print (0 for all)")
}
