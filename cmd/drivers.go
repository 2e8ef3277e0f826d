package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openlibdata/ldx/internal"
)

var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "list the supported database drivers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		for _, md := range internal.GetDriverMetadata() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", color.GreenString(md.Name), md.Description, color.CyanString(md.ExampleURL))
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(driversCmd)
}
