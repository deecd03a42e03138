package cmd

import (
	"fmt"

	"github.com/bsaid97/geomcheck/tables"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var pointsCmd = &cobra.Command{
	Use:   "points-from-table <table> <output>",
	Short: "Create a point layer from the X and Y columns of a CSV or shapefile table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()
		log.Debug("points-from-table", flagFields(cmd)...)

		xField, _ := cmd.Flags().GetString("xfield")
		yField, _ := cmd.Flags().GetString("yfield")
		crs, _ := cmd.Flags().GetString("crs")

		t, err := tables.LoadTable(args[0])
		if err != nil {
			return err
		}
		errOut := cmd.ErrOrStderr()
		sum, err := tables.PointsFromTable(cmd.Context(), t, withDriverExt(args[1], cfg.Output.Driver), tables.Options{
			XField:   xField,
			YField:   yField,
			CRS:      crs,
			Encoding: cfg.Output.Encoding,
			Logger:   log,
			Progress: func(pct int) {
				fmt.Fprintf(errOut, "\r%3d%%", pct)
			},
		})
		fmt.Fprintln(errOut)
		if err != nil {
			return err
		}

		cmd.Printf("Wrote %s point(s) to %s", humanize.Comma(int64(sum.Written)), sum.Output)
		if sum.Skipped > 0 {
			cmd.Printf(", skipped %s row(s) without coordinates", humanize.Comma(int64(sum.Skipped)))
		}
		cmd.Println()
		return nil
	},
}

func init() {
	f := pointsCmd.Flags()
	f.String("xfield", "x", "Name of the X coordinate field")
	f.String("yfield", "y", "Name of the Y coordinate field")
	f.String("crs", "", "CRS definition (WKT) of the coordinates")

	rootCmd.AddCommand(pointsCmd)
}
