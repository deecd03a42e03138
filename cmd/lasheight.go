package cmd

import (
	"github.com/bsaid97/geomcheck/lidar"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var lasheightCmd = &cobra.Command{
	Use:   "lasheight -i <input.las> -o <output.las> [-- extra lasheight arguments]",
	Short: "Compute point heights above ground with LAStools' lasheight",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()
		log.Debug("lasheight", flagFields(cmd)...)

		input, _ := cmd.Flags().GetString("input")
		out, _ := cmd.Flags().GetString("output")
		verbose, _ := cmd.Flags().GetBool("verbose")

		lh := &lidar.LasHeight{Path: cfg.LasTools.Path, Wine: cfg.LasTools.Wine, Log: log}
		return lh.Run(cmd.Context(), lidar.Params{
			Input:   input,
			Output:  out,
			Verbose: verbose,
			Extra:   args,
		}, func(line string) {
			cmd.PrintErrln(line)
		})
	},
}

func init() {
	f := lasheightCmd.Flags()
	f.StringP("input", "i", "", "Input LAS/LAZ file")
	f.StringP("output", "o", "", "Output LAS/LAZ file with heights")
	f.BoolP("verbose", "v", false, "Pass -v to lasheight")
	f.String("wine", "", "Wine binary used to run the Windows executable")
	cobra.CheckErr(viper.BindPFlag("lastools.wine", f.Lookup("wine")))
	cobra.CheckErr(lasheightCmd.MarkFlagRequired("input"))
	cobra.CheckErr(lasheightCmd.MarkFlagRequired("output"))

	rootCmd.AddCommand(lasheightCmd)
}
