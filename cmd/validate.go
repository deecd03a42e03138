package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bsaid97/geomcheck/bus"
	"github.com/bsaid97/geomcheck/layer"
	"github.com/bsaid97/geomcheck/validation"
	"github.com/golang/geo/r2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var errGeometryErrorsFound = errors.New("geometry errors found")

var validateCmd = &cobra.Command{
	Use:   "validate <layer>",
	Short: "Check the geometry validity of a GeoJSON or shapefile layer",
	Long: `Checks every feature of the layer, or only the features given with
--select, and lists the errors found. With --output one point per located
error is written to a new shapefile or GeoJSON layer instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.Int64Slice("select", nil, "Only check the features with these ids")
	f.StringP("output", "o", "", "Write error points to this layer instead of listing them")
	f.String("encoding", "", "Attribute encoding of the output layer")
	cobra.CheckErr(viper.BindPFlag("output.encoding", f.Lookup("encoding")))
	f.String("format", "table", "Report format: table, json or yaml")
	f.Bool("add", false, "Load the output layer after writing it")
	f.Bool("fail-on-errors", false, "Exit non-zero when errors are found")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Debug("validate", flagFields(cmd)...)

	selected, _ := cmd.Flags().GetInt64Slice("select")
	outPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	add, _ := cmd.Flags().GetBool("add")
	failOnErrors, _ := cmd.Flags().GetBool("fail-on-errors")

	switch format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	registry := layer.NewRegistry(log)
	l, err := registry.Load(args[0])
	if err != nil {
		return err
	}
	for _, id := range selected {
		l.Select(layer.FeatureID(id))
	}

	extent, ok := l.Extent()
	if !ok {
		extent = r2.EmptyRect()
	}
	b := bus.New()
	if err := countRuns(b); err != nil {
		return err
	}

	view := newTerminalView(cmd.OutOrStdout(), cmd.ErrOrStderr(), format, add)
	p := validation.NewPresenter(view, validation.NewHeadlessCanvas(extent), registry,
		validation.WithPresenterLogger(log),
		validation.WithPublisher(b),
	)
	defer p.Close()

	var outcome validation.RunSummary
	if err := b.Subscribe(validation.TopicRunFinished, func(s validation.RunSummary) { outcome = s }); err != nil {
		return err
	}

	err = p.Accept(cmd.Context(), validation.Input{
		LayerName:    l.Name(),
		SelectedOnly: len(selected) > 0,
		WriteOutput:  outPath != "",
		OutputPath:   withDriverExt(outPath, cfg.Output.Driver),
		Encoding:     cfg.Output.Encoding,
	})
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	done := make(chan struct{})
	go func() {
		select {
		case <-sig:
			p.Cancel()
		case <-done:
		}
	}()

	p.Wait()
	close(done)

	log.Debug("validate finished",
		zap.String("outcome", outcome.Outcome),
		zap.Int("errors", outcome.Errors))
	if outcome.Err != nil {
		return outcome.Err
	}
	if failOnErrors && outcome.Errors > 0 {
		return errGeometryErrorsFound
	}
	return nil
}

// withDriverExt adds the extension of driver to a path without one.
func withDriverExt(path, driver string) string {
	if path == "" || filepath.Ext(path) != "" {
		return path
	}
	if driver == "geojson" {
		return path + ".geojson"
	}
	return path + ".shp"
}
