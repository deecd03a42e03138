package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bsaid97/geomcheck/bus"
	"github.com/bsaid97/geomcheck/config"
	"github.com/bsaid97/geomcheck/metrics"
	"github.com/bsaid97/geomcheck/validation"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "geomcheck",
	Short: "Check vector layers for invalid geometries",
	// We handle errors ourselves when they're returned from ExecuteContext.
	SilenceErrors: true,
	SilenceUsage:  true,
}

var cfgFilePath string

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	rootCmd.PersistentFlags().StringVar(&cfgFilePath, "config", "", "Path to the config file")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cobra.CheckErr(viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")))

	rootCmd.PersistentFlags().String("lastools", "", "LAStools installation directory")
	cobra.CheckErr(viper.BindPFlag("lastools.path", rootCmd.PersistentFlags().Lookup("lastools")))

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	// keys such as 'output.encoding' are read from GEOMCHECK_OUTPUT_ENCODING
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetEnvPrefix("GEOMCHECK")

	viper.SetConfigName("geomcheck")
	viper.SetConfigType("yaml")
	if cfgFilePath == "" {
		viper.AddConfigPath(".")
		if configDir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(configDir, "geomcheck"))
		}
	} else {
		viper.SetConfigFile(cfgFilePath)
	}
}

// setup loads the configuration and builds the logger for a command.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, config.NewLogger(cfg.Log.Level), nil
}

// countRuns feeds validation lifecycle notifications into the run counter.
func countRuns(b bus.Subscriber) error {
	return b.Subscribe(validation.TopicRunFinished, func(s validation.RunSummary) {
		metrics.ValidationRuns.WithLabelValues(s.Outcome).Inc()
	})
}

// ExecuteContext adds all child commands to the root command and runs it.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// flagFields returns the flags set on the command line as log fields.
func flagFields(cmd *cobra.Command) []zap.Field {
	var fields []zap.Field
	cmd.Flags().Visit(func(f *pflag.Flag) {
		fields = append(fields, zap.String("flag."+f.Name, f.Value.String()))
	})
	return fields
}
