package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	LasTools LasToolsConfig `mapstructure:"lastools" yaml:"lastools"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

type OutputConfig struct {
	Encoding string `mapstructure:"encoding" yaml:"encoding" validate:"required"`
	// Driver is used when an output path has no recognised extension.
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=shp geojson"`
}

type LasToolsConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"omitempty,dir"`
	Wine string `mapstructure:"wine" yaml:"wine"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"required,hostname_port"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	return validate.Struct(c)
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("output.encoding", "UTF-8")
	v.SetDefault("output.driver", "shp")
	v.SetDefault("lastools.path", "")
	v.SetDefault("lastools.wine", "")
	v.SetDefault("server.addr", "localhost:8080")
}

// Load reads the config file if one is configured or found, then decodes
// and validates every key. A missing config file is not an error.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var out Config
	if err := v.Unmarshal(&out); err != nil {
		return Config{}, fmt.Errorf("unable to decode config, %w", err)
	}
	if err := out.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config, %w", err)
	}
	return out, nil
}
