// Package config resolves the parameters seqringctl needs to attach to a
// shared ring or vector: the backing file, its element size and length,
// and the queue's producer/consumer topology. Resolution order is flag >
// environment variable > config file > built-in default, via viper; the
// core packages never import this package or viper themselves.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds everything a seqringctl subcommand needs to attach to a
// shared region.
type Config struct {
	Path        string `mapstructure:"path"`
	ElementSize int    `mapstructure:"elementSize"`
	Length      uint64 `mapstructure:"length"`
	QueueType   string `mapstructure:"queueType"`
	LogOutput   string `mapstructure:"logOutput"`
	LogLevel    string `mapstructure:"logLevel"`
	MetricsAddr string `mapstructure:"metricsAddr"`
}

// Defaults returns the built-in fallback values, applied when nothing
// else sets a field.
func Defaults() Config {
	return Config{
		Path:        "./seqring.shm",
		ElementSize: 60,
		Length:      1024,
		QueueType:   "mpmc",
		LogOutput:   "stdout",
		LogLevel:    "info",
		MetricsAddr: ":9100",
	}
}

// Load resolves a Config from flags already registered on fs, environment
// variables prefixed SEQRINGCTL_, and an optional config file named by the
// --config flag (if fs defines one and it was set). Flags take priority
// over environment, which takes priority over the file, which takes
// priority over Defaults.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	def := Defaults()
	v.SetDefault("path", def.Path)
	v.SetDefault("elementSize", def.ElementSize)
	v.SetDefault("length", def.Length)
	v.SetDefault("queueType", def.QueueType)
	v.SetDefault("logOutput", def.LogOutput)
	v.SetDefault("logLevel", def.LogLevel)
	v.SetDefault("metricsAddr", def.MetricsAddr)

	v.SetEnvPrefix("SEQRINGCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile, err := fs.GetString("config"); err == nil && cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", cfgFile, err)
		}
	}

	// Flags use conventional dash-case names (--element-size); config keys
	// use the camelCase mapstructure tags above, matching the rest of this
	// corpus's YAML config files. BindPFlag maps each explicitly rather
	// than relying on BindPFlags' name-for-name default, which would
	// otherwise bind "element-size" where Unmarshal looks for
	// "elementSize" and silently never see the flag.
	binds := map[string]string{
		"path":         "path",
		"element-size": "elementSize",
		"length":       "length",
		"queue-type":   "queueType",
		"log-output":   "logOutput",
		"log-level":    "logLevel",
		"metrics-addr": "metricsAddr",
	}
	for flagName, key := range binds {
		if f := fs.Lookup(flagName); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("config: binding flag %s: %w", flagName, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshalling: %w", err)
	}
	return cfg, nil
}
