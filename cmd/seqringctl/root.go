package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rishav/seqring/internal/config"
	"github.com/rishav/seqring/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "seqringctl",
	Short: "Create, produce into, consume from and inspect shared-memory seqring rings",
}

func init() {
	def := config.Defaults()
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to a config file (optional)")
	flags.String("path", def.Path, "backing file for the shared ring")
	flags.Int("element-size", def.ElementSize, "payload size in bytes: one of 8, 32, 60, 124, 252, 508, 1020")
	flags.Uint64("length", def.Length, "ring length, rounded up to a power of two")
	flags.String("queue-type", def.QueueType, "mpmc or spmc")
	flags.String("log-output", def.LogOutput, "stdout or file")
	flags.String("log-level", def.LogLevel, "debug, info, warn or error")
	flags.String("metrics-addr", def.MetricsAddr, "address to serve /metrics on when --serve is passed")

	rootCmd.AddCommand(initCmd, produceCmd, consumeCmd, inspectCmd)
}

// loadConfig resolves the effective Config from this invocation's flags,
// and builds the zap.Logger the rest of the command should use.
func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := telemetry.New(telemetry.Config{
		Output:     cfg.LogOutput,
		Path:       "./logs",
		Filename:   "seqringctl.log",
		Level:      cfg.LogLevel,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 7,
	})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("seqringctl: building logger: %w", err)
	}
	return cfg, logger, nil
}
