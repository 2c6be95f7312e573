package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rishav/seqring/internal/config"
	"github.com/rishav/seqring/internal/metrics"
	"github.com/rishav/seqring/messages"
	"github.com/rishav/seqring/ring"
)

const shutdownGrace = 10 * time.Second

var inspectServe bool

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Run Ring.Verify, print header fields, and optionally serve /metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		qt, err := parseQueueType(cfg.QueueType)
		if err != nil {
			return err
		}

		switch cfg.ElementSize {
		case 8:
			return runInspect[messages.Message8](cfg, qt, logger)
		case 32:
			return runInspect[messages.Message32](cfg, qt, logger)
		case 60:
			return runInspect[messages.Message60](cfg, qt, logger)
		case 124:
			return runInspect[messages.Message124](cfg, qt, logger)
		case 252:
			return runInspect[messages.Message252](cfg, qt, logger)
		case 508:
			return runInspect[messages.Message508](cfg, qt, logger)
		case 1020:
			return runInspect[messages.Message1020](cfg, qt, logger)
		default:
			return unsupportedElementSize(cfg.ElementSize)
		}
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectServe, "serve", false, "serve /metrics at --metrics-addr until interrupted")
}

func runInspect[T any](cfg config.Config, qt ring.QueueType, logger *zap.Logger) error {
	rec := metrics.New()
	r, region, _, err := attachRing[T](cfg, qt, logger, rec)
	if err != nil {
		return err
	}
	defer region.Close()

	h := r.Header()
	fmt.Printf("ring at %s\n", cfg.Path)
	fmt.Printf("  queue type:    %s\n", h.QueueType())
	fmt.Printf("  length:        %d\n", h.Len())
	fmt.Printf("  element size:  %d\n", h.ElementSize())
	fmt.Printf("  publish count: %d\n", h.Count())

	r.Verify()
	fmt.Println("verify: ok")

	if !inspectServe {
		return nil
	}

	server := metrics.NewServer(cfg.MetricsAddr, "/metrics", rec)
	errCh := make(chan error, 1)
	server.Start(errCh)
	fmt.Printf("serving /metrics on %s\n", cfg.MetricsAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Stop(ctx)
	case err := <-errCh:
		return err
	}
}
