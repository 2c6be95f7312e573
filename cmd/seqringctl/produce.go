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

var (
	produceRate  int
	produceCount int
)

var produceCmd = &cobra.Command{
	Use:   "produce",
	Short: "Attach a producer cursor and publish demo payloads at a configurable rate",
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
			return runProduce[messages.Message8](cfg, qt, logger)
		case 32:
			return runProduce[messages.Message32](cfg, qt, logger)
		case 60:
			return runProduce[messages.Message60](cfg, qt, logger)
		case 124:
			return runProduce[messages.Message124](cfg, qt, logger)
		case 252:
			return runProduce[messages.Message252](cfg, qt, logger)
		case 508:
			return runProduce[messages.Message508](cfg, qt, logger)
		case 1020:
			return runProduce[messages.Message1020](cfg, qt, logger)
		default:
			return unsupportedElementSize(cfg.ElementSize)
		}
	},
}

func init() {
	flags := produceCmd.Flags()
	flags.IntVar(&produceRate, "rate", 1000, "publishes per second")
	flags.IntVar(&produceCount, "count", 0, "number of values to publish, 0 means until interrupted")
}

func runProduce[T any](cfg config.Config, qt ring.QueueType, logger *zap.Logger) error {
	rec := metrics.New()
	r, region, _, err := attachRing[T](cfg, qt, logger, rec)
	if err != nil {
		return err
	}
	defer region.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("produce: received shutdown signal")
		cancel()
	}()

	p := ring.NewProducer(r)
	interval := time.Second / time.Duration(max(produceRate, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var published int
	var payload T
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("published %d values, stopping\n", published)
			return nil
		case <-ticker.C:
			p.Publish(&payload)
			published++
			if produceCount > 0 && published >= produceCount {
				fmt.Printf("published %d values\n", published)
				return nil
			}
		}
	}
}
