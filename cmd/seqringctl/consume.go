package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rishav/seqring/internal/config"
	"github.com/rishav/seqring/internal/metrics"
	"github.com/rishav/seqring/messages"
	"github.com/rishav/seqring/ring"
	"github.com/rishav/seqring/seqlock"
)

var consumeCount int

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Attach a consumer cursor and print each read's position and version until interrupted",
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
			return runConsume[messages.Message8](cfg, qt, logger)
		case 32:
			return runConsume[messages.Message32](cfg, qt, logger)
		case 60:
			return runConsume[messages.Message60](cfg, qt, logger)
		case 124:
			return runConsume[messages.Message124](cfg, qt, logger)
		case 252:
			return runConsume[messages.Message252](cfg, qt, logger)
		case 508:
			return runConsume[messages.Message508](cfg, qt, logger)
		case 1020:
			return runConsume[messages.Message1020](cfg, qt, logger)
		default:
			return unsupportedElementSize(cfg.ElementSize)
		}
	},
}

func init() {
	consumeCmd.Flags().IntVar(&consumeCount, "count", 0, "number of values to consume, 0 means until interrupted")
}

func runConsume[T any](cfg config.Config, qt ring.QueueType, logger *zap.Logger) error {
	rec := metrics.New()
	r, region, _, err := attachRing[T](cfg, qt, logger, rec)
	if err != nil {
		return err
	}
	defer region.Close()

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		<-sigCh
		logger.Info("consume: received shutdown signal")
		cancel()
		close(stop)
	}()

	c := ring.NewConsumer(r)
	var out T
	var consumed int
	for {
		select {
		case <-stop:
			fmt.Printf("consumed %d values, stopping\n", consumed)
			return nil
		default:
		}

		switch err := c.TryConsume(&out); err {
		case nil:
			consumed++
			fmt.Printf("[%d] position=%d version=%d\n", consumed, c.Position(), c.ExpectedVersion())
			if consumeCount > 0 && consumed >= consumeCount {
				return nil
			}
		case seqlock.ErrEmpty:
			seqlock.Spin()
		case seqlock.ErrSpedPast:
			logger.Warn("consume: lapped by producer, skipping ahead")
			c.RecoverSkipAhead()
		}
	}
}
