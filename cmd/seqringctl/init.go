package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rishav/seqring/internal/config"
	"github.com/rishav/seqring/messages"
	"github.com/rishav/seqring/ring"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create-or-open the shared ring file and print its layout",
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
			return runInit[messages.Message8](cfg, qt, logger)
		case 32:
			return runInit[messages.Message32](cfg, qt, logger)
		case 60:
			return runInit[messages.Message60](cfg, qt, logger)
		case 124:
			return runInit[messages.Message124](cfg, qt, logger)
		case 252:
			return runInit[messages.Message252](cfg, qt, logger)
		case 508:
			return runInit[messages.Message508](cfg, qt, logger)
		case 1020:
			return runInit[messages.Message1020](cfg, qt, logger)
		default:
			return unsupportedElementSize(cfg.ElementSize)
		}
	},
}

func runInit[T any](cfg config.Config, qt ring.QueueType, logger *zap.Logger) error {
	r, region, created, err := attachRing[T](cfg, qt, logger, nil)
	if err != nil {
		return err
	}
	defer region.Close()

	h := r.Header()
	verb := "opened existing"
	if created {
		verb = "created"
	}
	fmt.Printf("%s ring at %s\n", verb, cfg.Path)
	fmt.Printf("  queue type:    %s\n", h.QueueType())
	fmt.Printf("  length:        %d\n", h.Len())
	fmt.Printf("  element size:  %d\n", h.ElementSize())
	fmt.Printf("  publish count: %d\n", h.Count())
	return nil
}
