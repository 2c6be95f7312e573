package main

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/rishav/seqring/internal/config"
	"github.com/rishav/seqring/ring"
	"github.com/rishav/seqring/shm"
)

func parseQueueType(s string) (ring.QueueType, error) {
	switch strings.ToLower(s) {
	case "mpmc":
		return ring.MultiProducerMultiConsumer, nil
	case "spmc":
		return ring.SingleProducerMultiConsumer, nil
	default:
		return ring.Unknown, fmt.Errorf("seqringctl: unknown queue type %q, want mpmc or spmc", s)
	}
}

// attachRing creates or opens the shared ring described by cfg and returns
// it already wired to the given logger and recorder, along with the
// region to Close when done and whether this call created it.
func attachRing[T any](cfg config.Config, qt ring.QueueType, logger *zap.Logger, rec ring.Recorder) (*ring.Ring[T], io.Closer, bool, error) {
	length := ring.RoundUpLength(cfg.Length)
	size := ring.SizeOf[T](length)

	region, created, err := shm.CreateOrOpen(cfg.Path, size, func(buf []byte) error {
		_, err := ring.FromUninitialized[T](buf, length, qt)
		return err
	})
	if err != nil {
		return nil, nil, false, err
	}

	opts := []ring.Option[T]{ring.WithLogger[T](logger)}
	if rec != nil {
		opts = append(opts, ring.WithRecorder[T](rec))
	}
	r, err := ring.FromInitialized[T](region.Bytes(), opts...)
	if err != nil {
		region.Close()
		return nil, nil, false, err
	}
	return r, region, created, nil
}

// unsupportedElementSize is returned by each command's element-size switch
// when cfg.ElementSize names no known Message type.
func unsupportedElementSize(size int) error {
	return fmt.Errorf("seqringctl: unsupported element size %d, want one of 8, 32, 60, 124, 252, 508, 1020", size)
}
