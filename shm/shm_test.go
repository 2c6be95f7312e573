package shm

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestAnonymousIsZeroedAndPrivate(t *testing.T) {
	r := Anonymous(128)
	defer r.Close()
	if len(r.Bytes()) != 128 {
		t.Fatalf("expected 128 bytes, got %d", len(r.Bytes()))
	}
	for i, b := range r.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %d", i, b)
		}
	}
}

func TestCreateOrOpenCreatesThenReuses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "region")

	r1, created, err := CreateOrOpen(path, 64, func(buf []byte) error {
		buf[0] = 0xAB
		return nil
	})
	if err != nil {
		t.Fatalf("first CreateOrOpen: %v", err)
	}
	if !created {
		t.Fatalf("expected first call to be the creator")
	}
	if r1.Bytes()[0] != 0xAB {
		t.Fatalf("expected init to run, got %x", r1.Bytes()[0])
	}
	r1.Close()

	r2, created, err := CreateOrOpen(path, 64, func(buf []byte) error {
		buf[0] = 0xFF
		return nil
	})
	if err != nil {
		t.Fatalf("second CreateOrOpen: %v", err)
	}
	if created {
		t.Fatalf("expected second call to attach to the existing file")
	}
	if r2.Bytes()[0] != 0xAB {
		t.Fatalf("expected existing contents preserved, got %x", r2.Bytes()[0])
	}
	r2.Close()
}

func TestOpenExistingWaitReturnsOnceFileAppears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appears-later")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	var region *Region
	go func() {
		var err error
		region, err = OpenExistingWait(ctx, path, nil)
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	if _, _, err := CreateOrOpen(path, 32, func([]byte) error { return nil }); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("OpenExistingWait: %v", err)
	}
	if region == nil || len(region.Bytes()) != 32 {
		t.Fatalf("expected mapped region of 32 bytes, got %v", region)
	}
	region.Close()
}

func TestCreateOrOpenSerializesConcurrentCreators(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "race")

	const racers = 8
	var wg sync.WaitGroup
	var creators int
	var mu sync.Mutex
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func(id int) {
			defer wg.Done()
			r, created, err := CreateOrOpen(path, 64, func(buf []byte) error {
				buf[0] = byte(id)
				return nil
			})
			if err != nil {
				t.Errorf("racer %d: %v", id, err)
				return
			}
			defer r.Close()
			if created {
				mu.Lock()
				creators++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if creators != 1 {
		t.Fatalf("expected exactly one creator among %d racers, got %d", racers, creators)
	}
}

func TestOpenExistingWaitCanceled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "never-appears")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := OpenExistingWait(ctx, path, nil)
	if err == nil {
		t.Fatalf("expected context deadline error")
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Fatalf("file should not have been created")
	}
}
