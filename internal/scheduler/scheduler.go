// Package scheduler runs tasks on an interval, one at a time across
// processes.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

type Task func(ctx context.Context) error

// ErrLocked is returned by a locked task when another process holds the lock.
var ErrLocked = errors.New("another run holds the lock")

// Every runs task immediately and then on each tick until ctx is done. Ticks
// that arrive while a run is in progress are dropped.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	run := func() {
		if err := task(ctx); err != nil {
			if errors.Is(err, ErrLocked) {
				log.Printf("[%s] skipped: %v", name, err)
				return
			}
			log.Printf("[%s] error: %v", name, err)
		}
	}

	// run immediately
	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}

// Locked wraps task with a non-blocking file lock at path, so a CLI run and
// the engine never overlap.
func Locked(path string, task Task) Task {
	return func(ctx context.Context) error {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("scheduler lock dir: %w", err)
			}
		}
		fl := flock.New(path)
		ok, err := fl.TryLock()
		if err != nil {
			return fmt.Errorf("scheduler lock %s: %w", path, err)
		}
		if !ok {
			return ErrLocked
		}
		defer func() { _ = fl.Unlock() }()
		return task(ctx)
	}
}
