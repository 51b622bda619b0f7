package scheduler

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockedRunsTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "radar.lock")
	ran := false
	err := Locked(path, func(context.Context) error { ran = true; return nil })(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestLockedSkipsWhenHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.lock")
	other := flock.New(path)
	ok, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = other.Unlock() }()

	ran := false
	err = Locked(path, func(context.Context) error { ran = true; return nil })(context.Background())
	assert.ErrorIs(t, err, ErrLocked)
	assert.False(t, ran)
}

func TestEveryRunsImmediatelyAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int32
	done := make(chan struct{})
	go func() {
		Every(ctx, time.Hour, "test", func(context.Context) error {
			n.Add(1)
			cancel()
			return nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Every did not return after cancel")
	}
	assert.Equal(t, int32(1), n.Load())
}
