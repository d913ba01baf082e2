package asset

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// quiet drops log output in tests.
var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// gatedFetcher blocks every fetch until release is closed and counts calls.
type gatedFetcher struct {
	*Library
	release chan struct{}
	calls   atomic.Int32
}

func (f *gatedFetcher) FetchWearable(ctx context.Context, id ir.ID) (*wearable.Wearable, error) {
	f.calls.Add(1)
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return f.Library.FetchWearable(ctx, id)
}

func startService(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = svc.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
}

func runUntil(t *testing.T, loop *engine.Loop, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, loop.RunUntil(ctx, cond))
}

func TestRequestWearableLoadsAndCaches(t *testing.T) {
	lib := NewLibrary()
	shirt := &wearable.Wearable{AssetID: ir.SequentialID(1), Type: wearable.Shirt, Name: "Shirt"}
	require.NoError(t, lib.PutWearable(context.Background(), shirt))

	loop := engine.NewLoop(engine.WithPollInterval(time.Millisecond), engine.WithLogger(quiet))
	svc := NewService(lib, loop, Options{Workers: 2, Logger: quiet})
	startService(t, svc)

	var got *wearable.Wearable
	done := false
	svc.RequestWearable(shirt.AssetID, "Shirt", inventory.AssetClothing, func(w *wearable.Wearable) {
		got = w
		done = true
	})
	runUntil(t, loop, func() bool { return done })

	require.NotNil(t, got)
	assert.Equal(t, wearable.Shirt, got.Type)
	assert.True(t, svc.Cached(shirt.AssetID))

	// A cache hit still completes through the loop, never inline.
	done = false
	svc.RequestWearable(shirt.AssetID, "Shirt", inventory.AssetClothing, func(w *wearable.Wearable) {
		done = true
	})
	assert.False(t, done)
	loop.RunPending()
	assert.True(t, done)
}

func TestRequestWearableMissingYieldsNil(t *testing.T) {
	loop := engine.NewLoop(engine.WithPollInterval(time.Millisecond), engine.WithLogger(quiet))
	svc := NewService(NewLibrary(), loop, Options{Logger: quiet})
	startService(t, svc)

	called := false
	var got *wearable.Wearable
	svc.RequestWearable(ir.SequentialID(42), "Ghost", inventory.AssetBodyPart, func(w *wearable.Wearable) {
		called = true
		got = w
	})
	runUntil(t, loop, func() bool { return called })
	assert.Nil(t, got)
	assert.False(t, svc.Cached(ir.SequentialID(42)))
}

func TestConcurrentRequestsShareOneFetch(t *testing.T) {
	lib := NewLibrary()
	hair := &wearable.Wearable{AssetID: ir.SequentialID(3), Type: wearable.Hair}
	require.NoError(t, lib.PutWearable(context.Background(), hair))
	fetcher := &gatedFetcher{Library: lib, release: make(chan struct{})}

	loop := engine.NewLoop(engine.WithPollInterval(time.Millisecond), engine.WithLogger(quiet))
	svc := NewService(fetcher, loop, Options{Workers: 4, Logger: quiet})
	startService(t, svc)

	results := 0
	for range 3 {
		svc.RequestWearable(hair.AssetID, "Hair", inventory.AssetBodyPart, func(w *wearable.Wearable) {
			require.NotNil(t, w)
			results++
		})
	}
	close(fetcher.release)
	runUntil(t, loop, func() bool { return results == 3 })

	assert.EqualValues(t, 1, fetcher.calls.Load())
}

func TestFullQueueCompletesWithNil(t *testing.T) {
	lib := NewLibrary()
	loop := engine.NewLoop(engine.WithLogger(quiet))
	// No Start: nothing drains the queue.
	svc := NewService(lib, loop, Options{QueueSize: 1, Logger: quiet})

	var outcomes []bool
	svc.RequestWearable(ir.SequentialID(1), "a", inventory.AssetClothing, func(w *wearable.Wearable) {
		outcomes = append(outcomes, w != nil)
	})
	svc.RequestWearable(ir.SequentialID(2), "b", inventory.AssetClothing, func(w *wearable.Wearable) {
		outcomes = append(outcomes, w != nil)
	})
	loop.RunPending()

	assert.Equal(t, []bool{false}, outcomes, "second request overflowed the queue")
}

func TestNonWearableRequestCompletesWithNil(t *testing.T) {
	loop := engine.NewLoop(engine.WithLogger(quiet))
	svc := NewService(NewLibrary(), loop, Options{Logger: quiet})

	called := false
	svc.RequestWearable(ir.SequentialID(1), "hat", inventory.AssetObject, func(w *wearable.Wearable) {
		called = true
		assert.Nil(t, w)
	})
	loop.RunPending()
	assert.True(t, called)
}

func TestCreateNewWearablePersistsAndCaches(t *testing.T) {
	lib := NewLibrary()
	loop := engine.NewLoop(engine.WithLogger(quiet))
	svc := NewService(lib, loop, Options{IDs: ir.NewSequentialIDs(), Logger: quiet})

	w := svc.CreateNewWearable(wearable.Skin)
	assert.Equal(t, ir.SequentialID(1), w.AssetID)
	assert.Equal(t, "New Skin", w.Name)
	assert.True(t, svc.Cached(w.AssetID))
	assert.Equal(t, 1, lib.Len())

	stored, err := lib.FetchWearable(context.Background(), w.AssetID)
	require.NoError(t, err)
	assert.Equal(t, wearable.Skin, stored.Type)
}

func TestCallbacksDroppedAfterLoopStops(t *testing.T) {
	loop := engine.NewLoop(engine.WithLogger(quiet))
	svc := NewService(NewLibrary(), loop, Options{Logger: quiet})
	loop.Stop()

	called := false
	svc.RequestWearable(ir.SequentialID(1), "x", inventory.AssetObject, func(*wearable.Wearable) { called = true })
	loop.RunPending()
	assert.False(t, called)
}
