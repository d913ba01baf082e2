package asset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// ErrNotFound is returned by fetchers when no asset exists for an id.
var ErrNotFound = errors.New("asset: not found")

// Fetcher loads a wearable payload. It runs on a worker goroutine.
type Fetcher interface {
	FetchWearable(ctx context.Context, assetID ir.ID) (*wearable.Wearable, error)
}

// Storer persists synthesised payloads. A Fetcher that also implements
// Storer gets every CreateNewWearable result written through.
type Storer interface {
	PutWearable(ctx context.Context, w *wearable.Wearable) error
}

// Dispatcher runs completions on the owning loop. engine.Loop implements it.
type Dispatcher interface {
	Post(t engine.Task) bool
}

// Callback receives the loaded payload, or nil if it could not be loaded.
type Callback func(w *wearable.Wearable)

// Options configures the service.
type Options struct {
	// Workers is the number of concurrent fetch workers.
	Workers int
	// QueueSize is the capacity of the fetch queue.
	QueueSize int
	// CacheSize is the maximum number of cached payloads.
	CacheSize int
	// CacheTTL is how long a payload stays cached.
	CacheTTL time.Duration
	// IDs generates asset ids for synthesised wearables.
	IDs ir.IDGenerator
	// Logger for the service.
	Logger *slog.Logger
}

type request struct {
	assetID ir.ID
	name    string
}

// Service is the asset resolution service.
type Service struct {
	opts       Options
	fetcher    Fetcher
	dispatcher Dispatcher
	cache      *expirable.LRU[ir.ID, *wearable.Wearable]
	queue      chan request

	mu       sync.Mutex
	inflight map[ir.ID][]Callback
}

// NewService creates a service. Fetches do not start until Start is called.
func NewService(fetcher Fetcher, dispatcher Dispatcher, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.IDs == nil {
		opts.IDs = ir.UUIDv7Generator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Service{
		opts:       opts,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		cache:      expirable.NewLRU[ir.ID, *wearable.Wearable](opts.CacheSize, nil, opts.CacheTTL),
		queue:      make(chan request, opts.QueueSize),
		inflight:   make(map[ir.ID][]Callback),
	}
}

// Start runs the fetch workers and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.opts.Logger.Debug("starting asset workers", "workers", s.opts.Workers, "queue_size", s.opts.QueueSize)

	g, gctx := errgroup.WithContext(ctx)
	for i := range s.opts.Workers {
		g.Go(func() error {
			s.worker(gctx, i)
			return nil
		})
	}
	err := g.Wait()

	s.opts.Logger.Debug("asset workers stopped")
	if err != nil {
		return fmt.Errorf("asset workers: %w", err)
	}
	return nil
}

// RequestWearable resolves assetID and eventually posts cb with the payload
// or nil. assetType is the category the requesting item claims.
func (s *Service) RequestWearable(assetID ir.ID, name string, assetType inventory.AssetType, cb Callback) {
	if cb == nil {
		return
	}
	if !assetType.IsWearable() {
		s.opts.Logger.Warn("requested non-wearable asset", "asset_id", assetID, "name", name, "type", assetType)
		s.complete([]Callback{cb}, nil)
		return
	}

	if w, ok := s.cache.Get(assetID); ok {
		s.opts.Logger.Debug("asset cache hit", "asset_id", assetID, "name", name)
		s.complete([]Callback{cb}, w)
		return
	}

	s.mu.Lock()
	if waiting, ok := s.inflight[assetID]; ok {
		s.inflight[assetID] = append(waiting, cb)
		s.mu.Unlock()
		s.opts.Logger.Debug("asset fetch already in progress", "asset_id", assetID, "name", name)
		return
	}
	s.inflight[assetID] = []Callback{cb}
	s.mu.Unlock()

	select {
	case s.queue <- request{assetID: assetID, name: name}:
		s.opts.Logger.Debug("enqueued asset fetch", "asset_id", assetID, "name", name)
	default:
		s.opts.Logger.Warn("asset queue is full", "asset_id", assetID, "name", name, "queue_size", s.opts.QueueSize)
		s.complete(s.takeWaiting(assetID), nil)
	}
}

// CreateNewWearable synthesises a default payload for wt under a fresh asset
// id, caches it, and persists it when the fetcher is also a Storer.
func (s *Service) CreateNewWearable(wt wearable.Type) *wearable.Wearable {
	w := wearable.NewDefault(wt, s.opts.IDs.NewID())
	s.cache.Add(w.AssetID, w)

	if st, ok := s.fetcher.(Storer); ok {
		if err := st.PutWearable(context.Background(), w); err != nil {
			s.opts.Logger.Warn("failed to persist new wearable", "asset_id", w.AssetID, "type", wt, "error", err)
		}
	}
	s.opts.Logger.Info("created default wearable", "asset_id", w.AssetID, "type", wt)
	return w.Clone()
}

// Cached reports whether assetID is currently cached.
func (s *Service) Cached(assetID ir.ID) bool {
	return s.cache.Contains(assetID)
}

func (s *Service) worker(ctx context.Context, id int) {
	logger := s.opts.Logger.With("worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.queue:
			s.handle(ctx, logger, req)
		}
	}
}

func (s *Service) handle(ctx context.Context, logger *slog.Logger, req request) {
	start := time.Now()
	w, err := s.fetcher.FetchWearable(ctx, req.assetID)
	if err != nil {
		logger.Warn("failed to fetch wearable", "asset_id", req.assetID, "name", req.name, "error", err, "duration", time.Since(start))
		w = nil
	} else {
		logger.Debug("fetched wearable", "asset_id", req.assetID, "name", req.name, "duration", time.Since(start))
		s.cache.Add(req.assetID, w)
	}
	s.complete(s.takeWaiting(req.assetID), w)
}

func (s *Service) takeWaiting(assetID ir.ID) []Callback {
	s.mu.Lock()
	defer s.mu.Unlock()
	cbs := s.inflight[assetID]
	delete(s.inflight, assetID)
	return cbs
}

func (s *Service) complete(cbs []Callback, w *wearable.Wearable) {
	for _, cb := range cbs {
		payload := w.Clone()
		if !s.dispatcher.Post(func() { cb(payload) }) {
			s.opts.Logger.Debug("dropped asset callback: loop stopped")
		}
	}
}
