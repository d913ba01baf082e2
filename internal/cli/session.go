package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/wardrobe/internal/appearance"
	"github.com/roach88/wardrobe/internal/asset"
	"github.com/roach88/wardrobe/internal/avatar"
	"github.com/roach88/wardrobe/internal/config"
	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/store"
)

// EventNotice is the event log kind for appearance notices.
const EventNotice = "notice"

// settleSlack is added to the run timeouts when waiting for an update.
const settleSlack = 5 * time.Second

// loadConfig reads the config file named by opts, or the default file if
// present, and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	path, optional := opts.ConfigPath, false
	if path == "" {
		path, optional = DefaultConfigFile, true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.DBPath != "" {
		cfg.Database = opts.DBPath
	}
	return cfg, nil
}

// session is one CLI invocation's view of a wardrobe database: the
// inventory loaded into memory, an asset service reading from the store, an
// avatar whose events are appended to the log, and the appearance manager
// driving them on a loop owned by the caller's goroutine.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  *store.Store
	loop   *engine.Loop
	clock  *engine.Clock
	inv    *inventory.Model
	assets *asset.Service
	avatar *avatar.Avatar
	m      *appearance.Manager

	runs    []*appearance.Run
	notices []appearance.Notice

	cancel  context.CancelFunc
	workers chan error
}

// openSession opens the configured database and wires the appearance
// manager over it. Diagnostics go to errw.
func openSession(ctx context.Context, opts *RootOptions, errw io.Writer) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := cfg.Log.NewLogger(errw, opts.Verbose)

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	nodes, err := st.LoadInventory(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load inventory", err)
	}
	if len(nodes) == 0 {
		st.Close()
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database %s has no inventory (run wardrobe import first)", cfg.Database))
	}
	lastSeq, err := st.LastSeq(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read event log", err)
	}

	s := &session{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		loop:    engine.NewLoop(engine.WithPollInterval(cfg.Appearance.PollInterval), engine.WithLogger(logger)),
		clock:   engine.NewClockAt(lastSeq),
		workers: make(chan error, 1),
	}
	s.inv = inventory.NewModel(
		inventory.WithDispatcher(s.loop),
		inventory.WithLogger(logger),
	)
	if err := s.inv.Load(nodes); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "inventory in database is inconsistent", err)
	}

	s.assets = asset.NewService(st, s.loop, asset.Options{
		Workers:   cfg.Assets.Workers,
		QueueSize: cfg.Assets.QueueSize,
		CacheSize: cfg.Assets.CacheSize,
		CacheTTL:  cfg.Assets.CacheTTL,
		Logger:    logger,
	})
	var wctx context.Context
	wctx, s.cancel = context.WithCancel(ctx)
	go func() { s.workers <- s.assets.Start(wctx) }()

	s.avatar = avatar.New(
		avatar.WithClock(s.clock),
		avatar.WithLoaded(true),
		avatar.WithLogger(logger),
		avatar.WithHook(func(ev avatar.Event) { s.record(ev.Seq, ev.Kind, ev.Data) }),
	)
	s.m = appearance.NewManager(s.inv, s.assets, s.loop, s.avatar,
		appearance.WithFetchTimeout(cfg.Appearance.FetchTimeout),
		appearance.WithMissingTimeout(cfg.Appearance.MissingTimeout),
		appearance.WithMaxClothingLayers(cfg.Appearance.MaxClothingLayers),
		appearance.WithAttachmentLinks(cfg.Appearance.AttachmentLinks),
		appearance.WithNotifier(appearance.NotifierFunc(s.notice)),
		appearance.WithRunObserver(func(r *appearance.Run) { s.runs = append(s.runs, r) }),
		appearance.WithLogger(logger),
	)
	s.m.RecomputeDirty()
	return s, nil
}

func (s *session) notice(n appearance.Notice) {
	s.notices = append(s.notices, n)

	attrs := []any{"notice", n.Name}
	args := ir.Object{}
	for k, v := range n.Args {
		attrs = append(attrs, k, v)
		args[k] = ir.String(v)
	}
	s.logger.Info("appearance notice", attrs...)
	s.record(s.clock.Next(), EventNotice, ir.Object{"name": ir.String(n.Name), "args": args})
}

func (s *session) record(seq int64, kind string, data ir.Object) {
	if err := s.store.AppendEvent(context.Background(), store.Event{Seq: seq, Kind: kind, Data: data}); err != nil {
		s.logger.Warn("failed to record event", "kind", kind, "seq", seq, "error", err)
	}
}

// do runs op and then the loop until the manager goes quiet. An error the
// manager reported while settling is returned as op's error.
func (s *session) do(ctx context.Context, op func() error) error {
	prev := s.m.LastError()
	if err := op(); err != nil {
		return err
	}
	if err := s.settle(ctx); err != nil {
		return err
	}
	if last := s.m.LastError(); last != nil && last != prev {
		return last
	}
	return nil
}

func (s *session) settle(ctx context.Context) error {
	timeout := s.cfg.Appearance.FetchTimeout + s.cfg.Appearance.MissingTimeout + settleSlack
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.loop.RunUntil(ctx, func() bool { return !s.m.Busy() && s.loop.Idle() })
	if err != nil {
		return WrapExitError(ExitCommandError, "appearance update did not settle", err)
	}
	return nil
}

// lastRun returns the most recently finalized run, or nil.
func (s *session) lastRun() *appearance.Run {
	if len(s.runs) == 0 {
		return nil
	}
	return s.runs[len(s.runs)-1]
}

// close persists the inventory when save is set and releases everything.
func (s *session) close(save bool) error {
	var errs []error
	if save {
		if err := s.store.SaveInventory(context.Background(), s.inv.Nodes()); err != nil {
			errs = append(errs, fmt.Errorf("save inventory: %w", err))
		}
	}
	s.m.Shutdown()
	s.cancel()
	if err := <-s.workers; err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, fmt.Errorf("asset workers: %w", err))
	}
	s.loop.Stop()
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// findItem resolves ref to a non-link item, by id or by name. Names match
// case-insensitively; library items are searched only when the user
// inventory has no match.
func (s *session) findItem(ref string) (inventory.Item, error) {
	if id, err := ir.ParseID(ref); err == nil {
		if it, ok := s.inv.Item(id); ok {
			return it, nil
		}
	}
	want := norm.NFC.String(ref)
	byName := func(_ *inventory.Node, it *inventory.Item) bool {
		return it != nil && !it.IsLink() && strings.EqualFold(norm.NFC.String(it.Name()), want)
	}
	for _, root := range []ir.ID{s.inv.Root(), s.inv.LibraryRoot()} {
		if root == ir.NilID {
			continue
		}
		_, items := s.inv.CollectDescendants(root, byName, false)
		switch len(items) {
		case 0:
			continue
		case 1:
			return items[0], nil
		default:
			return inventory.Item{}, NewExitError(ExitCommandError, fmt.Sprintf("%d items are named %q; use an id", len(items), ref))
		}
	}
	return inventory.Item{}, NewExitError(ExitCommandError, fmt.Sprintf("item not found: %s", ref))
}

// findOutfit resolves ref to a folder under the user root, preferring
// outfit folders. It reports false when nothing matches.
func (s *session) findOutfit(ref string) (inventory.Node, bool) {
	if id, err := ir.ParseID(ref); err == nil {
		if cat, ok := s.inv.Category(id); ok {
			return cat, true
		}
	}
	cats, _ := s.inv.CollectDescendants(s.inv.Root(), inventory.NameCategory(ref), false)
	for _, c := range cats {
		if c.PreferredType == inventory.FolderOutfit {
			return c, true
		}
	}
	if len(cats) > 0 {
		return cats[0], true
	}
	return inventory.Node{}, false
}

// appearanceExit maps a manager refusal to ExitFailure and passes other
// errors through.
func appearanceExit(err error) error {
	if err == nil {
		return nil
	}
	if code := appearance.CodeOf(err); code != "" {
		return WrapExitError(ExitFailure, "appearance manager refused", err)
	}
	return err
}
