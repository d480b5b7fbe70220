package app

import (
	"log/slog"
	"overrides/internal/core/config"
	"overrides/internal/core/errors"
	"overrides/internal/data/store"
	"overrides/internal/engine/model"
	"overrides/internal/engine/parser"
	"sync"
	"sync/atomic"
	"time"
)

const (
	SourceIndex = "index"
	SourceStore = "store"
)

// view is one immutable hierarchy that queries run against. Re-indexing
// publishes a new view; a query loads the pointer once and keeps using the
// same view until it returns.
type view struct {
	hierarchy  model.Hierarchy
	snapshot   *model.Snapshot // nil for store-backed views
	source     string
	snapshotID string
	sourceHash string
	loadedAt   time.Time
}

// App wires the indexer, the optional snapshot store and the resolver
// behind one query surface.
type App struct {
	Config  *config.Config
	indexer *parser.Indexer
	store   *store.Store

	active atomic.Pointer[view]

	// mu serialises Index, UseStored and Close.
	mu      sync.Mutex
	handles []*store.Hierarchy
	closed  bool
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	indexer, err := parser.NewIndexer(parser.Options{
		Extensions:   cfg.Index.Extensions,
		ExcludeDirs:  cfg.Index.ExcludeDirs,
		ExcludeFiles: cfg.Index.ExcludeFiles,
		Workers:      cfg.Index.Workers,
		MaxFileBytes: cfg.Index.MaxFileBytes,
	})
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, indexer: indexer}
	if cfg.DB.Enabled {
		st, err := store.Open(cfg.DB.Path)
		if err != nil {
			return nil, err
		}
		a.store = st
		slog.Debug("snapshot store opened", "path", st.Path())
	}
	return a, nil
}

// Store returns the snapshot store, or nil when persistence is disabled.
func (a *App) Store() *store.Store { return a.store }

func (a *App) current() (*view, error) {
	v := a.active.Load()
	if v == nil {
		return nil, errors.New(errors.CodeNotFound, "no hierarchy loaded; run an index first")
	}
	return v, nil
}

func (a *App) publish(v *view) {
	a.active.Store(v)
}

// Status describes the active hierarchy.
type Status struct {
	Loaded     bool
	Source     string
	SnapshotID string
	SourceHash string
	Types      int // -1 when the hierarchy is read lazily from the store
	LoadedAt   time.Time
}

func (a *App) Status() Status {
	v := a.active.Load()
	if v == nil {
		return Status{}
	}
	st := Status{
		Loaded:     true,
		Source:     v.source,
		SnapshotID: v.snapshotID,
		SourceHash: v.sourceHash,
		Types:      -1,
		LoadedAt:   v.loadedAt,
	}
	if v.snapshot != nil {
		st.Types = v.snapshot.Len()
	}
	return st
}

// Close releases store handles and the database. Queries issued after Close
// against a store-backed view fail with MODEL_BACKING_ERROR.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	for _, h := range a.handles {
		if err := h.Close(); err != nil {
			slog.Warn("failed to close stored hierarchy", "snapshot", h.SnapshotID(), "error", err)
		}
	}
	a.handles = nil

	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
