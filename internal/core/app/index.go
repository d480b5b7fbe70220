package app

import (
	"context"
	"log/slog"
	"overrides/internal/core/errors"
	"overrides/internal/data/store"
	"overrides/internal/engine/model"
	"overrides/internal/engine/parser"
	"overrides/internal/shared/observability"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// IndexReport is the outcome of one Index call.
type IndexReport struct {
	Result *parser.IndexResult
	// Saved is set when the snapshot was written to (or already present in)
	// the store.
	Saved *store.SnapshotInfo
}

// Index parses the configured source paths, publishes the new hierarchy and,
// with persistence enabled, saves it unless the latest stored snapshot has
// the same source hash.
func (a *App) Index(ctx context.Context) (*IndexReport, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Index")
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, errors.New(errors.CodeConflict, "app is closed")
	}

	res, err := a.indexer.Index(ctx, a.Config.SourcePaths)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("index.files", len(res.Files)),
		attribute.Int("index.types", res.Snapshot.Len()),
		attribute.Int("index.skipped", len(res.Skipped)),
	)

	report := &IndexReport{Result: res}
	v := &view{
		hierarchy:  res.Snapshot,
		snapshot:   res.Snapshot,
		source:     SourceIndex,
		sourceHash: res.SourceHash,
		loadedAt:   time.Now().UTC(),
	}

	if a.store != nil {
		info, err := a.persist(res)
		if err != nil {
			// The fresh hierarchy is still usable in memory.
			slog.Error("failed to persist snapshot", "error", err)
		} else {
			report.Saved = &info
			v.snapshotID = info.ID
		}
	}

	a.publish(v)
	return report, nil
}

func (a *App) persist(res *parser.IndexResult) (store.SnapshotInfo, error) {
	key := a.Config.DB.ProjectKey
	latest, err := a.store.Latest(key)
	switch {
	case err == nil && latest.SourceHash == res.SourceHash:
		slog.Debug("sources unchanged since last snapshot", "snapshot", latest.ID)
		return latest, nil
	case err != nil && !errors.IsCode(err, errors.CodeNotFound):
		return store.SnapshotInfo{}, err
	}

	info, err := a.store.Save(key, res.Snapshot, res.SourceHash)
	if err != nil {
		return store.SnapshotInfo{}, err
	}
	slog.Info("snapshot saved", "snapshot", info.ID, "project", info.ProjectKey, "types", info.Types, "methods", info.Methods)

	if keep := a.Config.DB.KeepSnapshots; keep > 0 {
		removed, err := a.store.Prune(key, keep)
		if err != nil {
			slog.Warn("failed to prune snapshots", "project", key, "error", err)
		} else if removed > 0 {
			slog.Debug("pruned snapshots", "project", key, "removed", removed)
		}
	}
	return info, nil
}

// UseStored switches queries to the latest persisted snapshot. Types are
// read lazily from the database through a bounded cache, so nothing is
// parsed.
func (a *App) UseStored(ctx context.Context) (store.SnapshotInfo, error) {
	if err := ctx.Err(); err != nil {
		return store.SnapshotInfo{}, err
	}
	_, span := observability.Tracer.Start(ctx, "app.UseStored")
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return store.SnapshotInfo{}, errors.New(errors.CodeConflict, "app is closed")
	}
	if a.store == nil {
		return store.SnapshotInfo{}, errors.New(errors.CodeNotSupported, "snapshot store is disabled; set db.enabled")
	}

	info, err := a.store.Latest(a.Config.DB.ProjectKey)
	if err != nil {
		return store.SnapshotInfo{}, err
	}
	h, err := a.store.Hierarchy(info.ID)
	if err != nil {
		return store.SnapshotInfo{}, err
	}
	span.SetAttributes(attribute.String("snapshot.id", info.ID))
	// Older handles stay open until Close; queries may still hold them.
	a.handles = append(a.handles, h)

	a.publish(&view{
		hierarchy:  model.NewCachedHierarchy(h, a.Config.Resolver.CacheSize),
		source:     SourceStore,
		snapshotID: info.ID,
		sourceHash: info.SourceHash,
		loadedAt:   time.Now().UTC(),
	})
	slog.Info("using stored snapshot", "snapshot", info.ID, "types", info.Types, "created_at", info.CreatedAt)
	return info, nil
}
