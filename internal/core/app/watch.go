package app

import (
	"context"
	"log/slog"
	"overrides/internal/core/watcher"
	"overrides/internal/shared/util"
)

// UpdateFunc receives the outcome of every re-index triggered by Watch.
type UpdateFunc func(report *IndexReport, changed []string, err error)

// Watch re-indexes whenever sources under the configured paths change and
// blocks until ctx is done. Re-index runs are throttled by
// watch.max_reindex_per_second; bursts inside the debounce window collapse
// into one run.
func (a *App) Watch(ctx context.Context, onUpdate UpdateFunc) error {
	limiter := util.NewLimiter(a.Config.Watch.MaxReindexPerSecond, 1)

	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.indexer.Filter(), func(paths []string) {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		slog.Info("sources changed; re-indexing", "files", len(paths))
		report, err := a.Index(ctx)
		if err != nil {
			slog.Error("re-index failed", "error", err)
		}
		if onUpdate != nil {
			onUpdate(report, paths, err)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(a.Config.SourcePaths); err != nil {
		return err
	}
	slog.Info("watching sources", "paths", a.Config.SourcePaths, "debounce", a.Config.Watch.Debounce)

	<-ctx.Done()
	return nil
}
