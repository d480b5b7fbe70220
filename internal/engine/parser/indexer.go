package parser

import (
	"context"
	"encoding/binary"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"overrides/internal/core/errors"
	"overrides/internal/shared/observability"
	"overrides/internal/shared/util"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const (
	statusParsed  = "parsed"
	statusSkipped = "skipped"
)

type Options struct {
	Extensions   []string
	ExcludeDirs  []string
	ExcludeFiles []string
	Workers      int
	// MaxFileBytes skips larger files; zero means no limit.
	MaxFileBytes int64
}

// Indexer parses Java source trees into hierarchy snapshots.
type Indexer struct {
	filter    *util.PathFilter
	pool      *ParserPool
	extractor *JavaExtractor
	workers   int
	maxBytes  int64
}

func NewIndexer(opts Options) (*Indexer, error) {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".java"}
	}
	filter, err := util.NewPathFilter(opts.Extensions, opts.ExcludeDirs, opts.ExcludeFiles)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Indexer{
		filter:    filter,
		pool:      NewParserPool(JavaLanguage()),
		extractor: &JavaExtractor{},
		workers:   workers,
		maxBytes:  opts.MaxFileBytes,
	}, nil
}

// Filter exposes the path rules so a watcher can apply the same scoping.
func (ix *Indexer) Filter() *util.PathFilter { return ix.filter }

// Index walks roots, parses every accepted file and links the result. Files
// that cannot be read or parsed are reported in IndexResult.Skipped; only a
// missing root or a cancelled context fails the whole run.
func (ix *Indexer) Index(ctx context.Context, roots []string) (*IndexResult, error) {
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "parser.Index")
	defer span.End()

	paths, err := ix.collect(roots)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("index.candidates", len(paths)))

	files := make([]*JavaFile, len(paths))
	var (
		skipped   []SkippedFile
		skippedMu sync.Mutex
	)
	skip := func(path, reason string) {
		skippedMu.Lock()
		skipped = append(skipped, SkippedFile{Path: path, Reason: reason})
		skippedMu.Unlock()
		observability.IndexFilesTotal.WithLabelValues(statusSkipped).Inc()
		slog.Warn("skipping source file", "path", path, "reason", reason)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file, reason := ix.parseFile(path)
			if file == nil {
				skip(path, reason)
				return nil
			}
			files[i] = file
			observability.IndexFilesTotal.WithLabelValues(statusParsed).Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	parsed := make([]*JavaFile, 0, len(files))
	for _, f := range files {
		if f != nil {
			parsed = append(parsed, f)
		}
	}
	snap, err := Link(parsed)
	if err != nil {
		return nil, err
	}

	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })
	res := &IndexResult{
		Snapshot:   snap,
		Files:      summarize(parsed),
		SourceHash: sourceHash(parsed),
		Skipped:    skipped,
		Duration:   time.Since(start),
	}

	observability.IndexDuration.Observe(res.Duration.Seconds())
	observability.IndexedTypes.Set(float64(snap.Len()))
	slog.Info("index complete",
		"files", len(parsed),
		"skipped", len(skipped),
		"types", snap.Len(),
		"duration", res.Duration,
		"heap_mb", util.HeapAllocMB(),
	)
	return res, nil
}

func (ix *Indexer) collect(roots []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeNotFound, "source path not accessible"),
				errors.CtxPath, root,
			)
		}
		if !info.IsDir() {
			if ix.filter.AcceptFile(root) {
				paths = appendUnique(paths, seen, root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				slog.Warn("walk error", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && ix.filter.SkipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && ix.filter.AcceptFile(path) {
				paths = appendUnique(paths, seen, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk source tree"), errors.CtxPath, root)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func appendUnique(paths []string, seen map[string]struct{}, path string) []string {
	clean := filepath.Clean(path)
	if _, ok := seen[clean]; ok {
		return paths
	}
	seen[clean] = struct{}{}
	return append(paths, clean)
}

// parseFile returns the extracted file, or nil and a reason to skip it.
func (ix *Indexer) parseFile(path string) (*JavaFile, string) {
	if ix.maxBytes > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > ix.maxBytes {
			return nil, fmt.Sprintf("file exceeds %d bytes", ix.maxBytes)
		}
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err.Error()
	}
	return ix.ParseSource(path, source)
}

// ParseSource extracts one in-memory compilation unit.
func (ix *Indexer) ParseSource(path string, source []byte) (*JavaFile, string) {
	tree, err := ix.pool.Parse(source)
	if err != nil {
		return nil, err.Error()
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		slog.Debug("syntax errors in source; indexing recoverable declarations", "path", path)
	}
	file, err := ix.extractor.Extract(root, source, path)
	if err != nil {
		return nil, err.Error()
	}
	return file, ""
}

func summarize(files []*JavaFile) []FileSummary {
	out := make([]FileSummary, 0, len(files))
	for _, f := range files {
		out = append(out, FileSummary{Path: f.Path, Package: f.Package, Types: len(f.Types), Hash: f.Hash})
	}
	return out
}

// sourceHash fingerprints the indexed tree: file paths in order plus each
// file's content hash. Files must already be sorted by path.
func sourceHash(files []*JavaFile) string {
	d := xxhash.New()
	var buf [8]byte
	for _, f := range files {
		_, _ = d.WriteString(f.Path)
		binary.LittleEndian.PutUint64(buf[:], f.Hash)
		_, _ = d.Write(buf[:])
	}
	return fmt.Sprintf("%016x", d.Sum64())
}
