package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"overrides/internal/core/errors"
	"overrides/internal/engine/model"
	"overrides/internal/shared/util"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5

	DefaultProjectKey = "default"
)

// SnapshotInfo describes one persisted hierarchy snapshot.
type SnapshotInfo struct {
	ID         string
	ProjectKey string
	SourceHash string
	Types      int
	Methods    int
	CreatedAt  time.Time
}

// Store persists hierarchy snapshots in SQLite. Every Save writes a new,
// immutable snapshot; readers address snapshots by ID.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.AddContext(
			errors.New(errors.CodeValidationError, "store path is a directory, expected file"),
			errors.CtxPath, cleanPath,
		)
	}
	if err := util.EnsureParentDir(cleanPath); err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "create store directory"), errors.CtxPath, cleanPath)
	}

	// busy_timeout + WAL keep watch-mode re-saves from tripping over readers.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "open sqlite store"), errors.CtxPath, cleanPath)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "ping sqlite store"), errors.CtxPath, cleanPath)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "initialize sqlite schema"), errors.CtxPath, cleanPath)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.CodeModelBacking, "ping snapshot store")
	}
	return nil
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func normalizeProjectKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return DefaultProjectKey
	}
	return key
}

// Save writes snap as a new snapshot of projectKey in one transaction.
func (s *Store) Save(projectKey string, snap *model.Snapshot, sourceHash string) (SnapshotInfo, error) {
	if snap == nil {
		return SnapshotInfo{}, errors.New(errors.CodeValidationError, "snapshot must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	types := snap.Types()
	info := SnapshotInfo{
		ID:         uuid.NewString(),
		ProjectKey: normalizeProjectKey(projectKey),
		SourceHash: sourceHash,
		Types:      len(types),
		CreatedAt:  time.Now().UTC(),
	}
	for _, decl := range types {
		info.Methods += len(decl.Methods)
	}

	err := s.withRetry("save snapshot", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if err := writeSnapshot(tx, info, types); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return SnapshotInfo{}, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "save snapshot"), errors.CtxSnapshot, info.ID)
	}
	return info, nil
}

func writeSnapshot(tx *sql.Tx, info SnapshotInfo, types []model.TypeDecl) error {
	if _, err := tx.Exec(
		`INSERT INTO snapshots (id, project_key, source_hash, type_count, method_count, created_at_utc) VALUES (?, ?, ?, ?, ?, ?)`,
		info.ID, info.ProjectKey, info.SourceHash, info.Types, info.Methods, info.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	typeStmt, err := tx.Prepare(`INSERT INTO types (snapshot_id, type_id, kind, file, line) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer typeStmt.Close()
	superStmt, err := tx.Prepare(`INSERT INTO supertypes (snapshot_id, type_id, position, super_id, is_class) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer superStmt.Close()
	methodStmt, err := tx.Prepare(`
INSERT INTO methods (snapshot_id, type_id, position, name, flags, is_constructor, parameters, line)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer methodStmt.Close()

	for _, decl := range types {
		if _, err := typeStmt.Exec(info.ID, string(decl.ID), string(decl.Kind), decl.File, decl.Line); err != nil {
			return fmt.Errorf("insert type %s: %w", decl.ID, err)
		}
		for pos, super := range decl.Supertypes() {
			isClass := pos == 0 && decl.Superclass != ""
			if _, err := superStmt.Exec(info.ID, string(decl.ID), pos, string(super), isClass); err != nil {
				return fmt.Errorf("insert supertype of %s: %w", decl.ID, err)
			}
		}
		for pos, m := range decl.Methods {
			if _, err := methodStmt.Exec(info.ID, string(decl.ID), pos, m.Name, int64(m.Flags), m.Constructor, m.Parameters, m.Line); err != nil {
				return fmt.Errorf("insert method %s: %w", m.String(), err)
			}
		}
	}
	return nil
}

// Latest returns the most recently saved snapshot of projectKey.
func (s *Store) Latest(projectKey string) (SnapshotInfo, error) {
	projectKey = normalizeProjectKey(projectKey)
	row := s.db.QueryRow(`
SELECT id, project_key, source_hash, type_count, method_count, created_at_utc
FROM snapshots WHERE project_key = ?
ORDER BY rowid DESC LIMIT 1`, projectKey)

	info, err := scanInfo(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return SnapshotInfo{}, errors.AddContext(
			errors.New(errors.CodeNotFound, "no snapshot stored for project"),
			"project", projectKey,
		)
	}
	if err != nil {
		return SnapshotInfo{}, errors.Wrap(err, errors.CodeInternal, "read latest snapshot")
	}
	return info, nil
}

// Info returns the metadata of snapshot id.
func (s *Store) Info(id string) (SnapshotInfo, error) {
	row := s.db.QueryRow(`
SELECT id, project_key, source_hash, type_count, method_count, created_at_utc
FROM snapshots WHERE id = ?`, id)
	info, err := scanInfo(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return SnapshotInfo{}, errors.AddContext(errors.New(errors.CodeNotFound, "snapshot not found"), errors.CtxSnapshot, id)
	}
	if err != nil {
		return SnapshotInfo{}, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read snapshot"), errors.CtxSnapshot, id)
	}
	return info, nil
}

func scanInfo(row *sql.Row) (SnapshotInfo, error) {
	var (
		info  SnapshotInfo
		tsRaw string
	)
	if err := row.Scan(&info.ID, &info.ProjectKey, &info.SourceHash, &info.Types, &info.Methods, &tsRaw); err != nil {
		return SnapshotInfo{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("parse snapshot timestamp %q: %w", tsRaw, err)
	}
	info.CreatedAt = ts.UTC()
	return info, nil
}

// Load reads snapshot id fully into memory.
func (s *Store) Load(id string) (*model.Snapshot, error) {
	if _, err := s.Info(id); err != nil {
		return nil, err
	}

	decls, order, err := s.loadTypes(id)
	if err != nil {
		return nil, err
	}
	if err := s.loadSupertypes(id, decls); err != nil {
		return nil, err
	}
	if err := s.loadMethods(id, decls); err != nil {
		return nil, err
	}

	snap := model.NewSnapshot()
	for _, tid := range order {
		if err := snap.AddType(*decls[tid]); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (s *Store) loadTypes(id string) (map[model.TypeID]*model.TypeDecl, []model.TypeID, error) {
	rows, err := s.db.Query(`SELECT type_id, kind, file, line FROM types WHERE snapshot_id = ? ORDER BY type_id`, id)
	if err != nil {
		return nil, nil, loadError(err, id, "types")
	}
	defer rows.Close()

	decls := make(map[model.TypeID]*model.TypeDecl)
	var order []model.TypeID
	for rows.Next() {
		var (
			tid, kind string
			decl      model.TypeDecl
		)
		if err := rows.Scan(&tid, &kind, &decl.File, &decl.Line); err != nil {
			return nil, nil, loadError(err, id, "types")
		}
		decl.ID = model.TypeID(tid)
		decl.Kind = model.TypeKind(kind)
		decls[decl.ID] = &decl
		order = append(order, decl.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, loadError(err, id, "types")
	}
	return decls, order, nil
}

func (s *Store) loadSupertypes(id string, decls map[model.TypeID]*model.TypeDecl) error {
	rows, err := s.db.Query(`
SELECT type_id, super_id, is_class FROM supertypes
WHERE snapshot_id = ? ORDER BY type_id, position`, id)
	if err != nil {
		return loadError(err, id, "supertypes")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tid, super string
			isClass    bool
		)
		if err := rows.Scan(&tid, &super, &isClass); err != nil {
			return loadError(err, id, "supertypes")
		}
		decl, ok := decls[model.TypeID(tid)]
		if !ok {
			continue
		}
		if isClass {
			decl.Superclass = model.TypeID(super)
		} else {
			decl.Interfaces = append(decl.Interfaces, model.TypeID(super))
		}
	}
	if err := rows.Err(); err != nil {
		return loadError(err, id, "supertypes")
	}
	return nil
}

func (s *Store) loadMethods(id string, decls map[model.TypeID]*model.TypeDecl) error {
	rows, err := s.db.Query(`
SELECT type_id, name, flags, is_constructor, parameters, line FROM methods
WHERE snapshot_id = ? ORDER BY type_id, position`, id)
	if err != nil {
		return loadError(err, id, "methods")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tid string
			m   model.Method
			raw int64
		)
		if err := rows.Scan(&tid, &m.Name, &raw, &m.Constructor, &m.Parameters, &m.Line); err != nil {
			return loadError(err, id, "methods")
		}
		decl, ok := decls[model.TypeID(tid)]
		if !ok {
			continue
		}
		m.Flags = model.Flags(raw)
		decl.Methods = append(decl.Methods, m)
	}
	if err := rows.Err(); err != nil {
		return loadError(err, id, "methods")
	}
	return nil
}

func loadError(err error, id, what string) error {
	return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "load "+what), errors.CtxSnapshot, id)
}

// Prune deletes all but the newest keep snapshots of projectKey and returns
// how many were removed.
func (s *Store) Prune(projectKey string, keep int) (int, error) {
	if keep < 1 {
		return 0, errors.New(errors.CodeValidationError, "keep must be at least 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.withRetry("prune snapshots", func() error {
		res, err := s.db.Exec(`
DELETE FROM snapshots WHERE project_key = ? AND id NOT IN (
  SELECT id FROM snapshots WHERE project_key = ?
  ORDER BY rowid DESC LIMIT ?
)`, normalizeProjectKey(projectKey), normalizeProjectKey(projectKey), keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "prune snapshots")
	}
	return int(removed), nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
