package store

import (
	"database/sql"
	"overrides/internal/core/errors"
	"overrides/internal/engine/model"
	"sync"
)

// Hierarchy reads one persisted snapshot on demand. Nothing is loaded up
// front; wrap it in model.CachedHierarchy for repeated queries.
type Hierarchy struct {
	snapshotID string
	supers     *sql.Stmt
	methods    *sql.Stmt
	closeOnce  sync.Once
}

var _ model.Hierarchy = (*Hierarchy)(nil)

// Hierarchy opens a lazy provider over snapshot id. The caller must Close it
// before closing the store.
func (s *Store) Hierarchy(id string) (*Hierarchy, error) {
	if _, err := s.Info(id); err != nil {
		return nil, err
	}

	supers, err := s.db.Prepare(`SELECT super_id FROM supertypes WHERE snapshot_id = ? AND type_id = ? ORDER BY position`)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "prepare supertype query"), errors.CtxSnapshot, id)
	}
	methods, err := s.db.Prepare(`
SELECT name, flags, is_constructor, parameters, line FROM methods
WHERE snapshot_id = ? AND type_id = ? ORDER BY position`)
	if err != nil {
		_ = supers.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "prepare method query"), errors.CtxSnapshot, id)
	}
	return &Hierarchy{snapshotID: id, supers: supers, methods: methods}, nil
}

func (h *Hierarchy) SnapshotID() string { return h.snapshotID }

func (h *Hierarchy) Supertypes(t model.TypeID) ([]model.TypeID, error) {
	rows, err := h.supers.Query(h.snapshotID, string(t))
	if err != nil {
		return nil, h.backingError(err, t)
	}
	defer rows.Close()

	var out []model.TypeID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, h.backingError(err, t)
		}
		out = append(out, model.TypeID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, h.backingError(err, t)
	}
	return out, nil
}

func (h *Hierarchy) Methods(t model.TypeID) ([]model.Method, error) {
	rows, err := h.methods.Query(h.snapshotID, string(t))
	if err != nil {
		return nil, h.backingError(err, t)
	}
	defer rows.Close()

	var out []model.Method
	for rows.Next() {
		var (
			m   = model.Method{DeclaringType: t}
			raw int64
		)
		if err := rows.Scan(&m.Name, &raw, &m.Constructor, &m.Parameters, &m.Line); err != nil {
			return nil, h.backingError(err, t)
		}
		m.Flags = model.Flags(raw)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, h.backingError(err, t)
	}
	return out, nil
}

func (h *Hierarchy) Close() error {
	var err error
	h.closeOnce.Do(func() {
		err = h.supers.Close()
		if cerr := h.methods.Close(); err == nil {
			err = cerr
		}
	})
	return err
}

func (h *Hierarchy) backingError(err error, t model.TypeID) error {
	wrapped := errors.Wrap(err, errors.CodeModelBacking, "read persisted hierarchy")
	wrapped = errors.AddContext(wrapped, errors.CtxSnapshot, h.snapshotID)
	return errors.AddContext(wrapped, errors.CtxType, string(t))
}
