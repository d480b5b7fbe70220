package model

import (
	"fmt"
	"overrides/internal/core/errors"
	"sort"
)

// Snapshot is an in-memory Hierarchy. It is built once via AddType and must
// not be mutated while queries run against it.
type Snapshot struct {
	types map[TypeID]*TypeDecl
	order []TypeID
}

var _ Hierarchy = (*Snapshot)(nil)

func NewSnapshot() *Snapshot {
	return &Snapshot{types: make(map[TypeID]*TypeDecl)}
}

// AddType registers decl. Methods are re-homed onto decl.ID so callers can
// omit DeclaringType when building fixtures.
func (s *Snapshot) AddType(decl TypeDecl) error {
	if decl.ID == "" {
		return errors.New(errors.CodeValidationError, "type id must not be empty")
	}
	if _, exists := s.types[decl.ID]; exists {
		return errors.AddContext(
			errors.New(errors.CodeConflict, fmt.Sprintf("type %s declared twice", decl.ID)),
			errors.CtxType, string(decl.ID),
		)
	}
	if decl.Kind == "" {
		decl.Kind = KindClass
	}

	stored := decl
	stored.Interfaces = append([]TypeID(nil), decl.Interfaces...)
	stored.Methods = make([]Method, len(decl.Methods))
	for i, m := range decl.Methods {
		m.DeclaringType = decl.ID
		stored.Methods[i] = m
	}

	s.types[decl.ID] = &stored
	s.order = append(s.order, decl.ID)
	return nil
}

func (s *Snapshot) Type(id TypeID) (TypeDecl, bool) {
	decl, ok := s.types[id]
	if !ok {
		return TypeDecl{}, false
	}
	return cloneDecl(*decl), true
}

// Types returns all declared types sorted by id.
func (s *Snapshot) Types() []TypeDecl {
	ids := append([]TypeID(nil), s.order...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]TypeDecl, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneDecl(*s.types[id]))
	}
	return out
}

func (s *Snapshot) Len() int { return len(s.types) }

func (s *Snapshot) Supertypes(t TypeID) ([]TypeID, error) {
	decl, ok := s.types[t]
	if !ok {
		return nil, nil
	}
	return decl.Supertypes(), nil
}

func (s *Snapshot) Methods(t TypeID) ([]Method, error) {
	decl, ok := s.types[t]
	if !ok {
		return nil, nil
	}
	return append([]Method(nil), decl.Methods...), nil
}

func cloneDecl(d TypeDecl) TypeDecl {
	d.Interfaces = append([]TypeID(nil), d.Interfaces...)
	d.Methods = append([]Method(nil), d.Methods...)
	return d
}
