package app

import (
	"fmt"
	"overrides/internal/core/errors"
	"overrides/internal/engine/model"
	"overrides/internal/engine/override"
	"strings"
)

// QueryOptions tune a single override query. Zero values fall back to the
// resolver section of the configuration.
type QueryOptions struct {
	TestVisibility bool
	Focus          model.TypeID
}

// TypeInfo is what LookupType reports about a type.
type TypeInfo struct {
	ID         model.TypeID
	Kind       model.TypeKind // empty for store-backed hierarchies
	File       string
	Line       int
	Supertypes []model.TypeID
	Methods    []model.Method
}

// ParseMethodRef splits "pkg.Type#name" into the type and method name. A
// trailing parameter list such as "speak()" is ignored.
func ParseMethodRef(ref string) (model.TypeID, string, error) {
	ref = strings.TrimSpace(ref)
	typ, name, ok := strings.Cut(ref, "#")
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	typ, name = strings.TrimSpace(typ), strings.TrimSpace(name)
	if !ok || typ == "" || name == "" {
		return "", "", errors.New(errors.CodeValidationError, fmt.Sprintf("invalid method reference %q; want pkg.Type#method", ref))
	}
	return model.TypeID(typ), name, nil
}

func (a *App) LookupType(id model.TypeID) (TypeInfo, error) {
	v, err := a.current()
	if err != nil {
		return TypeInfo{}, err
	}
	return lookupType(v, id)
}

func lookupType(v *view, id model.TypeID) (TypeInfo, error) {
	info := TypeInfo{ID: id}
	if v.snapshot != nil {
		decl, ok := v.snapshot.Type(id)
		if !ok {
			return TypeInfo{}, typeNotFound(id)
		}
		info.Kind, info.File, info.Line = decl.Kind, decl.File, decl.Line
	}

	supers, err := v.hierarchy.Supertypes(id)
	if err != nil {
		return TypeInfo{}, err
	}
	methods, err := v.hierarchy.Methods(id)
	if err != nil {
		return TypeInfo{}, err
	}
	// A lazy hierarchy cannot tell an unknown type from an empty one.
	if v.snapshot == nil && len(supers) == 0 && len(methods) == 0 {
		return TypeInfo{}, typeNotFound(id)
	}
	info.Supertypes, info.Methods = supers, methods
	return info, nil
}

// LookupMethod resolves "pkg.Type#name" to the first method of that name
// declared by the type.
func (a *App) LookupMethod(ref string) (model.Method, error) {
	v, err := a.current()
	if err != nil {
		return model.Method{}, err
	}
	return lookupMethod(v, ref)
}

func lookupMethod(v *view, ref string) (model.Method, error) {
	typ, name, err := ParseMethodRef(ref)
	if err != nil {
		return model.Method{}, err
	}
	methods, err := v.hierarchy.Methods(typ)
	if err != nil {
		return model.Method{}, err
	}
	for _, m := range methods {
		if m.Name == name {
			return m, nil
		}
	}
	e := errors.New(errors.CodeNotFound, "method not found")
	return model.Method{}, errors.AddContext(errors.AddContext(e, errors.CtxType, string(typ)), errors.CtxMethod, name)
}

func typeNotFound(id model.TypeID) error {
	return errors.AddContext(errors.New(errors.CodeNotFound, "type not found"), errors.CtxType, string(id))
}

func (a *App) resolver(v *view, opts QueryOptions) (*override.Resolver, bool) {
	focus := opts.Focus
	if focus == "" {
		focus = model.TypeID(a.Config.Resolver.FocusType)
	}
	testVisibility := opts.TestVisibility || a.Config.Resolver.TestVisibility
	return override.NewResolver(v.hierarchy, override.WithFocusType(focus)), testVisibility
}

// Overridden returns the method ref directly overrides, or nil.
func (a *App) Overridden(ref string, opts QueryOptions) (*model.Method, error) {
	v, err := a.current()
	if err != nil {
		return nil, err
	}
	m, err := lookupMethod(v, ref)
	if err != nil {
		return nil, err
	}
	r, testVisibility := a.resolver(v, opts)
	return r.FindOverriddenMethod(m, testVisibility)
}

// Declaring returns the top-most method of ref's override chain, or nil.
func (a *App) Declaring(ref string, opts QueryOptions) (*model.Method, error) {
	v, err := a.current()
	if err != nil {
		return nil, err
	}
	m, err := lookupMethod(v, ref)
	if err != nil {
		return nil, err
	}
	r, testVisibility := a.resolver(v, opts)
	return r.FindDeclaringMethod(m, testVisibility)
}

// Chain returns every method ref transitively overrides, nearest first.
func (a *App) Chain(ref string, opts QueryOptions) ([]model.Method, error) {
	v, err := a.current()
	if err != nil {
		return nil, err
	}
	m, err := lookupMethod(v, ref)
	if err != nil {
		return nil, err
	}
	r, testVisibility := a.resolver(v, opts)
	return r.OverrideChain(m, testVisibility)
}

// Overriding returns the method declared directly in typ that overrides ref,
// or nil.
func (a *App) Overriding(typ model.TypeID, ref string) (*model.Method, error) {
	v, err := a.current()
	if err != nil {
		return nil, err
	}
	m, err := lookupMethod(v, ref)
	if err != nil {
		return nil, err
	}
	r, _ := a.resolver(v, QueryOptions{})
	return r.FindOverridingMethodInType(typ, m)
}
