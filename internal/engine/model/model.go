package model

import (
	"strings"
)

// TypeID identifies a declared type by its fully qualified name
// (e.g. "com.zoo.Dog", nested types as "com.zoo.Dog.Tail").
type TypeID string

// Package returns everything before the last dot, or "" for the default package.
func (t TypeID) Package() string {
	s := string(t)
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return s[:idx]
	}
	return ""
}

func (t TypeID) SimpleName() string {
	s := string(t)
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func (t TypeID) String() string { return string(t) }

type TypeKind string

const (
	KindClass     TypeKind = "class"
	KindInterface TypeKind = "interface"
	KindEnum      TypeKind = "enum"
	KindRecord    TypeKind = "record"
	// KindExternal marks a type referenced as a supertype but never declared
	// in the indexed sources.
	KindExternal TypeKind = "external"
)

// Flags is the modifier set of a method.
type Flags uint32

const (
	FlagPublic Flags = 1 << iota
	FlagProtected
	FlagPrivate
	FlagStatic
	FlagFinal
	FlagAbstract
	FlagDefault
	FlagSynchronized
	FlagNative
)

var flagWords = []struct {
	flag Flags
	word string
}{
	{FlagPublic, "public"},
	{FlagProtected, "protected"},
	{FlagPrivate, "private"},
	{FlagStatic, "static"},
	{FlagFinal, "final"},
	{FlagAbstract, "abstract"},
	{FlagDefault, "default"},
	{FlagSynchronized, "synchronized"},
	{FlagNative, "native"},
}

// ParseFlags maps modifier keywords to Flags. Unknown words are ignored.
func ParseFlags(words []string) Flags {
	var f Flags
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		for _, fw := range flagWords {
			if fw.word == w {
				f |= fw.flag
				break
			}
		}
	}
	return f
}

func (f Flags) Has(flag Flags) bool { return f&flag == flag }

func (f Flags) IsPrivate() bool { return f.Has(FlagPrivate) }

func (f Flags) IsStatic() bool { return f.Has(FlagStatic) }

// IsPackagePrivate reports the absence of any access modifier.
func (f Flags) IsPackagePrivate() bool {
	return f&(FlagPublic|FlagProtected|FlagPrivate) == 0
}

func (f Flags) String() string {
	words := make([]string, 0, 4)
	for _, fw := range flagWords {
		if f.Has(fw.flag) {
			words = append(words, fw.word)
		}
	}
	return strings.Join(words, " ")
}

// Method is a member declared by exactly one type. It is a plain comparable
// value so it can be used as a map key; Parameters is display text only.
type Method struct {
	DeclaringType TypeID
	Name          string
	Flags         Flags
	Constructor   bool
	Parameters    string
	Line          int
}

func (m Method) String() string {
	return string(m.DeclaringType) + "#" + m.Name
}

// TypeDecl is a declared type together with its direct supertypes and methods.
type TypeDecl struct {
	ID         TypeID
	Kind       TypeKind
	Superclass TypeID
	Interfaces []TypeID
	Methods    []Method
	File       string
	Line       int
}

// Supertypes returns the superclass (if any) followed by the interfaces in
// declaration order.
func (d TypeDecl) Supertypes() []TypeID {
	out := make([]TypeID, 0, len(d.Interfaces)+1)
	if d.Superclass != "" {
		out = append(out, d.Superclass)
	}
	out = append(out, d.Interfaces...)
	return out
}

// Hierarchy is the read-only view of a type graph that override resolution
// runs against. Implementations must behave as an immutable snapshot for the
// duration of a single query.
type Hierarchy interface {
	// Supertypes returns the direct supertypes of t, superclass first, then
	// interfaces. Unknown types have no supertypes.
	Supertypes(t TypeID) ([]TypeID, error)
	// Methods returns the methods declared by t in declaration order.
	Methods(t TypeID) ([]Method, error)
}

// VisibilityChecker decides whether m can be seen from the type from.
type VisibilityChecker interface {
	IsVisible(m Method, from TypeID) bool
}
