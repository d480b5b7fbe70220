// # internal/engine/parser/types.go
package parser

import (
	"overrides/internal/engine/model"
	"time"
)

// JavaFile is everything the indexer needs from one compilation unit.
type JavaFile struct {
	Path     string
	Package  string
	Imports  []Import
	Types    []TypeSpec
	Hash     uint64 // xxhash of the source bytes
	ParsedAt time.Time
}

type Import struct {
	Path     string // com.zoo.Dog, or com.zoo for an on-demand import
	Static   bool
	OnDemand bool
	Line     int
}

// TypeSpec is a type declaration before name resolution. Names are kept as
// written in source with type arguments stripped.
type TypeSpec struct {
	Name       string // dotted within the file: Outer.Inner
	Kind       model.TypeKind
	Superclass string
	Interfaces []string
	Methods    []model.Method // DeclaringType is filled in by the resolver
	Line       int
}

// Qualified returns the TypeID of the declared type inside pkg.
func (s TypeSpec) Qualified(pkg string) model.TypeID {
	if pkg == "" {
		return model.TypeID(s.Name)
	}
	return model.TypeID(pkg + "." + s.Name)
}

// FileSummary is the per-file record kept in IndexResult.
type FileSummary struct {
	Path    string
	Package string
	Types   int
	Hash    uint64
}

type SkippedFile struct {
	Path   string
	Reason string
}

// IndexResult is the outcome of one Index run.
type IndexResult struct {
	Snapshot   *model.Snapshot
	Files      []FileSummary
	SourceHash string
	Skipped    []SkippedFile
	Duration   time.Duration
}
