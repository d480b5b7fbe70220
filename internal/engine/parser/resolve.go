package parser

import (
	"log/slog"
	"overrides/internal/core/errors"
	"overrides/internal/engine/model"
	"sort"
	"strings"
)

// Link turns extracted files into a hierarchy snapshot. Supertype names are
// resolved per file, looking first at nested types of the enclosing
// declarations, then single-type imports, then the file's own package, then
// on-demand imports. Anything still unresolved is kept as written and
// registered as an external type with no supertypes and no methods.
//
// A type declared in more than one file keeps its first declaration by path
// order; later ones are logged and dropped.
func Link(files []*JavaFile) (*model.Snapshot, error) {
	ordered := append([]*JavaFile(nil), files...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Path < ordered[j].Path })

	known := make(map[model.TypeID]struct{})
	for _, f := range ordered {
		for _, spec := range f.Types {
			known[spec.Qualified(f.Package)] = struct{}{}
		}
	}

	snap := model.NewSnapshot()
	referenced := make(map[model.TypeID]struct{})
	for _, f := range ordered {
		scope := nameScope{file: f, known: known}
		for _, spec := range f.Types {
			decl := model.TypeDecl{
				ID:      spec.Qualified(f.Package),
				Kind:    spec.Kind,
				Methods: spec.Methods,
				File:    f.Path,
				Line:    spec.Line,
			}
			enclosing := parentScope(spec.Name)
			if spec.Superclass != "" {
				decl.Superclass = scope.resolve(enclosing, spec.Superclass)
				referenced[decl.Superclass] = struct{}{}
			}
			for _, iface := range spec.Interfaces {
				id := scope.resolve(enclosing, iface)
				decl.Interfaces = append(decl.Interfaces, id)
				referenced[id] = struct{}{}
			}

			if err := snap.AddType(decl); err != nil {
				if errors.IsCode(err, errors.CodeConflict) {
					slog.Warn("duplicate type declaration ignored", "type", decl.ID, "path", f.Path)
					continue
				}
				return nil, errors.AddContext(err, errors.CtxPath, f.Path)
			}
		}
	}

	external := make([]model.TypeID, 0)
	for id := range referenced {
		if _, ok := known[id]; !ok {
			external = append(external, id)
		}
	}
	sort.Slice(external, func(i, j int) bool { return external[i] < external[j] })
	for _, id := range external {
		if err := snap.AddType(model.TypeDecl{ID: id, Kind: model.KindExternal}); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

type nameScope struct {
	file  *JavaFile
	known map[model.TypeID]struct{}
}

func (s nameScope) qualify(name string) model.TypeID {
	if s.file.Package == "" {
		return model.TypeID(name)
	}
	return model.TypeID(s.file.Package + "." + name)
}

func (s nameScope) isKnown(id model.TypeID) bool {
	_, ok := s.known[id]
	return ok
}

// resolve maps a type name as written inside the declaration scope enclosing
// to a TypeID. Qualified names such as Map.Entry resolve their first segment.
func (s nameScope) resolve(enclosing, name string) model.TypeID {
	head, rest := name, ""
	if i := strings.IndexByte(name, '.'); i >= 0 {
		head, rest = name[:i], name[i:]
	}

	for sc := enclosing; sc != ""; sc = parentScope(sc) {
		if id := s.qualify(sc + "." + head); s.isKnown(id) {
			return id + model.TypeID(rest)
		}
	}

	for _, imp := range s.file.Imports {
		if imp.OnDemand {
			continue
		}
		if lastSegment(imp.Path) == head {
			return model.TypeID(imp.Path + rest)
		}
	}

	if id := s.qualify(head); s.isKnown(id) {
		return id + model.TypeID(rest)
	}

	for _, imp := range s.file.Imports {
		if !imp.OnDemand {
			continue
		}
		if id := model.TypeID(imp.Path + "." + head); s.isKnown(id) {
			return id + model.TypeID(rest)
		}
	}

	return model.TypeID(name)
}

func parentScope(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}
