package parser

import (
	"fmt"
	"overrides/internal/engine/model"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// JavaExtractor collects the package, imports and type declarations of one
// Java compilation unit. It keeps no state between calls.
type JavaExtractor struct{}

func (e *JavaExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*JavaFile, error) {
	if root == nil {
		return nil, fmt.Errorf("no syntax tree for %s", filePath)
	}
	if root.Kind() != "program" {
		return nil, fmt.Errorf("unexpected root node %q in %s", root.Kind(), filePath)
	}

	file := &JavaFile{
		Path:     filePath,
		Hash:     xxhash.Sum64(source),
		ParsedAt: time.Now(),
	}
	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"package_declaration":   e.extractPackage,
		"import_declaration":    e.extractImport,
		"class_declaration":     e.topLevelType,
		"interface_declaration": e.topLevelType,
		"enum_declaration":      e.topLevelType,
		"record_declaration":    e.topLevelType,
		// Annotation members cannot be overridden.
		"annotation_type_declaration": func(*ExtractionContext, *sitter.Node) bool { return true },
	})
	engine.Walk(ctx, root)
	return file, nil
}

func (e *JavaExtractor) extractPackage(ctx *ExtractionContext, node *sitter.Node) bool {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "identifier", "scoped_identifier":
			ctx.File.Package = compact(ctx.Text(child))
			return true
		}
	}
	return true
}

func (e *JavaExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	imp := Import{Line: ctx.Line(node)}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "static":
			imp.Static = true
		case "asterisk":
			imp.OnDemand = true
		case "identifier", "scoped_identifier":
			imp.Path = compact(ctx.Text(child))
		}
	}
	if imp.Path != "" {
		ctx.File.Imports = append(ctx.File.Imports, imp)
	}
	return true
}

func (e *JavaExtractor) topLevelType(ctx *ExtractionContext, node *sitter.Node) bool {
	e.extractType(ctx, node, "")
	return true
}

func (e *JavaExtractor) extractType(ctx *ExtractionContext, node *sitter.Node, outer string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := ctx.Text(nameNode)
	if outer != "" {
		name = outer + "." + name
	}

	spec := TypeSpec{Name: name, Line: ctx.Line(node)}
	switch node.Kind() {
	case "class_declaration":
		spec.Kind = model.KindClass
		if super := node.ChildByFieldName("superclass"); super != nil && super.NamedChildCount() > 0 {
			spec.Superclass = typeName(ctx, super.NamedChild(0))
		}
		spec.Interfaces = typeList(ctx, node.ChildByFieldName("interfaces"))
	case "interface_declaration":
		spec.Kind = model.KindInterface
		spec.Interfaces = typeList(ctx, ChildOfKind(node, "extends_interfaces"))
	case "enum_declaration":
		spec.Kind = model.KindEnum
		spec.Interfaces = typeList(ctx, node.ChildByFieldName("interfaces"))
	case "record_declaration":
		spec.Kind = model.KindRecord
		spec.Interfaces = typeList(ctx, node.ChildByFieldName("interfaces"))
	default:
		return
	}

	// Nested types are appended after their enclosing type, so keep an index
	// rather than a pointer into the growing slice.
	idx := len(ctx.File.Types)
	ctx.File.Types = append(ctx.File.Types, spec)
	e.extractMembers(ctx, node.ChildByFieldName("body"), idx, name, spec.Kind)
}

func (e *JavaExtractor) extractMembers(ctx *ExtractionContext, body *sitter.Node, idx int, owner string, kind model.TypeKind) {
	if body == nil {
		return
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		switch member.Kind() {
		case "method_declaration":
			m := e.method(ctx, member, false)
			if kind == model.KindInterface && !m.Flags.IsPrivate() {
				m.Flags |= model.FlagPublic
			}
			ctx.File.Types[idx].Methods = append(ctx.File.Types[idx].Methods, m)
		case "constructor_declaration", "compact_constructor_declaration":
			ctx.File.Types[idx].Methods = append(ctx.File.Types[idx].Methods, e.method(ctx, member, true))
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			e.extractType(ctx, member, owner)
		case "enum_body_declarations":
			e.extractMembers(ctx, member, idx, owner, kind)
		}
	}
}

func (e *JavaExtractor) method(ctx *ExtractionContext, node *sitter.Node, constructor bool) model.Method {
	m := model.Method{
		Name:        ctx.Text(node.ChildByFieldName("name")),
		Flags:       model.ParseFlags(modifierWords(ctx, node)),
		Constructor: constructor,
		Line:        ctx.Line(node),
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		m.Parameters = compactSpaces(ctx.Text(params))
	}
	return m
}

// modifierWords returns the keyword modifiers of a declaration. Annotations
// are skipped.
func modifierWords(ctx *ExtractionContext, node *sitter.Node) []string {
	mods := ChildOfKind(node, "modifiers")
	if mods == nil {
		return nil
	}
	var words []string
	for i := uint(0); i < mods.ChildCount(); i++ {
		child := mods.Child(i)
		switch child.Kind() {
		case "marker_annotation", "annotation", "line_comment", "block_comment":
			continue
		}
		words = append(words, ctx.Text(child))
	}
	return words
}

// typeList reads the type_list under an implements/extends clause.
func typeList(ctx *ExtractionContext, clause *sitter.Node) []string {
	if clause == nil {
		return nil
	}
	list := ChildOfKind(clause, "type_list")
	if list == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < list.NamedChildCount(); i++ {
		if name := typeName(ctx, list.NamedChild(i)); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func typeName(ctx *ExtractionContext, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return stripTypeArguments(ctx.Text(node))
}

// stripTypeArguments turns Map<K, List<V>>.Entry into Map.Entry.
func stripTypeArguments(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth > 0, r == ' ', r == '\t', r == '\n', r == '\r':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func compactSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
