package override

import "overrides/internal/engine/model"

// IsOverridable reports whether m can take part in an override relationship
// at all. Private, static and constructor methods are never inherited.
func IsOverridable(m model.Method) bool {
	return !m.Flags.IsPrivate() && !m.Flags.IsStatic() && !m.Constructor
}

// IsSubsignature reports whether overriding could override overridden.
//
// Only names are compared. The relation is directional: a stronger check on
// parameters must keep overriding as the subsignature side.
func IsSubsignature(overriding, overridden model.Method) bool {
	return overriding.Name == overridden.Name
}

// PackageVisibility applies Java-style access rules: public and protected
// members are visible everywhere in the hierarchy, package-private members
// only from the same package, private members only from their own type.
//
// The package of a nested type is approximated by its enclosing type id.
type PackageVisibility struct{}

var _ model.VisibilityChecker = PackageVisibility{}

func (PackageVisibility) IsVisible(m model.Method, from model.TypeID) bool {
	switch {
	case m.Flags.IsPrivate():
		return m.DeclaringType == from
	case m.Flags.Has(model.FlagPublic), m.Flags.Has(model.FlagProtected):
		return true
	default:
		return m.DeclaringType.Package() == from.Package()
	}
}

// VisibilityFunc adapts a plain function to model.VisibilityChecker.
type VisibilityFunc func(m model.Method, from model.TypeID) bool

func (f VisibilityFunc) IsVisible(m model.Method, from model.TypeID) bool {
	return f(m, from)
}
