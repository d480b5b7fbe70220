package override

import (
	"log/slog"
	"overrides/internal/core/errors"
	"overrides/internal/engine/model"
	"overrides/internal/shared/observability"
)

const (
	opOverridden  = "find_overridden"
	opDeclaring   = "find_declaring"
	opChain       = "override_chain"
	opInHierarchy = "find_in_hierarchy"
	opInType      = "find_in_type"
	opOverriding  = "find_overriding"
)

// Resolver answers override queries against one hierarchy snapshot.
//
// A Resolver holds no mutable state: every public call creates its own
// visited set, so one Resolver may serve concurrent callers as long as the
// hierarchy is not mutated underneath it.
type Resolver struct {
	hierarchy  model.Hierarchy
	focus      model.TypeID
	visibility model.VisibilityChecker
}

type Option func(*Resolver)

// WithFocusType sets the type queries are issued from. It is the context used
// for visibility checks; when unset the overriding method's declaring type is
// used instead.
func WithFocusType(t model.TypeID) Option {
	return func(r *Resolver) { r.focus = t }
}

// WithVisibilityChecker replaces the default PackageVisibility rules.
func WithVisibilityChecker(v model.VisibilityChecker) Option {
	return func(r *Resolver) {
		if v != nil {
			r.visibility = v
		}
	}
}

func NewResolver(h model.Hierarchy, opts ...Option) *Resolver {
	r := &Resolver{
		hierarchy:  h,
		visibility: PackageVisibility{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) FocusType() model.TypeID { return r.focus }

func (r *Resolver) Hierarchy() model.Hierarchy { return r.hierarchy }

// FindOverriddenMethod returns the method that overriding directly overrides,
// or nil. Supertypes are searched in order, superclass before interfaces, and
// the first non-private match wins. With testVisibility the winning match must
// also be visible from the query context, otherwise nil is returned.
func (r *Resolver) FindOverriddenMethod(overriding model.Method, testVisibility bool) (*model.Method, error) {
	if err := r.checkMethod(overriding); err != nil {
		return r.done(opOverridden, overriding, nil, err)
	}
	if !IsOverridable(overriding) {
		observability.QueriesTotal.WithLabelValues(opOverridden, observability.OutcomeIneligible).Inc()
		return nil, nil
	}
	res, err := r.findOverridden(overriding, testVisibility)
	return r.done(opOverridden, overriding, res, err)
}

// FindDeclaringMethod follows the override chain of overriding to its root:
// the first method that overrides nothing. It returns nil when overriding
// itself overrides nothing.
func (r *Resolver) FindDeclaringMethod(overriding model.Method, testVisibility bool) (*model.Method, error) {
	chain, err := r.overrideChain(overriding, testVisibility)
	if err != nil || len(chain) == 0 {
		return r.done(opDeclaring, overriding, nil, err)
	}
	root := chain[len(chain)-1]
	return r.done(opDeclaring, overriding, &root, nil)
}

// OverrideChain returns every method overriding transitively overrides,
// nearest first; the last element is the declaring method. A chain that
// revisits a method means the hierarchy is cyclic and is reported as a
// contract violation instead of looping.
func (r *Resolver) OverrideChain(overriding model.Method, testVisibility bool) ([]model.Method, error) {
	chain, err := r.overrideChain(overriding, testVisibility)
	if err != nil {
		observability.QueriesTotal.WithLabelValues(opChain, observability.OutcomeError).Inc()
		return nil, err
	}
	outcome := observability.OutcomeFound
	if len(chain) == 0 {
		outcome = observability.OutcomeNone
	}
	observability.QueriesTotal.WithLabelValues(opChain, outcome).Inc()
	return chain, nil
}

// FindOverriddenMethodInHierarchy searches t and its supertypes, depth-first
// and superclass first, for the first method overriding could override.
func (r *Resolver) FindOverriddenMethodInHierarchy(t model.TypeID, overriding model.Method) (*model.Method, error) {
	if err := r.checkType(t); err != nil {
		return r.done(opInHierarchy, overriding, nil, err)
	}
	visited := newVisitedSet()
	res, err := r.searchHierarchy(t, overriding, visited)
	observability.TypesVisited.Observe(float64(visited.len()))
	return r.done(opInHierarchy, overriding, res, err)
}

// FindOverriddenMethodInType returns the first method declared by t that
// overriding could override. When several match, declaration order decides.
func (r *Resolver) FindOverriddenMethodInType(t model.TypeID, overriding model.Method) (*model.Method, error) {
	if err := r.checkType(t); err != nil {
		return r.done(opInType, overriding, nil, err)
	}
	res, err := r.findInType(t, overriding)
	return r.done(opInType, overriding, res, err)
}

// FindOverridingMethodInType returns the first method declared by t that
// overrides overridden. It neither filters on eligibility nor walks t's
// supertypes.
func (r *Resolver) FindOverridingMethodInType(t model.TypeID, overridden model.Method) (*model.Method, error) {
	if err := r.checkType(t); err != nil {
		return r.done(opOverriding, overridden, nil, err)
	}
	methods, err := r.methods(t)
	if err != nil {
		return r.done(opOverriding, overridden, nil, err)
	}
	for i := range methods {
		if IsSubsignature(methods[i], overridden) {
			return r.done(opOverriding, overridden, &methods[i], nil)
		}
	}
	return r.done(opOverriding, overridden, nil, nil)
}

func (r *Resolver) overrideChain(overriding model.Method, testVisibility bool) ([]model.Method, error) {
	if err := r.checkMethod(overriding); err != nil {
		return nil, err
	}

	seen := map[model.Method]struct{}{overriding: {}}
	var chain []model.Method
	current := overriding
	for IsOverridable(current) {
		next, err := r.findOverridden(current, testVisibility)
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		if _, dup := seen[*next]; dup {
			return nil, contractError("override chain revisits a method; the hierarchy is cyclic", *next)
		}
		seen[*next] = struct{}{}
		chain = append(chain, *next)
		current = *next
	}
	return chain, nil
}

// findOverridden expects an eligible method. The supertype fan-out shares one
// visited set, so every type is visited at most once per call; the declaring
// type is pre-marked so a cyclic hierarchy never yields overriding itself.
func (r *Resolver) findOverridden(overriding model.Method, testVisibility bool) (*model.Method, error) {
	supers, err := r.supertypes(overriding.DeclaringType)
	if err != nil {
		return nil, err
	}

	visited := newVisitedSet()
	visited.add(overriding.DeclaringType)
	defer func() { observability.TypesVisited.Observe(float64(visited.len() - 1)) }()

	for _, super := range supers {
		res, err := r.searchHierarchy(super, overriding, visited)
		if err != nil {
			return nil, err
		}
		if res == nil || res.Flags.IsPrivate() {
			continue
		}
		if testVisibility && !r.visibility.IsVisible(*res, r.queryContext(overriding)) {
			slog.Debug("overridden method not visible", "method", overriding.String(), "candidate", res.String())
			return nil, nil
		}
		return res, nil
	}
	return nil, nil
}

// searchHierarchy is a pre-order depth-first search from root. An explicit
// work stack replaces recursion; supertypes are pushed in reverse so they pop
// in declaration order, which reproduces the recursive visiting order exactly.
// A type's own methods are checked before any of its ancestors.
func (r *Resolver) searchHierarchy(root model.TypeID, overriding model.Method, visited visitedSet) (*model.Method, error) {
	stack := []model.TypeID{root}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !visited.add(t) {
			continue
		}

		res, err := r.findInType(t, overriding)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}

		supers, err := r.supertypes(t)
		if err != nil {
			return nil, err
		}
		for i := len(supers) - 1; i >= 0; i-- {
			stack = append(stack, supers[i])
		}
	}
	return nil, nil
}

func (r *Resolver) findInType(t model.TypeID, overriding model.Method) (*model.Method, error) {
	methods, err := r.methods(t)
	if err != nil {
		return nil, err
	}
	for i := range methods {
		if IsSubsignature(overriding, methods[i]) {
			return &methods[i], nil
		}
	}
	return nil, nil
}

func (r *Resolver) queryContext(overriding model.Method) model.TypeID {
	if r.focus != "" {
		return r.focus
	}
	return overriding.DeclaringType
}

func (r *Resolver) supertypes(t model.TypeID) ([]model.TypeID, error) {
	supers, err := r.hierarchy.Supertypes(t)
	if err != nil {
		return nil, backingError(err, "supertypes", t)
	}
	return supers, nil
}

func (r *Resolver) methods(t model.TypeID) ([]model.Method, error) {
	methods, err := r.hierarchy.Methods(t)
	if err != nil {
		return nil, backingError(err, "methods", t)
	}
	return methods, nil
}

func (r *Resolver) checkMethod(m model.Method) error {
	if r.hierarchy == nil {
		return errors.New(errors.CodeContractViolated, "resolver has no type hierarchy")
	}
	if m.DeclaringType == "" {
		return contractError("method has no declaring type", m)
	}
	return nil
}

func (r *Resolver) checkType(t model.TypeID) error {
	if r.hierarchy == nil {
		return errors.New(errors.CodeContractViolated, "resolver has no type hierarchy")
	}
	if t == "" {
		return errors.New(errors.CodeContractViolated, "type id must not be empty")
	}
	return nil
}

func (r *Resolver) done(op string, m model.Method, res *model.Method, err error) (*model.Method, error) {
	switch {
	case err != nil:
		observability.QueriesTotal.WithLabelValues(op, observability.OutcomeError).Inc()
		if errors.IsCode(err, errors.CodeModelBacking) {
			observability.ModelErrorsTotal.WithLabelValues(op).Inc()
		}
		slog.Debug("override query failed", "operation", op, "method", m.String(), "error", err)
		return nil, err
	case res == nil:
		observability.QueriesTotal.WithLabelValues(op, observability.OutcomeNone).Inc()
	default:
		observability.QueriesTotal.WithLabelValues(op, observability.OutcomeFound).Inc()
		slog.Debug("override query resolved", "operation", op, "method", m.String(), "result", res.String())
	}
	return res, nil
}

// backingError tags provider failures as MODEL_BACKING_ERROR unless the
// provider already classified them.
func backingError(err error, what string, t model.TypeID) error {
	if errors.HasCode(err) {
		return err
	}
	wrapped := errors.Wrap(err, errors.CodeModelBacking, "read "+what)
	return errors.AddContext(wrapped, errors.CtxType, string(t))
}

func contractError(msg string, m model.Method) error {
	return errors.AddContext(errors.New(errors.CodeContractViolated, msg), errors.CtxMethod, m.String())
}
