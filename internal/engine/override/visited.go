package override

import "overrides/internal/engine/model"

// visitedSet records the types one traversal has already processed. It is
// created per public call and never shared between calls.
type visitedSet map[model.TypeID]struct{}

func newVisitedSet() visitedSet {
	return make(visitedSet)
}

// add marks t as visited and reports whether it was new.
func (v visitedSet) add(t model.TypeID) bool {
	if _, ok := v[t]; ok {
		return false
	}
	v[t] = struct{}{}
	return true
}

func (v visitedSet) len() int { return len(v) }
