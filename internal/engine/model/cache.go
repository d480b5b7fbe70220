package model

// CachedHierarchy memoises Supertypes and Methods lookups of a slower backing
// Hierarchy (e.g. one reading from SQLite). Failed lookups are never cached,
// so a transient backing error is retried by the next query.
//
// The backing hierarchy must be an immutable snapshot for the lifetime of the
// cache; call Reset when swapping snapshots.
type CachedHierarchy struct {
	inner      Hierarchy
	supertypes *lruCache[TypeID, []TypeID]
	methods    *lruCache[TypeID, []Method]
}

var _ Hierarchy = (*CachedHierarchy)(nil)

func NewCachedHierarchy(inner Hierarchy, capacity int) *CachedHierarchy {
	return &CachedHierarchy{
		inner:      inner,
		supertypes: newLRUCache[TypeID, []TypeID](capacity),
		methods:    newLRUCache[TypeID, []Method](capacity),
	}
}

func (c *CachedHierarchy) Supertypes(t TypeID) ([]TypeID, error) {
	if cached, ok := c.supertypes.get(t); ok {
		return append([]TypeID(nil), cached...), nil
	}
	supers, err := c.inner.Supertypes(t)
	if err != nil {
		return nil, err
	}
	c.supertypes.put(t, append([]TypeID(nil), supers...))
	return supers, nil
}

func (c *CachedHierarchy) Methods(t TypeID) ([]Method, error) {
	if cached, ok := c.methods.get(t); ok {
		return append([]Method(nil), cached...), nil
	}
	methods, err := c.inner.Methods(t)
	if err != nil {
		return nil, err
	}
	c.methods.put(t, append([]Method(nil), methods...))
	return methods, nil
}

// Len returns the number of cached entries across both lookups.
func (c *CachedHierarchy) Len() int {
	return c.supertypes.len() + c.methods.len()
}

func (c *CachedHierarchy) Reset() {
	c.supertypes.clear()
	c.methods.clear()
}
