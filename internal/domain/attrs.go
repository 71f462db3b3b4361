package domain

// Attributes is an ordered set of metadata entries attached to a field or
// dataset. Values are restricted to the types the NetCDF classic container
// can hold: string, []float64, and []int32. Order is preserved so a
// serialized dataset lists attributes the way its source did.
type Attributes struct {
	keys   []string
	values map[string]any
}

// NewAttributes creates an empty attribute set.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]any)}
}

// Set adds or replaces an entry. New keys append to the order; replacing an
// existing key keeps its position.
func (a *Attributes) Set(key string, value any) {
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns the value for key and whether it was present.
func (a *Attributes) Get(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether key is present.
func (a *Attributes) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// Delete removes an entry if present.
func (a *Attributes) Delete(key string) {
	if _, ok := a.values[key]; !ok {
		return
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

// String returns the value for key if present and a string, else "".
func (a *Attributes) String(key string) string {
	if s, ok := a.values[key].(string); ok {
		return s
	}
	return ""
}

// Keys returns the attribute keys in insertion order. The slice is a copy.
func (a *Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of entries.
func (a *Attributes) Len() int { return len(a.keys) }

// Copy returns an independent attribute set with the same entries and order.
// Slice values are shared; attribute values are treated as immutable.
func (a *Attributes) Copy() *Attributes {
	out := NewAttributes()
	for _, k := range a.keys {
		out.Set(k, a.values[k])
	}
	return out
}

// Merge copies every entry of other into a, overriding duplicate keys. Keys
// new to a append in other's order, matching the way source dataset
// attributes are layered onto individual fields.
func (a *Attributes) Merge(other *Attributes) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		a.Set(k, other.values[k])
	}
}
