package mws

import "strings"

// Value is a request parameter value: either a single string or a list.
type Value struct {
	scalar string
	list   []string
	isList bool
}

// String returns a scalar value, or the list joined with commas.
func (v Value) String() string {
	if v.isList {
		return strings.Join(v.list, ",")
	}
	return v.scalar
}

// List returns the value as a list. A scalar becomes a one-element list.
func (v Value) List() []string {
	if v.isList {
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out
	}
	return []string{v.scalar}
}

// IsList reports whether the value was set as a list.
func (v Value) IsList() bool {
	return v.isList
}

// Params is an ordered request parameter map. Keys keep their first
// insertion order; setting an existing key replaces its value in place.
type Params struct {
	keys   []string
	values map[string]Value
}

// NewParams creates an empty parameter map.
func NewParams() *Params {
	return &Params{values: make(map[string]Value)}
}

func (p *Params) set(key string, v Value) *Params {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
	return p
}

// Set stores a scalar value under key.
func (p *Params) Set(key, value string) *Params {
	return p.set(key, Value{scalar: value})
}

// SetList stores a copy of values under key.
func (p *Params) SetList(key string, values []string) *Params {
	list := make([]string, len(values))
	copy(list, values)
	return p.set(key, Value{list: list, isList: true})
}

// Get returns the value under key.
func (p *Params) Get(key string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p *Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len returns the number of keys.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Map returns a plain map view: strings for scalars, []string for lists.
func (p *Params) Map() map[string]any {
	out := make(map[string]any, p.Len())
	for _, k := range p.Keys() {
		v := p.values[k]
		if v.isList {
			out[k] = v.List()
		} else {
			out[k] = v.scalar
		}
	}
	return out
}
