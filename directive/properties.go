package directive

import "slices"

// Properties is an insertion-ordered string map. The zero value is empty and
// ready to use.
type Properties struct {
	keys   []string
	values map[string]string
}

// NewProperties returns a Properties populated from kv pairs.
func NewProperties(kv ...string) Properties {
	var p Properties
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

// Get returns the value for key and whether it is set.
func (p Properties) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Set assigns value to key, keeping the original position of existing keys.
func (p *Properties) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Names returns the keys in insertion order.
func (p Properties) Names() []string {
	return slices.Clone(p.keys)
}

// Len returns the number of keys.
func (p Properties) Len() int {
	return len(p.keys)
}

// Merge copies every entry of other into p, overriding existing keys.
func (p *Properties) Merge(other Properties) {
	for _, k := range other.keys {
		p.Set(k, other.values[k])
	}
}

// Clone returns an independent copy of p.
func (p Properties) Clone() Properties {
	var c Properties
	c.Merge(p)
	return c
}
