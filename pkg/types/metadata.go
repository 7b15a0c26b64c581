package types

// Metadata is a free-form string bag attached to payment records.
type Metadata map[string]string

// Clone returns a copy that is safe to mutate.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge copies other into a clone of m; keys in other win.
func (m Metadata) Merge(other Metadata) Metadata {
	out := m.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}
