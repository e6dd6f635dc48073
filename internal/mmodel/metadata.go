package mmodel

// Metadata is a free-form attribute bag attached to an aggregate, mirroring
// the teacher's organization Metadata sidecar. It is carried on the
// aggregates in memory and in JSON; no repository in this module persists it.
type Metadata map[string]any

// IsEmpty reports whether no metadata was set.
func (m Metadata) IsEmpty() bool {
	return len(m) == 0
}
