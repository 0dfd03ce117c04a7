// Package ancestry tracks element identity across versions. Per-version
// mapping elements are chained into nodes: one node is one identity, its
// entries the versions the identity was observed in. Matching trusts the
// configured namespaces in strict priority order; an identity unmatched in a
// version closes and a later reappearance starts a fresh node.
package ancestry

import (
	"github.com/viant/maphist/version"
)

// Element is the part of a mapping element the matcher reads. All mapping
// element kinds satisfy it.
type Element interface {
	NameByNS(ns string) (string, bool)
}

// described is the additional surface of member elements carrying
// descriptors.
type described interface {
	DescriptorByNS(ns string) string
}

// Entry is one observation of an identity: the element it resolved to in one
// version.
type Entry[T Element] struct {
	Version *version.Version
	Element T
}

// Node is one identity: its observations in version order.
type Node[T Element] struct {
	index   int
	entries []Entry[T]
	// lastKeys holds the most recent identity key per trusted namespace,
	// carried even across versions where the namespace had no coverage.
	lastKeys map[string]string
	closed   bool
}

// Index returns the position of the node within its ancestry tree. Stable
// across rebuilds of the same input.
func (n *Node[T]) Index() int { return n.index }

// Entries returns the observations in version order.
func (n *Node[T]) Entries() []Entry[T] { return n.entries }

// First returns the oldest observation.
func (n *Node[T]) First() Entry[T] { return n.entries[0] }

// Last returns the newest observation.
func (n *Node[T]) Last() Entry[T] { return n.entries[len(n.entries)-1] }

// LastKnown returns the last identity key observed under a namespace.
func (n *Node[T]) LastKnown(ns string) (string, bool) {
	key, ok := n.lastKeys[ns]
	return key, ok
}

// Closed reports whether the identity went unmatched in a later version.
func (n *Node[T]) Closed() bool { return n.closed }

// Tree is the ancestry of one element kind: every identity ever observed.
type Tree[T Element] struct {
	nodes []*Node[T]
}

// Nodes returns every identity in birth order.
func (t *Tree[T]) Nodes() []*Node[T] { return t.nodes }

// ByName returns the node whose newest observation carries the given name
// under a namespace.
func (t *Tree[T]) ByName(ns, name string) (*Node[T], bool) {
	for _, node := range t.nodes {
		if candidate, ok := node.Last().Element.NameByNS(ns); ok && candidate == name {
			return node, true
		}
	}
	return nil, false
}

// ByNameDesc returns the node whose newest observation carries the given
// name and descriptor under a namespace. Only member trees carry
// descriptors.
func (t *Tree[T]) ByNameDesc(ns, name, desc string) (*Node[T], bool) {
	for _, node := range t.nodes {
		element := node.Last().Element
		candidate, ok := element.NameByNS(ns)
		if !ok || candidate != name {
			continue
		}
		member, ok := any(element).(described)
		if !ok {
			continue
		}
		if member.DescriptorByNS(ns) == desc {
			return node, true
		}
	}
	return nil, false
}

// ConsistencyError reports two elements of one version claiming the same
// identity; it indicates corrupt input rather than a recoverable condition.
type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string {
	return "ancestry consistency violation: " + e.Message
}
