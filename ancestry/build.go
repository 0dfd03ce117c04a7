package ancestry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/viant/maphist/classfile"
	"github.com/viant/maphist/mapping"
	"github.com/viant/maphist/version"
)

// Options configure identity matching.
type Options struct {
	// TrustedNamespaces are consulted in order; the first namespace where
	// the element has a name and an open node carries the same name decides
	// the match.
	TrustedNamespaces []string
	// IndexNamespace, when set, names a namespace whose values are node
	// indices from a prior ancestry generation; elements carrying one map
	// straight onto that node.
	IndexNamespace string
	// PartialDescriptors matches methods on parameter types only, ignoring
	// the return type. Bridges versions where a return type was widened.
	PartialDescriptors bool
}

// VersionedTree pairs a resolved mapping tree with its version.
type VersionedTree struct {
	Version *version.Version
	Tree    *mapping.Tree
}

// keyFunc produces the identity key of an element under one namespace.
type keyFunc[T Element] func(element T, ns string) (string, bool)

// pass is the element set of one version.
type pass[T Element] struct {
	version  *version.Version
	elements []T
}

// Classes builds the class ancestry over version-ordered trees. Inner
// classes are matched after their outer class within each version, so an
// outer rename never splits the inner identity.
func Classes(trees []VersionedTree, opts Options) (*Tree[*mapping.Class], error) {
	passes := make([]pass[*mapping.Class], 0, len(trees))
	for _, entry := range trees {
		classes := append([]*mapping.Class(nil), entry.Tree.Classes()...)
		sort.Slice(classes, func(i, j int) bool {
			di, dj := strings.Count(classes[i].Source(), "$"), strings.Count(classes[j].Source(), "$")
			if di != dj {
				return di < dj
			}
			return classes[i].Source() < classes[j].Source()
		})
		passes = append(passes, pass[*mapping.Class]{version: entry.Version, elements: classes})
	}
	key := func(class *mapping.Class, ns string) (string, bool) {
		return class.NameByNS(ns)
	}
	return build(passes, opts, key)
}

// Fields builds the field ancestry within one class identity. Fields are
// matched by name and descriptor under each trusted namespace.
func Fields(class *Node[*mapping.Class], opts Options) (*Tree[*mapping.Field], error) {
	passes := make([]pass[*mapping.Field], 0, len(class.Entries()))
	for _, entry := range class.Entries() {
		passes = append(passes, pass[*mapping.Field]{version: entry.Version, elements: entry.Element.Fields()})
	}
	key := func(field *mapping.Field, ns string) (string, bool) {
		name, ok := field.NameByNS(ns)
		if !ok {
			return "", false
		}
		return name + "\x00" + field.DescriptorByNS(ns), true
	}
	return build(passes, opts, key)
}

// Methods builds the method ancestry within one class identity. Methods are
// matched by name and descriptor; constructors, whose name never varies, by
// descriptor alone.
func Methods(class *Node[*mapping.Class], opts Options) (*Tree[*mapping.Method], error) {
	passes := make([]pass[*mapping.Method], 0, len(class.Entries()))
	for _, entry := range class.Entries() {
		passes = append(passes, pass[*mapping.Method]{version: entry.Version, elements: entry.Element.Methods()})
	}
	key := func(method *mapping.Method, ns string) (string, bool) {
		desc := method.DescriptorByNS(ns)
		if opts.PartialDescriptors {
			desc = classfile.StripReturn(desc)
		}
		if method.Source() == "<init>" {
			return "<init>\x00" + desc, true
		}
		name, ok := method.NameByNS(ns)
		if !ok {
			return "", false
		}
		return name + "\x00" + desc, true
	}
	return build(passes, opts, key)
}

// build runs the matcher: one pass per version, each element claiming an
// open node by trusted-namespace key equality or starting a new one. Open
// nodes left unclaimed in a pass close for good.
func build[T Element](passes []pass[T], opts Options, key keyFunc[T]) (*Tree[T], error) {
	t := &Tree[T]{}
	// open-node lookup per namespace, keyed by the node's last-known key
	index := map[string]map[string]*Node[T]{}

	deindex := func(node *Node[T]) {
		for ns, k := range node.lastKeys {
			if index[ns][k] == node {
				delete(index[ns], k)
			}
		}
	}

	for _, p := range passes {
		claimed := make(map[*Node[T]]T)
		for _, element := range p.elements {
			node, err := match(t, index, element, opts, key)
			if err != nil {
				return nil, err
			}
			if node == nil {
				node = &Node[T]{index: len(t.nodes), lastKeys: map[string]string{}}
				t.nodes = append(t.nodes, node)
			}
			if prev, ok := claimed[node]; ok {
				return nil, &ConsistencyError{Message: fmt.Sprintf(
					"version %v: %v and %v claim one identity",
					p.version.ID, describe(prev), describe(element))}
			}
			claimed[node] = element
			// an index-namespace claim may revive a node closed in a prior
			// generation; key-equality matching never reaches closed nodes
			node.closed = false

			deindex(node)
			node.entries = append(node.entries, Entry[T]{Version: p.version, Element: element})
			for _, ns := range opts.TrustedNamespaces {
				if k, ok := key(element, ns); ok {
					node.lastKeys[ns] = k
					byKey, ok := index[ns]
					if !ok {
						byKey = map[string]*Node[T]{}
						index[ns] = byKey
					}
					byKey[k] = node
				}
			}
		}
		for _, node := range t.nodes {
			if node.closed {
				continue
			}
			if _, ok := claimed[node]; !ok {
				node.closed = true
				deindex(node)
			}
		}
	}
	return t, nil
}

// match finds the node an element continues, nil when it is a birth.
func match[T Element](t *Tree[T], index map[string]map[string]*Node[T], element T, opts Options, key keyFunc[T]) (*Node[T], error) {
	if opts.IndexNamespace != "" {
		if name, ok := element.NameByNS(opts.IndexNamespace); ok {
			idx, err := strconv.Atoi(name)
			if err != nil || idx < 0 || idx >= len(t.nodes) {
				return nil, fmt.Errorf("element %v carries invalid node index %q", describe(element), name)
			}
			return t.nodes[idx], nil
		}
	}
	for _, ns := range opts.TrustedNamespaces {
		k, ok := key(element, ns)
		if !ok {
			continue
		}
		if node, ok := index[ns][k]; ok {
			return node, nil
		}
	}
	return nil, nil
}

func describe[T Element](element T) string {
	name, _ := element.NameByNS(mapping.SourceNamespace)
	if member, ok := any(element).(described); ok {
		return name + member.DescriptorByNS(mapping.SourceNamespace)
	}
	return name
}
