// Package mapping holds the per-version multi-namespace mapping model: a tree
// of classes, fields, methods and parameters, each carrying one invariant
// source name plus zero-or-more destination names across dynamically
// registered namespaces, and free-form string metadata at tree or element
// scope. Trees are populated through the visitor protocol in visitor.go and
// frozen before they are handed to consumers.
package mapping

import (
	"fmt"
	"sort"
)

// SourceNamespace is the canonical name of the anchor namespace holding the
// invariant source (usually obfuscated) names. It is always registered with
// namespace id 0.
const SourceNamespace = "source"

// Reserved tree-level metadata key suffixes; the full key is "<ns>/license"
// and "<ns>/license_source".
const (
	MetaLicense       = "license"
	MetaLicenseSource = "license_source"
)

// LicenseKey returns the tree metadata key holding the captured license text
// of a namespace.
func LicenseKey(ns string) string { return ns + "/" + MetaLicense }

// LicenseSourceKey returns the tree metadata key holding the origin URL of a
// namespace's license text.
func LicenseSourceKey(ns string) string { return ns + "/" + MetaLicenseSource }

// Tree is one version's unified mapping model.
type Tree struct {
	namespaces []string
	nsIndex    map[string]int

	classes    []*Class
	classIndex map[string]*Class
	// dstIndex resolves a class by its destination name within one namespace.
	dstIndex map[int]map[string]*Class

	metadata map[string]string
	frozen   bool
}

// NewTree creates an empty tree with only the source namespace registered.
func NewTree() *Tree {
	t := &Tree{
		nsIndex:    map[string]int{SourceNamespace: 0},
		namespaces: []string{SourceNamespace},
		classIndex: make(map[string]*Class),
		dstIndex:   make(map[int]map[string]*Class),
		metadata:   make(map[string]string),
	}
	return t
}

// NamespaceID returns the id of a namespace, registering it when absent.
// Namespace ids are stable for the tree lifetime once assigned.
func (t *Tree) NamespaceID(name string) int {
	if id, ok := t.nsIndex[name]; ok {
		return id
	}
	id := len(t.namespaces)
	t.namespaces = append(t.namespaces, name)
	t.nsIndex[name] = id
	return id
}

// Namespace looks up a namespace id by name without registering it.
func (t *Tree) Namespace(name string) (int, bool) {
	id, ok := t.nsIndex[name]
	return id, ok
}

// NamespaceName returns the name registered under the given id.
func (t *Tree) NamespaceName(id int) (string, bool) {
	if id < 0 || id >= len(t.namespaces) || t.namespaces[id] == "" {
		return "", false
	}
	return t.namespaces[id], true
}

// Namespaces enumerates the registered namespace names in id order, skipping
// pruned columns.
func (t *Tree) Namespaces() []string {
	result := make([]string, 0, len(t.namespaces))
	for _, name := range t.namespaces {
		if name != "" {
			result = append(result, name)
		}
	}
	return result
}

// PruneNamespace removes a namespace column: its registration is tombstoned
// and every destination name under it is dropped. Pruning the source
// namespace or an unregistered name is a no-op.
func (t *Tree) PruneNamespace(name string) error {
	return t.pruneNamespace(name)
}

func (t *Tree) pruneNamespace(name string) error {
	if t.frozen {
		return errFrozen
	}
	id, ok := t.nsIndex[name]
	if !ok || id == 0 {
		return nil
	}
	delete(t.nsIndex, name)
	t.namespaces[id] = ""
	delete(t.dstIndex, id)
	for _, class := range t.classes {
		class.clearNamespace(id)
	}
	return nil
}

// Classes enumerates the classes of the tree in visit order.
func (t *Tree) Classes() []*Class {
	return t.classes
}

// Class returns the class with the given source name.
func (t *Tree) Class(src string) (*Class, bool) {
	class, ok := t.classIndex[src]
	return class, ok
}

// ClassByName resolves a class by its destination name within a namespace.
// Namespace id 0 resolves by source name.
func (t *Tree) ClassByName(nsID int, name string) (*Class, bool) {
	if nsID == 0 {
		return t.Class(name)
	}
	byName, ok := t.dstIndex[nsID]
	if !ok {
		return nil, false
	}
	class, ok := byName[name]
	return class, ok
}

// AddClass returns the class with the given source name, creating it when
// absent. Most callers build trees through the visitor protocol; direct
// construction serves analysis and tests.
func (t *Tree) AddClass(src string) (*Class, error) {
	return t.addClass(src)
}

// addClass returns the class with the given source name, creating it when
// absent. Two resolvers visiting the same source name share one element so a
// later namespace lands on the element an earlier resolver created.
func (t *Tree) addClass(src string) (*Class, error) {
	if t.frozen {
		return nil, errFrozen
	}
	if class, ok := t.classIndex[src]; ok {
		return class, nil
	}
	class := &Class{element: element{src: src}, tree: t}
	t.classes = append(t.classes, class)
	t.classIndex[src] = class
	return class, nil
}

// RemoveClass detaches a class from the tree.
func (t *Tree) RemoveClass(class *Class) error {
	return t.removeClass(class)
}

func (t *Tree) removeClass(class *Class) error {
	if t.frozen {
		return errFrozen
	}
	if _, ok := t.classIndex[class.src]; !ok {
		return nil
	}
	delete(t.classIndex, class.src)
	for nsID := range t.dstIndex {
		if name, ok := class.Name(nsID); ok {
			t.unindexDstName(nsID, name, class)
		}
	}
	for i, candidate := range t.classes {
		if candidate == class {
			t.classes = append(t.classes[:i], t.classes[i+1:]...)
			break
		}
	}
	return nil
}

func (t *Tree) indexDstName(nsID int, name string, class *Class) {
	byName, ok := t.dstIndex[nsID]
	if !ok {
		byName = make(map[string]*Class)
		t.dstIndex[nsID] = byName
	}
	byName[name] = class
}

func (t *Tree) unindexDstName(nsID int, name string, class *Class) {
	if byName, ok := t.dstIndex[nsID]; ok && byName[name] == class {
		delete(byName, name)
	}
}

// SetMetadata attaches a tree-scope metadata value.
func (t *Tree) SetMetadata(key, value string) error {
	if t.frozen {
		return errFrozen
	}
	t.metadata[key] = value
	return nil
}

// Metadata returns a tree-scope metadata value.
func (t *Tree) Metadata(key string) (string, bool) {
	value, ok := t.metadata[key]
	return value, ok
}

// MetadataKeys enumerates the tree-scope metadata keys in sorted order.
func (t *Tree) MetadataKeys() []string {
	keys := make([]string, 0, len(t.metadata))
	for key := range t.metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Freeze marks the tree read-only. Any later mutation fails with an error.
func (t *Tree) Freeze() {
	t.frozen = true
}

// Frozen reports whether the tree has been frozen.
func (t *Tree) Frozen() bool {
	return t.frozen
}

var errFrozen = fmt.Errorf("mapping tree is frozen")
