package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emitSample replays a small two-namespace mapping through a visitor.
func emitSample(v Visitor) error {
	if err := v.BeginHeader(); err != nil {
		return err
	}
	if err := v.Namespaces(SourceNamespace, []string{"mojang", "spigot"}); err != nil {
		return err
	}
	if err := v.Metadata("mojang/license", "(c) Mojang AB"); err != nil {
		return err
	}
	if err := v.BeginContent(); err != nil {
		return err
	}
	if ok, err := v.BeginClass("a"); err != nil || !ok {
		return err
	}
	if err := v.DstName(0, "net/minecraft/world/entity/Pig"); err != nil {
		return err
	}
	if err := v.DstName(1, "EntityPig"); err != nil {
		return err
	}
	if ok, err := v.BeginField("b", "I"); err != nil || !ok {
		return err
	}
	if err := v.DstName(0, "health"); err != nil {
		return err
	}
	if ok, err := v.BeginMethod("c", "(I)V"); err != nil || !ok {
		return err
	}
	if err := v.DstName(0, "setHealth"); err != nil {
		return err
	}
	if ok, err := v.BeginParameter(0, ""); err != nil || !ok {
		return err
	}
	return v.DstName(0, "amount")
}

func TestTreeVisitorBuildsTree(t *testing.T) {
	tree := NewTree()
	require.NoError(t, Replay(NewTreeVisitor(tree), emitSample))

	assert.Equal(t, []string{"source", "mojang", "spigot"}, tree.Namespaces())

	class, ok := tree.Class("a")
	require.True(t, ok)
	name, _ := class.NameByNS("mojang")
	assert.Equal(t, "net/minecraft/world/entity/Pig", name)
	name, _ = class.NameByNS("spigot")
	assert.Equal(t, "EntityPig", name)

	field, ok := class.Field("b")
	require.True(t, ok)
	name, _ = field.NameByNS("mojang")
	assert.Equal(t, "health", name)

	method, ok := class.Method("c", "(I)V")
	require.True(t, ok)
	param, ok := method.Parameter(0)
	require.True(t, ok)
	name, _ = param.Name(tree.NamespaceID("mojang"))
	assert.Equal(t, "amount", name)

	license, ok := tree.Metadata("mojang/license")
	require.True(t, ok)
	assert.Equal(t, "(c) Mojang AB", license)
}

func TestTreeVisitorRejectsOutOfOrderEvents(t *testing.T) {
	v := NewTreeVisitor(NewTree())
	assert.Error(t, v.Namespaces(SourceNamespace, []string{"mojang"}), "namespaces before header")
	require.NoError(t, v.BeginHeader())
	assert.Error(t, v.BeginContent(), "content before namespaces")
	require.NoError(t, v.Namespaces(SourceNamespace, []string{"mojang"}))
	_, err := v.BeginClass("a")
	assert.Error(t, err, "class before content")
	require.NoError(t, v.BeginContent())
	assert.Error(t, v.DstName(0, "x"), "dst name without open element")
	_, err = v.BeginClass("a")
	require.NoError(t, err)
	assert.Error(t, v.DstName(3, "x"), "undeclared namespace index")
}

func TestTreeVisitorSharedAcrossProducers(t *testing.T) {
	tree := NewTree()
	v := NewTreeVisitor(tree)
	require.NoError(t, Replay(v, emitSample))

	// a second producer declaring only its own namespace cross-references the
	// classes the first pass created
	require.NoError(t, Replay(v, func(v Visitor) error {
		if err := v.BeginHeader(); err != nil {
			return err
		}
		if err := v.Namespaces("official", []string{"searge"}); err != nil {
			return err
		}
		if err := v.BeginContent(); err != nil {
			return err
		}
		if ok, err := v.BeginClass("a"); err != nil || !ok {
			return err
		}
		return v.DstName(0, "net/minecraft/entity/passive/EntityPig")
	}))

	class, ok := tree.Class("a")
	require.True(t, ok)
	name, _ := class.NameByNS("searge")
	assert.Equal(t, "net/minecraft/entity/passive/EntityPig", name)
	name, _ = class.NameByNS("mojang")
	assert.Equal(t, "net/minecraft/world/entity/Pig", name, "earlier namespaces survive later passes")
	assert.Len(t, tree.Classes(), 1)
}

func TestMultiPassReplay(t *testing.T) {
	passes := 0
	v := &recordingVisitor{next: NewTreeVisitor(NewTree()), replays: 1}
	require.NoError(t, Replay(v, func(v Visitor) error {
		passes++
		return emitSample(v)
	}))
	assert.Equal(t, 2, passes, "a visitor requesting one replay sees the sequence twice")
}

// recordingVisitor forwards everything and requests a fixed number of
// replays from End.
type recordingVisitor struct {
	next    Visitor
	replays int
}

func (r *recordingVisitor) BeginHeader() error { return r.next.BeginHeader() }
func (r *recordingVisitor) Namespaces(src string, dst []string) error {
	return r.next.Namespaces(src, dst)
}
func (r *recordingVisitor) BeginContent() error { return r.next.BeginContent() }
func (r *recordingVisitor) BeginClass(src string) (bool, error) {
	return r.next.BeginClass(src)
}
func (r *recordingVisitor) DstName(ns int, name string) error { return r.next.DstName(ns, name) }
func (r *recordingVisitor) DstDescriptor(ns int, desc string) error {
	return r.next.DstDescriptor(ns, desc)
}
func (r *recordingVisitor) BeginField(src, desc string) (bool, error) {
	return r.next.BeginField(src, desc)
}
func (r *recordingVisitor) BeginMethod(src, desc string) (bool, error) {
	return r.next.BeginMethod(src, desc)
}
func (r *recordingVisitor) BeginParameter(index int, src string) (bool, error) {
	return r.next.BeginParameter(index, src)
}
func (r *recordingVisitor) Metadata(key, value string) error { return r.next.Metadata(key, value) }
func (r *recordingVisitor) End() (bool, error) {
	if _, err := r.next.End(); err != nil {
		return false, err
	}
	if r.replays > 0 {
		r.replays--
		return true, nil
	}
	return false, nil
}

func TestNamespaceIsolation(t *testing.T) {
	// resolving with the spigot column filtered out must not alter any name
	// visible under the remaining namespaces
	full := NewTree()
	require.NoError(t, Replay(NewTreeVisitor(full), emitSample))

	filtered := NewTree()
	require.NoError(t, Replay(NewNamespaceFilter(NewTreeVisitor(filtered), "spigot"), emitSample))

	_, ok := filtered.Namespace("spigot")
	assert.False(t, ok)

	for _, class := range full.Classes() {
		counterpart, ok := filtered.Class(class.Source())
		require.True(t, ok)
		fullName, fullOK := class.NameByNS("mojang")
		gotName, gotOK := counterpart.NameByNS("mojang")
		assert.Equal(t, fullOK, gotOK)
		assert.Equal(t, fullName, gotName)
	}
}

func TestNamespaceFilterRejectsUndeclaredIndex(t *testing.T) {
	tree := NewTree()
	filter := NewNamespaceFilter(NewTreeVisitor(tree), "spigot")
	require.NoError(t, filter.BeginHeader())
	require.NoError(t, filter.Namespaces(SourceNamespace, []string{"mojang", "spigot"}))
	require.NoError(t, filter.BeginContent())
	ok, err := filter.BeginClass("a")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Error(t, filter.DstName(5, "x"), "an undeclared index surfaces as an error, not a panic")
	assert.Error(t, filter.DstName(-1, "x"))
}

func TestFingerprint(t *testing.T) {
	a := NewTree()
	require.NoError(t, Replay(NewTreeVisitor(a), emitSample))
	b := NewTree()
	// register namespaces in a different order before replay
	b.NamespaceID("spigot")
	b.NamespaceID("mojang")
	require.NoError(t, Replay(NewTreeVisitor(b), emitSample))

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB, "fingerprint is independent of registration order")

	class, _ := b.Class("a")
	require.NoError(t, class.SetName(b.NamespaceID("mojang"), "net/minecraft/world/entity/Cow"))
	fpC, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpC, "renaming changes the fingerprint")
}
