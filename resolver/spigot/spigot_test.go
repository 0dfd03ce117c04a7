package spigot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/maphist/mapping"
	"github.com/viant/maphist/resolver"
	"github.com/viant/maphist/version"
	"github.com/viant/maphist/workspace"
)

const (
	sampleManifest   = `{"name": "1.8.8", "refs": {"BuildData": "abc123"}}`
	sampleAttributes = `{"minecraftVersion": "1.8.8", "nmsVersion": "v1_8_R3",
		"classMappings": "bukkit-1.8.8-cl.csrg", "memberMappings": "bukkit-1.8.8-members.csrg"}`
	sampleClasses = `# This file is licensed under CC-BY.
# Attribution required.
aab net/minecraft/server/VERSION/EntityPig
aac net/minecraft/server/VERSION/EntityCow
xyz org/bukkit/craftbukkit/util/Waitable
`
	sampleMembers = `EntityPig a health
EntityPig b (F)V setHealth
org/bukkit/craftbukkit/util/Waitable c await
`
)

type upstream struct {
	requests map[string]*int32
}

func newUpstream(t *testing.T) (*upstream, Endpoints) {
	t.Helper()
	u := &upstream{requests: map[string]*int32{}}
	files := map[string]string{
		"/versions/1.8.8.json":          sampleManifest,
		"/raw/info.json":                sampleAttributes,
		"/raw/bukkit-1.8.8-cl.csrg":     sampleClasses,
		"/raw/bukkit-1.8.8-members.csrg": sampleMembers,
	}
	for path := range files {
		u.requests[path] = new(int32)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(u.requests[r.URL.Path], 1)
		_, _ = fmt.Fprint(w, content)
	}))
	t.Cleanup(server.Close)
	return u, Endpoints{
		VersionURL: server.URL + "/versions/%s.json",
		FileURL:    server.URL + "/raw/%s?at=%s",
	}
}

func (u *upstream) count(path string) int32 {
	if counter, ok := u.requests[path]; ok {
		return atomic.LoadInt32(counter)
	}
	return 0
}

func newVersionWorkspace(t *testing.T, id string) *workspace.VersionedWorkspace {
	t.Helper()
	root := workspace.NewRoot(t.TempDir(), workspace.Options{})
	return root.Version(version.New(id, version.Release, time.Now()))
}

func TestClassResolver(t *testing.T) {
	_, endpoints := newUpstream(t)
	ws := newVersionWorkspace(t, "1.8.8")
	source := NewSource(ws, resolver.NewFetcher(nil, nil), endpoints, nil)

	tree := mapping.NewTree()
	require.NoError(t, NewClassResolver(source).Accept(context.Background(), mapping.NewTreeVisitor(tree)))

	class, ok := tree.Class("aab")
	require.True(t, ok)
	name, _ := class.NameByNS(Namespace)
	assert.Equal(t, "net/minecraft/server/v1_8_R3/EntityPig", name,
		"the VERSION placeholder is substituted with the NMS version")

	bukkit, ok := tree.Class("xyz")
	require.True(t, ok)
	name, _ = bukkit.NameByNS(Namespace)
	assert.Equal(t, "org/bukkit/craftbukkit/util/Waitable", name)

	nms, ok := tree.Metadata(MetaNMSVersion)
	require.True(t, ok)
	assert.Equal(t, "v1_8_R3", nms)

	license, ok := tree.Metadata(mapping.LicenseKey(Namespace))
	require.True(t, ok)
	assert.Equal(t, `This file is licensed under CC-BY.\nAttribution required.`, license)
}

func TestMemberResolverAdaptiveLookup(t *testing.T) {
	_, endpoints := newUpstream(t)
	ws := newVersionWorkspace(t, "1.8.8")
	source := NewSource(ws, resolver.NewFetcher(nil, nil), endpoints, nil)

	ctx := context.Background()
	tree := mapping.NewTree()
	v := mapping.NewTreeVisitor(tree)
	require.NoError(t, NewClassResolver(source).Accept(ctx, v))
	require.NoError(t, NewMemberResolver(source, tree).Accept(ctx, v))

	pig, ok := tree.Class("aab")
	require.True(t, ok)
	field, ok := pig.Field("a")
	require.True(t, ok, "unprefixed owner resolves through the NMS-prefixed fallback")
	name, _ := field.NameByNS(Namespace)
	assert.Equal(t, "health", name)

	method, ok := pig.Method("b", "(F)V")
	require.True(t, ok)
	name, _ = method.NameByNS(Namespace)
	assert.Equal(t, "setHealth", name)

	waitable, ok := tree.Class("xyz")
	require.True(t, ok)
	field, ok = waitable.Field("c")
	require.True(t, ok, "fully-qualified owners still resolve after the mode adapted")
	name, _ = field.NameByNS(Namespace)
	assert.Equal(t, "await", name)
}

func TestMemberResolverRequiresClassNamespace(t *testing.T) {
	_, endpoints := newUpstream(t)
	ws := newVersionWorkspace(t, "1.8.8")
	source := NewSource(ws, resolver.NewFetcher(nil, nil), endpoints, nil)

	tree := mapping.NewTree()
	err := NewMemberResolver(source, tree).Accept(context.Background(), mapping.NewTreeVisitor(tree))
	var consistency *resolver.ConsistencyError
	require.ErrorAs(t, err, &consistency)
	assert.Contains(t, consistency.Message, Namespace)
	assert.Contains(t, consistency.Message, "1.8.8")
}

func TestCorruptCachedManifestRefetched(t *testing.T) {
	u, endpoints := newUpstream(t)
	ws := newVersionWorkspace(t, "1.8.8")
	ctx := context.Background()
	require.NoError(t, ws.Write(ctx, "spigot_manifest.json", []byte("{ not json")))

	source := NewSource(ws, resolver.NewFetcher(nil, nil), endpoints, nil)
	tree := mapping.NewTree()
	require.NoError(t, NewClassResolver(source).Accept(ctx, mapping.NewTreeVisitor(tree)))

	assert.NotEmpty(t, tree.Classes())
	assert.Equal(t, int32(1), u.count("/versions/1.8.8.json"), "the corrupt copy is replaced by one refetch")
}

func TestUncoveredVersionYieldsNothing(t *testing.T) {
	_, endpoints := newUpstream(t)
	ws := newVersionWorkspace(t, "1.2.5")
	source := NewSource(ws, resolver.NewFetcher(nil, nil), endpoints, nil)

	ctx := context.Background()
	tree := mapping.NewTree()
	v := mapping.NewTreeVisitor(tree)
	require.NoError(t, NewClassResolver(source).Accept(ctx, v))
	assert.Empty(t, tree.Classes())
	_, ok := tree.Namespace(Namespace)
	assert.False(t, ok, "an uncovered version declares no namespace")

	require.NoError(t, NewMemberResolver(source, tree).Accept(ctx, v),
		"missing member data is a gap, not a namespace-order violation")
	assert.Empty(t, tree.Classes())
}
