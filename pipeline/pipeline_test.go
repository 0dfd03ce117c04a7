package pipeline

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/maphist/ancestry"
	"github.com/viant/maphist/resolver/spigot"
)

// upstream simulates the version manifest, detail manifests and mapping
// files of a three-version history: two mapped versions and one the vendor
// published nothing for.
type upstream struct {
	server   *httptest.Server
	mappings map[string]string
}

func digest(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{
		mappings: map[string]string{
			"1.0.1": "com.example.Pig -> a:\n    int health -> b\n",
			"1.0.2": "com.example.Pig -> q:\n    int health -> r\n",
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(u.manifest())
	})
	mux.HandleFunc("/detail/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/detail/") : len(r.URL.Path)-len(".json")]
		_, _ = w.Write(u.detail(id))
	})
	mux.HandleFunc("/mappings/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/mappings/") : len(r.URL.Path)-len(".txt")]
		content, ok := u.mappings[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(content))
	})
	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) detail(id string) []byte {
	doc := map[string]interface{}{"id": id, "downloads": map[string]interface{}{}}
	if content, ok := u.mappings[id]; ok {
		doc["downloads"] = map[string]interface{}{
			"server_mappings": map[string]interface{}{
				"url":  u.server.URL + "/mappings/" + id + ".txt",
				"sha1": digest([]byte(content)),
				"size": len(content),
			},
		}
	}
	data, _ := json.Marshal(doc)
	return data
}

func (u *upstream) manifest() []byte {
	versions := make([]map[string]interface{}, 0)
	// newest first, as the upstream publishes it
	for _, id := range []string{"1.0.2", "1.0.1", "1.0.0"} {
		versions = append(versions, map[string]interface{}{
			"id":          id,
			"type":        "release",
			"url":         u.server.URL + "/detail/" + id + ".json",
			"sha1":        digest(u.detail(id)),
			"releaseTime": fmt.Sprintf("2021-01-0%cT00:00:00Z", id[len(id)-1]+1),
		})
	}
	data, _ := json.Marshal(map[string]interface{}{
		"latest":   map[string]string{"release": "1.0.2"},
		"versions": versions,
	})
	return data
}

func testConfig(t *testing.T, u *upstream) Config {
	t.Helper()
	config := DefaultConfig()
	config.WorkspaceRoot = t.TempDir()
	config.ManifestURL = u.server.URL + "/manifest.json"
	config.Versions = VersionsConfig{Oldest: "1.0.0", Newest: "1.0.2"}
	config.TrustedNamespaces = []string{"mojang"}
	config.Concurrency = 2
	config.Resolvers = ResolverConfig{Mojang: true}
	require.NoError(t, config.Validate())
	return config
}

func TestRunResolvesAndChains(t *testing.T) {
	u := newUpstream(t)
	p := New(testConfig(t, u), WithHTTPClient(u.server.Client()))

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Versions, 3)
	assert.Equal(t, "1.0.0", result.Versions[0].Version.ID, "results follow release order")
	assert.True(t, result.Versions[0].Empty, "an uncovered version is flagged, not an error")
	assert.False(t, result.Versions[1].Empty)
	assert.Contains(t, result.Versions[1].Namespaces, "mojang")
	assert.True(t, result.Versions[1].Tree.Frozen())

	require.Len(t, result.Classes.Nodes(), 1, "the class keeps one identity across the obfuscation change")
	node := result.Classes.Nodes()[0]
	require.Len(t, node.Entries(), 2)
	assert.Equal(t, "a", node.First().Element.Source())
	assert.Equal(t, "q", node.Last().Element.Source())

	fields, err := ancestry.Fields(node, ancestry.Options{TrustedNamespaces: []string{"mojang"}})
	require.NoError(t, err)
	require.Len(t, fields.Nodes(), 1)
}

func TestRunSurvivesSourceWithoutCoverage(t *testing.T) {
	// the spigot upstream covers none of the selected versions; every fetch
	// 404s while mojang resolves normally
	u := newUpstream(t)
	config := testConfig(t, u)
	config.Resolvers.Spigot = true
	endpoints := DefaultEndpoints()
	endpoints.Spigot = spigot.Endpoints{
		VersionURL: u.server.URL + "/spigot/versions/%s.json",
		FileURL:    u.server.URL + "/spigot/raw/%s?at=%s",
	}
	p := New(config, WithHTTPClient(u.server.Client()), WithEndpoints(endpoints))

	result, err := p.Run(context.Background())
	require.NoError(t, err, "a source without coverage is a gap, not a run failure")
	require.Len(t, result.Versions, 3)
	assert.Contains(t, result.Versions[1].Namespaces, "mojang")
	assert.NotContains(t, result.Versions[1].Namespaces, "spigot")
	require.Len(t, result.Classes.Nodes(), 1)
}

func TestRunIsIdempotentAgainstWarmCache(t *testing.T) {
	u := newUpstream(t)
	config := testConfig(t, u)

	run := func() *Result {
		p := New(config, WithHTTPClient(u.server.Client()))
		result, err := p.Run(context.Background())
		require.NoError(t, err)
		return result
	}

	first, second := run(), run()
	require.Len(t, second.Classes.Nodes(), len(first.Classes.Nodes()))
	assert.Equal(t,
		first.Classes.Nodes()[0].Last().Element.Source(),
		second.Classes.Nodes()[0].Last().Element.Source())
}

func TestRunExplicitVersionsAreOrdered(t *testing.T) {
	u := newUpstream(t)
	config := testConfig(t, u)
	config.Versions = VersionsConfig{Explicit: []string{"1.0.2", "1.0.1"}}
	p := New(config, WithHTTPClient(u.server.Client()))

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Versions, 2)
	assert.Equal(t, "1.0.1", result.Versions[0].Version.ID)
	assert.Equal(t, "1.0.2", result.Versions[1].Version.ID)
}

func TestRunCorruptManifestIsRefetched(t *testing.T) {
	u := newUpstream(t)
	config := testConfig(t, u)
	p := New(config, WithHTTPClient(u.server.Client()))

	// poison the shared cache before the run
	root := config.WorkspaceRoot
	require.NoError(t, writeFile(t, root+"/shared/"+manifestKey, "not json"))

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Versions, 3)
}

func writeFile(t *testing.T, path, content string) error {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func TestLoadConfigRejectsEmptySelection(t *testing.T) {
	config := DefaultConfig()
	assert.Error(t, config.Validate())
	config.Versions.Explicit = []string{"1.0.1"}
	assert.NoError(t, config.Validate())
}
