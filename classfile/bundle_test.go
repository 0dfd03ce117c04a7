package classfile

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestArchiveClasses(t *testing.T) {
	jar := buildZip(t, map[string][]byte{
		"a.class":                  sampleClass(),
		"net/minecraft/b.class":    {0x01},
		"assets/logo.png":          {0x02},
		"META-INF/x/ignored.class": {0x03},
	})

	archive, err := NewArchive(jar)
	require.NoError(t, err)

	seen := map[string]int{}
	require.NoError(t, archive.Classes(func(name string, data []byte) error {
		seen[name] = len(data)
		return nil
	}))
	assert.Equal(t, map[string]int{"a": len(sampleClass()), "net/minecraft/b": 1}, seen)
}

func TestArchiveUnwrapsBundle(t *testing.T) {
	inner := buildZip(t, map[string][]byte{"a.class": sampleClass()})
	outer := buildZip(t, map[string][]byte{
		"META-INF/versions.list":              []byte("f00\t1.20.1\tserver-1.20.1.jar\n"),
		"META-INF/versions/server-1.20.1.jar": inner,
		"net/minecraft/bundler/Main.class":    {0x04},
	})

	archive, err := NewArchive(outer)
	require.NoError(t, err)

	var names []string
	require.NoError(t, archive.Classes(func(name string, data []byte) error {
		names = append(names, name)
		return nil
	}))
	assert.Equal(t, []string{"a"}, names, "bundler wrapper classes must not leak through")
}

func TestArchiveEntryHistoricalNames(t *testing.T) {
	jar := buildZip(t, map[string][]byte{"config/joined.tsrg": []byte("tsrg2 obf srg")})

	archive, err := NewArchive(jar)
	require.NoError(t, err)

	data, err := archive.Entry("joined.tsrg", "config/joined.tsrg")
	require.NoError(t, err)
	assert.Equal(t, "tsrg2 obf srg", string(data))

	_, err = archive.Entry("joined.srg")
	assert.Error(t, err)
}
