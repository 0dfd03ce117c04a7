package version

import (
	"encoding/json"
	"fmt"
	"time"
)

// Manifest is the parsed upstream version manifest. Versions are held oldest
// first regardless of the upstream document order.
type Manifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	}
	Versions []*Version

	byID map[string]*Version
}

type manifestDoc struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []struct {
		ID          string    `json:"id"`
		Type        Type      `json:"type"`
		URL         string    `json:"url"`
		SHA1        string    `json:"sha1"`
		ReleaseTime time.Time `json:"releaseTime"`
	} `json:"versions"`
}

// ParseManifest decodes an upstream version manifest document. The upstream
// lists versions newest first; the parsed manifest reverses them so that the
// ordinal of a version equals its position in release order.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc manifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse version manifest: %w", err)
	}
	m := &Manifest{byID: make(map[string]*Version, len(doc.Versions))}
	m.Latest.Release = doc.Latest.Release
	m.Latest.Snapshot = doc.Latest.Snapshot
	m.Versions = make([]*Version, 0, len(doc.Versions))
	for i := len(doc.Versions) - 1; i >= 0; i-- {
		entry := doc.Versions[i]
		v := &Version{
			ID:          entry.ID,
			Type:        entry.Type,
			ReleaseTime: entry.ReleaseTime,
			DetailURL:   entry.URL,
			DetailSHA1:  entry.SHA1,
			ordinal:     len(m.Versions),
		}
		if _, ok := m.byID[v.ID]; ok {
			return nil, fmt.Errorf("duplicate version %q in manifest", v.ID)
		}
		m.Versions = append(m.Versions, v)
		m.byID[v.ID] = v
	}
	return m, nil
}

// ByID returns the manifest entry for the given version id.
func (m *Manifest) ByID(id string) (*Version, bool) {
	v, ok := m.byID[id]
	return v, ok
}

// Range returns the manifest versions between oldest and newest inclusive,
// ordered oldest first. Unknown ids or an inverted range are errors.
func (m *Manifest) Range(oldestID, newestID string) ([]*Version, error) {
	oldest, ok := m.byID[oldestID]
	if !ok {
		return nil, fmt.Errorf("unknown version %q", oldestID)
	}
	newest, ok := m.byID[newestID]
	if !ok {
		return nil, fmt.Errorf("unknown version %q", newestID)
	}
	if newest.ordinal < oldest.ordinal {
		return nil, fmt.Errorf("version %q is older than %q", newestID, oldestID)
	}
	return m.Versions[oldest.ordinal : newest.ordinal+1], nil
}

// Detail is the parsed per-version detail manifest, reduced to the downloads
// relevant to mapping resolution.
type Detail struct {
	ID        string              `json:"id"`
	Downloads map[string]Download `json:"downloads"`
}

// Download describes one downloadable artifact of a version.
type Download struct {
	URL  string `json:"url"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
}

// Well-known download keys within a version detail manifest.
const (
	DownloadServer         = "server"
	DownloadServerMappings = "server_mappings"
)

// ParseDetail decodes a per-version detail manifest document.
func ParseDetail(data []byte) (*Detail, error) {
	var detail Detail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("failed to parse version detail: %w", err)
	}
	return &detail, nil
}

// Download returns the named download entry, if published for this version.
func (d *Detail) Download(name string) (Download, bool) {
	dl, ok := d.Downloads[name]
	return dl, ok
}
