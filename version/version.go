package version

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// Type classifies a release channel as published by the upstream manifest.
type Type string

const (
	Release  Type = "release"
	Snapshot Type = "snapshot"
	OldAlpha Type = "old_alpha"
	OldBeta  Type = "old_beta"
)

// Version identifies one upstream release together with its ordering metadata.
// Versions are immutable; they are constructed once from a fetched manifest.
type Version struct {
	ID          string
	Type        Type
	ReleaseTime time.Time

	// DetailURL locates the per-version detail manifest; DetailSHA1 is its
	// published digest, used to validate the cached copy.
	DetailURL  string
	DetailSHA1 string

	// ordinal is the position within the manifest, 0 = oldest. Negative when
	// the version was constructed outside a manifest.
	ordinal int
}

// New creates a standalone Version not backed by a manifest. Ordering between
// standalone versions falls back to release time and then semver comparison.
func New(id string, typ Type, releaseTime time.Time) *Version {
	return &Version{ID: id, Type: typ, ReleaseTime: releaseTime, ordinal: -1}
}

// Compare orders v against o: negative when v is older, positive when newer.
// Manifest ordinals are authoritative; release time and semver are fallbacks
// for versions constructed outside a manifest.
func (v *Version) Compare(o *Version) int {
	if v.ordinal >= 0 && o.ordinal >= 0 {
		return v.ordinal - o.ordinal
	}
	if !v.ReleaseTime.IsZero() && !o.ReleaseTime.IsZero() && !v.ReleaseTime.Equal(o.ReleaseTime) {
		if v.ReleaseTime.Before(o.ReleaseTime) {
			return -1
		}
		return 1
	}
	if c := compareSemver(v.ID, o.ID); c != 0 {
		return c
	}
	return strings.Compare(v.ID, o.ID)
}

// Before reports whether v was released before o.
func (v *Version) Before(o *Version) bool {
	return v.Compare(o) < 0
}

// Sort orders versions oldest first, in place.
func Sort(versions []*Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Before(versions[j])
	})
}

func compareSemver(a, b string) int {
	va, vb := "v"+a, "v"+b
	if !semver.IsValid(va) || !semver.IsValid(vb) {
		return 0
	}
	return semver.Compare(va, vb)
}
