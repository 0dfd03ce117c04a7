// Package spigot resolves the community BuildData mappings: a class mapping
// file and a member mapping file pinned by a per-version commit manifest.
// Member records reference classes by their already-mapped name, so the
// member resolver depends on the class namespace being visited first within
// the same pass.
package spigot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/maphist/resolver"
	"github.com/viant/maphist/workspace"
	"go.uber.org/zap"
)

// Namespace is the destination namespace of both spigot resolvers.
const Namespace = "spigot"

// MetaNMSVersion is the tree metadata key holding the version-specific
// package segment substituted for the literal VERSION placeholder in
// historical mappings.
const MetaNMSVersion = Namespace + "/nms_version"

// nmsPackage is the historical package prefix carrying the placeholder
// segment.
const nmsPackage = "net/minecraft/server/"

const (
	manifestKey   = "spigot_manifest.json"
	attributesKey = "spigot_attributes.json"
	classesKey    = "bukkit_cl.csrg"
	membersKey    = "bukkit_members.csrg"
)

// Endpoints locates the upstream; replaceable for tests.
type Endpoints struct {
	// VersionURL is a printf pattern taking the version id, yielding the
	// commit-pinning manifest document.
	VersionURL string
	// FileURL is a printf pattern taking a file name and a commit ref,
	// yielding a raw repository file.
	FileURL string
}

// DefaultEndpoints points at the public BuildData hub.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		VersionURL: "https://hub.spigotmc.org/versions/%s.json",
		FileURL:    "https://hub.spigotmc.org/stash/projects/SPIGOT/repos/builddata/raw/%s?at=%s",
	}
}

// buildManifest pins the BuildData commit for one version.
type buildManifest struct {
	Name string `json:"name"`
	Refs struct {
		BuildData string `json:"BuildData"`
	} `json:"refs"`
}

// attributes is the BuildData info document naming the mapping files of the
// pinned commit.
type attributes struct {
	MinecraftVersion string `json:"minecraftVersion"`
	NMSVersion       string `json:"nmsVersion"`
	ClassMappings    string `json:"classMappings"`
	MemberMappings   string `json:"memberMappings"`
}

// Source owns the shared upstream artifacts of one version: the pinning
// manifest, the attributes document and both mapping files. The class and
// member resolvers share one Source so every artifact is fetched once.
type Source struct {
	ws        *workspace.VersionedWorkspace
	fetcher   *resolver.Fetcher
	endpoints Endpoints
	logger    *zap.Logger

	manifest   *workspace.Output[*buildManifest]
	attributes *workspace.Output[*attributes]
	classFile  *workspace.Output[string]
	memberFile *workspace.Output[string]
}

// NewSource creates the shared artifact set for one version.
func NewSource(ws *workspace.VersionedWorkspace, fetcher *resolver.Fetcher, endpoints Endpoints, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Source{ws: ws, fetcher: fetcher, endpoints: endpoints, logger: logger}
	s.manifest = workspace.NewOutput(nil, s.resolveManifest)
	s.attributes = workspace.NewOutput(nil, s.resolveAttributes)
	s.classFile = workspace.NewOutput(nil, func(ctx context.Context) (string, error) {
		return s.resolveMappingFile(ctx, classesKey, func(a *attributes) string { return a.ClassMappings })
	})
	s.memberFile = workspace.NewOutput(nil, func(ctx context.Context) (string, error) {
		return s.resolveMappingFile(ctx, membersKey, func(a *attributes) string { return a.MemberMappings })
	})
	return s
}

func (s *Source) resolveManifest(ctx context.Context) (*buildManifest, error) {
	url := fmt.Sprintf(s.endpoints.VersionURL, s.ws.Version.ID)
	manifest := &buildManifest{}
	if err := s.fetchJSON(ctx, url, manifestKey, manifest); err != nil {
		return nil, err
	}
	if manifest.Refs.BuildData == "" {
		return nil, fmt.Errorf("%w: version manifest for %v pins no BuildData commit", resolver.ErrNotFound, s.ws.Version.ID)
	}
	return manifest, nil
}

func (s *Source) resolveAttributes(ctx context.Context) (*attributes, error) {
	manifest, err := s.manifest.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf(s.endpoints.FileURL, "info.json", manifest.Refs.BuildData)
	attrs := &attributes{}
	if err := s.fetchJSON(ctx, url, attributesKey, attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// fetchJSON downloads and decodes a small manifest document. A cached copy
// that fails to parse is treated as corrupt: logged, dropped and refetched
// unconditionally.
func (s *Source) fetchJSON(ctx context.Context, url, key string, target interface{}) error {
	if _, err := s.fetcher.Download(ctx, url, &s.ws.Workspace, key, resolver.ExistsOnly{}); err != nil {
		return err
	}
	data, err := s.ws.Read(ctx, key)
	if err == nil {
		if err = json.Unmarshal(data, target); err == nil {
			return nil
		}
	}
	s.logger.Warn("corrupt cached manifest, refetching",
		zap.String("key", key), zap.Error(err))
	if err := s.ws.Delete(ctx, key); err != nil {
		return err
	}
	if _, err := s.fetcher.Download(ctx, url, &s.ws.Workspace, key, nil); err != nil {
		return err
	}
	if data, err = s.ws.Read(ctx, key); err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse %v: %w", key, err)
	}
	return nil
}

func (s *Source) resolveMappingFile(ctx context.Context, key string, file func(*attributes) string) (string, error) {
	attrs, err := s.attributes.Resolve(ctx)
	if err != nil {
		return "", err
	}
	name := file(attrs)
	if name == "" {
		return "", fmt.Errorf("%w: no %v published for %v", resolver.ErrNotFound, key, s.ws.Version.ID)
	}
	manifest, err := s.manifest.Resolve(ctx)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf(s.endpoints.FileURL, name, manifest.Refs.BuildData)
	// the hub sends neither digests nor reliable content lengths
	return s.fetcher.Download(ctx, url, &s.ws.Workspace, key, resolver.ExistsOnly{})
}

func (s *Source) fileURL(name string, commit string) string {
	return fmt.Sprintf(s.endpoints.FileURL, name, commit)
}

// substituteNMS replaces the literal VERSION placeholder segment of a
// historical class name with the version-specific package segment.
func substituteNMS(name, nmsVersion string) string {
	if nmsVersion == "" {
		return name
	}
	return strings.Replace(name, nmsPackage+"VERSION/", nmsPackage+nmsVersion+"/", 1)
}
