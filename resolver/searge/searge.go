// Package searge resolves the build-tool mapping archives published to a
// maven repository. Three historical layouts are handled: the modern config
// archive with a two-namespace tsrg2 file, the older headerless tsrg file,
// and the legacy srg file with record-type prefixes. Intrinsic namespace
// labels ("obf", "official") are renamed onto the pipeline source namespace;
// target labels land on "searge", and the auxiliary numeric id column, where
// present, on "searge_id".
package searge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/maphist/classfile"
	"github.com/viant/maphist/mapping"
	"github.com/viant/maphist/resolver"
	"github.com/viant/maphist/workspace"
	"go.uber.org/zap"
)

// Namespace is the destination namespace of this resolver.
const Namespace = "searge"

// IDNamespace holds the auxiliary numeric ids of the tsrg2 format; carried
// as a separate column so the analyzer may prune it.
const IDNamespace = "searge_id"

const (
	archiveKey = "searge_config.zip"
	digestKey  = "searge_config.zip.sha1"
)

// entryNames lists the historical archive entry locations, newest first.
var entryNames = []string{"config/joined.tsrg", "joined.tsrg", "joined.srg"}

// Endpoints locates the upstream archives; replaceable for tests.
type Endpoints struct {
	// ConfigURL is a printf pattern taking the version id twice, yielding
	// the modern config archive.
	ConfigURL string
	// LegacyURL is the same pattern for the legacy srg archive.
	LegacyURL string
}

// DefaultEndpoints points at the public forge maven repository.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		ConfigURL: "https://maven.minecraftforge.net/de/oceanlabs/mcp/mcp_config/%[1]s/mcp_config-%[1]s.zip",
		LegacyURL: "https://maven.minecraftforge.net/de/oceanlabs/mcp/mcp/%[1]s/mcp-%[1]s-srg.zip",
	}
}

// Resolver fetches and replays the searge mappings of one version.
type Resolver struct {
	ws        *workspace.VersionedWorkspace
	fetcher   *resolver.Fetcher
	endpoints Endpoints
	logger    *zap.Logger

	output    *workspace.Output[string]
	sourceURL string
}

// New creates a resolver for the version the workspace is bound to.
func New(ws *workspace.VersionedWorkspace, fetcher *resolver.Fetcher, endpoints Endpoints, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{ws: ws, fetcher: fetcher, endpoints: endpoints, logger: logger}
	r.output = workspace.NewOutput(nil, r.resolveArchive)
	return r
}

// Namespace implements resolver.Resolver.
func (r *Resolver) Namespace() string { return Namespace }

// Outputs implements resolver.Resolver.
func (r *Resolver) Outputs() []*workspace.Output[string] {
	return []*workspace.Output[string]{r.output}
}

// resolveArchive downloads the config archive, falling back to the legacy
// archive for versions that predate it. The maven repository publishes a
// .sha1 sidecar next to each artifact; when present it validates the cache.
func (r *Resolver) resolveArchive(ctx context.Context) (string, error) {
	id := r.ws.Version.ID
	path, err := r.download(ctx, fmt.Sprintf(r.endpoints.ConfigURL, id))
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, resolver.ErrNotFound) {
		return "", err
	}
	return r.download(ctx, fmt.Sprintf(r.endpoints.LegacyURL, id))
}

func (r *Resolver) download(ctx context.Context, url string) (string, error) {
	digest := r.fetchDigest(ctx, url+".sha1")
	freshness := resolver.Validate(r.ws.Options(), digest, 0)
	path, err := r.fetcher.Download(ctx, url, &r.ws.Workspace, archiveKey, freshness)
	if err != nil {
		return "", err
	}
	r.sourceURL = url
	return path, nil
}

// fetchDigest returns the published sha1 of an artifact, or empty when the
// repository does not expose one.
func (r *Resolver) fetchDigest(ctx context.Context, url string) string {
	if _, err := r.fetcher.Download(ctx, url, &r.ws.Workspace, digestKey, nil); err != nil {
		return ""
	}
	data, err := r.ws.Read(ctx, digestKey)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Accept implements resolver.Resolver. A version covered by neither archive
// yields no classes and no error.
func (r *Resolver) Accept(ctx context.Context, v mapping.Visitor) error {
	if _, err := r.output.Resolve(ctx); err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			r.logger.Info("searge mappings not available",
				zap.String("version", r.ws.Version.ID))
			return nil
		}
		return err
	}
	data, err := r.ws.Read(ctx, archiveKey)
	if err != nil {
		return fmt.Errorf("failed to read cached archive: %w", err)
	}
	archive, err := classfile.NewArchive(data)
	if err != nil {
		return err
	}
	entry, err := archive.Entry(entryNames...)
	if err != nil {
		return err
	}
	classes, hasIDs, err := parseAny(string(entry))
	if err != nil {
		return err
	}
	return mapping.Replay(v, func(v mapping.Visitor) error {
		return r.emit(v, classes, hasIDs)
	})
}

func (r *Resolver) emit(v mapping.Visitor, classes []classRecord, hasIDs bool) error {
	if err := v.BeginHeader(); err != nil {
		return err
	}
	dst := []string{Namespace}
	if hasIDs {
		dst = append(dst, IDNamespace)
	}
	if err := v.Namespaces(mapping.SourceNamespace, dst); err != nil {
		return err
	}
	if err := v.Metadata(mapping.LicenseSourceKey(Namespace), r.sourceURL); err != nil {
		return err
	}
	if err := v.BeginContent(); err != nil {
		return err
	}
	for _, class := range classes {
		ok, err := v.BeginClass(class.obf)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := v.DstName(0, class.named); err != nil {
			return err
		}
		for _, field := range class.fields {
			if _, err := v.BeginField(field.obf, ""); err != nil {
				return err
			}
			if err := v.DstName(0, field.named); err != nil {
				return err
			}
			if hasIDs && field.id != "" {
				if err := v.DstName(1, field.id); err != nil {
					return err
				}
			}
		}
		for _, method := range class.methods {
			if _, err := v.BeginMethod(method.obf, method.desc); err != nil {
				return err
			}
			if err := v.DstName(0, method.named); err != nil {
				return err
			}
			if hasIDs && method.id != "" {
				if err := v.DstName(1, method.id); err != nil {
					return err
				}
			}
			for _, param := range method.params {
				if _, err := v.BeginParameter(param.index, ""); err != nil {
					return err
				}
				if err := v.DstName(0, param.named); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
