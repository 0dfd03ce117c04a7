// Package intermediary resolves the tiny-format mapping archives published
// by the community maven repository. The upstream exposes no digests and
// its length headers are unreliable, so cache validation falls back to
// content-length comparison when a length is advertised and to bare
// existence otherwise.
package intermediary

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/maphist/classfile"
	"github.com/viant/maphist/mapping"
	"github.com/viant/maphist/resolver"
	"github.com/viant/maphist/workspace"
	"go.uber.org/zap"
)

// Namespace is the destination namespace of this resolver.
const Namespace = "intermediary"

const archiveKey = "intermediary.jar"

// entryNames lists the historical archive entry locations.
var entryNames = []string{"mappings/mappings.tiny", "mappings.tiny"}

// Endpoints locates the upstream; replaceable for tests.
type Endpoints struct {
	// ArchiveURL is a printf pattern taking the version id, yielding the
	// mapping archive.
	ArchiveURL string
}

// DefaultEndpoints points at the public fabric maven repository.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		ArchiveURL: "https://maven.fabricmc.net/net/fabricmc/intermediary/%[1]s/intermediary-%[1]s.jar",
	}
}

// Resolver fetches and replays the intermediary mappings of one version.
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

func (r *Resolver) resolveArchive(ctx context.Context) (string, error) {
	url := fmt.Sprintf(r.endpoints.ArchiveURL, r.ws.Version.ID)
	r.sourceURL = url
	freshness := resolver.Freshness(resolver.ExistsOnly{})
	if !r.ws.Options().RelaxedCache {
		if length := r.fetcher.ContentLength(ctx, url); length > 0 {
			freshness = resolver.ContentLength{Length: length}
		}
	}
	return r.fetcher.Download(ctx, url, &r.ws.Workspace, archiveKey, freshness)
}

// Accept implements resolver.Resolver. A version without a published archive
// yields no classes and no error.
func (r *Resolver) Accept(ctx context.Context, v mapping.Visitor) error {
	if _, err := r.output.Resolve(ctx); err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			r.logger.Info("intermediary mappings not available",
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
	classes, err := parseTiny(string(entry))
	if err != nil {
		return err
	}
	return mapping.Replay(v, func(v mapping.Visitor) error {
		return r.emit(v, classes)
	})
}

func (r *Resolver) emit(v mapping.Visitor, classes []classRecord) error {
	if err := v.BeginHeader(); err != nil {
		return err
	}
	if err := v.Namespaces(mapping.SourceNamespace, []string{Namespace}); err != nil {
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
		if class.named != "" {
			if err := v.DstName(0, class.named); err != nil {
				return err
			}
		}
		for _, field := range class.fields {
			if _, err := v.BeginField(field.obf, field.desc); err != nil {
				return err
			}
			if err := v.DstName(0, field.named); err != nil {
				return err
			}
		}
		for _, method := range class.methods {
			if _, err := v.BeginMethod(method.obf, method.desc); err != nil {
				return err
			}
			if err := v.DstName(0, method.named); err != nil {
				return err
			}
		}
	}
	return nil
}
