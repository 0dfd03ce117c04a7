// Package mojang resolves the vendor-published ProGuard obfuscation maps.
// The upstream file maps named elements to their obfuscated forms with types
// written as Java source names; the resolver inverts the direction, converts
// the types to JVM descriptors in both namespaces and replays the result
// under the "mojang" namespace.
package mojang

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/maphist/mapping"
	"github.com/viant/maphist/resolver"
	"github.com/viant/maphist/version"
	"github.com/viant/maphist/workspace"
	"go.uber.org/zap"
)

// Namespace is the destination namespace of this resolver.
const Namespace = "mojang"

const cacheKey = "mojang_mappings.txt"

// Resolver fetches and replays the obfuscation map of one version.
type Resolver struct {
	ws      *workspace.VersionedWorkspace
	fetcher *resolver.Fetcher
	detail  *workspace.Output[*version.Detail]
	logger  *zap.Logger

	output    *workspace.Output[string]
	sourceURL string
}

// New creates a resolver for the version the workspace is bound to. The
// detail output supplies the download URL and its published digest.
func New(ws *workspace.VersionedWorkspace, fetcher *resolver.Fetcher, detail *workspace.Output[*version.Detail], logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{ws: ws, fetcher: fetcher, detail: detail, logger: logger}
	r.output = workspace.NewOutput(nil, r.resolveMappings)
	return r
}

// Namespace implements resolver.Resolver.
func (r *Resolver) Namespace() string { return Namespace }

// Outputs implements resolver.Resolver.
func (r *Resolver) Outputs() []*workspace.Output[string] {
	return []*workspace.Output[string]{r.output}
}

func (r *Resolver) resolveMappings(ctx context.Context) (string, error) {
	detail, err := r.detail.Resolve(ctx)
	if err != nil {
		return "", err
	}
	download, ok := detail.Download(version.DownloadServerMappings)
	if !ok {
		return "", fmt.Errorf("%w: no server mappings published for %v", resolver.ErrNotFound, r.ws.Version.ID)
	}
	r.sourceURL = download.URL
	freshness := resolver.Validate(r.ws.Options(), download.SHA1, download.Size)
	return r.fetcher.Download(ctx, download.URL, &r.ws.Workspace, cacheKey, freshness)
}

// Accept implements resolver.Resolver. A version without published mappings
// yields no classes and no error.
func (r *Resolver) Accept(ctx context.Context, v mapping.Visitor) error {
	path, err := r.output.Resolve(ctx)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			r.logger.Info("mojang mappings not available",
				zap.String("version", r.ws.Version.ID))
			return nil
		}
		return err
	}
	data, err := r.ws.Read(ctx, cacheKey)
	if err != nil {
		return fmt.Errorf("failed to read cached mappings %v: %w", path, err)
	}
	classes, license, err := parse(string(data))
	if err != nil {
		return err
	}
	return mapping.Replay(v, func(v mapping.Visitor) error {
		return r.emit(v, classes, license)
	})
}

func (r *Resolver) emit(v mapping.Visitor, classes []classEntry, license string) error {
	if err := v.BeginHeader(); err != nil {
		return err
	}
	if err := v.Namespaces(mapping.SourceNamespace, []string{Namespace}); err != nil {
		return err
	}
	if license != "" {
		if err := resolver.CaptureLicense(v, Namespace, license, r.sourceURL); err != nil {
			return err
		}
	}
	if err := v.BeginContent(); err != nil {
		return err
	}

	// named-to-obfuscated class map, needed to express member descriptors in
	// the source namespace
	classMap := make(map[string]string, len(classes))
	for _, class := range classes {
		classMap[class.named] = class.obf
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
			srcDesc := typeDescriptor(field.typ, classMap)
			if _, err := v.BeginField(field.obf, srcDesc); err != nil {
				return err
			}
			if err := v.DstName(0, field.named); err != nil {
				return err
			}
			if err := v.DstDescriptor(0, typeDescriptor(field.typ, nil)); err != nil {
				return err
			}
		}
		for _, method := range class.methods {
			srcDesc := methodDescriptor(method.args, method.ret, classMap)
			if _, err := v.BeginMethod(method.obf, srcDesc); err != nil {
				return err
			}
			if err := v.DstName(0, method.named); err != nil {
				return err
			}
			if err := v.DstDescriptor(0, methodDescriptor(method.args, method.ret, nil)); err != nil {
				return err
			}
		}
	}
	return nil
}
