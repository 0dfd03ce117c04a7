package spigot

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/maphist/mapping"
	"github.com/viant/maphist/resolver"
	"github.com/viant/maphist/workspace"
	"go.uber.org/zap"
)

// ClassResolver replays the BuildData class mappings. It must run before the
// MemberResolver of the same version.
type ClassResolver struct {
	source *Source
}

// NewClassResolver creates the class mapping resolver over a shared source.
func NewClassResolver(source *Source) *ClassResolver {
	return &ClassResolver{source: source}
}

// Namespace implements resolver.Resolver.
func (r *ClassResolver) Namespace() string { return Namespace }

// Outputs implements resolver.Resolver.
func (r *ClassResolver) Outputs() []*workspace.Output[string] {
	return []*workspace.Output[string]{r.source.classFile}
}

// Accept implements resolver.Resolver.
func (r *ClassResolver) Accept(ctx context.Context, v mapping.Visitor) error {
	s := r.source
	if _, err := s.classFile.Resolve(ctx); err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			s.logger.Info("spigot class mappings not available",
				zap.String("version", s.ws.Version.ID))
			return nil
		}
		return err
	}
	data, err := s.ws.Read(ctx, classesKey)
	if err != nil {
		return fmt.Errorf("failed to read cached class mappings: %w", err)
	}
	records, license, err := parseClasses(string(data))
	if err != nil {
		return err
	}
	attrs, err := s.attributes.Resolve(ctx)
	if err != nil {
		return err
	}
	manifest, err := s.manifest.Resolve(ctx)
	if err != nil {
		return err
	}

	return mapping.Replay(v, func(v mapping.Visitor) error {
		if err := v.BeginHeader(); err != nil {
			return err
		}
		if err := v.Namespaces(mapping.SourceNamespace, []string{Namespace}); err != nil {
			return err
		}
		if attrs.NMSVersion != "" {
			if err := v.Metadata(MetaNMSVersion, attrs.NMSVersion); err != nil {
				return err
			}
		}
		if license != "" {
			sourceURL := s.fileURL(attrs.ClassMappings, manifest.Refs.BuildData)
			if err := resolver.CaptureLicense(v, Namespace, license, sourceURL); err != nil {
				return err
			}
		}
		if err := v.BeginContent(); err != nil {
			return err
		}
		for _, record := range records {
			ok, err := v.BeginClass(record.obf)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := v.DstName(0, substituteNMS(record.named, attrs.NMSVersion)); err != nil {
				return err
			}
		}
		return nil
	})
}
