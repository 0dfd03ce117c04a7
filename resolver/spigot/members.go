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

// lookupMode records which ownership lookup strategy worked first, so
// subsequent lookups in the same resolution skip straight to it.
type lookupMode uint8

const (
	lookupUnknown lookupMode = iota
	lookupPlain
	lookupPrefixed
)

// MemberResolver replays the BuildData member mappings. Member records name
// their owning class by its mapped (spigot) name, historically without the
// package prefix, so ownership is resolved against the spigot class
// namespace that the ClassResolver must already have visited on the same
// tree.
type MemberResolver struct {
	source *Source
	tree   *mapping.Tree
}

// NewMemberResolver creates the member mapping resolver over a shared source
// and the tree being populated.
func NewMemberResolver(source *Source, tree *mapping.Tree) *MemberResolver {
	return &MemberResolver{source: source, tree: tree}
}

// Namespace implements resolver.Resolver.
func (r *MemberResolver) Namespace() string { return Namespace }

// Outputs implements resolver.Resolver.
func (r *MemberResolver) Outputs() []*workspace.Output[string] {
	return []*workspace.Output[string]{r.source.memberFile}
}

// Accept implements resolver.Resolver. An uncovered version yields nothing;
// once member data exists, the spigot class namespace is a hard prerequisite
// and its absence is a configuration error, not a data gap.
func (r *MemberResolver) Accept(ctx context.Context, v mapping.Visitor) error {
	s := r.source
	if _, err := s.memberFile.Resolve(ctx); err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			s.logger.Info("spigot member mappings not available",
				zap.String("version", s.ws.Version.ID))
			return nil
		}
		return err
	}
	nsID, ok := r.tree.Namespace(Namespace)
	if !ok {
		return &resolver.ConsistencyError{Message: fmt.Sprintf(
			"spigot member resolver for version %v requires namespace %q to be visited first",
			s.ws.Version.ID, Namespace)}
	}
	data, err := s.ws.Read(ctx, membersKey)
	if err != nil {
		return fmt.Errorf("failed to read cached member mappings: %w", err)
	}
	records, err := parseMembers(string(data))
	if err != nil {
		return err
	}

	// mode is scoped to this resolution: the first successful lookup decides
	// the strategy tried first from then on
	mode := lookupUnknown
	nmsVersion, _ := r.tree.Metadata(MetaNMSVersion)

	return mapping.Replay(v, func(v mapping.Visitor) error {
		if err := v.BeginHeader(); err != nil {
			return err
		}
		if err := v.Namespaces(mapping.SourceNamespace, []string{Namespace}); err != nil {
			return err
		}
		if err := v.BeginContent(); err != nil {
			return err
		}
		for _, record := range records {
			owner, found := r.lookupOwner(nsID, record.owner, nmsVersion, &mode)
			if !found {
				s.logger.Debug("member references unknown class",
					zap.String("owner", record.owner), zap.String("member", record.obf))
				continue
			}
			ok, err := v.BeginClass(owner.Source())
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if record.desc == "" {
				if _, err := v.BeginField(record.obf, ""); err != nil {
					return err
				}
			} else {
				if _, err := v.BeginMethod(record.obf, record.desc); err != nil {
					return err
				}
			}
			if err := v.DstName(0, record.named); err != nil {
				return err
			}
		}
		return nil
	})
}

// lookupOwner resolves the owning class of a member record: exact match
// first, then the historical form with the NMS package prefix substituted in.
// The order adapts once either strategy succeeds.
func (r *MemberResolver) lookupOwner(nsID int, owner, nmsVersion string, mode *lookupMode) (*mapping.Class, bool) {
	try := func(m lookupMode) (*mapping.Class, bool) {
		switch m {
		case lookupPlain:
			return r.tree.ClassByName(nsID, owner)
		case lookupPrefixed:
			if nmsVersion == "" {
				return nil, false
			}
			return r.tree.ClassByName(nsID, nmsPackage+nmsVersion+"/"+owner)
		}
		return nil, false
	}
	order := [2]lookupMode{lookupPlain, lookupPrefixed}
	if *mode == lookupPrefixed {
		order = [2]lookupMode{lookupPrefixed, lookupPlain}
	}
	for _, m := range order {
		if class, ok := try(m); ok {
			*mode = m
			return class, true
		}
	}
	return nil, false
}
