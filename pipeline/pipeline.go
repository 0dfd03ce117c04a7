// Package pipeline orchestrates a full mapping-history run: fetch the
// version manifest, resolve every selected version against the enabled
// mapping sources in parallel, run the analyzer passes, freeze the trees and
// build the cross-version ancestry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/viant/maphist/analysis"
	"github.com/viant/maphist/ancestry"
	"github.com/viant/maphist/mapping"
	"github.com/viant/maphist/resolver"
	"github.com/viant/maphist/resolver/intermediary"
	"github.com/viant/maphist/resolver/mojang"
	"github.com/viant/maphist/resolver/searge"
	"github.com/viant/maphist/resolver/spigot"
	"github.com/viant/maphist/resolver/vanilla"
	"github.com/viant/maphist/version"
	"github.com/viant/maphist/workspace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const manifestKey = "version_manifest.json"

// Endpoints collects the upstream locations of every source; replaceable for
// tests.
type Endpoints struct {
	Spigot       spigot.Endpoints
	Searge       searge.Endpoints
	Intermediary intermediary.Endpoints
}

// DefaultEndpoints points every source at its public upstream.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Spigot:       spigot.DefaultEndpoints(),
		Searge:       searge.DefaultEndpoints(),
		Intermediary: intermediary.DefaultEndpoints(),
	}
}

// Option configures a pipeline.
type Option func(*Pipeline)

// WithLogger injects the run logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithHTTPClient injects the upstream HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) { p.client = client }
}

// WithEndpoints overrides the upstream locations.
func WithEndpoints(endpoints Endpoints) Option {
	return func(p *Pipeline) { p.endpoints = endpoints }
}

// Pipeline resolves mapping trees for a version range and chains them into
// ancestries.
type Pipeline struct {
	config    Config
	endpoints Endpoints
	client    *http.Client
	logger    *zap.Logger

	root    *workspace.Root
	fetcher *resolver.Fetcher
}

// New creates a pipeline from a validated configuration.
func New(config Config, options ...Option) *Pipeline {
	p := &Pipeline{config: config, endpoints: DefaultEndpoints()}
	for _, option := range options {
		option(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.root = workspace.NewRoot(config.WorkspaceRoot, workspace.Options{RelaxedCache: config.RelaxedCache})
	p.fetcher = resolver.NewFetcher(p.client, p.logger)
	return p
}

// VersionResult is the outcome of one version's resolution.
type VersionResult struct {
	Version *version.Version
	Tree    *mapping.Tree
	// Namespaces lists the destination namespaces with resolved names.
	Namespaces []string
	// Empty marks versions no source covered, as opposed to partial coverage.
	Empty bool
}

// Result is the outcome of a full run.
type Result struct {
	Versions []VersionResult
	Classes  *ancestry.Tree[*mapping.Class]
}

// Run executes the pipeline. Context cancellation stops new fetches; caches
// of completed versions stay valid for the next run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	manifest, err := p.fetchManifest(ctx)
	if err != nil {
		return nil, err
	}
	versions, err := p.selectVersions(manifest)
	if err != nil {
		return nil, err
	}

	results := make([]VersionResult, len(versions))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.config.Concurrency)
	for i, v := range versions {
		i, v := i, v
		group.Go(func() error {
			result, err := p.resolveVersion(groupCtx, v)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	trees := make([]ancestry.VersionedTree, 0, len(results))
	for _, result := range results {
		if result.Empty {
			p.logger.Warn("version resolved by no source, excluded from ancestry",
				zap.String("version", result.Version.ID))
			continue
		}
		trees = append(trees, ancestry.VersionedTree{Version: result.Version, Tree: result.Tree})
	}
	classes, err := ancestry.Classes(trees, ancestry.Options{
		TrustedNamespaces:  p.config.TrustedNamespaces,
		IndexNamespace:     p.config.IndexNamespace,
		PartialDescriptors: p.config.PartialDescriptors,
	})
	if err != nil {
		return nil, err
	}
	return &Result{Versions: results, Classes: classes}, nil
}

// fetchManifest caches the upstream version manifest in the shared
// workspace. A cached copy that fails to parse is dropped and refetched.
func (p *Pipeline) fetchManifest(ctx context.Context) (*version.Manifest, error) {
	shared := p.root.Shared()
	unlock := shared.LockShared(manifestKey)
	defer unlock()

	if _, err := p.fetcher.Download(ctx, p.config.ManifestURL, shared, manifestKey, resolver.ExistsOnly{}); err != nil {
		return nil, err
	}
	data, err := shared.Read(ctx, manifestKey)
	if err == nil {
		var manifest *version.Manifest
		if manifest, err = version.ParseManifest(data); err == nil {
			return manifest, nil
		}
	}
	p.logger.Warn("corrupt cached version manifest, refetching", zap.Error(err))
	if err := shared.Delete(ctx, manifestKey); err != nil {
		return nil, err
	}
	if _, err := p.fetcher.Download(ctx, p.config.ManifestURL, shared, manifestKey, nil); err != nil {
		return nil, err
	}
	if data, err = shared.Read(ctx, manifestKey); err != nil {
		return nil, err
	}
	return version.ParseManifest(data)
}

func (p *Pipeline) selectVersions(manifest *version.Manifest) ([]*version.Version, error) {
	if len(p.config.Versions.Explicit) > 0 {
		versions := make([]*version.Version, 0, len(p.config.Versions.Explicit))
		for _, id := range p.config.Versions.Explicit {
			v, ok := manifest.ByID(id)
			if !ok {
				return nil, fmt.Errorf("unknown version %q", id)
			}
			versions = append(versions, v)
		}
		version.Sort(versions)
		return versions, nil
	}
	return manifest.Range(p.config.Versions.Oldest, p.config.Versions.Newest)
}

// resolveVersion builds one version's tree: the enabled resolvers replay
// into a shared visitor in fixed order, the analyzer corrects the result and
// the tree freezes.
func (p *Pipeline) resolveVersion(ctx context.Context, v *version.Version) (VersionResult, error) {
	ws := p.root.Version(v)
	tree := mapping.NewTree()
	visitor := mapping.NewTreeVisitor(tree)
	detail := p.detailOutput(ws)

	for _, r := range p.resolvers(ws, tree, detail) {
		if err := r.Accept(ctx, visitor); err != nil {
			var consistency *resolver.ConsistencyError
			if errors.As(err, &consistency) {
				return VersionResult{}, err
			}
			p.logger.Warn("resolver failed, continuing with remaining sources",
				zap.String("version", v.ID),
				zap.String("namespace", r.Namespace()),
				zap.Error(err))
		}
	}

	analyzer := analysis.New(p.config.Analyzer, p.logger)
	if err := analyzer.Analyze(tree); err != nil {
		return VersionResult{}, err
	}
	if err := analyzer.AcceptResolutions(); err != nil {
		return VersionResult{}, err
	}
	tree.Freeze()

	namespaces := make([]string, 0)
	for _, ns := range tree.Namespaces() {
		if ns != mapping.SourceNamespace {
			namespaces = append(namespaces, ns)
		}
	}
	return VersionResult{
		Version:    v,
		Tree:       tree,
		Namespaces: namespaces,
		Empty:      len(tree.Classes()) == 0,
	}, nil
}

// resolvers assembles the enabled sources in visit order. The spigot member
// resolver runs last; it needs the spigot class namespace in the tree.
func (p *Pipeline) resolvers(ws *workspace.VersionedWorkspace, tree *mapping.Tree, detail *workspace.Output[*version.Detail]) []resolver.Resolver {
	var resolvers []resolver.Resolver
	if p.config.Resolvers.Vanilla {
		resolvers = append(resolvers, vanilla.New(ws, p.fetcher, detail, p.logger))
	}
	if p.config.Resolvers.Mojang {
		resolvers = append(resolvers, mojang.New(ws, p.fetcher, detail, p.logger))
	}
	if p.config.Resolvers.Intermediary {
		resolvers = append(resolvers, intermediary.New(ws, p.fetcher, p.endpoints.Intermediary, p.logger))
	}
	if p.config.Resolvers.Searge {
		resolvers = append(resolvers, searge.New(ws, p.fetcher, p.endpoints.Searge, p.logger))
	}
	if p.config.Resolvers.Spigot {
		source := spigot.NewSource(ws, p.fetcher, p.endpoints.Spigot, p.logger)
		resolvers = append(resolvers,
			spigot.NewClassResolver(source),
			spigot.NewMemberResolver(source, tree))
	}
	return resolvers
}

const detailKey = "version_detail.json"

// detailOutput lazily fetches the per-version detail manifest, validated
// against the digest the version manifest publishes for it.
func (p *Pipeline) detailOutput(ws *workspace.VersionedWorkspace) *workspace.Output[*version.Detail] {
	return workspace.NewOutput(nil, func(ctx context.Context) (*version.Detail, error) {
		if ws.Version.DetailURL == "" {
			return nil, fmt.Errorf("%w: no detail manifest for %v", resolver.ErrNotFound, ws.Version.ID)
		}
		freshness := resolver.Validate(ws.Options(), ws.Version.DetailSHA1, 0)
		if _, err := p.fetcher.Download(ctx, ws.Version.DetailURL, &ws.Workspace, detailKey, freshness); err != nil {
			return nil, err
		}
		data, err := ws.Read(ctx, detailKey)
		if err != nil {
			return nil, err
		}
		detail, err := version.ParseDetail(data)
		if err != nil {
			p.logger.Warn("corrupt cached version detail, refetching",
				zap.String("version", ws.Version.ID), zap.Error(err))
			if err := ws.Delete(ctx, detailKey); err != nil {
				return nil, err
			}
			if _, err := p.fetcher.Download(ctx, ws.Version.DetailURL, &ws.Workspace, detailKey, nil); err != nil {
				return nil, err
			}
			if data, err = ws.Read(ctx, detailKey); err != nil {
				return nil, err
			}
			return version.ParseDetail(data)
		}
		return detail, nil
	})
}
