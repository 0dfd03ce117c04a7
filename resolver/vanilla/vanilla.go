// Package vanilla derives structural mapping data from the server jar
// itself. Access flags, generic signatures, superclasses and implemented
// interfaces are emitted as pseudo destination names under synthetic
// namespaces so that consumers reach them through the same namespace API as
// real name mappings.
package vanilla

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/maphist/classfile"
	"github.com/viant/maphist/mapping"
	"github.com/viant/maphist/resolver"
	"github.com/viant/maphist/version"
	"github.com/viant/maphist/workspace"
	"go.uber.org/zap"
)

// Namespace identifies this resolver in coverage reporting. The emitted
// destination columns are the synthetic namespaces below.
const Namespace = "vanilla"

// Synthetic namespaces carrying structural data as pseudo destination names.
const (
	NamespaceModifiers  = "modifiers"
	NamespaceSignature  = "signature"
	NamespaceSuper      = "super"
	NamespaceInterfaces = "interfaces"
)

const cacheKey = "server.jar"

// includePrefixes limits emission to application classes; bundled library
// code carries no mapping identity. Obfuscated classes live in the default
// package and match by having no package separator at all.
var includePrefixes = []string{"net/minecraft/", "com/mojang/"}

func included(name string) bool {
	if !strings.ContainsRune(name, '/') {
		return true
	}
	for _, prefix := range includePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Resolver reads the server jar of one version and replays its structure.
type Resolver struct {
	ws      *workspace.VersionedWorkspace
	fetcher *resolver.Fetcher
	detail  *workspace.Output[*version.Detail]
	logger  *zap.Logger

	output *workspace.Output[string]
}

// New creates a resolver for the version the workspace is bound to. The
// detail output supplies the server jar URL and its published digest.
func New(ws *workspace.VersionedWorkspace, fetcher *resolver.Fetcher, detail *workspace.Output[*version.Detail], logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{ws: ws, fetcher: fetcher, detail: detail, logger: logger}
	r.output = workspace.NewOutput(nil, r.resolveJar)
	return r
}

// Namespace implements resolver.Resolver.
func (r *Resolver) Namespace() string { return Namespace }

// Outputs implements resolver.Resolver.
func (r *Resolver) Outputs() []*workspace.Output[string] {
	return []*workspace.Output[string]{r.output}
}

func (r *Resolver) resolveJar(ctx context.Context) (string, error) {
	detail, err := r.detail.Resolve(ctx)
	if err != nil {
		return "", err
	}
	download, ok := detail.Download(version.DownloadServer)
	if !ok {
		return "", fmt.Errorf("%w: no server jar published for %v", resolver.ErrNotFound, r.ws.Version.ID)
	}
	freshness := resolver.Validate(r.ws.Options(), download.SHA1, download.Size)
	return r.fetcher.Download(ctx, download.URL, &r.ws.Workspace, cacheKey, freshness)
}

// Accept implements resolver.Resolver. A version without a published server
// jar yields no classes and no error.
func (r *Resolver) Accept(ctx context.Context, v mapping.Visitor) error {
	path, err := r.output.Resolve(ctx)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			r.logger.Info("server jar not available",
				zap.String("version", r.ws.Version.ID))
			return nil
		}
		return err
	}
	archive, err := classfile.OpenArchive(path)
	if err != nil {
		return err
	}
	defer archive.Close()
	return mapping.Replay(v, func(v mapping.Visitor) error {
		return r.emit(v, archive)
	})
}

func (r *Resolver) emit(v mapping.Visitor, archive *classfile.Archive) error {
	if err := v.BeginHeader(); err != nil {
		return err
	}
	dst := []string{NamespaceModifiers, NamespaceSignature, NamespaceSuper, NamespaceInterfaces}
	if err := v.Namespaces(mapping.SourceNamespace, dst); err != nil {
		return err
	}
	if err := v.BeginContent(); err != nil {
		return err
	}
	return archive.Classes(func(name string, data []byte) error {
		if !included(name) {
			return nil
		}
		class, err := classfile.Parse(data)
		if err != nil {
			return fmt.Errorf("failed to parse class %v: %w", name, err)
		}
		return emitClass(v, class)
	})
}

func emitClass(v mapping.Visitor, class *classfile.Class) error {
	ok, err := v.BeginClass(class.Name)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := v.DstName(0, strconv.Itoa(int(class.AccessFlags))); err != nil {
		return err
	}
	if class.Signature != "" {
		if err := v.DstName(1, class.Signature); err != nil {
			return err
		}
	}
	if class.SuperName != "" {
		if err := v.DstName(2, class.SuperName); err != nil {
			return err
		}
	}
	if len(class.Interfaces) > 0 {
		if err := v.DstName(3, strings.Join(class.Interfaces, ",")); err != nil {
			return err
		}
	}
	for _, field := range class.Fields {
		if _, err := v.BeginField(field.Name, field.Descriptor); err != nil {
			return err
		}
		if err := emitMember(v, field); err != nil {
			return err
		}
	}
	for _, method := range class.Methods {
		if _, err := v.BeginMethod(method.Name, method.Descriptor); err != nil {
			return err
		}
		if err := emitMember(v, method); err != nil {
			return err
		}
	}
	return nil
}

func emitMember(v mapping.Visitor, member classfile.Member) error {
	if err := v.DstName(0, strconv.Itoa(int(member.AccessFlags))); err != nil {
		return err
	}
	if member.Signature != "" {
		if err := v.DstName(1, member.Signature); err != nil {
			return err
		}
	}
	return nil
}
