// Package workspace provides the on-disk cache scopes used by mapping
// resolvers: a root cache directory, per-version sub-workspaces, a shared
// workspace for cross-version resources, and an advisory lock registry keyed
// by logical resource name.
package workspace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/viant/afs"
	"github.com/viant/maphist/version"
)

// Options controls cache validation behaviour.
type Options struct {
	// RelaxedCache accepts a cached file on existence alone, without
	// revalidating checksums or content lengths.
	RelaxedCache bool
}

// Root owns the cache directory tree and the resource lock registry shared by
// all workspaces derived from it.
type Root struct {
	baseURL string
	fs      afs.Service
	options Options
	locks   *lockRegistry
}

// NewRoot creates a cache root at the given directory.
func NewRoot(baseURL string, options Options) *Root {
	return &Root{
		baseURL: baseURL,
		fs:      afs.New(),
		options: options,
		locks:   newLockRegistry(),
	}
}

// Options returns the cache validation options of this root.
func (r *Root) Options() Options {
	return r.options
}

// Shared returns the workspace holding resources common to all versions.
func (r *Root) Shared() *Workspace {
	return &Workspace{root: r, dir: filepath.Join(r.baseURL, "shared")}
}

// Version returns the workspace scoped to one version.
func (r *Root) Version(v *version.Version) *VersionedWorkspace {
	return &VersionedWorkspace{
		Workspace: Workspace{root: r, dir: filepath.Join(r.baseURL, v.ID)},
		Version:   v,
	}
}

// Lock acquires the advisory lock for a logical resource name and returns the
// release function. Locks are shared across all workspaces of the root, so two
// resolvers fetching the same upstream resource serialize regardless of which
// version they serve.
func (r *Root) Lock(key string) func() {
	return r.locks.lock(key)
}

// Workspace is one named cache directory. All file IO goes through the afs
// service of the owning root.
type Workspace struct {
	root *Root
	dir  string
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the location of a logical resource inside the workspace.
func (w *Workspace) Path(key string) string {
	return filepath.Join(w.dir, key)
}

// Options returns the cache validation options inherited from the root.
func (w *Workspace) Options() Options {
	return w.root.options
}

// Lock acquires the root-level advisory lock for a resource, qualified by the
// workspace directory so that distinct versions locking the same file name do
// not contend unless they share the resource deliberately.
func (w *Workspace) Lock(key string) func() {
	return w.root.Lock(w.dir + ":" + key)
}

// LockShared acquires a root-level lock under the bare resource name,
// for resources shared across versions.
func (w *Workspace) LockShared(key string) func() {
	return w.root.Lock(key)
}

// Contains reports whether a resource is present in the workspace.
func (w *Workspace) Contains(ctx context.Context, key string) bool {
	ok, _ := w.root.fs.Exists(ctx, w.Path(key))
	return ok
}

// Size returns the byte size of a cached resource.
func (w *Workspace) Size(ctx context.Context, key string) (int64, bool) {
	object, err := w.root.fs.Object(ctx, w.Path(key))
	if err != nil || object == nil {
		return 0, false
	}
	return object.Size(), true
}

// Read returns the content of a cached resource.
func (w *Workspace) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := w.root.fs.DownloadWithURL(ctx, w.Path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", w.Path(key), err)
	}
	return data, nil
}

// Open returns a reader over a cached resource.
func (w *Workspace) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := w.root.fs.OpenURL(ctx, w.Path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open %v: %w", w.Path(key), err)
	}
	return reader, nil
}

// Write stores a resource, overwriting any previous content.
func (w *Workspace) Write(ctx context.Context, key string, data []byte) error {
	if err := w.root.fs.Upload(ctx, w.Path(key), 0644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %v: %w", w.Path(key), err)
	}
	return nil
}

// WriteFrom streams a resource into the workspace, overwriting any previous
// content.
func (w *Workspace) WriteFrom(ctx context.Context, key string, reader io.Reader) error {
	if err := w.root.fs.Upload(ctx, w.Path(key), 0644, reader); err != nil {
		return fmt.Errorf("failed to write %v: %w", w.Path(key), err)
	}
	return nil
}

// Delete removes a cached resource, ignoring resources that are not present.
func (w *Workspace) Delete(ctx context.Context, key string) error {
	if !w.Contains(ctx, key) {
		return nil
	}
	return w.root.fs.Delete(ctx, w.Path(key))
}

// VersionedWorkspace is a workspace bound to one version; its directory is
// named after the version id.
type VersionedWorkspace struct {
	Workspace
	Version *version.Version
}

// Shared returns the cross-version workspace of the owning root.
func (w *VersionedWorkspace) Shared() *Workspace {
	return w.root.Shared()
}
