package resolver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"strings"

	"github.com/viant/maphist/workspace"
)

// Freshness decides whether a cached artifact may be reused without
// refetching.
type Freshness interface {
	Fresh(ctx context.Context, ws *workspace.Workspace, key string) bool
}

// ExistsOnly trusts any cached file; the relaxed-cache policy for upstreams
// that publish neither digests nor reliable content lengths.
type ExistsOnly struct{}

func (ExistsOnly) Fresh(ctx context.Context, ws *workspace.Workspace, key string) bool {
	return ws.Contains(ctx, key)
}

// SHA1 compares the cached file against an upstream-published digest.
type SHA1 struct {
	Digest string
}

func (f SHA1) Fresh(ctx context.Context, ws *workspace.Workspace, key string) bool {
	if f.Digest == "" {
		return false
	}
	reader, err := ws.Open(ctx, key)
	if err != nil {
		return false
	}
	defer reader.Close()
	h := sha1.New()
	if _, err := io.Copy(h, reader); err != nil {
		return false
	}
	return strings.EqualFold(hex.EncodeToString(h.Sum(nil)), f.Digest)
}

// ContentLength compares the cached file size against the upstream-published
// length; the fallback when no digest is available.
type ContentLength struct {
	Length int64
}

func (f ContentLength) Fresh(ctx context.Context, ws *workspace.Workspace, key string) bool {
	size, ok := ws.Size(ctx, key)
	return ok && size == f.Length
}

// Validate picks the freshness policy for a cached artifact: digest when the
// upstream published one, content length when known, existence alone
// otherwise or in relaxed-cache mode.
func Validate(options workspace.Options, sha1Digest string, length int64) Freshness {
	if sha1Digest != "" && !options.RelaxedCache {
		return SHA1{Digest: sha1Digest}
	}
	if length > 0 && !options.RelaxedCache {
		return ContentLength{Length: length}
	}
	return ExistsOnly{}
}
