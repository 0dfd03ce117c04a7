package resolver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/viant/maphist/workspace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fetcher downloads upstream resources into workspace caches. A resource is
// fetched at most once per run even under concurrent version processing:
// callers serialize on the workspace resource lock and concurrent downloads
// of one URL collapse into a single in-flight request. There is no retry;
// failures surface as ErrNotFound or ErrUnavailable and callers may layer
// retries at the orchestration level.
type Fetcher struct {
	client *http.Client
	group  singleflight.Group
	logger *zap.Logger
}

// NewFetcher creates a fetcher. A nil client uses http.DefaultClient.
func NewFetcher(client *http.Client, logger *zap.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, logger: logger}
}

// Download returns the cached path of a resource, fetching it from url when
// the cache misses or fails the freshness check. On a failed check the
// resource is refetched unconditionally and overwritten.
func (f *Fetcher) Download(ctx context.Context, url string, ws *workspace.Workspace, key string, freshness Freshness) (string, error) {
	unlock := ws.Lock(key)
	defer unlock()

	if freshness != nil && freshness.Fresh(ctx, ws, key) {
		f.logger.Debug("cache hit", zap.String("key", key), zap.String("url", url))
		return ws.Path(key), nil
	}

	path := ws.Path(key)
	_, err, _ := f.group.Do(url+"\x00"+path, func() (interface{}, error) {
		return nil, f.fetch(ctx, url, ws, key)
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// ContentLength asks the upstream for the size of a resource without
// downloading it. Returns -1 when the upstream does not expose a usable
// length, which callers treat as "fall back to relaxed validation".
func (f *Fetcher) ContentLength(ctx context.Context, url string) int64 {
	request, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return -1
	}
	response, err := f.client.Do(request)
	if err != nil {
		return -1
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return -1
	}
	return response.ContentLength
}

func (f *Fetcher) fetch(ctx context.Context, url string, ws *workspace.Workspace, key string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	response, err := f.client.Do(request)
	if err != nil {
		f.logger.Warn("fetch failed", zap.String("url", url), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusGone:
		f.logger.Info("resource not found", zap.String("url", url))
		return fmt.Errorf("%w: %v", ErrNotFound, url)
	case response.StatusCode < 200 || response.StatusCode >= 300:
		f.logger.Warn("fetch failed", zap.String("url", url), zap.Int("status", response.StatusCode))
		return fmt.Errorf("%w: %v returned status %v", ErrUnavailable, url, response.StatusCode)
	}

	if err := ws.WriteFrom(ctx, key, response.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	f.logger.Debug("fetched", zap.String("url", url), zap.String("key", key))
	return nil
}
