// Package resolver defines the contract shared by all mapping source
// resolvers together with the fetch, cache-validation and license-capture
// helpers they build on. Each resolver locates, fetches and parses one
// upstream mapping format, replaying it through the shared visitor protocol
// under exactly one target namespace.
package resolver

import (
	"context"
	"errors"

	"github.com/viant/maphist/mapping"
	"github.com/viant/maphist/workspace"
)

// Resolver is one mapping provenance for one version.
type Resolver interface {
	// Namespace returns the single destination namespace this resolver
	// produces names for.
	Namespace() string

	// Outputs enumerates the cacheable artifacts of the resolver, such as
	// the mapping file, a license file or an auxiliary manifest.
	Outputs() []*workspace.Output[string]

	// Accept replays the resolved mapping file as a visitor event sequence.
	// A version not covered by the source yields no classes and a nil error.
	Accept(ctx context.Context, v mapping.Visitor) error
}

// ErrNotFound marks an upstream resource with no coverage for the requested
// version; an expected outcome, logged quietly.
var ErrNotFound = errors.New("resource not found")

// ErrUnavailable marks a transient upstream failure; the attempt is not
// retried within the resolver.
var ErrUnavailable = errors.New("resource unavailable")

// ConsistencyError reports a violated cross-resolver prerequisite, such as a
// member resolver running before the class namespace it depends on was
// visited. These are configuration errors and fail loudly.
type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string { return e.Message }
