// Package sources defines the job-board adapter capability and the registry
// that maps configured adapter types to their constructors.
package sources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
)

// DefaultLimit is used by adapters when the caller passes a non-positive limit.
const DefaultLimit = 20

var ErrUnknownSource = errors.New("unknown job source adapter")

// Source searches a job board and applies to its postings.
type Source interface {
	// Name is stamped on every posting as Posting.Source.
	Name() string
	// Search may return fewer than limit postings.
	Search(ctx context.Context, p *profile.Profile, limit int) ([]*job.Posting, error)
	// Apply may report Applied=false with an explanation instead of an error.
	Apply(ctx context.Context, posting *job.Posting, p *profile.Profile) (*job.ApplicationResult, error)
}

// Deps are handed to every factory.
type Deps struct {
	// Name overrides the adapter name; empty means the adapter type.
	Name   string
	Logger *zap.Logger
}

// Factory builds an adapter from its raw config options.
type Factory func(options map[string]any, deps Deps) (Source, error)

// Registry maps adapter types to factories. It is built explicitly and passed down.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(kind string, factory Factory) {
	r.factories[strings.ToLower(kind)] = factory
}

// Create builds an adapter of the given type.
func (r *Registry) Create(kind string, options map[string]any, deps Deps) (Source, error) {
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownSource, kind)
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if strings.TrimSpace(deps.Name) == "" {
		deps.Name = strings.ToLower(kind)
	}

	src, err := factory(options, deps)
	if err != nil {
		return nil, fmt.Errorf("creating %s source: %w", kind, err)
	}
	return src, nil
}

// Available returns the registered adapter types in alphabetical order.
func (r *Registry) Available() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Truncate cuts the postings down to limit, falling back to DefaultLimit.
func Truncate(postings []*job.Posting, limit int) []*job.Posting {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(postings) > limit {
		return postings[:limit]
	}
	return postings
}
