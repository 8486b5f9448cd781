// Package workflow drives a single agent cycle: collect, score, filter, rank,
// approve, apply and persist.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/approval"
	"github.com/spigell/jobapplier/internal/filtering"
	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
	"github.com/spigell/jobapplier/internal/scoring"
	"github.com/spigell/jobapplier/internal/sources"
	"github.com/spigell/jobapplier/internal/state"
)

// Cycle states, used as the "state" log field and in error messages.
const (
	StateCollect = "collect"
	StateScore   = "score"
	StateFilter  = "filter"
	StateRank    = "rank"
	StateApprove = "approve"
	StateApply   = "apply"
	StatePersist = "persist"
)

// Context bundles everything a cycle needs. It is built once per run.
type Context struct {
	Profile *profile.Profile
	Sources []sources.Source
	Gate    approval.Gate
	Store   state.Store
	Weights scoring.Weights
	// MinScore drops postings scored below it. It always runs before Filters.
	MinScore float64
	Filters  []filtering.Filter
	// Limit is the per-source batch size.
	Limit  int
	Logger *zap.Logger
}

// Summary reports what a single cycle did.
type Summary struct {
	RunID     string
	Collected int
	Shortlist int
	Approved  int
	Applied   int
	Failed    int
	// Unroutable counts approved postings whose source is not configured.
	Unroutable int
}

type Workflow struct {
	ctx     Context
	sources map[string]sources.Source
	filters []filtering.Filter
	logger  *zap.Logger
}

func New(c Context) (*Workflow, error) {
	if c.Profile == nil {
		return nil, errors.New("profile is required")
	}
	if c.Gate == nil {
		return nil, errors.New("approval gate is required")
	}
	if c.Store == nil {
		return nil, errors.New("state store is required")
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	byName := make(map[string]sources.Source, len(c.Sources))
	for _, src := range c.Sources {
		if _, exists := byName[src.Name()]; exists {
			return nil, fmt.Errorf("duplicate source name %q", src.Name())
		}
		byName[src.Name()] = src
	}

	filters := append([]filtering.Filter{filtering.NewMinScore(c.MinScore, logger)}, c.Filters...)

	return &Workflow{ctx: c, sources: byName, filters: filters, logger: logger}, nil
}

// Filters returns the filter chain in execution order.
func (w *Workflow) Filters() []filtering.Filter {
	return w.filters
}

// Collect gathers postings from all sources in configuration order, skipping
// ids already present in the state store or earlier in this batch.
func (w *Workflow) Collect(ctx context.Context) ([]*job.Posting, error) {
	return w.collect(ctx, w.logger)
}

func (w *Workflow) collect(ctx context.Context, logger *zap.Logger) ([]*job.Posting, error) {
	var collected []*job.Posting
	batch := make(map[string]struct{})

	for _, src := range w.ctx.Sources {
		postings, err := src.Search(ctx, w.ctx.Profile, w.ctx.Limit)
		if err != nil {
			return nil, fmt.Errorf("collect from %s: %w", src.Name(), err)
		}

		fresh := 0
		for _, posting := range postings {
			if posting.Source == "" {
				posting.Source = src.Name()
			}

			if _, dup := batch[posting.ID]; dup {
				continue
			}

			seen, err := w.ctx.Store.HasSeen(ctx, posting.ID)
			if err != nil {
				return nil, fmt.Errorf("collect from %s: checking %s: %w", src.Name(), posting.ID, err)
			}
			if seen {
				continue
			}

			batch[posting.ID] = struct{}{}
			collected = append(collected, posting)
			fresh++
		}

		logger.Info("collected postings",
			zap.String("state", StateCollect),
			zap.String("source", src.Name()),
			zap.Int("found", len(postings)),
			zap.Int("new", fresh),
		)
	}

	return collected, nil
}

// RunOnce runs a full cycle. Every seen posting and application outcome is
// durable by the time it returns, even when it returns an error.
func (w *Workflow) RunOnce(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	logger := w.logger.With(zap.String("run_id", summary.RunID))
	prof := w.ctx.Profile

	logger.Info("starting cycle", zap.Int("sources", len(w.ctx.Sources)))

	postings, err := w.collect(ctx, logger)
	if err != nil {
		return summary, err
	}
	summary.Collected = len(postings)

	if len(postings) == 0 {
		logger.Info("no new postings", zap.String("state", StateApprove))
		if _, err := w.ctx.Gate.RequestApprovals(ctx, []*job.Posting{}, prof); err != nil {
			return summary, fmt.Errorf("%s: %w", StateApprove, err)
		}
		return summary, nil
	}

	for _, posting := range postings {
		score := scoring.Score(posting, prof, w.ctx.Weights)
		posting.SetScore(score)

		seen := state.SeenJob{Score: score, Source: posting.Source}
		if err := w.ctx.Store.RecordSeen(ctx, posting.ID, seen); err != nil {
			return summary, fmt.Errorf("%s: recording %s: %w", StateScore, posting.ID, err)
		}

		logger.Debug("scored posting",
			zap.String("state", StateScore),
			zap.String("job_id", posting.ID),
			zap.String("source", posting.Source),
			zap.Float64("score", score),
		)
	}

	shortlist, err := filtering.Run(ctx, logger.With(zap.String("state", StateFilter)), w.filters, postings)
	if err != nil {
		return summary, fmt.Errorf("%s: %w", StateFilter, err)
	}

	ranked := scoring.Rank(shortlist, prof, w.ctx.Weights)
	summary.Shortlist = len(ranked)
	logger.Info("ranked postings", zap.String("state", StateRank), zap.Int("count", len(ranked)))

	decisions, err := w.ctx.Gate.RequestApprovals(ctx, ranked, prof)
	if err != nil {
		return summary, fmt.Errorf("%s: %w", StateApprove, err)
	}

	for _, decision := range decisions {
		if !decision.Approved || decision.Posting == nil {
			continue
		}
		summary.Approved++

		posting := decision.Posting
		src, ok := w.sources[posting.Source]
		if !ok {
			summary.Unroutable++
			logger.Debug("no source to apply through",
				zap.String("state", StateApply),
				zap.String("job_id", posting.ID),
				zap.String("source", posting.Source),
			)
			continue
		}

		result, err := src.Apply(ctx, posting, prof)
		if err != nil {
			return summary, fmt.Errorf("apply %s via %s: %w", posting.ID, src.Name(), err)
		}

		status := state.StatusFailed
		if result.Applied {
			status = state.StatusApplied
			summary.Applied++
		} else {
			summary.Failed++
		}

		if err := w.ctx.Store.RecordApplication(ctx, posting.ID, status, result.Message); err != nil {
			return summary, fmt.Errorf("%s: recording application %s: %w", StatePersist, posting.ID, err)
		}

		logger.Info("application recorded",
			zap.String("state", StateApply),
			zap.String("job_id", posting.ID),
			zap.String("source", src.Name()),
			zap.String("status", string(status)),
			zap.String("message", result.Message),
		)
	}

	logger.Info("cycle finished",
		zap.String("state", StatePersist),
		zap.Int("collected", summary.Collected),
		zap.Int("shortlist", summary.Shortlist),
		zap.Int("approved", summary.Approved),
		zap.Int("applied", summary.Applied),
		zap.Int("failed", summary.Failed),
	)

	return summary, nil
}
