package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/job"
)

const MinScoreName = "min_score"

type minScoreFilter struct {
	switchable
	min    float64
	logger *zap.Logger
}

// NewMinScore creates a filter that drops postings scored below minScore.
// Postings without a score count as zero.
func NewMinScore(minScore float64, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &minScoreFilter{min: minScore, logger: logger}
}

func (f *minScoreFilter) Name() string { return MinScoreName }

func (f *minScoreFilter) Apply(_ context.Context, postings []*job.Posting) ([]*job.Posting, Step, error) {
	kept, dropped := keep(postings, func(p *job.Posting) bool {
		score, _ := p.Score()
		return score >= f.min
	})

	if len(dropped) > 0 {
		f.logger.Info("excluding postings below the minimum score",
			zap.Float64("min_score", f.min),
			zap.Strings("excluded_postings", dropped),
			zap.Int("postings_left", len(kept)),
		)
	}

	return kept, Step{Initial: len(postings), Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *minScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"min_score": strconv.FormatFloat(f.min, 'f', 2, 64)},
	}
}
