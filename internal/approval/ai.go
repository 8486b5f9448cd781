package approval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/ai"
	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/logger"
	"github.com/spigell/jobapplier/internal/profile"
)

// AIGate lets a language model review every posting against the profile.
type AIGate struct {
	matcher ai.Matcher
	logger  *zap.Logger
}

func NewAI(matcher ai.Matcher, log *zap.Logger) *AIGate {
	if log == nil {
		log = zap.NewNop()
	}
	return &AIGate{matcher: matcher, logger: log}
}

// RequestApprovals never fails on evaluation errors: the posting is rejected
// and the error lands in the decision notes.
func (g *AIGate) RequestApprovals(ctx context.Context, postings []*job.Posting, p *profile.Profile) ([]Decision, error) {
	decisions := make([]Decision, 0, len(postings))
	for _, posting := range postings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log := logger.WithPosting(g.logger, posting.ID, posting.Source)

		assessment, err := g.matcher.Evaluate(ctx, p, posting)
		if err != nil {
			log.Warn("AI evaluation failed", zap.Error(err))
			decisions = append(decisions, Decision{
				Posting: posting,
				Notes:   fmt.Sprintf("ai evaluation failed: %v", err),
			})
			continue
		}

		if assessment.Fit {
			log.Info("posting approved by AI", zap.Float64("ai_score", assessment.Score))
		} else {
			log.Info("posting rejected by AI provider",
				zap.Float64("ai_score", assessment.Score),
				zap.String("reason", assessment.Reason),
			)
		}

		decisions = append(decisions, Decision{
			Posting:  posting,
			Approved: assessment.Fit,
			Notes:    assessment.Reason,
		})
	}

	return decisions, nil
}
