package approval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
)

// AutoGate approves without asking anyone.
type AutoGate struct {
	threshold *float64
	logger    *zap.Logger
}

// NewAuto approves postings scored at least threshold, or every posting when threshold is nil.
func NewAuto(threshold *float64, logger *zap.Logger) *AutoGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoGate{threshold: threshold, logger: logger}
}

func (g *AutoGate) RequestApprovals(_ context.Context, postings []*job.Posting, _ *profile.Profile) ([]Decision, error) {
	decisions := make([]Decision, 0, len(postings))
	for _, posting := range postings {
		decision := Decision{Posting: posting, Approved: meetsThreshold(posting, g.threshold)}
		if !decision.Approved {
			decision.Notes = fmt.Sprintf("score %s is below auto approve threshold %.2f", scoreLabel(posting), *g.threshold)
		}
		decisions = append(decisions, decision)
	}

	g.logger.Info("auto approval finished", zap.Int("postings", len(postings)), zap.Int("approved", countApproved(decisions)))
	return decisions, nil
}

func countApproved(decisions []Decision) int {
	count := 0
	for _, d := range decisions {
		if d.Approved {
			count++
		}
	}
	return count
}
