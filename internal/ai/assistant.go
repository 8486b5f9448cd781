// Package ai describes fit assessments produced by language-model providers.
package ai

import (
	"context"

	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
)

// FitAssessment is a provider verdict on how well a posting fits a profile.
type FitAssessment struct {
	Fit     bool
	Score   float64
	Reason  string
	Message string
	Raw     string
}

type Matcher interface {
	Evaluate(ctx context.Context, p *profile.Profile, posting *job.Posting) (*FitAssessment, error)
}
