package approval

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
	"github.com/spigell/jobapplier/internal/utils"
)

const (
	PromptYes  = "Yes"
	PromptNo   = "No"
	PromptSkip = "Skip"

	descriptionPreview = 400
)

type selector interface {
	Run() (int, string, error)
}

// CLIGate asks the operator about every posting in the terminal.
type CLIGate struct {
	out       io.Writer
	logger    *zap.Logger
	newPrompt func(label string) selector
}

func NewCLI(out io.Writer, logger *zap.Logger) *CLIGate {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CLIGate{
		out:    out,
		logger: logger,
		newPrompt: func(label string) selector {
			return &promptui.Select{
				Label:     label,
				Items:     []string{PromptYes, PromptNo, PromptSkip},
				CursorPos: 2,
			}
		},
	}
}

func (g *CLIGate) RequestApprovals(ctx context.Context, postings []*job.Posting, p *profile.Profile) ([]Decision, error) {
	if len(postings) == 0 {
		fmt.Fprintln(g.out, "No new matches found.")
		return []Decision{}, nil
	}

	fmt.Fprintf(g.out, "Found %d potential roles for %s\n", len(postings), p.Name)

	decisions := make([]Decision, 0, len(postings))
	for idx, posting := range postings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fmt.Fprintln(g.out, summary(idx+1, posting))

		_, choice, err := g.newPrompt("Apply?").Run()
		if err != nil {
			return nil, fmt.Errorf("prompt for %s: %w", posting.ID, err)
		}

		decision := Decision{Posting: posting, Approved: choice == PromptYes}
		switch choice {
		case PromptNo:
			decision.Notes = "declined by operator"
		case PromptSkip:
			decision.Notes = "skipped by operator"
		}

		g.logger.Info("operator decision",
			zap.String("job_id", posting.ID),
			zap.String("choice", choice),
		)
		decisions = append(decisions, decision)
	}

	return decisions, nil
}

func summary(idx int, posting *job.Posting) string {
	url := posting.URL
	if url == "" {
		url = "N/A"
	}

	lines := []string{
		fmt.Sprintf("=== %s :: %s ===", strings.ToUpper(posting.Source), posting.ID),
		fmt.Sprintf("%d. %s @ %s", idx, posting.Title, posting.Company),
		fmt.Sprintf("Location: %s", posting.Location),
		fmt.Sprintf("URL: %s", url),
	}
	if _, ok := posting.Score(); ok {
		lines = append(lines, fmt.Sprintf("Score: %s", scoreLabel(posting)))
	}
	if description := utils.TruncateForLog(posting.Description, descriptionPreview); description != "" {
		lines = append(lines, "", description)
	}

	return strings.Join(lines, "\n")
}
