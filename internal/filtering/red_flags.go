package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/job"
)

const RedFlagsName = "red_flags"

type redFlagsFilter struct {
	switchable
	flags  []string
	logger *zap.Logger
}

// NewRedFlags creates a filter that removes postings mentioning any of the flags
// in their title, company or description.
func NewRedFlags(flags []string, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &redFlagsFilter{logger: logger}
	for _, flag := range flags {
		if flag = strings.TrimSpace(flag); flag != "" {
			f.flags = append(f.flags, flag)
		}
	}
	return f
}

func (f *redFlagsFilter) Name() string { return RedFlagsName }

func (f *redFlagsFilter) Apply(_ context.Context, postings []*job.Posting) ([]*job.Posting, Step, error) {
	if len(f.flags) == 0 {
		return postings, Step{Initial: len(postings), Left: len(postings)}, nil
	}

	kept, dropped := keep(postings, func(p *job.Posting) bool {
		return !ContainsRedFlag(p.Title, p.Company, p.Description, f.flags)
	})

	if len(dropped) > 0 {
		f.logger.Info("excluding postings with red flags",
			zap.Strings("red_flags", f.flags),
			zap.Strings("excluded_postings", dropped),
			zap.Int("postings_left", len(kept)),
		)
	}

	return kept, Step{Initial: len(postings), Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *redFlagsFilter) Status() Status {
	details := map[string]string{}
	if len(f.flags) > 0 {
		details["red_flags"] = strings.Join(f.flags, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

// ContainsRedFlag reports whether any flag appears (case-insensitive) in the
// combined title, company and description.
func ContainsRedFlag(title, company, description string, flags []string) bool {
	if len(flags) == 0 {
		return false
	}
	combined := strings.ToLower(title + " " + company + " " + description)
	for _, flag := range flags {
		if flag == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(flag)) {
			return true
		}
	}
	return false
}
