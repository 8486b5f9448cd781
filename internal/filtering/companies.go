package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/job"
)

const CompaniesName = "exclude_companies"

type companiesFilter struct {
	switchable
	companies map[string]struct{}
	names     []string
	logger    *zap.Logger
}

// NewExcludedCompanies creates a filter that removes postings by the listed companies.
// Company names are compared case-insensitively.
func NewExcludedCompanies(companies []string, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &companiesFilter{companies: make(map[string]struct{}, len(companies)), logger: logger}
	for _, company := range companies {
		name := strings.ToLower(strings.TrimSpace(company))
		if name == "" {
			continue
		}
		f.companies[name] = struct{}{}
		f.names = append(f.names, company)
	}
	return f
}

func (f *companiesFilter) Name() string { return CompaniesName }

func (f *companiesFilter) Apply(_ context.Context, postings []*job.Posting) ([]*job.Posting, Step, error) {
	if len(f.companies) == 0 {
		return postings, Step{Initial: len(postings), Left: len(postings)}, nil
	}

	kept, dropped := keep(postings, func(p *job.Posting) bool {
		_, excluded := f.companies[strings.ToLower(strings.TrimSpace(p.Company))]
		return !excluded
	})

	if len(dropped) > 0 {
		f.logger.Info("excluding postings by companies",
			zap.Strings("excluded_companies", f.names),
			zap.Strings("excluded_postings", dropped),
			zap.Int("postings_left", len(kept)),
		)
	}

	return kept, Step{Initial: len(postings), Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["companies"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
