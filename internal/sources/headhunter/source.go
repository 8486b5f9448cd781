// Package headhunter is a job source backed by the hh.ru API. It searches
// vacancies and applies to them by sending a negotiation with a resume.
package headhunter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
	"github.com/spigell/jobapplier/internal/secrets"
	"github.com/spigell/jobapplier/internal/sources"
	"github.com/spigell/jobapplier/internal/utils"
)

const (
	Type                   = "headhunter"
	defaultFallbackMessage = "Hello! I would like to apply for this vacancy."
	tokenEnv               = "HH_TOKEN"
)

type Options struct {
	Token     string       `mapstructure:"token"`
	TokenFile string       `mapstructure:"token_file"`
	Resume    string       `mapstructure:"resume"`
	Message   string       `mapstructure:"message"`
	UserAgent string       `mapstructure:"user_agent"`
	APIURL    string       `mapstructure:"api_url"`
	Search    SearchParams `mapstructure:"search"`
}

type Source struct {
	name   string
	opts   Options
	client *Client
	logger *zap.Logger
	resume *Resume
}

// New is the registry factory for the hh.ru source.
func New(options map[string]any, deps sources.Deps) (sources.Source, error) {
	var opts Options
	if err := utils.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}

	if strings.TrimSpace(opts.Resume) == "" {
		return nil, errors.New("resume title is required to apply to vacancies")
	}

	token, err := secrets.Load(secrets.Source{
		Name:  "headhunter token",
		File:  opts.TokenFile,
		Value: opts.Token,
		Env:   tokenEnv,
	})
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := NewClient(logger, token)
	if opts.UserAgent != "" {
		client.UserAgent = opts.UserAgent
	}
	if opts.APIURL != "" {
		client.APIURL = strings.TrimRight(opts.APIURL, "/")
	}

	return &Source{name: deps.Name, opts: opts, client: client, logger: logger}, nil
}

func (s *Source) Name() string { return s.name }

func (s *Source) Search(ctx context.Context, p *profile.Profile, limit int) ([]*job.Posting, error) {
	if limit <= 0 {
		limit = sources.DefaultLimit
	}

	params := s.opts.Search
	if strings.TrimSpace(params.Text) == "" {
		params.Text = p.SearchText()
	}

	s.logger.Info("starting the search", zap.String("search", params.Text), zap.Int("limit", limit))

	vacancies, err := s.client.Search(ctx, params, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	postings := make([]*job.Posting, 0, vacancies.Len())
	for _, vacancy := range vacancies.Items {
		if vacancy.Archived {
			continue
		}
		postings = append(postings, vacancy.ToPosting(s.name))
	}

	s.logger.Info("getting vacancies", zap.Int("count", len(postings)))
	return sources.Truncate(postings, limit), nil
}

func (s *Source) Apply(ctx context.Context, posting *job.Posting, p *profile.Profile) (*job.ApplicationResult, error) {
	if hasTest, _ := posting.Extra["has_test"].(bool); hasTest {
		return &job.ApplicationResult{
			JobID:   posting.ID,
			Applied: false,
			Message: fmt.Sprintf("vacancy requires a test, apply manually at %s", posting.URL),
		}, nil
	}

	resume, err := s.selectedResume(ctx)
	if err != nil {
		return nil, err
	}

	message := s.opts.Message
	if message == "" {
		message = defaultFallbackMessage
		s.logger.Warn("falling back to default built-in message",
			zap.String("job_id", posting.ID),
			zap.String("hint", "specify message in the headhunter source options"),
		)
	}

	err = s.client.Negotiate(ctx, resume.ID, posting.ID, message)

	// Only 403 is a verdict on this vacancy; other statuses abort the cycle.
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusForbidden {
		return &job.ApplicationResult{
			JobID:   posting.ID,
			Applied: false,
			Message: fmt.Sprintf("hh.ru rejected the application (%s)", statusErr.Status),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("negotiation for vacancy %s: %w", posting.ID, err)
	}

	s.logger.Info("successfully applied to vacancy",
		zap.String("job_id", posting.ID),
		zap.String("resume", resume.Title),
	)

	return &job.ApplicationResult{
		JobID:   posting.ID,
		Applied: true,
		Message: fmt.Sprintf("applied with resume %q", resume.Title),
	}, nil
}

// selectedResume finds the configured resume once and caches it.
func (s *Source) selectedResume(ctx context.Context) (*Resume, error) {
	if s.resume != nil {
		return s.resume, nil
	}

	resumes, err := s.client.GetMineResumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting mine resumes: %w", err)
	}

	resume := resumes.FindByTitle(s.opts.Resume)
	if resume == nil {
		return nil, fmt.Errorf("resume with title %q not found, existing titles: %s",
			s.opts.Resume, strings.Join(resumes.Titles(), ", "))
	}

	s.resume = resume
	return resume, nil
}
