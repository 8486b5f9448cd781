// Package adzuna is a job source backed by the public Adzuna search API.
// Adzuna only redirects to the employer site, so applications are never
// submitted automatically.
package adzuna

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
	"github.com/spigell/jobapplier/internal/secrets"
	"github.com/spigell/jobapplier/internal/sources"
	"github.com/spigell/jobapplier/internal/utils"
)

const (
	Type = "adzuna"

	defaultBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	defaultCountry  = "gb"
	defaultMaxPages = 3
	pageSize        = 50
	httpTimeout     = 15 * time.Second
	appIDEnv        = "ADZUNA_APP_ID"
	appKeyEnv       = "ADZUNA_APP_KEY"
)

type Options struct {
	AppID      string `mapstructure:"app_id"`
	AppKey     string `mapstructure:"app_key"`
	AppKeyFile string `mapstructure:"app_key_file"`
	Country    string `mapstructure:"country"`
	What       string `mapstructure:"what"`
	Where      string `mapstructure:"where"`
	MaxPages   int    `mapstructure:"max_pages"`
	BaseURL    string `mapstructure:"base_url"`
}

type Source struct {
	name   string
	opts   Options
	appID  string
	appKey string
	client *http.Client
	logger *zap.Logger
}

type response struct {
	Results []result `json:"results"`
	Count   int      `json:"count"`
}

type result struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	RedirectURL  string  `json:"redirect_url"`
	Created      string  `json:"created"`
	ContractType string  `json:"contract_type"`
	SalaryMin    float64 `json:"salary_min"`
	SalaryMax    float64 `json:"salary_max"`
	Company      struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
}

// New is the registry factory for the Adzuna source.
// Missing credentials are not an error: Search then returns nothing.
func New(options map[string]any, deps sources.Deps) (sources.Source, error) {
	var opts Options
	if err := utils.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}

	if opts.Country == "" {
		opts.Country = defaultCountry
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	appID, err := secrets.Optional(secrets.Source{Name: "adzuna app id", Value: opts.AppID, Env: appIDEnv})
	if err != nil {
		return nil, err
	}
	appKey, err := secrets.Optional(secrets.Source{
		Name:  "adzuna app key",
		File:  opts.AppKeyFile,
		Value: opts.AppKey,
		Env:   appKeyEnv,
	})
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Source{
		name:   deps.Name,
		opts:   opts,
		appID:  appID,
		appKey: appKey,
		client: &http.Client{Timeout: httpTimeout},
		logger: logger,
	}, nil
}

func (s *Source) Name() string { return s.name }

func (s *Source) Search(ctx context.Context, p *profile.Profile, limit int) ([]*job.Posting, error) {
	if s.appID == "" || s.appKey == "" {
		s.logger.Warn("adzuna credentials are not set, skipping search",
			zap.String("hint", fmt.Sprintf("set %s and %s", appIDEnv, appKeyEnv)),
		)
		return nil, nil
	}

	if limit <= 0 {
		limit = sources.DefaultLimit
	}

	what, where := s.query(p)
	perPage := min(limit, pageSize)

	s.logger.Info("starting the search", zap.String("what", what), zap.String("where", where), zap.Int("limit", limit))

	var postings []*job.Posting
	for page := 1; page <= s.opts.MaxPages && len(postings) < limit; page++ {
		batch, err := s.fetchPage(ctx, what, where, page, perPage)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		postings = append(postings, batch...)
		if len(batch) < perPage {
			break
		}
	}

	s.logger.Info("getting vacancies", zap.Int("count", len(postings)))
	return sources.Truncate(postings, limit), nil
}

// Apply never submits anything: Adzuna hands the candidate over to the employer site.
func (s *Source) Apply(_ context.Context, posting *job.Posting, _ *profile.Profile) (*job.ApplicationResult, error) {
	return &job.ApplicationResult{
		JobID:   posting.ID,
		Applied: false,
		Message: fmt.Sprintf("adzuna does not accept applications, continue at %s", posting.URL),
	}, nil
}

func (s *Source) query(p *profile.Profile) (string, string) {
	what := s.opts.What
	if what == "" {
		what = strings.TrimSpace(p.Title)
	}
	if what == "" && len(p.Skills) > 0 {
		what = p.Skills[0]
	}

	where := s.opts.Where
	if where == "" && len(p.Locations.Preferred) > 0 {
		where = p.Locations.Preferred[0]
	}

	return what, where
}

func (s *Source) fetchPage(ctx context.Context, what, where string, page, perPage int) ([]*job.Posting, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", s.opts.BaseURL, s.opts.Country, page)

	params := url.Values{}
	params.Set("app_id", s.appID)
	params.Set("app_key", s.appKey)
	params.Set("results_per_page", strconv.Itoa(perPage))
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")
	if what != "" {
		params.Set("what", what)
	}
	if where != "" {
		params.Set("where", where)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	s.logger.Debug("make request", zap.String("url", endpoint), zap.Int("page", page))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp response
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	postings := make([]*job.Posting, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		postings = append(postings, r.toPosting(s.name))
	}

	return postings, nil
}

func (r result) toPosting(source string) *job.Posting {
	return &job.Posting{
		ID:          r.ID,
		Title:       r.Title,
		Company:     r.Company.DisplayName,
		Location:    r.Location.DisplayName,
		Description: r.Description,
		URL:         r.RedirectURL,
		Source:      source,
		Extra: map[string]any{
			"salary_min":    r.SalaryMin,
			"salary_max":    r.SalaryMax,
			"contract_type": r.ContractType,
			"created":       r.Created,
		},
	}
}
