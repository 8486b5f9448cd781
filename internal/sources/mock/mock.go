// Package mock is a job source that reads postings from a local JSON file and
// simulates successful applications. Useful for dry runs and demos.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
	"github.com/spigell/jobapplier/internal/sources"
	"github.com/spigell/jobapplier/internal/utils"
)

const (
	Type            = "mock"
	defaultPath     = "samples/jobs.json"
	defaultLocation = "Remote"
)

type Options struct {
	Path string `mapstructure:"path"`
}

type Source struct {
	name   string
	path   string
	logger *zap.Logger
}

type rawPosting struct {
	ID          postingID `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    *string   `json:"location"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
}

// New is the registry factory for the mock source.
func New(options map[string]any, deps sources.Deps) (sources.Source, error) {
	opts := Options{Path: defaultPath}
	if err := utils.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}

	if _, err := os.Stat(opts.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("mock jobs file not found: %s", opts.Path)
		}
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Source{name: deps.Name, path: opts.Path, logger: logger}, nil
}

func (s *Source) Name() string { return s.name }

// Search returns postings from the file mentioning any profile skill.
// A profile without skills matches everything.
func (s *Source) Search(_ context.Context, p *profile.Profile, limit int) ([]*job.Posting, error) {
	if limit <= 0 {
		limit = sources.DefaultLimit
	}

	raws, err := s.load()
	if err != nil {
		return nil, err
	}

	skills := p.NormalizedSkills()
	postings := make([]*job.Posting, 0, limit)
	for _, raw := range raws {
		posting := s.toPosting(raw)
		if !matchesSkills(posting, skills) {
			continue
		}
		postings = append(postings, posting)
		if len(postings) >= limit {
			break
		}
	}

	s.logger.Debug("mock search finished",
		zap.String("path", s.path),
		zap.Int("in_file", len(raws)),
		zap.Int("matched", len(postings)),
	)

	return postings, nil
}

func (s *Source) Apply(_ context.Context, posting *job.Posting, p *profile.Profile) (*job.ApplicationResult, error) {
	return &job.ApplicationResult{
		JobID:   posting.ID,
		Applied: true,
		Message: fmt.Sprintf("Simulated application submission for %s to %s", p.Name, posting.Company),
	}, nil
}

func (s *Source) load() ([]rawPosting, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var raws []rawPosting
	if err := json.NewDecoder(file).Decode(&raws); err != nil {
		return nil, fmt.Errorf("parsing mock jobs file %q: %w", s.path, err)
	}
	return raws, nil
}

// postingID accepts both numeric and string ids.
type postingID string

func (id *postingID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = postingID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("job id must be a string or a number: %w", err)
	}
	*id = postingID(n.String())
	return nil
}

func (s *Source) toPosting(raw rawPosting) *job.Posting {
	location := defaultLocation
	if raw.Location != nil {
		location = *raw.Location
	}

	return &job.Posting{
		ID:          string(raw.ID),
		Title:       raw.Title,
		Company:     raw.Company,
		Location:    location,
		Description: raw.Description,
		URL:         raw.URL,
		Source:      s.name,
		Extra:       map[string]any{"path": s.path},
	}
}

func matchesSkills(p *job.Posting, skills []string) bool {
	if len(skills) == 0 {
		return true
	}
	text := strings.ToLower(p.Title + " " + p.Description)
	for _, skill := range skills {
		if strings.Contains(text, skill) {
			return true
		}
	}
	return false
}
