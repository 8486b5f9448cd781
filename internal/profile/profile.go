package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultCurrency = "USD"

var validate = validator.New()

// Profile describes the candidate the agent is searching for.
type Profile struct {
	Name            string              `yaml:"name" json:"name" validate:"required"`
	Title           string              `yaml:"title,omitempty" json:"title,omitempty"`
	Summary         string              `yaml:"summary,omitempty" json:"summary,omitempty"`
	Skills          []string            `yaml:"skills" json:"skills" validate:"dive,required"`
	ExperienceYears *int                `yaml:"experience_years,omitempty" json:"experience_years,omitempty" validate:"omitempty,gte=0"`
	Locations       LocationPreferences `yaml:"locations" json:"locations"`
	Keywords        KeywordPreferences  `yaml:"keywords" json:"keywords"`
	SalaryMin       *int                `yaml:"salary_min,omitempty" json:"salary_min,omitempty" validate:"omitempty,gte=0"`
	SalaryCurrency  string              `yaml:"salary_currency" json:"salary_currency"`
}

type LocationPreferences struct {
	Preferred []string `yaml:"preferred" json:"preferred"`
	Avoid     []string `yaml:"avoid" json:"avoid"`
}

type KeywordPreferences struct {
	Must []string `yaml:"must" json:"must"`
	Nice []string `yaml:"nice" json:"nice"`
}

// NormalizedSkills returns the skills lower-cased, in profile order.
func (p *Profile) NormalizedSkills() []string {
	skills := make([]string, 0, len(p.Skills))
	for _, skill := range p.Skills {
		skills = append(skills, strings.ToLower(skill))
	}
	return skills
}

// SearchText picks a free-text query for boards that need one.
func (p *Profile) SearchText() string {
	if title := strings.TrimSpace(p.Title); title != "" {
		return title
	}
	return strings.Join(p.Skills, " ")
}

// Load reads and validates a profile YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("profile file not found: %s", path)
		}
		return nil, fmt.Errorf("reading profile %q: %w", path, err)
	}

	return Parse(bytes.NewReader(data))
}

// Parse decodes a profile document. Unknown keys are rejected.
func Parse(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	if p.SalaryCurrency == "" {
		p.SalaryCurrency = defaultCurrency
	}

	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	return &p, nil
}
