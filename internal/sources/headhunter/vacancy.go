package headhunter

import (
	"fmt"
	"strings"

	"github.com/spigell/jobapplier/internal/job"
)

type Vacancies struct {
	Items []*Vacancy
}

type Vacancy struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Area struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"area,omitempty"`
	HasTest bool `json:"has_test,omitempty"`
	Salary  struct {
		From     int    `json:"from,omitempty"`
		To       int    `json:"to,omitempty"`
		Currency string `json:"currency,omitempty"`
	} `json:"salary,omitempty"`
	Schedule struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"schedule,omitempty"`
	Employer struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employer,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Description  string `json:"description,omitempty"`
	Snippet      struct {
		Requirement    string `json:"requirement,omitempty"`
		Responsibility string `json:"responsibility,omitempty"`
	} `json:"snippet,omitempty"`
	Archived    bool   `json:"archived,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// Search results wrap matched words in highlight tags.
var highlightReplacer = strings.NewReplacer("<highlighttext>", "", "</highlighttext>", "")

func (v *Vacancies) Len() int {
	return len(v.Items)
}

// ToPosting normalizes a vacancy. Search results carry no full description,
// so the snippet is used instead.
func (va *Vacancy) ToPosting(source string) *job.Posting {
	description := va.Description
	if description == "" {
		description = strings.TrimSpace(va.Snippet.Requirement + " " + va.Snippet.Responsibility)
	}

	location := va.Area.Name
	if va.Schedule.Name != "" {
		location = strings.TrimSpace(fmt.Sprintf("%s (%s)", location, va.Schedule.Name))
	}

	return &job.Posting{
		ID:          va.ID,
		Title:       va.Name,
		Company:     va.Employer.Name,
		Location:    location,
		Description: highlightReplacer.Replace(description),
		URL:         va.AlternateURL,
		Source:      source,
		Extra: map[string]any{
			"employer_id": va.Employer.ID,
			"has_test":    va.HasTest,
			"salary":      fmt.Sprintf("%d-%d %s", va.Salary.From, va.Salary.To, va.Salary.Currency),
		},
	}
}
