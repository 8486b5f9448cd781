package job

import "fmt"

// Posting is a single job listing normalized from a source-specific representation.
type Posting struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	URL         string `json:"url"`
	// Source is the name of the adapter that produced the posting.
	// Approved postings are routed back to the adapter with the same name.
	Source string `json:"source"`

	Meta Meta `json:"meta"`
	// Extra carries adapter-specific passthrough data. Core code never reads it.
	Extra map[string]any `json:"extra,omitempty"`
}

// Meta holds the fields computed for a posting during a cycle.
type Meta struct {
	Score *float64 `json:"score,omitempty"`
}

// SetScore attaches the computed relevance score.
func (p *Posting) SetScore(score float64) {
	p.Meta.Score = &score
}

// Score returns the attached score and whether one was set.
func (p *Posting) Score() (float64, bool) {
	if p == nil || p.Meta.Score == nil {
		return 0, false
	}
	return *p.Meta.Score, true
}

func (p *Posting) String() string {
	return fmt.Sprintf("%s %s / %s / %s", p.ID, p.Title, p.Company, p.URL)
}

// ApplicationResult is the outcome of an apply attempt.
// Applied may be false without an error, e.g. when a board needs manual submission.
type ApplicationResult struct {
	JobID   string
	Applied bool
	Message string
}
