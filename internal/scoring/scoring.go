// Package scoring ranks postings against a candidate profile with a simple
// weighted keyword heuristic. Scores are only comparable between postings
// scored with the same weights.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
)

// ErrUnknownWeight is returned when an override names a weight that does not exist.
var ErrUnknownWeight = errors.New("unknown scoring weight")

const (
	WeightSkill    = "skill"
	WeightKeyword  = "keyword"
	WeightLocation = "location"
	WeightTitle    = "title"
)

// Weights are the per-component multipliers of the score.
type Weights struct {
	Skill    float64
	Keyword  float64
	Location float64
	Title    float64
}

func DefaultWeights() Weights {
	return Weights{
		Skill:    4.0,
		Keyword:  3.0,
		Location: 2.0,
		Title:    1.5,
	}
}

// Merge returns a copy of w with the given keys replaced.
func (w Weights) Merge(overrides map[string]float64) (Weights, error) {
	for key, value := range overrides {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case WeightSkill:
			w.Skill = value
		case WeightKeyword:
			w.Keyword = value
		case WeightLocation:
			w.Location = value
		case WeightTitle:
			w.Title = value
		default:
			return w, fmt.Errorf("%w: %q", ErrUnknownWeight, key)
		}
	}
	return w, nil
}

// Runs of these characters form tokens, so "c++" and "c#" survive.
var tokenPattern = regexp.MustCompile(`[a-z0-9#+\-]+`)

// Tokenize lower-cases text and returns its set of tokens.
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	if text == "" {
		return tokens
	}
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		tokens[token] = struct{}{}
	}
	return tokens
}

// Score computes the relevance of a posting for the profile, rounded to 2 decimals.
func Score(p *job.Posting, prof *profile.Profile, w Weights) float64 {
	descTokens := Tokenize(p.Description)
	titleTokens := Tokenize(p.Title)
	skills := prof.NormalizedSkills()

	var skillScore, titleScore float64
	for _, skill := range skills {
		_, inTitle := titleTokens[skill]
		_, inDesc := descTokens[skill]
		if inTitle || inDesc {
			skillScore += w.Skill
		}
		// A skill in the title also earns the title weight.
		if inTitle {
			titleScore += w.Title
		}
	}

	var keywordScore float64
	for _, kw := range prof.Keywords.Must {
		if _, ok := descTokens[strings.ToLower(kw)]; ok {
			keywordScore += w.Keyword
		} else {
			keywordScore -= w.Keyword
		}
	}
	for _, kw := range prof.Keywords.Nice {
		if _, ok := descTokens[strings.ToLower(kw)]; ok {
			keywordScore += w.Keyword * 0.5
		}
	}

	total := skillScore + keywordScore + locationScore(p.Location, prof.Locations, w.Location) + titleScore
	return math.Round(total*100) / 100
}

func locationScore(location string, prefs profile.LocationPreferences, weight float64) float64 {
	if len(prefs.Preferred) == 0 {
		return 0
	}

	location = strings.ToLower(location)
	if containsAny(location, prefs.Preferred) {
		return weight
	}
	if containsAny(location, prefs.Avoid) {
		return -weight
	}
	return 0
}

func containsAny(location string, candidates []string) bool {
	for _, candidate := range candidates {
		if strings.Contains(location, strings.ToLower(candidate)) {
			return true
		}
	}
	return false
}

// Rank returns the postings sorted by descending score.
// Postings with equal scores keep their input order.
func Rank(postings []*job.Posting, prof *profile.Profile, w Weights) []*job.Posting {
	type scored struct {
		posting *job.Posting
		score   float64
	}

	items := make([]scored, 0, len(postings))
	for _, p := range postings {
		items = append(items, scored{posting: p, score: Score(p, prof, w)})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	ranked := make([]*job.Posting, 0, len(items))
	for _, item := range items {
		ranked = append(ranked, item.posting)
	}
	return ranked
}
