package approval

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/jobapplier/internal/ai"
	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
)

var jane = &profile.Profile{Name: "Jane"}

func scored(id string, score float64) *job.Posting {
	p := &job.Posting{
		ID:          id,
		Title:       "Go <Engineer>",
		Company:     "Acme & Co",
		Location:    "Remote",
		Description: strings.Repeat("x", 500),
		URL:         "https://jobs.example/" + id,
		Source:      "mock",
	}
	p.SetScore(score)
	return p
}

func floatPtr(v float64) *float64 { return &v }

type scriptedSelector struct {
	choices []string
	labels  []string
}

func (s *scriptedSelector) factory(label string) selector {
	s.labels = append(s.labels, label)
	return s
}

func (s *scriptedSelector) Run() (int, string, error) {
	if len(s.choices) == 0 {
		return 0, "", errors.New("no more choices")
	}
	choice := s.choices[0]
	s.choices = s.choices[1:]
	return 0, choice, nil
}

func TestCLIGateEmpty(t *testing.T) {
	var out bytes.Buffer
	gate := NewCLI(&out, nil)

	decisions, err := gate.RequestApprovals(context.Background(), nil, jane)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 0 {
		t.Fatalf("expected no decisions, got %d", len(decisions))
	}
	if !strings.Contains(out.String(), "No new matches found.") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestCLIGateDecisions(t *testing.T) {
	var out bytes.Buffer
	gate := NewCLI(&out, nil)
	script := &scriptedSelector{choices: []string{PromptYes, PromptNo, PromptSkip}}
	gate.newPrompt = script.factory

	postings := []*job.Posting{scored("1", 9), scored("2", 5), scored("3", 1)}

	decisions, err := gate.RequestApprovals(context.Background(), postings, jane)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(decisions) != 3 {
		t.Fatalf("expected 3 decisions, got %d", len(decisions))
	}
	if !decisions[0].Approved || decisions[1].Approved || decisions[2].Approved {
		t.Fatalf("unexpected decisions: %+v", decisions)
	}
	if decisions[2].Notes != "skipped by operator" {
		t.Fatalf("unexpected skip notes: %q", decisions[2].Notes)
	}
	if decisions[0].Posting != postings[0] {
		t.Fatalf("expected decision to reference the posting")
	}

	rendered := out.String()
	for _, want := range []string{"Found 3 potential roles for Jane", "MOCK :: 1", "Score: 9.00", "URL: https://jobs.example/1"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("expected %q in output:\n%s", want, rendered)
		}
	}
	if strings.Contains(rendered, strings.Repeat("x", 401)) {
		t.Fatalf("expected description preview to be truncated")
	}
}

func TestCLIGatePromptError(t *testing.T) {
	var out bytes.Buffer
	gate := NewCLI(&out, nil)
	gate.newPrompt = (&scriptedSelector{}).factory

	if _, err := gate.RequestApprovals(context.Background(), []*job.Posting{scored("1", 1)}, jane); err == nil {
		t.Fatalf("expected prompt error to be returned")
	}
}

func TestAutoGate(t *testing.T) {
	postings := []*job.Posting{scored("1", 9), scored("2", 2), {ID: "3"}}

	tests := []struct {
		name      string
		threshold *float64
		expects   []bool
	}{
		{name: "approves everything without threshold", expects: []bool{true, true, true}},
		{name: "threshold", threshold: floatPtr(5), expects: []bool{true, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decisions, err := NewAuto(tt.threshold, nil).RequestApprovals(context.Background(), postings, jane)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i, d := range decisions {
				if d.Approved != tt.expects[i] {
					t.Fatalf("decision %d: expected %v, got %v (%s)", i, tt.expects[i], d.Approved, d.Notes)
				}
			}
		})
	}

	decisions, err := NewAuto(nil, nil).RequestApprovals(context.Background(), nil, jane)
	if err != nil || len(decisions) != 0 {
		t.Fatalf("expected empty decisions for empty input, got %v, %v", decisions, err)
	}
}

type fakeBot struct {
	texts []string
	err   error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	if msg.ParseMode != tgbotapi.ModeHTML || msg.ChatID != 42 {
		return tgbotapi.Message{}, errors.New("unexpected message config")
	}
	b.texts = append(b.texts, msg.Text)
	return tgbotapi.Message{}, nil
}

func TestTelegramGate(t *testing.T) {
	bot := &fakeBot{}
	gate := NewTelegram(bot, 42, nil, nil)

	decisions, err := gate.RequestApprovals(context.Background(), []*job.Posting{scored("1", 9)}, jane)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Approved {
		t.Fatalf("expected notify-only decision, got %+v", decisions)
	}
	if len(bot.texts) != 2 {
		t.Fatalf("expected header and posting messages, got %d", len(bot.texts))
	}
	if !strings.Contains(bot.texts[1], "Go &lt;Engineer&gt;") || !strings.Contains(bot.texts[1], "Acme &amp; Co") {
		t.Fatalf("expected html escaped posting, got %q", bot.texts[1])
	}

	gate = NewTelegram(bot, 42, floatPtr(5), nil)
	decisions, err = gate.RequestApprovals(context.Background(), []*job.Posting{scored("1", 9), scored("2", 1)}, jane)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decisions[0].Approved || decisions[1].Approved {
		t.Fatalf("expected threshold decisions, got %+v", decisions)
	}
}

func TestTelegramGateEmptyAndErrors(t *testing.T) {
	bot := &fakeBot{}
	decisions, err := NewTelegram(bot, 42, nil, nil).RequestApprovals(context.Background(), nil, jane)
	if err != nil || len(decisions) != 0 {
		t.Fatalf("unexpected result: %v, %v", decisions, err)
	}
	if len(bot.texts) != 1 || !strings.Contains(bot.texts[0], "No new matches found") {
		t.Fatalf("expected no matches message, got %v", bot.texts)
	}

	failing := &fakeBot{err: errors.New("telegram down")}
	if _, err := NewTelegram(failing, 42, nil, nil).RequestApprovals(context.Background(), []*job.Posting{scored("1", 1)}, jane); err == nil {
		t.Fatalf("expected send error")
	}
}

type stubMatcher struct {
	results map[string]*ai.FitAssessment
}

func (m *stubMatcher) Evaluate(_ context.Context, _ *profile.Profile, posting *job.Posting) (*ai.FitAssessment, error) {
	assessment, ok := m.results[posting.ID]
	if !ok {
		return nil, errors.New("quota exhausted")
	}
	return assessment, nil
}

func TestAIGate(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	matcher := &stubMatcher{results: map[string]*ai.FitAssessment{
		"1": {Fit: true, Score: 0.9, Reason: "strong Go match"},
		"2": {Fit: false, Score: 0.2, Reason: "too junior"},
	}}

	gate := NewAI(matcher, zap.New(core))
	decisions, err := gate.RequestApprovals(context.Background(), []*job.Posting{scored("1", 1), scored("2", 1), scored("3", 1)}, jane)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !decisions[0].Approved || decisions[0].Notes != "strong Go match" {
		t.Fatalf("unexpected first decision: %+v", decisions[0])
	}
	if decisions[1].Approved {
		t.Fatalf("expected rejection")
	}
	if decisions[2].Approved || !strings.Contains(decisions[2].Notes, "quota exhausted") {
		t.Fatalf("expected evaluation error in notes: %+v", decisions[2])
	}
	if observed.FilterMessage("AI evaluation failed").Len() != 1 {
		t.Fatalf("expected evaluation failure to be logged")
	}
}

func TestNew(t *testing.T) {
	gate, err := New(context.Background(), "", nil, Deps{Out: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := gate.(*CLIGate); !ok {
		t.Fatalf("expected cli gate by default, got %T", gate)
	}

	gate, err = New(context.Background(), "AUTO", map[string]any{"auto_approve_score": "4.5"}, Deps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	auto, ok := gate.(*AutoGate)
	if !ok || auto.threshold == nil || *auto.threshold != 4.5 {
		t.Fatalf("unexpected auto gate: %+v", gate)
	}

	if _, err := New(context.Background(), "email", nil, Deps{}); !errors.Is(err, ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
	if _, err := New(context.Background(), ChannelCLI, map[string]any{"bogus": 1}, Deps{}); err == nil {
		t.Fatalf("expected unknown option error")
	}
	if _, err := New(context.Background(), ChannelTelegram, map[string]any{"token": "x"}, Deps{}); err == nil {
		t.Fatalf("expected missing chat_id error")
	}
}
