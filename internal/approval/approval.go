// Package approval turns ranked postings into apply / do-not-apply decisions.
package approval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/ai/gemini"
	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
	"github.com/spigell/jobapplier/internal/secrets"
	"github.com/spigell/jobapplier/internal/utils"
)

const (
	ChannelCLI      = "cli"
	ChannelAuto     = "auto"
	ChannelTelegram = "telegram"
	ChannelAI       = "ai"

	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	geminiAPIKeyEnv  = "GEMINI_API_KEY"
)

var ErrUnknownChannel = errors.New("unknown notification channel")

// Decision is the verdict for a single posting.
type Decision struct {
	Posting  *job.Posting
	Approved bool
	Notes    string
}

// Gate asks for approval of ranked postings. It must accept an empty list.
type Gate interface {
	RequestApprovals(ctx context.Context, postings []*job.Posting, p *profile.Profile) ([]Decision, error)
}

// Deps are handed to New.
type Deps struct {
	Logger *zap.Logger
	// Out is where the cli gate renders postings. Defaults to stdout.
	Out io.Writer
}

type autoOptions struct {
	AutoApproveScore *float64 `mapstructure:"auto_approve_score"`
}

type telegramOptions struct {
	Token            string   `mapstructure:"token"`
	TokenFile        string   `mapstructure:"token_file"`
	ChatID           int64    `mapstructure:"chat_id"`
	AutoApproveScore *float64 `mapstructure:"auto_approve_score"`
}

type aiOptions struct {
	APIKey          string  `mapstructure:"api_key"`
	APIKeyFile      string  `mapstructure:"api_key_file"`
	Model           string  `mapstructure:"model"`
	MaxRetries      int     `mapstructure:"max_retries"`
	MaxLogLength    int     `mapstructure:"max_log_length"`
	MinimumFitScore float64 `mapstructure:"minimum_fit_score"`

	gemini.PromptOverrides `mapstructure:",squash"`
}

// New builds the gate for the configured channel.
func New(ctx context.Context, channel string, options map[string]any, deps Deps) (Gate, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(strings.TrimSpace(channel)) {
	case "", ChannelCLI:
		out := deps.Out
		if out == nil {
			out = os.Stdout
		}
		if err := utils.DecodeOptions(options, &struct{}{}); err != nil {
			return nil, err
		}
		return NewCLI(out, logger), nil

	case ChannelAuto:
		var opts autoOptions
		if err := utils.DecodeOptions(options, &opts); err != nil {
			return nil, err
		}
		return NewAuto(opts.AutoApproveScore, logger), nil

	case ChannelTelegram:
		var opts telegramOptions
		if err := utils.DecodeOptions(options, &opts); err != nil {
			return nil, err
		}
		if opts.ChatID == 0 {
			return nil, errors.New("telegram chat_id is required")
		}
		token, err := secrets.Load(secrets.Source{
			Name:  "telegram bot token",
			File:  opts.TokenFile,
			Value: opts.Token,
			Env:   telegramTokenEnv,
		})
		if err != nil {
			return nil, err
		}
		bot, err := newBot(token)
		if err != nil {
			return nil, err
		}
		return NewTelegram(bot, opts.ChatID, opts.AutoApproveScore, logger), nil

	case ChannelAI:
		var opts aiOptions
		if err := utils.DecodeOptions(options, &opts); err != nil {
			return nil, err
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  opts.APIKeyFile,
			Value: opts.APIKey,
			Env:   geminiAPIKeyEnv,
		})
		if err != nil {
			return nil, err
		}
		generator, err := gemini.NewGenerator(ctx, apiKey, opts.Model, opts.MaxRetries, logger)
		if err != nil {
			return nil, err
		}
		matcher := gemini.NewMatcher(generator, opts.MinimumFitScore, opts.MaxLogLength, logger)
		matcher.SetPromptOverrides(opts.PromptOverrides)
		return NewAI(matcher, logger), nil

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownChannel, channel)
	}
}

// meetsThreshold reports whether posting is scored at least threshold. A nil threshold matches everything.
func meetsThreshold(posting *job.Posting, threshold *float64) bool {
	if threshold == nil {
		return true
	}
	score, _ := posting.Score()
	return score >= *threshold
}

func scoreLabel(posting *job.Posting) string {
	score, ok := posting.Score()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", score)
}
