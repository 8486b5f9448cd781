package approval

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/spigell/jobapplier/internal/job"
	"github.com/spigell/jobapplier/internal/profile"
)

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramGate reports postings to a chat. It approves only by score
// threshold; without one it is notify-only.
type TelegramGate struct {
	bot       messageSender
	chatID    int64
	threshold *float64
	logger    *zap.Logger
}

func newBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return bot, nil
}

func NewTelegram(bot messageSender, chatID int64, threshold *float64, logger *zap.Logger) *TelegramGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramGate{bot: bot, chatID: chatID, threshold: threshold, logger: logger}
}

func (g *TelegramGate) RequestApprovals(ctx context.Context, postings []*job.Posting, p *profile.Profile) ([]Decision, error) {
	if len(postings) == 0 {
		if err := g.send(fmt.Sprintf("No new matches found for <b>%s</b>.", html.EscapeString(p.Name))); err != nil {
			return nil, err
		}
		return []Decision{}, nil
	}

	header := fmt.Sprintf("Found <b>%d</b> potential roles for <b>%s</b>", len(postings), html.EscapeString(p.Name))
	if err := g.send(header); err != nil {
		return nil, err
	}

	decisions := make([]Decision, 0, len(postings))
	for _, posting := range postings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		decision := Decision{Posting: posting}
		if g.threshold != nil {
			decision.Approved = meetsThreshold(posting, g.threshold)
		}
		if !decision.Approved {
			decision.Notes = "sent to telegram for manual review"
		}

		if err := g.send(formatPosting(posting, decision)); err != nil {
			return nil, fmt.Errorf("sending %s: %w", posting.ID, err)
		}

		g.logger.Info("posting sent to telegram",
			zap.String("job_id", posting.ID),
			zap.Bool("approved", decision.Approved),
		)
		decisions = append(decisions, decision)
	}

	return decisions, nil
}

func (g *TelegramGate) send(text string) error {
	msg := tgbotapi.NewMessage(g.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := g.bot.Send(msg)
	return err
}

func formatPosting(posting *job.Posting, decision Decision) string {
	status := "needs manual review"
	if decision.Approved {
		status = "auto approved"
	}

	lines := []string{
		fmt.Sprintf("🔥 <b>%s</b>", html.EscapeString(posting.Title)),
		fmt.Sprintf("🏢 %s", html.EscapeString(posting.Company)),
		fmt.Sprintf("📍 %s", html.EscapeString(posting.Location)),
		fmt.Sprintf("⭐ %s (%s)", scoreLabel(posting), html.EscapeString(posting.Source)),
	}
	if posting.URL != "" {
		lines = append(lines, fmt.Sprintf("🔗 <a href=\"%s\">Open posting</a>", html.EscapeString(posting.URL)))
	}
	lines = append(lines, fmt.Sprintf("Status: <i>%s</i>", status))

	return strings.Join(lines, "\n")
}
