// Package notify pushes run completion notices to Telegram.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/rao305/Syntra.ai-sub006/internal/config"
	"github.com/rao305/Syntra.ai-sub006/internal/pipeline"
)

// Notifier is a send-only Telegram client: it never polls for updates, it
// only pushes terminal run notices to the configured chat.
type Notifier struct {
	bot    *telego.Bot
	chatID int64
}

func New(cfg config.TelegramConfig) (*Notifier, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram token and chat_id required")
	}
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Notifier{bot: bot, chatID: cfg.ChatID}, nil
}

// Attach registers the notifier on the controller's terminal hook.
func (n *Notifier) Attach(c *pipeline.Controller) {
	c.OnTerminal(func(run *pipeline.Run) {
		if err := n.NotifyRun(context.Background(), run); err != nil {
			slog.Error("failed to send telegram notification", "run", run.ID, "error", err)
		}
	})
}

// NotifyRun sends a terminal status notice for one run.
func (n *Notifier) NotifyRun(ctx context.Context, run *pipeline.Run) error {
	text := formatRunNotice(run)
	for _, chunk := range chunkMessage(text, 4096) {
		if _, err := n.bot.SendMessage(ctx, tu.Message(tu.ID(n.chatID), chunk)); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func formatRunNotice(run *pipeline.Run) string {
	switch run.Status() {
	case pipeline.StatusComplete:
		return fmt.Sprintf("✅ Run %s complete (%dms)\n\n%s", run.ID, run.TotalMs(), run.FinalAnswer())
	case pipeline.StatusCancelled:
		return fmt.Sprintf("🚫 Run %s cancelled", run.ID)
	default:
		return fmt.Sprintf("❌ Run %s failed (%dms)", run.ID, run.TotalMs())
	}
}
