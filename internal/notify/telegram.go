// Package notify pushes the current shopping list to the family's
// Telegram chat on demand.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"family-harmony/internal/household"
)

// Notifier sends shopping list snapshots to a fixed chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

// New initializes the bot. Returns (nil, nil) when no token is
// configured; callers treat a nil Notifier as disabled.
func New(token string, chatID int64, log *zap.Logger) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("telegram notifier ready", zap.String("bot", api.Self.UserName))
	return &Notifier{api: api, chatID: chatID, log: log}, nil
}

// SendShoppingList formats and sends the aggregated list plus manual
// items.
func (n *Notifier) SendShoppingList(aggregate []household.AggregateItem, manual []household.ManualItem) error {
	msg := tgbotapi.NewMessage(n.chatID, formatList(aggregate, manual))
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send shopping list: %w", err)
	}
	n.log.Info("shopping list pushed to telegram")
	return nil
}

// formatList renders the message body. Checked entries are skipped;
// they are already in the cart.
func formatList(aggregate []household.AggregateItem, manual []household.ManualItem) string {
	var sb strings.Builder
	sb.WriteString("🛒 Shopping list\n")

	for _, item := range aggregate {
		if item.Checked {
			continue
		}
		if item.Count > 1 {
			fmt.Fprintf(&sb, "• %s (x%d)\n", item.Name, item.Count)
		} else {
			fmt.Fprintf(&sb, "• %s\n", item.Name)
		}
	}
	for _, item := range manual {
		if item.Checked {
			continue
		}
		fmt.Fprintf(&sb, "• %s\n", item.Name)
	}
	return sb.String()
}
