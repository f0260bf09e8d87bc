package notificator

import (
	"context"
	"runtime/debug"

	"github.com/core-coin/vault-indexer/internal/models"
	"github.com/core-coin/vault-indexer/pkg/logger"
)

// messageSender delivers a rendered message to a chat.
type messageSender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Notificator fans deposit notifications out to the configured channels. With no
// channel configured it only logs.
type Notificator struct {
	logger *logger.Logger

	chatID   string
	telegram messageSender
}

func NewNotificator(logger *logger.Logger, chatID string, telegram *TelegramNotificator) *Notificator {
	n := &Notificator{logger: logger, chatID: chatID}
	// a nil *TelegramNotificator must not end up as a non-nil interface
	if telegram != nil {
		n.telegram = telegram
	}
	return n
}

// safeCall runs a function with panic recovery (synchronous, no goroutine spawning)
func (n *Notificator) safeCall(fn func(), context string) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// SendNotification delivers the deposit message. Delivery failures are logged
// and never returned, so a broken channel cannot stall indexing.
func (n *Notificator) SendNotification(ctx context.Context, notification *models.Notification) {
	message := notification.String()
	if n.telegram == nil || n.chatID == "" {
		n.logger.Debug("No notification channel configured", "message", message)
		return
	}

	n.safeCall(func() {
		if err := n.telegram.SendMessage(ctx, n.chatID, message); err != nil {
			n.logger.Error("Failed to send telegram notification", "tx_hash", notification.TxHash, "error", err)
		}
	}, "telegramNotification")
}
