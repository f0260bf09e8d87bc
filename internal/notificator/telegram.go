package notificator

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/core-coin/vault-indexer/internal/models"
	"github.com/core-coin/vault-indexer/pkg/logger"
)

const (
	commandStart  = "/start"
	commandStatus = "/status"
)

type TelegramNotificator struct {
	logger *logger.Logger
	bot    *bot.Bot

	source      string
	checkpoints models.CheckpointStore
}

// NewTelegramNotificator connects the bot and starts receiving updates until ctx is done.
// The bot answers /status with the indexing checkpoint of source.
func NewTelegramNotificator(ctx context.Context, logger *logger.Logger, token, source string, checkpoints models.CheckpointStore) (*TelegramNotificator, error) {
	provider := &TelegramNotificator{
		logger:      logger,
		source:      source,
		checkpoints: checkpoints,
	}
	opts := []bot.Option{
		bot.WithDefaultHandler(provider.handler),
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	go b.Start(ctx)
	provider.bot = b

	return provider, nil
}

func (t *TelegramNotificator) SendMessage(ctx context.Context, chatID, text string) error {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if _, err := t.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send message to chat %s: %w", chatID, err)
	}
	return nil
}

func (t *TelegramNotificator) handler(ctx context.Context, _ *bot.Bot, update *tgModels.Update) {
	if update.Message == nil {
		return
	}
	chatID := fmt.Sprint(update.Message.Chat.ID)
	t.logger.Debug("Telegram update", "chat_id", chatID, "text", update.Message.Text)

	reply, ok := t.reply(ctx, update.Message.Text, chatID)
	if !ok {
		return
	}
	if err := t.SendMessage(ctx, chatID, reply); err != nil {
		t.logger.Error("Failed to answer telegram command", "error", err)
	}
}

// reply maps a bot command to its answer. ok is false for text the bot ignores.
func (t *TelegramNotificator) reply(ctx context.Context, text, chatID string) (string, bool) {
	switch text {
	case commandStart:
		return fmt.Sprintf("Vault indexer bot. Set TELEGRAM_CHAT_ID=%s to receive deposit notifications here.", chatID), true
	case commandStatus:
		return t.status(ctx), true
	default:
		return "", false
	}
}

func (t *TelegramNotificator) status(ctx context.Context) string {
	height, exists, err := t.checkpoints.GetCheckpoint(ctx, t.source)
	if err != nil {
		t.logger.Error("Failed to read checkpoint for status", "error", err)
		return "Status is unavailable right now."
	}
	if !exists {
		return fmt.Sprintf("%s: no blocks indexed yet.", t.source)
	}
	return fmt.Sprintf("%s: indexed up to block %d.", t.source, height)
}
