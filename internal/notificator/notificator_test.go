package notificator

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-coin/vault-indexer/internal/models"
	"github.com/core-coin/vault-indexer/pkg/logger/loggertest"
)

type recordingSender struct {
	chatIDs  []string
	messages []string
	err      error
	panics   bool
}

func (s *recordingSender) SendMessage(_ context.Context, chatID, text string) error {
	if s.panics {
		panic("telegram exploded")
	}
	s.chatIDs = append(s.chatIDs, chatID)
	s.messages = append(s.messages, text)
	return s.err
}

type staticCheckpoints struct {
	height uint64
	exists bool
	err    error
}

func (s staticCheckpoints) GetCheckpoint(context.Context, string) (uint64, bool, error) {
	return s.height, s.exists, s.err
}

func (s staticCheckpoints) SetCheckpoint(context.Context, string, uint64) error {
	return nil
}

func testNotification() *models.Notification {
	return &models.Notification{
		TxHash:      "0xabc",
		BlockNumber: 100,
		Sender:      "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Vault:       "0x1111111111111111111111111111111111111111",
		Amount:      big.NewInt(5_000_000),
		Currency:    "USDC",
		Decimals:    6,
	}
}

func TestNotificator_SendNotification(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	n := &Notificator{logger: loggertest.New(t), chatID: "42", telegram: sender}

	n.SendNotification(context.Background(), testNotification())

	require.Len(t, sender.messages, 1)
	assert.Equal(t, "42", sender.chatIDs[0])
	assert.Equal(t, testNotification().String(), sender.messages[0])
	assert.Contains(t, sender.messages[0], "Deposit of 5 USDC")
}

func TestNotificator_SendFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	n := &Notificator{logger: loggertest.New(t), chatID: "42", telegram: &recordingSender{err: errors.New("blocked by user")}}
	assert.NotPanics(t, func() { n.SendNotification(context.Background(), testNotification()) })

	n = &Notificator{logger: loggertest.New(t), chatID: "42", telegram: &recordingSender{panics: true}}
	assert.NotPanics(t, func() { n.SendNotification(context.Background(), testNotification()) })
}

func TestNotificator_WithoutChannel(t *testing.T) {
	t.Parallel()

	n := NewNotificator(loggertest.New(t), "42", nil)
	assert.Nil(t, n.telegram)
	assert.NotPanics(t, func() { n.SendNotification(context.Background(), testNotification()) })

	sender := &recordingSender{}
	n = &Notificator{logger: loggertest.New(t), telegram: sender}
	n.SendNotification(context.Background(), testNotification())
	assert.Empty(t, sender.messages, "no chat id configured")
}

func TestTelegramNotificator_Reply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		text        string
		checkpoints staticCheckpoints
		want        string
		ok          bool
	}{
		{name: "start", text: "/start", want: "Vault indexer bot. Set TELEGRAM_CHAT_ID=7 to receive deposit notifications here.", ok: true},
		{name: "status", text: "/status", checkpoints: staticCheckpoints{height: 123, exists: true}, want: "arbitrum_vault: indexed up to block 123.", ok: true},
		{name: "status before first scan", text: "/status", want: "arbitrum_vault: no blocks indexed yet.", ok: true},
		{name: "status store error", text: "/status", checkpoints: staticCheckpoints{err: errors.New("db down")}, want: "Status is unavailable right now.", ok: true},
		{name: "other text", text: "hello", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tg := &TelegramNotificator{logger: loggertest.New(t), source: "arbitrum_vault", checkpoints: tt.checkpoints}
			got, ok := tg.reply(context.Background(), tt.text, "7")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
