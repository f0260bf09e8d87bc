package models

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

type NotificationService interface {
	SendNotification(ctx context.Context, notification *Notification)
}

type Notification struct {
	TxHash      string   `json:"tx_hash"`
	BlockNumber uint64   `json:"block_number"`
	Sender      string   `json:"sender"`
	Vault       string   `json:"vault"`
	Amount      *big.Int `json:"amount"`
	Currency    string   `json:"currency"`
	Decimals    int32    `json:"decimals"`
}

// FormatAmount renders a raw integer token amount using the token's decimals.
func FormatAmount(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

func (n *Notification) String() string {
	return fmt.Sprintf("Deposit of %s %s to %s from %s (block %d, tx %s)",
		FormatAmount(n.Amount, n.Decimals), n.Currency, n.Vault, n.Sender, n.BlockNumber, n.TxHash)
}
