package models

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	tests := []struct {
		name     string
		amount   *big.Int
		decimals int32
		want     string
	}{
		{"usdc", big.NewInt(5000000), 6, "5"},
		{"fraction", big.NewInt(1), 6, "0.000001"},
		{"no decimals", big.NewInt(42), 0, "42"},
		{"beyond uint64", huge, 18, "123456789012.34567890123456789"},
		{"nil", nil, 6, "0"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatAmount(tt.amount, tt.decimals))
		})
	}
}

func TestNotificationString(t *testing.T) {
	t.Parallel()

	n := &Notification{
		TxHash:      "0xabc",
		BlockNumber: 100,
		Sender:      "0xaaa",
		Vault:       "0xvaa",
		Amount:      big.NewInt(5000000),
		Currency:    "USDC",
		Decimals:    6,
	}
	assert.Equal(t, "Deposit of 5 USDC to 0xvaa from 0xaaa (block 100, tx 0xabc)", n.String())
}
