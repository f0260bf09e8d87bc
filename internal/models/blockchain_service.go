package models

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BlockchainService represents the chain RPC provider the scanner reads from.
type BlockchainService interface {
	GetLatestBlock(ctx context.Context) (uint64, error)
	// GetLogs returns the logs emitted by token in [from, to]. It does not split
	// the range; callers must respect the provider's per-call block span.
	GetLogs(ctx context.Context, token common.Address, from, to uint64) ([]types.Log, error)
}

// TokenMetadata describes an ERC-20 token.
type TokenMetadata struct {
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// TokenService reads ERC-20 state.
type TokenService interface {
	TokenMetadata(ctx context.Context) (*TokenMetadata, error)
	TokenBalance(ctx context.Context, owner common.Address) (*big.Int, error)
}
