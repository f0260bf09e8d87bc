package models

const (
	// DepositStatusConfirmed is the only status this indexer writes.
	DepositStatusConfirmed = "confirmed"
)

// Deposit is one token transfer into the vault, keyed by transaction hash.
// Rows are written once and never updated by the indexer.
type Deposit struct {
	// TxHash is the 0x-prefixed lowercase transaction hash.
	TxHash string `json:"tx_hash" gorm:"column:tx_hash;primaryKey;size:66"`
	// BlockNumber is the height of the block containing the transfer.
	BlockNumber uint64 `json:"block_number" gorm:"column:block_number;not null;index"`
	// TxIndex is the position of the transaction within the block, when known.
	TxIndex *uint `json:"tx_index,omitempty" gorm:"column:tx_index"`
	// LogIndex is the position of the log within the block, when known.
	LogIndex *uint `json:"log_index,omitempty" gorm:"column:log_index"`
	// Sender is the token sender.
	Sender string `json:"sender" gorm:"column:sender;size:42;not null;index"`
	// ToAddress is the vault address.
	ToAddress string `json:"to_address" gorm:"column:to_address;size:42;not null"`
	// AmountWei is the raw token amount as a base-10 integer string.
	AmountWei string `json:"amount_wei" gorm:"column:amount_wei;size:78;not null"`
	// TokenAddress is the token contract that emitted the transfer.
	TokenAddress string `json:"token_address" gorm:"column:token_address;size:42;not null"`
	Status       string `json:"status" gorm:"column:status;size:32;not null;default:confirmed"`
	CreatedAt    int64  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Deposit) TableName() string {
	return "vault_deposits"
}
