package models

// Checkpoint records the last block height fully processed for a named source.
// There is at most one row per source; writes are upserts keyed by Source.
type Checkpoint struct {
	// Source names the scanner that owns the checkpoint (e.g. "arbitrum_vault").
	Source string `json:"source" gorm:"column:source;primaryKey;size:128"`
	// LastBlockNumber is the highest block whose logs were fully processed.
	LastBlockNumber uint64 `json:"last_block_number" gorm:"column:last_block_number;not null"`
	// UpdatedAt is the unix timestamp of the last write.
	UpdatedAt int64 `json:"updated_at" gorm:"column:updated_at;not null"`
}

// TableName specifies the table name for GORM
func (Checkpoint) TableName() string {
	return "indexer_progress"
}
