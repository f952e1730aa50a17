package models

import "time"

// LedgerRecord is one schemaless document of a ledger collection, stored as
// jsonb. Seq preserves the in-collection order across whole-collection
// rewrites.
type LedgerRecord struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Collection string `gorm:"size:64;not null;index:idx_ledger_collection_seq"`
	Seq        int    `gorm:"not null;index:idx_ledger_collection_seq"`
	Doc        string `gorm:"type:jsonb;not null"`
}
