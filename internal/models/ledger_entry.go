package models

import "gorm.io/gorm"

// LedgerEntryKind classifies a fund movement.
type LedgerEntryKind string

const (
	// LedgerKindEscrow is a debit drawing a stake into a game's pot.
	LedgerKindEscrow LedgerEntryKind = "escrow"
	// LedgerKindPayout is a credit disbursing from a settled pot.
	LedgerKindPayout LedgerEntryKind = "payout"
	// LedgerKindMint is an administrative credit with no game attached.
	LedgerKindMint LedgerEntryKind = "mint"
)

// LedgerEntry is one row of the audit trail: every wallet movement the
// treasury performs is recorded here, signed from the wallet's point of
// view (escrows negative, credits positive).
type LedgerEntry struct {
	gorm.Model
	GameID  uint64          `gorm:"index"`
	Address string          `gorm:"size:64;index;not null"`
	Amount  int64           `gorm:"not null"`
	Kind    LedgerEntryKind `gorm:"size:20;not null"`
}
