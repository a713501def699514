package models

import "gorm.io/gorm"

// Wallet holds a user's spendable balance. Games escrow stakes out of
// wallets and settlements pay back into them; the address is the
// payable identity the registry sees.
type Wallet struct {
	gorm.Model
	UserID  uint   `gorm:"uniqueIndex;not null"`
	Address string `gorm:"size:64;uniqueIndex;not null"`
	Balance int64  `gorm:"not null;default:0"`
}
