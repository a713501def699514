package models

import "gorm.io/gorm"

// Settlement records the terminal outcome of a game: who got paid, how
// much left the pot, and the result code. Written once per game when it
// reaches its abandoned state.
type Settlement struct {
	gorm.Model
	GameID     uint64 `gorm:"uniqueIndex;not null"`
	Result     string `gorm:"size:20;not null"`
	Recipients string `gorm:"size:512;not null"` // comma separated, payout order
	Paid       int64  `gorm:"not null"`
}
