// Package treasury implements the registry's fund movements on top of
// wallet rows. Every movement runs in a database transaction and leaves
// a ledger entry, so a settlement with several legs either credits all
// of them or none.
package treasury

import (
	"errors"
	"fmt"

	"stakepot/backend/internal/models"
	"stakepot/backend/internal/registry"

	"gorm.io/gorm"
)

// ErrInsufficientFunds is returned when a wallet cannot cover an escrow.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnknownWallet is returned when an address has no wallet row.
var ErrUnknownWallet = errors.New("unknown wallet address")

// Ledger is a gorm-backed registry.Treasury.
type Ledger struct {
	db *gorm.DB
}

// New creates a Ledger on the given database handle.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Escrow debits amount from the wallet at from and records the movement
// against gameID. The debit and the ledger entry commit together. The
// balance guard lives in the UPDATE itself, so writers outside this
// process cannot race the wallet into overdraft.
func (l *Ledger) Escrow(gameID uint64, from string, amount int64) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Wallet{}).
			Where("address = ? AND balance >= ?", from, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.Wallet{}).
				Where("address = ?", from).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", ErrUnknownWallet, from)
			}
			return fmt.Errorf("%w: %s cannot cover %d", ErrInsufficientFunds, from, amount)
		}
		return tx.Create(&models.LedgerEntry{
			GameID:  gameID,
			Address: from,
			Amount:  -amount,
			Kind:    models.LedgerKindEscrow,
		}).Error
	})
}

// Payout credits every leg of a settlement. Any missing wallet or failed
// write rolls back the whole batch.
func (l *Ledger) Payout(gameID uint64, credits []registry.Credit) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		for _, c := range credits {
			res := tx.Model(&models.Wallet{}).
				Where("address = ?", c.To).
				Update("balance", gorm.Expr("balance + ?", c.Amount))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", ErrUnknownWallet, c.To)
			}
			if err := tx.Create(&models.LedgerEntry{
				GameID:  gameID,
				Address: c.To,
				Amount:  c.Amount,
				Kind:    models.LedgerKindPayout,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Mint credits a wallet outside of any game. Used by the administrative
// faucet endpoint.
func (l *Ledger) Mint(address string, amount int64) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Wallet{}).
			Where("address = ?", address).
			Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrUnknownWallet, address)
		}
		return tx.Create(&models.LedgerEntry{
			Address: address,
			Amount:  amount,
			Kind:    models.LedgerKindMint,
		}).Error
	})
}
