package treasury

import (
	"testing"

	"stakepot/backend/internal/registry"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return New(gormDB), mock
}

func TestEscrow(t *testing.T) {
	ledger, mock := setupMockDB(t)

	// the debit carries its own balance guard
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "wallets" SET .* WHERE \(address = \$\d+ AND balance >= \$\d+\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "ledger_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := ledger.Escrow(7, "addr-1", 40)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowInsufficientFunds(t *testing.T) {
	ledger, mock := setupMockDB(t)

	// guard matches no row, but the wallet exists: short on funds
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "wallets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "wallets"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := ledger.Escrow(7, "addr-1", 40)

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowUnknownWallet(t *testing.T) {
	ledger, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "wallets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "wallets"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := ledger.Escrow(7, "nobody", 40)

	assert.ErrorIs(t, err, ErrUnknownWallet)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutCreditsEveryLeg(t *testing.T) {
	ledger, mock := setupMockDB(t)

	mock.ExpectBegin()
	for range 2 {
		mock.ExpectExec(`UPDATE "wallets" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO "ledger_entries"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	}
	mock.ExpectCommit()

	err := ledger.Payout(7, []registry.Credit{
		{To: "addr-1", Amount: 50},
		{To: "addr-2", Amount: 50},
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRollsBackOnMissingWallet(t *testing.T) {
	ledger, mock := setupMockDB(t)

	// first leg lands, second leg hits no wallet: the whole batch must
	// roll back
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "wallets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "ledger_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(`UPDATE "wallets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := ledger.Payout(7, []registry.Credit{
		{To: "addr-1", Amount: 50},
		{To: "nobody", Amount: 50},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownWallet)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMint(t *testing.T) {
	ledger, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "wallets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "ledger_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	assert.NoError(t, ledger.Mint("addr-1", 500))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMintUnknownWallet(t *testing.T) {
	ledger, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "wallets" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, ledger.Mint("nobody", 500), ErrUnknownWallet)
	assert.NoError(t, mock.ExpectationsWereMet())
}
