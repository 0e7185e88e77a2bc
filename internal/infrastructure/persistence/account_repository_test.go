package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welfare/backend/internal/domain/ledger"
	"github.com/welfare/backend/internal/domain/shared"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockAccountRepository creates a GormAccountRepository with a mocked SQL connection
func newMockAccountRepository(t *testing.T) (*GormAccountRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormAccountRepository(&Database{DB: gormDB}), mock, mockDB
}

func accountColumns() []string {
	return []string{"id", "code", "name", "type", "subtype", "normal_balance", "opening_balance", "current_balance", "is_system", "active"}
}

func TestGormAccountRepository_FindByID(t *testing.T) {
	t.Run("finds existing account", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()
		rows := sqlmock.NewRows(accountColumns()).
			AddRow(accountID, "1000", "Cash", "ASSET", "", "DEBIT", decimal.Zero, decimal.NewFromInt(75000), true, true)

		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(accountID, 1).
			WillReturnRows(rows)

		account, err := repo.FindByID(context.Background(), accountID)

		assert.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, accountID, account.ID)
		assert.Equal(t, "1000", account.Code)
		assert.Equal(t, ledger.NormalBalanceDebit, account.NormalBalance)
		assert.True(t, account.CurrentBalance.Equal(decimal.NewFromInt(75000)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing account", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(accountID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		account, err := repo.FindByID(context.Background(), accountID)

		assert.Nil(t, account)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_FindByCode(t *testing.T) {
	t.Run("finds account by code", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		rows := sqlmock.NewRows(accountColumns()).
			AddRow(uuid.New(), "4000", "Contribution Revenue", "REVENUE", "", "CREDIT", decimal.Zero, decimal.Zero, true, true)

		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE code = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("4000", 1).
			WillReturnRows(rows)

		account, err := repo.FindByCode(context.Background(), "4000")

		assert.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, "4000", account.Code)
		assert.Equal(t, ledger.AccountTypeRevenue, account.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_FindByCodes(t *testing.T) {
	t.Run("returns empty map for empty codes", func(t *testing.T) {
		repo, _, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accounts, err := repo.FindByCodes(context.Background(), []string{})

		assert.NoError(t, err)
		assert.Empty(t, accounts)
	})

	t.Run("keys results by code", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		rows := sqlmock.NewRows(accountColumns()).
			AddRow(uuid.New(), "1000", "Cash", "ASSET", "", "DEBIT", decimal.Zero, decimal.Zero, true, true).
			AddRow(uuid.New(), "4000", "Contribution Revenue", "REVENUE", "", "CREDIT", decimal.Zero, decimal.Zero, true, true)

		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE code IN \(\$1,\$2\)`).
			WithArgs("1000", "4000").
			WillReturnRows(rows)

		accounts, err := repo.FindByCodes(context.Background(), []string{"1000", "4000"})

		assert.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "Cash", accounts["1000"].Name)
		assert.Equal(t, "Contribution Revenue", accounts["4000"].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_FindAll(t *testing.T) {
	t.Run("applies type and active filters", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		rows := sqlmock.NewRows(accountColumns()).
			AddRow(uuid.New(), "1000", "Cash", "ASSET", "", "DEBIT", decimal.Zero, decimal.Zero, true, true).
			AddRow(uuid.New(), "1100", "Penalty Receivable", "ASSET", "", "DEBIT", decimal.Zero, decimal.Zero, true, true)

		assetType := ledger.AccountTypeAsset
		mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE type = \$1 AND active = \$2 ORDER BY code ASC`).
			WithArgs(assetType, true).
			WillReturnRows(rows)

		accounts, err := repo.FindAll(context.Background(), ledger.AccountFilter{
			Type:       &assetType,
			ActiveOnly: true,
		})

		assert.NoError(t, err)
		assert.Len(t, accounts, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_Count(t *testing.T) {
	t.Run("counts with the same filters and no pagination", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "accounts" WHERE active = \$1`).
			WithArgs(true).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		total, err := repo.Count(context.Background(), ledger.AccountFilter{ActiveOnly: true})

		assert.NoError(t, err)
		assert.Equal(t, int64(7), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_Save(t *testing.T) {
	t.Run("saves account", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		account, err := ledger.NewAccount("1000", "Cash", ledger.AccountTypeAsset, "", decimal.Zero)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "accounts" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Save(context.Background(), account)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("translates duplicate code to ErrDuplicateKey", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		account, err := ledger.NewAccount("1000", "Cash", ledger.AccountTypeAsset, "", decimal.Zero)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "accounts" SET`).
			WillReturnError(gorm.ErrDuplicatedKey)

		err = repo.Save(context.Background(), account)

		assert.Equal(t, shared.ErrDuplicateKey, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_ApplyDelta(t *testing.T) {
	t.Run("increments the stored balance relative to its current value", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()
		mock.ExpectExec(`UPDATE "accounts" SET "current_balance"=current_balance \+ \$1,"updated_at"=\$2 WHERE id = \$3`).
			WithArgs(decimal.NewFromInt(25000), sqlmock.AnyArg(), accountID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.ApplyDelta(context.Background(), accountID, decimal.NewFromInt(25000))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when no row matches", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()
		mock.ExpectExec(`UPDATE "accounts" SET "current_balance"=current_balance \+ \$1,"updated_at"=\$2 WHERE id = \$3`).
			WithArgs(decimal.NewFromInt(-100), sqlmock.AnyArg(), accountID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.ApplyDelta(context.Background(), accountID, decimal.NewFromInt(-100))

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_HasPostedLines(t *testing.T) {
	t.Run("returns true when posted lines reference the account", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "journal_lines" JOIN journal_entries`).
			WithArgs(accountID, ledger.EntryStatusPosted, ledger.EntryStatusReversed).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		used, err := repo.HasPostedLines(context.Background(), accountID)

		assert.NoError(t, err)
		assert.True(t, used)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns false for an untouched account", func(t *testing.T) {
		repo, mock, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		accountID := uuid.New()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "journal_lines" JOIN journal_entries`).
			WithArgs(accountID, ledger.EntryStatusPosted, ledger.EntryStatusReversed).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		used, err := repo.HasPostedLines(context.Background(), accountID)

		assert.NoError(t, err)
		assert.False(t, used)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAccountRepository_InterfaceCompliance(t *testing.T) {
	t.Run("implements AccountRepository interface", func(t *testing.T) {
		repo, _, mockDB := newMockAccountRepository(t)
		defer mockDB.Close()

		var _ ledger.AccountRepository = repo
	})
}
