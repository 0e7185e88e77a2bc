package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welfare/backend/internal/domain/shared"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockSettingsStore(t *testing.T) (*GormSettingsStore, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormSettingsStore(&Database{DB: gormDB}), mock, mockDB
}

func settingRows(pairs map[string]string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "key", "value", "description", "created_at", "updated_at"})
	for key, value := range pairs {
		rows.AddRow(uuid.New(), key, value, "", time.Now(), time.Now())
	}
	return rows
}

func TestGormSettingsStore_Snapshot(t *testing.T) {
	t.Run("overrides defaults with stored values", func(t *testing.T) {
		store, mock, mockDB := newMockSettingsStore(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "settings"`).
			WillReturnRows(settingRows(map[string]string{
				"monthly_contribution_amount": "60000",
				"penalty_percentage_rate":     "12.5",
				"penalty_due_day":             "10",
			}))

		cfg, err := store.Snapshot(context.Background())

		require.NoError(t, err)
		assert.True(t, cfg.ContributionAmount.Equal(decimal.NewFromInt(60000)))
		assert.True(t, cfg.PenaltyRate.Equal(decimal.NewFromFloat(12.5)))
		assert.Equal(t, 10, cfg.PenaltyDueDay)
		assert.Equal(t, "1000", cfg.CashAccountCode, "unset keys keep defaults")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a stored zero contribution amount", func(t *testing.T) {
		// The allocation engines cannot run on a non-positive amount, so a
		// snapshot carrying one is an error, never a working configuration.
		store, mock, mockDB := newMockSettingsStore(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "settings"`).
			WillReturnRows(settingRows(map[string]string{
				"monthly_contribution_amount": "0",
			}))

		_, err := store.Snapshot(context.Background())

		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("rejects an unparsable stored value", func(t *testing.T) {
		store, mock, mockDB := newMockSettingsStore(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "settings"`).
			WillReturnRows(settingRows(map[string]string{
				"penalty_percentage_rate": "ten percent",
			}))

		_, err := store.Snapshot(context.Background())

		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})
}
