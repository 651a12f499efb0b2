package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/talentbridge/talentbridge-backend/pkg/db/models"
	"github.com/talentbridge/talentbridge-backend/pkg/enums"
)

func newMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewRepository(conn), mock
}

func TestLockAccountSelectsForUpdate(t *testing.T) {
	repo, mock := newMockRepository(t)
	owner := Owner{Type: enums.OwnerTypeConsultant, ID: uuid.New()}
	accountID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM "virtual_accounts" WHERE owner_type = \$1 AND owner_id = \$2 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_type", "owner_id", "currency", "balance", "total_credits",
			"total_debits", "status", "version", "created_at", "updated_at",
		}).AddRow(accountID.String(), "consultant", owner.ID.String(), "USD", "250.00", "300.00", "50.00", "active", int64(4), now, now))

	account, err := repo.LockAccount(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, accountID, account.ID)
	assert.Equal(t, "250", account.Balance.String())
	assert.Equal(t, int64(4), account.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBalanceIsVersionGuarded(t *testing.T) {
	repo, mock := newMockRepository(t)
	account := &models.VirtualAccount{ID: uuid.New(), Version: 5}

	mock.ExpectExec(`UPDATE "virtual_accounts" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateBalance(context.Background(), account, 4))

	mock.ExpectExec(`UPDATE "virtual_accounts" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateBalance(context.Background(), account, 4)
	assert.ErrorIs(t, err, errVersionConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}
