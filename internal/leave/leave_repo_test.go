package leave_test

import (
	"context"
	"testing"

	"go-hrms/internal/leave"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newGormOverMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)
	return gormDB, mock
}

func approvedUpdate(owner uuid.UUID) *leave.LeaveRequest {
	decidedBy := uuid.New()
	return &leave.LeaveRequest{
		ID:         uuid.New(),
		EmployeeID: owner,
		Status:     leave.StatusApproved,
		DecidedBy:  &decidedBy,
	}
}

// The status update must execute on the transaction handed in through
// WithTx, not on the pooled connection, so that the row change and the
// outbox insert commit or roll back as one unit.
func TestRepository_UpdateStatus_RidesCallerTransaction(t *testing.T) {
	ctx := context.Background()

	gormDB, poolMock := newGormOverMock(t)
	repo := leave.NewRepository(gormDB)

	txDB, txMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer txDB.Close()

	txMock.ExpectBegin()
	txMock.ExpectExec(`UPDATE "leave_requests" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	txMock.ExpectRollback()

	tx, err := txDB.BeginTx(ctx, nil)
	assert.NoError(t, err)

	rows, err := repo.WithTx(tx).UpdateStatus(ctx, approvedUpdate(uuid.New()), leave.StatusPending)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, tx.Rollback())

	// Nothing may have touched the pooled connection.
	assert.NoError(t, poolMock.ExpectationsWereMet())
	assert.NoError(t, txMock.ExpectationsWereMet())
}

func TestRepository_OverlapQueryRidesCallerTransaction(t *testing.T) {
	ctx := context.Background()

	gormDB, poolMock := newGormOverMock(t)
	repo := leave.NewRepository(gormDB)

	txDB, txMock, err := sqlmock.New()
	assert.NoError(t, err)
	defer txDB.Close()

	txMock.ExpectBegin()
	txMock.ExpectQuery(`SELECT count\(\*\) FROM "leave_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	txMock.ExpectRollback()

	tx, err := txDB.BeginTx(ctx, nil)
	assert.NoError(t, err)

	overlap, err := repo.WithTx(tx).HasOverlappingPeriod(
		ctx, uuid.New().String(), date("2024-03-04"), date("2024-03-08"), nil,
	)

	assert.NoError(t, err)
	assert.True(t, overlap)
	assert.NoError(t, tx.Rollback())

	assert.NoError(t, poolMock.ExpectationsWereMet())
	assert.NoError(t, txMock.ExpectationsWereMet())
}

// Without WithTx the repository works on the pooled connection; gorm
// wraps the write in its own transaction there.
func TestRepository_UpdateStatus_WithoutCallerTransaction(t *testing.T) {
	ctx := context.Background()

	gormDB, poolMock := newGormOverMock(t)
	repo := leave.NewRepository(gormDB)

	poolMock.ExpectBegin()
	poolMock.ExpectExec(`UPDATE "leave_requests" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	poolMock.ExpectCommit()

	rows, err := repo.UpdateStatus(ctx, approvedUpdate(uuid.New()), leave.StatusPending)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.NoError(t, poolMock.ExpectationsWereMet())
}
