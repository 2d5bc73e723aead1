package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func clearTransitions(ctx context.Context, tx DBTX) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM transitions")
	return err
}

func TestWithTx_Commit(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM transitions").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, WithTx(context.Background(), db, nil, clearTransitions))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	boom := errors.New("disk I/O error")
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM transitions").WillReturnError(boom)
	mock.ExpectRollback()

	err := WithTx(context.Background(), db, nil, clearTransitions)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	boom := errors.New("database is locked")
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM transitions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit().WillReturnError(boom)

	err := WithTx(context.Background(), db, nil, clearTransitions)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
			panic("kaput")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	boom := errors.New("no connection")
	mock.ExpectBegin().WillReturnError(boom)

	called := false
	err := WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}
