package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	appinv "github.com/erp/warehouse/internal/application/inventory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLocker struct {
	acquired [][]string
	released int
	err      error
}

func (l *recordingLocker) Acquire(_ context.Context, keys []string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, keys)
	return func() { l.released++ }, nil
}

func TestGormTransactionScope_Postgres(t *testing.T) {
	t.Run("takes advisory locks in key order", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		locker := &recordingLocker{}
		scope := NewGormTransactionScope(db, locker)

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
			WithArgs("a").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
			WithArgs("b").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		called := false
		err := scope.Execute(context.Background(), []string{"b", "a", "b"}, func(repos appinv.TransactionalRepositories) error {
			called = true
			assert.NotNil(t, repos.BatchRepo())
			assert.NotNil(t, repos.RecordRepo())
			assert.NotNil(t, repos.TransactionRepo())
			assert.NotNil(t, repos.ProductionOrderRepo())
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, [][]string{{"a", "b"}}, locker.acquired)
		assert.Equal(t, 1, locker.released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		scope := NewGormTransactionScope(db, nil)

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := scope.Execute(context.Background(), nil, func(appinv.TransactionalRepositories) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("locker failure skips the transaction", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		locker := &recordingLocker{err: errors.New("busy")}
		scope := NewGormTransactionScope(db, locker)

		err := scope.Execute(context.Background(), []string{"a"}, func(appinv.TransactionalRepositories) error {
			t.Fatal("fn must not run")
			return nil
		})
		assert.EqualError(t, err, "busy")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormTransactionScope_SQLiteRollback(t *testing.T) {
	db := newSQLiteDB(t)
	scope := NewGormTransactionScope(db, nil)
	ctx := context.Background()

	batch := mustBatch(t, uuid.New(), uuid.New(), "ROLLBACK1", "3", testDay, nil)
	boom := errors.New("abort")
	err := scope.Execute(ctx, []string{"k"}, func(repos appinv.TransactionalRepositories) error {
		if err := repos.BatchRepo().Create(ctx, batch); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := NewGormStockBatchRepository(db).ExistsByCode(ctx, "ROLLBACK1")
	require.NoError(t, err)
	assert.False(t, exists)

	err = scope.Execute(ctx, []string{"k"}, func(repos appinv.TransactionalRepositories) error {
		return repos.BatchRepo().Create(ctx, batch)
	})
	require.NoError(t, err)
	got, err := NewGormStockBatchRepository(db).FindByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, "ROLLBACK1", got.BatchCode)
}
