package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-service/internal/domain"
	"ledger-service/pkg/xerrors"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 10,
		BackoffBase: 100 * time.Microsecond,
		BackoffCap:  time.Millisecond,
	}
}

func newTestStore(t *testing.T, accounts ...*domain.Account) *MemStore {
	t.Helper()
	s := NewMemStore(testPolicy(), nil)
	for _, acc := range accounts {
		require.NoError(t, s.CreateAccount(context.Background(), acc))
	}
	return s
}

func TestMemStoreCreateAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acc := &domain.Account{ID: "a@test", AccountType: domain.AccountTypeCustomer, Balance: 100}
	require.NoError(t, s.CreateAccount(ctx, acc))

	got, err := s.GetAccount(ctx, "a@test")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Balance)

	err = s.CreateAccount(ctx, acc)
	assert.ErrorIs(t, err, xerrors.ErrAccountExists)
}

func TestMemStoreGetAccountNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetAccount(context.Background(), "ghost@test")
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)
}

func TestMemStoreAtomicCommit(t *testing.T) {
	s := newTestStore(t, &domain.Account{ID: "a@test", AccountType: domain.AccountTypeCustomer, Balance: 500})
	ctx := context.Background()

	err := s.RunAtomic(ctx, func(tx AtomicTx) error {
		acc, found, err := tx.ReadAccount(ctx, "a@test")
		require.NoError(t, err)
		require.True(t, found)

		tx.StageAccountUpdate(acc.ID, acc.Balance-200, append(acc.TransactionIDs, "txn-1"))
		tx.StageTransactionCreate(&domain.Transaction{
			ID:           "txn-1",
			Type:         domain.TransactionTypeBank,
			TransactorID: acc.ID,
			Amount:       200,
		})
		return nil
	})
	require.NoError(t, err)

	acc, err := s.GetAccount(ctx, "a@test")
	require.NoError(t, err)
	assert.Equal(t, int64(300), acc.Balance)
	assert.Equal(t, []string{"txn-1"}, acc.TransactionIDs)

	txn, err := s.GetTransaction(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), txn.Amount)
}

func TestMemStoreBusinessErrorAbortsWithoutWrites(t *testing.T) {
	s := newTestStore(t, &domain.Account{ID: "a@test", AccountType: domain.AccountTypeCustomer, Balance: 500})
	ctx := context.Background()

	attempts := 0
	err := s.RunAtomic(ctx, func(tx AtomicTx) error {
		attempts++
		acc, _, _ := tx.ReadAccount(ctx, "a@test")
		tx.StageAccountUpdate(acc.ID, 0, acc.TransactionIDs)
		return xerrors.ErrInsufficientBalance
	})
	assert.ErrorIs(t, err, xerrors.ErrInsufficientBalance)
	assert.Equal(t, 1, attempts, "deterministic failures must not retry")

	acc, err := s.GetAccount(ctx, "a@test")
	require.NoError(t, err)
	assert.Equal(t, int64(500), acc.Balance, "aborted transaction must leave no writes")
}

func TestMemStoreDuplicateTransactionID(t *testing.T) {
	s := newTestStore(t, &domain.Account{ID: "a@test", AccountType: domain.AccountTypeCustomer, Balance: 500})
	ctx := context.Background()

	create := func(id string) error {
		return s.RunAtomic(ctx, func(tx AtomicTx) error {
			tx.StageTransactionCreate(&domain.Transaction{
				ID:           id,
				Type:         domain.TransactionTypeBank,
				TransactorID: "a@test",
				Amount:       1,
			})
			return nil
		})
	}

	require.NoError(t, create("dup"))
	err := create("dup")
	assert.ErrorIs(t, err, xerrors.ErrTransactionExists)
}

func TestMemStoreConflictRetriesWithFreshSnapshot(t *testing.T) {
	s := newTestStore(t, &domain.Account{ID: "a@test", AccountType: domain.AccountTypeCustomer, Balance: 100})
	ctx := context.Background()

	attempts := 0
	err := s.RunAtomic(ctx, func(tx AtomicTx) error {
		attempts++
		acc, _, err := tx.ReadAccount(ctx, "a@test")
		if err != nil {
			return err
		}

		if attempts == 1 {
			// Interleave a competing commit after our snapshot read; our
			// commit must then abort and the closure re-run.
			require.NoError(t, s.RunAtomic(ctx, func(inner AtomicTx) error {
				innerAcc, _, err := inner.ReadAccount(ctx, "a@test")
				if err != nil {
					return err
				}
				inner.StageAccountUpdate(innerAcc.ID, innerAcc.Balance-10, innerAcc.TransactionIDs)
				return nil
			}))
		}

		tx.StageAccountUpdate(acc.ID, acc.Balance-20, acc.TransactionIDs)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts, "first attempt should conflict, second should commit")

	acc, err := s.GetAccount(ctx, "a@test")
	require.NoError(t, err)
	assert.Equal(t, int64(70), acc.Balance, "both debits must be applied exactly once")
}

func TestMemStoreRetryExhaustion(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BackoffBase: 10 * time.Microsecond, BackoffCap: 100 * time.Microsecond}
	s := NewMemStore(policy, nil)
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, &domain.Account{ID: "a@test", AccountType: domain.AccountTypeCustomer, Balance: 1000}))

	attempts := 0
	err := s.RunAtomic(ctx, func(tx AtomicTx) error {
		attempts++
		acc, _, err := tx.ReadAccount(ctx, "a@test")
		if err != nil {
			return err
		}
		// Sabotage every attempt with a competing commit.
		require.NoError(t, s.RunAtomic(ctx, func(inner AtomicTx) error {
			innerAcc, _, err := inner.ReadAccount(ctx, "a@test")
			if err != nil {
				return err
			}
			inner.StageAccountUpdate(innerAcc.ID, innerAcc.Balance-1, innerAcc.TransactionIDs)
			return nil
		}))
		tx.StageAccountUpdate(acc.ID, acc.Balance-1, acc.TransactionIDs)
		return nil
	})
	assert.ErrorIs(t, err, xerrors.ErrTxConflict)
	assert.Equal(t, 3, attempts)
}

func TestMemStoreDeadlineBoundsRetries(t *testing.T) {
	s := newTestStore(t, &domain.Account{ID: "a@test", AccountType: domain.AccountTypeCustomer, Balance: 1000})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RunAtomic(ctx, func(tx AtomicTx) error {
		t.Fatal("closure must not run once the context is done")
		return nil
	})
	assert.ErrorIs(t, err, xerrors.ErrDeadlineExceeded)
}

func TestMemStoreReadAbsentThenCreatedConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	attempts := 0
	err := s.RunAtomic(ctx, func(tx AtomicTx) error {
		attempts++
		_, found, err := tx.ReadAccount(ctx, "late@test")
		if err != nil {
			return err
		}
		if attempts == 1 {
			require.False(t, found)
			// The account appears between our read and our commit.
			require.NoError(t, s.CreateAccount(ctx, &domain.Account{
				ID:          "late@test",
				AccountType: domain.AccountTypeCustomer,
			}))
			tx.StageTransactionCreate(&domain.Transaction{
				ID: "t-absent", Type: domain.TransactionTypeBank, TransactorID: "late@test", Amount: 1,
			})
			return nil
		}
		require.True(t, found, "retry must observe the newly created account")
		return errors.New("stop")
	})
	assert.EqualError(t, err, "stop")
	assert.Equal(t, 2, attempts)
}
