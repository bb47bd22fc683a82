package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"
	"ledger-service/pkg/xerrors"
)

func seedHistory(t *testing.T, store *repository.MemStore, accountID string, n int) []string {
	t.Helper()
	ctx := context.Background()

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("txn-%03d", i)
	}

	err := store.RunAtomic(ctx, func(tx repository.AtomicTx) error {
		for i, id := range ids {
			tx.StageTransactionCreate(&domain.Transaction{
				ID:           id,
				Type:         domain.TransactionTypeBank,
				TransactorID: accountID,
				Amount:       int64(100 * (i + 1)),
				CreatedAt:    time.Now().UTC(),
			})
		}
		tx.StageAccountUpdate(accountID, 0, ids)
		return nil
	})
	require.NoError(t, err)
	return ids
}

func TestGetTransaction(t *testing.T) {
	store := repository.NewMemStore(repository.DefaultRetryPolicy(), nil)
	require.NoError(t, store.CreateAccount(context.Background(), customer("alice@test", 10_000)))
	seedHistory(t, store, "alice@test", 1)

	uc := NewTransactionUsecase(store, nil, nil)

	txn, err := uc.GetTransaction(context.Background(), "txn-000")
	require.NoError(t, err)
	assert.Equal(t, "txn-000", txn.ID)
	assert.Equal(t, "alice@test", txn.TransactorID)
	assert.Equal(t, int64(100), txn.Amount)
}

func TestGetTransactionNotFound(t *testing.T) {
	store := repository.NewMemStore(repository.DefaultRetryPolicy(), nil)
	uc := NewTransactionUsecase(store, nil, nil)

	_, err := uc.GetTransaction(context.Background(), "nope")
	assert.ErrorIs(t, err, xerrors.ErrTransactionNotFound)
}

func TestGetAllForAccount(t *testing.T) {
	store := repository.NewMemStore(repository.DefaultRetryPolicy(), nil)
	require.NoError(t, store.CreateAccount(context.Background(), customer("alice@test", 10_000)))
	ids := seedHistory(t, store, "alice@test", 25)

	uc := NewTransactionUsecase(store, nil, nil)

	txns, err := uc.GetAllForAccount(context.Background(), "alice@test")
	require.NoError(t, err)
	require.Len(t, txns, len(ids))
	for i, txn := range txns {
		assert.Equal(t, ids[i], txn.ID, "history must come back in index order")
		assert.Equal(t, "alice@test", txn.TransactorID)
		assert.Equal(t, int64(100*(i+1)), txn.Amount)
	}
}

func TestGetAllForAccountEmptyHistory(t *testing.T) {
	store := repository.NewMemStore(repository.DefaultRetryPolicy(), nil)
	require.NoError(t, store.CreateAccount(context.Background(), customer("alice@test", 10_000)))

	uc := NewTransactionUsecase(store, nil, nil)

	txns, err := uc.GetAllForAccount(context.Background(), "alice@test")
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestGetAllForAccountSkipsUnresolvableIDs(t *testing.T) {
	store := repository.NewMemStore(repository.DefaultRetryPolicy(), nil)
	require.NoError(t, store.CreateAccount(context.Background(), customer("alice@test", 10_000)))
	ids := seedHistory(t, store, "alice@test", 5)

	// Simulate a dangling index entry.
	store.DeleteTransaction(ids[2])

	uc := NewTransactionUsecase(store, nil, nil)

	txns, err := uc.GetAllForAccount(context.Background(), "alice@test")
	require.NoError(t, err)
	require.Len(t, txns, 4)

	got := make([]string, len(txns))
	for i, txn := range txns {
		got[i] = txn.ID
	}
	assert.Equal(t, []string{"txn-000", "txn-001", "txn-003", "txn-004"}, got)
}

func TestGetAllForAccountUnknownAccount(t *testing.T) {
	store := repository.NewMemStore(repository.DefaultRetryPolicy(), nil)
	uc := NewTransactionUsecase(store, nil, nil)

	_, err := uc.GetAllForAccount(context.Background(), "ghost@test")
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)
}
