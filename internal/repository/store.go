package repository

import (
	"context"

	"ledger-service/internal/domain"
)

// AtomicTx is the view of the ledger inside one optimistic transaction.
// Reads see a consistent snapshot; staged writes become visible only if the
// whole transaction commits. Closures passed to RunAtomic must stay free of
// external side effects, since they may run several times.
type AtomicTx interface {
	// ReadAccount returns a snapshot of the account, or found=false when no
	// such account exists. The read is tracked for conflict detection.
	ReadAccount(ctx context.Context, id string) (*domain.Account, bool, error)

	// ReadTransaction returns a snapshot of the transaction record.
	ReadTransaction(ctx context.Context, id string) (*domain.Transaction, bool, error)

	// StageAccountUpdate queues a balance/index write for the account.
	// The engine may only change these two fields.
	StageAccountUpdate(id string, balance int64, transactionIDs []string)

	// StageTransactionCreate queues creation of a transaction record. The
	// commit fails with ErrTransactionExists if the id is already taken.
	StageTransactionCreate(txn *domain.Transaction)
}

// LedgerStore is the document store holding the accounts and transactions
// collections. RunAtomic re-invokes fn from scratch when a concurrent
// commit invalidates its snapshot, up to the store's retry budget; after
// that the conflict surfaces as xerrors.ErrTxConflict. Deterministic
// business errors returned by fn abort immediately without retry.
type LedgerStore interface {
	RunAtomic(ctx context.Context, fn func(tx AtomicTx) error) error

	// GetAccount is a plain snapshot read outside any atomic transaction.
	GetAccount(ctx context.Context, id string) (*domain.Account, error)

	// GetTransaction is a point lookup of an immutable transaction record.
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)

	// CreateAccount inserts a fresh account document. Account creation
	// belongs to the profile service; the ledger exposes it for seeding
	// and tests and enforces the zero-balance starting state upstream.
	CreateAccount(ctx context.Context, acc *domain.Account) error
}
