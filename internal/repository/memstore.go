package repository

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ledger-service/internal/domain"
	"ledger-service/pkg/xerrors"
)

// MemStore is an in-memory LedgerStore with the same optimistic commit
// semantics as the Postgres store: every document carries a version stamp,
// snapshot reads record the version they saw, and a commit aborts with
// ErrTxConflict when any read document changed underneath it. It backs the
// test suite and the dev profile; nothing in it survives a restart.
type MemStore struct {
	mu     sync.Mutex
	policy RetryPolicy
	log    *zap.Logger

	accounts     map[string]*accountDoc
	transactions map[string]*domain.Transaction
}

type accountDoc struct {
	acc     domain.Account
	version uint64
}

func NewMemStore(policy RetryPolicy, log *zap.Logger) *MemStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemStore{
		policy:       policy,
		log:          log,
		accounts:     make(map[string]*accountDoc),
		transactions: make(map[string]*domain.Transaction),
	}
}

// memTx buffers reads and staged writes for one attempt.
type memTx struct {
	store *MemStore

	// versions seen by reads; version 0 means "read as absent"
	accountReads map[string]uint64

	stagedAccounts map[string]stagedAccount
	stagedTxns     []*domain.Transaction
}

type stagedAccount struct {
	balance        int64
	transactionIDs []string
}

func (s *MemStore) RunAtomic(ctx context.Context, fn func(tx AtomicTx) error) error {
	return runWithRetry(ctx, s.policy, s.log, func() error {
		tx := &memTx{
			store:          s,
			accountReads:   make(map[string]uint64),
			stagedAccounts: make(map[string]stagedAccount),
		}
		if err := fn(tx); err != nil {
			return err
		}
		return s.commit(tx)
	})
}

func (s *MemStore) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Conflict check: every document read by the closure must be untouched.
	for id, seen := range tx.accountReads {
		current := uint64(0)
		if doc, ok := s.accounts[id]; ok {
			current = doc.version
		}
		if current != seen {
			return fmt.Errorf("%w: account %s changed during transaction", xerrors.ErrTxConflict, id)
		}
	}
	for _, txn := range tx.stagedTxns {
		if _, exists := s.transactions[txn.ID]; exists {
			return fmt.Errorf("%w: id %s", xerrors.ErrTransactionExists, txn.ID)
		}
	}

	for id, staged := range tx.stagedAccounts {
		doc, ok := s.accounts[id]
		if !ok {
			return fmt.Errorf("%w: staged update for unknown account %s", xerrors.ErrAccountNotFound, id)
		}
		doc.acc.Balance = staged.balance
		doc.acc.TransactionIDs = append([]string(nil), staged.transactionIDs...)
		doc.version++
	}
	for _, txn := range tx.stagedTxns {
		cp := *txn
		s.transactions[txn.ID] = &cp
	}
	return nil
}

func (tx *memTx) ReadAccount(_ context.Context, id string) (*domain.Account, bool, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	doc, ok := tx.store.accounts[id]
	if !ok {
		tx.accountReads[id] = 0
		return nil, false, nil
	}
	tx.accountReads[id] = doc.version
	cp := doc.acc
	cp.TransactionIDs = append([]string(nil), doc.acc.TransactionIDs...)
	return &cp, true, nil
}

func (tx *memTx) ReadTransaction(_ context.Context, id string) (*domain.Transaction, bool, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	txn, ok := tx.store.transactions[id]
	if !ok {
		return nil, false, nil
	}
	cp := *txn
	return &cp, true, nil
}

func (tx *memTx) StageAccountUpdate(id string, balance int64, transactionIDs []string) {
	tx.stagedAccounts[id] = stagedAccount{
		balance:        balance,
		transactionIDs: append([]string(nil), transactionIDs...),
	}
}

func (tx *memTx) StageTransactionCreate(txn *domain.Transaction) {
	cp := *txn
	tx.stagedTxns = append(tx.stagedTxns, &cp)
}

func (s *MemStore) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", xerrors.ErrAccountNotFound, id)
	}
	cp := doc.acc
	cp.TransactionIDs = append([]string(nil), doc.acc.TransactionIDs...)
	return &cp, nil
}

func (s *MemStore) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", xerrors.ErrTransactionNotFound, id)
	}
	cp := *txn
	return &cp, nil
}

func (s *MemStore) CreateAccount(_ context.Context, acc *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[acc.ID]; exists {
		return fmt.Errorf("%w: %s", xerrors.ErrAccountExists, acc.ID)
	}
	cp := *acc
	cp.TransactionIDs = append([]string(nil), acc.TransactionIDs...)
	s.accounts[acc.ID] = &accountDoc{acc: cp, version: 1}
	return nil
}

// DeleteTransaction removes a record directly, bypassing versioning. Test
// hook for simulating a corrupt reverse index; never used by the engine.
func (s *MemStore) DeleteTransaction(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transactions, id)
}
