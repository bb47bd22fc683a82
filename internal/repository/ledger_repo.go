package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"ledger-service/internal/domain"
	"ledger-service/pkg/xerrors"
)

// SQLSTATE codes the store classifies on commit.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgCheckViolation       = "23514"
)

// PostgresStore is the production LedgerStore. Atomic blocks run as
// serializable pgx transactions: Postgres detects conflicting concurrent
// commits at commit time (serialization_failure), which runWithRetry turns
// into fresh re-executions of the closure.
type PostgresStore struct {
	db     *pgxpool.Pool
	policy RetryPolicy
	log    *zap.Logger
}

func NewPostgresStore(db *pgxpool.Pool, policy RetryPolicy, log *zap.Logger) *PostgresStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{db: db, policy: policy, log: log}
}

// EnsureSchema creates the accounts and transactions tables when missing.
// The balance check backs up the engine's own invariant.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id              TEXT PRIMARY KEY,
			account_type    TEXT NOT NULL,
			balance         BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			transaction_ids TEXT[] NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id            TEXT PRIMARY KEY,
			txn_type      TEXT NOT NULL,
			transactor_id TEXT NOT NULL,
			recipient_id  TEXT,
			amount        BIGINT NOT NULL CHECK (amount > 0),
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// pgTx stages writes in memory and flushes them just before commit, so a
// closure that fails validation never issues a write statement.
type pgTx struct {
	tx pgx.Tx

	stagedAccounts map[string]stagedAccount
	stagedOrder    []string
	stagedTxns     []*domain.Transaction
}

func (s *PostgresStore) RunAtomic(ctx context.Context, fn func(tx AtomicTx) error) error {
	return runWithRetry(ctx, s.policy, s.log, func() error {
		return s.attempt(ctx, fn)
	})
}

func (s *PostgresStore) attempt(ctx context.Context, fn func(tx AtomicTx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("%w: begin: %v", xerrors.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx) // no-op once committed

	ptx := &pgTx{
		tx:             tx,
		stagedAccounts: make(map[string]stagedAccount),
	}
	if err := fn(ptx); err != nil {
		return err
	}
	if err := ptx.flush(ctx); err != nil {
		return classifyPGError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyPGError(err)
	}
	return nil
}

func (ptx *pgTx) ReadAccount(ctx context.Context, id string) (*domain.Account, bool, error) {
	var acc domain.Account
	err := ptx.tx.QueryRow(ctx, `
		SELECT id, account_type, balance, transaction_ids
		FROM accounts
		WHERE id = $1
	`, id).Scan(&acc.ID, &acc.AccountType, &acc.Balance, &acc.TransactionIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classifyPGError(err)
	}
	return &acc, true, nil
}

func (ptx *pgTx) ReadTransaction(ctx context.Context, id string) (*domain.Transaction, bool, error) {
	txn, err := scanTransaction(ptx.tx.QueryRow(ctx, `
		SELECT id, txn_type, transactor_id, recipient_id, amount, created_at
		FROM transactions
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classifyPGError(err)
	}
	return txn, true, nil
}

func (ptx *pgTx) StageAccountUpdate(id string, balance int64, transactionIDs []string) {
	if _, seen := ptx.stagedAccounts[id]; !seen {
		ptx.stagedOrder = append(ptx.stagedOrder, id)
	}
	ptx.stagedAccounts[id] = stagedAccount{
		balance:        balance,
		transactionIDs: append([]string(nil), transactionIDs...),
	}
}

func (ptx *pgTx) StageTransactionCreate(txn *domain.Transaction) {
	cp := *txn
	ptx.stagedTxns = append(ptx.stagedTxns, &cp)
}

func (ptx *pgTx) flush(ctx context.Context) error {
	for _, id := range ptx.stagedOrder {
		staged := ptx.stagedAccounts[id]
		tag, err := ptx.tx.Exec(ctx, `
			UPDATE accounts
			SET balance = $2, transaction_ids = $3
			WHERE id = $1
		`, id, staged.balance, staged.transactionIDs)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: staged update for unknown account %s", xerrors.ErrAccountNotFound, id)
		}
	}
	for _, txn := range ptx.stagedTxns {
		var recipient *string
		if txn.RecipientID != "" {
			recipient = &txn.RecipientID
		}
		if txn.CreatedAt.IsZero() {
			txn.CreatedAt = time.Now().UTC()
		}
		_, err := ptx.tx.Exec(ctx, `
			INSERT INTO transactions (id, txn_type, transactor_id, recipient_id, amount, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, txn.ID, txn.Type, txn.TransactorID, recipient, txn.Amount, txn.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var acc domain.Account
	err := s.db.QueryRow(ctx, `
		SELECT id, account_type, balance, transaction_ids
		FROM accounts
		WHERE id = $1
	`, id).Scan(&acc.ID, &acc.AccountType, &acc.Balance, &acc.TransactionIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", xerrors.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, classifyPGError(err)
	}
	return &acc, nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	txn, err := scanTransaction(s.db.QueryRow(ctx, `
		SELECT id, txn_type, transactor_id, recipient_id, amount, created_at
		FROM transactions
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", xerrors.ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, classifyPGError(err)
	}
	return txn, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acc *domain.Account) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (id, account_type, balance, transaction_ids)
		VALUES ($1, $2, $3, $4)
	`, acc.ID, acc.AccountType, acc.Balance, acc.TransactionIDs)
	if err != nil {
		if xerrors.ParsePGErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("%w: %s", xerrors.ErrAccountExists, acc.ID)
		}
		return classifyPGError(err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	var recipient *string
	if err := row.Scan(&txn.ID, &txn.Type, &txn.TransactorID, &recipient, &txn.Amount, &txn.CreatedAt); err != nil {
		return nil, err
	}
	if recipient != nil {
		txn.RecipientID = *recipient
	}
	return &txn, nil
}

// classifyPGError translates driver failures into the ledger taxonomy so
// callers never match on SQLSTATE strings themselves.
func classifyPGError(err error) error {
	switch xerrors.ParsePGErrorCode(err) {
	case pgSerializationFailure:
		return fmt.Errorf("%w: %v", xerrors.ErrTxConflict, err)
	case pgUniqueViolation:
		return fmt.Errorf("%w: %v", xerrors.ErrTransactionExists, err)
	case pgCheckViolation:
		// The engine validates balances before staging; tripping the DB
		// check means a concurrent commit slipped past the snapshot.
		return fmt.Errorf("%w: %v", xerrors.ErrTxConflict, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", xerrors.ErrDeadlineExceeded, err)
	}
	if errors.Is(err, xerrors.ErrAccountNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", xerrors.ErrStoreUnavailable, err)
}
