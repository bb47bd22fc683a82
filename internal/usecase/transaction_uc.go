package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"
)

const (
	// fanOutLimit caps concurrent record fetches when resolving an
	// account's transaction history.
	fanOutLimit = 16

	// txnCacheTTL bounds the Redis cache of transaction records. Records
	// are immutable, so the TTL only limits memory, not staleness.
	txnCacheTTL = 30 * time.Minute

	txnCachePrefix = "ledger:txn:"
)

// TransactionUsecase answers the read paths: a single transaction by id,
// and the full history of an account resolved through its reverse index.
type TransactionUsecase struct {
	store repository.LedgerStore
	rdb   *redis.Client // optional; nil disables caching
	log   *zap.Logger
}

func NewTransactionUsecase(store repository.LedgerStore, rdb *redis.Client, log *zap.Logger) *TransactionUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &TransactionUsecase{store: store, rdb: rdb, log: log}
}

// GetTransaction is a point lookup. Fetched records are cached in Redis;
// cache failures fall through to the store.
func (uc *TransactionUsecase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	if txn := uc.cacheGet(ctx, id); txn != nil {
		return txn, nil
	}

	txn, err := uc.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	uc.cacheSet(ctx, txn)
	return txn, nil
}

// GetAllForAccount reconstructs the account's history by following its
// reverse index. Records are fetched with bounded fan-out and returned in
// the index's stored order. Ids that no longer resolve to a record are
// skipped: a corrupt index should degrade the history, not hide it.
func (uc *TransactionUsecase) GetAllForAccount(ctx context.Context, accountID string) ([]*domain.Transaction, error) {
	acc, err := uc.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	fetched := make([]*domain.Transaction, len(acc.TransactionIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for i, id := range acc.TransactionIDs {
		g.Go(func() error {
			txn, err := uc.GetTransaction(gctx, id)
			if err != nil {
				uc.log.Warn("skipping unresolvable transaction id",
					zap.String("account", accountID),
					zap.String("txn_id", id),
					zap.Error(err),
				)
				return nil
			}
			fetched[i] = txn
			return nil
		})
	}
	_ = g.Wait() // workers only report via the fetched slice

	txns := make([]*domain.Transaction, 0, len(fetched))
	for _, txn := range fetched {
		if txn != nil {
			txns = append(txns, txn)
		}
	}
	return txns, nil
}

func (uc *TransactionUsecase) cacheGet(ctx context.Context, id string) *domain.Transaction {
	if uc.rdb == nil {
		return nil
	}
	raw, err := uc.rdb.Get(ctx, txnCachePrefix+id).Bytes()
	if err != nil {
		return nil // miss or cache outage, same answer
	}
	var txn domain.Transaction
	if err := json.Unmarshal(raw, &txn); err != nil {
		return nil
	}
	return &txn
}

func (uc *TransactionUsecase) cacheSet(ctx context.Context, txn *domain.Transaction) {
	if uc.rdb == nil {
		return
	}
	raw, err := json.Marshal(txn)
	if err != nil {
		return
	}
	if err := uc.rdb.Set(ctx, txnCachePrefix+txn.ID, raw, txnCacheTTL).Err(); err != nil {
		uc.log.Debug("transaction cache write failed", zap.String("txn_id", txn.ID), zap.Error(err))
	}
}
