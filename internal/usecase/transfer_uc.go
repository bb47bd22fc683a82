package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ledger-service/internal/domain"
	"ledger-service/internal/pub"
	"ledger-service/internal/repository"
	"ledger-service/pkg/utils"
	"ledger-service/pkg/xerrors"
)

// TransferTimeout bounds the total time one logical transfer may spend
// across all conflict-retry attempts.
const TransferTimeout = 5 * time.Second

// TransferUsecase is the transfer engine. It validates a proposed
// transfer, then runs the read-check-write sequence inside one atomic
// store transaction: debit (and credit) balances, append the new id to the
// participants' reverse indexes, and create the immutable transaction
// record. Conflicting concurrent transfers on the same account are retried
// by the store; everything inside the closure is recomputed from scratch
// on each attempt, including the transaction id.
type TransferUsecase struct {
	store     repository.LedgerStore
	ids       *utils.TransactionIDGenerator
	policy    domain.RecipientPolicy
	publisher *pub.TransferEventPublisher
	log       *zap.Logger
}

func NewTransferUsecase(
	store repository.LedgerStore,
	ids *utils.TransactionIDGenerator,
	policy domain.RecipientPolicy,
	publisher *pub.TransferEventPublisher,
	log *zap.Logger,
) *TransferUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &TransferUsecase{
		store:     store,
		ids:       ids,
		policy:    policy,
		publisher: publisher,
		log:       log,
	}
}

// ProcessBankTransfer debits the transactor's ledger balance in favor of
// their linked external bank account. Only the transactor's document and
// the new transaction record are touched.
func (uc *TransferUsecase) ProcessBankTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.Transaction, error) {
	if err := req.ValidateBank(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, TransferTimeout)
	defer cancel()

	var out *domain.Transaction
	err := uc.store.RunAtomic(ctx, func(tx repository.AtomicTx) error {
		transactor, found, err := tx.ReadAccount(ctx, req.TransactorID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: transactor %s", xerrors.ErrAccountNotFound, req.TransactorID)
		}
		if transactor.Balance < req.Amount {
			return fmt.Errorf("%w: balance %d, requested %d",
				xerrors.ErrInsufficientBalance, transactor.Balance, req.Amount)
		}

		txn := &domain.Transaction{
			ID:           uc.ids.Next(),
			Type:         domain.TransactionTypeBank,
			TransactorID: transactor.ID,
			Amount:       req.Amount,
			CreatedAt:    time.Now().UTC(),
		}

		tx.StageAccountUpdate(transactor.ID, transactor.Balance-req.Amount,
			append(transactor.TransactionIDs, txn.ID))
		tx.StageTransactionCreate(txn)

		// Settlement against the linked external bank account happens in a
		// downstream system; the ledger only records the debit.

		out = txn
		return nil
	})
	if err != nil {
		uc.log.Warn("bank transfer rejected",
			zap.String("transactor", req.TransactorID),
			zap.Int64("amount", req.Amount),
			zap.Error(err),
		)
		return nil, err
	}

	uc.log.Info("bank transfer committed",
		zap.String("txn_id", out.ID),
		zap.String("transactor", out.TransactorID),
		zap.Int64("amount", out.Amount),
	)
	uc.publish(ctx, out)
	return out, nil
}

// ProcessPeerTransfer moves funds between two ledger accounts. The two
// balance mutations, both index appends, and the record creation commit
// together or not at all, so the combined balance of the pair is conserved.
func (uc *TransferUsecase) ProcessPeerTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.Transaction, error) {
	if err := req.ValidatePeer(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, TransferTimeout)
	defer cancel()

	var out *domain.Transaction
	err := uc.store.RunAtomic(ctx, func(tx repository.AtomicTx) error {
		transactor, found, err := tx.ReadAccount(ctx, req.TransactorID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: transactor %s", xerrors.ErrAccountNotFound, req.TransactorID)
		}
		recipient, found, err := tx.ReadAccount(ctx, req.RecipientID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: recipient %s", xerrors.ErrAccountNotFound, req.RecipientID)
		}

		if !uc.policy.EligibleRecipient(recipient.AccountType) {
			return fmt.Errorf("%w: %s is %s", xerrors.ErrIneligibleRecipient,
				recipient.ID, recipient.AccountType)
		}
		if transactor.Balance < req.Amount {
			return fmt.Errorf("%w: balance %d, requested %d",
				xerrors.ErrInsufficientBalance, transactor.Balance, req.Amount)
		}

		txn := &domain.Transaction{
			ID:           uc.ids.Next(),
			Type:         domain.TransactionTypePeer,
			TransactorID: transactor.ID,
			RecipientID:  recipient.ID,
			Amount:       req.Amount,
			CreatedAt:    time.Now().UTC(),
		}

		tx.StageAccountUpdate(transactor.ID, transactor.Balance-req.Amount,
			append(transactor.TransactionIDs, txn.ID))
		tx.StageAccountUpdate(recipient.ID, recipient.Balance+req.Amount,
			append(recipient.TransactionIDs, txn.ID))
		tx.StageTransactionCreate(txn)

		out = txn
		return nil
	})
	if err != nil {
		uc.log.Warn("peer transfer rejected",
			zap.String("transactor", req.TransactorID),
			zap.String("recipient", req.RecipientID),
			zap.Int64("amount", req.Amount),
			zap.Error(err),
		)
		return nil, err
	}

	uc.log.Info("peer transfer committed",
		zap.String("txn_id", out.ID),
		zap.String("transactor", out.TransactorID),
		zap.String("recipient", out.RecipientID),
		zap.Int64("amount", out.Amount),
	)
	uc.publish(ctx, out)
	return out, nil
}

// publish emits the transfer event after commit. Event delivery is best
// effort and never fails a committed transfer.
func (uc *TransferUsecase) publish(ctx context.Context, txn *domain.Transaction) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishTransferCompleted(ctx, txn); err != nil {
		uc.log.Warn("failed to publish transfer event",
			zap.String("txn_id", txn.ID),
			zap.Error(err),
		)
	}
}
