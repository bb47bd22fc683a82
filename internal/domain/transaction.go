package domain

import (
	"fmt"
	"time"

	"ledger-service/pkg/xerrors"
)

// TransactionType represents the type of transfer
type TransactionType string

const (
	TransactionTypeBank TransactionType = "BANK"
	TransactionTypePeer TransactionType = "PEER_TO_PEER"
)

// Transaction is an immutable ledger record. It is created exactly once by
// the transfer engine and never updated or deleted afterwards.
type Transaction struct {
	ID           string          `json:"id"`
	Type         TransactionType `json:"type"`
	TransactorID string          `json:"transactor_id"`
	RecipientID  string          `json:"recipient_id,omitempty"`
	Amount       int64           `json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransferRequest is a proposed transfer before any store access.
type TransferRequest struct {
	Type         TransactionType
	TransactorID string
	RecipientID  string
	Amount       int64
}

// ValidateBank checks the shape of a bank transfer request. Pure, no I/O.
func (r *TransferRequest) ValidateBank() error {
	if r.Type != TransactionTypeBank {
		return fmt.Errorf("%w: transaction type must be %s", xerrors.ErrInvalidRequest, TransactionTypeBank)
	}
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", xerrors.ErrInvalidRequest)
	}
	if r.TransactorID == "" {
		return fmt.Errorf("%w: transactor id required", xerrors.ErrInvalidRequest)
	}
	return nil
}

// ValidatePeer checks the shape of a peer transfer request. Pure, no I/O.
func (r *TransferRequest) ValidatePeer() error {
	if r.Type != TransactionTypePeer {
		return fmt.Errorf("%w: transaction type must be %s", xerrors.ErrInvalidRequest, TransactionTypePeer)
	}
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", xerrors.ErrInvalidRequest)
	}
	if r.TransactorID == "" {
		return fmt.Errorf("%w: transactor id required", xerrors.ErrInvalidRequest)
	}
	if r.RecipientID == "" {
		return fmt.Errorf("%w: recipient id required", xerrors.ErrInvalidRequest)
	}
	if r.TransactorID == r.RecipientID {
		return fmt.Errorf("%w: transactor and recipient must be different", xerrors.ErrInvalidRequest)
	}
	return nil
}
