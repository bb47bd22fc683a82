package hrest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"ledger-service/internal/domain"
	"ledger-service/internal/usecase"
	"ledger-service/pkg/response"
	"ledger-service/pkg/xerrors"
)

// LedgerRestHandler exposes the transfer engine and the transaction read
// paths over HTTP. Session validation happens in middleware before any of
// these run; handlers trust the request reached the engine boundary.
type LedgerRestHandler struct {
	transferUC *usecase.TransferUsecase
	txnUC      *usecase.TransactionUsecase
}

func NewLedgerRestHandler(transferUC *usecase.TransferUsecase, txnUC *usecase.TransactionUsecase) *LedgerRestHandler {
	return &LedgerRestHandler{
		transferUC: transferUC,
		txnUC:      txnUC,
	}
}

// RegisterRoutes mounts the ledger endpoints on the given router.
func (h *LedgerRestHandler) RegisterRoutes(r chi.Router) {
	r.Route("/transfer", func(r chi.Router) {
		r.Post("/bank", h.RequestBankTransfer)
		r.Post("/peer", h.RequestPeerTransfer)
	})
	r.Route("/transaction", func(r chi.Router) {
		r.Get("/test", h.Test)
		r.Get("/{id}", h.GetSingleTransaction)
		r.Get("/", h.GetAllTransactionsForOwner)
	})
}

// TransferJSON is the wire shape of a transfer request. Amount arrives as
// a JSON number of minor units; fractional values are rejected.
type TransferJSON struct {
	Type         string      `json:"type"`
	TransactorID string      `json:"transactorId"`
	RecipientID  string      `json:"recipientId,omitempty"`
	Amount       json.Number `json:"amount"`
}

// TransactionJSON is the wire shape of a transaction record.
type TransactionJSON struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	TransactorID  string `json:"transactorId"`
	RecipientID   string `json:"recipientId,omitempty"`
	Amount        int64  `json:"amount"`
	DisplayAmount string `json:"displayAmount"`
	CreatedAt     string `json:"createdAt"`
}

func toTransactionJSON(txn *domain.Transaction) TransactionJSON {
	return TransactionJSON{
		ID:            txn.ID,
		Type:          string(txn.Type),
		TransactorID:  txn.TransactorID,
		RecipientID:   txn.RecipientID,
		Amount:        txn.Amount,
		DisplayAmount: domain.FormatMinorUnits(txn.Amount),
		CreatedAt:     txn.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func decodeTransfer(r *http.Request) (*domain.TransferRequest, error) {
	var in TransferJSON
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		return nil, xerrors.ErrInvalidRequest
	}

	amount := int64(0)
	if in.Amount != "" {
		parsed, err := domain.ParseMinorUnits(in.Amount.String())
		if err != nil {
			return nil, err
		}
		amount = parsed
	}

	return &domain.TransferRequest{
		Type:         domain.TransactionType(in.Type),
		TransactorID: in.TransactorID,
		RecipientID:  in.RecipientID,
		Amount:       amount,
	}, nil
}

// Test is a reachability probe for the transaction endpoints.
func (h *LedgerRestHandler) Test(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("message")
	if msg == "" {
		response.Message(w, http.StatusOK, "Success! No message supplied", nil)
		return
	}
	response.Message(w, http.StatusOK, "Success! Here is your message: "+msg, nil)
}

func (h *LedgerRestHandler) RequestBankTransfer(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTransfer(r)
	if err != nil {
		handleLedgerError(w, err)
		return
	}

	txn, err := h.transferUC.ProcessBankTransfer(r.Context(), req)
	if err != nil {
		handleLedgerError(w, err)
		return
	}
	response.Message(w, http.StatusOK, "Transaction successful!", toTransactionJSON(txn))
}

func (h *LedgerRestHandler) RequestPeerTransfer(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTransfer(r)
	if err != nil {
		handleLedgerError(w, err)
		return
	}

	txn, err := h.transferUC.ProcessPeerTransfer(r.Context(), req)
	if err != nil {
		handleLedgerError(w, err)
		return
	}
	response.Message(w, http.StatusOK, "Transaction successful!", toTransactionJSON(txn))
}

func (h *LedgerRestHandler) GetSingleTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, http.StatusBadRequest, "transaction id required")
		return
	}

	txn, err := h.txnUC.GetTransaction(r.Context(), id)
	if err != nil {
		handleLedgerError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, toTransactionJSON(txn))
}

func (h *LedgerRestHandler) GetAllTransactionsForOwner(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("ownerId")
	if ownerID == "" {
		response.Error(w, http.StatusBadRequest, "ownerId query parameter required")
		return
	}

	txns, err := h.txnUC.GetAllForAccount(r.Context(), ownerID)
	if err != nil {
		handleLedgerError(w, err)
		return
	}

	out := make([]TransactionJSON, 0, len(txns))
	for _, txn := range txns {
		out = append(out, toTransactionJSON(txn))
	}
	response.JSON(w, http.StatusOK, out)
}

// handleLedgerError maps engine errors to transport status codes. This is
// the only place HTTP semantics attach to ledger failures.
func handleLedgerError(w http.ResponseWriter, err error) {
	status := xerrors.HTTPStatus(err)

	logger := log.WithFields(log.Fields{
		"error":       err.Error(),
		"http_status": status,
	})
	if status >= http.StatusInternalServerError {
		logger.Error("ledger request failed")
	} else {
		logger.Warn("ledger request rejected")
	}

	response.Error(w, status, err.Error())
}
