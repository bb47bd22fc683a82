package utils

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TransactionIDGenerator mints globally unique transaction ids.
//
// IDs are ULIDs (26 characters, timestamp-prefixed, URL-safe), so the
// transaction collection sorts roughly by creation time without an extra
// index. Monotonic entropy guarantees uniqueness for ids minted within
// the same millisecond.
// Example: 01ARZ3NDEKTSV4RRFFQ69G5FAV
type TransactionIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewTransactionIDGenerator creates a generator backed by crypto/rand.
func NewTransactionIDGenerator() *TransactionIDGenerator {
	return &TransactionIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Next returns a fresh transaction id. Safe for concurrent use.
func (g *TransactionIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return id.String()
}
