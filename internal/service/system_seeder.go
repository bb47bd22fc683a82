package service

import (
	"context"
	"errors"
	"log"

	"ledger-service/internal/domain"
	"ledger-service/internal/repository"
	"ledger-service/pkg/xerrors"
)

// SystemSeeder provisions demo accounts so a fresh dev environment has
// something to transfer between. Account creation in production belongs to
// the profile service; the seeder is only wired when LEDGER_SEED_DEMO is
// set and silently skips accounts that already exist.
type SystemSeeder struct {
	store repository.LedgerStore
}

func NewSystemSeeder(store repository.LedgerStore) *SystemSeeder {
	return &SystemSeeder{store: store}
}

var demoAccounts = []*domain.Account{
	{
		ID:          "alice@demo.ledger",
		AccountType: domain.AccountTypeCustomer,
		Balance:     10_000,
	},
	{
		ID:          "bob@demo.ledger",
		AccountType: domain.AccountTypeCustomer,
		Balance:     500,
	},
	{
		ID:          "store@demo.ledger",
		AccountType: domain.AccountTypeMerchant,
		Balance:     0,
	},
}

// SeedSystem creates the demo accounts that don't exist yet.
func (s *SystemSeeder) SeedSystem(ctx context.Context) error {
	log.Println("Seeding demo ledger accounts...")

	for _, acc := range demoAccounts {
		err := s.store.CreateAccount(ctx, acc)
		if errors.Is(err, xerrors.ErrAccountExists) {
			continue
		}
		if err != nil {
			return err
		}
		log.Printf("Seeded account %s (%s)", acc.ID, acc.AccountType)
	}

	log.Println("Demo seeding completed")
	return nil
}
