package domain

// AccountType distinguishes customer wallets from merchant accounts.
type AccountType string

const (
	AccountTypeCustomer AccountType = "CUSTOMER"
	AccountTypeMerchant AccountType = "MERCHANT"
)

// Account is the ledger view of an account document. Profile fields
// (username, password hash, picture, linked bank details) are owned by the
// profile service and never travel through the transfer engine.
//
// The id is the account's email. Balance is in minor currency units and is
// never negative. TransactionIDs is the reverse index of every transaction
// the account participated in; the engine only ever appends to it.
type Account struct {
	ID             string      `json:"id"`
	AccountType    AccountType `json:"account_type"`
	Balance        int64       `json:"balance"`
	TransactionIDs []string    `json:"transaction_ids"`
}

// RecipientPolicy decides which account types may receive peer transfers.
// The restriction is policy, not invariant: deployments that allow
// merchant-to-merchant payouts disable it.
type RecipientPolicy struct {
	RestrictToCustomers bool
}

// EligibleRecipient reports whether an account of the given type may be
// credited by a peer transfer under this policy.
func (p RecipientPolicy) EligibleRecipient(t AccountType) bool {
	if !p.RestrictToCustomers {
		return true
	}
	return t == AccountTypeCustomer
}
