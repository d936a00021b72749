package ports

import "context"

// LedgerRepository is a read-only view of the order ledger.
type LedgerRepository interface {
	// CountTransactionsByCustomer returns the lifetime transaction count of each customer in one query.
	// Customers without transactions are absent from the map.
	CountTransactionsByCustomer(ctx context.Context, customerIDs []int64) (map[int64]int, error)
}

// TokenStore is a read-only view of registered push device tokens.
type TokenStore interface {
	TokensForCustomer(ctx context.Context, customerID int64) ([]string, error)
}
