package postgres

import (
	"context"
	"fmt"

	"git.platform.alem.school/amibragim/brew-events/internal/ports"

	"github.com/jackc/pgx/v5"
)

// Querier is the read surface of *pgxpool.Pool used by the repositories.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LedgerRepo reads lifetime transaction counts from the order ledger.
type LedgerRepo struct {
	db Querier
}

// NewLedgerRepo constructs a new LedgerRepo.
func NewLedgerRepo(db Querier) ports.LedgerRepository {
	return &LedgerRepo{db: db}
}

// CountTransactionsByCustomer groups the ledger by customer for all ids in a single round trip.
func (r *LedgerRepo) CountTransactionsByCustomer(ctx context.Context, customerIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(customerIDs))
	if len(customerIDs) == 0 {
		return counts, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT customer_id, COUNT(*)
		FROM transactions
		WHERE customer_id = ANY($1)
		GROUP BY customer_id
	`, customerIDs)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id int64
			n  int64
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan transaction count: %w", err)
		}
		counts[id] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}

	return counts, nil
}
