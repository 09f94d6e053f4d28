package database_methods

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	models "fin-ledger/models_package"
	"fin-ledger/models_package/options"
)

var _ models.TransactionHistory = (*HistoryRepo)(nil)

// HistoryRepo reads transactions back out of Postgres through sqlx.
type HistoryRepo struct {
	db *sqlx.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: sqlx.NewDb(db, "postgres")}
}

const historyColumns = "id, from_user, to_user, from_bank, to_bank, from_card, to_card, amount, created_at"

// FindTransactions executes a filtered select and returns the matching
// transactions, newest first.
func (r *HistoryRepo) FindTransactions(ctx context.Context, opts *options.TransactionOptions) ([]*models.Transaction, error) {
	query, args, err := buildHistoryQuery(opts)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var result []*models.Transaction
	if err := r.db.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, fmt.Errorf("finding transactions: %w: %v", models.ErrStorageUnavailable, err)
	}
	return result, nil
}

// buildHistoryQuery renders opts into a query with '?' bind variables.
func buildHistoryQuery(opts *options.TransactionOptions) (string, []interface{}, error) {
	query := "SELECT " + historyColumns + " FROM transactions"
	if opts == nil {
		opts = options.NewTransactionOptions()
	}

	var where []string
	namedParams := make(map[string]interface{})

	addFilter := func(stmt, key string, value interface{}) {
		where = append(where, stmt)
		namedParams[key] = value
	}

	if opts.Party != "" {
		addFilter("(from_user = :party OR to_user = :party)", "party", opts.Party)
	}

	ranges := []struct {
		column string
		r      options.Range
	}{
		{"amount", opts.Amount},
		{"created_at", opts.Timestamp},
	}
	for _, each := range ranges {
		if isNilRange(each.r) {
			continue
		}
		if from, ok := each.r.From(); ok {
			key := each.column + "_from"
			addFilter(fmt.Sprintf("%s >= :%s", each.column, key), key, from)
		}
		if to, ok := each.r.To(); ok {
			key := each.column + "_to"
			addFilter(fmt.Sprintf("%s <= :%s", each.column, key), key, to)
		}
	}

	if len(where) > 0 {
		query = fmt.Sprintf("%s WHERE %s", query, strings.Join(where, " AND "))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT :limit"
		namedParams["limit"] = opts.Limit
	}

	query, args, err := sqlx.Named(query, namedParams)
	if err != nil {
		return "", nil, fmt.Errorf("binding history query: %w", err)
	}
	return query, args, nil
}

// isNilRange guards against typed nil pointers stored in the interface.
func isNilRange(r options.Range) bool {
	switch v := r.(type) {
	case nil:
		return true
	case *options.IntRange:
		return v == nil
	case *options.TimeRange:
		return v == nil
	}
	return false
}
