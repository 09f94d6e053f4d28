package models

import (
	"context"

	"fin-ledger/models_package/options"
)

// UserStore looks up and creates users by their unique name.
// FindUserByName returns ErrNotFound when no user matches and CreateUser
// returns ErrDuplicateUser when the name is already taken.
type UserStore interface {
	FindUserByName(ctx context.Context, name string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
}

// BankStore resolves banks by name. Returns ErrNotFound for unknown names.
type BankStore interface {
	FindBankByName(ctx context.Context, name string) (*Bank, error)
}

// TransactionStore persists a single transaction row. On success the
// row's ID is filled in.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, transaction *Transaction) error
}

// TransactionHistory queries stored transactions.
type TransactionHistory interface {
	FindTransactions(ctx context.Context, opts *options.TransactionOptions) ([]*Transaction, error)
}
