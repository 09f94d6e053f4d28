package database_methods

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	models "fin-ledger/models_package"
)

var (
	_ models.UserStore        = (*GormStore)(nil)
	_ models.BankStore        = (*GormStore)(nil)
	_ models.TransactionStore = (*GormStore)(nil)
)

// GormStore implements the user, bank and transaction stores on Postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindUserByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&user).Error
	if err != nil {
		return nil, lookupError("user", err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("creating user %q: %w", user.Name, models.ErrDuplicateUser)
	}
	if err != nil {
		return fmt.Errorf("creating user: %w: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *GormStore) FindBankByName(ctx context.Context, name string) (*models.Bank, error) {
	var bank models.Bank
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&bank).Error
	if err != nil {
		return nil, lookupError("bank", err)
	}
	return &bank, nil
}

func (s *GormStore) CreateTransaction(ctx context.Context, transaction *models.Transaction) error {
	err := s.db.WithContext(ctx).Create(transaction).Error
	if isForeignKeyViolation(err) {
		return fmt.Errorf("creating transaction: %w", models.ErrBankNotFound)
	}
	if err != nil {
		return fmt.Errorf("creating transaction: %w: %v", models.ErrStorageUnavailable, err)
	}
	return nil
}

// Ping reports whether the underlying pool still reaches the server.
func (s *GormStore) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func lookupError(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("finding %s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("finding %s: %w: %v", what, models.ErrStorageUnavailable, err)
}
