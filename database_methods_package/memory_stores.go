package database_methods

import (
	"context"
	"fmt"
	"sort"
	"sync"

	models "fin-ledger/models_package"
	"fin-ledger/models_package/options"
)

var (
	_ models.UserStore          = (*MemoryStore)(nil)
	_ models.BankStore          = (*MemoryStore)(nil)
	_ models.TransactionStore   = (*MemoryStore)(nil)
	_ models.TransactionHistory = (*MemoryStore)(nil)
)

// MemoryStore keeps users, banks and transactions in process memory. It
// backs local runs without Postgres and the handler tests. The mutex
// plays the role of the unique index on user names.
type MemoryStore struct {
	mu           sync.Mutex
	users        map[string]models.User
	banks        map[string]models.Bank
	transactions []models.Transaction
	nextID       int64
}

func NewMemoryStore(bankNames ...string) *MemoryStore {
	s := &MemoryStore{
		users: make(map[string]models.User),
		banks: make(map[string]models.Bank),
	}
	for _, name := range bankNames {
		s.AddBank(name)
	}
	return s
}

// AddBank registers a bank if its name is not known yet and returns it.
func (s *MemoryStore) AddBank(name string) models.Bank {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bank, ok := s.banks[name]; ok {
		return bank
	}
	bank := models.Bank{ID: s.newID(), Name: name}
	s.banks[name] = bank
	return bank
}

func (s *MemoryStore) FindUserByName(_ context.Context, name string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[name]
	if !ok {
		return nil, fmt.Errorf("finding user: %w", models.ErrNotFound)
	}
	return &user, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Name]; exists {
		return fmt.Errorf("creating user %q: %w", user.Name, models.ErrDuplicateUser)
	}
	user.ID = s.newID()
	s.users[user.Name] = *user
	return nil
}

func (s *MemoryStore) FindBankByName(_ context.Context, name string) (*models.Bank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bank, ok := s.banks[name]
	if !ok {
		return nil, fmt.Errorf("finding bank: %w", models.ErrNotFound)
	}
	return &bank, nil
}

func (s *MemoryStore) CreateTransaction(_ context.Context, transaction *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasBankID(transaction.FromBank) || !s.hasBankID(transaction.ToBank) {
		return fmt.Errorf("creating transaction: %w", models.ErrBankNotFound)
	}
	transaction.ID = s.newID()
	s.transactions = append(s.transactions, *transaction)
	return nil
}

func (s *MemoryStore) FindTransactions(_ context.Context, opts *options.TransactionOptions) ([]*models.Transaction, error) {
	if opts == nil {
		opts = options.NewTransactionOptions()
	}

	s.mu.Lock()
	var result []*models.Transaction
	for i := range s.transactions {
		t := s.transactions[i]
		if opts.Party != "" && t.FromUser != opts.Party && t.ToUser != opts.Party {
			continue
		}
		if !opts.Amount.Contains(t.Amount) || !opts.Timestamp.Contains(t.CreatedAt) {
			continue
		}
		result = append(result, &t)
	}
	s.mu.Unlock()

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// Transactions returns a copy of every stored transaction in insertion
// order.
func (s *MemoryStore) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Transaction(nil), s.transactions...)
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) hasBankID(id int64) bool {
	for _, bank := range s.banks {
		if bank.ID == id {
			return true
		}
	}
	return false
}

func (s *MemoryStore) newID() int64 {
	s.nextID++
	return s.nextID
}
