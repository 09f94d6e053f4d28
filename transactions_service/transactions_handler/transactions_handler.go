package transactions_handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	models "fin-ledger/models_package"
	"fin-ledger/models_package/options"
)

// TokenValidator recovers the subject from a bearer token.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// Publisher announces stored transactions to other services.
type Publisher interface {
	Publish(ctx context.Context, transaction *models.Transaction) error
}

// Request carries the fields of a transfer. Amount is in the smallest
// currency unit and is not validated.
type Request struct {
	Token          string
	FromUser       string
	ToUser         string
	FromBankName   string
	ToBankName     string
	FromCardNumber string
	ToCardNumber   string
	Amount         int64
}

type Config struct {
	Tokens       TokenValidator
	Users        models.UserStore
	Banks        models.BankStore
	Transactions models.TransactionStore
	History      models.TransactionHistory
	// Publisher is optional.
	Publisher Publisher
	// Now defaults to time.Now.
	Now func() time.Time
	Log *slog.Logger
}

// Handler validates and records transfers.
type Handler struct {
	tokens       TokenValidator
	users        models.UserStore
	banks        models.BankStore
	transactions models.TransactionStore
	history      models.TransactionHistory
	publisher    Publisher
	now          func() time.Time
	log          *slog.Logger
}

func New(config *Config) *Handler {
	h := &Handler{
		tokens:       config.Tokens,
		users:        config.Users,
		banks:        config.Banks,
		transactions: config.Transactions,
		history:      config.History,
		publisher:    config.Publisher,
		now:          config.Now,
		log:          config.Log,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	return h
}

// Sender returns the authenticated subject, used to prefill the sender of a
// new transfer.
func (h *Handler) Sender(_ context.Context, token string) (string, error) {
	return h.authenticate(token)
}

// Transfer authenticates the caller, resolves the recipient and both banks
// and stores one transaction row.
//
// FromUser is taken from the request as given and is not compared with the
// token subject; a mismatch is only logged.
func (h *Handler) Transfer(ctx context.Context, req Request) (*models.Transaction, error) {
	subject, err := h.authenticate(req.Token)
	if err != nil {
		return nil, err
	}
	if subject != req.FromUser {
		h.log.WarnContext(ctx, "transfer sender differs from authenticated subject",
			"subject", subject, "from_user", req.FromUser)
	}

	recipient, err := h.users.FindUserByName(ctx, req.ToUser)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidRecipient
	}
	if err != nil {
		return nil, err
	}
	if recipient.Name == req.FromUser {
		return nil, models.ErrInvalidRecipient
	}

	fromBank, err := h.findBank(ctx, req.FromBankName)
	if err != nil {
		return nil, err
	}
	toBank, err := h.findBank(ctx, req.ToBankName)
	if err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		FromUser:       req.FromUser,
		ToUser:         recipient.Name,
		FromBank:       fromBank.ID,
		ToBank:         toBank.ID,
		FromCardNumber: req.FromCardNumber,
		ToCardNumber:   req.ToCardNumber,
		Amount:         req.Amount,
		CreatedAt:      h.now().UTC(),
	}
	if err := h.transactions.CreateTransaction(ctx, transaction); err != nil {
		return nil, err
	}

	h.log.InfoContext(ctx, "transaction created",
		"id", transaction.ID,
		"from_user", transaction.FromUser,
		"to_user", transaction.ToUser,
		"amount", transaction.Amount,
	)

	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, transaction); err != nil {
			h.log.ErrorContext(ctx, "publishing transaction", "id", transaction.ID, "error", err)
		}
	}

	return transaction, nil
}

// History lists the transactions the authenticated subject sent or
// received. The party filter in opts is always replaced by the subject.
func (h *Handler) History(ctx context.Context, token string, opts *options.TransactionOptions) ([]*models.Transaction, error) {
	subject, err := h.authenticate(token)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = options.NewTransactionOptions()
	}
	opts.SetParty(subject)

	return h.history.FindTransactions(ctx, opts)
}

func (h *Handler) authenticate(token string) (string, error) {
	if token == "" {
		return "", models.ErrUnauthenticated
	}
	subject, err := h.tokens.Validate(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrUnauthenticated, err)
	}
	return subject, nil
}

func (h *Handler) findBank(ctx context.Context, name string) (*models.Bank, error) {
	bank, err := h.banks.FindBankByName(ctx, name)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", models.ErrBankNotFound, name)
	}
	return bank, err
}
