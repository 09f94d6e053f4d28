package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	models "fin-ledger/models_package"
)

// MinBcryptCost is the lowest work factor a BcryptHasher will use.
const MinBcryptCost = 10

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// Hasher hashes and checks plaintext passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

var _ Hasher = BcryptHasher{}

// BcryptHasher salts every digest with fresh randomness, so hashing the
// same password twice yields two different strings that both verify.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps cost into [MinBcryptCost, bcrypt.MaxCost].
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return BcryptHasher{cost: cost}
}

// Hash fails with models.ErrPasswordTooLong for passwords over
// MaxPasswordBytes.
func (h BcryptHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", models.ErrPasswordTooLong
	}
	cost := h.cost
	if cost == 0 {
		cost = MinBcryptCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. A malformed hash is a
// mismatch, not an error.
func (h BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
