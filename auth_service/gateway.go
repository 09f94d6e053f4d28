package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	models "fin-ledger/models_package"
)

// TokenType is reported alongside every issued access token.
const TokenType = "bearer"

// Token is the result of a successful login.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Gateway implements registration and login on top of a user store.
type Gateway struct {
	users    models.UserStore
	hasher   Hasher
	tokens   *TokenService
	loginTTL time.Duration
	log      *slog.Logger

	// dummyHash is verified against when the user does not exist, so an
	// unknown name costs the same bcrypt work as a wrong password.
	dummyOnce sync.Once
	dummyHash string
}

// NewGateway builds a Gateway. loginTTL is the lifetime of tokens handed
// out by Login; zero falls back to the token service default.
func NewGateway(users models.UserStore, hasher Hasher, tokens *TokenService, loginTTL time.Duration, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		loginTTL: loginTTL,
		log:      log,
	}
}

// Register creates a user. A taken name fails with models.ErrDuplicateUser
// whether it is caught by the lookup or by the store's unique index.
func (g *Gateway) Register(ctx context.Context, name, password string) (*models.User, error) {
	_, err := g.users.FindUserByName(ctx, name)
	switch {
	case err == nil:
		return nil, models.ErrDuplicateUser
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	hashed, err := g.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Name: name, PasswordHash: hashed}
	if err := g.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	g.log.InfoContext(ctx, "user registered", "user", name)
	return user, nil
}

// Login checks name and password and issues an access token whose subject
// is the user name. Unknown users and wrong passwords both fail with
// models.ErrInvalidCredentials.
func (g *Gateway) Login(ctx context.Context, name, password string) (*Token, error) {
	user, err := g.users.FindUserByName(ctx, name)
	if errors.Is(err, models.ErrNotFound) {
		g.hasher.Verify(password, g.dummyDigest())
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !g.hasher.Verify(password, user.PasswordHash) {
		return nil, models.ErrInvalidCredentials
	}

	access, claims, err := g.tokens.Issue(user.Name, g.loginTTL)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	g.log.InfoContext(ctx, "user logged in", "user", name, "expires_at", claims.ExpiresAt)
	return &Token{
		AccessToken: access,
		TokenType:   TokenType,
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

func (g *Gateway) dummyDigest() string {
	g.dummyOnce.Do(func() {
		hashed, err := g.hasher.Hash("fintrans-unknown-user")
		if err != nil {
			g.log.Error("hashing dummy password", "error", err)
			return
		}
		g.dummyHash = hashed
	})
	return g.dummyHash
}
