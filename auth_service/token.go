package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"

	models "fin-ledger/models_package"
)

// DefaultTokenTTL applies when Issue is called without a positive ttl.
const DefaultTokenTTL = 30 * time.Minute

// Claims is the identity a token carries. It is never stored server side.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// wireClaims is the JSON payload of the token.
type wireClaims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Valid is called by the jwt parser after the signature checks out.
// Expiry is left to Verify so that it runs against the caller's clock.
func (c *wireClaims) Valid() error {
	if c.Subject == "" {
		return errors.New("missing sub claim")
	}
	if c.ExpiresAt == 0 {
		return errors.New("missing exp claim")
	}
	return nil
}

// SigningMethod resolves an HMAC algorithm name (HS256, HS384, HS512).
func SigningMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	return method, nil
}

// Sign encodes claims as a compact JWT signed with secret.
func Sign(claims Claims, method *jwt.SigningMethodHMAC, secret []byte) (string, error) {
	token := jwt.NewWithClaims(method, &wireClaims{
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's encoding, algorithm, signature and expiry at
// instant now. A token is expired once now reaches its exp claim. Every
// failure wraps models.ErrInvalidToken.
func Verify(tokenString string, method *jwt.SigningMethodHMAC, secret []byte, now time.Time) (Claims, error) {
	if err := checkSegments(tokenString); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}

	parser := &jwt.Parser{ValidMethods: []string{method.Alg()}}
	var wire wireClaims
	_, err := parser.ParseWithClaims(tokenString, &wire, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}

	if now.Unix() >= wire.ExpiresAt {
		return Claims{}, fmt.Errorf("%w: token expired", models.ErrInvalidToken)
	}

	return Claims{
		Subject:   wire.Subject,
		IssuedAt:  time.Unix(wire.IssuedAt, 0),
		ExpiresAt: time.Unix(wire.ExpiresAt, 0),
	}, nil
}

var segmentEncoding = base64.RawURLEncoding.Strict()

// checkSegments rejects tokens whose segments are not canonical unpadded
// base64url. The jwt parser alone accepts stray trailing bits in the
// last character of the signature.
func checkSegments(tokenString string) error {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return errors.New("token must have three segments")
	}
	for _, part := range parts {
		if _, err := segmentEncoding.DecodeString(part); err != nil {
			return fmt.Errorf("malformed segment: %v", err)
		}
	}
	return nil
}

// TokenService issues and validates tokens with a fixed secret and
// algorithm. The secret is read-only after construction.
type TokenService struct {
	secret     []byte
	method     *jwt.SigningMethodHMAC
	defaultTTL time.Duration

	// Now is the clock used for issuing and validating. Defaults to
	// time.Now.
	Now func() time.Time
}

func NewTokenService(secret []byte, alg string, defaultTTL time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	method, err := SigningMethod(alg)
	if err != nil {
		return nil, err
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTokenTTL
	}
	return &TokenService{
		secret:     append([]byte(nil), secret...),
		method:     method,
		defaultTTL: defaultTTL,
		Now:        time.Now,
	}, nil
}

// Issue returns a signed token for subject expiring after ttl, or after the
// default TTL when ttl is not positive.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, Claims, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	// the token carries whole seconds; report exactly what it carries
	now := s.Now()
	claims := Claims{
		Subject:   subject,
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: now.Add(ttl).Truncate(time.Second),
	}
	token, err := Sign(claims, s.method, s.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return token, claims, nil
}

// Validate returns the token's subject. It does not check that the subject
// still exists as a user.
func (s *TokenService) Validate(token string) (string, error) {
	claims, err := Verify(token, s.method, s.secret, s.Now())
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
