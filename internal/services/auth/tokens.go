// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ResetTokenLength is the number of random bytes in a password reset token.
const ResetTokenLength = 20

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims are the JWT claims of a session token. The subject is the account ID.
type Claims struct {
	Kind models.Kind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens with one secret per account kind.
type TokenIssuer struct {
	secrets map[models.Kind][]byte
	ttl     time.Duration
	now     func() time.Time
}

// IssuerOption configures a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithIssuerClock replaces the time source used for issuing and expiry checks.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) {
		i.now = now
	}
}

func NewTokenIssuer(cfg *config.AuthConfig, opts ...IssuerOption) *TokenIssuer {
	i := &TokenIssuer{
		secrets: map[models.Kind][]byte{
			models.KindAdmin:     []byte(cfg.AdminSecret),
			models.KindVolunteer: []byte(cfg.VolunteerSecret),
			models.KindUser:      []byte(cfg.UserSecret),
		},
		ttl: cfg.JWTExpire,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue returns a signed token for account.
func (i *TokenIssuer) Issue(account *models.Account) (string, error) {
	secret, err := i.secret(account.Kind)
	if err != nil {
		return "", err
	}

	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Kind: account.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(account.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token against the secret of kind and returns the account ID.
func (i *TokenIssuer) Parse(kind models.Kind, tokenString string) (int64, error) {
	secret, err := i.secret(kind)
	if err != nil {
		return 0, err
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Kind != kind {
		return 0, ErrTokenInvalid
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

func (i *TokenIssuer) secret(kind models.Kind) ([]byte, error) {
	secret := i.secrets[kind]
	if len(secret) == 0 {
		return nil, fmt.Errorf("no signing secret for %s tokens", kind)
	}
	return secret, nil
}

// GenerateToken returns a random hex token for password reset links.
func GenerateToken() (string, error) {
	b := make([]byte, ResetTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken computes the SHA256 hash of a token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// GenerateSecret returns n random bytes hex encoded, used for signing keys
// that were not configured.
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
