package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fusecpt/ats/internal/config"
	"github.com/fusecpt/ats/internal/model"
)

const issuerName = "fusecpt-ats"

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	Validate(tokenString string) (*Claims, error)
	Close() error
}

// Claims are the claims of the HMAC signed session tokens. Tokens verified by
// an external identity provider carry an empty Role; the caller resolves the
// local user by Email.
type Claims struct {
	UserID string     `json:"userId"`
	Email  string     `json:"email"`
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and validates access and refresh tokens. The two kinds use
// different secrets so one can never stand in for the other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(cfg *config.JWTConfig) *Issuer {
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     time.Duration(cfg.AccessTTL) * time.Minute,
		refreshTTL:    time.Duration(cfg.RefreshTTL) * time.Hour,
		now:           time.Now,
	}
}

func (i *Issuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccess returns a signed access token for u.
func (i *Issuer) IssueAccess(u *model.User) (string, error) {
	return i.sign(u, i.accessSecret, i.accessTTL)
}

// IssueRefresh returns a signed refresh token for u. Every call yields a
// distinct token.
func (i *Issuer) IssueRefresh(u *model.User) (string, error) {
	return i.sign(u, i.refreshSecret, i.refreshTTL)
}

// Validate checks an access token. It satisfies TokenVerifier.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	return validateHMAC(tokenString, i.accessSecret)
}

// ValidateRefresh checks a refresh token.
func (i *Issuer) ValidateRefresh(tokenString string) (*Claims, error) {
	return validateHMAC(tokenString, i.refreshSecret)
}

func (i *Issuer) Close() error { return nil }

func (i *Issuer) sign(u *model.User, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token secret is not configured")
	}
	now := i.now()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuerName,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func validateHMAC(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	},
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// HashToken returns the hex SHA-256 of an opaque token. Only hashes are
// stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewOpaqueToken returns a random URL safe token for password reset links.
func NewOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
