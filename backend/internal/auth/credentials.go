// Package auth implements the credential service: salted password hashing
// and signed token issuance/verification.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the minimal projection of an account carried inside a token.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"accountId"`
	UserName  string `json:"userName"`
}

// Credentials is the credential-service contract consumed by the domain
// services. Authenticate fails closed: any malformed, expired or mis-signed
// token yields ok=false, never an error or panic past this boundary.
type Credentials interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(password, hashed string) bool
	Sign(accountID, userName string) (string, error)
	Authenticate(token string) (*Claims, bool)
}

// JWTCredentials implements Credentials with bcrypt password hashing and
// HS256-signed JWTs.
type JWTCredentials struct {
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
}

// NewJWTCredentials creates a credential service. A non-positive cost falls
// back to bcrypt's default.
func NewJWTCredentials(secret []byte, tokenTTL time.Duration, bcryptCost int) *JWTCredentials {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &JWTCredentials{
		secret:     secret,
		tokenTTL:   tokenTTL,
		bcryptCost: bcryptCost,
	}
}

// Hash produces a salted bcrypt hash of password. Hashing is CPU-bound and
// can take tens of milliseconds at higher costs, so the context is checked
// before starting.
func (c *JWTCredentials) Hash(ctx context.Context, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches the stored bcrypt hash.
func (c *JWTCredentials) Verify(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// Sign issues a token for the given account.
func (c *JWTCredentials) Sign(accountID, userName string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.tokenTTL)),
		},
		AccountID: accountID,
		UserName:  userName,
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies a token and returns its claims. The empty token,
// tokens signed with another secret or algorithm, and expired tokens all
// return ok=false.
func (c *JWTCredentials) Authenticate(tokenString string) (*Claims, bool) {
	if tokenString == "" {
		return nil, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}
