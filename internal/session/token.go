package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a session cookie fails validation.
var ErrInvalidToken = errors.New("invalid or expired session token")

const issuer = "planes-near-me"

// Claims is the payload of the session cookie.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies session cookies with HMAC-SHA256.
type Tokens struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokens creates a token service. lifetime <= 0 defaults to 24 hours.
func NewTokens(secret string, lifetime time.Duration) *Tokens {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &Tokens{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// Issue returns a signed token carrying sessionID.
func (t *Tokens) Issue(sessionID string) (string, error) {
	now := t.now()
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates token and returns the session id it carries.
func (t *Tokens) Parse(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}
