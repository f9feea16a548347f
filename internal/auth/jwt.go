// Package auth implements the identity provider consumed by the HTTP
// surface: it turns a bearer token into an opaque caller identity. Token
// issuance belongs to an external service; the signing helper here exists
// for tests and tooling.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a presented token is malformed, expired
// or signed with the wrong key.
var ErrInvalidToken = errors.New("invalid token")

// TokenAuthenticator verifies HMAC-signed bearer tokens.
type TokenAuthenticator struct {
	secret []byte
}

func NewTokenAuthenticator(secret string) *TokenAuthenticator {
	return &TokenAuthenticator{
		secret: []byte(secret),
	}
}

// Authenticate extracts the caller identity from the request. A missing
// Authorization header yields a nil identity (anonymous caller), not an
// error; a present but unverifiable token yields ErrInvalidToken.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (*int64, error) {
	const op = "auth.TokenAuthenticator.Authenticate"

	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}

	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims := new(jwt.RegisteredClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return &userID, nil
}

// NewToken signs a token for the given user identity, valid for ttl.
func (a *TokenAuthenticator) NewToken(userID int64, ttl time.Duration) (string, error) {
	const op = "auth.TokenAuthenticator.NewToken"

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("%s: failed to sign token: %w", op, err)
	}

	return token, nil
}
