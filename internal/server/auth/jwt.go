// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/agrodetect/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and parses HMAC JWTs whose subject is the user's email.
// It is safe for concurrent use.
type TokenIssuer struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer for the given HMAC algorithm name
// ("HS256", "HS384" or "HS512"). Any other algorithm, or an empty secret,
// is rejected.
func NewTokenIssuer(secret []byte, algorithm string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt: empty secret key")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("jwt: unsupported algorithm %q", algorithm)
	}
	return &TokenIssuer{secret: secret, method: method, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for subject, expiring after the issuer's TTL.
func (i *TokenIssuer) Issue(subject string) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(i.method, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	})

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Parse verifies tokenString and returns its subject.
//
// An expired token yields common.ErrTokenExpired; every other failure
// (signature, algorithm, structure, missing subject) yields
// common.ErrInvalidToken.
func (i *TokenIssuer) Parse(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
