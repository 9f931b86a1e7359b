package service

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/model"
)

// Signer turns token records into signed HS256 JWTs and back. The jti inside
// the JWT is the index key, so possession of a valid JWT alone is not enough
// once the record has been revoked.
type Signer struct {
	key []byte
}

// NewSigner constructs a Signer with the shared signing secret.
func NewSigner(key []byte) *Signer {
	return &Signer{key: key}
}

// Sign produces a compact JWT for the record. Custom claims ride alongside
// the registered ones but cannot shadow them.
func (s *Signer) Sign(t model.Token) (string, error) {
	claims := jwt.MapClaims{}
	for k, v := range t.Claims {
		claims[k] = v
	}
	claims["jti"] = t.JTI
	claims["sub"] = strconv.FormatInt(t.UID, 10)
	claims["iat"] = jwt.NewNumericDate(t.IssuedAt)
	claims["exp"] = jwt.NewNumericDate(t.ExpiresAt)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.key)
}

// Parse verifies the signature and returns the embedded jti and uid.
// Any malformed, mis-signed or expired JWT is ErrInvalidCredentials.
func (s *Signer) Parse(signed string) (jti string, uid int64, err error) {
	claims := jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(signed, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return "", 0, errs.ErrInvalidCredentials
	}
	uid, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return "", 0, errs.ErrInvalidCredentials
	}
	return claims.ID, uid, nil
}
