// Package tokenstore holds the bearer credential issued by the backend.
package tokenstore

import (
	"context"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/storage"
)

// Key is the well-known storage key of the credential.
const Key = "auth_token"

type Store struct {
	kv storage.KV
}

func New(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Get returns ok=false when no credential is stored.
func (s *Store) Get(ctx context.Context) (string, bool, error) {
	token, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return "", false, apperrors.Wrapf(err, "[tokenstore Get]")
	}
	if !ok || token == "" {
		return "", false, nil
	}
	return token, true, nil
}

func (s *Store) Set(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.ErrEmptyToken
	}
	return apperrors.Wrapf(s.kv.Set(ctx, Key, token), "[tokenstore Set]")
}

func (s *Store) Clear(ctx context.Context) error {
	return apperrors.Wrapf(s.kv.Remove(ctx, Key), "[tokenstore Clear]")
}

// ExpiredLocally peeks at a credential that happens to be a JWT and reports
// whether its exp claim has passed. The signature is not checked; only the
// backend can say a credential is valid. Anything that isn't a JWT with an
// exp claim reports false.
func ExpiredLocally(token string, now time.Time) bool {
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
