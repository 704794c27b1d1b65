package preferences

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
	"github.com/jrsteele09/lingo-web/storage"
)

// LanguageKey is the storage key of the UI language.
const LanguageKey = "language"

type Language string

const (
	English Language = "en"
	Spanish Language = "es"

	DefaultLanguage = English
)

func ParseLanguage(s string) (Language, error) {
	switch l := Language(s); l {
	case English, Spanish:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidLang, s)
}

type Store struct {
	kv storage.KV
}

func New(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Language falls back to DefaultLanguage for a missing or unknown value.
func (s *Store) Language(ctx context.Context) Language {
	v, ok, err := s.kv.Get(ctx, LanguageKey)
	if err != nil || !ok {
		return DefaultLanguage
	}
	l, err := ParseLanguage(v)
	if err != nil {
		return DefaultLanguage
	}
	return l
}

func (s *Store) SetLanguage(ctx context.Context, value string) error {
	l, err := ParseLanguage(value)
	if err != nil {
		return apperrors.Validation("language must be one of: en, es")
	}
	return s.kv.Set(ctx, LanguageKey, string(l))
}
