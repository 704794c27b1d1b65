// Package storage provides the per-browser key-value store that backs the
// credential and preference values, the server-side counterpart of browser
// local storage.
package storage

import (
	"context"
	"strings"

	apperrors "github.com/jrsteele09/lingo-web/internal/errors"
)

// KV is a flat string key-value store. Values have no schema and no expiry.
type KV interface {
	// Get returns ok=false when the key is absent
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set creates or overwrites a key
	Set(ctx context.Context, key, value string) error

	// Remove deletes a key; removing a missing key is not an error
	Remove(ctx context.Context, key string) error
}

type namespaced struct {
	kv     KV
	prefix string
}

// Namespace scopes every key of kv under ns, so one backing store can serve many browsers.
func Namespace(kv KV, ns string) KV {
	return &namespaced{kv: kv, prefix: strings.TrimSuffix(ns, ":") + ":"}
}

func (n *namespaced) key(key string) (string, error) {
	if key == "" {
		return "", apperrors.ErrEmptyKey
	}
	return n.prefix + key, nil
}

func (n *namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	k, err := n.key(key)
	if err != nil {
		return "", false, err
	}
	return n.kv.Get(ctx, k)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	k, err := n.key(key)
	if err != nil {
		return err
	}
	return n.kv.Set(ctx, k, value)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	k, err := n.key(key)
	if err != nil {
		return err
	}
	return n.kv.Remove(ctx, k)
}
