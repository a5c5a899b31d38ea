// Package kv holds the persistent key-value store the storefront keeps its
// session and carts in.
package kv

import (
	"context"
)

// Store is a string key-value store. Get reports errors.ErrNotFound for a
// missing key; Delete of a missing key is not an error.
type Store interface {
	Get(c context.Context, key string) (string, error)
	Set(c context.Context, key string, value string) error
	Delete(c context.Context, keys ...string) error
}

// Prefixed namespaces every key of the wrapped store.
type Prefixed struct {
	store  Store
	prefix string
}

func NewPrefixed(store Store, prefix string) Prefixed {
	return Prefixed{store: store, prefix: prefix}
}

func (p Prefixed) Get(c context.Context, key string) (string, error) {
	return p.store.Get(c, p.prefix+key)
}

func (p Prefixed) Set(c context.Context, key string, value string) error {
	return p.store.Set(c, p.prefix+key, value)
}

func (p Prefixed) Delete(c context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = p.prefix + key
	}
	return p.store.Delete(c, prefixed...)
}
