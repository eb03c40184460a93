package types

import "context"

// KVStore is the flat key-value persistence adapter. Keys are strings, values
// are JSON-encoded. Get returns nil bytes when the key is absent.
// Implementations must tolerate legacy entries stored as raw strings rather
// than JSON: on a parse failure the entry is re-persisted as a JSON string and
// the repaired encoding is returned.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
	Keys() ([]string, error)
	Clear() error
}

// Store is the structured storage facade, scoped to a single wallet identity.
type Store interface {
	AccessStore() AccessStore
	TokenStore() TokenStore
	Close()
}

type AccessStore interface {
	SaveAccessData(ctx context.Context, data AccessData) error
	GetAccessData(ctx context.Context) (*AccessData, error)
	CleanData(ctx context.Context) error
}

type TokenStore interface {
	RegisterToken(ctx context.Context, token TokenData) error
	GetRegisteredTokens(ctx context.Context) ([]TokenData, error)
}
