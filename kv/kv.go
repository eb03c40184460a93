package kv

import (
	"fmt"

	filekv "github.com/heliowallet/wallet-sdk/kv/file"
	inmemorykv "github.com/heliowallet/wallet-sdk/kv/inmemory"
	"github.com/heliowallet/wallet-sdk/types"
)

const (
	InMemoryStore = "inmemory"
	FileStore     = "file"
)

type Config struct {
	StoreType string
	BaseDir   string
}

func NewStore(cfg Config) (types.KVStore, error) {
	switch cfg.StoreType {
	case InMemoryStore, "":
		return inmemorykv.NewKVStore(), nil
	case FileStore:
		return filekv.NewKVStore(cfg.BaseDir)
	default:
		return nil, fmt.Errorf("unknown kv store type: %s", cfg.StoreType)
	}
}
