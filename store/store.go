package store

import (
	"fmt"

	badgerstore "github.com/heliowallet/wallet-sdk/store/badger"
	inmemorystore "github.com/heliowallet/wallet-sdk/store/inmemory"
	sqlitestore "github.com/heliowallet/wallet-sdk/store/sqlite"
	"github.com/heliowallet/wallet-sdk/types"
	"github.com/dgraph-io/badger/v4"
)

type Config struct {
	StoreType string

	BaseDir      string
	BadgerLogger badger.Logger
}

type service struct {
	accessStore types.AccessStore
	tokenStore  types.TokenStore
	closeFn     func()
}

// NewStore builds the structured storage facade for a single wallet
// namespace. BaseDir is expected to already be scoped by wallet identity.
func NewStore(storeConfig Config) (types.Store, error) {
	var (
		accessStore types.AccessStore
		tokenStore  types.TokenStore
		closeFn     func()
	)

	switch storeConfig.StoreType {
	case types.InMemoryStore, "":
		accessStore = inmemorystore.NewAccessStore()
		tokenStore = inmemorystore.NewTokenStore()
		closeFn = func() {}
	case types.BadgerStore:
		badgerAccessStore, err := badgerstore.NewAccessStore(
			storeConfig.BaseDir, storeConfig.BadgerLogger,
		)
		if err != nil {
			return nil, err
		}
		badgerTokenStore, err := badgerstore.NewTokenStore(
			storeConfig.BaseDir, storeConfig.BadgerLogger,
		)
		if err != nil {
			badgerAccessStore.Close()
			return nil, err
		}
		accessStore = badgerAccessStore
		tokenStore = badgerTokenStore
		closeFn = func() {
			badgerAccessStore.Close()
			badgerTokenStore.Close()
		}
	case types.SQLiteStore:
		sqliteStore, err := sqlitestore.NewStore(storeConfig.BaseDir)
		if err != nil {
			return nil, err
		}
		accessStore = sqliteStore.AccessStore()
		tokenStore = sqliteStore.TokenStore()
		closeFn = sqliteStore.Close
	default:
		return nil, fmt.Errorf("unknown store type: %s", storeConfig.StoreType)
	}

	return &service{
		accessStore: accessStore,
		tokenStore:  tokenStore,
		closeFn:     closeFn,
	}, nil
}

func (s *service) AccessStore() types.AccessStore {
	return s.accessStore
}

func (s *service) TokenStore() types.TokenStore {
	return s.tokenStore
}

func (s *service) Close() {
	s.closeFn()
}
