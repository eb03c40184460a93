package walletsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/heliowallet/wallet-sdk/crypto"
	"github.com/heliowallet/wallet-sdk/store"
	"github.com/heliowallet/wallet-sdk/types"
)

const (
	// Flat keys under the wallet: prefix belong to the legacy, unversioned
	// format. Migration sweeps the whole prefix except the identity key.
	walletIDKey         = "wallet:id"
	legacyAccessDataKey = "wallet:accessData"
	legacyTokensKey     = "wallet:tokens"
	legacyBackupKey     = "wallet:backup"
	legacyKeyPrefix     = "wallet:"

	storageVersionKey = "storage:version"
)

// StoreFactory builds the structured storage facade for a wallet identity.
type StoreFactory func(walletID string) (types.Store, error)

type Config struct {
	KV     types.KVStore
	Cypher crypto.Cypher

	// StoreType and BaseDir configure the default store factory. Ignored
	// when StoreFactory is set.
	StoreType    string
	BaseDir      string
	StoreFactory StoreFactory
}

// Storage is the wallet's local credential store: it owns the flat settings
// key space, the versioned access data of the loaded wallet, and the
// migration from the legacy flat format.
//
// Callers must serialize initialization, migration and pin-check calls
// against the same wallet identity. There is no internal locking.
type Storage struct {
	kv       types.KVStore
	cypher   crypto.Cypher
	newStore StoreFactory

	// session-scoped facade handle, built lazily, dropped by CleanWallet.
	store types.Store
}

func NewStorage(cfg Config) (*Storage, error) {
	if cfg.KV == nil {
		return nil, fmt.Errorf("missing kv store")
	}

	cypher := cfg.Cypher
	if cypher == nil {
		cypher = crypto.NewCypher()
	}

	newStore := cfg.StoreFactory
	if newStore == nil {
		storeType, baseDir := cfg.StoreType, cfg.BaseDir
		newStore = func(walletID string) (types.Store, error) {
			dir := baseDir
			if len(dir) > 0 {
				dir = filepath.Join(dir, walletID)
			}
			return store.NewStore(store.Config{
				StoreType: storeType,
				BaseDir:   dir,
			})
		}
	}

	return &Storage{
		kv:       cfg.KV,
		cypher:   cypher,
		newStore: newStore,
	}, nil
}

// AccessDataVariant is the tagged result of loading whichever access data
// format is on disk. Exactly one of Legacy and Current is non-nil.
type AccessDataVariant struct {
	Legacy  *types.LegacyAccessData
	Current *types.AccessData
}

// InitStorage creates a brand new software wallet from a seed phrase. The
// wallet identity is only persisted once key derivation has fully succeeded,
// and it is rolled back if the access data cannot be persisted.
func (s *Storage) InitStorage(
	ctx context.Context, seed, password, pin, passphrase string,
) error {
	network, err := s.GetNetwork()
	if err != nil {
		return err
	}

	accessData, err := crypto.NewAccessDataFromSeed(s.cypher, crypto.SeedArgs{
		Seed:       seed,
		Passphrase: passphrase,
		Password:   password,
		Pin:        pin,
		Network:    network,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize wallet storage: %w", err)
	}

	return s.persistNewWallet(ctx, *accessData, false)
}

// InitHWStorage creates a hardware-backed wallet from an extended public key.
// No password or pin is involved: hardware wallets hold no local secrets.
func (s *Storage) InitHWStorage(ctx context.Context, xpub string) error {
	accessData, err := crypto.NewAccessDataFromXPub(xpub)
	if err != nil {
		return fmt.Errorf("failed to initialize hardware wallet storage: %w", err)
	}

	return s.persistNewWallet(ctx, *accessData, true)
}

func (s *Storage) persistNewWallet(
	ctx context.Context, accessData types.AccessData, hardware bool,
) error {
	walletID, err := crypto.WalletID(accessData.Xpubkey)
	if err != nil {
		return err
	}

	newStore, err := s.newStore(walletID)
	if err != nil {
		return fmt.Errorf("failed to open wallet store: %w", err)
	}

	if err := newStore.AccessStore().SaveAccessData(ctx, accessData); err != nil {
		newStore.Close()
		return fmt.Errorf("failed to persist access data: %w", err)
	}

	if err := s.setJSON(walletIDKey, walletID); err != nil {
		newStore.Close()
		return err
	}
	if err := s.SetHardware(hardware); err != nil {
		newStore.Close()
		return err
	}

	s.closeStore()
	s.store = newStore

	return s.UpdateStorageVersion()
}

// StorageVersion returns the recorded schema version, nil when the
// installation predates the versioned schema.
func (s *Storage) StorageVersion() (*int, error) {
	var version int
	ok, err := s.getJSON(storageVersionKey, &version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &version, nil
}

// UpdateStorageVersion stamps the current schema version. There is no
// downgrade operation.
func (s *Storage) UpdateStorageVersion() error {
	return s.setJSON(storageVersionKey, types.StorageVersion)
}

// GetAvailableAccessData loads whichever access data format is on disk,
// preferring the legacy one during the migration window. Returns nil when no
// wallet data of either format exists.
func (s *Storage) GetAvailableAccessData(
	ctx context.Context,
) (*AccessDataVariant, error) {
	legacy := &types.LegacyAccessData{}
	ok, err := s.getJSON(legacyAccessDataKey, legacy)
	if err != nil {
		return nil, err
	}
	if ok {
		return &AccessDataVariant{Legacy: legacy}, nil
	}

	walletID, err := s.getWalletID()
	if err != nil {
		return nil, err
	}
	if walletID == "" {
		return nil, nil
	}

	walletStore, err := s.getStore()
	if err != nil {
		return nil, err
	}
	accessData, err := walletStore.AccessStore().GetAccessData(ctx)
	if err != nil {
		return nil, err
	}
	if accessData == nil {
		return nil, nil
	}
	return &AccessDataVariant{Current: accessData}, nil
}

// CheckPin verifies the pin against the main key of whichever format is on
// disk. A wrong pin yields false, not an error.
func (s *Storage) CheckPin(ctx context.Context, pin string) (bool, error) {
	data, err := s.GetAvailableAccessData(ctx)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, fmt.Errorf("no wallet is loaded")
	}

	var secret *types.EncryptedSecret
	switch {
	case data.Legacy != nil:
		secret = data.Legacy.MainSecret()
	case data.Current != nil:
		secret = data.Current.MainKey
	}
	if secret == nil {
		return false, fmt.Errorf("wallet holds no local key material")
	}

	return s.cypher.CheckPassword(secret, pin), nil
}

// CheckPassword verifies the password against the encrypted seed words.
func (s *Storage) CheckPassword(
	ctx context.Context, password string,
) (bool, error) {
	data, err := s.GetAvailableAccessData(ctx)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, fmt.Errorf("no wallet is loaded")
	}

	var secret *types.EncryptedSecret
	switch {
	case data.Legacy != nil:
		secret = data.Legacy.SecretFor(data.Legacy.Words)
	case data.Current != nil:
		secret = data.Current.Words
	}
	if secret == nil {
		return false, fmt.Errorf("wallet holds no local key material")
	}

	return s.cypher.CheckPassword(secret, password), nil
}

// GetWalletWords decrypts the seed words of a migrated wallet.
func (s *Storage) GetWalletWords(
	ctx context.Context, password string,
) (string, error) {
	data, err := s.GetAvailableAccessData(ctx)
	if err != nil {
		return "", err
	}
	if data == nil || data.Current == nil {
		return "", fmt.Errorf("no wallet is loaded")
	}
	if data.Current.Words == nil {
		return "", fmt.Errorf("wallet holds no seed words")
	}
	return s.cypher.DecryptData(data.Current.Words, password)
}

// GetOldWalletWords decrypts the seed words of a legacy, pre-migration
// wallet record.
func (s *Storage) GetOldWalletWords(password string) (string, error) {
	legacy := &types.LegacyAccessData{}
	ok, err := s.getJSON(legacyAccessDataKey, legacy)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no legacy wallet data")
	}
	return s.cypher.DecryptData(legacy.SecretFor(legacy.Words), password)
}

// IsLoadedSync answers "is a wallet loaded" from the flat key space only, so
// it can be used before the structured storage backend is opened.
func (s *Storage) IsLoadedSync() bool {
	walletID, err := s.getWalletID()
	if err == nil && walletID != "" {
		return true
	}
	buf, err := s.kv.Get(legacyAccessDataKey)
	return err == nil && buf != nil
}

// IsLoaded additionally resolves the full access data read.
func (s *Storage) IsLoaded(ctx context.Context) (bool, error) {
	data, err := s.GetAvailableAccessData(ctx)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

// RegisterToken records a token in the loaded wallet's registry.
func (s *Storage) RegisterToken(
	ctx context.Context, token types.TokenData,
) error {
	walletStore, err := s.getStore()
	if err != nil {
		return err
	}
	return walletStore.TokenStore().RegisterToken(ctx, token)
}

func (s *Storage) GetRegisteredTokens(
	ctx context.Context,
) ([]types.TokenData, error) {
	walletStore, err := s.getStore()
	if err != nil {
		return nil, err
	}
	return walletStore.TokenStore().GetRegisteredTokens(ctx)
}

// CleanWallet forgets the loaded wallet's local session without erasing
// settings: it drops the facade handle and removes the identity, hardware and
// closed keys. Per-wallet persisted data is left untouched.
func (s *Storage) CleanWallet() error {
	s.closeStore()

	for _, key := range []string{walletIDKey, hardwareKey, closedKey} {
		if err := s.kv.Remove(key); err != nil {
			return err
		}
	}
	return nil
}

// ResetStorage is a full factory reset of the flat key space.
func (s *Storage) ResetStorage() error {
	s.closeStore()
	return s.kv.Clear()
}

func (s *Storage) getWalletID() (string, error) {
	var walletID string
	ok, err := s.getJSON(walletIDKey, &walletID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return walletID, nil
}

// getStore returns the session facade handle, building it at most once per
// wallet session.
func (s *Storage) getStore() (types.Store, error) {
	if s.store != nil {
		return s.store, nil
	}

	walletID, err := s.getWalletID()
	if err != nil {
		return nil, err
	}
	if walletID == "" {
		return nil, fmt.Errorf("no wallet is loaded")
	}

	walletStore, err := s.newStore(walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet store: %w", err)
	}
	s.store = walletStore
	return walletStore, nil
}

func (s *Storage) closeStore() {
	if s.store != nil {
		s.store.Close()
		s.store = nil
	}
}

func (s *Storage) getJSON(key string, out interface{}) (bool, error) {
	buf, err := s.kv.Get(key)
	if err != nil {
		return false, err
	}
	if buf == nil {
		return false, nil
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return false, fmt.Errorf("malformed entry %q: %s", key, err)
	}
	return true, nil
}

func (s *Storage) setJSON(key string, value interface{}) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.kv.Set(key, buf)
}
