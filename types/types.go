package types

import (
	"encoding/json"
)

const (
	InMemoryStore = "inmemory"
	BadgerStore   = "badger"
	SQLiteStore   = "sqlite"
)

// StorageVersion is the current on-disk schema version. Installations with no
// version recorded predate the versioned schema and must go through migration.
const StorageVersion = 1

const (
	WalletTypeP2PKH = "p2pkh"
)

const (
	// WalletFlagHardware marks access data that holds no local secret key
	// material and relies on an external signing device.
	WalletFlagHardware uint8 = 1 << 0
)

// EncryptedSecret is a password-protected blob plus the metadata required to
// verify the protecting credential and re-derive the encryption key.
type EncryptedSecret struct {
	Data         string `json:"data"`
	Hash         string `json:"hash"`
	Salt         string `json:"salt"`
	Iterations   int    `json:"iterations"`
	KdfAlgorithm string `json:"kdfAlgorithm"`
}

// AccessData is the versioned root record for a wallet.
type AccessData struct {
	WalletType  string           `json:"walletType"`
	WalletFlags uint8            `json:"walletFlags"`
	Xpubkey     string           `json:"xpubkey"`
	Words       *EncryptedSecret `json:"words,omitempty"`
	MainKey     *EncryptedSecret `json:"mainKey,omitempty"`
	AcctPathKey *EncryptedSecret `json:"acctPathKey,omitempty"`
	AuthKey     *EncryptedSecret `json:"authKey,omitempty"`
}

func (d AccessData) IsHardware() bool {
	return d.WalletFlags&WalletFlagHardware != 0
}

func (d AccessData) String() string {
	buf, _ := json.MarshalIndent(d, "", "  ")
	return string(buf)
}

// LegacyAccessData is the pre-migration flat record: bare ciphertext strings
// protected by a single record-level hash/salt/iterations triple. It is
// read-only input to the migration routine.
type LegacyAccessData struct {
	Xpubkey         string `json:"xpubkey"`
	Words           string `json:"words"`
	MainKey         string `json:"mainKey"`
	Hash            string `json:"hash"`
	Salt            string `json:"salt"`
	HashIterations  int    `json:"hashIterations"`
	Pbkdf2Hasher    string `json:"pbkdf2Hasher"`
	AcctPathMainKey string `json:"acctPathMainKey,omitempty"`
	AuthKey         string `json:"authKey,omitempty"`
}

// MainSecret normalizes the record-level credential metadata into the current
// encrypted-secret shape so verification code has a single format to handle.
func (d LegacyAccessData) MainSecret() *EncryptedSecret {
	return &EncryptedSecret{
		Data:         d.MainKey,
		Hash:         d.Hash,
		Salt:         d.Salt,
		Iterations:   d.HashIterations,
		KdfAlgorithm: d.Pbkdf2Hasher,
	}
}

// SecretFor wraps one of the record's bare ciphertexts with the record-level
// credential metadata.
func (d LegacyAccessData) SecretFor(ciphertext string) *EncryptedSecret {
	return &EncryptedSecret{
		Data:         ciphertext,
		Hash:         d.Hash,
		Salt:         d.Salt,
		Iterations:   d.HashIterations,
		KdfAlgorithm: d.Pbkdf2Hasher,
	}
}

// TokenData describes a token registered with a wallet.
type TokenData struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}
