package walletsdk_test

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/heliowallet/wallet-sdk/crypto"
	"github.com/heliowallet/wallet-sdk/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

const (
	legacyPin        = "1234"
	legacyIterations = 10000
)

// legacyFixture reproduces the pre-migration flat layout: one credential
// record (hash/salt/iterations) for the whole wallet and bare ciphertext
// strings for every secret.
type legacyFixture struct {
	record types.LegacyAccessData
	xpub   string
}

func newLegacyFixture(t *testing.T) legacyFixture {
	seeded, err := crypto.NewAccessDataFromSeed(crypto.NewCypher(), crypto.SeedArgs{
		Seed:     testMnemonic,
		Password: "pw1",
		Pin:      legacyPin,
	})
	require.NoError(t, err)

	salt := make([]byte, 16)
	_, err = rand.Read(salt)
	require.NoError(t, err)

	key := pbkdf2.Key([]byte(legacyPin), salt, legacyIterations, 32, sha256.New)
	keyHash := sha256.Sum256(key)

	return legacyFixture{
		record: types.LegacyAccessData{
			Xpubkey:         seeded.Xpubkey,
			Words:           legacyEncrypt(t, key, testMnemonic),
			MainKey:         legacyEncrypt(t, key, "legacy main key material"),
			Hash:            hex.EncodeToString(keyHash[:]),
			Salt:            hex.EncodeToString(salt),
			HashIterations:  legacyIterations,
			Pbkdf2Hasher:    "sha256",
			AcctPathMainKey: legacyEncrypt(t, key, "legacy account path key material"),
			AuthKey:         legacyEncrypt(t, key, "legacy auth key material"),
		},
		xpub: seeded.Xpubkey,
	}
}

func legacyEncrypt(t *testing.T, key []byte, payload string) string {
	blockCipher, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(blockCipher)
	require.NoError(t, err)
	nonce := make([]byte, gcm.NonceSize())
	_, err = rand.Read(nonce)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(
		gcm.Seal(nonce, nonce, []byte(payload), nil),
	)
}

func setLegacyKey(t *testing.T, kvStore types.KVStore, key string, value interface{}) {
	buf, err := json.Marshal(value)
	require.NoError(t, err)
	require.NoError(t, kvStore.Set(key, buf))
}

func TestHandleDataMigration(t *testing.T) {
	ctx := context.Background()
	storage, kvStore := newTestStorage(t)
	fixture := newLegacyFixture(t)

	legacyTokens := []types.TokenData{
		{UID: "00", Name: "Helio", Symbol: "HLO"},
		{UID: "01aa", Name: "Test Token", Symbol: "TST"},
	}

	setLegacyKey(t, kvStore, "wallet:accessData", fixture.record)
	setLegacyKey(t, kvStore, "wallet:tokens", legacyTokens)
	setLegacyKey(t, kvStore, "wallet:backup", true)
	setLegacyKey(t, kvStore, "wallet:lastSharedAddress", "HLegacyAddress")

	// Pre-migration the engine operates on the legacy record.
	require.True(t, storage.IsLoadedSync())

	ok, err := storage.CheckPin(ctx, legacyPin)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = storage.CheckPin(ctx, "0000")
	require.NoError(t, err)
	require.False(t, ok)

	words, err := storage.GetOldWalletWords(legacyPin)
	require.NoError(t, err)
	require.Equal(t, testMnemonic, words)

	require.NoError(t, storage.HandleDataMigration(ctx, legacyPin))

	version, err := storage.StorageVersion()
	require.NoError(t, err)
	require.NotNil(t, version)
	require.Equal(t, types.StorageVersion, *version)

	data, err := storage.GetAvailableAccessData(ctx)
	require.NoError(t, err)
	require.NotNil(t, data)
	require.Nil(t, data.Legacy)
	require.NotNil(t, data.Current)

	accessData := data.Current
	require.Equal(t, types.WalletTypeP2PKH, accessData.WalletType)
	require.Equal(t, uint8(0), accessData.WalletFlags)
	require.Equal(t, fixture.xpub, accessData.Xpubkey)

	// Secrets are now self-describing and protected by the same pin.
	cypher := crypto.NewCypher()
	migratedWords, err := cypher.DecryptData(accessData.Words, legacyPin)
	require.NoError(t, err)
	require.Equal(t, testMnemonic, migratedWords)

	require.NotNil(t, accessData.AcctPathKey)
	acctPathKey, err := cypher.DecryptData(accessData.AcctPathKey, legacyPin)
	require.NoError(t, err)
	require.Equal(t, "legacy account path key material", acctPathKey)

	require.NotNil(t, accessData.AuthKey)
	authKey, err := cypher.DecryptData(accessData.AuthKey, legacyPin)
	require.NoError(t, err)
	require.Equal(t, "legacy auth key material", authKey)

	// The main key ciphertext is carried with explicit credential metadata.
	require.NotNil(t, accessData.MainKey)
	require.Equal(t, fixture.record.MainKey, accessData.MainKey.Data)
	require.Equal(t, fixture.record.Hash, accessData.MainKey.Hash)

	ok, err = storage.CheckPin(ctx, legacyPin)
	require.NoError(t, err)
	require.True(t, ok)

	tokens, err := storage.GetRegisteredTokens(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, legacyTokens, tokens)

	backupDone, err := storage.IsBackupDone()
	require.NoError(t, err)
	require.True(t, backupDone)

	hardware, err := storage.IsHardware()
	require.NoError(t, err)
	require.False(t, hardware)

	// Every legacy key except the identity is swept.
	keys, err := kvStore.Keys()
	require.NoError(t, err)
	require.Contains(t, keys, "wallet:id")
	for _, key := range keys {
		if key == "wallet:id" {
			continue
		}
		require.False(
			t, strings.HasPrefix(key, "wallet:"),
			"legacy key %q survived migration", key,
		)
	}
}

func TestHandleDataMigrationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage, kvStore := newTestStorage(t)
	fixture := newLegacyFixture(t)

	setLegacyKey(t, kvStore, "wallet:accessData", fixture.record)

	require.NoError(t, storage.HandleDataMigration(ctx, legacyPin))

	first, err := storage.GetAvailableAccessData(ctx)
	require.NoError(t, err)
	require.NotNil(t, first.Current)

	// Second run observes the stamped version and changes nothing.
	require.NoError(t, storage.HandleDataMigration(ctx, legacyPin))

	second, err := storage.GetAvailableAccessData(ctx)
	require.NoError(t, err)
	require.NotNil(t, second.Current)
	require.Equal(t, *first.Current, *second.Current)

	version, err := storage.StorageVersion()
	require.NoError(t, err)
	require.Equal(t, types.StorageVersion, *version)
}

func TestHandleDataMigrationWrongPin(t *testing.T) {
	ctx := context.Background()
	storage, kvStore := newTestStorage(t)
	fixture := newLegacyFixture(t)

	setLegacyKey(t, kvStore, "wallet:accessData", fixture.record)
	setLegacyKey(t, kvStore, "wallet:backup", true)

	err := storage.HandleDataMigration(ctx, "0000")
	require.Error(t, err)

	// The legacy record and keys stay fully intact for retry.
	data, err := storage.GetAvailableAccessData(ctx)
	require.NoError(t, err)
	require.NotNil(t, data)
	require.NotNil(t, data.Legacy)
	require.Equal(t, fixture.record, *data.Legacy)

	version, err := storage.StorageVersion()
	require.NoError(t, err)
	require.Nil(t, version)

	keys, err := kvStore.Keys()
	require.NoError(t, err)
	require.Contains(t, keys, "wallet:accessData")
	require.Contains(t, keys, "wallet:backup")
	require.NotContains(t, keys, "wallet:id")

	// The correct pin still migrates afterwards.
	require.NoError(t, storage.HandleDataMigration(ctx, legacyPin))

	version, err = storage.StorageVersion()
	require.NoError(t, err)
	require.NotNil(t, version)
}

func TestHandleDataMigrationFreshInstall(t *testing.T) {
	ctx := context.Background()
	storage, _ := newTestStorage(t)

	// Nothing to migrate: the call only stamps the version.
	require.NoError(t, storage.HandleDataMigration(ctx, legacyPin))

	version, err := storage.StorageVersion()
	require.NoError(t, err)
	require.NotNil(t, version)
	require.Equal(t, types.StorageVersion, *version)

	require.False(t, storage.IsLoadedSync())
}

func TestHandleDataMigrationAfterInit(t *testing.T) {
	ctx := context.Background()
	storage, _ := newTestStorage(t)

	require.NoError(t, storage.InitStorage(ctx, testMnemonic, "pw1", "1234", ""))

	before, err := storage.GetAvailableAccessData(ctx)
	require.NoError(t, err)
	require.NotNil(t, before.Current)

	require.NoError(t, storage.HandleDataMigration(ctx, "1234"))

	after, err := storage.GetAvailableAccessData(ctx)
	require.NoError(t, err)
	require.NotNil(t, after.Current)
	require.Equal(t, *before.Current, *after.Current)
}
