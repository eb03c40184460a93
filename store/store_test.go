package store_test

import (
	"context"
	"testing"

	"github.com/heliowallet/wallet-sdk/store"
	"github.com/heliowallet/wallet-sdk/types"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	testAccessData := types.AccessData{
		WalletType: types.WalletTypeP2PKH,
		Xpubkey:    "xpub6CUGRUonZSQ4TWtTMmzXdrXDtypWKiKrhko4egpiMZbpiaQL2jkwSB1icqYh2cfDfVxdx4df189oLKnC5fSwqPfgyP3hooxujYzAu3fDVmz",
		Words: &types.EncryptedSecret{
			Data:         "d29yZHM=",
			Hash:         "aabbcc",
			Salt:         "ddeeff",
			Iterations:   10000,
			KdfAlgorithm: "pbkdf2-sha256",
		},
		MainKey: &types.EncryptedSecret{
			Data:         "bWFpbktleQ==",
			Hash:         "aabbcc",
			Salt:         "ddeeff",
			Iterations:   10000,
			KdfAlgorithm: "pbkdf2-sha256",
		},
	}
	testTokens := []types.TokenData{
		{UID: "00", Name: "Helio", Symbol: "HLO"},
		{UID: "01aa", Name: "Test Token", Symbol: "TST"},
	}

	tests := []struct {
		name string
	}{
		{
			name: types.InMemoryStore,
		},
		{
			name: types.BadgerStore,
		},
		{
			name: types.SQLiteStore,
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			storeSvc, err := store.NewStore(store.Config{
				StoreType: tt.name,
				BaseDir:   t.TempDir(),
			})
			require.NoError(t, err)
			require.NotNil(t, storeSvc)
			defer storeSvc.Close()

			accessStore := storeSvc.AccessStore()
			tokenStore := storeSvc.TokenStore()

			// Check empty data when store is empty.
			data, err := accessStore.GetAccessData(ctx)
			require.NoError(t, err)
			require.Nil(t, data)

			// Check no side effects when cleaning an empty store.
			err = accessStore.CleanData(ctx)
			require.NoError(t, err)

			// Check add and retrieve data.
			err = accessStore.SaveAccessData(ctx, testAccessData)
			require.NoError(t, err)

			data, err = accessStore.GetAccessData(ctx)
			require.NoError(t, err)
			require.Equal(t, testAccessData, *data)

			// Check overwriting the record.
			updated := testAccessData
			updated.WalletFlags = types.WalletFlagHardware
			err = accessStore.SaveAccessData(ctx, updated)
			require.NoError(t, err)

			data, err = accessStore.GetAccessData(ctx)
			require.NoError(t, err)
			require.Equal(t, updated, *data)
			require.True(t, data.IsHardware())

			// Check clean and retrieve data.
			err = accessStore.CleanData(ctx)
			require.NoError(t, err)

			data, err = accessStore.GetAccessData(ctx)
			require.NoError(t, err)
			require.Nil(t, data)

			// Token registry starts empty.
			tokens, err := tokenStore.GetRegisteredTokens(ctx)
			require.NoError(t, err)
			require.Empty(t, tokens)

			for _, token := range testTokens {
				err = tokenStore.RegisterToken(ctx, token)
				require.NoError(t, err)
			}

			// Registering a token twice is an idempotent upsert.
			err = tokenStore.RegisterToken(ctx, testTokens[0])
			require.NoError(t, err)

			tokens, err = tokenStore.GetRegisteredTokens(ctx)
			require.NoError(t, err)
			require.Len(t, tokens, len(testTokens))
			require.ElementsMatch(t, testTokens, tokens)
		})
	}
}

func TestStoreUnknownType(t *testing.T) {
	_, err := store.NewStore(store.Config{StoreType: "bolt"})
	require.Error(t, err)
}
