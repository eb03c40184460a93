package walletsdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/heliowallet/wallet-sdk/crypto"
	"github.com/heliowallet/wallet-sdk/types"
	log "github.com/sirupsen/logrus"
)

// HandleDataMigration upgrades the persisted wallet representation to the
// current schema. It is invoked once per unlock attempt with the user's pin
// and is idempotent: when the version is already stamped it only re-stamps it.
//
// A wrong pin aborts before any legacy key is deleted, leaving the legacy
// record intact for retry.
func (s *Storage) HandleDataMigration(ctx context.Context, pin string) error {
	version, err := s.StorageVersion()
	if err != nil {
		return err
	}

	if version == nil {
		if err := s.migrateLegacyData(ctx, pin); err != nil {
			return fmt.Errorf("failed to migrate legacy wallet data: %w", err)
		}
	}

	return s.UpdateStorageVersion()
}

func (s *Storage) migrateLegacyData(ctx context.Context, pin string) error {
	legacy := &types.LegacyAccessData{}
	ok, err := s.getJSON(legacyAccessDataKey, legacy)
	if err != nil {
		return err
	}
	if !ok {
		// Fresh install, nothing to migrate.
		return nil
	}

	log.Debug("migrating legacy wallet data to the versioned schema")

	// Everything that must decrypt happens before any destructive step.
	accessData, err := s.rebuildAccessData(legacy, pin)
	if err != nil {
		return err
	}

	walletID, err := crypto.WalletID(legacy.Xpubkey)
	if err != nil {
		return err
	}

	newStore, err := s.newStore(walletID)
	if err != nil {
		return fmt.Errorf("failed to open wallet store: %w", err)
	}

	if err := newStore.AccessStore().SaveAccessData(ctx, *accessData); err != nil {
		newStore.Close()
		return fmt.Errorf("failed to persist access data: %w", err)
	}

	if err := s.setJSON(walletIDKey, walletID); err != nil {
		newStore.Close()
		return err
	}
	if err := s.SetHardware(false); err != nil {
		newStore.Close()
		return err
	}

	// Legacy token registry. A failing token aborts the whole migration:
	// the version stays absent and the next unlock retries, RegisterToken
	// being an idempotent upsert.
	var legacyTokens []types.TokenData
	if ok, err := s.getJSON(legacyTokensKey, &legacyTokens); err != nil {
		newStore.Close()
		return err
	} else if ok {
		for _, token := range legacyTokens {
			if err := newStore.TokenStore().RegisterToken(ctx, token); err != nil {
				newStore.Close()
				return fmt.Errorf(
					"failed to migrate registered token %s: %w", token.UID, err,
				)
			}
		}
		log.Debugf("migrated %d registered tokens", len(legacyTokens))
	}

	var backupDone bool
	if ok, err := s.getJSON(legacyBackupKey, &backupDone); err != nil {
		newStore.Close()
		return err
	} else if ok {
		if err := s.SetBackupDone(backupDone); err != nil {
			newStore.Close()
			return err
		}
	}

	// Sweep the legacy namespace so no decrypted material leaks. The
	// identity key is the only survivor of the prefix.
	keys, err := s.kv.Keys()
	if err != nil {
		newStore.Close()
		return err
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, legacyKeyPrefix) || key == walletIDKey {
			continue
		}
		if err := s.kv.Remove(key); err != nil {
			newStore.Close()
			return err
		}
	}

	s.closeStore()
	s.store = newStore

	log.WithField("walletId", walletID).Debug("legacy wallet data migrated")
	return nil
}

// rebuildAccessData turns the flat legacy record into the versioned shape.
// The main key ciphertext is carried as-is with its credential metadata made
// explicit; the other secrets are decrypted with the pin and re-encrypted
// under the current shape.
func (s *Storage) rebuildAccessData(
	legacy *types.LegacyAccessData, pin string,
) (*types.AccessData, error) {
	words, err := s.cypher.DecryptData(legacy.SecretFor(legacy.Words), pin)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt legacy words: %w", err)
	}
	wordsSecret, err := s.cypher.EncryptData(words, pin)
	if err != nil {
		return nil, err
	}

	accessData := &types.AccessData{
		WalletType:  types.WalletTypeP2PKH,
		WalletFlags: 0,
		Xpubkey:     legacy.Xpubkey,
		Words:       wordsSecret,
		MainKey:     legacy.MainSecret(),
	}

	if legacy.AcctPathMainKey != "" {
		acctPathKey, err := s.cypher.DecryptData(
			legacy.SecretFor(legacy.AcctPathMainKey), pin,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to decrypt legacy account path key: %w", err,
			)
		}
		if accessData.AcctPathKey, err = s.cypher.EncryptData(
			acctPathKey, pin,
		); err != nil {
			return nil, err
		}
	}

	if legacy.AuthKey != "" {
		authKey, err := s.cypher.DecryptData(legacy.SecretFor(legacy.AuthKey), pin)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt legacy auth key: %w", err)
		}
		if accessData.AuthKey, err = s.cypher.EncryptData(authKey, pin); err != nil {
			return nil, err
		}
	}

	return accessData, nil
}
