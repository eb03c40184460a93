package badgerstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/heliowallet/wallet-sdk/types"
	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	tokenStoreDir = "tokens"
)

type tokenRepository struct {
	db *badgerhold.Store
}

func NewTokenStore(dir string, logger badger.Logger) (*tokenRepository, error) {
	if len(dir) > 0 {
		dir = filepath.Join(dir, tokenStoreDir)
	}
	badgerDb, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open token registry store: %s", err)
	}
	return &tokenRepository{db: badgerDb}, nil
}

func (r *tokenRepository) RegisterToken(
	_ context.Context, token types.TokenData,
) error {
	return r.db.Upsert(token.UID, &token)
}

func (r *tokenRepository) GetRegisteredTokens(
	_ context.Context,
) ([]types.TokenData, error) {
	var tokens []types.TokenData
	if err := r.db.Find(&tokens, nil); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *tokenRepository) Close() {
	if err := r.db.Close(); err != nil {
		log.Debugf("error on closing token registry store: %s", err)
	}
}
