package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/heliowallet/wallet-sdk/types"
	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	accessStoreDir = "access"
	accessDataKey  = "accessData"
)

type accessRepository struct {
	db *badgerhold.Store
}

func NewAccessStore(dir string, logger badger.Logger) (*accessRepository, error) {
	if len(dir) > 0 {
		dir = filepath.Join(dir, accessStoreDir)
	}
	badgerDb, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open access data store: %s", err)
	}
	return &accessRepository{db: badgerDb}, nil
}

func (r *accessRepository) SaveAccessData(
	_ context.Context, data types.AccessData,
) error {
	return r.db.Upsert(accessDataKey, &data)
}

func (r *accessRepository) GetAccessData(
	_ context.Context,
) (*types.AccessData, error) {
	var data types.AccessData
	if err := r.db.Get(accessDataKey, &data); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &data, nil
}

func (r *accessRepository) CleanData(_ context.Context) error {
	if err := r.db.Delete(accessDataKey, &types.AccessData{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (r *accessRepository) Close() {
	if err := r.db.Close(); err != nil {
		log.Debugf("error on closing access data store: %s", err)
	}
}
