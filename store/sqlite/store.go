package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/heliowallet/wallet-sdk/types"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	sqliteDbFile = "wallet.sqlite.db"
	driverName   = "sqlite"
)

//go:embed migration/*
var migrationFS embed.FS

type Service struct {
	db *sql.DB

	accessStore types.AccessStore
	tokenStore  types.TokenStore
}

func NewStore(baseDir string) (*Service, error) {
	dbFile := filepath.Join(baseDir, sqliteDbFile)
	db, err := openDb(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %s", err)
	}

	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrationFS, "migration")
	if err != nil {
		return nil, fmt.Errorf("failed to load migration source: %s", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "wallet.db", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %s", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("failed to run migrations: %s", err)
	}

	return &Service{
		db:          db,
		accessStore: &accessRepository{db},
		tokenStore:  &tokenRepository{db},
	}, nil
}

func (s *Service) AccessStore() types.AccessStore {
	return s.accessStore
}

func (s *Service) TokenStore() types.TokenStore {
	return s.tokenStore
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnf("failed to close sqlite store: %v", err)
	}
}

type accessRepository struct {
	db *sql.DB
}

func (r *accessRepository) SaveAccessData(
	ctx context.Context, data types.AccessData,
) error {
	words, err := encodeSecret(data.Words)
	if err != nil {
		return err
	}
	mainKey, err := encodeSecret(data.MainKey)
	if err != nil {
		return err
	}
	acctPathKey, err := encodeSecret(data.AcctPathKey)
	if err != nil {
		return err
	}
	authKey, err := encodeSecret(data.AuthKey)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO access_data (
			id, wallet_type, wallet_flags, xpubkey,
			words, main_key, acct_path_key, auth_key
		) VALUES (0, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			wallet_type = excluded.wallet_type,
			wallet_flags = excluded.wallet_flags,
			xpubkey = excluded.xpubkey,
			words = excluded.words,
			main_key = excluded.main_key,
			acct_path_key = excluded.acct_path_key,
			auth_key = excluded.auth_key`,
		data.WalletType, data.WalletFlags, data.Xpubkey,
		words, mainKey, acctPathKey, authKey,
	)
	return err
}

func (r *accessRepository) GetAccessData(
	ctx context.Context,
) (*types.AccessData, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT wallet_type, wallet_flags, xpubkey,
			words, main_key, acct_path_key, auth_key
		FROM access_data WHERE id = 0`,
	)

	var (
		data                                 types.AccessData
		words, mainKey, acctPathKey, authKey sql.NullString
	)
	if err := row.Scan(
		&data.WalletType, &data.WalletFlags, &data.Xpubkey,
		&words, &mainKey, &acctPathKey, &authKey,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var err error
	if data.Words, err = decodeSecret(words); err != nil {
		return nil, err
	}
	if data.MainKey, err = decodeSecret(mainKey); err != nil {
		return nil, err
	}
	if data.AcctPathKey, err = decodeSecret(acctPathKey); err != nil {
		return nil, err
	}
	if data.AuthKey, err = decodeSecret(authKey); err != nil {
		return nil, err
	}
	return &data, nil
}

func (r *accessRepository) CleanData(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM access_data`)
	return err
}

type tokenRepository struct {
	db *sql.DB
}

func (r *tokenRepository) RegisterToken(
	ctx context.Context, token types.TokenData,
) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO registered_tokens (uid, name, symbol)
		VALUES (?, ?, ?)
		ON CONFLICT (uid) DO UPDATE SET
			name = excluded.name,
			symbol = excluded.symbol`,
		token.UID, token.Name, token.Symbol,
	)
	return err
}

func (r *tokenRepository) GetRegisteredTokens(
	ctx context.Context,
) ([]types.TokenData, error) {
	rows, err := r.db.QueryContext(
		ctx, `SELECT uid, name, symbol FROM registered_tokens`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []types.TokenData
	for rows.Next() {
		var token types.TokenData
		if err := rows.Scan(&token.UID, &token.Name, &token.Symbol); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func encodeSecret(secret *types.EncryptedSecret) (sql.NullString, error) {
	if secret == nil {
		return sql.NullString{}, nil
	}
	buf, err := json.Marshal(secret)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(buf), Valid: true}, nil
}

func decodeSecret(value sql.NullString) (*types.EncryptedSecret, error) {
	if !value.Valid {
		return nil, nil
	}
	secret := &types.EncryptedSecret{}
	if err := json.Unmarshal([]byte(value.String), secret); err != nil {
		return nil, err
	}
	return secret, nil
}

func openDb(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, os.ModeDir|0755); err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	return db, nil
}
