// Package store persists accounts and repository mappings in SQLite.
// Timestamps are stored as RFC-3339 text. The database handle is opened with
// a single connection so reads and writes are serialized.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type AuthMethod string

const (
	AuthMethodDeviceFlow AuthMethod = "device_flow"
	AuthMethodManual     AuthMethod = "manual"
)

type Account struct {
	ID         string
	Username   string
	AvatarURL  string
	AuthMethod AuthMethod
	CreatedAt  time.Time
}

type RepositoryMapping struct {
	ID        string
	RemoteURL string
	AccountID string
	Remember  bool
	CreatedAt time.Time
}

type accountModel struct {
	bun.BaseModel `bun:"table:accounts"`

	ID         string `bun:"id,pk"`
	Username   string `bun:"username,notnull,unique"`
	AvatarURL  string `bun:"avatar_url"`
	AuthMethod string `bun:"auth_method,notnull"`
	CreatedAt  string `bun:"created_at,notnull"`
}

type mappingModel struct {
	bun.BaseModel `bun:"table:repository_mappings"`

	ID        string `bun:"id,pk"`
	RemoteURL string `bun:"remote_url,notnull"`
	AccountID string `bun:"account_id,notnull"`
	Remember  bool   `bun:"remember,notnull,default:0"`
	CreatedAt string `bun:"created_at,notnull"`
}

type Store struct {
	db *bun.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// initializes the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite is not safely concurrent from arbitrary connections; keep one.
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing bun handle; used by tests with in-memory SQLite.
func NewWithDB(ctx context.Context, db *bun.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*accountModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}
	if _, err := s.db.NewCreateTable().
		Model((*mappingModel)(nil)).
		IfNotExists().
		ForeignKey(`("account_id") REFERENCES "accounts" ("id")`).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create repository_mappings table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// AddAccount inserts an account, replacing any existing row with the same
// username so that re-adding an account refreshes it instead of failing.
func (s *Store) AddAccount(ctx context.Context, account *Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	model := fromAccount(account)
	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (username) DO UPDATE").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("auth_method = EXCLUDED.auth_method").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add account: %w", err)
	}
	return nil
}

// ListAccounts returns all accounts, most recently created first.
func (s *Store) ListAccounts(ctx context.Context) ([]Account, error) {
	var models []accountModel
	err := s.db.NewSelect().
		Model(&models).
		OrderExpr("created_at DESC, username ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	accounts := make([]Account, 0, len(models))
	for i := range models {
		account, err := toAccount(&models[i])
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, nil
}

// GetAccount looks an account up by id. Returns (nil, nil) when absent.
func (s *Store) GetAccount(ctx context.Context, id string) (*Account, error) {
	var model accountModel
	err := s.db.NewSelect().Model(&model).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return toAccount(&model)
}

// GetAccountByUsername looks an account up by username. Returns (nil, nil)
// when absent.
func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*Account, error) {
	var model accountModel
	err := s.db.NewSelect().Model(&model).Where("username = ?", username).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return toAccount(&model)
}

// RemoveAccount deletes an account and, first and in the same transaction,
// every mapping referencing it. Deleting mappings before the account is load
// bearing: the reverse order could leave dangling mapping references.
func (s *Store) RemoveAccount(ctx context.Context, id string) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*mappingModel)(nil)).
			Where("account_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*accountModel)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	return nil
}

// SetRepositoryMapping replaces any existing mapping for the exact remote URL
// string. No URL normalization is applied.
func (s *Store) SetRepositoryMapping(ctx context.Context, remoteURL, accountID string, remember bool) (*RepositoryMapping, error) {
	mapping := &RepositoryMapping{
		ID:        uuid.NewString(),
		RemoteURL: remoteURL,
		AccountID: accountID,
		Remember:  remember,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*mappingModel)(nil)).
			Where("remote_url = ?", remoteURL).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(fromMapping(mapping)).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set repository mapping: %w", err)
	}
	return mapping, nil
}

// GetRepositoryMapping returns the mapping for the exact remote URL string,
// or (nil, nil) when none exists.
func (s *Store) GetRepositoryMapping(ctx context.Context, remoteURL string) (*RepositoryMapping, error) {
	var model mappingModel
	err := s.db.NewSelect().Model(&model).Where("remote_url = ?", remoteURL).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repository mapping: %w", err)
	}
	return toMapping(&model)
}

// ListRepositoryMappings returns all mappings, most recently created first.
func (s *Store) ListRepositoryMappings(ctx context.Context) ([]RepositoryMapping, error) {
	var models []mappingModel
	err := s.db.NewSelect().
		Model(&models).
		OrderExpr("created_at DESC, remote_url ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list repository mappings: %w", err)
	}
	mappings := make([]RepositoryMapping, 0, len(models))
	for i := range models {
		mapping, err := toMapping(&models[i])
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, *mapping)
	}
	return mappings, nil
}

func (s *Store) RemoveRepositoryMapping(ctx context.Context, id string) error {
	if _, err := s.db.NewDelete().
		Model((*mappingModel)(nil)).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove repository mapping: %w", err)
	}
	return nil
}

func fromAccount(a *Account) *accountModel {
	return &accountModel{
		ID:         a.ID,
		Username:   a.Username,
		AvatarURL:  a.AvatarURL,
		AuthMethod: string(a.AuthMethod),
		CreatedAt:  a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toAccount(m *accountModel) (*Account, error) {
	createdAt, err := time.Parse(time.RFC3339, m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("account %s has invalid created_at: %w", m.ID, err)
	}
	return &Account{
		ID:         m.ID,
		Username:   m.Username,
		AvatarURL:  m.AvatarURL,
		AuthMethod: AuthMethod(m.AuthMethod),
		CreatedAt:  createdAt,
	}, nil
}

func fromMapping(m *RepositoryMapping) *mappingModel {
	return &mappingModel{
		ID:        m.ID,
		RemoteURL: m.RemoteURL,
		AccountID: m.AccountID,
		Remember:  m.Remember,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toMapping(m *mappingModel) (*RepositoryMapping, error) {
	createdAt, err := time.Parse(time.RFC3339, m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("mapping %s has invalid created_at: %w", m.ID, err)
	}
	return &RepositoryMapping{
		ID:        m.ID,
		RemoteURL: m.RemoteURL,
		AccountID: m.AccountID,
		Remember:  m.Remember,
		CreatedAt: createdAt,
	}, nil
}
