// Package storage reads Starknet-style chain state out of a SQLite
// database. The node answers most RPC methods from here; the same database
// file is handed to every Cairo executor subprocess at launch.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNoBlocks is returned when the database holds no block headers yet.
	ErrNoBlocks = errors.New("storage: no blocks")

	// ErrBlockNotFound is returned for a block number past the chain head.
	ErrBlockNotFound = errors.New("storage: block not found")

	// ErrContractNotFound is returned when a contract address has no
	// storage rows at all.
	ErrContractNotFound = errors.New("storage: contract not found")
)

// Store wraps the chain database. All methods are safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the SQLite database at path and
// ensures the chain-state tables exist.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Basic health check + a few safe pragmas.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// bootstrap creates tables/indexes if missing.
func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chain_meta (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS block_header (
  number INTEGER PRIMARY KEY,
  hash   TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS contract_storage (
  contract_address TEXT NOT NULL,
  storage_key      TEXT NOT NULL,
  value            TEXT NOT NULL,
  block_number     INTEGER NOT NULL,
  PRIMARY KEY (contract_address, storage_key, block_number)
);`,
		`CREATE INDEX IF NOT EXISTS contract_storage_address_idx ON contract_storage(contract_address);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for seeding tools and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ChainID returns the chain identifier recorded at import time.
func (s *Store) ChainID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM chain_meta WHERE key = 'chain_id'`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("chain id not set in chain_meta")
	}
	if err != nil {
		return "", fmt.Errorf("read chain id: %w", err)
	}
	return id, nil
}

// LatestBlockNumber returns the number of the chain head.
func (s *Store) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var number sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(number) FROM block_header`).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("read latest block number: %w", err)
	}
	if !number.Valid {
		return 0, ErrNoBlocks
	}
	return uint64(number.Int64), nil
}

// BlockHashAndNumber returns the hash and number of the chain head.
func (s *Store) BlockHashAndNumber(ctx context.Context) (string, uint64, error) {
	var (
		hash   string
		number uint64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT hash, number FROM block_header ORDER BY number DESC LIMIT 1`).
		Scan(&hash, &number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNoBlocks
	}
	if err != nil {
		return "", 0, fmt.Errorf("read chain head: %w", err)
	}
	return hash, number, nil
}

// StorageAt returns the value of one storage slot of a contract as of the
// given block: the most recent write at or before blockNumber. A contract
// with no rows at all is ErrContractNotFound; a known contract whose slot
// was never written reads as zero.
func (s *Store) StorageAt(ctx context.Context, contract, key string, blockNumber uint64) (string, error) {
	latest, err := s.LatestBlockNumber(ctx)
	if err != nil {
		if errors.Is(err, ErrNoBlocks) {
			return "", ErrBlockNotFound
		}
		return "", err
	}
	if blockNumber > latest {
		return "", ErrBlockNotFound
	}

	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM contract_storage WHERE contract_address = ? LIMIT 1`,
		contract).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrContractNotFound
	}
	if err != nil {
		return "", fmt.Errorf("probe contract: %w", err)
	}

	var value string
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM contract_storage
		 WHERE contract_address = ? AND storage_key = ? AND block_number <= ?
		 ORDER BY block_number DESC LIMIT 1`,
		contract, key, blockNumber).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "0x0", nil
	}
	if err != nil {
		return "", fmt.Errorf("read storage slot: %w", err)
	}
	return value, nil
}
