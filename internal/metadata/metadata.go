// Package metadata persists wallet and address records in SQLite. Rows
// describe wallets and their derived public addresses only; secret
// material lives in the keystore, never here.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/keysmith/keysmith/internal/chain"
	"github.com/keysmith/keysmith/internal/wallet"
	kserr "github.com/keysmith/keysmith/pkg/errors"
)

// schemaVersion is the current schema version; migrations run on open
// until the database reaches it.
const schemaVersion = 1

// AddressRecord is one derived address row plus its user-facing fields.
type AddressRecord struct {
	chain.Address

	// Label is an optional user-assigned name for the address.
	Label string `json:"label,omitempty"`

	// IsPrimary marks the wallet's main address for a chain (index 0).
	IsPrimary bool `json:"is_primary"`

	// CreatedAt is the derivation timestamp (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Store is the SQLite-backed metadata store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the metadata database at path and runs
// migrations. The DSN enables foreign key enforcement, WAL journaling,
// and a busy timeout; write transactions take the database lock
// immediately.
func Open(path string) (*Store, error) {
	pragmas := make(url.Values)
	for _, option := range []string{
		"foreign_keys=on",
		"journal_mode=WAL",
		"busy_timeout=5000",
	} {
		pragmas.Add("_pragma", option)
	}

	dsn := fmt.Sprintf("%s?%s&_txlock=immediate", path, pragmas.Encode())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr(err, "opening metadata database")
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL DEFAULT (datetime('now'))
)`)
	if err != nil {
		return storageErr(err, "creating migrations table")
	}

	var current int
	err = s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM migrations`).Scan(&current)
	if err != nil {
		return storageErr(err, "reading schema version")
	}

	if current < schemaVersion {
		if err := s.migrateV1(); err != nil {
			return storageErr(err, "applying schema v1")
		}
	}

	return nil
}

func (s *Store) migrateV1() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  backup_verified INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS addresses (
  id INTEGER PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  chain_id TEXT NOT NULL,
  family TEXT NOT NULL,
  address TEXT NOT NULL,
  derivation_path TEXT NOT NULL,
  public_key TEXT NOT NULL,
  account_index INTEGER NOT NULL DEFAULT 0,
  address_index INTEGER NOT NULL DEFAULT 0,
  label TEXT NOT NULL DEFAULT '',
  is_primary INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  FOREIGN KEY (wallet_id) REFERENCES wallets(id) ON DELETE CASCADE,
  UNIQUE (wallet_id, chain_id, account_index, address_index)
);

CREATE INDEX IF NOT EXISTS idx_addresses_wallet ON addresses(wallet_id);
CREATE INDEX IF NOT EXISTS idx_addresses_chain ON addresses(chain_id);

INSERT INTO migrations (version) VALUES (1);
`)

	return err
}

// CreateWallet inserts a wallet record. Name collisions surface as
// ErrWalletExists.
func (s *Store) CreateWallet(ctx context.Context, w *wallet.Wallet) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO wallets (id, name, type, backup_verified, created_at)
VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Name, string(w.Type), w.BackupVerified, encodeTime(w.CreatedAt))
	if isUniqueViolation(err) {
		return kserr.WithDetails(kserr.ErrWalletExists, map[string]string{
			"name": w.Name,
		})
	}
	if err != nil {
		return storageErr(err, "creating wallet record")
	}

	return nil
}

// GetWallet returns the wallet with the given ID.
func (s *Store) GetWallet(ctx context.Context, id string) (*wallet.Wallet, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, type, backup_verified, created_at FROM wallets WHERE id = ?`, id)

	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kserr.WithDetails(kserr.ErrWalletNotFound, map[string]string{
			"wallet_id": id,
		})
	}
	if err != nil {
		return nil, storageErr(err, "reading wallet record")
	}

	return w, nil
}

// GetWalletByName returns the wallet with the given name.
func (s *Store) GetWalletByName(ctx context.Context, name string) (*wallet.Wallet, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, type, backup_verified, created_at FROM wallets WHERE name = ?`, name)

	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kserr.WithDetails(kserr.ErrWalletNotFound, map[string]string{
			"name": name,
		})
	}
	if err != nil {
		return nil, storageErr(err, "reading wallet record")
	}

	return w, nil
}

// ListWallets returns all wallets ordered by creation time, then name.
func (s *Store) ListWallets(ctx context.Context) ([]*wallet.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, type, backup_verified, created_at
FROM wallets ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, storageErr(err, "listing wallets")
	}
	defer func() {
		_ = rows.Close()
	}()

	var wallets []*wallet.Wallet
	for rows.Next() {
		w, scanErr := scanWallet(rows)
		if scanErr != nil {
			return nil, storageErr(scanErr, "scanning wallet record")
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "listing wallets")
	}

	return wallets, nil
}

// DeleteWallet removes a wallet row; its address rows cascade.
func (s *Store) DeleteWallet(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		return storageErr(err, "deleting wallet record")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(err, "deleting wallet record")
	}
	if affected == 0 {
		return kserr.WithDetails(kserr.ErrWalletNotFound, map[string]string{
			"wallet_id": id,
		})
	}

	return nil
}

// RenameWallet changes a wallet's name. The new name must be unused.
func (s *Store) RenameWallet(ctx context.Context, id, newName string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE wallets SET name = ? WHERE id = ?`, newName, id)
	if isUniqueViolation(err) {
		return kserr.WithDetails(kserr.ErrWalletExists, map[string]string{
			"name": newName,
		})
	}
	if err != nil {
		return storageErr(err, "renaming wallet")
	}

	return checkAffected(res, id)
}

// SetBackupVerified records whether the user has confirmed holding the
// recovery phrase.
func (s *Store) SetBackupVerified(ctx context.Context, id string, verified bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE wallets SET backup_verified = ? WHERE id = ?`, verified, id)
	if err != nil {
		return storageErr(err, "updating backup flag")
	}

	return checkAffected(res, id)
}

// InsertAddress persists one derived address for a wallet. A missing
// wallet surfaces as ErrWalletNotFound; an already-populated derivation
// slot as ErrInvalidInput.
func (s *Store) InsertAddress(ctx context.Context, walletID string, rec *AddressRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO addresses (
  wallet_id, chain_id, family, address, derivation_path, public_key,
  account_index, address_index, label, is_primary, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		walletID, string(rec.ChainID), string(rec.Family), rec.Address.Address,
		rec.Path, rec.PublicKey, rec.Account, rec.Index, rec.Label,
		rec.IsPrimary, encodeTime(rec.CreatedAt))

	return mapAddressInsertErr(err, walletID, rec)
}

// InsertAddresses persists a batch of derived addresses in one
// transaction: either all rows land or none do.
func (s *Store) InsertAddresses(ctx context.Context, walletID string, recs []*AddressRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "starting address insert")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO addresses (
  wallet_id, chain_id, family, address, derivation_path, public_key,
  account_index, address_index, label, is_primary, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return storageErr(err, "preparing address insert")
	}
	defer func() {
		_ = stmt.Close()
	}()

	now := time.Now().UTC()
	for _, rec := range recs {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}

		_, execErr := stmt.ExecContext(ctx,
			walletID, string(rec.ChainID), string(rec.Family), rec.Address.Address,
			rec.Path, rec.PublicKey, rec.Account, rec.Index, rec.Label,
			rec.IsPrimary, encodeTime(rec.CreatedAt))
		if execErr != nil {
			return mapAddressInsertErr(execErr, walletID, rec)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr(err, "committing address insert")
	}

	return nil
}

// ListAddresses returns all addresses for a wallet ordered by chain, then
// account and index.
func (s *Store) ListAddresses(ctx context.Context, walletID string) ([]*AddressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT chain_id, family, address, derivation_path, public_key,
       account_index, address_index, label, is_primary, created_at
FROM addresses WHERE wallet_id = ?
ORDER BY chain_id ASC, account_index ASC, address_index ASC`, walletID)
	if err != nil {
		return nil, storageErr(err, "listing addresses")
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*AddressRecord
	for rows.Next() {
		var (
			rec     AddressRecord
			chainID string
			family  string
			created string
		)
		scanErr := rows.Scan(&chainID, &family, &rec.Address.Address, &rec.Path,
			&rec.PublicKey, &rec.Account, &rec.Index, &rec.Label,
			&rec.IsPrimary, &created)
		if scanErr != nil {
			return nil, storageErr(scanErr, "scanning address record")
		}

		rec.ChainID = chain.ID(chainID)
		rec.Family = chain.Family(family)
		rec.CreatedAt = parseTime(created)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "listing addresses")
	}

	return records, nil
}

// NextAddressIndex returns the next unused address index for a wallet's
// chain and account.
func (s *Store) NextAddressIndex(ctx context.Context, walletID string, chainID chain.ID, account uint32) (uint32, error) {
	var next int64
	err := s.db.QueryRowContext(ctx, `
SELECT COALESCE(MAX(address_index) + 1, 0) FROM addresses
WHERE wallet_id = ? AND chain_id = ? AND account_index = ?`,
		walletID, string(chainID), account).Scan(&next)
	if err != nil {
		return 0, storageErr(err, "reading next address index")
	}
	if next > int64(chain.MaxIndex) {
		return 0, kserr.WithDetails(kserr.ErrDerivationFailed, map[string]string{
			"reason": "address index space exhausted",
			"chain":  string(chainID),
		})
	}

	return uint32(next), nil
}

// SetAddressLabel updates the label on one derivation slot.
func (s *Store) SetAddressLabel(ctx context.Context, walletID string, chainID chain.ID, account, index uint32, label string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE addresses SET label = ?
WHERE wallet_id = ? AND chain_id = ? AND account_index = ? AND address_index = ?`,
		label, walletID, string(chainID), account, index)
	if err != nil {
		return storageErr(err, "updating address label")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(err, "updating address label")
	}
	if affected == 0 {
		return kserr.WithDetails(kserr.ErrNotFound, map[string]string{
			"wallet_id": walletID,
			"chain":     string(chainID),
			"index":     fmt.Sprintf("%d", index),
		})
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*wallet.Wallet, error) {
	var (
		w          wallet.Wallet
		walletType string
		created    string
	)
	if err := row.Scan(&w.ID, &w.Name, &walletType, &w.BackupVerified, &created); err != nil {
		return nil, err
	}

	w.Type = wallet.Type(walletType)
	w.CreatedAt = parseTime(created)

	return &w, nil
}

// checkAffected converts a zero-row update into ErrWalletNotFound.
func checkAffected(res sql.Result, walletID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr(err, "checking affected rows")
	}
	if affected == 0 {
		return kserr.WithDetails(kserr.ErrWalletNotFound, map[string]string{
			"wallet_id": walletID,
		})
	}

	return nil
}

// mapAddressInsertErr classifies an address insert failure: foreign key
// violations mean the wallet row is gone, unique violations mean the
// derivation slot is already populated.
func mapAddressInsertErr(err error, walletID string, rec *AddressRecord) error {
	if err == nil {
		return nil
	}
	if isForeignKeyViolation(err) {
		return kserr.WithDetails(kserr.ErrWalletNotFound, map[string]string{
			"wallet_id": walletID,
		})
	}
	if isUniqueViolation(err) {
		return kserr.WithDetails(kserr.ErrInvalidInput, map[string]string{
			"reason": "derivation slot already populated",
			"chain":  string(rec.ChainID),
			"index":  fmt.Sprintf("%d", rec.Index),
		})
	}

	return storageErr(err, "inserting address record")
}

// storageErr maps a database failure onto the storage error code.
func storageErr(err error, op string) error {
	return kserr.Wrap(kserr.ErrStorageFailure, "%s: %v", op, err)
}

func isUniqueViolation(err error) bool {
	return isSQLiteCode(err,
		sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

func isForeignKeyViolation(err error) bool {
	return isSQLiteCode(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY)
}

func isSQLiteCode(err error, codes ...int) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	for _, code := range codes {
		if sqliteErr.Code() == code {
			return true
		}
	}

	return false
}

// encodeTime stores timestamps as RFC 3339 UTC text.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime is lenient: a malformed timestamp reads as the zero time
// rather than failing the whole row.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t.UTC()
}
