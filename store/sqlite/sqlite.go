/*
Package sqlite provides a SQLite-backed snapshot store.

PURPOSE:
  Alternative Snapshotter for deployments that prefer a database file over
  a JSON document. The persistence contract is identical: the whole store
  is saved after every mutation, atomically.

ATOMICITY:
  Save runs DELETE + INSERTs inside one database transaction, so a crash
  mid-save leaves the previous snapshot intact — the SQL equivalent of
  write-to-temp-then-rename.

SCHEMA:
  movements: one row per movement, keyed (owner_id, person, seq). The seq
  column preserves recording order, which is display order (a backdated
  entry stays where it was inserted). Amounts are stored as decimal text,
  never as floating point.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): readers don't block the
  single writer and crash recovery is better.

LOAD SEMANTICS:
  An empty database is an empty store. Rows that do not decode (unknown
  kind, bad timestamp) are an error, never silently dropped.

SEE ALSO:
  - ledger/engine.go: Snapshotter interface
  - store/jsonfile: Default file-based backend
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/debt-ledger/ledger"
)

// Store implements ledger.Snapshotter on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at dbPath. Use ":memory:" for an
// in-memory database in tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS movements (
		owner_id    TEXT NOT NULL,
		person      TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		id          TEXT NOT NULL,
		kind        TEXT NOT NULL,
		amount      TEXT NOT NULL,
		description TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		PRIMARY KEY (owner_id, person, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_movements_owner
		ON movements(owner_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOTTER IMPLEMENTATION
// =============================================================================

// Load reads every movement row into a store, preserving recording order.
func (s *Store) Load(ctx context.Context) (*ledger.Store, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id, person, id, kind, amount, description, recorded_at
		FROM movements
		ORDER BY owner_id, person, seq`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	store := ledger.NewStore()
	for rows.Next() {
		var ownerID, person, id, kind, amount, description, recordedAt string
		if err := rows.Scan(&ownerID, &person, &id, &kind, &amount, &description, &recordedAt); err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}

		k := ledger.Kind(kind)
		if !k.Valid() {
			return nil, fmt.Errorf("corrupt snapshot: unknown movement kind %q for %s", kind, person)
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt snapshot: bad amount %q for %s: %w", amount, person, err)
		}
		at, err := ledger.ParseTimestamp(recordedAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt snapshot: bad timestamp %q for %s: %w", recordedAt, person, err)
		}

		owner := ledger.OwnerID(ownerID)
		if store.Owners[owner] == nil {
			store.Owners[owner] = make(map[string]*ledger.PersonLedger)
		}
		p := store.Owners[owner][person]
		if p == nil {
			p = &ledger.PersonLedger{Name: person}
			store.Owners[owner][person] = p
		}
		p.Movements = append(p.Movements, ledger.Movement{
			ID:          id,
			Kind:        k,
			Amount:      value,
			Description: description,
			At:          at,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return store, nil
}

// Save replaces the whole snapshot inside one database transaction.
func (s *Store) Save(ctx context.Context, store *ledger.Store) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM movements`); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO movements (owner_id, person, seq, id, kind, amount, description, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	defer stmt.Close()

	for owner, people := range store.Owners {
		for name, person := range people {
			for seq, m := range person.Movements {
				_, err := stmt.ExecContext(ctx, string(owner), name, seq,
					m.ID, string(m.Kind), m.Amount.String(), m.Description, m.At.String())
				if err != nil {
					return fmt.Errorf("save snapshot: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
