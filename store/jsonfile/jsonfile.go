/*
Package jsonfile persists the ledger store as a single JSON snapshot file.

PURPOSE:
  Default Snapshotter. The whole store is one small JSON document
  (owner → person → movement list), rewritten after every mutation.

SNAPSHOT LAYOUT:
  {
    "7967718457": {
      "Magaly": {
        "movimientos": [
          {"tipo": "debe", "cantidad": "1000", "motivo": "efectivo",
           "fecha": "12/05/2025 - 18:30"}
        ]
      }
    }
  }

  Amounts are decimal strings (exact round-trip), direction lives in
  "tipo", and "fecha" is DD/MM/YYYY for backdated entries or
  "DD/MM/YYYY - HH:MM" otherwise. No totals are stored: balances are
  always recomputed from the movements.

CRASH SAFETY:
  Save writes to a temp file in the same directory and renames it over the
  snapshot. An in-place partial write could corrupt the snapshot and strand
  every owner's data; rename is atomic on the filesystems we care about.

LOAD SEMANTICS:
  A missing file is an empty store. A file that exists but does not decode
  is an error — starting empty would silently mask data loss.

SEE ALSO:
  - ledger/engine.go: Snapshotter interface and write-through policy
  - store/sqlite: Alternative durable backend
*/
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/debt-ledger/ledger"
)

// Store persists snapshots to a single JSON file.
type Store struct {
	path string
}

// New creates a snapshot store writing to path. The file is created on the
// first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// =============================================================================
// SNAPSHOT DOCUMENT - Decoupled from the domain types
// =============================================================================

type snapshotDoc map[string]map[string]personRecord

type personRecord struct {
	Movimientos []movementRecord `json:"movimientos"`
}

type movementRecord struct {
	ID       string           `json:"id,omitempty"`
	Tipo     string           `json:"tipo"`
	Cantidad decimal.Decimal  `json:"cantidad"`
	Motivo   string           `json:"motivo"`
	Fecha    ledger.Timestamp `json:"fecha"`
}

// =============================================================================
// SNAPSHOTTER IMPLEMENTATION
// =============================================================================

// Load reads the snapshot. Absence of the file yields an empty store.
func (s *Store) Load(ctx context.Context) (*ledger.Store, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return ledger.NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", s.path, err)
	}
	return fromDoc(doc)
}

// Save rewrites the whole snapshot atomically (write temp, then rename).
func (s *Store) Save(ctx context.Context, store *ledger.Store) error {
	data, err := json.MarshalIndent(toDoc(store), "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// =============================================================================
// CONVERSION
// =============================================================================

func toDoc(store *ledger.Store) snapshotDoc {
	doc := make(snapshotDoc, len(store.Owners))
	for owner, people := range store.Owners {
		ownerDoc := make(map[string]personRecord, len(people))
		for name, person := range people {
			records := make([]movementRecord, len(person.Movements))
			for i, m := range person.Movements {
				records[i] = movementRecord{
					ID:       m.ID,
					Tipo:     string(m.Kind),
					Cantidad: m.Amount,
					Motivo:   m.Description,
					Fecha:    m.At,
				}
			}
			ownerDoc[name] = personRecord{Movimientos: records}
		}
		doc[string(owner)] = ownerDoc
	}
	return doc
}

func fromDoc(doc snapshotDoc) (*ledger.Store, error) {
	store := ledger.NewStore()
	for owner, people := range doc {
		ownerLedgers := make(map[string]*ledger.PersonLedger, len(people))
		for name, record := range people {
			person := &ledger.PersonLedger{Name: name}
			for _, r := range record.Movimientos {
				kind := ledger.Kind(r.Tipo)
				if !kind.Valid() {
					return nil, fmt.Errorf("corrupt snapshot: unknown movement kind %q for %s", r.Tipo, name)
				}
				id := r.ID
				if id == "" {
					// Snapshots written before IDs existed.
					id = uuid.NewString()
				}
				person.Movements = append(person.Movements, ledger.Movement{
					ID:          id,
					Kind:        kind,
					Amount:      r.Cantidad,
					Description: r.Motivo,
					At:          r.Fecha,
				})
			}
			if len(person.Movements) == 0 {
				// A person with no movements must not exist in the store.
				continue
			}
			ownerLedgers[name] = person
		}
		if len(ownerLedgers) > 0 {
			store.Owners[ledger.OwnerID(owner)] = ownerLedgers
		}
	}
	return store, nil
}
