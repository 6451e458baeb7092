/*
Package ledger provides the core debt-tracking engine.

PURPOSE:
  This package contains the data model and operations for an informal debt
  ledger: who owes the owner, who has paid back, how much, and when. The
  engine is transport-agnostic — a chat dispatcher, an HTTP handler, or a
  test drives it the same way.

KEY CONCEPTS IN THIS FILE (types.go):
  - Movement: An immutable record of one debit or credit against a person
  - PersonLedger: The ordered movement log for one named person
  - Store: The per-owner aggregate of all person ledgers
  - OwnerID: Opaque authorization context supplied by the caller

DESIGN PRINCIPLES:
  1. Immutability: Movements are never edited, only removed whole
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Derived balance: Balance is always recomputed from movements,
     never cached, so it can never drift from the movement log
  4. Magnitude + kind: Amounts are stored non-negative; the Kind
     carries the sign

SEE ALSO:
  - engine.go: Operations that mutate and query the Store
  - time.go: Timestamp with optional date-only granularity
  - errors.go: Error taxonomy
*/
package ledger

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// OwnerID identifies the authorized identity a ledger belongs to.
// The engine does not authorize owners; the caller does.
type OwnerID string

// =============================================================================
// MOVEMENT - One recorded transaction against a person
// =============================================================================

// Kind is the direction of a movement. The persisted value doubles as the
// wire/snapshot token, hence the Spanish words.
type Kind string

const (
	// KindDebit increases what the person owes the owner.
	KindDebit Kind = "debe"
	// KindCredit is a payment; it decreases what the person owes.
	KindCredit Kind = "pago"
)

// Valid reports whether k is one of the two known kinds.
func (k Kind) Valid() bool {
	return k == KindDebit || k == KindCredit
}

// Sign returns +1 for a debit and -1 for a credit.
func (k Kind) Sign() decimal.Decimal {
	if k == KindCredit {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Movement is one recorded transaction. Immutable once stored; corrections
// are made by deleting the record, never by editing it.
type Movement struct {
	ID          string
	Kind        Kind
	Amount      decimal.Decimal // non-negative magnitude; Kind carries direction
	Description string          // free text, may be empty
	At          Timestamp
}

// Delta is the signed contribution of this movement to a balance.
func (m Movement) Delta() decimal.Decimal {
	return m.Amount.Mul(m.Kind.Sign())
}

// =============================================================================
// PERSON LEDGER - Ordered movement log for one person
// =============================================================================

// PersonLedger holds every movement recorded against one person, in the
// order they were recorded (a backdated entry stays where it was inserted).
//
// INVARIANT: a PersonLedger reachable from a Store always has at least one
// movement. Deleting the last movement deletes the person.
type PersonLedger struct {
	Name      string
	Movements []Movement
}

// Balance recomputes the net amount owed from the movement log.
// Never cached: recompute-on-read keeps the balance self-healing against
// deletions and out-of-band snapshot edits.
func (p *PersonLedger) Balance() decimal.Decimal {
	total := decimal.Zero
	for _, m := range p.Movements {
		total = total.Add(m.Delta())
	}
	return total
}

func (p *PersonLedger) clone() *PersonLedger {
	movements := make([]Movement, len(p.Movements))
	copy(movements, p.Movements)
	return &PersonLedger{Name: p.Name, Movements: movements}
}

// =============================================================================
// STORE - Per-owner aggregate of person ledgers
// =============================================================================

// Store maps owner → person name → PersonLedger. It is the unit of
// persistence: a snapshot adapter loads and saves it as a whole.
type Store struct {
	Owners map[OwnerID]map[string]*PersonLedger
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{Owners: make(map[OwnerID]map[string]*PersonLedger)}
}

// Person returns the ledger for name under owner, or nil if absent.
func (s *Store) Person(owner OwnerID, name string) *PersonLedger {
	return s.Owners[owner][name]
}

// People returns the name → ledger map for an owner (nil if the owner has
// never recorded anything).
func (s *Store) People(owner OwnerID) map[string]*PersonLedger {
	return s.Owners[owner]
}

// Clone deep-copies the store. The engine mutates a clone, persists it, and
// only then swaps it in, so a failed persist leaves the store untouched.
func (s *Store) Clone() *Store {
	c := NewStore()
	for owner, people := range s.Owners {
		copied := make(map[string]*PersonLedger, len(people))
		for name, p := range people {
			copied[name] = p.clone()
		}
		c.Owners[owner] = copied
	}
	return c
}

// =============================================================================
// NAME CANONICALIZATION
// =============================================================================

// CanonicalName normalizes a person name for storage and lookup: first rune
// upper-cased, remainder as typed. "magaly" and "Magaly" are the same person.
func CanonicalName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}
