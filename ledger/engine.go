/*
engine.go - Ledger engine operations

PURPOSE:
  The Engine is the single entry point for mutating and querying the Store.
  It owns the in-memory Store for the process lifetime and writes the whole
  snapshot through to the Snapshotter after every successful mutation.

ATOMICITY:
  No operation is partial. Mutations are applied to a deep copy of the
  Store; only after the copy has been durably saved does the Engine swap it
  in. A failed save therefore leaves both memory and disk exactly as they
  were, and the caller gets a PersistenceError.

CONCURRENCY:
  One exclusive mutex guards the whole Store. Expected load is a single
  chat dispatcher plus an occasional HTTP call, so coarse-grained locking
  is deliberate.

AUTHORIZATION:
  The OwnerID is an opaque authorization context supplied by the caller.
  The Engine scopes every operation to that owner and does nothing more;
  deciding who may call is the dispatcher's job.

SEE ALSO:
  - types.go: Store / PersonLedger / Movement
  - store/jsonfile, store/sqlite: Snapshotter implementations
*/
package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SNAPSHOTTER - Durable whole-store persistence
// =============================================================================

// Snapshotter loads and saves the Store as a whole. Load on a backend with
// no snapshot yet must return an empty store, not an error; a corrupt
// snapshot must return an error so prior data loss is never masked.
type Snapshotter interface {
	Load(ctx context.Context) (*Store, error)
	Save(ctx context.Context, store *Store) error
}

// Save retry policy. Persistence I/O is the only blocking step in the
// engine; it retries a bounded number of times and then gives up.
const (
	saveAttempts = 3
	saveBackoff  = 100 * time.Millisecond
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine owns the in-memory Store and orchestrates mutations, queries and
// write-through persistence.
type Engine struct {
	mu    sync.Mutex
	store *Store
	snap  Snapshotter
}

// NewEngine loads the snapshot and returns a ready engine. A load failure
// is returned as-is: the process should fail fast rather than start with an
// empty store that masks data loss.
func NewEngine(ctx context.Context, snap Snapshotter) (*Engine, error) {
	store, err := snap.Load(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = NewStore()
	}
	return &Engine{store: store, snap: snap}, nil
}

// =============================================================================
// RESULT TYPES
// =============================================================================

// RecordResult is returned by Record: the stored movement plus the
// recomputed balance for the person.
type RecordResult struct {
	Name     string
	Movement Movement
	Balance  decimal.Decimal
}

// DetailEntry is one movement with its 1-based display index.
type DetailEntry struct {
	Index    int
	Movement Movement
}

// Detail is the full movement list for one person.
type Detail struct {
	Name    string
	Entries []DetailEntry
	Balance decimal.Decimal
}

// PersonBalance is one line of a summary.
type PersonBalance struct {
	Name    string
	Balance decimal.Decimal
}

// Summary lists every person with a non-zero balance plus the grand total.
// People with an exactly-zero balance stay in the store but are omitted
// here. An owner with no people at all yields an empty Summary, not an
// error.
type Summary struct {
	People []PersonBalance
	Total  decimal.Decimal
}

// Empty reports whether there is nothing to show.
func (s Summary) Empty() bool { return len(s.People) == 0 }

// HistoryEntry is one movement tagged with its person and per-person
// 1-based index, for audit display.
type HistoryEntry struct {
	Name     string
	Index    int
	Movement Movement
}

// =============================================================================
// MUTATING OPERATIONS
// =============================================================================

// Record appends a movement for a person, creating the person if absent,
// and returns the stored movement with the new balance. A zero at means
// "now"; a DateOnly at backdates the entry.
func (e *Engine) Record(ctx context.Context, owner OwnerID, name string, kind Kind, amount decimal.Decimal, description string, at Timestamp) (RecordResult, error) {
	name = CanonicalName(name)
	if name == "" {
		return RecordResult{}, ErrEmptyName
	}
	if !kind.Valid() {
		return RecordResult{}, ErrInvalidKind
	}
	if amount.IsNegative() {
		return RecordResult{}, ErrNegativeAmount
	}
	if at.IsZero() {
		at = Now()
	}

	movement := Movement{
		ID:          uuid.NewString(),
		Kind:        kind,
		Amount:      amount,
		Description: description,
		At:          at,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.store.Clone()
	people := next.Owners[owner]
	if people == nil {
		people = make(map[string]*PersonLedger)
		next.Owners[owner] = people
	}
	person := people[name]
	if person == nil {
		person = &PersonLedger{Name: name}
		people[name] = person
	}
	person.Movements = append(person.Movements, movement)

	if err := e.saveWithRetry(ctx, next); err != nil {
		return RecordResult{}, err
	}
	e.store = next

	return RecordResult{Name: name, Movement: movement, Balance: person.Balance()}, nil
}

// DeletePerson removes a person's entire ledger.
func (e *Engine) DeletePerson(ctx context.Context, owner OwnerID, name string) error {
	name = CanonicalName(name)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store.Person(owner, name) == nil {
		return &NotFoundError{Owner: owner, Name: name}
	}

	next := e.store.Clone()
	delete(next.Owners[owner], name)
	if len(next.Owners[owner]) == 0 {
		delete(next.Owners, owner)
	}

	if err := e.saveWithRetry(ctx, next); err != nil {
		return err
	}
	e.store = next
	return nil
}

// DeleteMovement removes the movement at the given 1-based index and
// returns it so the caller can confirm what was deleted. Removing the last
// movement removes the person as well.
func (e *Engine) DeleteMovement(ctx context.Context, owner OwnerID, name string, index int) (Movement, error) {
	name = CanonicalName(name)

	e.mu.Lock()
	defer e.mu.Unlock()

	person := e.store.Person(owner, name)
	if person == nil {
		return Movement{}, &NotFoundError{Owner: owner, Name: name}
	}
	if index < 1 || index > len(person.Movements) {
		return Movement{}, &IndexError{Name: name, Index: index, Count: len(person.Movements)}
	}

	next := e.store.Clone()
	target := next.Owners[owner][name]
	removed := target.Movements[index-1]
	target.Movements = append(target.Movements[:index-1], target.Movements[index:]...)
	if len(target.Movements) == 0 {
		delete(next.Owners[owner], name)
		if len(next.Owners[owner]) == 0 {
			delete(next.Owners, owner)
		}
	}

	if err := e.saveWithRetry(ctx, next); err != nil {
		return Movement{}, err
	}
	e.store = next
	return removed, nil
}

// =============================================================================
// QUERY OPERATIONS
// =============================================================================

// Balance returns the current balance for one person.
func (e *Engine) Balance(ctx context.Context, owner OwnerID, name string) (decimal.Decimal, error) {
	name = CanonicalName(name)

	e.mu.Lock()
	defer e.mu.Unlock()

	person := e.store.Person(owner, name)
	if person == nil {
		return decimal.Zero, &NotFoundError{Owner: owner, Name: name}
	}
	return person.Balance(), nil
}

// Detail returns the ordered movement list for one person with 1-based
// display indices and the recomputed balance.
func (e *Engine) Detail(ctx context.Context, owner OwnerID, name string) (Detail, error) {
	name = CanonicalName(name)

	e.mu.Lock()
	defer e.mu.Unlock()

	person := e.store.Person(owner, name)
	if person == nil {
		return Detail{}, &NotFoundError{Owner: owner, Name: name}
	}

	entries := make([]DetailEntry, len(person.Movements))
	for i, m := range person.Movements {
		entries[i] = DetailEntry{Index: i + 1, Movement: m}
	}
	return Detail{Name: name, Entries: entries, Balance: person.Balance()}, nil
}

// Summary returns (name, balance) for every person with a non-zero balance,
// sorted by name, plus the grand total across them.
func (e *Engine) Summary(ctx context.Context, owner OwnerID) (Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	summary := Summary{Total: decimal.Zero}
	for _, name := range e.sortedNames(owner) {
		balance := e.store.Person(owner, name).Balance()
		if balance.IsZero() {
			continue
		}
		summary.People = append(summary.People, PersonBalance{Name: name, Balance: balance})
		summary.Total = summary.Total.Add(balance)
	}
	return summary, nil
}

// History returns every movement for every person, ordered by person name
// and then by recording order, each tagged with its per-person index.
func (e *Engine) History(ctx context.Context, owner OwnerID) ([]HistoryEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var entries []HistoryEntry
	for _, name := range e.sortedNames(owner) {
		for i, m := range e.store.Person(owner, name).Movements {
			entries = append(entries, HistoryEntry{Name: name, Index: i + 1, Movement: m})
		}
	}
	return entries, nil
}

// sortedNames returns an owner's person names in stable order.
// Callers must hold e.mu.
func (e *Engine) sortedNames(owner OwnerID) []string {
	people := e.store.People(owner)
	names := make([]string, 0, len(people))
	for name := range people {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// saveWithRetry writes the snapshot through, retrying with doubling backoff.
// Callers must hold e.mu.
func (e *Engine) saveWithRetry(ctx context.Context, store *Store) error {
	var lastErr error
	backoff := saveBackoff
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		if lastErr = e.snap.Save(ctx, store); lastErr == nil {
			return nil
		}
		if attempt < saveAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return &PersistenceError{Attempts: saveAttempts, Err: lastErr}
}
