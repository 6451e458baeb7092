package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/debt-ledger/ledger"
	"github.com/warp/debt-ledger/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	// GIVEN: A store with two owners and ordered movements
	// WHEN: Saving and loading
	// THEN: Everything survives, including recording order

	snap := newTestStore(t)
	ctx := context.Background()

	store := ledger.NewStore()
	store.Owners["7967718457"] = map[string]*ledger.PersonLedger{
		"Ana": {Name: "Ana", Movements: []ledger.Movement{
			{ID: "a-1", Kind: ledger.KindDebit, Amount: decimal.RequireFromString("200"),
				Description: "pizza", At: ledger.Timestamp{Time: time.Date(2025, time.May, 12, 18, 30, 0, 0, time.UTC)}},
			{ID: "a-2", Kind: ledger.KindCredit, Amount: decimal.RequireFromString("50"),
				At: ledger.OnDate(2025, time.June, 1)},
		}},
	}
	store.Owners["123"] = map[string]*ledger.PersonLedger{
		"Luis": {Name: "Luis", Movements: []ledger.Movement{
			{ID: "l-1", Kind: ledger.KindDebit, Amount: decimal.RequireFromString("75.5"),
				Description: "tacos", At: ledger.OnDate(2024, time.March, 15)},
		}},
	}

	require.NoError(t, snap.Save(ctx, store))

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Owners, 2)

	ana := loaded.Person("7967718457", "Ana")
	require.NotNil(t, ana)
	require.Len(t, ana.Movements, 2)
	assert.Equal(t, "a-1", ana.Movements[0].ID)
	assert.Equal(t, "12/05/2025 - 18:30", ana.Movements[0].At.String())
	assert.True(t, ana.Movements[1].At.DateOnly)
	assert.True(t, ana.Balance().Equal(decimal.RequireFromString("150")))

	luis := loaded.Person("123", "Luis")
	require.NotNil(t, luis)
	assert.Equal(t, "tacos", luis.Movements[0].Description)
	assert.True(t, luis.Movements[0].Amount.Equal(decimal.RequireFromString("75.5")))
}

func TestLoad_EmptyDatabaseIsEmptyStore(t *testing.T) {
	snap := newTestStore(t)

	store, err := snap.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.Owners)
}

func TestSave_ReplacesPreviousSnapshot(t *testing.T) {
	// GIVEN: A saved snapshot
	// WHEN: Saving a different state
	// THEN: Only the new state remains

	snap := newTestStore(t)
	ctx := context.Background()

	first := ledger.NewStore()
	first.Owners["1"] = map[string]*ledger.PersonLedger{
		"Ana": {Name: "Ana", Movements: []ledger.Movement{
			{ID: "x", Kind: ledger.KindDebit, Amount: decimal.RequireFromString("10"),
				At: ledger.OnDate(2024, time.January, 1)},
		}},
	}
	require.NoError(t, snap.Save(ctx, first))

	second := ledger.NewStore()
	second.Owners["1"] = map[string]*ledger.PersonLedger{
		"Pedro": {Name: "Pedro", Movements: []ledger.Movement{
			{ID: "y", Kind: ledger.KindCredit, Amount: decimal.RequireFromString("3"),
				At: ledger.OnDate(2024, time.February, 2)},
		}},
	}
	require.NoError(t, snap.Save(ctx, second))

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded.Person("1", "Ana"))
	require.NotNil(t, loaded.Person("1", "Pedro"))
}

func TestEngine_WorksOnSQLiteBackend(t *testing.T) {
	// End-to-end: engine write-through against the SQLite snapshotter, then
	// a second engine loads what the first one persisted.

	snap := newTestStore(t)
	ctx := context.Background()

	engine, err := ledger.NewEngine(ctx, snap)
	require.NoError(t, err)

	_, err = engine.Record(ctx, "7967718457", "magaly", ledger.KindDebit,
		decimal.RequireFromString("1000"), "de efectivo", ledger.Timestamp{})
	require.NoError(t, err)

	reloaded, err := ledger.NewEngine(ctx, snap)
	require.NoError(t, err)

	balance, err := reloaded.Balance(ctx, "7967718457", "Magaly")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("1000")))
}
