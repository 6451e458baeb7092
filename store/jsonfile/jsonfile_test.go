package jsonfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/debt-ledger/ledger"
	"github.com/warp/debt-ledger/store/jsonfile"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testStore() *ledger.Store {
	store := ledger.NewStore()
	store.Owners["7967718457"] = map[string]*ledger.PersonLedger{
		"Magaly": {
			Name: "Magaly",
			Movements: []ledger.Movement{
				{
					ID:          "m-1",
					Kind:        ledger.KindDebit,
					Amount:      decimal.RequireFromString("1000"),
					Description: "de efectivo",
					At:          ledger.Timestamp{Time: time.Date(2025, time.May, 12, 18, 30, 0, 0, time.UTC)},
				},
				{
					ID:     "m-2",
					Kind:   ledger.KindCredit,
					Amount: decimal.RequireFromString("500.25"),
					At:     ledger.OnDate(2025, time.May, 20),
				},
			},
		},
		"Luis": {
			Name: "Luis",
			Movements: []ledger.Movement{
				{
					ID:          "m-3",
					Kind:        ledger.KindDebit,
					Amount:      decimal.RequireFromString("75.5"),
					Description: "tacos",
					At:          ledger.OnDate(2024, time.March, 15),
				},
			},
		},
	}
	return store
}

// =============================================================================
// ROUND-TRIP
// =============================================================================

func TestSaveLoad_RoundTrip(t *testing.T) {
	// GIVEN: A store with two people and mixed timestamp granularities
	// WHEN: Saving and loading
	// THEN: Owners, people, movement order, amounts, kinds, descriptions
	//       and timestamps all survive

	path := filepath.Join(t.TempDir(), "deudas.json")
	snap := jsonfile.New(path)
	ctx := context.Background()

	original := testStore()
	require.NoError(t, snap.Save(ctx, original))

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Owners, 1)

	people := loaded.People("7967718457")
	require.Len(t, people, 2)

	magaly := people["Magaly"]
	require.NotNil(t, magaly)
	require.Len(t, magaly.Movements, 2)
	assert.Equal(t, "m-1", magaly.Movements[0].ID)
	assert.Equal(t, ledger.KindDebit, magaly.Movements[0].Kind)
	assert.True(t, magaly.Movements[0].Amount.Equal(decimal.RequireFromString("1000")))
	assert.Equal(t, "de efectivo", magaly.Movements[0].Description)
	assert.Equal(t, "12/05/2025 - 18:30", magaly.Movements[0].At.String())
	assert.Equal(t, "20/05/2025", magaly.Movements[1].At.String())
	assert.True(t, magaly.Movements[1].At.DateOnly)

	luis := people["Luis"]
	require.NotNil(t, luis)
	assert.True(t, luis.Balance().Equal(decimal.RequireFromString("75.5")))
}

func TestLoad_MissingFileIsEmptyStore(t *testing.T) {
	snap := jsonfile.New(filepath.Join(t.TempDir(), "nope.json"))

	store, err := snap.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.Owners)
}

func TestLoad_CorruptSnapshotIsAnError(t *testing.T) {
	// GIVEN: A snapshot file that is not valid JSON
	// WHEN: Loading
	// THEN: An error — never a silent empty store

	path := filepath.Join(t.TempDir(), "deudas.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := jsonfile.New(path).Load(context.Background())
	assert.Error(t, err)
}

func TestLoad_UnknownKindIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deudas.json")
	doc := `{"1": {"Ana": {"movimientos": [
		{"tipo": "prestó", "cantidad": "5", "motivo": "", "fecha": "01/01/2024"}
	]}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := jsonfile.New(path).Load(context.Background())
	assert.Error(t, err)
}

func TestLoad_LegacySnapshotWithoutIDs(t *testing.T) {
	// Snapshots written by older deployments carry no movement IDs; they
	// get fresh ones on load.
	path := filepath.Join(t.TempDir(), "deudas.json")
	doc := `{"7967718457": {"Ana": {"movimientos": [
		{"tipo": "debe", "cantidad": "200", "motivo": "pizza", "fecha": "12/05/2025 - 18:30"}
	]}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	store, err := jsonfile.New(path).Load(context.Background())
	require.NoError(t, err)

	ana := store.Person("7967718457", "Ana")
	require.NotNil(t, ana)
	require.Len(t, ana.Movements, 1)
	assert.NotEmpty(t, ana.Movements[0].ID)
	assert.Equal(t, "pizza", ana.Movements[0].Description)
}

func TestLoad_DropsPeopleWithoutMovements(t *testing.T) {
	// A person with an empty movement list must not exist in the store.
	path := filepath.Join(t.TempDir(), "deudas.json")
	doc := `{"1": {"Ana": {"movimientos": []}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	store, err := jsonfile.New(path).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, store.Person("1", "Ana"))
	assert.Empty(t, store.Owners)
}

func TestSave_OverwritesAtomically(t *testing.T) {
	// GIVEN: An existing snapshot
	// WHEN: Saving a new state
	// THEN: The file holds only the new state and no temp files are left

	dir := t.TempDir()
	path := filepath.Join(dir, "deudas.json")
	snap := jsonfile.New(path)
	ctx := context.Background()

	require.NoError(t, snap.Save(ctx, testStore()))

	next := ledger.NewStore()
	next.Owners["1"] = map[string]*ledger.PersonLedger{
		"Ana": {Name: "Ana", Movements: []ledger.Movement{{
			ID: "x", Kind: ledger.KindDebit,
			Amount: decimal.RequireFromString("1"),
			At:     ledger.OnDate(2024, time.January, 1),
		}}},
	}
	require.NoError(t, snap.Save(ctx, next))

	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Owners, 1)
	assert.NotNil(t, loaded.Person("1", "Ana"))
	assert.Nil(t, loaded.Person("7967718457", "Magaly"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "deudas.json", entries[0].Name())
}
