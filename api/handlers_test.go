package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/debt-ledger/api"
	"github.com/warp/debt-ledger/bot"
	"github.com/warp/debt-ledger/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type memorySnap struct{}

func (memorySnap) Load(ctx context.Context) (*ledger.Store, error) {
	return ledger.NewStore(), nil
}

func (memorySnap) Save(ctx context.Context, store *ledger.Store) error { return nil }

const ownerID = "7967718457"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestServer(t *testing.T) *httptest.Server {
	engine, err := ledger.NewEngine(context.Background(), memorySnap{})
	require.NoError(t, err)

	dispatcher := bot.NewDispatcher(engine, []ledger.OwnerID{ownerID})
	server := httptest.NewServer(api.NewRouter(api.NewHandler(engine, dispatcher)))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func recordMovement(t *testing.T, server *httptest.Server, name string, body api.RecordRequest) *http.Response {
	t.Helper()
	return doJSON(t, http.MethodPost, server.URL+"/api/owners/"+ownerID+"/people/"+name+"/movements", body)
}

// =============================================================================
// HEALTH + AUTHORIZATION
// =============================================================================

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestUnknownOwnerIsForbidden(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/owners/999/summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// =============================================================================
// RECORD + QUERY FLOW
// =============================================================================

func TestRecordThenBalanceAndDetail(t *testing.T) {
	// GIVEN: A debit and a payment recorded over HTTP
	// WHEN: Reading balance and detail
	// THEN: The balance nets out and the detail lists both movements

	server := newTestServer(t)

	resp := recordMovement(t, server, "magaly", api.RecordRequest{Kind: "debe", Amount: dec("1000"), Description: "de efectivo"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.RecordDTO](t, resp)
	assert.Equal(t, "Magaly", created.Name)
	assert.Equal(t, "1000", created.Balance)
	assert.NotEmpty(t, created.Movement.ID)

	resp = recordMovement(t, server, "Magaly", api.RecordRequest{Kind: "pago", Amount: dec("400")})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/api/owners/" + ownerID + "/people/magaly/balance")
	require.NoError(t, err)
	balance := decode[api.BalanceDTO](t, resp)
	assert.Equal(t, "Magaly", balance.Name)
	assert.Equal(t, "600", balance.Balance)

	resp, err = http.Get(server.URL + "/api/owners/" + ownerID + "/people/Magaly/detail")
	require.NoError(t, err)
	detail := decode[api.DetailDTO](t, resp)
	require.Len(t, detail.Movements, 2)
	assert.Equal(t, 1, detail.Movements[0].Index)
	assert.Equal(t, "debe", detail.Movements[0].Kind)
	assert.Equal(t, "de efectivo", detail.Movements[0].Description)
	assert.Equal(t, 2, detail.Movements[1].Index)
}

func TestRecordWithBackdate(t *testing.T) {
	server := newTestServer(t)

	resp := recordMovement(t, server, "Luis", api.RecordRequest{Kind: "debe", Amount: dec("75.5"), Description: "tacos", Date: "15/03/2024"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.RecordDTO](t, resp)
	assert.Equal(t, "15/03/2024", created.Movement.Date)
}

func TestRecordBadInput(t *testing.T) {
	server := newTestServer(t)

	resp := recordMovement(t, server, "Luis", api.RecordRequest{Kind: "debe", Amount: dec("10"), Date: "2024-03-15"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = recordMovement(t, server, "Luis", api.RecordRequest{Kind: "prestó", Amount: dec("10")})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = recordMovement(t, server, "Luis", api.RecordRequest{Kind: "debe", Amount: dec("-10")})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUnknownPersonIs404(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/owners/" + ownerID + "/people/Nadie/balance")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// SUMMARY + HISTORY
// =============================================================================

func TestSummaryOmitsZeroBalances(t *testing.T) {
	server := newTestServer(t)

	recordMovement(t, server, "Ana", api.RecordRequest{Kind: "debe", Amount: dec("100")}).Body.Close()
	recordMovement(t, server, "Pedro", api.RecordRequest{Kind: "debe", Amount: dec("50")}).Body.Close()
	recordMovement(t, server, "Pedro", api.RecordRequest{Kind: "pago", Amount: dec("50")}).Body.Close()

	resp, err := http.Get(server.URL + "/api/owners/" + ownerID + "/summary")
	require.NoError(t, err)
	summary := decode[api.SummaryDTO](t, resp)
	require.Len(t, summary.People, 1)
	assert.Equal(t, "Ana", summary.People[0].Name)
	assert.Equal(t, "100", summary.Total)
}

func TestHistoryTagsMovements(t *testing.T) {
	server := newTestServer(t)

	recordMovement(t, server, "Luis", api.RecordRequest{Kind: "debe", Amount: dec("30")}).Body.Close()
	recordMovement(t, server, "Ana", api.RecordRequest{Kind: "debe", Amount: dec("100")}).Body.Close()

	resp, err := http.Get(server.URL + "/api/owners/" + ownerID + "/history")
	require.NoError(t, err)
	entries := decode[[]api.HistoryEntryDTO](t, resp)
	require.Len(t, entries, 2)
	assert.Equal(t, "Ana", entries[0].Name)
	assert.Equal(t, 1, entries[0].Movement.Index)
	assert.Equal(t, "Luis", entries[1].Name)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDeleteMovementAndPerson(t *testing.T) {
	server := newTestServer(t)

	recordMovement(t, server, "Ana", api.RecordRequest{Kind: "debe", Amount: dec("10"), Description: "pan"}).Body.Close()
	recordMovement(t, server, "Ana", api.RecordRequest{Kind: "debe", Amount: dec("20")}).Body.Close()

	resp := doJSON(t, http.MethodDelete, server.URL+"/api/owners/"+ownerID+"/people/Ana?index=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deleted := decode[api.DeletedDTO](t, resp)
	require.NotNil(t, deleted.Movement)
	assert.Equal(t, "pan", deleted.Movement.Description)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/owners/"+ownerID+"/people/Ana?index=9", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/owners/"+ownerID+"/people/Ana", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/api/owners/" + ownerID + "/people/Ana/balance")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// MESSAGES (chat webhook)
// =============================================================================

func TestMessagesEndpointDrivesDispatcher(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/messages",
		api.MessageRequest{OwnerID: ownerID, Text: "Ana me debe 200 pizza"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reply := decode[api.MessageResponse](t, resp)
	assert.Contains(t, reply.Reply, "✅ Registro guardado.")

	resp = doJSON(t, http.MethodPost, server.URL+"/api/messages",
		api.MessageRequest{OwnerID: "999", Text: "/ver"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reply = decode[api.MessageResponse](t, resp)
	assert.Contains(t, reply.Reply, "No estás autorizado")

	resp = doJSON(t, http.MethodPost, server.URL+"/api/messages", api.MessageRequest{Text: "hola"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
