/*
handlers.go - HTTP handlers for the debt ledger

PURPOSE:
  Exposes the ledger engine over HTTP. Handles request parsing, JSON
  serialization and error-to-status mapping; all ledger logic stays in the
  engine.

ENDPOINTS:
  GET    /health                                  Liveness probe
  POST   /api/messages                            Chat message → dispatcher reply
  GET    /api/owners/{owner}/summary              Non-zero balances + total
  GET    /api/owners/{owner}/history              Every movement, every person
  GET    /api/owners/{owner}/people/{name}/balance
  GET    /api/owners/{owner}/people/{name}/detail
  POST   /api/owners/{owner}/people/{name}/movements
  DELETE /api/owners/{owner}/people/{name}        ?index=N deletes one movement

AUTHORIZATION:
  The {owner} path segment is checked against the same allow-list the chat
  dispatcher uses. Unknown owners get 403 regardless of whether they have
  data.

ERROR HANDLING:
  - 400: Parse and validation errors (bad amount, bad date, bad index)
  - 403: Owner not on the allow-list
  - 404: Person has no movements
  - 500: Snapshot could not be saved (the mutation was rolled back)

SEE ALSO:
  - dto.go: Request/response shapes
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/debt-ledger/bot"
	"github.com/warp/debt-ledger/ledger"
	"github.com/warp/debt-ledger/parse"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine     *ledger.Engine
	Dispatcher *bot.Dispatcher
}

// NewHandler creates a handler around an engine and its dispatcher.
func NewHandler(engine *ledger.Engine, dispatcher *bot.Dispatcher) *Handler {
	return &Handler{Engine: engine, Dispatcher: dispatcher}
}

// =============================================================================
// MESSAGE ENDPOINT (webhook-style chat transport)
// =============================================================================

// HandleMessage runs one chat message through the dispatcher.
// POST /api/messages
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required", nil)
		return
	}

	reply := h.Dispatcher.Handle(r.Context(), ledger.OwnerID(req.OwnerID), req.Text)
	writeJSON(w, http.StatusOK, MessageResponse{Reply: reply})
}

// =============================================================================
// LEDGER ENDPOINTS
// =============================================================================

// GetSummary returns every non-zero balance plus the grand total.
// GET /api/owners/{owner}/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	summary, err := h.Engine.Summary(r.Context(), owner)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	dto := SummaryDTO{People: []BalanceDTO{}, Total: summary.Total.String()}
	for _, person := range summary.People {
		dto.People = append(dto.People, BalanceDTO{Name: person.Name, Balance: person.Balance.String()})
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetHistory returns every movement for every person.
// GET /api/owners/{owner}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	entries, err := h.Engine.History(r.Context(), owner)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	dtos := make([]HistoryEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, HistoryEntryDTO{
			Name:     entry.Name,
			Movement: toMovementDTO(entry.Index, entry.Movement),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetBalance returns one person's balance.
// GET /api/owners/{owner}/people/{name}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	balance, err := h.Engine.Balance(r.Context(), owner, name)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Name: ledger.CanonicalName(name), Balance: balance.String()})
}

// GetDetail returns one person's ordered movement list and balance.
// GET /api/owners/{owner}/people/{name}/detail
func (h *Handler) GetDetail(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	detail, err := h.Engine.Detail(r.Context(), owner, name)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	dto := DetailDTO{Name: detail.Name, Balance: detail.Balance.String(), Movements: []MovementDTO{}}
	for _, entry := range detail.Entries {
		dto.Movements = append(dto.Movements, toMovementDTO(entry.Index, entry.Movement))
	}
	writeJSON(w, http.StatusOK, dto)
}

// RecordMovement records one movement for a person.
// POST /api/owners/{owner}/people/{name}/movements
func (h *Handler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var at ledger.Timestamp
	if req.Date != "" {
		parsed, err := ledger.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		at = parsed
	}

	result, err := h.Engine.Record(r.Context(), owner, name, ledger.Kind(req.Kind), req.Amount, req.Description, at)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RecordDTO{
		Name:     result.Name,
		Movement: toMovementDTO(0, result.Movement),
		Balance:  result.Balance.String(),
	})
}

// DeletePerson deletes a whole person, or one movement when ?index= is set.
// DELETE /api/owners/{owner}/people/{name}
func (h *Handler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")

	if raw := r.URL.Query().Get("index"); raw != "" {
		index, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid index", err)
			return
		}
		removed, err := h.Engine.DeleteMovement(r.Context(), owner, name, index)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		dto := toMovementDTO(index, removed)
		writeJSON(w, http.StatusOK, DeletedDTO{Name: ledger.CanonicalName(name), Movement: &dto})
		return
	}

	if err := h.Engine.DeletePerson(r.Context(), owner, name); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedDTO{Name: ledger.CanonicalName(name)})
}

// =============================================================================
// HELPERS
// =============================================================================

// owner extracts and authorizes the {owner} path segment. Writes the 403
// itself and returns ok=false when the owner is not allowed.
func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (ledger.OwnerID, bool) {
	owner := ledger.OwnerID(chi.URLParam(r, "owner"))
	if !h.Dispatcher.Authorized(owner) {
		writeError(w, http.StatusForbidden, "Owner not authorized", nil)
		return "", false
	}
	return owner, true
}

// writeLedgerError maps the error taxonomy to HTTP status codes.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Person not found", err)
	case ledger.IsValidation(err) || parse.IsParseError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case ledger.IsPersistence(err):
		writeError(w, http.StatusInternalServerError, "Not saved, try again", err)
	default:
		var dateErr *ledger.DateError
		if errors.As(err, &dateErr) {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
