/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the HTTP surface. These decouple the domain model
  from the API contract: amounts travel as decimal strings, timestamps as
  the snapshot layout (DD/MM/YYYY or "DD/MM/YYYY - HH:MM").

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/debt-ledger/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// MessageRequest drives the chat dispatcher over HTTP (webhook style).
type MessageRequest struct {
	OwnerID string `json:"owner_id"`
	Text    string `json:"text"`
}

// RecordRequest records one movement for a person.
type RecordRequest struct {
	Kind        string          `json:"kind"` // "debe" or "pago"
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date,omitempty"` // DD/MM/YYYY backdate
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// MessageResponse carries the dispatcher's reply text.
type MessageResponse struct {
	Reply string `json:"reply"`
}

// MovementDTO represents one movement in API responses.
type MovementDTO struct {
	Index       int    `json:"index,omitempty"`
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
}

// RecordDTO is the response to a successful record.
type RecordDTO struct {
	Name     string      `json:"name"`
	Movement MovementDTO `json:"movement"`
	Balance  string      `json:"balance"`
}

// BalanceDTO is one person's balance.
type BalanceDTO struct {
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

// DetailDTO is one person's full movement list.
type DetailDTO struct {
	Name      string        `json:"name"`
	Movements []MovementDTO `json:"movements"`
	Balance   string        `json:"balance"`
}

// SummaryDTO lists non-zero balances and the grand total.
type SummaryDTO struct {
	People []BalanceDTO `json:"people"`
	Total  string       `json:"total"`
}

// HistoryEntryDTO is one movement tagged with its person.
type HistoryEntryDTO struct {
	Name     string      `json:"name"`
	Movement MovementDTO `json:"movement"`
}

// DeletedDTO confirms what a delete removed.
type DeletedDTO struct {
	Name     string       `json:"name"`
	Movement *MovementDTO `json:"movement,omitempty"` // nil when the whole person was removed
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION
// =============================================================================

func toMovementDTO(index int, m ledger.Movement) MovementDTO {
	return MovementDTO{
		Index:       index,
		ID:          m.ID,
		Kind:        string(m.Kind),
		Amount:      m.Amount.String(),
		Description: m.Description,
		Date:        m.At.String(),
	}
}
