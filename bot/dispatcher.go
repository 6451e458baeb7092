/*
Package bot dispatches chat messages to the ledger engine.

PURPOSE:
  The Dispatcher is the thin shell around the engine: it authorizes the
  sender against a static allow-list, routes commands and free-text
  sentences to the right operation, and formats the reply text. All the
  real logic lives in the ledger and parse packages; any transport that can
  hand over (owner id, message text) and deliver a string back can drive
  this — a polling chat client, a webhook endpoint, a test.

COMMANDS:
  /start                         help text
  /deuda  name amount [desc] [DD/MM/YYYY]   record a debit
  /pago   name amount [desc] [DD/MM/YYYY]   record a credit (payment)
  /saldo  name                   balance for one person
  /detalle [name]                movements for one person, or everyone
  /ver                           totals per person plus grand total
  /historial                     every movement for every person
  /borrar name [index]           delete a person, or one movement

  Anything that is not a command goes through the free-text parser:
  "Magaly me debe 1000 de efectivo", "Magaly me depositó 500".

ERROR REPLIES:
  User errors (parse, validation, not-found) become friendly replies.
  Persistence faults become "not saved, try again" — the data was NOT
  recorded and the user must know that.

SEE ALSO:
  - parse/parse.go: Both input modes
  - ledger/engine.go: The operations behind each command
*/
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/debt-ledger/ledger"
	"github.com/warp/debt-ledger/parse"
)

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher routes one message to one engine operation and renders the
// reply. It is stateless apart from its dependencies.
type Dispatcher struct {
	engine     *ledger.Engine
	authorized map[ledger.OwnerID]bool
}

// NewDispatcher creates a dispatcher. Only the listed owners may use it.
func NewDispatcher(engine *ledger.Engine, authorized []ledger.OwnerID) *Dispatcher {
	allow := make(map[ledger.OwnerID]bool, len(authorized))
	for _, id := range authorized {
		allow[id] = true
	}
	return &Dispatcher{engine: engine, authorized: allow}
}

// Authorized reports whether an owner is on the allow-list.
func (d *Dispatcher) Authorized(owner ledger.OwnerID) bool {
	return d.authorized[owner]
}

const helpText = "👋 ¡Hola! Soy tu bot de registro de deudas.\n\n" +
	"Puedes escribir frases como:\n" +
	"- Magaly me debe 1000 de efectivo\n" +
	"- Magaly me depositó 500\n\n" +
	"Comandos disponibles:\n" +
	"💰 /ver → totales por persona\n" +
	"💵 /saldo nombre → saldo de una persona\n" +
	"📋 /detalle [nombre] → movimientos guardados\n" +
	"📜 /historial → todos los movimientos\n" +
	"➕ /deuda nombre cantidad [motivo] [DD/MM/YYYY]\n" +
	"➖ /pago nombre cantidad [motivo] [DD/MM/YYYY]\n" +
	"🗑️ /borrar nombre [número] → borrar persona o movimiento"

// Handle processes one incoming message and returns the reply text.
func (d *Dispatcher) Handle(ctx context.Context, owner ledger.OwnerID, text string) string {
	if !d.Authorized(owner) {
		return "🚫 No estás autorizado para usar este bot."
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return helpText
	}
	if strings.HasPrefix(text, "/") {
		return d.command(ctx, owner, text)
	}
	return d.freeText(ctx, owner, text)
}

// =============================================================================
// COMMAND ROUTING
// =============================================================================

func (d *Dispatcher) command(ctx context.Context, owner ledger.OwnerID, text string) string {
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	// Group chats address commands as /cmd@botname.
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	args := fields[1:]

	switch name {
	case "start", "ayuda":
		return helpText
	case "deuda":
		return d.record(ctx, owner, ledger.KindDebit, args)
	case "pago":
		return d.record(ctx, owner, ledger.KindCredit, args)
	case "saldo":
		return d.balance(ctx, owner, args)
	case "detalle":
		if len(args) == 0 {
			return d.history(ctx, owner)
		}
		return d.detail(ctx, owner, args[0])
	case "ver", "resumen":
		return d.summary(ctx, owner)
	case "historial":
		return d.history(ctx, owner)
	case "borrar":
		return d.delete(ctx, owner, args)
	default:
		return "⚠️ No conozco ese comando. Escribe /start para ver la ayuda."
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

func (d *Dispatcher) record(ctx context.Context, owner ledger.OwnerID, kind ledger.Kind, args []string) string {
	pending, err := parse.Arguments(kind, args)
	if err != nil {
		return errorReply(err)
	}
	result, err := d.engine.Record(ctx, owner, pending.Name, pending.Kind, pending.Amount, pending.Description, pending.When)
	if err != nil {
		return errorReply(err)
	}
	return recordedReply(result)
}

func (d *Dispatcher) freeText(ctx context.Context, owner ledger.OwnerID, text string) string {
	pending, err := parse.FreeText(text)
	if err != nil {
		return errorReply(err)
	}
	result, err := d.engine.Record(ctx, owner, pending.Name, pending.Kind, pending.Amount, pending.Description, pending.When)
	if err != nil {
		return errorReply(err)
	}
	return recordedReply(result)
}

func (d *Dispatcher) balance(ctx context.Context, owner ledger.OwnerID, args []string) string {
	if len(args) < 1 {
		return "⚠️ Uso: /saldo nombre"
	}
	balance, err := d.engine.Balance(ctx, owner, args[0])
	if err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("💰 %s tiene un total de %s.", ledger.CanonicalName(args[0]), money(balance))
}

func (d *Dispatcher) detail(ctx context.Context, owner ledger.OwnerID, name string) string {
	detail, err := d.engine.Detail(ctx, owner, name)
	if err != nil {
		return errorReply(err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Detalle de %s:\n", detail.Name)
	for _, entry := range detail.Entries {
		fmt.Fprintf(&b, "%d. %s\n", entry.Index, movementLine(entry.Movement))
	}
	fmt.Fprintf(&b, "Total: %s", money(detail.Balance))
	return b.String()
}

func (d *Dispatcher) summary(ctx context.Context, owner ledger.OwnerID) string {
	summary, err := d.engine.Summary(ctx, owner)
	if err != nil {
		return errorReply(err)
	}
	if summary.Empty() {
		return "📭 No tienes registros todavía."
	}
	var b strings.Builder
	b.WriteString("💰 Totales de tus registros:\n")
	for _, person := range summary.People {
		fmt.Fprintf(&b, "%s: %s\n", person.Name, money(person.Balance))
	}
	fmt.Fprintf(&b, "Total: %s", money(summary.Total))
	return b.String()
}

func (d *Dispatcher) history(ctx context.Context, owner ledger.OwnerID) string {
	entries, err := d.engine.History(ctx, owner)
	if err != nil {
		return errorReply(err)
	}
	if len(entries) == 0 {
		return "📭 No tienes movimientos todavía."
	}
	var b strings.Builder
	current := ""
	for _, entry := range entries {
		if entry.Name != current {
			if current != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "📋 Detalle de %s:\n", entry.Name)
			current = entry.Name
		}
		fmt.Fprintf(&b, "%d. %s\n", entry.Index, movementLine(entry.Movement))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d *Dispatcher) delete(ctx context.Context, owner ledger.OwnerID, args []string) string {
	if len(args) < 1 {
		return "⚠️ Uso: /borrar nombre [número]"
	}
	name := args[0]

	if len(args) == 1 {
		if err := d.engine.DeletePerson(ctx, owner, name); err != nil {
			return errorReply(err)
		}
		return fmt.Sprintf("🗑️ Borré todos los movimientos de %s.", ledger.CanonicalName(name))
	}

	index, err := strconv.Atoi(args[1])
	if err != nil {
		return "⚠️ Uso: /borrar nombre [número]"
	}
	removed, err := d.engine.DeleteMovement(ctx, owner, name, index)
	if err != nil {
		return errorReply(err)
	}
	return fmt.Sprintf("🗑️ Borré el movimiento %d de %s: %s", index, ledger.CanonicalName(name), movementLine(removed))
}

// =============================================================================
// REPLY FORMATTING
// =============================================================================

func recordedReply(result ledger.RecordResult) string {
	return fmt.Sprintf("✅ Registro guardado.\n%s ahora tiene un total de %s.", result.Name, money(result.Balance))
}

// money renders an amount without trailing decimal zeros: arithmetic on
// decimals keeps the finest exponent seen, so 75.5-25.5 stringifies as
// "50.0" unless trimmed.
func money(d decimal.Decimal) string {
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}

// movementLine renders one movement the way the detail view shows it:
// signed amount, description, date in parentheses.
func movementLine(m ledger.Movement) string {
	sign := "+"
	if m.Kind == ledger.KindCredit {
		sign = "-"
	}
	if m.Description == "" {
		return fmt.Sprintf("%s%s (%s)", sign, money(m.Amount), m.At)
	}
	return fmt.Sprintf("%s%s %s (%s)", sign, money(m.Amount), m.Description, m.At)
}

// errorReply maps the error taxonomy to user-facing text.
func errorReply(err error) string {
	switch {
	case errors.Is(err, parse.ErrInvalidAmount):
		return "❌ No pude leer la cantidad."
	case errors.Is(err, parse.ErrMissingArguments):
		return "⚠️ Faltan datos: nombre y cantidad son obligatorios."
	case errors.Is(err, parse.ErrUnrecognizedFormat):
		return "⚠️ No entendí el formato. Usa frases como:\n'Magaly me debe 500 de tacos'."
	case ledger.IsNotFound(err):
		return "📭 No encontré registros de esa persona."
	case errors.Is(err, ledger.ErrIndexOutOfRange):
		return "❌ Ese número de movimiento no existe."
	case ledger.IsValidation(err):
		return "❌ Datos inválidos: " + err.Error()
	case ledger.IsPersistence(err):
		return "⚠️ No pude guardar el registro. Intenta de nuevo."
	default:
		return "⚠️ Algo salió mal. Intenta de nuevo."
	}
}
