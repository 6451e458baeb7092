/*
Package parse turns human input into a validated pending movement.

PURPOSE:
  Two independent recognition strategies feed the same output shape:

  Free-text mode scans a conversational sentence for the pattern
    <name> me <debe|depositó> <amount> [<description...>]
  where the verb carries the direction ("debe" → debit, "depositó" →
  credit). This is the chat interface: "Magaly me debe 1000 de efectivo".

  Structured mode takes positional arguments — name, amount, optional
  description, optional trailing DD/MM/YYYY date — and the direction comes
  from which command invoked it, not from the text. The trailing date
  supports backdating corrections.

  All validation and conversion happens here, at the boundary. The engine
  only ever sees canonical names, decimal amounts and typed timestamps.

ERRORS:
  Parse errors are always recoverable user errors: the dispatcher turns
  them into a reply, never into a log line.

SEE ALSO:
  - ledger/types.go: Kind, Timestamp, CanonicalName
  - bot/dispatcher.go: The caller that routes both modes
*/
package parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/debt-ledger/ledger"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnrecognizedFormat is returned when no "me <verb>" pattern is
	// found anywhere in a free-text sentence.
	ErrUnrecognizedFormat = errors.New("unrecognized sentence format")

	// ErrInvalidAmount is returned when the amount token does not parse as
	// a number.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrMissingArguments is returned in structured mode when name or
	// amount is absent.
	ErrMissingArguments = errors.New("name and amount are required")
)

// AmountError reports the token that failed to parse as an amount.
type AmountError struct {
	Token string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("cannot read amount from %q", e.Token)
}

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// IsParseError reports whether err is a recoverable input error from this
// package (as opposed to an engine or persistence fault).
func IsParseError(err error) bool {
	return errors.Is(err, ErrUnrecognizedFormat) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrMissingArguments)
}

// =============================================================================
// RESULT - The validated pending movement
// =============================================================================

// Result is a validated pending movement. When is zero unless the input
// carried an explicit date override.
type Result struct {
	Name        string
	Kind        ledger.Kind
	Amount      decimal.Decimal
	Description string
	When        ledger.Timestamp
}

// Free-text verbs, keyed by the token that follows "me".
var verbs = map[string]ledger.Kind{
	"debe":     ledger.KindDebit,
	"depositó": ledger.KindCredit,
	"deposito": ledger.KindCredit,
}

// =============================================================================
// FREE-TEXT MODE
// =============================================================================

// FreeText scans a sentence for the first "<name> me <verb> <amount>"
// pattern, left to right. Remaining tokens after the amount become the
// description.
func FreeText(text string) (Result, error) {
	tokens := strings.Fields(strings.ToLower(text))

	for i, token := range tokens {
		if token != "me" || i+1 >= len(tokens) {
			continue
		}
		kind, ok := verbs[tokens[i+1]]
		if !ok {
			continue
		}
		if i == 0 {
			// "me debe ..." with nobody in front of it.
			return Result{}, ErrUnrecognizedFormat
		}
		if i+2 >= len(tokens) {
			return Result{}, &AmountError{Token: ""}
		}
		amount, err := decimal.NewFromString(tokens[i+2])
		if err != nil {
			return Result{}, &AmountError{Token: tokens[i+2]}
		}
		return Result{
			Name:        ledger.CanonicalName(tokens[i-1]),
			Kind:        kind,
			Amount:      amount,
			Description: strings.Join(tokens[i+3:], " "),
		}, nil
	}

	return Result{}, ErrUnrecognizedFormat
}

// =============================================================================
// STRUCTURED MODE
// =============================================================================

// Arguments parses positional arguments for a command of the given kind:
//
//	name amount [description...] [DD/MM/YYYY]
//
// If the last trailing token parses as a date it becomes an explicit
// timestamp override; otherwise it is just part of the description.
func Arguments(kind ledger.Kind, args []string) (Result, error) {
	if len(args) < 2 {
		return Result{}, ErrMissingArguments
	}

	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return Result{}, &AmountError{Token: args[1]}
	}

	result := Result{
		Name:   ledger.CanonicalName(args[0]),
		Kind:   kind,
		Amount: amount,
	}

	trailing := args[2:]
	if len(trailing) > 0 {
		last := trailing[len(trailing)-1]
		if when, err := ledger.ParseDate(last); err == nil {
			result.When = when
			trailing = trailing[:len(trailing)-1]
		}
	}
	result.Description = strings.Join(trailing, " ")
	return result, nil
}
