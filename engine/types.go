/*
Package engine provides the core payment-model and settlement engine.

PURPOSE:
  This package contains the domain types and pure algorithms for deciding how
  an event collects money (prepay credits, direct card processing, or
  consignment), computing the fees owed on every order, reconciling floated
  tickets against sales, and paying out a hierarchical staff commission tree.

KEY CONCEPTS IN THIS FILE (types.go):
  - Cents: Integer money. No floating-point currency, ever.
  - PaymentModel: The three mutually exclusive collection models
  - Ticket/TicketTier: The order ledger the engine aggregates over
  - Event/Organizer: Collaborator records the engine's checks read

DESIGN PRINCIPLES:
  1. Integer money: Cents everywhere; decimal.Decimal only in flight
  2. Half-up rounding: Every intermediate value rounds before being summed
  3. Type Safety: Strong typing for IDs prevents mixing event/seller/tier IDs
  4. Purity: Fee, settlement, and commission math are pure functions over
     loaded state; persistence lives behind the Store interfaces

USAGE:
  fees := engine.ComputeFees(engine.ModelCreditCard, 10000, params)
  snap, err := engine.ComputeSettlement(cfg, tickets, tiers)

SEE ALSO:
  - fees.go: Fee calculator and discount rules
  - settlement.go: Consignment settlement computation
  - seller.go: Commission hierarchy types and earnings
  - store.go: Persistence interfaces
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Integer cents with decimal percent arithmetic
// =============================================================================

// Cents is an amount of money in integer cents. All monetary values in the
// engine are Cents; fractional cents exist only inside a computation and are
// rounded half-up before they are stored or summed.
type Cents int64

// Percent is a percentage expressed as a decimal (3.7 means 3.7%).
type Percent = decimal.Decimal

// PercentFromFloat builds a Percent from a literal like 3.7.
func PercentFromFloat(v float64) Percent { return decimal.NewFromFloat(v) }

// PercentOf returns pct% of amount, rounded half-up to whole cents.
func PercentOf(amount Cents, pct Percent) Cents {
	raw := decimal.NewFromInt(int64(amount)).Mul(pct).Div(decimal.NewFromInt(100))
	return RoundHalfUp(raw)
}

// RoundHalfUp rounds a decimal cent value to the nearest whole cent, half up.
// Amounts in this engine are non-negative, so decimal's round-half-away-from-
// zero is exactly half-up here.
func RoundHalfUp(d decimal.Decimal) Cents {
	return Cents(d.Round(0).IntPart())
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EventID string
type OrganizerID string
type ConfigID string
type TicketID string
type TierID string
type SellerID string

// =============================================================================
// PAYMENT MODELS
// =============================================================================

// PaymentModel is how an event collects money. An event selects exactly one
// model, exactly once.
type PaymentModel string

const (
	// ModelPrepay: the organizer bought ticket credits up front. The platform
	// has already been paid, so no platform fee applies per order.
	ModelPrepay PaymentModel = "prepay"

	// ModelCreditCard: orders are charged directly; platform and processing
	// fees apply on every order.
	ModelCreditCard PaymentModel = "credit_card"

	// ModelConsignment: tickets are floated to the event up front and fees
	// are computed once, at settlement time, never per order.
	ModelConsignment PaymentModel = "consignment"
)

// Valid reports whether m is one of the three known models.
func (m PaymentModel) Valid() bool {
	switch m {
	case ModelPrepay, ModelCreditCard, ModelConsignment:
		return true
	}
	return false
}

// =============================================================================
// TICKET LEDGER - External records the engine aggregates over
// =============================================================================

type TicketStatus string

const (
	TicketPending   TicketStatus = "pending"
	TicketValid     TicketStatus = "valid"
	TicketScanned   TicketStatus = "scanned"
	TicketCancelled TicketStatus = "cancelled"
	TicketRefunded  TicketStatus = "refunded"
)

// Ticket is one sold ticket in the ledger. SellerID attributes the sale to a
// node in the commission tree; empty means sold directly by the platform
// (online checkout), which earns no commission.
type Ticket struct {
	ID       TicketID
	EventID  EventID
	TierID   TierID
	SellerID SellerID
	Status   TicketStatus
	SoldAt   time.Time
}

// CountsTowardRevenue reports whether the ticket contributes to settlement
// revenue and commission. Cancelled tickets never collected money; refunded
// tickets returned it.
func (t Ticket) CountsTowardRevenue() bool {
	return t.Status != TicketCancelled && t.Status != TicketRefunded
}

// TicketTier is a price class within an event.
type TicketTier struct {
	ID         TierID
	EventID    EventID
	Name       string
	PriceCents Cents
}

// =============================================================================
// COLLABORATOR RECORDS - Ownership and prerequisite facts
// =============================================================================

// Event carries the ownership and visibility facts the engine reads and flips.
// Everything else about an event (venue, description, media) is out of scope.
type Event struct {
	ID                   EventID
	OrganizerID          OrganizerID
	Name                 string
	StartsAt             time.Time
	PaymentModelSelected bool
	TicketsVisible       bool
}

// Organizer holds the external prerequisites checked at model selection:
// a prepay credit balance and the card-processor onboarding flag.
type Organizer struct {
	ID                 OrganizerID
	Name               string
	CreditBalance      int // prepay ticket credits available
	ProcessorOnboarded bool
}
