/*
config.go - Payment model configuration, one per event

PURPOSE:
  The PaymentModelConfig is the single record that parameterizes everything
  else in the engine: which model the event runs, the fee schedule, and (for
  consignment) the float and settlement state.

STATE MACHINE (per event):
  NoConfig -> Configured(Active) -> Deactivated
  Consignment adds an orthogonal dimension: Unsettled -> Settled (terminal).
  Deactivation never deletes: the config is the audit trail.

INVARIANTS:
  - At most one config per event (unique index at the storage layer).
  - The model is set exactly once; no migration between models.
  - Settled is terminal; once true, Settle rejects forever.

SEE ALSO:
  - billing/: Selection, deactivation, discounts
  - settlement.go: What the consignment fields feed
*/
package engine

import "time"

// =============================================================================
// PAYMENT MODEL CONFIG
// =============================================================================

// PaymentModelConfig is the one-per-event payment configuration.
type PaymentModelConfig struct {
	ID       ConfigID
	EventID  EventID
	Model    PaymentModel
	IsActive bool

	Fees            FeeParams
	CharityDiscount bool
	LowPriceApplied bool

	// Consignment-only fields. SoldTickets is a recomputed snapshot, not
	// authoritative until Settled freezes it.
	FloatedTickets   int
	SoldTickets      int
	SettlementDueAt  time.Time
	Settled          bool
	SettledAt        *time.Time
	SettlementCents  Cents
	SettledRevenue   Cents
	SettledFees      Cents
	SettlementNotes  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsConsignment reports whether the config runs the consignment model.
func (c *PaymentModelConfig) IsConsignment() bool { return c.Model == ModelConsignment }

// CanSettle checks the preconditions for one-time settlement finalization.
func (c *PaymentModelConfig) CanSettle() error {
	if !c.IsConsignment() {
		return ErrWrongPaymentModel
	}
	if c.Settled {
		return ErrAlreadySettled
	}
	return nil
}
