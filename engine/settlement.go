/*
settlement.go - Consignment settlement computation

PURPOSE:
  The one place the consignment numbers are produced. Preview and final
  settlement share this exact computation; the only difference is whether
  the result gets frozen onto the config.

ALGORITHM:
  1. Count revenue-bearing tickets (not cancelled, not refunded) -> soldTickets
  2. Sum each ticket's tier price -> totalRevenue
  3. fixedTotal = platformFixed * soldTickets
     variable   = round(totalRevenue * platformPct/100)
     totalFee   = fixedTotal + variable
  4. settlementAmount = totalRevenue - totalFee
     Positive means the platform owes the organizer: revenue was collected by
     the platform on the organizer's behalf, net of fees. Preserve the sign.
  5. unsold = floated - sold. Negative is oversell; reported, not an error.

INTEGRITY:
  A ticket referencing a deleted tier is a data error, not zero revenue.
  The computation fails with MissingTierError rather than silently
  understating what the organizer is owed.

SEE ALSO:
  - consignment/: Preview, settle, and listing built on this
  - config.go: The frozen fields a final settlement writes
*/
package engine

import "time"

// =============================================================================
// SETTLEMENT SNAPSHOT
// =============================================================================

// SettlementSnapshot is the consignment reconciliation at a point in time.
type SettlementSnapshot struct {
	EventID           EventID
	FloatedTickets    int
	SoldTickets       int
	UnsoldTickets     int // may be negative when oversold relative to the float
	TotalRevenueCents Cents
	PlatformFeeCents  Cents
	SettlementCents   Cents // owed to the organizer, net of fees
	ComputedAt        time.Time
	Settled           bool
	Notes             string
}

// ComputeSettlement replays the event's ticket ledger against the config's
// fee schedule. Pure: it touches nothing, so preview and settle cannot drift.
func ComputeSettlement(cfg *PaymentModelConfig, tickets []Ticket, tiers map[TierID]TicketTier, now time.Time) (SettlementSnapshot, error) {
	snap := SettlementSnapshot{
		EventID:        cfg.EventID,
		FloatedTickets: cfg.FloatedTickets,
		ComputedAt:     now,
	}

	var revenue Cents
	for _, t := range tickets {
		if !t.CountsTowardRevenue() {
			continue
		}
		tier, ok := tiers[t.TierID]
		if !ok {
			return SettlementSnapshot{}, &MissingTierError{EventID: cfg.EventID, TicketID: t.ID, TierID: t.TierID}
		}
		snap.SoldTickets++
		revenue += tier.PriceCents
	}

	fixedTotal := cfg.Fees.PlatformFeeFixedCents * Cents(snap.SoldTickets)
	variable := PercentOf(revenue, cfg.Fees.PlatformFeePercent)

	snap.TotalRevenueCents = revenue
	snap.PlatformFeeCents = fixedTotal + variable
	snap.SettlementCents = revenue - snap.PlatformFeeCents
	snap.UnsoldTickets = cfg.FloatedTickets - snap.SoldTickets
	return snap, nil
}

// FrozenSnapshot rebuilds the snapshot a settled config recorded at
// finalization time. Used by listings so settled events show the frozen
// numbers, not a live recomputation.
func FrozenSnapshot(cfg *PaymentModelConfig) SettlementSnapshot {
	snap := SettlementSnapshot{
		EventID:           cfg.EventID,
		FloatedTickets:    cfg.FloatedTickets,
		SoldTickets:       cfg.SoldTickets,
		UnsoldTickets:     cfg.FloatedTickets - cfg.SoldTickets,
		TotalRevenueCents: cfg.SettledRevenue,
		PlatformFeeCents:  cfg.SettledFees,
		SettlementCents:   cfg.SettlementCents,
		Settled:           true,
		Notes:             cfg.SettlementNotes,
	}
	if cfg.SettledAt != nil {
		snap.ComputedAt = *cfg.SettledAt
	}
	return snap
}
