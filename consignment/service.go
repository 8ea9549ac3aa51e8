/*
Package consignment implements the settlement engine for consignment events.

PURPOSE:
  Reconciles floated tickets against actual sales and produces the one-time
  payout: how many tickets sold, the revenue they earned, the platform's fee
  against that revenue, and the net amount owed to the organizer.

PREVIEW vs SETTLE:
  Both run the exact same computation (engine.ComputeSettlement). Preview is
  read-only and callable any time. Settle freezes the result onto the config
  exactly once; after that the frozen numbers are authoritative and later
  cancellations or refunds no longer move them.

CONCURRENCY:
  Settle runs inside one store transaction and flips the settled flag with a
  conditional write. Two concurrent settles yield exactly one success and one
  ErrAlreadySettled, never a double settlement.

SEE ALSO:
  - engine/settlement.go: The shared computation
  - billing/: Where the consignment model is first selected
*/
package consignment

import (
	"context"
	"fmt"
	"time"

	"github.com/stepperslife/settlement-engine/engine"
	"github.com/stepperslife/settlement-engine/monitoring"
)

// Service computes and finalizes consignment settlements.
type Service struct {
	store engine.TxStore
	now   func() time.Time
}

func NewService(store engine.TxStore) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// =============================================================================
// SETUP
// =============================================================================

// Setup records the float granted to an already consignment-configured
// event and its settlement due date (defaulting to the event start).
func (s *Service) Setup(ctx context.Context, caller engine.OrganizerID, eventID engine.EventID, floatedTickets int, dueAt *time.Time) (*engine.PaymentModelConfig, error) {
	if floatedTickets < 0 {
		return nil, fmt.Errorf("%w: floated tickets must be non-negative, got %d",
			engine.ErrInvalidTicketCount, floatedTickets)
	}
	var out *engine.PaymentModelConfig
	err := s.store.WithTx(ctx, func(tx engine.Store) error {
		ev, err := ownedEvent(ctx, tx, caller, eventID)
		if err != nil {
			return err
		}
		cfg, err := tx.GetConfig(ctx, eventID)
		if err != nil {
			return err
		}
		if !cfg.IsConsignment() {
			return engine.ErrWrongPaymentModel
		}
		if cfg.Settled {
			return engine.ErrAlreadySettled
		}

		cfg.FloatedTickets = floatedTickets
		cfg.SettlementDueAt = ev.StartsAt
		if dueAt != nil {
			cfg.SettlementDueAt = *dueAt
		}
		cfg.UpdatedAt = s.now()
		if err := tx.UpdateConfig(ctx, *cfg); err != nil {
			return err
		}
		out = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// PREVIEW
// =============================================================================

// Preview computes the settlement live from the ledger. Read-only; callable
// any number of times before or after finalization. A settled event previews
// as its frozen snapshot.
func (s *Service) Preview(ctx context.Context, eventID engine.EventID) (engine.SettlementSnapshot, error) {
	cfg, err := s.store.GetConfig(ctx, eventID)
	if err != nil {
		return engine.SettlementSnapshot{}, err
	}
	if !cfg.IsConsignment() {
		return engine.SettlementSnapshot{}, engine.ErrWrongPaymentModel
	}
	if cfg.Settled {
		return engine.FrozenSnapshot(cfg), nil
	}

	snap, err := s.compute(ctx, s.store, cfg)
	if err != nil {
		return engine.SettlementSnapshot{}, err
	}
	monitoring.RecordSettlementPreview()
	return snap, nil
}

// =============================================================================
// SETTLE
// =============================================================================

// Settle finalizes the consignment: computes the snapshot inside one store
// transaction and freezes it onto the config. One-time; the settled flag is
// terminal.
func (s *Service) Settle(ctx context.Context, caller engine.OrganizerID, eventID engine.EventID, notes string) (engine.SettlementSnapshot, error) {
	var final engine.SettlementSnapshot
	err := s.store.WithTx(ctx, func(tx engine.Store) error {
		if _, err := ownedEvent(ctx, tx, caller, eventID); err != nil {
			return err
		}
		cfg, err := tx.GetConfig(ctx, eventID)
		if err != nil {
			return err
		}
		if err := cfg.CanSettle(); err != nil {
			return err
		}

		snap, err := s.compute(ctx, tx, cfg)
		if err != nil {
			return err
		}
		snap.Settled = true
		snap.Notes = notes

		// MarkSettled is conditional on settled still being false, so a
		// racing settle loses here, not at the read above.
		if err := tx.MarkSettled(ctx, eventID, snap); err != nil {
			return err
		}
		final = snap
		return nil
	})
	if err != nil {
		return engine.SettlementSnapshot{}, err
	}

	monitoring.RecordSettlementFinal(int64(final.SettlementCents))
	return final, nil
}

// =============================================================================
// LISTING
// =============================================================================

// EventSettlement pairs a consignment config with its snapshot for listings.
type EventSettlement struct {
	Config   engine.PaymentModelConfig
	Snapshot engine.SettlementSnapshot
}

// ListEvents returns every consignment-configured event with its settlement:
// live numbers while unsettled, the frozen record once settled.
func (s *Service) ListEvents(ctx context.Context) ([]EventSettlement, error) {
	configs, err := s.store.ConfigsByModel(ctx, engine.ModelConsignment)
	if err != nil {
		return nil, err
	}

	out := make([]EventSettlement, 0, len(configs))
	for i := range configs {
		cfg := configs[i]
		var snap engine.SettlementSnapshot
		if cfg.Settled {
			snap = engine.FrozenSnapshot(&cfg)
		} else {
			snap, err = s.compute(ctx, s.store, &cfg)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, EventSettlement{Config: cfg, Snapshot: snap})
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) compute(ctx context.Context, store engine.Store, cfg *engine.PaymentModelConfig) (engine.SettlementSnapshot, error) {
	tickets, err := store.TicketsByEvent(ctx, cfg.EventID)
	if err != nil {
		return engine.SettlementSnapshot{}, err
	}
	tiers, err := tierIndex(ctx, store, cfg.EventID)
	if err != nil {
		return engine.SettlementSnapshot{}, err
	}
	return engine.ComputeSettlement(cfg, tickets, tiers, s.now())
}

func tierIndex(ctx context.Context, store engine.Store, eventID engine.EventID) (map[engine.TierID]engine.TicketTier, error) {
	tiers, err := store.TiersByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	idx := make(map[engine.TierID]engine.TicketTier, len(tiers))
	for _, t := range tiers {
		idx[t.ID] = t
	}
	return idx, nil
}

func ownedEvent(ctx context.Context, tx engine.Store, caller engine.OrganizerID, eventID engine.EventID) (*engine.Event, error) {
	ev, err := tx.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.OrganizerID != caller {
		return nil, engine.ErrUnauthorized
	}
	return ev, nil
}
