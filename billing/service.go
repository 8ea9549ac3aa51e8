/*
Package billing implements the payment model configuration store.

PURPOSE:
  One payment model per event, selected exactly once by the event's owner.
  Selection parameterizes the fee calculator, flips the event's visibility
  flags, and - for prepay - spends the organizer's ticket credits.

STATE MACHINE (per event):
  NoConfig -> Configured(Active) -> Deactivated
  Deactivation preserves the config (audit trail, settlement history).

AUTHORIZATION:
  Every mutating operation takes the resolved caller and rejects with
  ErrUnauthorized unless the caller owns the event. There is no bypass.

SEE ALSO:
  - engine/fees.go: The arithmetic and discount rules
  - consignment/: Builds on a consignment-configured event
*/
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stepperslife/settlement-engine/engine"
	"github.com/stepperslife/settlement-engine/monitoring"
)

// Service manages payment model configurations.
type Service struct {
	store engine.TxStore
	now   func() time.Time
}

func NewService(store engine.TxStore) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// =============================================================================
// MODEL SELECTION
// =============================================================================

// SelectModelParams carries the model-specific inputs to selection.
type SelectModelParams struct {
	Model engine.PaymentModel

	// Charity halves the platform fee components (credit card only).
	Charity bool

	// PrepayTickets is the number of ticket credits to allocate (prepay only).
	PrepayTickets int

	// FloatedTickets is the up-front float (consignment only).
	FloatedTickets int

	// SettlementDueAt overrides the default due date of the event's start
	// time (consignment only).
	SettlementDueAt *time.Time
}

// SelectModel configures the event's one-and-only payment model. The whole
// check-then-insert runs in one store transaction; a racing second selection
// loses to the config table's uniqueness guarantee, not to a lucky read.
func (s *Service) SelectModel(ctx context.Context, caller engine.OrganizerID, eventID engine.EventID, params SelectModelParams) (*engine.PaymentModelConfig, error) {
	if !params.Model.Valid() {
		return nil, engine.ErrWrongPaymentModel
	}
	if params.Model == engine.ModelPrepay && params.PrepayTickets <= 0 {
		return nil, fmt.Errorf("%w: prepay credits must be positive, got %d",
			engine.ErrInvalidTicketCount, params.PrepayTickets)
	}
	if params.Model == engine.ModelConsignment && params.FloatedTickets < 0 {
		return nil, fmt.Errorf("%w: floated tickets must be non-negative, got %d",
			engine.ErrInvalidTicketCount, params.FloatedTickets)
	}

	var created *engine.PaymentModelConfig
	err := s.store.WithTx(ctx, func(tx engine.Store) error {
		ev, err := s.ownedEvent(ctx, tx, caller, eventID)
		if err != nil {
			return err
		}

		now := s.now()
		cfg := engine.PaymentModelConfig{
			ID:        engine.ConfigID(uuid.NewString()),
			EventID:   eventID,
			Model:     params.Model,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}

		switch params.Model {
		case engine.ModelCreditCard:
			org, err := tx.GetOrganizer(ctx, caller)
			if err != nil {
				return err
			}
			if !org.ProcessorOnboarded {
				return engine.ErrPaymentSetupIncomplete
			}
			cfg.Fees = engine.DefaultFeeParams()
			if params.Charity {
				cfg.Fees = cfg.Fees.WithCharityDiscount()
				cfg.CharityDiscount = true
			}

		case engine.ModelPrepay:
			org, err := tx.GetOrganizer(ctx, caller)
			if err != nil {
				return err
			}
			if org.CreditBalance < params.PrepayTickets {
				return &engine.InsufficientCreditsError{
					OrganizerID: caller,
					Available:   org.CreditBalance,
					Requested:   params.PrepayTickets,
				}
			}
			spent := *org
			spent.CreditBalance -= params.PrepayTickets
			if err := tx.SaveOrganizer(ctx, spent); err != nil {
				return err
			}
			cfg.Fees = engine.PrepayFeeParams()

		case engine.ModelConsignment:
			cfg.Fees = engine.DefaultFeeParams()
			cfg.FloatedTickets = params.FloatedTickets
			cfg.SettlementDueAt = ev.StartsAt
			if params.SettlementDueAt != nil {
				cfg.SettlementDueAt = *params.SettlementDueAt
			}
		}

		if err := tx.CreateConfig(ctx, cfg); err != nil {
			return err
		}

		// Tickets go on sale once a model exists.
		ev.PaymentModelSelected = true
		ev.TicketsVisible = true
		if err := tx.SaveEvent(ctx, *ev); err != nil {
			return err
		}

		created = &cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Deactivate turns the config off and hides tickets. The config itself
// survives: settlement history and audit trail stay readable.
func (s *Service) Deactivate(ctx context.Context, caller engine.OrganizerID, eventID engine.EventID) error {
	return s.store.WithTx(ctx, func(tx engine.Store) error {
		ev, err := s.ownedEvent(ctx, tx, caller, eventID)
		if err != nil {
			return err
		}
		cfg, err := tx.GetConfig(ctx, eventID)
		if err != nil {
			return err
		}

		cfg.IsActive = false
		cfg.UpdatedAt = s.now()
		if err := tx.UpdateConfig(ctx, *cfg); err != nil {
			return err
		}

		ev.TicketsVisible = false
		return tx.SaveEvent(ctx, *ev)
	})
}

// ApplyLowPriceDiscount resets the platform fee components to half of the
// default constants. Valid only for credit-card configs. Guarded: a second
// application is a no-op returning the current config.
func (s *Service) ApplyLowPriceDiscount(ctx context.Context, caller engine.OrganizerID, eventID engine.EventID) (*engine.PaymentModelConfig, error) {
	var out *engine.PaymentModelConfig
	err := s.store.WithTx(ctx, func(tx engine.Store) error {
		if _, err := s.ownedEvent(ctx, tx, caller, eventID); err != nil {
			return err
		}
		cfg, err := tx.GetConfig(ctx, eventID)
		if err != nil {
			return err
		}
		if cfg.Model != engine.ModelCreditCard {
			return engine.ErrWrongPaymentModel
		}
		if cfg.LowPriceApplied {
			out = cfg
			return nil
		}

		// Override, not a multiplier: charity-discounted values are replaced
		// by the halved defaults, never halved again.
		cfg.Fees = engine.LowPriceFeeParams()
		cfg.LowPriceApplied = true
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
// ORDER FEES
// =============================================================================

// CalculateOrderFees computes the fees for one order's subtotal under the
// event's configured model. Read-only and deterministic.
func (s *Service) CalculateOrderFees(ctx context.Context, eventID engine.EventID, subtotal engine.Cents) (engine.FeeBreakdown, error) {
	cfg, err := s.store.GetConfig(ctx, eventID)
	if err != nil {
		return engine.FeeBreakdown{}, err
	}
	if !cfg.IsActive {
		return engine.FeeBreakdown{}, engine.ErrConfigInactive
	}

	monitoring.RecordFeeCalculation(string(cfg.Model))
	return engine.ComputeFees(cfg.Model, subtotal, cfg.Fees), nil
}

// GetConfig returns the event's config for display.
func (s *Service) GetConfig(ctx context.Context, eventID engine.EventID) (*engine.PaymentModelConfig, error) {
	return s.store.GetConfig(ctx, eventID)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) ownedEvent(ctx context.Context, tx engine.Store, caller engine.OrganizerID, eventID engine.EventID) (*engine.Event, error) {
	ev, err := tx.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.OrganizerID != caller {
		return nil, engine.ErrUnauthorized
	}
	return ev, nil
}
