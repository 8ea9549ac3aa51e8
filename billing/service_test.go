package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepperslife/settlement-engine/billing"
	"github.com/stepperslife/settlement-engine/engine"
	"github.com/stepperslife/settlement-engine/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	owner    = engine.OrganizerID("org-owner")
	stranger = engine.OrganizerID("org-stranger")
	eventID  = engine.EventID("ev-1")
)

func newTestService(t *testing.T) (*billing.Service, *store.TxMemory) {
	t.Helper()
	mem := store.NewTxMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveOrganizer(ctx, engine.Organizer{
		ID:                 owner,
		Name:               "Owner",
		CreditBalance:      100,
		ProcessorOnboarded: true,
	}))
	require.NoError(t, mem.SaveEvent(ctx, engine.Event{
		ID:          eventID,
		OrganizerID: owner,
		Name:        "Spring Ball",
		StartsAt:    time.Date(2026, time.June, 1, 20, 0, 0, 0, time.UTC),
	}))

	return billing.NewService(mem), mem
}

// =============================================================================
// MODEL SELECTION
// =============================================================================

func TestSelectModel_CreditCard_Succeeds(t *testing.T) {
	// GIVEN: An onboarded organizer with an unconfigured event
	// WHEN: Selecting the credit-card model
	// THEN: Config created with default fees; event goes on sale

	svc, mem := newTestService(t)
	ctx := context.Background()

	cfg, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{Model: engine.ModelCreditCard})
	require.NoError(t, err)

	assert.Equal(t, engine.ModelCreditCard, cfg.Model)
	assert.True(t, cfg.IsActive)
	assert.True(t, cfg.Fees.PlatformFeePercent.Equal(engine.DefaultPlatformFeePercent))

	ev, err := mem.GetEvent(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, ev.PaymentModelSelected)
	assert.True(t, ev.TicketsVisible)
}

func TestSelectModel_SecondSelection_Rejected(t *testing.T) {
	// GIVEN: An event already configured as prepay
	// WHEN: Selecting consignment for the same event
	// THEN: ErrAlreadyConfigured; the models are mutually exclusive

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{
		Model: engine.ModelPrepay, PrepayTickets: 10,
	})
	require.NoError(t, err)

	_, err = svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{Model: engine.ModelConsignment})
	require.ErrorIs(t, err, engine.ErrAlreadyConfigured)
}

func TestSelectModel_NotOwner_Rejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SelectModel(context.Background(), stranger, eventID, billing.SelectModelParams{Model: engine.ModelCreditCard})
	require.ErrorIs(t, err, engine.ErrUnauthorized)
}

func TestSelectModel_CreditCard_ProcessorNotOnboarded(t *testing.T) {
	// GIVEN: An organizer who never finished processor onboarding
	// WHEN: Selecting credit card
	// THEN: ErrPaymentSetupIncomplete; no config is created

	svc, mem := newTestService(t)
	ctx := context.Background()

	require.NoError(t, mem.SaveOrganizer(ctx, engine.Organizer{ID: owner, ProcessorOnboarded: false}))

	_, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{Model: engine.ModelCreditCard})
	require.ErrorIs(t, err, engine.ErrPaymentSetupIncomplete)

	_, err = mem.GetConfig(ctx, eventID)
	require.ErrorIs(t, err, engine.ErrConfigNotFound)
}

func TestSelectModel_Prepay_DeductsCredits(t *testing.T) {
	// GIVEN: An organizer holding 100 prepay credits
	// WHEN: Selecting prepay with 40 tickets
	// THEN: Balance drops to 60 and the config carries no platform fee

	svc, mem := newTestService(t)
	ctx := context.Background()

	cfg, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{
		Model: engine.ModelPrepay, PrepayTickets: 40,
	})
	require.NoError(t, err)
	assert.True(t, cfg.Fees.PlatformFeePercent.IsZero())
	assert.Equal(t, engine.Cents(0), cfg.Fees.PlatformFeeFixedCents)

	org, err := mem.GetOrganizer(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 60, org.CreditBalance)
}

func TestSelectModel_Prepay_InsufficientCredits_RolledBack(t *testing.T) {
	// GIVEN: An organizer with 100 credits
	// WHEN: Requesting 150 prepay tickets
	// THEN: Shortfall reported and nothing persists

	svc, mem := newTestService(t)
	ctx := context.Background()

	_, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{
		Model: engine.ModelPrepay, PrepayTickets: 150,
	})
	require.ErrorIs(t, err, engine.ErrInsufficientCredits)

	var credErr *engine.InsufficientCreditsError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, 100, credErr.Available)
	assert.Equal(t, 150, credErr.Requested)

	org, err := mem.GetOrganizer(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 100, org.CreditBalance)

	ev, err := mem.GetEvent(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, ev.TicketsVisible)
}

func TestSelectModel_Prepay_RejectsNonPositiveTicketCount(t *testing.T) {
	// GIVEN: An organizer with 100 credits
	// WHEN: Selecting prepay with a negative or zero ticket count
	// THEN: Rejected before any arithmetic; the balance never moves

	svc, mem := newTestService(t)
	ctx := context.Background()

	for _, count := range []int{-50, 0} {
		_, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{
			Model: engine.ModelPrepay, PrepayTickets: count,
		})
		require.ErrorIs(t, err, engine.ErrInvalidTicketCount)
	}

	org, err := mem.GetOrganizer(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 100, org.CreditBalance)

	_, err = mem.GetConfig(ctx, eventID)
	assert.ErrorIs(t, err, engine.ErrConfigNotFound)
}

func TestSelectModel_Consignment_RejectsNegativeFloat(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	_, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{
		Model: engine.ModelConsignment, FloatedTickets: -10,
	})
	require.ErrorIs(t, err, engine.ErrInvalidTicketCount)

	_, err = mem.GetConfig(ctx, eventID)
	assert.ErrorIs(t, err, engine.ErrConfigNotFound)
}

func TestSelectModel_Consignment_DueDateDefaultsToEventStart(t *testing.T) {
	svc, _ := newTestService(t)

	cfg, err := svc.SelectModel(context.Background(), owner, eventID, billing.SelectModelParams{
		Model: engine.ModelConsignment, FloatedTickets: 200,
	})
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.FloatedTickets)
	assert.Equal(t, time.Date(2026, time.June, 1, 20, 0, 0, 0, time.UTC), cfg.SettlementDueAt)
}

func TestSelectModel_Charity_HalvesPlatformComponents(t *testing.T) {
	svc, _ := newTestService(t)

	cfg, err := svc.SelectModel(context.Background(), owner, eventID, billing.SelectModelParams{
		Model: engine.ModelCreditCard, Charity: true,
	})
	require.NoError(t, err)

	assert.True(t, cfg.CharityDiscount)
	assert.Equal(t, engine.Cents(90), cfg.Fees.PlatformFeeFixedCents)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestDeactivate_HidesTicketsKeepsConfig(t *testing.T) {
	// GIVEN: An active credit-card config
	// WHEN: Deactivating
	// THEN: Config survives inactive; tickets hidden

	svc, mem := newTestService(t)
	ctx := context.Background()

	_, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{Model: engine.ModelCreditCard})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, owner, eventID))

	cfg, err := mem.GetConfig(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, cfg.IsActive)

	ev, err := mem.GetEvent(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, ev.TicketsVisible)
}

func TestApplyLowPriceDiscount_SetsHalvedDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{Model: engine.ModelCreditCard})
	require.NoError(t, err)

	cfg, err := svc.ApplyLowPriceDiscount(ctx, owner, eventID)
	require.NoError(t, err)

	assert.True(t, cfg.LowPriceApplied)
	assert.Equal(t, engine.Cents(90), cfg.Fees.PlatformFeeFixedCents)
}

func TestApplyLowPriceDiscount_SecondApplication_NoOp(t *testing.T) {
	// GIVEN: A charity config with the low-price discount already applied
	// WHEN: Applying again
	// THEN: Values unchanged; the override never compounds

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{
		Model: engine.ModelCreditCard, Charity: true,
	})
	require.NoError(t, err)

	first, err := svc.ApplyLowPriceDiscount(ctx, owner, eventID)
	require.NoError(t, err)

	second, err := svc.ApplyLowPriceDiscount(ctx, owner, eventID)
	require.NoError(t, err)

	assert.Equal(t, first.Fees.PlatformFeeFixedCents, second.Fees.PlatformFeeFixedCents)
	assert.True(t, first.Fees.PlatformFeePercent.Equal(second.Fees.PlatformFeePercent))
}

func TestApplyLowPriceDiscount_WrongModel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{
		Model: engine.ModelPrepay, PrepayTickets: 1,
	})
	require.NoError(t, err)

	_, err = svc.ApplyLowPriceDiscount(ctx, owner, eventID)
	require.ErrorIs(t, err, engine.ErrWrongPaymentModel)
}

// =============================================================================
// ORDER FEES
// =============================================================================

func TestCalculateOrderFees_UsesConfiguredSchedule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{Model: engine.ModelCreditCard})
	require.NoError(t, err)

	b, err := svc.CalculateOrderFees(ctx, eventID, 10000)
	require.NoError(t, err)

	assert.Equal(t, engine.Cents(549), b.PlatformFeeCents)
	assert.Equal(t, engine.Cents(306), b.ProcessingFeeCents)
}

func TestCalculateOrderFees_InactiveConfig_Rejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SelectModel(ctx, owner, eventID, billing.SelectModelParams{Model: engine.ModelCreditCard})
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, owner, eventID))

	_, err = svc.CalculateOrderFees(ctx, eventID, 10000)
	require.ErrorIs(t, err, engine.ErrConfigInactive)
}

func TestCalculateOrderFees_NoConfig(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CalculateOrderFees(context.Background(), eventID, 10000)
	require.ErrorIs(t, err, engine.ErrConfigNotFound)
}
