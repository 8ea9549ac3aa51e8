package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepperslife/settlement-engine/engine"
	"github.com/stepperslife/settlement-engine/engine/store"
)

func TestTxMemory_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that writes an organizer and a config, then fails
	// WHEN: The callback returns an error
	// THEN: Both writes are rolled back

	mem := store.NewTxMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := mem.WithTx(ctx, func(tx engine.Store) error {
		if err := tx.SaveOrganizer(ctx, engine.Organizer{ID: "org-1"}); err != nil {
			return err
		}
		if err := tx.CreateConfig(ctx, engine.PaymentModelConfig{
			ID: "cfg-1", EventID: "ev-1", Model: engine.ModelPrepay,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = mem.GetOrganizer(ctx, "org-1")
	require.ErrorIs(t, err, engine.ErrOrganizerNotFound)
	_, err = mem.GetConfig(ctx, "ev-1")
	require.ErrorIs(t, err, engine.ErrConfigNotFound)
}

func TestMemory_CreateConfig_Duplicate(t *testing.T) {
	mem := store.NewTxMemory()
	ctx := context.Background()

	require.NoError(t, mem.CreateConfig(ctx, engine.PaymentModelConfig{
		ID: "cfg-1", EventID: "ev-1", Model: engine.ModelPrepay,
	}))
	err := mem.CreateConfig(ctx, engine.PaymentModelConfig{
		ID: "cfg-2", EventID: "ev-1", Model: engine.ModelConsignment,
	})
	require.ErrorIs(t, err, engine.ErrAlreadyConfigured)
}

func TestMemory_MarkSettled_OneShot(t *testing.T) {
	mem := store.NewTxMemory()
	ctx := context.Background()

	require.NoError(t, mem.CreateConfig(ctx, engine.PaymentModelConfig{
		ID: "cfg-1", EventID: "ev-1", Model: engine.ModelConsignment, FloatedTickets: 10,
	}))

	snap := engine.SettlementSnapshot{
		EventID: "ev-1", SoldTickets: 2, SettlementCents: 500,
		ComputedAt: time.Now().UTC(), Settled: true,
	}
	require.NoError(t, mem.MarkSettled(ctx, "ev-1", snap))
	require.ErrorIs(t, mem.MarkSettled(ctx, "ev-1", snap), engine.ErrAlreadySettled)

	cfg, err := mem.GetConfig(ctx, "ev-1")
	require.NoError(t, err)
	assert.True(t, cfg.Settled)
	assert.Equal(t, engine.Cents(500), cfg.SettlementCents)
}
