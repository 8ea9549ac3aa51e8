package engine_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stepperslife/settlement-engine/engine"
)

func TestErrorClassification(t *testing.T) {
	// Capacity exhaustion is a state conflict, and every conflict is by
	// definition also a client error.
	assert.True(t, engine.IsConflict(engine.ErrCapacityExceeded))
	assert.True(t, engine.IsClientError(engine.ErrCapacityExceeded))

	assert.True(t, engine.IsClientError(engine.ErrInvalidTicketCount))
	assert.False(t, engine.IsConflict(engine.ErrInvalidTicketCount))
	assert.False(t, engine.IsNotFound(engine.ErrInvalidTicketCount))

	// Classification survives wrapping.
	wrapped := fmt.Errorf("%w: prepay credits must be positive, got -50", engine.ErrInvalidTicketCount)
	assert.True(t, engine.IsClientError(wrapped))
}
