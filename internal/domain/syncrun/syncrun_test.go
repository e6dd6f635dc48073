package syncrun

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusRunning.CanTransitionTo(StatusSucceeded))
	assert.True(t, StatusRunning.CanTransitionTo(StatusFailed))
	assert.False(t, StatusRunning.CanTransitionTo(StatusRunning))
	assert.False(t, StatusSucceeded.CanTransitionTo(StatusRunning))
	assert.False(t, StatusFailed.CanTransitionTo(StatusSucceeded))
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusSucceeded.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestDecodeOutboxPayload(t *testing.T) {
	payload := OutboxPayload{
		Kind:            "po_push",
		PurchaseOrderID: 11,
		NextAttemptAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CanonicalPO:     json.RawMessage(`{"schema_name":"erp.purchase_order"}`),
	}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	run := SyncRun{PayloadRef: raw}

	decoded, err := run.DecodeOutboxPayload()
	require.NoError(t, err)
	assert.Equal(t, int64(11), decoded.PurchaseOrderID)
	assert.Equal(t, "po_push", decoded.Kind)
}

func TestTruncateErrorSummaryAndDetails(t *testing.T) {
	long := strings.Repeat("x", 5000)

	assert.Len(t, TruncateErrorSummary(long), 200)
	assert.Len(t, TruncateErrorDetails(long), 1000)

	short := "boom"
	assert.Equal(t, short, TruncateErrorSummary(short))
	assert.Equal(t, short, TruncateErrorDetails(short))
}
