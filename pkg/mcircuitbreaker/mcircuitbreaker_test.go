package mcircuitbreaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lucasschwertz/procurement-core/pkg/mcircuitbreaker"
)

type mockListener struct {
	calls []mcircuitbreaker.StateChangeEvent
}

func (m *mockListener) OnCircuitBreakerStateChange(event mcircuitbreaker.StateChangeEvent) {
	m.calls = append(m.calls, event)
}

func TestNewRejectsEmptyName(t *testing.T) {
	t.Parallel()

	b, err := mcircuitbreaker.New("", mcircuitbreaker.Config{}, nil)
	require.Error(t, err)
	assert.Nil(t, b)
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	t.Parallel()

	listener := &mockListener{}

	b, err := mcircuitbreaker.New("erp-gateway", mcircuitbreaker.Config{
		ErrorRateThreshold: 1.0,
		MinSamples:         1,
		WindowSeconds:      time.Minute,
		OpenSeconds:        time.Minute,
		HalfOpenMaxCalls:   1,
	}, listener)
	require.NoError(t, err)

	_, _ = b.Execute(func() (any, error) {
		return nil, errors.New("boom")
	})

	assert.Equal(t, mcircuitbreaker.StateOpen, b.State())
	require.Len(t, listener.calls, 1)
	assert.Equal(t, mcircuitbreaker.StateClosed, listener.calls[0].FromState)
	assert.Equal(t, mcircuitbreaker.StateOpen, listener.calls[0].ToState)

	_, err = b.Execute(func() (any, error) { return "ok", nil })
	assert.True(t, mcircuitbreaker.IsOpenStateError(err))
}
