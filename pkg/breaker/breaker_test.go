package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/univ-admin-api/pkg/config"
)

func testConfig() config.BreakerConfig {
	return config.BreakerConfig{
		FailureRatio:     0.5,
		MinRequests:      3,
		Interval:         time.Minute,
		Cooldown:         30 * time.Second,
		HalfOpenRequests: 1,
	}
}

func TestRegistryReturnsSameInstancePerName(t *testing.T) {
	r := NewRegistry(testConfig(), zap.NewNop())

	auth := r.Get("auth")
	academic := r.Get("academic")
	assert.Same(t, auth, r.Get("auth"))
	assert.NotSame(t, auth, academic)
}

func TestBreakerOpensAfterFailureRatio(t *testing.T) {
	r := NewRegistry(testConfig(), zap.NewNop())
	cb := r.Get("upstream")
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
	}

	require.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (interface{}, error) { return nil, nil })
	assert.True(t, Open(err))
}

func TestBreakerStaysClosedBelowMinRequests(t *testing.T) {
	r := NewRegistry(testConfig(), zap.NewNop())
	cb := r.Get("upstream")

	_, _ = cb.Execute(func() (interface{}, error) { return nil, errors.New("boom") })
	_, _ = cb.Execute(func() (interface{}, error) { return nil, errors.New("boom") })

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestStateListenerNotified(t *testing.T) {
	r := NewRegistry(testConfig(), zap.NewNop())
	var gotName string
	var gotState gobreaker.State
	r.OnStateChange(func(name string, state gobreaker.State) {
		gotName = name
		gotState = state
	})

	cb := r.Get("upstream")
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (interface{}, error) { return nil, errors.New("boom") })
	}

	assert.Equal(t, "upstream", gotName)
	assert.Equal(t, gobreaker.StateOpen, gotState)
}

func TestOpenOnlyMatchesBreakerErrors(t *testing.T) {
	assert.True(t, Open(gobreaker.ErrOpenState))
	assert.True(t, Open(gobreaker.ErrTooManyRequests))
	assert.False(t, Open(errors.New("boom")))
	assert.False(t, Open(nil))
}
