package saga

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExecuteRunsStepsInOrder(t *testing.T) {
	var order []string
	c := NewCoordinator(zap.NewNop())

	err := c.Execute(context.Background(), "test", []Step{
		{Name: "one", Run: func(ctx context.Context) error { order = append(order, "one"); return nil }},
		{Name: "two", Run: func(ctx context.Context) error { order = append(order, "two"); return nil }},
		{Name: "three", Run: func(ctx context.Context) error { order = append(order, "three"); return nil }},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, order)
}

func TestExecuteCompensatesInReverseOrder(t *testing.T) {
	var compensated []string
	boom := errors.New("boom")
	c := NewCoordinator(zap.NewNop())

	err := c.Execute(context.Background(), "test", []Step{
		{
			Name:       "one",
			Run:        func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error { compensated = append(compensated, "one"); return nil },
		},
		{
			Name:       "two",
			Run:        func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error { compensated = append(compensated, "two"); return nil },
		},
		{
			Name: "three",
			Run:  func(ctx context.Context) error { return boom },
			Compensate: func(ctx context.Context) error {
				t.Fatal("failed step must not be compensated")
				return nil
			},
		},
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"two", "one"}, compensated)
}

func TestExecuteReturnsOriginalErrorWhenCompensationFails(t *testing.T) {
	boom := errors.New("boom")
	c := NewCoordinator(zap.NewNop())

	err := c.Execute(context.Background(), "test", []Step{
		{
			Name:       "one",
			Run:        func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error { return errors.New("compensation failed") },
		},
		{Name: "two", Run: func(ctx context.Context) error { return boom }},
	})
	require.ErrorIs(t, err, boom)
}

func TestExecuteSkipsNilCompensation(t *testing.T) {
	boom := errors.New("boom")
	c := NewCoordinator(zap.NewNop())

	err := c.Execute(context.Background(), "test", []Step{
		{Name: "one", Run: func(ctx context.Context) error { return nil }},
		{Name: "two", Run: func(ctx context.Context) error { return boom }},
	})
	require.ErrorIs(t, err, boom)
}

func TestCompensationSurvivesCallerCancellation(t *testing.T) {
	compensated := false
	boom := errors.New("boom")
	c := NewCoordinator(zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	err := c.Execute(ctx, "test", []Step{
		{
			Name: "provision",
			Run:  func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error {
				require.NoError(t, ctx.Err())
				compensated = true
				return nil
			},
		},
		{
			Name: "persist",
			Run: func(ctx context.Context) error {
				cancel()
				return boom
			},
		},
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, compensated)
}
