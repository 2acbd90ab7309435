// Package saga coordinates multi-step writes that span service boundaries
// without a distributed transaction: steps run strictly in order, and when
// one fails the compensations of the steps that already completed run in
// reverse order before the original failure is returned.
package saga

import (
	"context"

	"go.uber.org/zap"
)

// Step is one ordered unit of work. Compensate is optional; steps whose
// failure is itself the abort trigger need none.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Coordinator executes step sequences for logical operations.
type Coordinator struct {
	logger *zap.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{logger: logger}
}

// Execute runs steps in order. On the first failure it compensates every
// already-completed step in reverse order and returns the failing step's
// error. Compensation failures are logged, never surfaced: the caller always
// observes the original failure.
func (c *Coordinator) Execute(ctx context.Context, operation string, steps []Step) error {
	completed := make([]Step, 0, len(steps))
	for _, step := range steps {
		if err := step.Run(ctx); err != nil {
			c.logger.Warn("saga step failed",
				zap.String("operation", operation),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			c.compensate(ctx, operation, completed)
			return err
		}
		completed = append(completed, step)
	}
	return nil
}

// compensate sweeps completed steps in reverse order. It runs on a context
// detached from the caller's cancellation: a client that disconnects after a
// remote provisioning step must not leave the orphaned side effect behind.
func (c *Coordinator) compensate(ctx context.Context, operation string, completed []Step) {
	ctx = context.WithoutCancel(ctx)
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			c.logger.Error("saga compensation failed",
				zap.String("operation", operation),
				zap.String("step", step.Name),
				zap.Error(err),
			)
			continue
		}
		c.logger.Info("saga step compensated",
			zap.String("operation", operation),
			zap.String("step", step.Name),
		)
	}
}
