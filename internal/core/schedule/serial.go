package schedule

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SerialExecutor runs the plan in order on the calling goroutine.
type SerialExecutor struct{}

func NewSerialExecutor() *SerialExecutor { return &SerialExecutor{} }

func (e *SerialExecutor) Run(ctx context.Context, j *Job) error {
	for _, id := range j.Plan.Order {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("serial run cancelled: %w", err)
		}
		cmds, err := runSystem(ctx, j, id)
		if err != nil {
			if j.Log != nil {
				j.Log.Debug("system failed", zap.String("system", j.Metas[id].Name), zap.Error(err))
			}
			return err
		}
		j.World.Submit(cmds)
	}
	return nil
}

func (e *SerialExecutor) Close() error { return nil }
