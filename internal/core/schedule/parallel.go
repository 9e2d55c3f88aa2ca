package schedule

import (
	"context"

	"go.uber.org/zap"
)

// ParallelExecutor runs independent systems concurrently on a ThreadPool.
// Systems whose declared access conflicts never overlap; exclusive systems
// and barriers run alone.
type ParallelExecutor struct {
	pool *ThreadPool
}

func NewParallelExecutor(workers int, log *zap.Logger) *ParallelExecutor {
	return &ParallelExecutor{pool: NewThreadPool(workers, log)}
}

func (e *ParallelExecutor) Run(ctx context.Context, j *Job) error {
	return e.pool.Start(ctx, j)
}

func (e *ParallelExecutor) Workers() int { return e.pool.Workers() }

func (e *ParallelExecutor) Close() error { return e.pool.Close() }
