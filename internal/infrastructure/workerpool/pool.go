package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/healthflow/ai-assistant/internal/core/domain"
)

// Pool runs blocking external calls (embedding, vector queries, LLM
// generation) on a bounded set of workers so request control flow is not
// tied up waiting, and bounds each wait with a timeout.
type Pool struct {
	workers *ants.Pool
}

func New(size int) (*Pool, error) {
	if size <= 0 {
		size = runtime.NumCPU() * 2
		if size < 4 {
			size = 4
		}
	}
	workers, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Pool{workers: workers}, nil
}

// Run submits fn to the pool and waits at most timeout for it to finish.
// On timeout the wait is abandoned and domain.ErrTimeout is returned; the
// call itself keeps running on a context detached from cancellation, so
// the in-flight external operation is not aborted.
func (p *Pool) Run(ctx context.Context, timeout time.Duration, operation string, fn func(context.Context) error) error {
	callCtx := context.WithoutCancel(ctx)
	done := make(chan error, 1)

	if err := p.workers.Submit(func() {
		done <- fn(callCtx)
	}); err != nil {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return domain.WrapError(domain.ErrTimeout, operation, context.DeadlineExceeded)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Release() {
	p.workers.Release()
}
