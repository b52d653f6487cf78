package worker

import (
	"context"
	"errors"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var ErrPoolClosed = errors.New("embed pool closed")

type embedResult struct {
	vector []float32
	err    error
}

type embedJob struct {
	ctx  context.Context
	text string
	out  chan embedResult
}

// EmbedPool runs embedding calls on a fixed set of workers so the CPU/GPU
// bound work never executes on a request-handling goroutine. Callers block in
// Embed while their job runs on the pool; request admission stays unblocked.
type EmbedPool struct {
	embedder Embedder
	jobs     chan embedJob
	done     chan struct{}
}

func NewEmbedPool(e Embedder, workers, queue int) *EmbedPool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}

	p := &EmbedPool{
		embedder: e,
		jobs:     make(chan embedJob, queue),
		done:     make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

func (p *EmbedPool) worker() {
	for {
		select {
		case job := <-p.jobs:
			if job.ctx.Err() != nil {
				job.out <- embedResult{err: job.ctx.Err()}
				continue
			}
			vec, err := p.embedder.Embed(job.ctx, job.text)
			job.out <- embedResult{vector: vec, err: err}
		case <-p.done:
			// Drain the queue before exiting so no queued caller is left
			// waiting on a worker that no longer exists.
			for {
				select {
				case job := <-p.jobs:
					job.out <- embedResult{err: ErrPoolClosed}
				default:
					return
				}
			}
		}
	}
}

// Embed dispatches text to the pool and waits for the result. It honors the
// caller's context both while queued and while running, and it never outlives
// the pool: a caller still waiting when Close runs gets ErrPoolClosed.
func (p *EmbedPool) Embed(ctx context.Context, text string) ([]float32, error) {
	job := embedJob{ctx: ctx, text: text, out: make(chan embedResult, 1)}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrPoolClosed
	}

	select {
	case res := <-job.out:
		return res.vector, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		// The result may already be in flight; out is buffered so the
		// sending side never blocks either way.
		select {
		case res := <-job.out:
			return res.vector, res.err
		default:
			return nil, ErrPoolClosed
		}
	}
}

// Close stops the workers. Queued and in-flight callers are released with
// ErrPoolClosed (or their result, if it won the race) rather than hanging.
func (p *EmbedPool) Close() {
	close(p.done)
}
