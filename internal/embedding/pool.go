package embedding

import (
	"context"
	"fmt"
	"sync"
)

// Pool runs embedding requests on a fixed set of workers so that a
// slow model call never blocks concurrent query handling. Callers
// submit a batch and await the result; queue admission respects the
// caller's context.
type Pool struct {
	svc  *Service
	jobs chan embedJob

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

type embedJob struct {
	ctx   context.Context
	texts []string
	reply chan embedResult
}

type embedResult struct {
	vectors [][]float32
	err     error
}

// NewPool starts a pool with the given number of workers
func NewPool(svc *Service, workers int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	p := &Pool{
		svc:  svc,
		jobs: make(chan embedJob),
		done: make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			vectors, err := p.svc.EmbedBatch(job.ctx, job.texts)
			job.reply <- embedResult{vectors: vectors, err: err}
		case <-p.done:
			return
		}
	}
}

// EmbedBatch embeds texts on a pool worker and waits for the result
func (p *Pool) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reply := make(chan embedResult, 1)
	select {
	case p.jobs <- embedJob{ctx: ctx, texts: texts, reply: reply}:
	case <-p.done:
		return nil, fmt.Errorf("embedding pool is closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.vectors, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Embed embeds a single text on a pool worker
func (p *Pool) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vecs[0], nil
}

// Dimensions returns the dimension of the embeddings
func (p *Pool) Dimensions() int {
	return p.svc.Dimensions()
}

// Close stops the workers. In-flight jobs finish; queued submissions
// fail with a closed-pool error.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}
