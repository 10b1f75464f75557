package embedding

import (
	"context"
	"sync"
	"testing"
)

func TestPoolEmbedBatch(t *testing.T) {
	svc := testService(4, 10, &fakeClient{dim: 4})
	pool := NewPool(svc, 2)
	defer pool.Close()

	vecs, err := pool.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch() error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
}

func TestPoolConcurrentCallers(t *testing.T) {
	svc := testService(4, 10, &fakeClient{dim: 4})
	pool := NewPool(svc, 3)
	defer pool.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pool.Embed(context.Background(), "query text"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Embed() error: %v", err)
	}
}

func TestPoolRespectsContext(t *testing.T) {
	svc := testService(4, 10, &fakeClient{dim: 4})
	pool := NewPool(svc, 1)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pool.EmbedBatch(ctx, []string{"a"}); err == nil {
		t.Error("EmbedBatch() with cancelled context succeeded, want error")
	}
}

func TestPoolClosedSubmission(t *testing.T) {
	svc := testService(4, 10, &fakeClient{dim: 4})
	pool := NewPool(svc, 1)
	pool.Close()

	if _, err := pool.Embed(context.Background(), "a"); err == nil {
		t.Error("Embed() on closed pool succeeded, want error")
	}
}
