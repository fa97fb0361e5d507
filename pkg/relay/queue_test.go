package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/truefriend/pkg/model"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(model.OutboundEnvelope{ID: fmt.Sprintf("e%d", i)}))
	}
	assert.Equal(t, 3, q.Len())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		env, ok := q.Dequeue(ctx)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("e%d", i), env.ID)
	}
	assert.Equal(t, 0, q.Len())
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewQueue()

	got := make(chan model.OutboundEnvelope, 1)
	go func() {
		env, ok := q.Dequeue(context.Background())
		if ok {
			got <- env
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue(model.OutboundEnvelope{ID: "late"}))

	select {
	case env := <-got:
		assert.Equal(t, "late", env.ID)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up")
	}
}

func TestDequeueRespectsContext(t *testing.T) {
	q := NewQueue()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not observe cancellation")
	}
}

func TestEnqueueAfterCloseFails(t *testing.T) {
	q := NewQueue()
	q.Close()
	q.Close() // closing twice is fine

	err := q.Enqueue(model.OutboundEnvelope{ID: "x"})
	assert.ErrorIs(t, err, ErrQueueClosed)

	_, ok := q.Dequeue(context.Background())
	assert.False(t, ok)
}

func TestConcurrentEnqueueLosesNothing(t *testing.T) {
	q := NewQueue()
	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Enqueue(model.OutboundEnvelope{ID: fmt.Sprintf("%d-%d", p, i)})
			}
		}(p)
	}
	wg.Wait()

	seen := map[string]bool{}
	ctx := context.Background()
	for i := 0; i < producers*perProducer; i++ {
		env, ok := q.Dequeue(ctx)
		require.True(t, ok)
		require.False(t, seen[env.ID], "duplicate envelope %s", env.ID)
		seen[env.ID] = true
	}
	assert.Equal(t, 0, q.Len())
}
