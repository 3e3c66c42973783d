package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 50; i++ {
		q.Push(i)
	}
	assert.Equal(t, 50, q.Len())

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		v, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_TryPopEmpty(t *testing.T) {
	q := NewQueue[string]()
	v, ok := q.TryPop()
	assert.False(t, ok)
	assert.Equal(t, "", v)

	_, ok = q.Peek()
	assert.False(t, ok)
}

func TestQueue_PeekDoesNotRemove(t *testing.T) {
	q := NewQueue[string]()
	q.Push("a")
	q.Push("b")

	v, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 2, q.Len())
}

func TestQueue_DrainAll(t *testing.T) {
	q := NewQueue[string]()
	q.Push("a")
	q.Push("b")
	q.Push("c")

	assert.Equal(t, []string{"a", "b", "c"}, q.DrainAll())
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.DrainAll())
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewQueue[string]()
	got := make(chan string, 1)
	go func() {
		v, err := q.Pop(context.Background())
		if err == nil {
			got <- v
		}
	}()

	select {
	case <-got:
		t.Fatal("Pop returned before Push")
	case <-time.After(30 * time.Millisecond):
	}

	q.Push("late")
	select {
	case v := <-got:
		assert.Equal(t, "late", v)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Push")
	}
}

func TestQueue_PopContextCancel(t *testing.T) {
	q := NewQueue[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_CloseReleasesConsumers(t *testing.T) {
	q := NewQueue[int]()
	q.Push(1)
	q.Push(2)

	errs := make(chan error, 1)
	empty := NewQueue[int]()
	go func() {
		_, err := empty.Pop(context.Background())
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	empty.Close()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Pop not released by Close")
	}

	assert.Equal(t, 2, q.Close())
	assert.Equal(t, 0, q.Close())
	assert.False(t, q.Push(3))
	_, err := q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue_ManyConsumersNoLostWakeups(t *testing.T) {
	q := NewQueue[int]()
	const consumers, items = 8, 400

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int]bool)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for c := 0; c < consumers; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < items/consumers; i++ {
				v, err := q.Pop(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	for i := 0; i < items; i++ {
		q.Push(i)
	}
	wg.Wait()

	assert.Len(t, seen, items)
	assert.NoError(t, ctx.Err())
}
