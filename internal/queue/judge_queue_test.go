package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestQueue(t *testing.T) *JudgeQueue {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewJudgeQueue(rdb)
}

func TestJudgeQueue_EnqueueDequeue(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	sessionID := uuid.New()
	req := NewJudgeRequest(sessionID, "TASK COMPLETE")
	require.NoError(t, q.Enqueue(ctx, req))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got, "expected a request from the queue")
	assert.Equal(t, sessionID, got.SessionID, "dequeued request should keep its session")
	assert.Equal(t, req.RequestID, got.RequestID, "dequeued request should keep its ID")
	assert.Equal(t, "TASK COMPLETE", got.FinalResult)
}

func TestJudgeQueue_DequeueEmpty(t *testing.T) {
	q := setupTestQueue(t)

	got, err := q.Dequeue(context.Background())
	assert.NoError(t, err, "empty dequeue should not error")
	assert.Nil(t, got, "expected nil from empty queue")
}

func TestJudgeQueue_FIFO(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	first := NewJudgeRequest(uuid.New(), "first")
	second := NewJudgeRequest(uuid.New(), "second")
	for _, req := range []*JudgeRequest{first, second} {
		require.NoError(t, q.Enqueue(ctx, req))
	}

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.RequestID, got.RequestID, "queue should be FIFO")
}

func TestJudgeQueue_BlockingDequeue(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	req := NewJudgeRequest(uuid.New(), "done")
	require.NoError(t, q.Enqueue(ctx, req))

	got, err := q.BlockingDequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req.RequestID, got.RequestID)
}

func TestJudgeQueue_Peek(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	first := NewJudgeRequest(uuid.New(), "first")
	second := NewJudgeRequest(uuid.New(), "second")
	for _, req := range []*JudgeRequest{first, second} {
		require.NoError(t, q.Enqueue(ctx, req))
	}

	peeked, err := q.Peek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, peeked, 2)
	assert.Equal(t, first.RequestID, peeked[0].RequestID, "peek should show queue order")

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth, "peek must not consume requests")
}

func TestJudgeQueue_Clear(t *testing.T) {
	q := setupTestQueue(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(ctx, NewJudgeRequest(uuid.New(), "r")))
	}
	require.NoError(t, q.Clear(ctx))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth, "cleared queue should be empty")
}
