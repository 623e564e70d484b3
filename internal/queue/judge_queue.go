package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const judgeQueueKey = "judge-requests"

// JudgeRequest asks the judge worker to evaluate a finished monitoring
// run against the session's recorded detections.
type JudgeRequest struct {
	RequestID   string    `json:"request_id"`
	SessionID   uuid.UUID `json:"session_id"`
	FinalResult string    `json:"final_result"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// NewJudgeRequest builds a request with a fresh request ID.
func NewJudgeRequest(sessionID uuid.UUID, finalResult string) *JudgeRequest {
	return &JudgeRequest{
		RequestID:   uuid.New().String(),
		SessionID:   sessionID,
		FinalResult: finalResult,
		EnqueuedAt:  time.Now(),
	}
}

// JudgeQueue manages the queue of judge requests on a Redis list
type JudgeQueue struct {
	rdb *redis.Client
}

func NewJudgeQueue(rdb *redis.Client) *JudgeQueue {
	return &JudgeQueue{rdb: rdb}
}

// Enqueue adds a judge request to the end of the queue
func (q *JudgeQueue) Enqueue(ctx context.Context, req *JudgeRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to serialize judge request: %w", err)
	}
	if err := q.rdb.RPush(ctx, judgeQueueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue judge request: %w", err)
	}
	return nil
}

// Dequeue removes and returns the next request without blocking.
// Returns nil if the queue is empty
func (q *JudgeQueue) Dequeue(ctx context.Context) (*JudgeRequest, error) {
	result, err := q.rdb.LPop(ctx, judgeQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Queue is empty
		}
		return nil, fmt.Errorf("failed to dequeue judge request: %w", err)
	}
	return parseRequest([]byte(result))
}

// BlockingDequeue blocks until a request is available or the timeout
// elapses. Returns nil on timeout
func (q *JudgeQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*JudgeRequest, error) {
	result, err := q.rdb.BLPop(ctx, timeout, judgeQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Timeout, queue still empty
		}
		return nil, fmt.Errorf("failed to dequeue judge request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}
	return parseRequest([]byte(result[1]))
}

// Peek returns up to limit pending requests without removing them
func (q *JudgeQueue) Peek(ctx context.Context, limit int) ([]*JudgeRequest, error) {
	if limit <= 0 {
		limit = 10
	}
	results, err := q.rdb.LRange(ctx, judgeQueueKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to peek judge queue: %w", err)
	}

	reqs := make([]*JudgeRequest, 0, len(results))
	for _, result := range results {
		req, err := parseRequest([]byte(result))
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Depth returns the number of pending judge requests
func (q *JudgeQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.rdb.LLen(ctx, judgeQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}

// Clear removes all pending judge requests
func (q *JudgeQueue) Clear(ctx context.Context) error {
	if err := q.rdb.Del(ctx, judgeQueueKey).Err(); err != nil {
		return fmt.Errorf("failed to clear judge queue: %w", err)
	}
	return nil
}

func parseRequest(data []byte) (*JudgeRequest, error) {
	var req JudgeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse judge request: %w", err)
	}
	return &req, nil
}
