// Package redisqueue hands ingestion jobs to workers through a Redis list.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ada-engine/internal/application/port/output"
	"ada-engine/internal/domain/entity"
)

const DefaultQueue = "ada:ingestion_tasks"

var _ output.IngestionQueue = (*Queue)(nil)

// Queue pushes on the tail and pops from the head, so workers see jobs in
// submission order.
type Queue struct {
	client redis.Cmdable
	name   string
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func New(client redis.Cmdable, name string) *Queue {
	if name == "" {
		name = DefaultQueue
	}
	return &Queue{client: client, name: name}
}

func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) Enqueue(ctx context.Context, msg entity.IngestionQueueMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode ingestion job: %w", err)
	}
	if err := q.client.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("redis enqueue: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout. It returns (nil, nil) when nothing arrived.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*entity.IngestionQueueMessage, error) {
	res, err := q.client.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis dequeue: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("redis dequeue: unexpected reply of %d elements", len(res))
	}

	var msg entity.IngestionQueueMessage
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, fmt.Errorf("decode ingestion job: %w", err)
	}
	return &msg, nil
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("redis queue length: %w", err)
	}
	return n, nil
}
