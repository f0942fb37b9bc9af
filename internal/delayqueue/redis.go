package delayqueue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisQueue stores each named queue as a Redis sorted set keyed by the
// queue name, scored by the scheduled delivery instant in epoch millis.
type RedisQueue struct {
	rdb redis.UniversalClient
}

func NewRedisQueue(rdb redis.UniversalClient) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Enqueue(ctx context.Context, queue string, score int64, payload []byte) error {
	err := q.rdb.ZAdd(ctx, queue, redis.Z{
		Score:  float64(score),
		Member: string(payload),
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd %s: %w", queue, err)
	}
	return nil
}

func (q *RedisQueue) DrainDue(ctx context.Context, queue string, now int64) ([][]byte, error) {
	members, err := q.rdb.ZRangeByScore(ctx, queue, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore %s: %w", queue, err)
	}

	due := make([][]byte, len(members))
	for i, m := range members {
		due[i] = []byte(m)
	}
	return due, nil
}

func (q *RedisQueue) Remove(ctx context.Context, queue string, payload []byte) error {
	if err := q.rdb.ZRem(ctx, queue, string(payload)).Err(); err != nil {
		return fmt.Errorf("zrem %s: %w", queue, err)
	}
	return nil
}

func (q *RedisQueue) Len(ctx context.Context, queue string) (int64, error) {
	n, err := q.rdb.ZCard(ctx, queue).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard %s: %w", queue, err)
	}
	return n, nil
}

var _ Queue = (*RedisQueue)(nil)
