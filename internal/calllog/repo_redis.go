package calllog

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStreamMaxLen caps the stream; trimming is approximate.
const DefaultStreamMaxLen = 100_000

// RedisRepo appends entries to a capped Redis stream, one field per column.
type RedisRepo struct {
	rdb    redis.Cmdable
	stream string
	maxLen int64
}

func NewRedisRepo(rdb redis.Cmdable, stream string, maxLen int64) *RedisRepo {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &RedisRepo{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (r *RedisRepo) Append(ctx context.Context, e Entry) error {
	err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":        e.ID,
			"timestamp": e.Timestamp.UTC().Format(time.RFC3339Nano),
			"caller":    e.Caller,
			"callee":    e.Callee,
			"room":      e.Room,
			"call_id":   e.CallID,
			"outcome":   string(e.Outcome),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("calllog: xadd %s: %w", r.stream, err)
	}
	return nil
}
