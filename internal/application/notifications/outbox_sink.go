package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	OutboxKey        = "notifications:outbox"
	defaultOutboxMax = 500
)

// OutboxSink keeps the most recent events in a capped Redis list for dashboards.
type OutboxSink struct {
	RDB *redis.Client
	Max int64
}

func (s *OutboxSink) Name() string { return "outbox" }

func (s *OutboxSink) max() int64 {
	if s.Max > 0 {
		return s.Max
	}
	return defaultOutboxMax
}

func (s *OutboxSink) Deliver(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pipe := s.RDB.TxPipeline()
	pipe.LPush(ctx, OutboxKey, b)
	pipe.LTrim(ctx, OutboxKey, 0, s.max()-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n events, newest first.
func (s *OutboxSink) Recent(ctx context.Context, n int64) ([]Event, error) {
	if n <= 0 || n > s.max() {
		n = s.max()
	}
	raw, err := s.RDB.LRange(ctx, OutboxKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(raw))
	for _, r := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
