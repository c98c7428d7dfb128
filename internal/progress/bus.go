// Package progress publishes one structured event per finished subtask to
// a Redis pub/sub channel, adapted from the teacher's SSE bus
// (internal/clients/redis/sse_bus.go). It exists so an external dashboard
// can observe the structured log stream spec.md §7 asks for — keyed by
// (source, video, page pid, subtask) — without coupling the sync pipeline
// to any particular HTTP or UI layer.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/brackenfield/mediasync/internal/platform/logger"
)

// Event mirrors the (source, video, page pid, subtask label) key spec.md
// §7 requires of structured failure/success output.
type Event struct {
	SourceName string `json:"source_name"`
	VideoName  string `json:"video_name,omitempty"`
	PagePID    int    `json:"page_pid,omitempty"`
	Subtask    string `json:"subtask"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	At         int64  `json:"at"`
}

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewRedisBus connects to addr and publishes on channel. A Ping at
// construction time fails fast rather than surfacing connection errors on
// the first real publish, the same tradeoff the teacher's bus makes.
func NewRedisBus(addr, channel string, log *logger.Logger) (Bus, error) {
	if channel == "" {
		channel = "mediasync:progress"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:     log.With("service", "ProgressBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, ev Event) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("progress bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		b.log.Warn("failed to publish progress event", "error", err, "subtask", ev.Subtask)
		return err
	}
	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

// NoopBus discards every event; used when no REDIS_ADDR is configured so
// the scheduler never has to special-case a nil bus.
type NoopBus struct{}

func (NoopBus) Publish(ctx context.Context, ev Event) error { return nil }
func (NoopBus) Close() error                                { return nil }
