package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the Redis list the mail service consumes.
const DefaultQueue = "delta:notifications"

// RedisNotifier renders notices and pushes them onto a Redis list for the
// mail service.
type RedisNotifier struct {
	client redis.Cmdable
	queue  string
	closer func() error
}

// NewRedisNotifier creates a notifier backed by a new Redis client.
func NewRedisNotifier(addr, password string, db int, queue string) *RedisNotifier {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	n := NewRedisNotifierWithClient(rdb, queue)
	n.closer = rdb.Close
	return n
}

// NewRedisNotifierWithClient wraps an existing client.
func NewRedisNotifierWithClient(client redis.Cmdable, queue string) *RedisNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisNotifier{client: client, queue: queue}
}

func (n *RedisNotifier) NotifyValidators(ctx context.Context, v ValidatorNotice) error {
	msg, err := RenderValidator(v)
	if err != nil {
		return err
	}
	return n.push(ctx, msg)
}

func (n *RedisNotifier) NotifySubmitter(ctx context.Context, s SubmitterNotice) error {
	if s.SubmitterID == "" {
		return fmt.Errorf("no submitter recorded for %s %s", s.EntityType, s.EntityID)
	}
	msg, err := RenderSubmitter(s)
	if err != nil {
		return err
	}
	return n.push(ctx, msg)
}

func (n *RedisNotifier) push(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.client.LPush(ctx, n.queue, data).Err(); err != nil {
		return fmt.Errorf("enqueue notification on %s: %w", n.queue, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

// Close releases the client created by NewRedisNotifier.
func (n *RedisNotifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}
