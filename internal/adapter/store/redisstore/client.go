// Package redisstore implements the job store and work queue on a single
// Redis instance. Job records live under their decimal id; the queue is a
// plain list with tail pushes and head blocking pops, so enqueue order is
// FIFO. Submit pairs the record write with the queue push in one MULTI so a
// stored job is always reachable from the queue and vice versa.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rrronit/flash/internal/domain"
)

// Client wraps a pooled Redis connection. Safe for concurrent use; the pool
// serialises connection borrow/return.
type Client struct {
	rdb *redis.Client
}

// New parses a redis:// URL and returns a connected client. The connection
// is verified with a PING so misconfiguration fails at startup, not on the
// first job.
func New(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("op=redisstore.New: %w", err)
	}
	c := &Client{rdb: redis.NewClient(opts)}
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewFromClient wraps an existing go-redis client. Used by tests backed by
// miniredis.
func NewFromClient(rdb *redis.Client) *Client { return &Client{rdb: rdb} }

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("op=redisstore.Ping: %w: %v", domain.ErrIO, err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error { return c.rdb.Close() }

// SetJob serialises the job and writes it under key. A zero ttl stores the
// record without expiry.
func (c *Client) SetJob(ctx context.Context, key string, job domain.Job, ttl time.Duration) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("op=redisstore.SetJob: %w: %v", domain.ErrSerialization, err)
	}
	if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("op=redisstore.SetJob: %w: %v", domain.ErrIO, err)
	}
	return nil
}

// GetJob reads the record under key. The boolean is false iff the key is
// absent.
func (c *Client) GetJob(ctx context.Context, key string) (domain.Job, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Job{}, false, nil
	}
	if err != nil {
		return domain.Job{}, false, fmt.Errorf("op=redisstore.GetJob: %w: %v", domain.ErrIO, err)
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return domain.Job{}, false, fmt.Errorf("op=redisstore.GetJob: %w: %v", domain.ErrDeserialization, err)
	}
	return job, true, nil
}

// PopJob blocks up to timeout for the head of queue. The boolean is false on
// timeout. The pop transfers ownership: no other consumer will see this job.
func (c *Client) PopJob(ctx context.Context, queue string, timeout time.Duration) (domain.Job, bool, error) {
	res, err := c.rdb.BLPop(ctx, timeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Job{}, false, nil
	}
	if err != nil {
		return domain.Job{}, false, fmt.Errorf("op=redisstore.PopJob: %w: %v", domain.ErrIO, err)
	}
	// BLPOP returns [queue, value].
	if len(res) != 2 {
		return domain.Job{}, false, fmt.Errorf("op=redisstore.PopJob: %w: unexpected reply shape", domain.ErrIO)
	}
	var job domain.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return domain.Job{}, false, fmt.Errorf("op=redisstore.PopJob: %w: %v", domain.ErrDeserialization, err)
	}
	return job, true, nil
}

// CreateJob stores the record under key and pushes it onto the tail of queue
// as a single transaction. Either both writes land or neither does.
func (c *Client) CreateJob(ctx context.Context, key, queue string, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("op=redisstore.CreateJob: %w: %v", domain.ErrSerialization, err)
	}
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, payload, 0)
		pipe.RPush(ctx, queue, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("op=redisstore.CreateJob: %w: %v", domain.ErrIO, err)
	}
	return nil
}

var _ domain.JobStore = (*Client)(nil)
