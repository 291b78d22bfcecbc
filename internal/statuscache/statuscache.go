// Package statuscache keeps the latest job status snapshot in a fast
// read path so status pollers never contend with the running pipeline.
// The orchestrator writes a snapshot on every transition; readers only
// see whole snapshots.
package statuscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spherical-ai/intellidoc/internal/results"
)

// ErrNotFound indicates no snapshot exists for the job.
var ErrNotFound = errors.New("status not found")

// Snapshot is the poller-visible view of a job's progress.
type Snapshot struct {
	JobID              uuid.UUID         `json:"job_id"`
	Status             results.JobStatus `json:"status"`
	CurrentStep        string            `json:"current_step,omitempty"`
	ProgressPercent    float64           `json:"progress_percent"`
	TotalDocuments     int               `json:"total_documents"`
	DocumentsProcessed int               `json:"documents_processed"`
	DocumentsSucceeded int               `json:"documents_succeeded"`
	DocumentsFailed    int               `json:"documents_failed"`
	ErrorMessage       string            `json:"error_message,omitempty"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// Cache stores job status snapshots.
type Cache interface {
	Put(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, jobID uuid.UUID) (*Snapshot, error)
	Close() error
}

// MemoryCache is an in-memory Cache for development and tests.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[uuid.UUID]Snapshot
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[uuid.UUID]Snapshot)}
}

// Put stores a snapshot.
func (c *MemoryCache) Put(ctx context.Context, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[snap.JobID] = snap
	return nil
}

// Get returns the latest snapshot for a job.
func (c *MemoryCache) Get(ctx context.Context, jobID uuid.UUID) (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.data[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return &snap, nil
}

// Close is a no-op for the memory cache.
func (c *MemoryCache) Close() error { return nil }

// RedisCache stores snapshots in Redis with a TTL so terminal jobs
// age out.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis connection settings for the status cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	TTL      time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisCache{client: client, prefix: "intellidoc:status:", ttl: ttl}, nil
}

// Put stores a snapshot.
func (c *RedisCache) Put(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+snap.JobID.String(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the latest snapshot for a job.
func (c *RedisCache) Get(ctx context.Context, jobID uuid.UUID) (*Snapshot, error) {
	data, err := c.client.Get(ctx, c.prefix+jobID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error { return c.client.Close() }
