package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a metadata backend that streams records into
// Redis lists, useful when a case's carve run feeds a live triage
// dashboard rather than a batch export.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	RunID    string
}

func (c RedisConfig) Open() (Sink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("metadata: redis ping: %w", err)
	}
	return &RedisSink{client: client, runID: c.RunID}, nil
}

// RedisSink pushes each record kind onto its own Redis list, keyed by run
// id so multiple concurrent runs don't collide in the same database.
type RedisSink struct {
	client *redis.Client
	runID  string
}

func (s *RedisSink) key(suffix string) string {
	return fmt.Sprintf("filecarver:%s:%s", s.runID, suffix)
}

func (s *RedisSink) push(key string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("metadata: marshal record: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("metadata: redis rpush %s: %w", key, err)
	}
	return nil
}

func (s *RedisSink) WriteCarvedFile(rec CarvedFile) error {
	return s.push(s.key("carved_files"), rec)
}

func (s *RedisSink) WriteEntropyRegion(rec EntropyRegion) error {
	return s.push(s.key("entropy_regions"), rec)
}

func (s *RedisSink) WriteStringArtefact(rec StringArtefact) error {
	return s.push(s.key("string_artefacts"), rec)
}

func (s *RedisSink) WriteRunSummary(rec RunSummary) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("metadata: marshal run summary: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Set(ctx, s.key("run_summary"), payload, 0).Err()
}

func (s *RedisSink) Flush() error { return nil }

func (s *RedisSink) Close() error { return s.client.Close() }
