// Package prefs provides read access to persisted viewer preference blobs:
// muted keywords, hidden topics, and report records. Blobs are plain JSON
// documents in a key-value store; a missing or malformed blob degrades to
// an empty collection so ranking never fails on preference state.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by KV implementations when a key is absent.
var ErrKeyNotFound = errors.New("key not found")

// KV is the minimal key-value capability the store needs.
type KV interface {
	// Get retrieves the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value for key.
	Set(ctx context.Context, key string, value []byte) error
}

// Key layout for preference blobs. Hidden topics exist both per-viewer and
// globally (platform-wide hides); the store merges the two.
const (
	keyMutedFmt  = "prefs:muted:%s"
	keyHiddenFmt = "prefs:hidden:%s"
	keyHiddenAll = "prefs:hidden:global"
	keyReports   = "prefs:reports"
)

// Report is one user report record. Only PostID matters to ranking;
// the rest is carried for the moderation tooling that writes these.
type Report struct {
	PostID     string `json:"postId"`
	ReporterID string `json:"reporterId,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Store reads viewer preference blobs from a KV backend.
type Store struct {
	kv     KV
	logger *slog.Logger
}

// NewStore creates a preference store. A nil logger falls back to the
// default slog logger.
func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// MutedKeywords returns the viewer's muted keyword list.
// Missing or malformed blobs yield an empty list.
func (s *Store) MutedKeywords(ctx context.Context, viewerID string) []string {
	var out []string
	s.readJSON(ctx, fmt.Sprintf(keyMutedFmt, viewerID), &out)
	return out
}

// HiddenTopics returns the union of the viewer's hidden topics and the
// globally hidden topics. Missing or malformed blobs contribute nothing.
func (s *Store) HiddenTopics(ctx context.Context, viewerID string) []string {
	var viewer, global []string
	s.readJSON(ctx, fmt.Sprintf(keyHiddenFmt, viewerID), &viewer)
	s.readJSON(ctx, keyHiddenAll, &global)

	seen := make(map[string]bool, len(viewer)+len(global))
	merged := make([]string, 0, len(viewer)+len(global))
	for _, t := range append(viewer, global...) {
		if !seen[t] {
			seen[t] = true
			merged = append(merged, t)
		}
	}
	return merged
}

// ReportCounts returns per-post report counts aggregated from the report
// records blob. Missing or malformed blobs yield an empty map.
func (s *Store) ReportCounts(ctx context.Context) map[string]int {
	var records []Report
	s.readJSON(ctx, keyReports, &records)

	counts := make(map[string]int, len(records))
	for _, r := range records {
		if r.PostID != "" {
			counts[r.PostID]++
		}
	}
	return counts
}

// readJSON loads and unmarshals a blob into dest. Absent keys are silent;
// malformed payloads are logged and otherwise ignored.
func (s *Store) readJSON(ctx context.Context, key string, dest any) {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn("preference blob read failed", "key", key, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.logger.Warn("preference blob is malformed, treating as empty", "key", key, "error", err)
	}
}

// MemoryKV is an in-memory KV implementation for tests and single-node use.
// Thread-safe via RWMutex.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// Get retrieves the value for key, or ErrKeyNotFound.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

// Set stores the value for key.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// RedisKV is a Redis-backed KV implementation.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps a Redis client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// Get retrieves the value for key, mapping redis.Nil to ErrKeyNotFound.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set stores the value for key without expiry; preference blobs live until
// rewritten by the service that owns them.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
