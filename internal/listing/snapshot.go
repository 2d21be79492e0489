package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Nanyonga-Rahmah/crm-landing-pages/internal/tenancy"
)

const snapshotPrefix = "crm:snapshot:"

// SnapshotStore keeps the unfiltered baseline of each page per identity.
type SnapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	InvalidateOrg(ctx context.Context, orgID string) (int, error)
}

// SnapshotKey identifies the baseline of one page for one identity.
func SnapshotKey(kind Kind, id tenancy.Identity) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", snapshotPrefix, id.OrganizationID, kind, id.Role, id.UserID)
}

func orgPrefix(orgID string) string {
	return snapshotPrefix + orgID + ":"
}

// RedisSnapshotStore stores snapshots as JSON strings with a TTL.
type RedisSnapshotStore struct {
	client *redis.Client
}

func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client}
}

func (s *RedisSnapshotStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("listing: get snapshot: %w", err)
	}
	return raw, true, nil
}

func (s *RedisSnapshotStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("listing: set snapshot: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) InvalidateOrg(ctx context.Context, orgID string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, orgPrefix(orgID)+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("listing: scan snapshots: %w", err)
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("listing: delete snapshots: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// MemorySnapshotStore is a process-local SnapshotStore.
type MemorySnapshotStore struct {
	mu      sync.Mutex
	entries map[string]snapshotEntry
	now     func() time.Time
}

type snapshotEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{entries: make(map[string]snapshotEntry), now: time.Now}
}

func (s *MemorySnapshotStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemorySnapshotStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = snapshotEntry{value: value, expiresAt: expiresAt}
	return nil
}

func (s *MemorySnapshotStore) InvalidateOrg(_ context.Context, orgID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := orgPrefix(orgID)
	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}
