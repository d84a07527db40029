package prompts

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupCacheRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCache(client, 10*time.Minute)
}

func TestRedisCacheGetSetInvalidate(t *testing.T) {
	mr, cache := setupCacheRedis(t)
	ctx := context.Background()
	key := string(TaskCoverLetter) + ":formal"

	if _, ok := cache.Get(ctx, key); ok {
		t.Fatalf("expected miss on empty cache")
	}
	cache.Set(ctx, key, Template{ID: "tpl-1", TaskType: TaskCoverLetter, RoleType: "formal", PromptText: "Write {{TONE}}"})

	got, ok := cache.Get(ctx, key)
	if !ok || got.ID != "tpl-1" || got.PromptText != "Write {{TONE}}" {
		t.Fatalf("expected hit, got ok=%v %+v", ok, got)
	}
	if ttl := mr.TTL(redisKeyPrefix + key); ttl != 10*time.Minute {
		t.Fatalf("expected 10m ttl, got %v", ttl)
	}

	if err := mr.Set("unrelated", "keep"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cache.Invalidate(ctx)
	if _, ok := cache.Get(ctx, key); ok {
		t.Fatalf("expected miss after invalidate")
	}
	if !mr.Exists("unrelated") {
		t.Fatalf("invalidate must only drop template keys")
	}
}

func TestRedisCacheCorruptEntryIsMiss(t *testing.T) {
	mr, cache := setupCacheRedis(t)
	if err := mr.Set(redisKeyPrefix+"cover_letter:", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := cache.Get(context.Background(), "cover_letter:"); ok {
		t.Fatalf("corrupt entry should be a miss")
	}
}

func TestResolverServesSystemDefaultsFromRedis(t *testing.T) {
	mr, cache := setupCacheRedis(t)
	ctx := context.Background()
	stale := redisKeyPrefix + "stale:entry"
	if err := mr.Set(stale, "{}"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	repo := NewMemoryRepo()
	r := NewResolver(repo, cache)
	if err := Seed(ctx, repo, r); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if mr.Exists(stale) {
		t.Fatalf("Seed should invalidate cached defaults")
	}

	req := ResolveRequest{TaskType: TaskCoverLetter, RoleType: "creative", OwnerID: "user-1"}
	first, err := r.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	key := redisKeyPrefix + string(TaskCoverLetter) + ":creative"
	raw, err := mr.Get(key)
	if err != nil {
		t.Fatalf("expected cached default under %s: %v", key, err)
	}

	// A second resolve must come from the cache, not the repo.
	var cached Template
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		t.Fatalf("cached value: %v", err)
	}
	cached.PromptText = "from cache"
	data, _ := json.Marshal(cached)
	if err := mr.Set(key, string(data)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	second, err := r.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if second.ID != first.ID || second.PromptText != "from cache" {
		t.Fatalf("expected cached template, got %+v", second)
	}
}
