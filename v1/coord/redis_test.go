package coord

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newRedisClients(t *testing.T) (*RedisClient, *RedisClient, *miniredis.Miniredis, context.Context) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c1 := NewRedis(RedisOptions{Client: rc})
	c2 := NewRedis(RedisOptions{Client: rc})
	t.Cleanup(func() {
		_ = rc.Close()
		mr.Close()
	})
	return c1, c2, mr, context.Background()
}

func TestRedisAcquireReleaseRoundTrip(t *testing.T) {
	c1, _, mr, ctx := newRedisClients(t)

	if err := c1.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	cf, err := c1.Acquire(ctx, []string{"a", "b"}, 40*time.Second)
	if err != nil || cf != nil {
		t.Fatalf("acquire: cf %v err %v", cf, err)
	}
	if got, err := mr.Get("reslock:a"); err != nil || got != c1.Token() {
		t.Fatalf("lease key = %q err %v, want token %q", got, err, c1.Token())
	}
	if ttl := mr.TTL("reslock:b"); ttl <= 0 || ttl > 40*time.Second {
		t.Fatalf("lease ttl = %v", ttl)
	}
	if cf, err := c1.Release(ctx, []string{"a", "b"}); err != nil || cf != nil {
		t.Fatalf("release: cf %v err %v", cf, err)
	}
	if mr.Exists("reslock:a") || mr.Exists("reslock:b") {
		t.Fatal("lease keys survived release")
	}
}

func TestRedisBatchConflictIsAllOrNothing(t *testing.T) {
	c1, c2, mr, ctx := newRedisClients(t)

	if cf, err := c1.Acquire(ctx, []string{"shared"}, 40*time.Second); err != nil || cf != nil {
		t.Fatalf("acquire: cf %v err %v", cf, err)
	}
	cf, err := c2.Acquire(ctx, []string{"free", "shared"}, 40*time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if cf == nil {
		t.Fatal("expected conflict")
	}
	if cf.Resource != "shared" || cf.Holder != c1.Token() {
		t.Fatalf("conflict = %+v", cf)
	}
	if cf.Remaining <= 0 || cf.Remaining > 40*time.Second {
		t.Fatalf("remaining = %v", cf.Remaining)
	}
	// The denied batch must not have touched the free resource.
	if mr.Exists("reslock:free") {
		t.Fatal("partial batch grant")
	}
}

func TestRedisReleaseForeignLeaseConflicts(t *testing.T) {
	c1, c2, _, ctx := newRedisClients(t)

	if cf, err := c1.Acquire(ctx, []string{"r"}, 40*time.Second); err != nil || cf != nil {
		t.Fatalf("acquire: cf %v err %v", cf, err)
	}
	cf, err := c2.Release(ctx, []string{"r"})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if cf == nil || cf.Holder != c1.Token() {
		t.Fatalf("expected conflict naming holder, got %+v", cf)
	}
	// c1 still holds the lease.
	if cf, _ := c2.Acquire(ctx, []string{"r"}, time.Second); cf == nil {
		t.Fatal("lease was lost to a foreign release")
	}
}

func TestRedisReleaseExpiredIsOK(t *testing.T) {
	c1, _, mr, ctx := newRedisClients(t)

	if cf, err := c1.Acquire(ctx, []string{"r"}, time.Second); err != nil || cf != nil {
		t.Fatalf("acquire: cf %v err %v", cf, err)
	}
	mr.FastForward(2 * time.Second)
	if cf, err := c1.Release(ctx, []string{"r"}); err != nil || cf != nil {
		t.Fatalf("release of expired lease: cf %v err %v", cf, err)
	}
}

func TestRedisTransportError(t *testing.T) {
	c1, _, mr, ctx := newRedisClients(t)
	mr.Close()
	if _, err := c1.Acquire(ctx, []string{"r"}, time.Second); err == nil {
		t.Fatal("expected transport error")
	}
	if _, err := c1.Release(ctx, []string{"r"}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestRedisOwnedClientLifecycle(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	defer mr.Close()

	c := NewRedis(RedisOptions{Addr: mr.Addr(), Prefix: "locks:"})
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if cf, err := c.Acquire(ctx, []string{"r"}, time.Second); err != nil || cf != nil {
		t.Fatalf("acquire: cf %v err %v", cf, err)
	}
	if !mr.Exists("locks:r") {
		t.Fatal("prefix not applied")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := c.Acquire(ctx, []string{"r"}, time.Second); err == nil {
		t.Fatal("expected error after close")
	}
}
