package presets

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/testforge/reslock/v1/coordinator"
	"github.com/testforge/reslock/v1/task"
)

func TestNewStandalone(t *testing.T) {
	ctx := context.Background()
	c := NewStandalone(coordinator.Config{})
	if err := c.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	tk := task.New("T", "r")
	if ok, err := c.Acquire(ctx, tk); err != nil || !ok {
		t.Fatalf("acquire: ok %v err %v", ok, err)
	}
	if err := c.Release(ctx, tk); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	c := NewRedis(RedisOptions{Addr: mr.Addr()}, coordinator.Config{})
	if err := c.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	tk := task.New("T", "staging-account")
	if ok, err := c.Acquire(ctx, tk); err != nil || !ok {
		t.Fatalf("acquire: ok %v err %v", ok, err)
	}
	if !mr.Exists("reslock:staging-account") {
		t.Fatal("lease key missing")
	}
	if err := c.Release(ctx, tk); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
