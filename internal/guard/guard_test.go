package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func TestMemoryAcquire(t *testing.T) {
	g := NewMemory()
	ctx := context.Background()

	release, err := g.Acquire(ctx, "table:5", time.Minute)
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}
	if _, err := g.Acquire(ctx, "table:5", time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("second Acquire error = %v, want ErrHeld", err)
	}
	if _, err := g.Acquire(ctx, "table:6", time.Minute); err != nil {
		t.Fatalf("other key Acquire error: %v", err)
	}

	release()
	release()
	if _, err := g.Acquire(ctx, "table:5", time.Minute); err != nil {
		t.Fatalf("Acquire after release error: %v", err)
	}
}

func TestMemoryLeaseExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewMemory()
	g.now = func() time.Time { return now }

	stale, err := g.Acquire(context.Background(), "k", 10*time.Second)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	now = now.Add(11 * time.Second)
	if _, err := g.Acquire(context.Background(), "k", 10*time.Second); err != nil {
		t.Fatalf("Acquire after expiry error: %v", err)
	}

	// The expired holder must not release the new lease.
	stale()
	if _, err := g.Acquire(context.Background(), "k", 10*time.Second); !errors.Is(err, ErrHeld) {
		t.Fatalf("Acquire after stale release = %v, want ErrHeld", err)
	}
}

type fakeRedis struct {
	values map[string]string
	evals  int
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.evals++
	if f.values[keys[0]] == args[0].(string) {
		delete(f.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestRedisAcquire(t *testing.T) {
	fake := &fakeRedis{values: map[string]string{}}
	g := NewRedis(fake, "tpv:close:")
	ctx := context.Background()

	release, err := g.Acquire(ctx, "5", time.Minute)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if _, ok := fake.values["tpv:close:5"]; !ok {
		t.Fatalf("key not stored with prefix: %v", fake.values)
	}
	if _, err := g.Acquire(ctx, "5", time.Minute); !errors.Is(err, ErrHeld) {
		t.Fatalf("second Acquire error = %v, want ErrHeld", err)
	}
	release()
	if fake.evals != 1 {
		t.Fatalf("evals = %d, want 1", fake.evals)
	}
	if _, err := g.Acquire(ctx, "5", time.Minute); err != nil {
		t.Fatalf("Acquire after release error: %v", err)
	}
}
