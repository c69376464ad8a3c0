package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLockAcquireRelease(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "refresher", time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !acquired {
		t.Fatal("expected to acquire a free lock")
	}

	// The same name cannot be acquired while held.
	acquired, err = lock.Acquire(ctx, "refresher", time.Minute)
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if acquired {
		t.Error("expected a held lock to be denied")
	}

	if err := lock.Release(ctx, "refresher"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	acquired, err = lock.Acquire(ctx, "refresher", time.Minute)
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	if !acquired {
		t.Error("expected to re-acquire a released lock")
	}
}

func TestLockOwnership(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lockA := NewLock(client)
	lockB := NewLock(client)
	ctx := context.Background()

	if acquired, _ := lockA.Acquire(ctx, "refresher", time.Minute); !acquired {
		t.Fatal("expected lockA to acquire")
	}

	// Another instance releasing is a no-op; the holder keeps the lock.
	if err := lockB.Release(ctx, "refresher"); err != nil {
		t.Fatalf("Release by non-owner failed: %v", err)
	}
	if acquired, _ := lockB.Acquire(ctx, "refresher", time.Minute); acquired {
		t.Error("lock must still be held by lockA")
	}
}

func TestLockExtend(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)
	other := NewLock(client)
	ctx := context.Background()

	if acquired, _ := lock.Acquire(ctx, "refresher", time.Minute); !acquired {
		t.Fatal("expected to acquire")
	}

	if err := lock.Extend(ctx, "refresher", 2*time.Minute); err != nil {
		t.Errorf("Extend by owner failed: %v", err)
	}
	if err := other.Extend(ctx, "refresher", 2*time.Minute); err == nil {
		t.Error("Extend by non-owner must fail")
	}
}

func TestLockExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lockA := NewLock(client)
	lockB := NewLock(client)
	ctx := context.Background()

	if acquired, _ := lockA.Acquire(ctx, "refresher", time.Minute); !acquired {
		t.Fatal("expected lockA to acquire")
	}

	mr.FastForward(2 * time.Minute)

	acquired, err := lockB.Acquire(ctx, "refresher", time.Minute)
	if err != nil {
		t.Fatalf("Acquire after expiry failed: %v", err)
	}
	if !acquired {
		t.Error("expected the lock to expire and be acquirable")
	}
}
