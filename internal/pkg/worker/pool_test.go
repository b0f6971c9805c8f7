package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"venuehq.io/banquet/internal/pkg/logger"
)

func init() {
	// Initialize logger for tests
	_ = logger.Init("error", "json")
}

func TestNewPools(t *testing.T) {
	ctx := context.Background()
	pools, err := NewPools(ctx, DefaultPoolConfig())
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}
	defer pools.Shutdown()

	if pools.General == nil {
		t.Error("General pool is nil")
	}
	if pools.External == nil {
		t.Error("External pool is nil")
	}
}

func TestPool_Submit(t *testing.T) {
	ctx := context.Background()
	pools, err := NewPools(ctx, PoolConfig{
		GeneralPoolSize:  10,
		ExternalPoolSize: 5,
	})
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}
	defer pools.Shutdown()

	var executed atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)

	err = pools.General.Submit(ctx, func(ctx context.Context) {
		executed.Store(true)
		wg.Done()
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	wg.Wait()
	if !executed.Load() {
		t.Error("Task was not executed")
	}
}

func TestPool_SubmitCancelledContext(t *testing.T) {
	pools, err := NewPools(context.Background(), DefaultPoolConfig())
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}
	defer pools.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = pools.General.Submit(ctx, func(ctx context.Context) {
		t.Error("task should not run with a cancelled context")
	})
	if err == nil {
		t.Error("Submit() with cancelled context should return an error")
	}
}

func TestPools_SubmitDetached(t *testing.T) {
	pools, err := NewPools(context.Background(), PoolConfig{
		GeneralPoolSize:  4,
		ExternalPoolSize: 4,
	})
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}

	var ran atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	err = pools.SubmitDetached("external", func(ctx context.Context) {
		ran.Store(true)
		wg.Done()
	})
	if err != nil {
		t.Fatalf("SubmitDetached() error = %v", err)
	}

	wg.Wait()
	pools.Shutdown()

	if !ran.Load() {
		t.Error("detached task was not executed")
	}
}

func TestPools_ShutdownCancelsDetached(t *testing.T) {
	pools, err := NewPools(context.Background(), PoolConfig{
		GeneralPoolSize:  2,
		ExternalPoolSize: 2,
	})
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}

	started := make(chan struct{})
	done := make(chan struct{})
	err = pools.SubmitDetached("general", func(ctx context.Context) {
		close(started)
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Second):
			t.Error("detached task did not observe shutdown")
		}
		close(done)
	})
	if err != nil {
		t.Fatalf("SubmitDetached() error = %v", err)
	}

	<-started
	pools.Shutdown()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("detached task did not finish after shutdown")
	}
}

func TestPools_Metrics(t *testing.T) {
	pools, err := NewPools(context.Background(), DefaultPoolConfig())
	if err != nil {
		t.Fatalf("NewPools() error = %v", err)
	}
	defer pools.Shutdown()

	m := pools.Metrics()
	if _, ok := m["general"]; !ok {
		t.Error("Metrics() missing general pool")
	}
	if _, ok := m["external"]; !ok {
		t.Error("Metrics() missing external pool")
	}
}
