package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGuard_DoRejectsBusyKey(t *testing.T) {
	var g Guard
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- g.Do(ctx, "export:a", func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	if err := g.Do(ctx, "export:a", func(context.Context) error { return nil }); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for same key, got %v", err)
	}
	if err := g.Do(ctx, "export:b", func(context.Context) error { return nil }); err != nil {
		t.Errorf("different key should run, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Key is free again once the run finished.
	if err := g.Do(ctx, "export:a", func(context.Context) error { return nil }); err != nil {
		t.Errorf("expected key released after Do returned, got %v", err)
	}
}

func TestGuard_DoAppliesRunDeadline(t *testing.T) {
	var g Guard
	err := g.Do(context.Background(), "import:a", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected run context to carry a deadline")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
}

func TestGuard_DoPropagatesError(t *testing.T) {
	var g Guard
	want := errors.New("boom")
	err := g.Do(context.Background(), "import:a", func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Errorf("expected fn error propagated, got %v", err)
	}
	// A failed run must release its key.
	if err := g.Do(context.Background(), "import:a", func(context.Context) error { return nil }); err != nil {
		t.Errorf("expected key released after error, got %v", err)
	}
}

func TestGuard_WaitAll(t *testing.T) {
	var g Guard
	release := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		g.Do(context.Background(), "export:a", func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	g.WaitAll(ctx)

	if err := g.Do(context.Background(), "export:a", func(context.Context) error { return nil }); err != nil {
		t.Errorf("guard should be idle after WaitAll, got %v", err)
	}
}

func TestGuard_WaitAllHonorsContext(t *testing.T) {
	var g Guard
	release := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		g.Do(context.Background(), "export:stuck", func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		g.WaitAll(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitAll did not return after context deadline")
	}
}
