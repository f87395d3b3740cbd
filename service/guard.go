// Package service layers host-facing automation over the vault core:
// scheduled exports, bundle-directory watching, run logs, and the
// guard hosts use to serialize operations. The core itself does not
// synchronize concurrent callers.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ─────────────────────────────────────────────────────────────
// Guard — one running operation per key, bounded run time
// ─────────────────────────────────────────────────────────────

// ErrBusy reports that an operation for the same key is still in
// flight. Callers skip the run instead of queueing.
var ErrBusy = errors.New("operation already running")

// runTimeout caps a single guarded export or import run.
const runTimeout = 5 * time.Minute

// Guard runs vault operations keyed by target ("export:<dir>",
// "import:<dir>"): at most one run per key, each under the operation
// deadline, all tracked for graceful shutdown. The zero value is
// ready to use.
type Guard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// Do runs fn under key's slot with the run deadline applied to its
// context. A Do for a key whose operation is still running fails fast
// with ErrBusy.
func (g *Guard) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	if !g.acquire(key) {
		return fmt.Errorf("%s: %w", key, ErrBusy)
	}
	defer g.release(key)

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	return fn(runCtx)
}

func (g *Guard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return false
	}
	g.running[key] = struct{}{}
	g.wg.Add(1)
	return true
}

func (g *Guard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
	g.wg.Done()
}

// WaitAll blocks until all running operations complete or ctx is
// cancelled. Used for graceful shutdown.
func (g *Guard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
