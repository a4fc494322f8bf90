package engine

import (
	"context"
	"fmt"
	"time"
)

const opJmpRel32 = 0xE9

var lifecycleSteps = []string{StepLevelLoad, StepPreDeath, StepPostDeath}

// deferLifecycle runs when the watched library is about to load. That
// library hooks the level and lifecycle functions itself, so ours come off
// now and go back on top of its hooks once they appear.
func (e *Engine) deferLifecycle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.watching || e.closed || !e.initialized {
		return
	}
	for _, name := range lifecycleSteps {
		if rec, ok := e.records[name]; ok {
			if err := rec.Close(); err != nil {
				e.logger().Error("unhook", "step", name, "err", err)
			}
			delete(e.records, name)
		}
	}
	e.watching = true
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	e.wg.Add(1)
	go e.watch(ctx, e.targets[StepPostDeath])
	e.logger().Info("watching delayed library", "module", e.cfg.WatchModule)
}

func (e *Engine) watch(ctx context.Context, probe uint64) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.WatchInterval)
	defer ticker.Stop()
	var b [1]byte
	for {
		if err := e.proc.MemReadInto(b[:], probe); err == nil && b[0] == opJmpRel32 {
			if err := e.reattachLifecycle(); err != nil {
				e.logger().Error("reattach lifecycle hooks", "err", err)
			} else {
				e.logger().Info("lifecycle hooks reattached")
			}
			return
		}
		select {
		case <-ctx.Done():
			e.logger().Info("watcher cancelled", "err", ctx.Err())
			return
		case <-e.done:
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) reattachLifecycle() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	shims := map[string]shim{
		StepLevelLoad: e.levelLoadShim,
		StepPreDeath:  e.preDeathShim,
		StepPostDeath: e.postDeathShim,
	}
	for _, name := range lifecycleSteps {
		if err := e.attach(name, e.targets[name], shims[name]); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
