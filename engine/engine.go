// Package engine attaches to a running host: it finds the host functions
// by signature, redirects them to shims that notify registered callbacks,
// and pumps queued work on the host's simulation thread.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/wnxd/microhook/config"
	"github.com/wnxd/microhook/event"
	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/input"
	"github.com/wnxd/microhook/internal/logger"
	"github.com/wnxd/microhook/overlay"
	"github.com/wnxd/microhook/process"
	"github.com/wnxd/microhook/queue"
)

// Reporter receives the failure of an initialization step.
type Reporter func(step string, err error)

// WriterReporter prints each failed step to w. New reports to stderr
// unless WithReporter replaces it.
func WriterReporter(w io.Writer) Reporter {
	return func(step string, err error) {
		fmt.Fprintf(w, "microhook: %s failed: %v\n", step, err)
	}
}

type Option func(*Engine)

func WithOverlay(o overlay.Overlay) Option {
	return func(e *Engine) {
		e.overlay = o
	}
}

func WithSignatures(sigs Signatures) Option {
	return func(e *Engine) {
		e.sigs = sigs
	}
}

func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger fixes the engine's logger. Without it the engine logs to
// whatever the global logger is at the time of each call.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		e.report = r
	}
}

type Engine struct {
	proc    process.Process
	objects Objects
	overlay overlay.Overlay
	sigs    Signatures
	cfg     config.Config
	log     *slog.Logger
	report  Reporter
	hooks   *hook.Redirector

	tick          event.Registry[event.TickFunc]
	render        event.Registry[event.RenderFunc]
	reset         event.Registry[event.ResetFunc]
	objectCall    event.Registry[event.ObjectCallFunc]
	preLevel      event.Registry[event.LevelFunc]
	postLevel     event.Registry[event.LevelFunc]
	preLifecycle  event.Registry[event.LifecycleFunc]
	postLifecycle event.Registry[event.LifecycleFunc]
	actor         event.Registry[event.ActorFunc]
	pose          event.Registry[event.PoseFunc]
	keys          input.Keys

	commands queue.Commands
	spawns   queue.Spawns

	loading    atomic.Bool
	world      Cache
	controller Cache
	local      Cache
	projection atomic.Uint64

	globals Globals
	win     windowState

	mu          sync.Mutex
	ctx         context.Context
	initialized bool
	closed      bool
	targets     map[string]uint64
	records     map[string]*hook.Record
	watching    bool
	done        chan struct{}
	wg          sync.WaitGroup
}

func New(proc process.Process, objects Objects, opts ...Option) *Engine {
	e := &Engine{
		proc:    proc,
		objects: objects,
		overlay: overlay.Nop{},
		sigs:    DefaultSignatures(),
		cfg:     config.Default(),
		report:  WriterReporter(os.Stderr),
		hooks:   hook.New(proc),
		targets: make(map[string]uint64),
		records: make(map[string]*hook.Record),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) logger() *slog.Logger {
	if e.log != nil {
		return e.log
	}
	return logger.L
}

func (e *Engine) OnTick(cb event.TickFunc) { e.tick.Register(cb) }

func (e *Engine) OnRender(cb event.RenderFunc) { e.render.Register(cb) }

func (e *Engine) OnReset(cb event.ResetFunc) { e.reset.Register(cb) }

// OnObjectCall registers an observer of generic object method calls. A
// Handled result from any observer suppresses the host's own handling.
func (e *Engine) OnObjectCall(cb event.ObjectCallFunc) { e.objectCall.Register(cb) }

func (e *Engine) OnPreLevelLoad(cb event.LevelFunc) { e.preLevel.Register(cb) }

func (e *Engine) OnPostLevelLoad(cb event.LevelFunc) { e.postLevel.Register(cb) }

func (e *Engine) OnPreLifecycleEnd(cb event.LifecycleFunc) { e.preLifecycle.Register(cb) }

func (e *Engine) OnPostLifecycleEnd(cb event.LifecycleFunc) { e.postLifecycle.Register(cb) }

// OnActorUpdate and OnPoseUpdate callbacks run for every entity update and
// must not block.
func (e *Engine) OnActorUpdate(cb event.ActorFunc) { e.actor.Register(cb) }

func (e *Engine) OnPoseUpdate(cb event.PoseFunc) { e.pose.Register(cb) }

func (e *Engine) OnInput(cb event.InputFunc) { e.keys.OnInput(cb) }

func (e *Engine) OnPrivilegedInput(cb event.InputFunc) { e.keys.OnPrivilegedInput(cb) }

// SubmitCommand queues a console command for the next simulation tick.
func (e *Engine) SubmitCommand(text string) {
	e.commands.Submit(text)
}

// SubmitSpawn queues an entity creation. The slot stays empty until a
// later tick has created it.
func (e *Engine) SubmitSpawn(kind string) *queue.Slot {
	return e.spawns.Submit(kind)
}

func (e *Engine) Loading() bool {
	return e.loading.Load()
}

// World returns the cached world, or nil while a level is loading.
func (e *Engine) World(force bool) process.Pointer {
	if e.loading.Load() {
		return process.Pointer{}
	}
	return e.world.Get(force, e.objects.ResolveWorld)
}

func (e *Engine) Controller(force bool) process.Pointer {
	if e.loading.Load() {
		return process.Pointer{}
	}
	return e.controller.Get(force, func() process.Pointer {
		world := e.World(force)
		if world.IsNil() {
			return process.Pointer{}
		}
		return e.objects.ResolveController(world)
	})
}

func (e *Engine) LocalEntity(force bool) process.Pointer {
	if e.loading.Load() {
		return process.Pointer{}
	}
	return e.local.Get(force, func() process.Pointer {
		controller := e.Controller(force)
		if controller.IsNil() {
			return process.Pointer{}
		}
		return e.objects.ResolveLocalEntity(controller)
	})
}

func (e *Engine) IsKeyDown(code int) bool {
	return e.keys.Down(code)
}

// SetInputBlocked hands keyboard and mouse input to the overlay alone.
func (e *Engine) SetInputBlocked(blocked bool) {
	e.keys.SetBlocked(blocked)
}

// Window returns the handle of the window the device presents to.
func (e *Engine) Window() uint64 {
	return e.win.handle.Load()
}

// Projection returns the last projection matrix the host computed.
func (e *Engine) Projection() process.Pointer {
	return process.ToPointer(e.proc, e.projection.Load())
}

func (e *Engine) Globals() Globals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.globals
}

// Hooks lists the installed redirections.
func (e *Engine) Hooks() []*hook.Record {
	return e.hooks.Records()
}

// Close stops the watcher and removes every hook.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.done)
	e.mu.Unlock()
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.records)
	e.win.release()
	return e.hooks.Close()
}
