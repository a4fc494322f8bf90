package engine

import (
	"context"
	"fmt"

	"github.com/wnxd/microhook/process"
	"github.com/wnxd/microhook/scan"
)

const (
	StepNames          = "names"
	StepObjects        = "objects"
	StepLoadLibrary    = "load-library"
	StepRenderDevice   = "render-device"
	StepEndScene       = "end-scene"
	StepReset          = "reset"
	StepPeekMessage    = "peek-message"
	StepProcessEvent   = "process-event"
	StepLevelLoad      = "level-load"
	StepPreDeathAnchor = "pre-death-anchor"
	StepPreDeath       = "pre-death"
	StepPostDeath      = "post-death"
	StepActorTick      = "actor-tick"
	StepBonesTick      = "bones-tick"
	StepProjection     = "projection-tick"
	StepTick           = "tick"
)

type step struct {
	name string
	run  func() error
}

type initState struct {
	vtable uint64
	anchor uint64
}

func (e *Engine) find(p scan.Pattern, space scan.Space) (uint64, error) {
	return scan.Find(e.proc, e.proc, p, space)
}

func (e *Engine) deref(p scan.Pattern, space scan.Space) (process.Pointer, error) {
	addr, err := e.find(p, space)
	if err != nil {
		return process.Pointer{}, err
	}
	v, err := scan.Deref(e.proc, addr+2)
	if err != nil {
		return process.Pointer{}, err
	}
	return process.ToPointer(e.proc, v), nil
}

func (e *Engine) export(module, name string) (uint64, error) {
	m, err := e.proc.FindModule(module)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", module, err)
	}
	addr, err := m.FindExport(name)
	if err != nil {
		return 0, fmt.Errorf("%s!%s: %w", module, name, err)
	}
	return addr, nil
}

// attach hooks target with fn and records it under the step name.
func (e *Engine) attach(name string, target uint64, fn shim) error {
	rec, err := e.hooks.Attach(target, fn)
	if err != nil {
		return err
	}
	e.targets[name] = target
	e.records[name] = rec
	e.logger().Debug("hooked", "step", name, "target", fmt.Sprintf("%#x", target))
	return nil
}

func (e *Engine) hookAt(name string, p scan.Pattern, space scan.Space, fn shim) func() error {
	return func() error {
		addr, err := e.find(p, space)
		if err != nil {
			return err
		}
		return e.attach(name, addr, fn)
	}
}

func (e *Engine) steps() []step {
	var st initState
	sigs := &e.sigs
	main := scan.Default()
	window := e.cfg.ScanWindow
	return []step{
		{StepNames, func() (err error) {
			e.globals.Names, err = e.deref(sigs.Names, main)
			return
		}},
		{StepObjects, func() (err error) {
			e.globals.Objects, err = e.deref(sigs.Objects, main)
			return
		}},
		{StepLoadLibrary, func() error {
			addr, err := e.export(sigs.LoaderModule, sigs.LoaderExport)
			if err != nil {
				return err
			}
			return e.attach(StepLoadLibrary, addr, e.loadLibraryShim)
		}},
		{StepRenderDevice, func() error {
			vtable, err := e.deref(sigs.Device, scan.InModule(sigs.DeviceModule))
			if err != nil {
				return err
			}
			st.vtable = vtable.Address()
			return nil
		}},
		{StepEndScene, func() error {
			return e.attachSlot(StepEndScene, st.vtable, sigs.EndSceneIndex, e.endSceneShim)
		}},
		{StepReset, func() error {
			return e.attachSlot(StepReset, st.vtable, sigs.ResetIndex, e.resetShim)
		}},
		{StepPeekMessage, func() error {
			addr, err := e.export(sigs.MessageModule, sigs.MessageExport)
			if err != nil {
				return err
			}
			return e.attach(StepPeekMessage, addr, e.peekMessageShim)
		}},
		{StepProcessEvent, e.hookAt(StepProcessEvent, sigs.ProcessEvent, main, e.processEventShim)},
		{StepLevelLoad, e.hookAt(StepLevelLoad, sigs.LevelLoad, main, e.levelLoadShim)},
		{StepPreDeathAnchor, func() (err error) {
			st.anchor, err = e.find(sigs.PreDeathAnchor, main)
			return
		}},
		{StepPreDeath, func() error {
			addr, err := e.find(sigs.PreDeath, scan.Window(st.anchor, window))
			if err != nil {
				return err
			}
			return e.attach(StepPreDeath, addr, e.preDeathShim)
		}},
		{StepPostDeath, func() error {
			addr, err := e.find(sigs.PostDeath, scan.Window(e.targets[StepPreDeath], window))
			if err != nil {
				return err
			}
			return e.attach(StepPostDeath, addr, e.postDeathShim)
		}},
		{StepActorTick, e.hookAt(StepActorTick, sigs.ActorTick, main, e.actorTickShim)},
		{StepBonesTick, func() error {
			site, err := e.find(sigs.BonesTick, main)
			if err != nil {
				return err
			}
			addr, err := scan.CallTarget(e.proc, site, 5)
			if err != nil {
				return err
			}
			return e.attach(StepBonesTick, addr, e.bonesTickShim)
		}},
		{StepProjection, e.hookAt(StepProjection, sigs.Projection, main, e.projectionShim)},
		{StepTick, e.hookAt(StepTick, sigs.Tick, main, e.tickShim)},
	}
}

func (e *Engine) attachSlot(name string, vtable uint64, index int, fn shim) error {
	addr, err := process.ToPointer(e.proc, vtable).Index(index).ReadPointer()
	if err != nil {
		return err
	}
	if addr.IsNil() {
		return fmt.Errorf("vtable slot %d: %w", index, process.ErrAddressInvalid)
	}
	return e.attach(name, addr.Address(), fn)
}

// Initialize resolves and hooks everything in a fixed order. The first
// failing step undoes every hook installed before it.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	} else if e.initialized {
		return ErrInitialized
	}
	e.ctx = ctx
	for _, s := range e.steps() {
		e.logger().Debug("initialize", "step", s.name)
		if err := s.run(); err != nil {
			serr := &StepError{Step: s.name, Err: err}
			e.logger().Error("initialize failed", "step", s.name, "err", err)
			e.rollback()
			e.report(s.name, serr)
			return serr
		}
	}
	e.initialized = true
	e.logger().Info("initialized", "hooks", len(e.records))
	return nil
}

func (e *Engine) rollback() {
	recs := e.hooks.Records()
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		if err := rec.Close(); err != nil {
			e.logger().Error("rollback", "hook", rec.String(), "err", err)
		}
	}
	clear(e.records)
	clear(e.targets)
	e.globals = Globals{}
}
