package engine

import (
	"sync"
	"sync/atomic"

	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/input"
	"github.com/wnxd/microhook/layout"
	"github.com/wnxd/microhook/overlay"
	"github.com/wnxd/microhook/process"
)

type windowState struct {
	once   sync.Once
	handle atomic.Uint64
	mu     sync.Mutex
	window overlay.Window
	prev   overlay.WndProc
}

func (w *windowState) get() (overlay.Window, overlay.WndProc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.window, w.prev
}

// release puts the host's window procedure back.
func (w *windowState) release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.window != nil && w.prev != nil {
		w.window.Subclass(w.prev)
	}
	w.window, w.prev = nil, nil
}

func (e *Engine) setupOverlay(device process.Pointer) {
	window, err := e.overlay.Setup(device)
	if err != nil {
		e.logger().Error("overlay setup", "err", err)
		return
	}
	if window == nil {
		return
	}
	e.win.handle.Store(window.Handle())
	prev, err := window.Subclass(e.wndProc)
	if err != nil {
		e.logger().Error("subclass window", "hwnd", window.Handle(), "err", err)
	}
	e.win.mu.Lock()
	e.win.window, e.win.prev = window, prev
	e.win.mu.Unlock()
	e.logger().Info("overlay attached", "hwnd", window.Handle())
}

// endSceneShim(device)
func (e *Engine) endSceneShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		device := process.ToPointer(e.proc, process.Arg(args, 0))
		e.win.once.Do(func() { e.setupOverlay(device) })
		e.overlay.NewFrame()
		for _, cb := range e.render.Snapshot() {
			cb(device)
		}
		e.overlay.EndFrame()
		e.overlay.Render(device)
		return orig.Call(args...)
	}
}

// resetShim(device, params)
func (e *Engine) resetShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		device := process.ToPointer(e.proc, process.Arg(args, 0))
		for _, cb := range e.reset.Snapshot() {
			cb(device)
		}
		e.overlay.Shutdown()
		ret := orig.Call(args...)
		window := e.win.handle.Load()
		if params := process.Arg(args, 1); params != 0 {
			var pp PresentParameters
			if err := layout.Read(e.proc, params, &pp); err == nil && pp.DeviceWindow != 0 {
				window = uint64(pp.DeviceWindow)
				e.win.handle.Store(window)
			}
		}
		if err := e.overlay.Rebuild(device, window); err != nil {
			e.logger().Error("overlay rebuild", "err", err)
		}
		return ret
	}
}

// wndProc observes every message of the subclassed window. While input is
// blocked, messages the overlay consumes never reach the host.
func (e *Engine) wndProc(hwnd uint64, msg uint32, wparam, lparam uint64) uint64 {
	if e.keys.Blocked() && e.overlay.HandleMessage(hwnd, msg, wparam, lparam) {
		e.keys.Handle(msg, wparam)
		return 1
	}
	e.keys.Handle(msg, wparam)
	if _, prev := e.win.get(); prev != nil {
		return prev(hwnd, msg, wparam, lparam)
	}
	return 0
}

// peekMessageShim(msg, hwnd, filterMin, filterMax, remove)
func (e *Engine) peekMessageShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		ret := orig.Call(args...)
		addr := process.Arg(args, 0)
		if addr == 0 || uint32(process.Arg(args, 4))&input.PM_REMOVE == 0 {
			return ret
		}
		var msg Msg
		if err := layout.Read(e.proc, addr, &msg); err != nil {
			return ret
		}
		if !e.keys.Blocked() {
			e.keys.Handle(msg.Message, uint64(msg.WParam))
			return ret
		}
		e.overlay.HandleMessage(uint64(msg.Hwnd), msg.Message, uint64(msg.WParam), uint64(msg.LParam))
		e.keys.Handle(msg.Message, uint64(msg.WParam))
		if window, _ := e.win.get(); window != nil {
			window.Translate(addr)
		}
		if pass := input.Passthrough(msg.Message); pass != msg.Message {
			msg.Message = pass
			layout.Write(e.proc, addr, &msg)
		}
		return ret
	}
}
