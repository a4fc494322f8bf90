// Package overlay is the contract between the render shims and the drawing
// layer composited over the host's frames.
package overlay

import "github.com/wnxd/microhook/process"

// WndProc is a window procedure.
type WndProc func(hwnd uint64, msg uint32, wparam, lparam uint64) uint64

type Window interface {
	Handle() uint64
	// Subclass makes proc the window procedure and returns the one it
	// replaced.
	Subclass(proc WndProc) (WndProc, error)
	// Translate generates character messages for the host message at
	// msgAddr.
	Translate(msgAddr uint64)
}

type Overlay interface {
	// Setup runs on the first rendered frame and returns the window the
	// device presents to.
	Setup(device process.Pointer) (Window, error)
	NewFrame()
	EndFrame()
	Render(device process.Pointer)
	// Shutdown releases device resources before a device reset.
	Shutdown()
	// Rebuild recreates device resources after a reset.
	Rebuild(device process.Pointer, window uint64) error
	// HandleMessage offers a message to the overlay and reports whether
	// it was consumed.
	HandleMessage(window uint64, msg uint32, wparam, lparam uint64) bool
}

// Nop draws nothing and consumes nothing.
type Nop struct{}

var _ Overlay = Nop{}

func (Nop) Setup(device process.Pointer) (Window, error) {
	return nopWindow(0), nil
}

func (Nop) NewFrame() {}

func (Nop) EndFrame() {}

func (Nop) Render(device process.Pointer) {}

func (Nop) Shutdown() {}

func (Nop) Rebuild(device process.Pointer, window uint64) error {
	return nil
}

func (Nop) HandleMessage(window uint64, msg uint32, wparam, lparam uint64) bool {
	return false
}

type nopWindow uint64

func (w nopWindow) Handle() uint64 {
	return uint64(w)
}

func (w nopWindow) Subclass(proc WndProc) (WndProc, error) {
	return nil, nil
}

func (w nopWindow) Translate(uint64) {}
