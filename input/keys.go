// Package input tracks keyboard state from intercepted window messages and
// forwards key edges to input callbacks.
package input

import (
	"sync/atomic"

	"github.com/wnxd/microhook/event"
)

const KeyCount = 256

type Keys struct {
	down       [KeyCount]atomic.Bool
	blocked    atomic.Bool
	normal     event.Registry[event.InputFunc]
	privileged event.Registry[event.InputFunc]
}

// OnInput registers a callback that only sees keys while input is not
// blocked.
func (k *Keys) OnInput(cb event.InputFunc) {
	k.normal.Register(cb)
}

// OnPrivilegedInput registers a callback that sees every key edge.
func (k *Keys) OnPrivilegedInput(cb event.InputFunc) {
	k.privileged.Register(cb)
}

func (k *Keys) SetBlocked(blocked bool) {
	k.blocked.Store(blocked)
}

func (k *Keys) Blocked() bool {
	return k.blocked.Load()
}

// Down reports a held key. Nothing is held while input is blocked.
func (k *Keys) Down(code int) bool {
	return !k.blocked.Load() && code >= 0 && code < KeyCount && k.down[code].Load()
}

// Handle feeds one window message. Only transitions are forwarded; auto
// repeat of a held key is dropped.
func (k *Keys) Handle(msg uint32, key uint64) {
	var pressed bool
	switch msg {
	case WM_KEYDOWN, WM_SYSKEYDOWN:
		pressed = true
	case WM_KEYUP, WM_SYSKEYUP:
		pressed = false
	default:
		return
	}
	if key >= KeyCount {
		return
	}
	state := &k.down[key]
	if state.Load() == pressed {
		return
	}
	block := k.blocked.Load()
	for _, cb := range k.privileged.Snapshot() {
		cb(msg, key)
	}
	if !block {
		for _, cb := range k.normal.Snapshot() {
			cb(msg, key)
		}
	}
	state.Store(pressed)
}
