package engine

import (
	"strings"

	"github.com/wnxd/microhook/event"
	"github.com/wnxd/microhook/hook"
	"github.com/wnxd/microhook/process"
)

type shim func(orig hook.Original) process.Func

// tickShim(scales, arg, delta)
func (e *Engine) tickShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		if !e.World(true).IsNil() {
			e.pump()
		}
		delta := process.FromF32(process.Arg(args, 2))
		for _, cb := range e.tick.Snapshot() {
			cb(delta)
		}
		return orig.Call(args...)
	}
}

// pump runs the queued work. Only the tick shim calls it.
func (e *Engine) pump() {
	if e.commands.Len() != 0 {
		e.commands.Drain(e.objects.Exec)
	}
	if e.spawns.Len() != 0 {
		e.spawns.Drain(func(kind string) uint64 {
			return e.objects.Spawn(kind).Address()
		})
	}
}

// processEventShim(object, function, args, result)
func (e *Engine) processEventShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		if e.objectCalled(args) == event.Handled {
			return 0
		}
		return orig.Call(args...)
	}
}

func (e *Engine) objectCalled(args []uint64) event.Result {
	return event.Dispatch(&e.objectCall, event.ObjectCall{
		Object:   process.ToPointer(e.proc, process.Arg(args, 0)),
		Function: process.ToPointer(e.proc, process.Arg(args, 1)),
		Args:     process.ToPointer(e.proc, process.Arg(args, 2)),
		Result:   process.ToPointer(e.proc, process.Arg(args, 3)),
	})
}

// levelLoadShim(this, levelInfo, arg)
func (e *Engine) levelLoadShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		name := e.levelName(process.Arg(args, 1))
		for _, cb := range e.preLevel.Snapshot() {
			cb(name)
		}
		e.spawns.Clear()
		ret := e.whileLoading(orig, args)
		for _, cb := range e.postLevel.Snapshot() {
			cb(name)
		}
		return ret
	}
}

func (e *Engine) whileLoading(orig hook.Original, args []uint64) uint64 {
	e.loading.Store(true)
	defer e.loading.Store(false)
	return orig.Call(args...)
}

func (e *Engine) levelName(info uint64) string {
	if info == 0 {
		return ""
	}
	ptr, err := process.ToPointer(e.proc, info).Index(levelInfoName).ReadPointer()
	if err != nil || ptr.IsNil() {
		return ""
	}
	name, err := ptr.ReadUTF16String()
	if err != nil {
		return ""
	}
	return name
}

func (e *Engine) preDeathShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		for _, cb := range e.preLifecycle.Snapshot() {
			cb()
		}
		return orig.Call(args...)
	}
}

func (e *Engine) postDeathShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		ret := orig.Call(args...)
		for _, cb := range e.postLifecycle.Snapshot() {
			cb()
		}
		return ret
	}
}

// actorTickShim(actor, arg)
func (e *Engine) actorTickShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		e.actorUpdated(process.Arg(args, 0))
		return orig.Call(args...)
	}
}

func (e *Engine) actorUpdated(actor uint64) {
	if actor == 0 {
		return
	}
	ptr := process.ToPointer(e.proc, actor)
	for _, cb := range e.actor.Snapshot() {
		cb(ptr)
	}
}

// bonesTickShim(this, arg) returns the updated bone array.
func (e *Engine) bonesTickShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		ret := orig.Call(args...)
		if ret == 0 {
			return ret
		}
		cbs := e.pose.Snapshot()
		if len(cbs) == 0 {
			return ret
		}
		arr := process.ToPointer(e.proc, ret)
		count, err := arr.Index(1).ReadInt32()
		if err != nil || count <= 0 {
			return ret
		}
		bones, err := arr.ReadPointer()
		if err != nil {
			return ret
		}
		notifyPose(cbs, event.Pose{Bones: bones, Count: count})
		return ret
	}
}

func notifyPose(cbs []event.PoseFunc, pose event.Pose) {
	for _, cb := range cbs {
		cb(pose)
	}
}

// projectionShim(matrix, arg)
func (e *Engine) projectionShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		e.projection.Store(process.Arg(args, 0))
		return orig.Call(args...)
	}
}

// loadLibraryShim(name)
func (e *Engine) loadLibraryShim(orig hook.Original) process.Func {
	return func(args ...uint64) uint64 {
		if name, err := process.ToPointer(e.proc, process.Arg(args, 0)).ReadCString(); err == nil {
			if strings.Contains(strings.ToLower(name), strings.ToLower(e.cfg.WatchModule)) {
				e.deferLifecycle()
			}
		}
		return orig.Call(args...)
	}
}
