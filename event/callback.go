package event

import "github.com/wnxd/microhook/process"

type (
	TickFunc       func(delta float32)
	RenderFunc     func(device process.Pointer)
	ResetFunc      func(device process.Pointer)
	ObjectCallFunc func(call ObjectCall) Result
	LevelFunc      func(name string)
	LifecycleFunc  func()
	ActorFunc      func(actor process.Pointer)
	PoseFunc       func(pose Pose)
	InputFunc      func(msg uint32, key uint64)
)

// ObjectCall is one generic method invocation on a host object.
type ObjectCall struct {
	Object   process.Pointer
	Function process.Pointer
	Args     process.Pointer
	Result   process.Pointer
}

// Pose is the bone buffer of one skeletal update.
type Pose struct {
	Bones process.Pointer
	Count int32
}

// Dispatch runs every object-call callback and reports whether any of
// them handled the call.
func Dispatch(r *Registry[ObjectCallFunc], call ObjectCall) Result {
	res := NotHandled
	for _, cb := range r.Snapshot() {
		res = res.Or(cb(call))
	}
	return res
}
