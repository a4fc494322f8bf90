package engine

import "github.com/wnxd/microhook/process"

// Objects resolves host objects and performs the work queued for the
// simulation thread. Every method runs on that thread.
type Objects interface {
	ResolveWorld() process.Pointer
	ResolveController(world process.Pointer) process.Pointer
	ResolveLocalEntity(controller process.Pointer) process.Pointer
	// Exec runs a console command, returning false while no console exists.
	Exec(command string) bool
	// Spawn creates an entity of kind, or returns nil.
	Spawn(kind string) process.Pointer
}

// Globals are the host tables captured during initialization.
type Globals struct {
	Names   process.Pointer
	Objects process.Pointer
}
