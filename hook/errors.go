package hook

import "errors"

var (
	ErrDoubleHook       = errors.New("double hook")
	ErrHookNotFound     = errors.New("hook not found")
	ErrRelativeAddr     = errors.New("relative address in instruction")
	ErrPrologueTooShort = errors.New("prologue too short")
	ErrInstInvalid      = errors.New("instruction invalid")
	ErrClosed           = errors.New("redirector closed")
)
