package scan

import "errors"

var (
	ErrNotFound      = errors.New("pattern not found")
	ErrPatternEmpty  = errors.New("pattern has no literal bytes")
	ErrPatternSyntax = errors.New("pattern syntax")
	ErrSpaceInvalid  = errors.New("search space invalid")
)
