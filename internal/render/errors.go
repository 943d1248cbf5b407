package render

import "errors"

// configuration errors, returned before a request reaches a scheduler
var (
	ErrInvalidSize       = errors.New("invalid frame size")
	ErrInvalidViewport   = errors.New("invalid viewport")
	ErrInvalidIterations = errors.New("invalid iteration bound")
	ErrUnknownPalette    = errors.New("unknown palette")
)

// render errors, delivered through a Handle
var (
	ErrFrameTooLarge = errors.New("frame exceeds pixel limit")
	ErrAllocation    = errors.New("frame buffers exceed the memory budget")
	ErrRenderTimeout = errors.New("render exceeded watchdog deadline")
	ErrSuperseded    = errors.New("render superseded by a newer request")
	ErrClosed        = errors.New("scheduler closed")
)
