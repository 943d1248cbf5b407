package render

import "image"

type EventKind int

const (
	// EventStarted: buffers are allocated and chunks dispatched.
	EventStarted EventKind = iota
	// EventProgress: one chunk has been colored into the session's frame.
	EventProgress
	// EventCompleted: Frame is final and owned by the receiver.
	EventCompleted
	// EventFailed: the session ended with Err; the previous frame stays valid.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

type Event struct {
	Kind    EventKind
	Session uint64
	Request Request

	Percent     int
	Completed   int
	TotalChunks int

	// progress only: the chunk and a copy of its RGBA bytes
	Chunk Chunk
	Pix   []uint8

	Frame *image.RGBA
	Err   error
}
