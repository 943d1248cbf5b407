package render

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
)

// Handle tracks one submitted request from submission until it completes,
// fails, or is superseded.
type Handle struct {
	id  uint64
	req Request

	progress atomic.Int32
	started  atomic.Bool

	once  sync.Once
	done  chan struct{}
	frame *image.RGBA
	iters []uint32
	err   error
}

func newHandle(id uint64, req Request) *Handle {
	return &Handle{id: id, req: req, done: make(chan struct{})}
}

// ID is the session identifier. Later submissions have larger ids.
func (h *Handle) ID() uint64 {
	return h.id
}

func (h *Handle) Request() Request {
	return h.req
}

// Progress is the completed share of chunks in percent, 0 to 100.
func (h *Handle) Progress() int {
	return int(h.progress.Load())
}

// Started reports whether the request got past throttling and allocated its buffers.
func (h *Handle) Started() bool {
	return h.started.Load()
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the finished frame, or the reason there is none.
// It must only be called after Done is closed.
func (h *Handle) Result() (*image.RGBA, error) {
	return h.frame, h.err
}

// Iterations returns the finished iteration buffer, indexed y*width+x.
func (h *Handle) Iterations() []uint32 {
	select {
	case <-h.done:
		return h.iters
	default:
		return nil
	}
}

func (h *Handle) Wait(ctx context.Context) (*image.RGBA, error) {
	select {
	case <-h.done:
		return h.frame, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) finish(frame *image.RGBA, iters []uint32, err error) bool {
	finished := false
	h.once.Do(func() {
		h.frame, h.iters, h.err = frame, iters, err
		if err == nil {
			h.progress.Store(100)
		}
		close(h.done)
		finished = true
	})
	return finished
}
