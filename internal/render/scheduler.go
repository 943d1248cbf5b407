// Package render computes frames of the Mandelbrot set in chunks on a shared
// worker pool, one render session per request, with cancel-and-restart when
// a newer request arrives.
package render

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultThrottle  = 50 * time.Millisecond
	DefaultMaxPixels = 32 << 20

	// an iteration count and an RGBA quad
	bytesPerPixel = 8
)

type Options struct {
	// ChunkSize is the number of pixels per chunk. <= 0 means DefaultChunkSize.
	ChunkSize int
	// Throttle is the minimum time between two session starts. Requests
	// submitted inside the window are coalesced and only the newest starts.
	Throttle time.Duration
	// MaxPixels rejects larger frames with ErrFrameTooLarge. 0 means
	// DefaultMaxPixels, negative means no limit.
	MaxPixels int
	// Watchdog fails sessions running longer with ErrRenderTimeout. 0 disables it.
	Watchdog time.Duration
	// OnEvent is called from the scheduler goroutine and must not block.
	OnEvent func(Event)
	Logger  logrus.FieldLogger
}

// session is the state of one in-flight render, owned by the run goroutine.
type session struct {
	handle    *Handle
	req       Request
	iters     []uint32
	frame     *image.RGBA
	chunks    []Chunk
	applied   []bool
	completed int
	startedAt time.Time
	reserved  int64
}

// Scheduler runs at most one render session at a time. Each Submit
// supersedes whatever was submitted before it.
type Scheduler struct {
	pool *Pool
	opts Options
	log  logrus.FieldLogger

	// live is the id of the newest request, 0 once it has ended.
	// Chunk results carrying any other id are dropped.
	live   atomic.Uint64
	nextID atomic.Uint64

	mu      sync.Mutex
	pending *Handle
	closed  bool

	wake    chan struct{}
	results chan chunkResult
	stopCh  chan struct{}
	doneCh  chan struct{}

	now func() time.Time
}

func NewScheduler(pool *Pool, opts Options) *Scheduler {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxPixels == 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	s := &Scheduler{
		pool:    pool,
		opts:    opts,
		log:     opts.Logger.WithField("component", "scheduler"),
		wake:    make(chan struct{}, 1),
		results: make(chan chunkResult, pool.Workers()),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		now:     time.Now,
	}
	go s.run()
	return s
}

// Submit hands req to the scheduler and invalidates every earlier request.
// It never blocks on rendering. An invalid request fails its handle at once
// and leaves the current session alone.
func (s *Scheduler) Submit(req Request) *Handle {
	if err := req.Validate(); err != nil {
		h := newHandle(0, req)
		h.finish(nil, nil, err)
		return h
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		h := newHandle(0, req)
		h.finish(nil, nil, ErrClosed)
		return h
	}
	h := newHandle(s.nextID.Add(1), req)
	s.live.Store(h.id)
	prev := s.pending
	s.pending = h
	s.mu.Unlock()

	// never started, nothing to cancel
	if prev != nil {
		prev.finish(nil, nil, ErrSuperseded)
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return h
}

// Close stops the scheduler. Pending and active sessions end with ErrClosed.
// The pool is left running.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.doneCh
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.stopCh)
	<-s.doneCh
}

func (s *Scheduler) isLive(id uint64) bool {
	return id != 0 && s.live.Load() == id
}

func (s *Scheduler) deliver(res chunkResult) {
	select {
	case s.results <- res:
	case <-s.stopCh:
	}
}

func (s *Scheduler) takePending() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.pending
	s.pending = nil
	return h
}

func (s *Scheduler) hasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

func (s *Scheduler) run() {
	defer close(s.doneCh)

	var (
		active    *session
		lastStart time.Time
		throttleC <-chan time.Time
		watchdogC <-chan time.Time
	)
	for {
		select {
		case <-s.stopCh:
			if active != nil {
				s.end(active, ErrClosed)
			}
			if h := s.takePending(); h != nil {
				h.finish(nil, nil, ErrClosed)
			}
			return

		case res := <-s.results:
			if active == nil || res.session != active.handle.id || !s.isLive(res.session) {
				s.log.WithFields(logrus.Fields{
					"session": res.session,
					"chunk":   res.chunk.Index,
				}).Debug("dropping stale chunk")
				continue
			}
			if s.apply(active, res) {
				active, watchdogC = nil, nil
			}
			continue

		case <-watchdogC:
			watchdogC = nil
			if active != nil {
				s.fail(active.handle, fmt.Errorf("%w: %s", ErrRenderTimeout, s.opts.Watchdog))
				s.end(active, nil)
				active = nil
			}
			continue

		case <-throttleC:
			throttleC = nil
		case <-s.wake:
		}

		if active != nil && !s.isLive(active.handle.id) {
			s.end(active, ErrSuperseded)
			active, watchdogC = nil, nil
		}
		if !s.hasPending() {
			continue
		}
		if !lastStart.IsZero() {
			if wait := s.opts.Throttle - s.now().Sub(lastStart); wait > 0 {
				if throttleC == nil {
					throttleC = time.After(wait)
				}
				continue
			}
		}

		h := s.takePending()
		if h == nil {
			continue
		}
		lastStart = s.now()
		active = s.start(h)
		if active != nil && s.opts.Watchdog > 0 {
			watchdogC = time.After(s.opts.Watchdog)
		}
	}
}

func (s *Scheduler) start(h *Handle) *session {
	req := h.req
	log := s.log.WithFields(logrus.Fields{
		"session":    h.id,
		"width":      req.Width,
		"height":     req.Height,
		"iterations": req.MaxIterations,
		"palette":    req.Palette.String(),
	})

	if s.opts.MaxPixels > 0 && req.Pixels() > s.opts.MaxPixels {
		s.fail(h, fmt.Errorf("%w: %dx%d > %d pixels", ErrFrameTooLarge, req.Width, req.Height, s.opts.MaxPixels))
		return nil
	}
	size := int64(req.Pixels()) * bytesPerPixel
	if !s.pool.reserve(size) {
		s.fail(h, fmt.Errorf("%w: %d bytes wanted, %d of %d held by other renders",
			ErrAllocation, size, s.pool.Reserved(), s.pool.budget.Load()))
		return nil
	}
	iters, frame := allocate(req)

	sess := &session{
		handle:    h,
		req:       req,
		iters:     iters,
		frame:     frame,
		chunks:    Partition(req.Pixels(), s.opts.ChunkSize),
		startedAt: s.now(),
		reserved:  size,
	}
	sess.applied = make([]bool, len(sess.chunks))
	h.started.Store(true)
	s.emit(Event{Kind: EventStarted, Session: h.id, Request: req, TotalChunks: len(sess.chunks)})

	if n := s.pool.discard(s, h.id); n > 0 {
		log.WithField("dropped", n).Debug("dropped queued chunks of earlier sessions")
	}
	for _, ch := range sess.chunks {
		if !s.pool.dispatch(job{owner: s, session: h.id, req: req, chunk: ch}) {
			s.fail(h, fmt.Errorf("%w: worker pool stopped", ErrClosed))
			s.end(sess, nil)
			return nil
		}
	}
	log.WithField("chunks", len(sess.chunks)).Debug("render started")
	return sess
}

// apply colors one chunk into the session's frame and reports whether the
// session is complete.
func (s *Scheduler) apply(sess *session, res chunkResult) bool {
	ch := res.chunk
	if ch.Index < 0 || ch.Index >= len(sess.chunks) || sess.chunks[ch.Index] != ch || len(res.iters) != ch.Len() {
		s.log.WithFields(logrus.Fields{"session": res.session, "chunk": ch.Index}).Warn("dropping malformed chunk")
		return false
	}
	if sess.applied[ch.Index] {
		return false
	}
	sess.applied[ch.Index] = true

	req := sess.req
	copy(sess.iters[ch.Start:ch.End], res.iters)
	pix := sess.frame.Pix[4*ch.Start : 4*ch.End]
	req.Palette.Fill(pix, res.iters, req.MaxIterations)

	sess.completed += 1
	total := len(sess.chunks)
	percent := sess.completed * 100 / total
	sess.handle.progress.Store(int32(percent))

	if s.opts.OnEvent != nil {
		s.opts.OnEvent(Event{
			Kind:        EventProgress,
			Session:     sess.handle.id,
			Request:     req,
			Percent:     percent,
			Completed:   sess.completed,
			TotalChunks: total,
			Chunk:       ch,
			Pix:         append([]uint8(nil), pix...),
		})
	}
	if sess.completed < total {
		return false
	}

	s.live.CompareAndSwap(sess.handle.id, 0)
	s.release(sess)
	s.emit(Event{
		Kind:        EventCompleted,
		Session:     sess.handle.id,
		Request:     req,
		Percent:     100,
		Completed:   total,
		TotalChunks: total,
		Frame:       sess.frame,
	})
	sess.handle.finish(sess.frame, sess.iters, nil)
	s.log.WithFields(logrus.Fields{
		"session":  sess.handle.id,
		"chunks":   total,
		"duration": s.now().Sub(sess.startedAt).String(),
	}).Debug("render completed")
	return true
}

// end retires sess. A non-nil err is handed to its handle.
func (s *Scheduler) end(sess *session, err error) {
	s.live.CompareAndSwap(sess.handle.id, 0)
	s.release(sess)
	if err != nil {
		sess.handle.finish(nil, nil, err)
	}
	s.pool.discard(s, s.live.Load())
	s.log.WithFields(logrus.Fields{
		"session":   sess.handle.id,
		"completed": sess.completed,
		"chunks":    len(sess.chunks),
	}).Debug("render session ended")
}

// fail ends a handle taken by the run goroutine. Events go out before the
// handle is released so that waiters observe them.
func (s *Scheduler) fail(h *Handle, err error) {
	s.live.CompareAndSwap(h.id, 0)
	select {
	case <-h.done:
		return
	default:
	}
	s.log.WithField("session", h.id).WithError(err).Warn("render failed")
	s.emit(Event{Kind: EventFailed, Session: h.id, Request: h.req, Err: err})
	h.finish(nil, nil, err)
}

func (s *Scheduler) emit(e Event) {
	if s.opts.OnEvent != nil {
		s.opts.OnEvent(e)
	}
}

// release returns the session's buffer reservation to the pool.
func (s *Scheduler) release(sess *session) {
	if sess.reserved > 0 {
		s.pool.release(sess.reserved)
		sess.reserved = 0
	}
}

func allocate(req Request) ([]uint32, *image.RGBA) {
	return make([]uint32, req.Pixels()), image.NewRGBA(image.Rect(0, 0, req.Width, req.Height))
}
