package render

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joshvictor1024/mandelbrot-explorer/pkg/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type job struct {
	owner   *Scheduler
	session uint64
	req     Request
	chunk   Chunk
}

type chunkResult struct {
	session uint64
	chunk   Chunk
	iters   []uint32
}

// Pool is a fixed set of workers computing chunks for any number of
// schedulers. Chunks only read their request and write their own result
// slice, so they run in any order on any worker.
type Pool struct {
	workers int
	queue   *types.ControlledQueue[job]
	group   *errgroup.Group
	log     logrus.FieldLogger

	computed atomic.Uint64
	skipped  atomic.Uint64

	// frame buffer bytes held by running sessions, against budget (0 = none)
	budget   atomic.Int64
	reserved atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

// NewPool starts workers goroutines. workers <= 0 means GOMAXPROCS.
func NewPool(workers int, log logrus.FieldLogger) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	g := new(errgroup.Group)
	p := &Pool{
		workers: workers,
		queue:   types.NewControlledQueue[job](),
		group:   g,
		log:     log.WithField("component", "pool"),
	}
	for i := 0; i < workers; i += 1 {
		g.Go(p.work)
	}
	p.log.WithField("workers", workers).Debug("worker pool started")
	return p
}

func (p *Pool) Workers() int {
	return p.workers
}

// Close discards queued chunks and waits for in-flight ones to finish.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.queue.Close()
		p.closeErr = p.group.Wait()
		p.log.WithFields(logrus.Fields{
			"computed": p.computed.Load(),
			"skipped":  p.skipped.Load(),
		}).Debug("worker pool stopped")
	})
	return p.closeErr
}

// SetMemoryBudget caps the frame buffer bytes that sessions of all
// schedulers on p may hold at once. 0 removes the cap.
func (p *Pool) SetMemoryBudget(bytes int64) {
	p.budget.Store(max(bytes, 0))
}

// Reserved reports the frame buffer bytes currently held.
func (p *Pool) Reserved() int64 {
	return p.reserved.Load()
}

func (p *Pool) reserve(n int64) bool {
	for {
		held := p.reserved.Load()
		if b := p.budget.Load(); b > 0 && held+n > b {
			return false
		}
		if p.reserved.CompareAndSwap(held, held+n) {
			return true
		}
	}
}

func (p *Pool) release(n int64) {
	p.reserved.Add(-n)
}

// return false if the pool is closed
func (p *Pool) dispatch(j job) bool {
	return p.queue.Send(j)
}

// discard drops queued chunks of owner that do not belong to session keep.
func (p *Pool) discard(owner *Scheduler, keep uint64) int {
	return p.queue.Filter(func(j job) bool {
		return j.owner != owner || j.session == keep
	})
}

func (p *Pool) work() error {
	for {
		j, ok := p.queue.Recv()
		if !ok {
			return nil
		}
		// superseded while queued or while computing
		live := func() bool { return j.owner.isLive(j.session) }
		iters, ok := iterateChunk(j.req, j.chunk, live)
		if !ok {
			p.skipped.Add(1)
			continue
		}
		p.computed.Add(1)
		j.owner.deliver(chunkResult{session: j.session, chunk: j.chunk, iters: iters})
	}
}
