package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/lash/pkg/color"
)

// WorkerState tracks a worker's busy/idle split, which also gates
// replenishment back up to the configured pool size.
type WorkerState int

const (
	WorkerIdle WorkerState = iota
	WorkerBusy
	WorkerDead
)

// Worker is one pre-forked process slot. It runs exactly one session
// at a time and is hygiene-reset between sessions rather than
// replaced, so the pool can reuse its OS process.
type Worker struct {
	ID    string
	State WorkerState
	proc  *WorkerProc
}

// Pool is the mutex-guarded free-list of worker processes: no shared
// mutable state between workers beyond the pool data structure
// itself. A ticker-driven monitor loop replenishes idle workers back
// up to a fixed target size rather than scaling across a range.
type Pool struct {
	cfg *Config

	mu      sync.Mutex
	workers map[string]*Worker

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates an empty pool; call Start to pre-fork K workers.
func NewPool(cfg *Config) *Pool {
	return &Pool{cfg: cfg, workers: make(map[string]*Worker)}
}

// Start pre-forks the configured number of idle workers and begins
// the replenish ticker.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.ctx != nil {
		p.mu.Unlock()
		return fmt.Errorf("pool already running")
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	for i := 0; i < p.cfg.PoolSize; i++ {
		if _, err := p.spawn(); err != nil {
			color.ColoredPrintf("Pool", "failed to pre-fork worker: %v\n", err)
		}
	}

	go p.monitorLoop()
	return nil
}

func (p *Pool) monitorLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.replenish()
		}
	}
}

// replenish tops the idle count back up to PoolSize; the daemon always
// wants that many idle workers ready, with no busy/idle threshold to
// cross first.
func (p *Pool) replenish() {
	p.mu.Lock()
	idle := 0
	for _, w := range p.workers {
		if w.State == WorkerIdle {
			idle++
		}
	}
	need := p.cfg.PoolSize - idle
	p.mu.Unlock()

	for i := 0; i < need; i++ {
		if _, err := p.spawn(); err != nil {
			color.ColoredPrintf("Pool", "replenish failed: %v\n", err)
			return
		}
	}
}

func (p *Pool) spawn() (*Worker, error) {
	id := ulid.Make().String()
	proc, err := StartWorkerProc(p.cfg)
	if err != nil {
		return nil, err
	}
	w := &Worker{ID: id, State: WorkerIdle, proc: proc}
	p.mu.Lock()
	p.workers[id] = w
	p.mu.Unlock()
	return w, nil
}

// Acquire returns an idle worker, forking one more if the free-list is
// empty and under the configured cap.
func (p *Pool) Acquire() (*Worker, error) {
	p.mu.Lock()
	for _, w := range p.workers {
		if w.State == WorkerIdle {
			w.State = WorkerBusy
			p.mu.Unlock()
			return w, nil
		}
	}
	count := len(p.workers)
	p.mu.Unlock()

	if count >= p.cfg.PoolSize*2 {
		return nil, fmt.Errorf("worker pool exhausted")
	}
	w, err := p.spawn()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	w.State = WorkerBusy
	p.mu.Unlock()
	return w, nil
}

// Release returns a worker to the idle set after its hygiene reset
// (WorkerProc.Reset), or drops it from the table if it died.
func (p *Pool) Release(w *Worker, healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !healthy {
		w.State = WorkerDead
		delete(p.workers, w.ID)
		return
	}
	w.State = WorkerIdle
}

// Shutdown stops the replenish loop and terminates every worker: stop
// accepting, signal workers to finish, bounded grace period, then
// force-kill.
func (p *Pool) Shutdown(grace time.Duration) {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	workers := make([]*Worker, 0, len(p.workers))
	for _, w := range p.workers {
		workers = append(workers, w)
	}
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.proc.Shutdown(grace)
		}(w)
	}
	wg.Wait()
}

// Len reports how many workers are idle and how many are busy, for the
// /debug/pool introspection endpoint.
func (p *Pool) Len() (idle, busy int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.workers {
		if w.State == WorkerIdle {
			idle++
		} else if w.State == WorkerBusy {
			busy++
		}
	}
	return idle, busy
}
