// Package job implements background job bookkeeping and a cooperative
// signal-polling loop: a ticker goroutine inspects a mutex-guarded job
// table on a fixed tick, reaping finished jobs and draining pending
// signals for the executor to pick up at its next safe point.
package job

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kazz187/lash/internal/state"
)

// Controller owns signal delivery and periodic job-table reaping for
// one Runtime: a ticker goroutine plus a mutex-guarded shared
// structure, started/stopped explicitly.
type Controller struct {
	rt *state.Runtime

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}

	sigCh chan os.Signal
}

// New creates a Controller bound to rt. Go's runtime already resets a
// child's signal mask on exec, so Start only needs to arrange for the
// parent's own handling.
func New(rt *state.Runtime) *Controller {
	return &Controller{rt: rt, stop: make(chan struct{}), done: make(chan struct{})}
}

// Start begins polling SIGINT/SIGCHLD and runs the job-table reaper
// every tick.
func (c *Controller) Start(tick time.Duration) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.sigCh = make(chan os.Signal, 8)
	signal.Notify(c.sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGCHLD, syscall.SIGTSTP)

	go c.loop(tick)
}

func (c *Controller) loop(tick time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case sig := <-c.sigCh:
			c.handleSignal(sig)
		case <-ticker.C:
			c.reap()
		}
	}
}

func (c *Controller) handleSignal(sig os.Signal) {
	switch sig {
	case syscall.SIGCHLD:
		c.reap()
	default:
		// Queued for the executor to poll at the next safe point;
		// never run complex logic from here.
		c.rt.QueueSignal(sig.String())
	}
}

// reap removes finished background jobs from the job table. A full waitpid-based reaper lives with the process that forked
// each job (os/exec.Cmd.Wait, invoked from the goroutine that started
// it); this pass only prunes jobs already marked done so the table
// doesn't grow unboundedly across a long session.
func (c *Controller) reap() {
	c.rt.JobsLock.Lock()
	defer c.rt.JobsLock.Unlock()
	live := c.rt.Jobs[:0]
	for _, j := range c.rt.Jobs {
		if j.State == state.JobDone {
			continue
		}
		live = append(live, j)
	}
	c.rt.Jobs = live
}

// Stop halts the polling loop and restores default signal handling.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	c.mu.Unlock()
	close(c.stop)
	<-c.done
	signal.Stop(c.sigCh)
}
