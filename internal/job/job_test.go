package job

import (
	"testing"
	"time"

	"github.com/kazz187/lash/internal/state"
)

func TestReapPrunesOnlyDoneJobs(t *testing.T) {
	rt := state.New()
	running := rt.AllocJob(0, "sleep 10")
	done := rt.AllocJob(0, "echo hi")
	done.State = state.JobDone

	c := New(rt)
	c.reap()

	if len(rt.Jobs) != 1 || rt.Jobs[0].ID != running.ID {
		t.Fatalf("expected only the running job to survive reap, got %+v", rt.Jobs)
	}
}

func TestStartStopIsIdempotentAndClean(t *testing.T) {
	rt := state.New()
	c := New(rt)
	c.Start(10 * time.Millisecond)
	c.Start(10 * time.Millisecond) // second Start must be a no-op, not a panic
	time.Sleep(30 * time.Millisecond)
	c.Stop()
	c.Stop() // second Stop must also be a no-op
}

func TestReapingHappensOnTick(t *testing.T) {
	rt := state.New()
	done := rt.AllocJob(0, "echo hi")
	done.State = state.JobDone

	c := New(rt)
	c.Start(5 * time.Millisecond)
	defer c.Stop()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		rt.JobsLock.Lock()
		n := len(rt.Jobs)
		rt.JobsLock.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected the done job to be reaped within the deadline")
}
