package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestHealthServerServesHealthzAndDebugPool(t *testing.T) {
	pool := testPool(2)
	pool.workers["a"] = &Worker{ID: "a", State: WorkerIdle}
	pool.workers["b"] = &Worker{ID: "b", State: WorkerBusy}

	addr := "127.0.0.1:18173"
	h := newHealthServer(addr, pool)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- h.Start(ctx) }()
	waitForListener(t, addr)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", addr))
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("got status %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(fmt.Sprintf("http://%s/debug/pool", addr))
	if err != nil {
		t.Fatalf("GET /debug/pool: %v", err)
	}
	defer resp.Body.Close()
	var got map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["idle"] != 1 || got["busy"] != 1 {
		t.Errorf("got %v, want idle=1 busy=1", got)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v after shutdown, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		conn, err := http.Get(fmt.Sprintf("http://%s/healthz", addr))
		if err == nil {
			conn.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("health server on %s never became reachable", addr)
}
