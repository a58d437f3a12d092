package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthServer is the optional loopback-only introspection endpoint,
// serving /healthz and /debug/pool over its own loopback listener
// using chi for routing.
type healthServer struct {
	addr string
	pool *Pool
	srv  *http.Server
}

func newHealthServer(addr string, pool *Pool) *healthServer {
	return &healthServer{addr: addr, pool: pool}
}

func (h *healthServer) Start(ctx context.Context) error {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/debug/pool", func(w http.ResponseWriter, req *http.Request) {
		idle, busy := h.pool.Len()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"idle": idle, "busy": busy})
	})

	h.srv = &http.Server{
		Addr:         h.addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- h.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return h.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
