package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Server answers liveness probes from the hosting platform.
type Server struct {
	log *slog.Logger

	server *http.Server
}

// NewServer creates a new health server.
func NewServer(log *slog.Logger) *Server {
	return &Server{log: log}
}

// Start starts the health server and blocks until it stops. Context
// cancellation triggers a graceful shutdown.
func (s *Server) Start(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("starting health server", "port", port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	return s.server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/health", "/healthz":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
