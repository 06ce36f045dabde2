package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/regbot/core/buildinfo"
	"github.com/m3rciful/regbot/core/logger"
	"github.com/m3rciful/regbot/internal/session"
	"log/slog"
)

// healthServer serves the read-only status endpoint while the bot runs.
type healthServer struct {
	srv      *http.Server
	db       *sqlx.DB
	sessions *session.MemoryManager
	started  time.Time
}

func newHealthServer(listen string, db *sqlx.DB, sessions *session.MemoryManager) *healthServer {
	h := &healthServer{
		db:       db,
		sessions: sessions,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleRoot)
	mux.HandleFunc("/health", h.handleHealth)

	h.srv = &http.Server{
		Addr:         listen,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return h
}

func (h *healthServer) Start() {
	h.started = time.Now()
	go func() {
		logger.L.With("component", "health").Info("health endpoint up",
			slog.String("event", "listen"),
			slog.String("addr", h.srv.Addr),
		)
		if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.With("component", "health").Error("health endpoint failed",
				slog.String("event", "listen.failed"),
				slog.String("err", err.Error()),
			)
		}
	}()
}

func (h *healthServer) Stop(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = h.srv.Shutdown(shutdownCtx)
}

func (h *healthServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("regbot is running\n"))
}

func (h *healthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbOK := h.db.PingContext(ctx) == nil

	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":         map[bool]string{true: "ok", false: "degraded"}[dbOK],
		"db":             dbOK,
		"sessions":       h.sessions.Count(),
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"version":        buildinfo.Version,
		"commit":         buildinfo.Commit,
	})
}
