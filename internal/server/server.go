// Package server exposes the bot's optional health endpoint.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/sundayezeilo/yourlsbot/internal/errx"
	"github.com/sundayezeilo/yourlsbot/internal/httpx"
	"github.com/sundayezeilo/yourlsbot/internal/idgen"
	"github.com/sundayezeilo/yourlsbot/internal/stats"
)

const healthPath = "/x/health"

// StatsSource is the read side of stats.Store.
type StatsSource interface {
	Snapshot() stats.Document
	TopDomains(n int) []stats.DomainCount
}

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Config holds configuration for the server.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Service         string
	Version         string
	Stats           StatsSource
	TopDomainsLimit int
	Checks          map[string]Check
	Logger          *slog.Logger
	IDGenerator     idgen.Generator
}

// Server represents the HTTP server with all dependencies.
type Server struct {
	cfg    Config
	logger *slog.Logger
	server *http.Server
}

// New creates a new Server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	return &Server{cfg: cfg, logger: logger}
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	return s.applyMiddleware(s.setupRoutes())
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	const op = "server.Server.Start"

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	const op = "server.Server.Serve"

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("starting health server", "addr", ln.Addr().String())
		serverErrors <- s.server.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errx.E(op, errx.Unavailable, err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+healthPath, s.healthCheckHandler)
	mux.HandleFunc("GET /x/stats", s.statsHandler)
	return mux
}

func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger),
		httpx.RequestID(s.cfg.IDGenerator),
		httpx.Logger(s.logger, healthPath),
	)(handler)
}

type healthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// healthCheckHandler runs every configured check and answers 503 when any
// of them fails.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Service: s.cfg.Service,
		Version: s.cfg.Version,
	}
	status := http.StatusOK

	if len(s.cfg.Checks) > 0 {
		resp.Checks = make(map[string]string, len(s.cfg.Checks))
		for name, check := range s.cfg.Checks {
			if err := check(r.Context()); err != nil {
				s.logger.WarnContext(r.Context(), "health check failed",
					"request_id", httpx.GetRequestID(r.Context()),
					"check", name,
					"error", err.Error(),
				)
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = httpx.ErrorKindToStatus(errx.Unavailable)
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	httpx.WriteJSON(w, status, resp)
}

type domainCount struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

type statsResponse struct {
	TotalLinks int64         `json:"total_links"`
	Users      int           `json:"users"`
	Domains    int           `json:"domains"`
	TopDomains []domainCount `json:"top_domains"`
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Stats == nil {
		httpx.WriteErrorFrom(w, errx.E("server.Server.statsHandler", errx.NotFound, errors.New("statistics are not available")))
		return
	}

	doc := s.cfg.Stats.Snapshot()
	top := lo.Map(s.cfg.Stats.TopDomains(s.cfg.TopDomainsLimit), func(d stats.DomainCount, _ int) domainCount {
		return domainCount{Domain: d.Domain, Count: d.Count}
	})

	httpx.WriteJSON(w, http.StatusOK, statsResponse{
		TotalLinks: doc.TotalLinks,
		Users:      doc.UserStats.Len(),
		Domains:    doc.DomainStats.Len(),
		TopDomains: top,
	})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down health server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}
	return nil
}
