package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spigell/resume-matcher/internal/pdftext"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultListen          = ":5000"
	defaultMaxUploadSize   = 10 << 20
	defaultShutdownTimeout = 10 * time.Second
	// multipartMemory is kept in memory per request; larger uploads spill to disk.
	multipartMemory = 8 << 20
)

// Config configures the HTTP server.
type Config struct {
	Listen          string
	MaxUploadSize   int64
	AllowedOrigins  []string
	RateLimit       float64
	RateBurst       int
	ShutdownTimeout time.Duration
}

// Scorer returns the percentage similarity of a résumé to a job description.
type Scorer interface {
	Score(ctx context.Context, jobDescription, resume string) (float64, error)
}

// Deps aggregates collaborators used by the handlers.
type Deps struct {
	Logger    *zap.Logger
	Scorer    Scorer
	Extractor pdftext.Extractor
}

type Server struct {
	cfg     Config
	logger  *zap.Logger
	scorer  Scorer
	pdf     pdftext.Extractor
	handler http.Handler
}

func New(cfg Config, deps Deps) *Server {
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaultMaxUploadSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		scorer: deps.Scorer,
		pdf:    deps.Extractor,
	}
	s.handler = s.routes()

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	}))

	if s.cfg.RateLimit > 0 {
		burst := s.cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)))
	}

	r.Get("/", s.handleHome)
	r.Get("/healthz", s.handleHealth)
	r.Post("/get_score", s.handleScore)

	return r
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down", zap.Duration("timeout", s.cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Welcome to the Resume Matcher API!"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
