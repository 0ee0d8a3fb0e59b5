// Package server exposes the portfolio analysis over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmylchreest/portfolioscan/internal/logger"
	"github.com/jmylchreest/portfolioscan/internal/version"
	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
	"github.com/jmylchreest/portfolioscan/pkg/portfolioscan"
)

// Analyzer runs one analysis. *portfolioscan.Scanner satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, sources []portfolio.Source) (*portfolioscan.Report, error)
}

// Config controls the HTTP server.
type Config struct {
	Addr           string
	DefaultFilter  string
	RequestTimeout time.Duration
	MaxURLs        int
	MaxBodyBytes   int64
	AllowOrigins   []string
}

// DefaultConfig returns the settings used by the serve command.
func DefaultConfig() Config {
	return Config{
		Addr:           ":5000",
		DefaultFilter:  portfolioscan.FilterAI,
		RequestTimeout: 5 * time.Minute,
		MaxURLs:        50,
		MaxBodyBytes:   10 << 20,
		AllowOrigins:   []string{"*"},
	}
}

// analyzeRequest is the POST /analyze body. Pages carry pre-fetched HTML.
type analyzeRequest struct {
	URLs   []string           `json:"urls"`
	Pages  []portfolio.Source `json:"pages"`
	Filter string             `json:"filter"`
}

// Server routes requests to one Analyzer per filter name.
type Server struct {
	cfg       Config
	analyzers map[string]Analyzer
	mux       *http.ServeMux
}

// New creates a server. analyzers maps filter names ("ai", "none",
// "public") to the Analyzer that applies them.
func New(cfg Config, analyzers map[string]Analyzer) (*Server, error) {
	if len(analyzers) == 0 {
		return nil, errors.New("server: no analyzers configured")
	}
	if cfg.DefaultFilter == "" {
		cfg.DefaultFilter = portfolioscan.FilterAI
	}
	if _, ok := analyzers[cfg.DefaultFilter]; !ok {
		return nil, fmt.Errorf("server: default filter %q has no analyzer", cfg.DefaultFilter)
	}

	s := &Server{
		cfg:       cfg,
		analyzers: analyzers,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/analyze", s.handleAnalyze(false))
	s.mux.HandleFunc("/analyze/report", s.handleAnalyze(true))
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return logRequest(cors(s.cfg.AllowOrigins, s.mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	log := logger.Component("server")
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.String()})
}

func (s *Server) handleAnalyze(detailed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if s.cfg.MaxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		}
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		sources, err := s.sources(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		filter := strings.ToLower(strings.TrimSpace(req.Filter))
		if filter == "" {
			filter = s.cfg.DefaultFilter
		}
		analyzer, ok := s.analyzers[filter]
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown filter %q", req.Filter))
			return
		}

		ctx := r.Context()
		if s.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
			defer cancel()
		}

		report, err := analyzer.Analyze(ctx, sources)
		if err != nil {
			status := http.StatusServiceUnavailable
			if errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}
			logger.Component("server").Warn("analysis aborted", "error", err)
			writeError(w, status, "analysis aborted: "+err.Error())
			return
		}

		if detailed {
			writeJSON(w, http.StatusOK, report)
			return
		}
		writeJSON(w, http.StatusOK, report.Result())
	}
}

// sources validates the request and merges URLs and inline pages.
func (s *Server) sources(req analyzeRequest) ([]portfolio.Source, error) {
	if len(req.URLs) == 0 && len(req.Pages) == 0 {
		return nil, errors.New("urls must be a non-empty list")
	}
	total := len(req.URLs) + len(req.Pages)
	if s.cfg.MaxURLs > 0 && total > s.cfg.MaxURLs {
		return nil, fmt.Errorf("too many pages: %d (max %d)", total, s.cfg.MaxURLs)
	}

	sources := make([]portfolio.Source, 0, total)
	for _, u := range req.URLs {
		sources = append(sources, portfolio.Source{URL: strings.TrimSpace(u)})
	}
	for _, p := range req.Pages {
		if p.HTML == "" && p.URL == "" {
			return nil, errors.New("each page needs a url or html_content")
		}
		sources = append(sources, p)
	}
	return sources, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
