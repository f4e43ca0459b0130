package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DashNode-Org/slot-sentinel/config"
	"github.com/DashNode-Org/slot-sentinel/pkg/analytics"
	"github.com/DashNode-Org/slot-sentinel/pkg/apperr"
	"github.com/DashNode-Org/slot-sentinel/pkg/blockprod"
	"github.com/DashNode-Org/slot-sentinel/pkg/health"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// RangeFetcher serves on-demand range queries.
type RangeFetcher interface {
	FetchBlockProductionRange(ctx context.Context, first, last uint64) (*analytics.FetchResult, error)
}

// Latest exposes the most recent collected result.
type Latest interface {
	Latest() *analytics.FetchResult
	LastError() error
}

// Connectivity exposes the endpoint connectivity state.
type Connectivity interface {
	Status() health.Status
}

type Server struct {
	cfg       *config.Config
	fetcher   RangeFetcher
	latest    Latest
	conn      Connectivity
	router    *chi.Mux
	startTime time.Time
	httpSrv   *http.Server
}

func NewServer(cfg *config.Config, fetcher RangeFetcher, latest Latest, conn Connectivity) *Server {
	s := &Server{
		cfg:       cfg,
		fetcher:   fetcher,
		latest:    latest,
		conn:      conn,
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.ProxyPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Msgf("Starting server on port %d", s.cfg.ProxyPort)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// GetHandler returns the http.Handler for testing or custom usage
func (s *Server) GetHandler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	// a range query may use every retry attempt
	s.router.Use(middleware.Timeout(s.cfg.CallBudget()))
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/production", s.withLatest(func(res *analytics.FetchResult) interface{} { return res }))
		r.Get("/production/range", s.handleRange)
		r.Get("/statistics", s.withLatest(func(res *analytics.FetchResult) interface{} { return res.Statistics }))
		r.Get("/distribution", s.withLatest(func(res *analytics.FetchResult) interface{} { return res.Distribution }))
		r.Get("/network-health", s.withLatest(func(res *analytics.FetchResult) interface{} { return res.Health }))
		r.Get("/snapshots", s.withLatest(func(res *analytics.FetchResult) interface{} { return res.Snapshots }))
		r.Get("/validators", s.handleValidators)
		r.Get("/validators/{view}", s.handleView)
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.latest.Latest() != nil {
		w.Write([]byte("READY"))
	} else {
		http.Error(w, "Not Ready", http.StatusServiceUnavailable)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	conn := s.conn.Status()

	status := "unhealthy"
	if conn.Healthy {
		status = "healthy"
	}

	response := map[string]interface{}{
		"status":   status,
		"uptime":   time.Since(s.startTime).Seconds(),
		"endpoint": conn,
	}
	if res := s.latest.Latest(); res != nil {
		response["lastCollection"] = map[string]interface{}{
			"fetchId":      res.FetchID,
			"fetchedAt":    res.FetchedAt,
			"validators":   res.Statistics.TotalValidators,
			"healthScore":  res.Health.Score,
			"healthStatus": res.Health.Status,
		}
	}
	if err := s.latest.LastError(); err != nil {
		response["lastCollectionError"] = err.Error()
	}

	writeJSON(w, http.StatusOK, response)
}

// withLatest serves a projection of the cached result, or 503 before the
// first successful collection.
func (s *Server) withLatest(project func(*analytics.FetchResult) interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := s.latest.Latest()
		if res == nil {
			s.notCollected(w)
			return
		}
		writeJSON(w, http.StatusOK, project(res))
	}
}

func (s *Server) notCollected(w http.ResponseWriter) {
	body := map[string]interface{}{"error": "no block production collected yet"}
	if err := s.latest.LastError(); err != nil {
		body["lastError"] = err.Error()
	}
	writeJSON(w, http.StatusServiceUnavailable, body)
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	first, err := parseSlot(r, "first")
	if err != nil {
		writeError(w, err)
		return
	}
	last, err := parseSlot(r, "last")
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.fetcher.FetchBlockProductionRange(r.Context(), first, last)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleValidators(w http.ResponseWriter, r *http.Request) {
	res := s.latest.Latest()
	if res == nil {
		s.notCollected(w)
		return
	}

	var identities []string
	for _, id := range strings.Split(r.URL.Query().Get("identity"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			identities = append(identities, id)
		}
	}
	if len(identities) == 0 {
		writeJSON(w, http.StatusOK, res.Validators)
		return
	}
	writeJSON(w, http.StatusOK, blockprod.FilterIdentities(res.Validators, identities))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, err := blockprod.ParseView(chi.URLParam(r, "view"))
	if err != nil {
		writeError(w, err)
		return
	}
	res := s.latest.Latest()
	if res == nil {
		s.notCollected(w)
		return
	}
	writeJSON(w, http.StatusOK, view.Apply(res))
}

func parseSlot(r *http.Request, name string) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, apperr.InvalidConfiguration(name, "missing query parameter "+name, "pass first and last slot numbers")
	}
	slot, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.InvalidConfiguration(name, "invalid slot "+strconv.Quote(raw), "slots are unsigned integers")
	}
	return slot, nil
}

type errorResponse struct {
	Error     string   `json:"error"`
	Kind      string   `json:"kind"`
	Category  string   `json:"category"`
	Retryable bool     `json:"retryable"`
	Hints     []string `json:"hints,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	e, ok := apperr.As(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "unknown"})
		return
	}
	if e.Retryable() {
		if d, ok := e.SuggestedRetryDelay(); ok && d > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int((d+time.Second-1)/time.Second)))
		}
	}
	writeJSON(w, statusFor(e), errorResponse{
		Error:     e.Error(),
		Kind:      e.Kind.String(),
		Category:  string(e.Category()),
		Retryable: e.Retryable(),
		Hints:     e.Hints(),
	})
}

// statusFor maps an error to the HTTP status returned to API callers.
// Exhausted retries are reported by the last failure.
func statusFor(e *apperr.Error) int {
	if e.Kind == apperr.KindRetriesExhausted {
		var last *apperr.Error
		if errors.As(e.Err, &last) {
			return statusFor(last)
		}
	}
	switch e.Kind {
	case apperr.KindInvalidConfiguration, apperr.KindInvalidSlotRange:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindNoData:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
