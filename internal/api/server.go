// Package api serves the recommendation engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/studyspot-cli/internal/catalog"
	"github.com/sells-group/studyspot-cli/internal/config"
	"github.com/sells-group/studyspot-cli/internal/intake"
	"github.com/sells-group/studyspot-cli/internal/model"
	"github.com/sells-group/studyspot-cli/internal/monitoring"
	"github.com/sells-group/studyspot-cli/internal/scorer"
	"github.com/sells-group/studyspot-cli/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// QueryRecorder persists answered queries. store.Store satisfies it.
type QueryRecorder interface {
	RecordQuery(ctx context.Context, rec *model.QueryRecord) error
}

var _ QueryRecorder = (store.Store)(nil)

// Server holds the handlers' dependencies. The catalog is read-only, so one
// Server serves any number of concurrent requests.
type Server struct {
	cat      *catalog.Catalog
	engine   *scorer.Engine
	recorder QueryRecorder
	cfg      *config.Config
}

// NewServer creates a Server. recorder may be nil to skip query history.
func NewServer(cat *catalog.Catalog, engine *scorer.Engine, recorder QueryRecorder, cfg *config.Config) *Server {
	monitoring.SetCatalogSize(cat.Len())
	return &Server{cat: cat, engine: engine, recorder: recorder, cfg: cfg}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(s.cfg.Server.RateLimit, s.cfg.Server.RateBurst))

		r.Get("/spots", s.listSpots)
		r.Post("/match/strict", s.matchStrict)
		r.Post("/match/weighted", s.query(model.ModeWeighted))
		r.Post("/recommend", s.query(model.ModeAuto))
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "spots": s.cat.Len()})
}

func (s *Server) listSpots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"source": s.cat.Source(), "spots": s.cat.Spots()})
}

func (s *Server) matchStrict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := readBody(r)
	if err != nil {
		s.invalid(w, err)
		return
	}
	var req intake.StrictRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.invalid(w, err)
		return
	}
	pref, err := req.Parse()
	if err != nil {
		s.invalid(w, err)
		return
	}

	out, err := s.engine.Recommend(r.Context(), s.cat, pref, model.ModeStrict)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.finish(r.Context(), out, pref, body, start)
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out.Matches), "matches": out.Matches})
}

// query answers a weighted or auto request. Omitted fields take the
// configured defaults.
func (s *Server) query(mode model.QueryMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		body, err := readBody(r)
		if err != nil {
			s.invalid(w, err)
			return
		}
		req := intake.NewWeightedRequest(s.cfg.Recommend.DefaultTopN, model.ExplainMode(s.cfg.Recommend.ExplainMode))
		if err := json.Unmarshal(body, &req); err != nil {
			s.invalid(w, err)
			return
		}
		pref, err := req.Parse()
		if err != nil {
			s.invalid(w, err)
			return
		}

		out, err := s.engine.Recommend(r.Context(), s.cat, pref, mode)
		if err != nil {
			s.fail(w, err)
			return
		}
		s.finish(r.Context(), out, pref, body, start)
		writeJSON(w, http.StatusOK, out)
	}
}

// finish records metrics and history for an answered query. History write
// failures are logged and never fail the request.
func (s *Server) finish(ctx context.Context, out *scorer.Outcome, pref model.Preference, body []byte, start time.Time) {
	monitoring.RecordQuery(string(out.Requested), time.Since(start), out.FellBack, out.Shortfall())
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordQuery(ctx, out.Record(pref, body)); err != nil {
		zap.L().Warn("api: record query failed", zap.Error(err))
	}
}

func (s *Server) invalid(w http.ResponseWriter, err error) {
	monitoring.RecordInvalidInput()
	writeError(w, http.StatusBadRequest, err)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrInvalidInput) {
		s.invalid(w, err)
		return
	}
	zap.L().Error("api: query failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err)
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // response write errors are not recoverable
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// rateLimit applies one shared token bucket to every request. A non-positive
// limit disables it.
func rateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
