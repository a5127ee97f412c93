package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "spent/internal/log"
	"spent/internal/metrics"
	"spent/internal/middleware/ratelimit"
	"spent/internal/middleware/security"
	"spent/internal/middleware/trace"
	"spent/internal/services"
)

// HealthChecker is implemented by persisters that can verify connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Options struct {
	Logger   *applog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Limiter  *ratelimit.Limiter
	Health   HealthChecker
}

type Server struct {
	http.Server
	svc      *services.InsightsService
	health   HealthChecker
	limiter  *ratelimit.Limiter
	detector *security.Detector
	metrics  *metrics.Metrics
	started  time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.InsightsService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:     svc,
		health:  opts.Health,
		limiter: opts.Limiter,
		metrics: opts.Metrics,
		started: time.Now(),
	}
	s.detector = security.NewDetector(func(*http.Request) {
		if s.metrics != nil {
			s.metrics.SuspiciousRequests.Inc()
		}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	mux.HandleFunc("POST /api/income", s.handleAddIncome)
	mux.HandleFunc("POST /api/corrections", s.handleCorrectCategory)
	mux.HandleFunc("POST /api/exports/{month}", s.handleExport)
	mux.HandleFunc("GET /api/reports/{month}", s.handleMonthlyReport)
	mux.HandleFunc("GET /api/split/{month}", s.handleSplit)
	mux.HandleFunc("GET /api/compare", s.handleCompare)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited, http.MethodPost)(h)
	h = trace.NewMiddleware(s.detector.ExtractClientIP, s.observe).Middleware(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.Middleware(opts.Logger)(h)
	s.Handler = h

	return s
}

// Limiter exposes the rate limiter so a cache.Janitor can clean it.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

func (s *Server) observe(route string, code int, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	s.metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	if s.metrics != nil {
		s.metrics.RateLimited.Inc()
	}
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}
