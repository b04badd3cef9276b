package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/jwt"
	"github.com/MrEthical07/blogauth/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Authenticator is the engine surface the router needs. *blogauth.Engine
// satisfies it.
type Authenticator interface {
	Signup(ctx context.Context, req blogauth.SignupRequest) (string, error)
	VerifyOTP(ctx context.Context, otp, email string) (blogauth.Result, error)
	Signin(ctx context.Context, identifier, password string) (blogauth.TokenPair, error)
	Refresh(ctx context.Context, token string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) (blogauth.Result, error)
	CompletePasswordReset(ctx context.Context, token, newPassword string) (blogauth.Result, error)
	ValidateAccess(ctx context.Context, token string) (*jwt.Claims, error)
	Ping(ctx context.Context) error
}

type Options struct {
	Logger *slog.Logger

	// CookieSecure marks the refresh cookie Secure. Disable only for plain
	// HTTP development servers.
	CookieSecure bool
	// RefreshTTL is the refresh cookie lifetime; it should match the
	// refresh token TTL.
	RefreshTTL time.Duration

	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
	// Registerer receives the per-route request metrics when set.
	Registerer prometheus.Registerer
}

type Router struct {
	auth   Authenticator
	opts   Options
	log    *slog.Logger
	mux    *http.ServeMux
	metric *requestMetrics
}

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type requestMetrics struct {
	total   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func New(auth Authenticator, opts Options) (*Router, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}

	r := &Router{
		auth: auth,
		opts: opts,
		log:  opts.Logger.With("component", "httpapi"),
		mux:  http.NewServeMux(),
	}

	if opts.Registerer != nil {
		m := &requestMetrics{
			total: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "blogauth",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Count of processed HTTP requests",
			}, []string{"method", "route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "blogauth",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution of HTTP handlers",
				Buckets:   histogramBuckets,
			}, []string{"method", "route", "status"}),
		}
		for _, c := range []prometheus.Collector{m.total, m.latency} {
			if err := opts.Registerer.Register(c); err != nil {
				return nil, err
			}
		}
		r.metric = m
	}

	r.routes()
	return r, nil
}

func (r *Router) routes() {
	r.mux.HandleFunc("POST /auth/signup", r.handleSignup)
	r.mux.HandleFunc("POST /auth/verify-otp", r.handleVerifyOTP)
	r.mux.HandleFunc("POST /auth/signin", r.handleSignin)
	r.mux.HandleFunc("POST /auth/refresh-token", r.handleRefresh)
	r.mux.HandleFunc("POST /auth/forgot-password", r.handleForgotPassword)
	r.mux.HandleFunc("POST /auth/reset-password", r.handleResetPassword)
	r.mux.Handle("GET /auth/me", middleware.Guard(r.auth)(http.HandlerFunc(r.handleMe)))

	r.mux.HandleFunc("GET /healthz", r.handleHealth)
	if r.opts.Metrics != nil {
		r.mux.Handle("GET /metrics", r.opts.Metrics)
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	r.mux.ServeHTTP(rec, req)

	route := req.Pattern
	if route == "" {
		route = "unmatched"
	}
	elapsed := time.Since(start)
	if r.metric != nil {
		labels := prometheus.Labels{
			"method": req.Method,
			"route":  route,
			"status": strconv.Itoa(rec.status),
		}
		r.metric.total.With(labels).Inc()
		r.metric.latency.With(labels).Observe(elapsed.Seconds())
	}
	r.log.DebugContext(req.Context(), "request",
		"method", req.Method,
		"route", route,
		"status", rec.status,
		"duration", elapsed,
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
