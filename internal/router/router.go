package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/actuallystonmai/shelf-recommender/internal/handler"
)

type Options struct {
	RequestTimeout  time.Duration
	CORSOrigins     []string
	RateLimit       int // requests per RateLimitWindow per IP; 0 disables
	RateLimitWindow time.Duration
}

func DefaultOptions() Options {
	return Options{
		RequestTimeout:  30 * time.Second,
		CORSOrigins:     []string{"*"},
		RateLimit:       100,
		RateLimitWindow: time.Minute,
	}
}

func Setup(h *handler.Handler, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", healthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimit, opts.RateLimitWindow))
		}
		r.Use(middleware.Timeout(opts.RequestTimeout))

		r.Get("/users/{userID}/recommendations", h.GetRecommendations)
		r.Post("/users/{userID}/interactions", h.RecordInteraction)
		r.Get("/recommendations/batch", h.GetBatchRecommendations)
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
