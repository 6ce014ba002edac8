// Package router wires the search service routes and applies the middleware
// chain (RequestID, CORS, Metrics, Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/newsrank/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/newsrank/pkg/middleware"
)

type Deps struct {
	Search    *handler.Handler
	Analytics *analytics.Handler
	Health    *health.Checker
	// Metrics is optional; without it HTTP requests are not instrumented.
	Metrics *metrics.Metrics
	// Timeout bounds each request; zero disables the timeout middleware.
	Timeout time.Duration
}

// New builds the service handler.
//
// Route table:
//
//	GET    /api/v1/search             ranked search
//	GET    /api/v1/index/stats        build statistics and pruned terms
//	GET    /api/v1/cache/stats        cache hit rate and breaker state
//	POST   /api/v1/cache/invalidate   drop cached results
//	GET    /api/v1/analytics          aggregated search analytics
//	GET    /health/live               liveness
//	GET    /health/ready              readiness
//	GET    /metrics                   Prometheus scrape
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/search", d.Search.Search)
	mux.HandleFunc("GET /api/v1/index/stats", d.Search.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", d.Search.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", d.Search.CacheInvalidate)
	if d.Analytics != nil {
		mux.HandleFunc("GET /api/v1/analytics", d.Analytics.Stats)
	}
	mux.HandleFunc("GET /health/live", d.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", d.Health.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	if d.Timeout > 0 {
		chain = middleware.Timeout(d.Timeout)(chain)
	}
	if d.Metrics != nil {
		chain = middleware.Metrics(d.Metrics)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)
	return chain
}
