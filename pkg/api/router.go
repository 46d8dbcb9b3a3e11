// Package api отдает генератор по HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
)

// Ограничения по умолчанию
const (
	DefaultMaxRows = 100_000 // num_of_rows для одного запроса

	// запросов в минуту с одного IP
	DefaultRateLimit         = 5
	DefaultDownloadRateLimit = 3
)

// Options настройки API
type Options struct {
	Registry *strategy.Registry
	Logger   *zerolog.Logger // nil = глобальный log.Logger
	MaxRows  int
	Timeout  time.Duration

	// RateLimit и DownloadRateLimit: запросов в минуту с одного IP к
	// /generate_data и /generate_and_download. 0 = по умолчанию, < 0 без ограничения.
	RateLimit         int
	DownloadRateLimit int
}

// NewRouter собирает chi router
func NewRouter(opts Options) http.Handler {
	if opts.Registry == nil {
		opts.Registry = strategy.DefaultRegistry
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.DownloadRateLimit == 0 {
		opts.DownloadRateLimit = DefaultDownloadRateLimit
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	r := chi.NewRouter()

	r.Use(zerologMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.Timeout))

	h := &handler{registry: opts.Registry, logger: logger, maxRows: opts.MaxRows}

	r.Get("/ping", handlePing)
	r.Get("/get_all_strategies", h.Strategies)
	r.Get("/get_strategy_schemas", h.Schemas)
	r.With(rateLimitMiddleware(opts.RateLimit)).Post("/generate_data", h.Generate)
	r.With(rateLimitMiddleware(opts.DownloadRateLimit)).Post("/generate_and_download", h.Download)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
