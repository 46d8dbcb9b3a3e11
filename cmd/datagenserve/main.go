// datagenserve отдает генератор по HTTP.
//
// Usage:
//
//	datagenserve [--addr :8080] [--max-rows 100000] [--timeout 30s] [--rate-limit 5] [--download-rate-limit 3]
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-datagen/pkg/api"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	maxRows := flag.Int("max-rows", api.DefaultMaxRows, "num_of_rows limit per request")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	rateLimit := flag.Int("rate-limit", api.DefaultRateLimit, "generate_data requests per minute per IP, -1 disables")
	downloadLimit := flag.Int("download-rate-limit", api.DefaultDownloadRateLimit, "generate_and_download requests per minute per IP, -1 disables")
	jsonLog := flag.Bool("json-log", false, "log as JSON instead of console output")
	flag.Parse()

	if *jsonLog {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	router := api.NewRouter(api.Options{
		MaxRows:           *maxRows,
		Timeout:           *timeout,
		RateLimit:         *rateLimit,
		DownloadRateLimit: *downloadLimit,
	})
	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: *timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", *addr).Int("max_rows", *maxRows).Msg("datagenserve started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	log.Info().Msg("stopped")
}
