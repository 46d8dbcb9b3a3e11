// datagen генерирует синтетические табличные данные по конфигурации.
//
// Usage:
//
//	datagen -config users.yaml [-rows N] [-seed S] [-shuffle] [-no-stream] [-no-write]
//	datagen -validate -config users.yaml
//	datagen -list
//	datagen -schemas
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-datagen/pkg/config"
	"github.com/ruslano69/tdtp-datagen/pkg/core/engine"
	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
	"github.com/ruslano69/tdtp-datagen/pkg/pipeline"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Error().Err(err).Msg("datagen failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags, err := ParseFlags(args)
	if err != nil {
		return err
	}
	setupLogger(*flags.Verbose, *flags.JSONLog)

	switch {
	case *flags.Version:
		fmt.Fprintf(stdout, "datagen %s\n", version)
		return nil
	case *flags.List:
		for _, name := range strategy.DefaultRegistry.Names() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	case *flags.Schemas:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"strategies": strategy.DefaultRegistry.Schemas()})
	}

	if *flags.Config == "" {
		return fmt.Errorf("-config is required")
	}
	cfg, err := config.LoadConfig(*flags.Config)
	if err != nil {
		return err
	}
	applyOverrides(cfg, flags)

	if *flags.Validate {
		if err := engine.New(cfg.EngineOptions()...).Validate(cfg.Steps(), cfg.NumOfRows); err != nil {
			return err
		}
		log.Info().Str("config", *flags.Config).Int("steps", len(cfg.Configs)).Msg("config is valid")
		return nil
	}

	var opts []pipeline.Option
	if *flags.NoStream {
		opts = append(opts, pipeline.WithoutStream())
	}
	p := pipeline.NewProcessor(cfg, opts...)
	if err := p.Execute(ctx); err != nil {
		return err
	}

	stats := p.Stats()
	log.Info().
		Str("run_id", stats.RunID).
		Int("rows", stats.RowsGenerated).
		Strs("outputs", stats.FilesWritten).
		Dur("duration", stats.Duration).
		Msg("done")
	return nil
}

// applyOverrides переносит флаги поверх конфигурации
func applyOverrides(cfg *config.Config, flags *Flags) {
	if *flags.Rows > 0 {
		cfg.NumOfRows = *flags.Rows
	}
	if *flags.Seed >= 0 {
		seed := uint64(*flags.Seed)
		cfg.Seed = &seed
	}
	if *flags.Shuffle {
		cfg.Shuffle = true
	}
	if *flags.NoWrite {
		off := false
		cfg.WriteOutput = &off
	}
}

func setupLogger(verbose, jsonLog bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if jsonLog {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
