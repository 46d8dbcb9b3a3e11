package writers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
)

// WriteAll запускает writer'ы параллельно. Таблица к этому моменту
// заморожена и только читается. Возвращается первая ошибка.
func WriteAll(ctx context.Context, tbl *table.Table, ws []Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range ws {
		g.Go(func() error {
			start := time.Now()
			if err := w.Write(gctx, tbl); err != nil {
				log.Error().Err(err).Str("writer", w.Type()).Msg("writer failed")
				return err
			}
			log.Info().
				Str("writer", w.Type()).
				Int("rows", tbl.Rows()).
				Dur("duration", time.Since(start)).
				Msg("table written")
			return nil
		})
	}
	return g.Wait()
}
