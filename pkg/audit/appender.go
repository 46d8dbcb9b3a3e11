package audit

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Appender получатель записей журнала
type Appender interface {
	Append(ctx context.Context, entry *Entry) error
	Close() error
}

// MultiAppender пишет в несколько appender'ов
type MultiAppender struct {
	appenders []Appender
}

func NewMultiAppender(appenders ...Appender) *MultiAppender {
	return &MultiAppender{appenders: appenders}
}

// Append пишет во все appender'ы и собирает ошибки
func (ma *MultiAppender) Append(ctx context.Context, entry *Entry) error {
	var errs []error
	for _, a := range ma.appenders {
		if err := a.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ma *MultiAppender) Close() error {
	var errs []error
	for _, a := range ma.appenders {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogAppender дублирует записи в zerolog
type LogAppender struct {
	logger zerolog.Logger
}

func NewLogAppender(logger zerolog.Logger) *LogAppender {
	return &LogAppender{logger: logger}
}

func (la *LogAppender) Append(_ context.Context, e *Entry) error {
	ev := la.logger.Info()
	if e.Status == StatusFailure {
		ev = la.logger.Warn().Str("error", e.ErrorMessage)
	}
	ev.Str("audit_id", e.ID).
		Str("run_id", e.RunID).
		Str("operation", string(e.Operation)).
		Str("status", string(e.Status)).
		Str("target", e.Target).
		Int64("records", e.Records).
		Dur("duration", e.Duration).
		Msg("audit")
	return nil
}

func (la *LogAppender) Close() error { return nil }
