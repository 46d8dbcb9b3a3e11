package brokers

import (
	"context"
	"errors"

	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/emit"
)

// Sink отправляет батчи в брокер. Ошибки сериализации фатальны.
// Ошибку отправки, уже классифицированную publisher, Sink не меняет,
// остальные считаются временными и повторяются emit.Streamer.
type Sink struct {
	publisher Publisher
	encoder   *Encoder
	name      string
}

// NewSink оборачивает подключенный publisher
func NewSink(p Publisher, enc *Encoder) *Sink {
	return &Sink{
		publisher: p,
		encoder:   enc,
		name:      p.Type() + ":" + p.Destination(),
	}
}

var _ emit.Sink = (*Sink)(nil)

func (s *Sink) Name() string { return s.name }

// Publish кодирует и отправляет один батч
func (s *Sink) Publish(ctx context.Context, b emit.Batch) error {
	msg, err := s.encoder.Encode(ctx, b)
	if err != nil {
		return generr.Publish(s.name, false, err)
	}
	if err := s.publisher.Send(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if generr.KindOf(err) != 0 {
			return err
		}
		return generr.Publish(s.name, true, err)
	}
	return nil
}

// Close закрывает publisher
func (s *Sink) Close() error {
	return s.publisher.Close()
}
