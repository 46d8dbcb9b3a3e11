// Package processors преобразует тело сообщения перед отправкой в брокер:
// сжатие zstd+base64 и контрольная сумма xxh3.
package processors

import "context"

// BlockProcessor обрабатывает блок байт целиком
type BlockProcessor interface {
	ProcessBlock(ctx context.Context, input []byte) ([]byte, error)
}

// Chain применяет процессоры по порядку
type Chain []BlockProcessor

// ProcessBlock прогоняет блок через всю цепочку
func (c Chain) ProcessBlock(ctx context.Context, input []byte) ([]byte, error) {
	out := input
	for _, p := range c {
		var err error
		if out, err = p.ProcessBlock(ctx, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}
