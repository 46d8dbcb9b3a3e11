package processors

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Encoding значение заголовка content-encoding для сжатого тела
const Encoding = "zstd+base64"

// CompressionProcessor сжимает данные zstd и кодирует в base64
type CompressionProcessor struct {
	encoder *zstd.Encoder
}

// NewCompressionProcessor создает процессор сжатия.
// level: 1 (самый быстрый) - 22 (лучшее сжатие), 3 - разумный баланс.
func NewCompressionProcessor(level int) (*CompressionProcessor, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &CompressionProcessor{encoder: encoder}, nil
}

// ProcessBlock сжимает блок и кодирует результат в base64
func (p *CompressionProcessor) ProcessBlock(_ context.Context, input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}
	compressed := p.encoder.EncodeAll(input, nil)

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(compressed)))
	base64.StdEncoding.Encode(encoded, compressed)
	return encoded, nil
}

// Close освобождает энкодер
func (p *CompressionProcessor) Close() {
	if p.encoder != nil {
		p.encoder.Close()
	}
}

// DecompressionProcessor распаковывает данные из base64+zstd
type DecompressionProcessor struct {
	decoder *zstd.Decoder
}

// NewDecompressionProcessor создает процессор распаковки
func NewDecompressionProcessor() (*DecompressionProcessor, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &DecompressionProcessor{decoder: decoder}, nil
}

// ProcessBlock декодирует base64 и распаковывает zstd
func (p *DecompressionProcessor) ProcessBlock(_ context.Context, input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}

	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(input)))
	n, err := base64.StdEncoding.Decode(decoded, input)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	decompressed, err := p.decoder.DecodeAll(decoded[:n], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress zstd: %w", err)
	}
	return decompressed, nil
}

// Close освобождает декодер
func (p *DecompressionProcessor) Close() {
	if p.decoder != nil {
		p.decoder.Close()
	}
}

// Compress сжимает блок одноразовым процессором
func Compress(input []byte, level int) ([]byte, error) {
	p, err := NewCompressionProcessor(level)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.ProcessBlock(context.Background(), input)
}

// Decompress распаковывает блок одноразовым процессором
func Decompress(input []byte) ([]byte, error) {
	p, err := NewDecompressionProcessor()
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.ProcessBlock(context.Background(), input)
}
