package brokers

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
	"github.com/ruslano69/tdtp-datagen/pkg/emit"
	"github.com/ruslano69/tdtp-datagen/pkg/processors"
)

// Заголовки сообщения
const (
	HeaderContentType     = "content-type"
	HeaderContentEncoding = "content-encoding"
	HeaderChecksum        = processors.ChecksumHeader
	HeaderRunID           = "x-run-id"
	HeaderBatchIndex      = "x-batch-index"

	ContentTypeJSON = "application/json"
)

// Envelope тело сообщения с одним батчем
type Envelope struct {
	BatchInfo emit.Metadata      `json:"batch_info"`
	Data      []strategy.Mapping `json:"data"`
	Metadata  EnvelopeMetadata   `json:"metadata"`
}

// EnvelopeMetadata сводка по батчу
type EnvelopeMetadata struct {
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

// DecodedEnvelope конверт, прочитанный обратно из сообщения
type DecodedEnvelope struct {
	BatchInfo emit.Metadata    `json:"batch_info"`
	Data      []map[string]any `json:"data"`
	Metadata  EnvelopeMetadata `json:"metadata"`
}

// Encoder собирает сообщения из батчей
type Encoder struct {
	compressor *processors.CompressionProcessor
}

// NewEncoder создает Encoder. compression: "", "none" или "zstd".
func NewEncoder(compression string) (*Encoder, error) {
	switch compression {
	case "", "none":
		return &Encoder{}, nil
	case "zstd":
		c, err := processors.NewCompressionProcessor(3)
		if err != nil {
			return nil, err
		}
		return &Encoder{compressor: c}, nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s (supported: none, zstd)", compression)
	}
}

// Encode сериализует батч в сообщение. Контрольная сумма считается по
// итоговому телу, после сжатия.
func (e *Encoder) Encode(ctx context.Context, b emit.Batch) (Message, error) {
	body, err := json.Marshal(Envelope{
		BatchInfo: b.Metadata,
		Data:      b.OrderedRecords(),
		Metadata:  EnvelopeMetadata{Rows: len(b.Rows), Columns: b.Columns},
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal batch %d: %w", b.Index, err)
	}

	headers := map[string]string{
		HeaderContentType: ContentTypeJSON,
		HeaderBatchIndex:  strconv.Itoa(b.Index),
	}
	if b.RunID != "" {
		headers[HeaderRunID] = b.RunID
	}

	var sum string
	chain := make(processors.Chain, 0, 2)
	if e.compressor != nil {
		chain = append(chain, e.compressor)
		headers[HeaderContentEncoding] = processors.Encoding
	}
	chain = append(chain, processors.NewChecksumProcessor(func(s string) { sum = s }))
	if body, err = chain.ProcessBlock(ctx, body); err != nil {
		return Message{}, fmt.Errorf("failed to process batch %d: %w", b.Index, err)
	}
	headers[HeaderChecksum] = sum

	return Message{
		Key:     fmt.Sprintf("%s-%d", b.RunID, b.Index),
		Body:    body,
		Headers: headers,
	}, nil
}

// Close освобождает компрессор
func (e *Encoder) Close() {
	if e.compressor != nil {
		e.compressor.Close()
	}
}

// Decode проверяет контрольную сумму, распаковывает и разбирает конверт
func Decode(msg Message) (*DecodedEnvelope, error) {
	if sum, ok := msg.Headers[HeaderChecksum]; ok {
		if err := processors.ValidateChecksum(msg.Body, sum); err != nil {
			return nil, err
		}
	}

	body := msg.Body
	switch enc := msg.Headers[HeaderContentEncoding]; enc {
	case "":
	case processors.Encoding:
		var err error
		if body, err = processors.Decompress(body); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported content encoding: %s", enc)
	}

	var env DecodedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return &env, nil
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
