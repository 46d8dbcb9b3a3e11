package processors

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/xxh3"
)

// ChecksumHeader имя заголовка сообщения с контрольной суммой тела
const ChecksumHeader = "x-checksum-xxh3"

// ChecksumProcessor считает xxh3 блока и передает его в callback.
// Блок проходит без изменений.
type ChecksumProcessor struct {
	callback func(sum string)
}

// NewChecksumProcessor создает процессор контрольной суммы
func NewChecksumProcessor(callback func(sum string)) *ChecksumProcessor {
	return &ChecksumProcessor{callback: callback}
}

func (p *ChecksumProcessor) ProcessBlock(_ context.Context, input []byte) ([]byte, error) {
	if p.callback != nil {
		p.callback(ComputeChecksum(input))
	}
	return input, nil
}

// ComputeChecksum возвращает xxh3 (64-bit) в hex, big-endian
func ComputeChecksum(data []byte) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], xxh3.Hash(data))
	return hex.EncodeToString(b[:])
}

// ValidateChecksum проверяет данные по ожидаемой сумме
func ValidateChecksum(data []byte, expected string) error {
	if actual := ComputeChecksum(data); actual != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}
