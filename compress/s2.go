package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// S2Decompressor decodes S2 and Snappy blocks.
type S2Decompressor struct{}

var _ Decompressor = S2Decompressor{}

// NewS2Decompressor creates an S2Decompressor.
func NewS2Decompressor() S2Decompressor {
	return S2Decompressor{}
}

// Decompress decodes one S2 block. The block header carries the output
// size, which is checked before allocating.
func (S2Decompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}
	if n > MaxDecompressedSize {
		return nil, fmt.Errorf("s2: %d bytes: %w", n, ErrTooLarge)
	}

	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}

	return out, nil
}
