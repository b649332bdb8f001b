package compress

import (
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/mapicodec/internal/pool"
)

// LZ4Decompressor decodes raw LZ4 blocks.
type LZ4Decompressor struct{}

var _ Decompressor = LZ4Decompressor{}

// NewLZ4Decompressor creates an LZ4Decompressor.
func NewLZ4Decompressor() LZ4Decompressor {
	return LZ4Decompressor{}
}

// Decompress decodes one LZ4 block.
//
// A raw block does not record its decompressed size, so decoding starts
// with a scratch buffer four times the input and doubles it until the
// block fits or MaxDecompressedSize is reached.
func (LZ4Decompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	buf := pool.GetScratch()
	defer pool.PutScratch(buf)

	size := min(len(data)*4, MaxDecompressedSize)
	for {
		buf.Reset()
		buf.ExtendOrGrow(size)

		n, err := lz4.UncompressBlock(data, buf.Bytes())
		if err == nil {
			return append([]byte(nil), buf.Bytes()[:n]...), nil
		}
		if !errors.Is(err, lz4.ErrInvalidSourceShortBuffer) {
			return nil, fmt.Errorf("lz4 decompression failed: %w", err)
		}
		if size >= MaxDecompressedSize {
			return nil, fmt.Errorf("lz4: %w", ErrTooLarge)
		}
		size = min(size*2, MaxDecompressedSize)
	}
}
