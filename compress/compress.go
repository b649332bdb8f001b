package compress

import (
	"errors"
	"fmt"

	"github.com/arloliu/mapicodec/format"
)

// MaxDecompressedSize bounds the output of every decompressor.
const MaxDecompressedSize = 64 * 1024 * 1024

// ErrTooLarge reports a blob that would decompress past MaxDecompressedSize.
var ErrTooLarge = errors.New("decompressed size exceeds limit")

// Decompressor restores a stored blob.
//
// Implementations are safe for concurrent use. The returned slice is owned
// by the caller and the input is never modified.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

var builtinDecompressors = map[format.CompressionType]Decompressor{
	format.CompressionNone: NewNoOpDecompressor(),
	format.CompressionZstd: NewZstdDecompressor(),
	format.CompressionS2:   NewS2Decompressor(),
	format.CompressionLZ4:  NewLZ4Decompressor(),
}

// GetDecompressor returns the built-in Decompressor for compressionType.
func GetDecompressor(compressionType format.CompressionType) (Decompressor, error) {
	if d, ok := builtinDecompressors[compressionType]; ok {
		return d, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}

// Decompress restores data compressed with compressionType.
func Decompress(compressionType format.CompressionType, data []byte) ([]byte, error) {
	d, err := GetDecompressor(compressionType)
	if err != nil {
		return nil, err
	}

	return d.Decompress(data)
}
