package compress

// NoOpDecompressor returns stored blobs unchanged.
type NoOpDecompressor struct{}

var _ Decompressor = NoOpDecompressor{}

// NewNoOpDecompressor creates a NoOpDecompressor.
func NewNoOpDecompressor() NoOpDecompressor {
	return NoOpDecompressor{}
}

// Decompress returns a copy of data.
func (NoOpDecompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) > MaxDecompressedSize {
		return nil, ErrTooLarge
	}

	return append([]byte(nil), data...), nil
}
