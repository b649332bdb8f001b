// Package compress decompresses stored property blobs.
//
// Property dumps and regression corpora keep raw property values compressed
// on disk. The decompressors here turn them back into the exact bytes the
// decoders expect:
//   - None: the blob is stored as is
//   - Zstd: Zstandard frames, decoded with pooled decoders
//   - S2: Snappy-compatible S2 blocks
//   - LZ4: raw LZ4 blocks without a frame header
//
// Every decompressor refuses to produce more than MaxDecompressedSize bytes,
// so a hostile blob cannot exhaust memory.
//
// Example:
//
//	d, err := compress.GetDecompressor(format.CompressionZstd)
//	if err != nil {
//		return err
//	}
//	raw, err := d.Decompress(stored)
package compress
