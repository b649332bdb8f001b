package compress

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/mapicodec/format"
)

// sampleBlob resembles a property dump: repetitive headers with varying ids.
func sampleBlob(n int) []byte {
	var buf bytes.Buffer
	for i := range n {
		buf.Write([]byte{0x00, 0x00, 0x00, 0x00})
		buf.Write([]byte{0x1B, 0x55, 0xFA, 0x20, 0xAA, 0x66, 0x11, 0xCD, 0x9B, 0xC8, 0x00, 0xAA, 0x00, 0x2F, 0xC4, 0x5A})
		buf.WriteByte(byte(i))
		buf.WriteByte(byte(i >> 8))
	}

	return buf.Bytes()
}

func zstdEncode(t testing.TB, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()

	return enc.EncodeAll(data, nil)
}

func lz4Encode(t testing.TB, data []byte) []byte {
	t.Helper()
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	var c lz4.Compressor
	n, err := c.CompressBlock(data, dst)
	require.NoError(t, err)
	require.NotZero(t, n, "sample must be compressible")

	return dst[:n]
}

func TestDecompress_RoundTrip(t *testing.T) {
	for _, size := range []int{100, 10_000} {
		original := sampleBlob(size)

		tests := []struct {
			name   string
			typ    format.CompressionType
			stored []byte
		}{
			{"None", format.CompressionNone, original},
			{"Zstd", format.CompressionZstd, zstdEncode(t, original)},
			{"S2", format.CompressionS2, s2.Encode(nil, original)},
			{"LZ4", format.CompressionLZ4, lz4Encode(t, original)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := Decompress(tt.typ, tt.stored)
				require.NoError(t, err)
				require.Equal(t, original, got)
			})
		}
	}
}

func TestDecompress_LZ4GrowsBuffer(t *testing.T) {
	// highly repetitive input compresses far better than 4:1
	original := bytes.Repeat([]byte{0xAB}, 256*1024)
	stored := lz4Encode(t, original)
	require.Less(t, len(stored)*4, len(original))

	got, err := NewLZ4Decompressor().Decompress(stored)
	require.NoError(t, err)
	require.Equal(t, original, got)
}

func TestDecompress_Empty(t *testing.T) {
	for _, typ := range []format.CompressionType{format.CompressionZstd, format.CompressionS2, format.CompressionLZ4} {
		got, err := Decompress(typ, nil)
		require.NoError(t, err, typ.String())
		require.Empty(t, got)
	}
}

func TestDecompress_Corrupted(t *testing.T) {
	garbage := []byte("definitely not a compressed stream")

	_, err := NewZstdDecompressor().Decompress(garbage)
	require.Error(t, err)

	_, err = NewS2Decompressor().Decompress([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x0F, 0x00})
	require.Error(t, err)
}

func TestDecompress_S2TooLarge(t *testing.T) {
	// varint length header of 128 MiB with no body
	header := []byte{0x80, 0x80, 0x80, 0x40}

	_, err := NewS2Decompressor().Decompress(header)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestDecompress_NoOpCopies(t *testing.T) {
	in := []byte{1, 2, 3}
	out, err := NewNoOpDecompressor().Decompress(in)
	require.NoError(t, err)
	out[0] = 9
	require.Equal(t, byte(1), in[0])
}

func TestGetDecompressor(t *testing.T) {
	for _, typ := range []format.CompressionType{
		format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4,
	} {
		d, err := GetDecompressor(typ)
		require.NoError(t, err)
		require.NotNil(t, d)
	}

	_, err := GetDecompressor(format.CompressionType(0x7F))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported compression type")
}

var errMismatch = errors.New("decompressed content mismatch")

func TestZstdDecompressor_Concurrent(t *testing.T) {
	original := sampleBlob(2_000)
	stored := zstdEncode(t, original)
	d := NewZstdDecompressor()

	var wg sync.WaitGroup
	errCh := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := d.Decompress(stored)
			if err == nil && !bytes.Equal(original, got) {
				err = errMismatch
			}
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}
}
