// Package cursor provides a bounded, position-tracking reader over a byte slice.
//
// Every decoder in mapicodec reads its input through a Reader. Reads never
// panic: a read past the end of the buffer returns errs.ErrTruncated and leaves
// the position unchanged, and ExpectEnd converts unconsumed bytes into
// errs.ErrTrailingBytes so decoders can enforce exact consumption.
//
// Integer reads take an explicit endian.EndianEngine because MAPI structures
// mix byte orders within a single blob.
package cursor

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"

	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
)

// Reader reads fixed-width integers, raw bytes and strings from a byte slice.
//
// A Reader is not safe for concurrent use; independent Readers over the same
// immutable slice are.
type Reader struct {
	data []byte
	off  int
}

// New creates a Reader positioned at the start of data.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total length of the underlying buffer.
func (r *Reader) Len() int {
	return len(r.data)
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unconsumed bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) need(n int) error {
	if n < 0 || n > r.Remaining() {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", errs.ErrTruncated, n, r.off, r.Remaining())
	}

	return nil
}

// take returns the next n bytes without copying and advances.
func (r *Reader) take(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.off : r.off+n]
	r.off += n

	return b, nil
}

// Uint8 reads one byte.
func (r *Reader) Uint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// Uint16 reads a 16-bit integer.
func (r *Reader) Uint16(engine endian.EndianEngine) (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}

	return engine.Uint16(b), nil
}

// Uint32 reads a 32-bit integer.
func (r *Reader) Uint32(engine endian.EndianEngine) (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}

	return engine.Uint32(b), nil
}

// Uint64 reads a 64-bit integer.
func (r *Reader) Uint64(engine endian.EndianEngine) (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}

	return engine.Uint64(b), nil
}

// Uint48BE reads a 6-byte big-endian unsigned integer, the layout of MAPI global counters.
func (r *Reader) Uint48BE() (uint64, error) {
	b, err := r.take(6)
	if err != nil {
		return 0, err
	}

	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}

	return v, nil
}

// Bytes reads n bytes and returns a copy owned by the caller.
func (r *Reader) Bytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}

	return bytes.Clone(b), nil
}

// Fixed reads exactly n bytes without copying. The result aliases the input
// buffer and must not be retained in decoded records.
func (r *Reader) Fixed(n int) ([]byte, error) {
	return r.take(n)
}

// Peek returns the next n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}

	return r.data[r.off : r.off+n], nil
}

// Skip advances n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.take(n)
	return err
}

// GUID reads a 16-byte GUID whose first three fields use the given byte order.
func (r *Reader) GUID(engine endian.EndianEngine) (uuid.UUID, error) {
	b, err := r.take(endian.GUIDSize)
	if err != nil {
		return uuid.Nil, err
	}

	return endian.GUID(b, engine), nil
}

// Sub returns a Reader over the next n bytes and advances past them.
// The child shares the parent's memory.
func (r *Reader) Sub(n int) (*Reader, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}

	return New(b), nil
}

// Rest returns a Reader over all remaining bytes and advances to the end.
func (r *Reader) Rest() *Reader {
	sub, _ := r.Sub(r.Remaining())
	return sub
}

// ExpectEnd fails if any bytes remain unconsumed.
func (r *Reader) ExpectEnd() error {
	if n := r.Remaining(); n != 0 {
		return fmt.Errorf("%w: %d bytes left at offset %d", errs.ErrTrailingBytes, n, r.off)
	}

	return nil
}
