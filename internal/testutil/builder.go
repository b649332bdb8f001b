// Package testutil builds MAPI wire blobs for tests.
package testutil

import (
	"encoding/binary"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"

	"github.com/arloliu/mapicodec/endian"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Builder appends little-endian fields unless a method says otherwise.
type Builder struct {
	buf []byte
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) Bytes() []byte {
	return b.buf
}

func (b *Builder) Len() int {
	return len(b.buf)
}

func (b *Builder) U8(v uint8) *Builder {
	b.buf = append(b.buf, v)
	return b
}

func (b *Builder) U16(v uint16) *Builder {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
	return b
}

func (b *Builder) U32(v uint32) *Builder {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
	return b
}

func (b *Builder) U64(v uint64) *Builder {
	b.buf = binary.LittleEndian.AppendUint64(b.buf, v)
	return b
}

func (b *Builder) U16BE(v uint16) *Builder {
	b.buf = binary.BigEndian.AppendUint16(b.buf, v)
	return b
}

func (b *Builder) U32BE(v uint32) *Builder {
	b.buf = binary.BigEndian.AppendUint32(b.buf, v)
	return b
}

// U48BE appends the low 48 bits of v big-endian.
func (b *Builder) U48BE(v uint64) *Builder {
	for shift := 40; shift >= 0; shift -= 8 {
		b.buf = append(b.buf, byte(v>>shift))
	}

	return b
}

func (b *Builder) Raw(p ...byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

func (b *Builder) Zeros(n int) *Builder {
	b.buf = append(b.buf, make([]byte, n)...)
	return b
}

// GUID appends id in Windows layout (little-endian Data1..Data3).
func (b *Builder) GUID(id uuid.UUID) *Builder {
	b.buf = endian.AppendGUID(b.buf, id, endian.GetLittleEndianEngine())
	return b
}

// GUIDBE appends id in RFC 4122 byte order.
func (b *Builder) GUIDBE(id uuid.UUID) *Builder {
	b.buf = append(b.buf, id[:]...)
	return b
}

// CString appends s followed by a NUL byte.
func (b *Builder) CString(s string) *Builder {
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)

	return b
}

// UTF16 appends s as UTF-16LE without a terminator.
func (b *Builder) UTF16(s string) *Builder {
	b.buf = append(b.buf, UTF16(s)...)
	return b
}

// UTF16CString appends s as UTF-16LE followed by a 16-bit NUL.
func (b *Builder) UTF16CString(s string) *Builder {
	return b.UTF16(s).U16(0)
}

// Str8 appends a u8 length prefix and the bytes of s.
func (b *Builder) Str8(s string) *Builder {
	return b.U8(uint8(len(s))).Raw([]byte(s)...) //nolint:gosec
}

// WStr8 appends a u8 character-count prefix and s as UTF-16LE.
func (b *Builder) WStr8(s string) *Builder {
	return b.U8(uint8(len(UTF16(s)) / 2)).UTF16(s) //nolint:gosec
}

// UTF16 returns the UTF-16LE bytes of s.
func UTF16(s string) []byte {
	out, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		panic(err)
	}

	return out
}
