// Package endian provides byte order utilities for binary decoding.
//
// MAPI structures mix byte orders: most integers are little-endian, the
// conversation index is big-endian, and GUIDs store their first three fields
// in either order depending on the structure that embeds them. This package
// combines encoding/binary's ByteOrder and AppendByteOrder into a single
// EndianEngine and adds the GUID field-order conversion.
//
// # Basic Usage
//
//	engine := endian.GetLittleEndianEngine()
//	v := engine.Uint32(data[0:4])
//
//	id := endian.GUID(data[4:20], engine) // MS wire GUID -> canonical uuid.UUID
//
// # Thread Safety
//
// All functions and methods in this package are safe for concurrent use.
// The returned EndianEngine instances are immutable and stateless.
package endian

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// GUIDSize is the wire size of a GUID.
const GUIDSize = 16

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
//
// This interface is satisfied by binary.LittleEndian and binary.BigEndian from
// the standard library.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// IsLittleEndian reports whether engine is the little-endian engine.
func IsLittleEndian(engine EndianEngine) bool {
	return engine == binary.LittleEndian
}

// GUID converts 16 wire bytes into a canonical uuid.UUID.
//
// With the little-endian engine the bytes are in Windows GUID layout
// (Data1, Data2 and Data3 stored little-endian, Data4 as bytes) and the first
// three fields are swapped into RFC 4122 order. With the big-endian engine the
// bytes are already in RFC 4122 order and are copied as-is.
//
// Parameters:
//   - b: at least 16 bytes
//   - engine: byte order of the Data1..Data3 fields
//
// Returns:
//   - uuid.UUID: canonical GUID
func GUID(b []byte, engine EndianEngine) uuid.UUID {
	var id uuid.UUID
	copy(id[:], b[:GUIDSize])

	if !IsLittleEndian(engine) {
		return id
	}

	binary.BigEndian.PutUint32(id[0:4], engine.Uint32(b[0:4]))
	binary.BigEndian.PutUint16(id[4:6], engine.Uint16(b[4:6]))
	binary.BigEndian.PutUint16(id[6:8], engine.Uint16(b[6:8]))

	return id
}

// AppendGUID appends the wire form of id in the given field order. It is the
// inverse of GUID and is used by tests and fixtures that build MAPI blobs.
func AppendGUID(dst []byte, id uuid.UUID, engine EndianEngine) []byte {
	if !IsLittleEndian(engine) {
		return append(dst, id[:]...)
	}

	dst = engine.AppendUint32(dst, binary.BigEndian.Uint32(id[0:4]))
	dst = engine.AppendUint16(dst, binary.BigEndian.Uint16(id[4:6]))
	dst = engine.AppendUint16(dst, binary.BigEndian.Uint16(id[6:8]))

	return append(dst, id[8:]...)
}
