// Package entryid decodes MAPI entry identifiers.
//
// Every entry id starts with a 20-byte header: a 4-byte flags field followed
// by a 16-byte provider UID. The provider UID selects the layout of the rest
// of the identifier. Well-known providers (one-off recipients, the address
// book, the store wrapper, the contact address book and wrapped identifiers)
// are always recognized; store-specific providers that produce folder and
// message identifiers, and providers whose payload is opaque, must be
// registered on the Decoder.
//
// An identifier whose provider UID is in neither set fails with
// errs.ErrUnknownProvider. Every decode must consume the whole input.
//
// # Basic Usage
//
//	dec, err := entryid.NewDecoder(
//	    entryid.WithStoreProvider(mailboxUID),
//	    entryid.WithMaxDepth(8),
//	)
//	if err != nil {
//	    return err
//	}
//
//	id, err := dec.Decode(raw)
//	if err != nil {
//	    return err // errors.Is(err, errs.ErrCorrupted)
//	}
//
//	switch v := id.(type) {
//	case *entryid.Folder:
//	    fmt.Println(v.DatabaseGUID, v.GlobalCounter)
//	case *entryid.Wrapped:
//	    fmt.Println(v.Nested.Kind())
//	}
//
// # Thread Safety
//
// A Decoder is immutable after NewDecoder returns and is safe for concurrent use.
package entryid

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
)

// HeaderSize is the size of the flags and provider UID common to every entry id.
const HeaderSize = 4 + ProviderUIDSize

// ProviderUIDSize is the wire size of a provider UID.
const ProviderUIDSize = endian.GUIDSize

// ProviderUID is a provider UID as it appears on the wire.
type ProviderUID [ProviderUIDSize]byte

// Well-known provider UIDs.
var (
	OneOffProviderUID = ProviderUID{
		0x81, 0x2B, 0x1F, 0xA4, 0xBE, 0xA3, 0x10, 0x19,
		0x9D, 0x6E, 0x00, 0xDD, 0x01, 0x0F, 0x54, 0x02,
	}
	AddressBookProviderUID = ProviderUID{
		0xDC, 0xA7, 0x40, 0xC8, 0xC0, 0x42, 0x10, 0x1A,
		0xB4, 0xB9, 0x08, 0x00, 0x2B, 0x2F, 0xE1, 0x82,
	}
	StoreWrapProviderUID = ProviderUID{
		0x38, 0xA1, 0xBB, 0x10, 0x05, 0xE5, 0x10, 0x1A,
		0xA1, 0xBB, 0x08, 0x00, 0x2B, 0x2A, 0x56, 0xC2,
	}
	ContactAddressProviderUID = ProviderUID{
		0xFE, 0x42, 0xAA, 0x0A, 0x18, 0xC7, 0x1A, 0x10,
		0xE8, 0x85, 0x0B, 0x65, 0x1C, 0x24, 0x00, 0x00,
	}
	WrappedProviderUID = ProviderUID{
		0xC0, 0x91, 0xAD, 0xD3, 0x51, 0x9D, 0xCF, 0x11,
		0xA4, 0xA9, 0x00, 0xAA, 0x00, 0x47, 0xFA, 0xA4,
	}
)

// ParseProviderUID parses 32 hex digits in wire byte order.
func ParseProviderUID(s string) (ProviderUID, error) {
	var uid ProviderUID
	b, err := hex.DecodeString(s)
	if err != nil {
		return uid, fmt.Errorf("invalid provider uid %q: %w", s, err)
	}
	if len(b) != ProviderUIDSize {
		return uid, fmt.Errorf("invalid provider uid %q: %d bytes, want %d", s, len(b), ProviderUIDSize)
	}
	copy(uid[:], b)

	return uid, nil
}

// GUID returns the provider UID as a canonical GUID, reading the wire bytes
// in Windows field order.
func (u ProviderUID) GUID() uuid.UUID {
	return endian.GUID(u[:], endian.GetLittleEndianEngine())
}

// String returns the wire bytes as upper-case hex.
func (u ProviderUID) String() string {
	return fmt.Sprintf("%X", u[:])
}

// MarshalText renders the UID the way String does.
func (u ProviderUID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// Kind identifies an entry id variant.
type Kind uint8

const (
	KindOneOff Kind = iota + 1
	KindAddressBook
	KindFolder
	KindMessage
	KindStore
	KindStoreObject
	KindGeneral
	KindContactAddress
	KindWrapped
)

func (k Kind) String() string {
	switch k {
	case KindOneOff:
		return "OneOff"
	case KindAddressBook:
		return "AddressBook"
	case KindFolder:
		return "Folder"
	case KindMessage:
		return "Message"
	case KindStore:
		return "Store"
	case KindStoreObject:
		return "StoreObject"
	case KindGeneral:
		return "General"
	case KindContactAddress:
		return "ContactAddress"
	case KindWrapped:
		return "Wrapped"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Header is the prefix shared by every entry id.
type Header struct {
	Flags       uint32
	ProviderUID ProviderUID
}

// Common returns the header.
func (h Header) Common() Header {
	return h
}

func (Header) isEntryID() {}

// EntryID is one of *OneOff, *AddressBook, *Folder, *Message, *Store,
// *StoreObject, *General, *ContactAddress or *Wrapped.
type EntryID interface {
	Kind() Kind
	Common() Header
	isEntryID()
}

func readHeader(r *cursor.Reader) (Header, error) {
	var h Header
	fixed, err := r.Fixed(HeaderSize)
	if err != nil {
		return h, fmt.Errorf("%w: entry id shorter than %d byte header", errs.ErrTruncated, HeaderSize)
	}
	h.Flags = endian.GetLittleEndianEngine().Uint32(fixed[0:4])
	copy(h.ProviderUID[:], fixed[4:])

	return h, nil
}
