package entryid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
)

// OneOff flag bits.
const (
	OneOffNoRichInfo uint16 = 0x0001
	OneOffUnicode    uint16 = 0x8000
)

// OneOff identifies a recipient that is not in any address book.
type OneOff struct {
	Header
	Version      uint16
	EntryFlags   uint16
	DisplayName  string
	AddressType  string
	EmailAddress string
}

func (*OneOff) Kind() Kind { return KindOneOff }

// Unicode reports whether the strings were stored as UTF-16.
func (o *OneOff) Unicode() bool {
	return o.EntryFlags&OneOffUnicode != 0
}

func decodeOneOff(_ *Decoder, h Header, r *cursor.Reader, _ int) (EntryID, error) {
	le := endian.GetLittleEndianEngine()
	fixed, err := r.Fixed(4)
	if err != nil {
		return nil, err
	}

	id := &OneOff{
		Header:     h,
		Version:    le.Uint16(fixed[0:2]),
		EntryFlags: le.Uint16(fixed[2:4]),
	}

	read := r.ANSICString
	if id.Unicode() {
		read = r.UTF16CString
	}
	fields := []struct {
		name string
		dst  *string
	}{
		{"display name", &id.DisplayName},
		{"address type", &id.AddressType},
		{"email address", &id.EmailAddress},
	}
	for _, f := range fields {
		if *f.dst, err = read(); err != nil {
			return nil, errs.Wrapf(err, "one-off %s", f.name)
		}
	}

	return id, nil
}

// AddressBook identifies an address book object by its X500 DN.
type AddressBook struct {
	Header
	Version uint32
	Type    uint32
	X500DN  string
}

func (*AddressBook) Kind() Kind { return KindAddressBook }

func decodeAddressBook(_ *Decoder, h Header, r *cursor.Reader, _ int) (EntryID, error) {
	le := endian.GetLittleEndianEngine()
	fixed, err := r.Fixed(8)
	if err != nil {
		return nil, err
	}

	id := &AddressBook{
		Header:  h,
		Version: le.Uint32(fixed[0:4]),
		Type:    le.Uint32(fixed[4:8]),
	}
	if id.X500DN, err = r.CString(); err != nil {
		return nil, errs.Wrapf(err, "address book x500 dn")
	}

	return id, nil
}

// ObjectType is the type discriminant of store folder and message identifiers.
type ObjectType uint16

const (
	TypePrivateFolder       ObjectType = 0x0001
	TypePublicFolder        ObjectType = 0x0003
	TypeMappedPublicFolder  ObjectType = 0x0005
	TypePrivateMessage      ObjectType = 0x0007
	TypePublicMessage       ObjectType = 0x0009
	TypeMappedPublicMessage ObjectType = 0x000B
	TypePublicNewsgroup     ObjectType = 0x000C
)

// IsFolder reports whether t is a folder type.
func (t ObjectType) IsFolder() bool {
	switch t {
	case TypePrivateFolder, TypePublicFolder, TypeMappedPublicFolder, TypePublicNewsgroup:
		return true
	}

	return false
}

// IsMessage reports whether t is a message type.
func (t ObjectType) IsMessage() bool {
	switch t {
	case TypePrivateMessage, TypePublicMessage, TypeMappedPublicMessage:
		return true
	}

	return false
}

func (t ObjectType) String() string {
	switch t {
	case TypePrivateFolder:
		return "PrivateFolder"
	case TypePublicFolder:
		return "PublicFolder"
	case TypeMappedPublicFolder:
		return "MappedPublicFolder"
	case TypePrivateMessage:
		return "PrivateMessage"
	case TypePublicMessage:
		return "PublicMessage"
	case TypeMappedPublicMessage:
		return "MappedPublicMessage"
	case TypePublicNewsgroup:
		return "PublicNewsgroup"
	default:
		return fmt.Sprintf("ObjectType(0x%04X)", uint16(t))
	}
}

const (
	// FolderSize is the total size of a folder entry id.
	FolderSize = HeaderSize + 2 + objectKeySize
	// MessageSize is the total size of a message entry id.
	MessageSize = HeaderSize + 2 + 2*objectKeySize

	// database GUID, 6-byte global counter, 2-byte pad
	objectKeySize = 16 + 6 + 2
)

// Folder identifies a folder in a message store.
type Folder struct {
	Header
	Type          ObjectType
	DatabaseGUID  uuid.UUID
	GlobalCounter uint64
}

func (*Folder) Kind() Kind { return KindFolder }

// Message identifies a message and the folder that holds it.
type Message struct {
	Header
	Type                 ObjectType
	FolderDatabaseGUID   uuid.UUID
	FolderGlobalCounter  uint64
	MessageDatabaseGUID  uuid.UUID
	MessageGlobalCounter uint64
}

func (*Message) Kind() Kind { return KindMessage }

// decodeStoreObjectID decodes the folder or message identifiers of a
// registered store provider.
func decodeStoreObjectID(_ *Decoder, h Header, r *cursor.Reader, _ int) (EntryID, error) {
	raw, err := r.Uint16(endian.GetLittleEndianEngine())
	if err != nil {
		return nil, err
	}

	typ := ObjectType(raw)
	switch {
	case typ.IsFolder():
		id := &Folder{Header: h, Type: typ}
		if id.DatabaseGUID, id.GlobalCounter, err = objectKey(r); err != nil {
			return nil, errs.Wrapf(err, "folder key")
		}

		return id, nil

	case typ.IsMessage():
		id := &Message{Header: h, Type: typ}
		if id.FolderDatabaseGUID, id.FolderGlobalCounter, err = objectKey(r); err != nil {
			return nil, errs.Wrapf(err, "message folder key")
		}
		if id.MessageDatabaseGUID, id.MessageGlobalCounter, err = objectKey(r); err != nil {
			return nil, errs.Wrapf(err, "message key")
		}

		return id, nil

	default:
		return nil, fmt.Errorf("%w: store object type %s", errs.ErrUnknownDiscriminant, typ)
	}
}

// objectKey reads a database GUID, a big-endian global counter and the pad.
func objectKey(r *cursor.Reader) (uuid.UUID, uint64, error) {
	fixed, err := r.Fixed(objectKeySize)
	if err != nil {
		return uuid.Nil, 0, err
	}

	guid := endian.GUID(fixed[0:16], endian.GetLittleEndianEngine())
	var counter uint64
	for _, c := range fixed[16:22] {
		counter = counter<<8 | uint64(c)
	}

	return guid, counter, nil
}

// General is an identifier from a registered provider whose payload is opaque.
type General struct {
	Header
	Data []byte
}

func (*General) Kind() Kind { return KindGeneral }

func decodeGeneral(_ *Decoder, h Header, r *cursor.Reader, _ int) (EntryID, error) {
	data, err := r.Bytes(r.Remaining())
	if err != nil {
		return nil, err
	}

	return &General{Header: h, Data: data}, nil
}

// ContactAddress identifies an address of a contact, such as its second email
// address, and embeds the entry id of the contact itself.
type ContactAddress struct {
	Header
	Version uint32
	Type    uint32
	Index   uint32
	Nested  EntryID
}

func (*ContactAddress) Kind() Kind { return KindContactAddress }

func decodeContactAddress(d *Decoder, h Header, r *cursor.Reader, depth int) (EntryID, error) {
	le := endian.GetLittleEndianEngine()
	fixed, err := r.Fixed(16)
	if err != nil {
		return nil, err
	}

	id := &ContactAddress{
		Header:  h,
		Version: le.Uint32(fixed[0:4]),
		Type:    le.Uint32(fixed[4:8]),
		Index:   le.Uint32(fixed[8:12]),
	}

	size := le.Uint32(fixed[12:16])
	if uint64(size) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: contact entry id size %d exceeds %d remaining bytes",
			errs.ErrTruncated, size, r.Remaining())
	}
	sub, err := r.Sub(int(size))
	if err != nil {
		return nil, err
	}
	if id.Nested, err = d.nested(sub, depth, KindContactAddress); err != nil {
		return nil, err
	}

	return id, nil
}

// Wrapped carries another entry id together with a type byte describing it.
type Wrapped struct {
	Header
	Type   uint8
	Nested EntryID
}

func (*Wrapped) Kind() Kind { return KindWrapped }

func decodeWrapped(d *Decoder, h Header, r *cursor.Reader, depth int) (EntryID, error) {
	typ, err := r.Uint8()
	if err != nil {
		return nil, err
	}

	id := &Wrapped{Header: h, Type: typ}
	if id.Nested, err = d.nested(r.Rest(), depth, KindWrapped); err != nil {
		return nil, err
	}

	return id, nil
}
