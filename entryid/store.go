package entryid

import (
	"fmt"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
)

const (
	// DLLNameSize is the minimum space taken by the DLL name, terminator included.
	DLLNameSize = 14

	// WrappedTypePrivateMailbox marks a store that is a user's mailbox.
	WrappedTypePrivateMailbox uint32 = 0x0000000C
	// WrappedTypePublicFolders marks the public folder store.
	WrappedTypePublicFolders uint32 = 0x00000006

	// StoreMagicV2 starts a V2 extension block.
	StoreMagicV2 uint32 = 0xF43246E9
	// StoreMagicV3 starts a V3 extension block.
	StoreMagicV3 uint32 = 0xF32135D8
)

// Store identifies a message store through the store wrapper provider.
//
// ServerShortName and MailboxDN are nil when the identifier ends before them.
type Store struct {
	Header
	Version            uint8
	Flag               uint8
	DLLName            string
	WrappedFlags       uint32
	WrappedProviderUID ProviderUID
	WrappedType        uint32
	ServerShortName    *string
	MailboxDN          *string
}

func (*Store) Kind() Kind { return KindStore }

// StoreObject is a Store identifier followed by a V2 or V3 extension block.
type StoreObject struct {
	Store
	Extension StoreExtension
}

func (*StoreObject) Kind() Kind { return KindStoreObject }

// StoreExtension is the versioned block that may follow a store identifier.
//
// A V2 block names the server by DN and FQDN; a V3 block carries the SMTP
// address of the mailbox. String fields whose offset is zero are nil.
type StoreExtension struct {
	Magic       uint32
	Size        uint32
	Version     uint32
	OffsetDN    uint32
	OffsetFQDN  uint32
	OffsetSMTP  uint32
	ServerDN    *string
	ServerFQDN  *string
	SMTPAddress *string
}

// IsV3 reports whether the block is a V3 block.
func (e *StoreExtension) IsV3() bool {
	return e.Magic == StoreMagicV3
}

func decodeStoreWrap(_ *Decoder, h Header, r *cursor.Reader, _ int) (EntryID, error) {
	store, err := decodeStoreBody(h, r)
	if err != nil {
		return nil, err
	}
	if r.Remaining() == 0 {
		return store, nil
	}

	ext, err := decodeStoreExtension(r)
	if err != nil {
		return nil, errs.Wrapf(err, "store extension")
	}

	return &StoreObject{Store: *store, Extension: ext}, nil
}

func decodeStoreBody(h Header, r *cursor.Reader) (*Store, error) {
	le := endian.GetLittleEndianEngine()
	fixed, err := r.Fixed(2)
	if err != nil {
		return nil, err
	}
	s := &Store{Header: h, Version: fixed[0], Flag: fixed[1]}

	start := r.Offset()
	if s.DLLName, err = r.CString(); err != nil {
		return nil, errs.Wrapf(err, "store dll name")
	}
	if used := r.Offset() - start; used < DLLNameSize {
		if err := r.Skip(DLLNameSize - used); err != nil {
			return nil, errs.Wrapf(err, "store dll name padding")
		}
	}

	fixed, err = r.Fixed(4 + ProviderUIDSize + 4)
	if err != nil {
		return nil, err
	}
	s.WrappedFlags = le.Uint32(fixed[0:4])
	copy(s.WrappedProviderUID[:], fixed[4:20])
	s.WrappedType = le.Uint32(fixed[20:24])

	if r.Remaining() == 0 {
		return s, nil
	}
	name, err := r.CString()
	if err != nil {
		return nil, errs.Wrapf(err, "store server short name")
	}
	s.ServerShortName = &name

	if s.WrappedType&0xFF == WrappedTypePrivateMailbox && r.Remaining() > 0 && !atStoreMagic(r) {
		dn, err := r.CString()
		if err != nil {
			return nil, errs.Wrapf(err, "store mailbox dn")
		}
		s.MailboxDN = &dn
	}

	return s, nil
}

func atStoreMagic(r *cursor.Reader) bool {
	b, err := r.Peek(4)
	if err != nil {
		return false
	}
	magic := endian.GetLittleEndianEngine().Uint32(b)

	return magic == StoreMagicV2 || magic == StoreMagicV3
}

// decodeStoreExtension reads a V2 or V3 block. The block spans exactly its
// declared size, measured from the magic; strings must start at their
// declared offsets and any bytes after the last string are padding.
func decodeStoreExtension(r *cursor.Reader) (StoreExtension, error) {
	le := endian.GetLittleEndianEngine()
	var ext StoreExtension

	fixed, err := r.Peek(8)
	if err != nil {
		return ext, err
	}
	ext.Magic = le.Uint32(fixed[0:4])
	ext.Size = le.Uint32(fixed[4:8])
	if ext.Magic != StoreMagicV2 && ext.Magic != StoreMagicV3 {
		return ext, fmt.Errorf("%w: store extension magic 0x%08X", errs.ErrUnknownDiscriminant, ext.Magic)
	}
	if uint64(ext.Size) > uint64(r.Remaining()) {
		return ext, fmt.Errorf("%w: store extension size %d exceeds %d remaining bytes",
			errs.ErrTruncated, ext.Size, r.Remaining())
	}

	block, err := r.Sub(int(ext.Size))
	if err != nil {
		return ext, err
	}
	headerSize := 20
	if ext.IsV3() {
		headerSize = 16
	}
	head, err := block.Fixed(headerSize)
	if err != nil {
		return ext, fmt.Errorf("%w: store extension size %d below header size", errs.ErrSizeMismatch, ext.Size)
	}
	ext.Version = le.Uint32(head[8:12])

	if ext.IsV3() {
		ext.OffsetSMTP = le.Uint32(head[12:16])
		if ext.SMTPAddress, err = extensionString(block, ext.OffsetSMTP, (*cursor.Reader).UTF16CString); err != nil {
			return ext, errs.Wrapf(err, "smtp address")
		}
	} else {
		ext.OffsetDN = le.Uint32(head[12:16])
		ext.OffsetFQDN = le.Uint32(head[16:20])
		if ext.ServerDN, err = extensionString(block, ext.OffsetDN, (*cursor.Reader).CString); err != nil {
			return ext, errs.Wrapf(err, "server dn")
		}
		if ext.ServerFQDN, err = extensionString(block, ext.OffsetFQDN, (*cursor.Reader).UTF16CString); err != nil {
			return ext, errs.Wrapf(err, "server fqdn")
		}
	}

	return ext, nil
}

func extensionString(block *cursor.Reader, offset uint32, read func(*cursor.Reader) (string, error)) (*string, error) {
	if offset == 0 {
		return nil, nil
	}
	if uint64(offset) != uint64(block.Offset()) {
		return nil, fmt.Errorf("%w: string offset %d, expected %d", errs.ErrSizeMismatch, offset, block.Offset())
	}
	s, err := read(block)
	if err != nil {
		return nil, err
	}

	return &s, nil
}
