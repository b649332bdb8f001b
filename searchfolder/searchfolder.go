// Package searchfolder decodes PidTagSearchFolderDefinition values.
//
// A definition carries its own restriction grammar. Nodes start with a
// 4-byte restriction type and every count is 32 bits wide, so the rule
// package's restriction decoder cannot read it and the node types here are
// distinct from rule's.
//
// Example:
//
//	def, err := searchfolder.Decode(blob)
//	if err != nil {
//		return err
//	}
//	if def.Flags.Has(searchfolder.FlagRestriction) {
//		walk(def.Restriction)
//	}
package searchfolder

import (
	"fmt"
	"strings"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/entryid"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/internal/options"
	"github.com/arloliu/mapicodec/propvalue"
)

// DefaultMaxDepth is the default limit on restriction nesting.
const DefaultMaxDepth = 32

// Flags describe which optional sections a definition carries.
type Flags uint32

const (
	FlagNumber       Flags = 0x0001
	FlagText         Flags = 0x0002
	FlagBinary       Flags = 0x0004
	FlagRestriction  Flags = 0x0008
	FlagFilterStream Flags = 0x0010
)

// Has reports whether every bit of mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

func (f Flags) String() string {
	names := []struct {
		flag Flags
		name string
	}{
		{FlagNumber, "Number"},
		{FlagText, "Text"},
		{FlagBinary, "Binary"},
		{FlagRestriction, "Restriction"},
		{FlagFilterStream, "FilterStream"},
	}

	var parts []string
	rest := f
	for _, n := range names {
		if f&n.flag != 0 {
			parts = append(parts, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%X", uint32(rest)))
	}
	if len(parts) == 0 {
		return "0"
	}

	return strings.Join(parts, "|")
}

// Address is one entry of the address list present when FlagBinary is set.
type Address struct {
	Properties []propvalue.TaggedValue
}

// Definition is a decoded search folder definition. Optional sections are
// nil when their flag is clear.
type Definition struct {
	Version        uint32
	Flags          Flags
	NumericSearch  uint32
	TextSearch     string
	SkipBlock1     []byte
	DeepSearch     uint32
	FolderList1    string
	FolderList2    []entryid.EntryID
	Addresses      []Address
	SkipBlock2     []byte
	Restriction    Restriction
	AdvancedSearch []byte
	SkipBlock3     []byte
}

// Config holds decoder construction options.
type Config struct {
	maxDepth int
	entryIDs *entryid.Decoder
}

// Option configures a Decoder.
type Option = options.Option[*Config]

// WithMaxDepth limits restriction nesting. The root node has depth 1.
func WithMaxDepth(depth int) Option {
	return options.New(func(c *Config) error {
		if depth < 1 {
			return fmt.Errorf("max depth must be positive, got %d", depth)
		}
		c.maxDepth = depth

		return nil
	})
}

// WithEntryIDDecoder sets the decoder used for the folder entry id list and
// for entry id values in the search restriction.
func WithEntryIDDecoder(d *entryid.Decoder) Option {
	return options.NoError(func(c *Config) {
		c.entryIDs = d
	})
}

// Decoder decodes search folder definitions.
type Decoder struct {
	maxDepth int
	entryIDs *entryid.Decoder
}

// NewDecoder builds a Decoder.
func NewDecoder(opts ...Option) (*Decoder, error) {
	cfg := &Config{maxDepth: DefaultMaxDepth}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.entryIDs == nil {
		d, err := entryid.NewDecoder()
		if err != nil {
			return nil, err
		}
		cfg.entryIDs = d
	}

	return &Decoder{maxDepth: cfg.maxDepth, entryIDs: cfg.entryIDs}, nil
}

var defaultDecoder, _ = NewDecoder()

// Decode decodes a search folder definition with default options.
func Decode(data []byte) (*Definition, error) {
	return defaultDecoder.Decode(data)
}

// DecodeRestriction decodes a bare search restriction with default options.
func DecodeRestriction(data []byte) (Restriction, error) {
	return defaultDecoder.DecodeRestriction(data)
}

// DecodeRestriction decodes a bare search restriction occupying all of data.
//
// Returns:
//   - Restriction: The root node
//   - error: errs.ErrCorrupted (or a refinement), errs.ErrDepthExceeded past the depth limit
func (d *Decoder) DecodeRestriction(data []byte) (Restriction, error) {
	r := cursor.New(data)
	res, err := d.readRestriction(r, 1)
	if err != nil {
		return nil, err
	}
	if err := r.ExpectEnd(); err != nil {
		return nil, err
	}

	return res, nil
}

// Decode decodes a search folder definition occupying all of data.
//
// Layout (little-endian):
//
//	u32 Version
//	u32 Flags
//	u32 NumericSearch
//	text TextSearch
//	u32 SkipLen1, SkipLen1 bytes
//	u32 DeepSearch
//	text FolderList1
//	u32 FolderList2Length, EntryList
//	[Binary] u32 AddressCount, AddressCount x (u32 PropertyCount, u32 Pad, values)
//	u32 SkipLen2, SkipLen2 bytes
//	[Restriction] restriction
//	[FilterStream] u32 AdvancedSearchLen, AdvancedSearchLen bytes
//	u32 SkipLen3, SkipLen3 bytes
//
// A text field is a u8 character count, or 0xFF followed by a u16 count,
// then that many UTF-16LE characters.
//
// Parameters:
//   - data: The PidTagSearchFolderDefinition value
//
// Returns:
//   - *Definition: Every section, with absent optional sections left zero
//   - error: errs.ErrCorrupted (or a refinement), wrapped with the failing section
func (d *Decoder) Decode(data []byte) (*Definition, error) {
	le := endian.GetLittleEndianEngine()
	r := cursor.New(data)
	def := &Definition{}

	head, err := r.Fixed(12)
	if err != nil {
		return nil, errs.Wrapf(err, "search folder header")
	}
	def.Version = le.Uint32(head[0:4])
	def.Flags = Flags(le.Uint32(head[4:8]))
	def.NumericSearch = le.Uint32(head[8:12])

	if def.TextSearch, err = readText(r); err != nil {
		return nil, errs.Wrapf(err, "text search")
	}
	if def.SkipBlock1, err = readBlock(r); err != nil {
		return nil, errs.Wrapf(err, "skip block 1")
	}
	if def.DeepSearch, err = r.Uint32(le); err != nil {
		return nil, errs.Wrapf(err, "deep search")
	}
	if def.FolderList1, err = readText(r); err != nil {
		return nil, errs.Wrapf(err, "folder list 1")
	}
	if def.FolderList2, err = d.readFolderList(r); err != nil {
		return nil, errs.Wrapf(err, "folder list 2")
	}

	if def.Flags.Has(FlagBinary) {
		if def.Addresses, err = readAddresses(r); err != nil {
			return nil, errs.Wrapf(err, "address list")
		}
	}
	if def.SkipBlock2, err = readBlock(r); err != nil {
		return nil, errs.Wrapf(err, "skip block 2")
	}
	if def.Flags.Has(FlagRestriction) {
		if def.Restriction, err = d.readRestriction(r, 1); err != nil {
			return nil, errs.Wrapf(err, "search restriction")
		}
	}
	if def.Flags.Has(FlagFilterStream) {
		if def.AdvancedSearch, err = readBlock(r); err != nil {
			return nil, errs.Wrapf(err, "advanced search")
		}
	}
	if def.SkipBlock3, err = readBlock(r); err != nil {
		return nil, errs.Wrapf(err, "skip block 3")
	}

	if err := r.ExpectEnd(); err != nil {
		return nil, errs.Wrapf(err, "search folder definition")
	}

	return def, nil
}

// extendedLength marks a text field whose count follows as a u16.
const extendedLength = 0xFF

func readText(r *cursor.Reader) (string, error) {
	n, err := r.Uint8()
	if err != nil {
		return "", err
	}
	chars := int(n)
	if n == extendedLength {
		ext, err := r.Uint16(endian.GetLittleEndianEngine())
		if err != nil {
			return "", err
		}
		chars = int(ext)
	}
	if chars == 0 {
		return "", nil
	}

	return r.UTF16(chars)
}

// readBlock reads a u32 length followed by that many bytes. An empty block
// is returned as nil.
func readBlock(r *cursor.Reader) ([]byte, error) {
	n, err := r.Uint32(endian.GetLittleEndianEngine())
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: block length %d exceeds %d remaining bytes", errs.ErrTruncated, n, r.Remaining())
	}
	if n == 0 {
		return nil, nil
	}

	return r.Bytes(int(n))
}

func (d *Decoder) readFolderList(r *cursor.Reader) ([]entryid.EntryID, error) {
	raw, err := readBlock(r)
	if err != nil || raw == nil {
		return nil, err
	}

	return d.entryIDs.DecodeList(raw)
}

func readAddresses(r *cursor.Reader) ([]Address, error) {
	le := endian.GetLittleEndianEngine()

	count, err := r.Uint32(le)
	if err != nil {
		return nil, err
	}
	// property count and pad
	if uint64(count)*8 > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %d addresses exceed %d remaining bytes", errs.ErrTruncated, count, r.Remaining())
	}

	addrs := make([]Address, count)
	for i := range addrs {
		head, err := r.Fixed(8)
		if err != nil {
			return nil, err
		}
		n := le.Uint32(head[0:4])
		if uint64(n)*4 > uint64(r.Remaining()) {
			return nil, fmt.Errorf("%w: address %d has %d properties, %d bytes remain",
				errs.ErrTruncated, i, n, r.Remaining())
		}

		props := make([]propvalue.TaggedValue, n)
		for j := range props {
			if props[j], err = propvalue.ReadTagged(r, propvalue.Extended); err != nil {
				return nil, errs.Wrapf(err, "address %d property %d", i, j)
			}
		}
		addrs[i].Properties = props
	}

	return addrs, nil
}
