package searchfolder

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/mapicodec/entryid"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/format"
	"github.com/arloliu/mapicodec/internal/testutil"
	"github.com/arloliu/mapicodec/propvalue"
)

var (
	tagSubject    = format.PropertyTag{Type: format.PtypString, ID: 0x0037}
	tagImportance = format.PropertyTag{Type: format.PtypInteger32, ID: 0x0017}
	tagFlags      = format.PropertyTag{Type: format.PtypInteger32, ID: 0x0E07}
	tagEmail      = format.PropertyTag{Type: format.PtypString, ID: 0x3003}

	mailboxUID = entryid.ProviderUID{
		0x1B, 0x55, 0xFA, 0x20, 0xAA, 0x66, 0x11, 0xCD,
		0x9B, 0xC8, 0x00, 0xAA, 0x00, 0x2F, 0xC4, 0x5A,
	}
	dbGUID = uuid.MustParse("6a3f1c2d-8e4b-4f5a-9c7d-1e2f3a4b5c6d")
)

func b() *testutil.Builder { return testutil.New() }

func exist(tag format.PropertyTag) *testutil.Builder {
	return b().U32(uint32(TypeExist)).U32(tag.Uint32())
}

func contains(tag format.PropertyTag, s string) *testutil.Builder {
	return b().U32(uint32(TypeContent)).U16(1).U16(0).U32(tag.Uint32()).
		U32(tag.Uint32()).UTF16CString(s)
}

func or(children ...*testutil.Builder) *testutil.Builder {
	out := b().U32(uint32(TypeOr)).U32(uint32(len(children)))
	for _, c := range children {
		out.Raw(c.Bytes()...)
	}

	return out
}

// text writes a length-prefixed UTF-16 field, switching to the u16 form
// when the length does not fit a byte.
func text(out *testutil.Builder, s string) *testutil.Builder {
	n := len(testutil.UTF16(s)) / 2
	if n >= extendedLength {
		out.U8(extendedLength).U16(uint16(n))
	} else {
		out.U8(uint8(n))
	}

	return out.UTF16(s)
}

func folderEID() []byte {
	return b().U32(0).Raw(mailboxUID[:]...).
		U16(uint16(entryid.TypePrivateFolder)).GUID(dbGUID).U48BE(0x1234).U16(0).
		Bytes()
}

// entryList wraps one folder entry id, padded from 46 to 48 bytes.
func entryList() []byte {
	eid := folderEID()

	return b().U32(1).U32(0).U32(uint32(len(eid))).U32(0).Raw(eid...).Zeros(2).Bytes()
}

type defParts struct {
	flags       Flags
	textSearch  string
	folderList1 string
	folderList2 []byte
	addresses   []byte
	restriction []byte
	advanced    []byte
}

func definition(p defParts) []byte {
	out := b().U32(0x04100000).U32(uint32(p.flags)).U32(7)
	text(out, p.textSearch)
	out.U32(2).Raw(0xAA, 0xBB)
	out.U32(1)
	text(out, p.folderList1)
	out.U32(uint32(len(p.folderList2))).Raw(p.folderList2...)
	if p.flags.Has(FlagBinary) {
		out.Raw(p.addresses...)
	}
	out.U32(0)
	if p.flags.Has(FlagRestriction) {
		out.Raw(p.restriction...)
	}
	if p.flags.Has(FlagFilterStream) {
		out.U32(uint32(len(p.advanced))).Raw(p.advanced...)
	}
	out.U32(1).Raw(0xCC)

	return out.Bytes()
}

func newDecoder(t *testing.T) *Decoder {
	t.Helper()

	eids, err := entryid.NewDecoder(entryid.WithStoreProvider(mailboxUID))
	require.NoError(t, err)
	d, err := NewDecoder(WithEntryIDDecoder(eids))
	require.NoError(t, err)

	return d
}

func TestDecode(t *testing.T) {
	addresses := b().U32(1).
		U32(1).U32(0).U32(tagEmail.Uint32()).UTF16CString("zoe@example.com").
		Bytes()
	data := definition(defParts{
		flags:       FlagText | FlagBinary | FlagRestriction | FlagFilterStream,
		textSearch:  "quarterly",
		folderList1: "Inbox",
		folderList2: entryList(),
		addresses:   addresses,
		restriction: or(contains(tagSubject, "report"), exist(tagImportance)).Bytes(),
		advanced:    []byte{0x01, 0x02, 0x03},
	})

	def, err := newDecoder(t).Decode(data)
	require.NoError(t, err)

	require.Equal(t, uint32(0x04100000), def.Version)
	require.Equal(t, uint32(7), def.NumericSearch)
	require.Equal(t, "quarterly", def.TextSearch)
	require.Equal(t, []byte{0xAA, 0xBB}, def.SkipBlock1)
	require.Equal(t, uint32(1), def.DeepSearch)
	require.Equal(t, "Inbox", def.FolderList1)
	require.Nil(t, def.SkipBlock2)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, def.AdvancedSearch)
	require.Equal(t, []byte{0xCC}, def.SkipBlock3)

	require.Len(t, def.FolderList2, 1)
	folder, ok := def.FolderList2[0].(*entryid.Folder)
	require.True(t, ok)
	require.Equal(t, uint64(0x1234), folder.GlobalCounter)

	require.Equal(t, []Address{{Properties: []propvalue.TaggedValue{
		{Tag: tagEmail, Value: "zoe@example.com"},
	}}}, def.Addresses)

	require.Equal(t, &Or{Children: []Restriction{
		&Content{
			FuzzyLevelLow: 1,
			Tag:           tagSubject,
			Value:         propvalue.TaggedValue{Tag: tagSubject, Value: "report"},
		},
		&Exist{Tag: tagImportance},
	}}, def.Restriction)
}

func TestDecode_OptionalSections(t *testing.T) {
	data := definition(defParts{
		flags:       FlagNumber,
		restriction: exist(tagSubject).Bytes(),
	})

	def, err := newDecoder(t).Decode(data)
	require.NoError(t, err)
	require.Empty(t, def.TextSearch)
	require.Empty(t, def.FolderList1)
	require.Nil(t, def.FolderList2)
	require.Nil(t, def.Addresses)
	require.Nil(t, def.Restriction)
	require.Nil(t, def.AdvancedSearch)
}

func TestDecode_ExtendedTextLength(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'a' + rune(i%26)
	}
	data := definition(defParts{textSearch: string(long)})

	def, err := newDecoder(t).Decode(data)
	require.NoError(t, err)
	require.Equal(t, string(long), def.TextSearch)
}

func TestDecode_Errors(t *testing.T) {
	valid := definition(defParts{
		flags:       FlagRestriction,
		restriction: exist(tagSubject).Bytes(),
	})

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"Empty", nil, errs.ErrTruncated},
		{"Trailing byte", append(append([]byte{}, valid...), 0x00), errs.ErrTrailingBytes},
		{"Truncated", valid[:len(valid)-1], errs.ErrTruncated},
		{
			"Rule grammar restriction",
			definition(defParts{
				flags:       FlagRestriction,
				restriction: b().U8(0x08).U32(tagSubject.Uint32()).Bytes(),
			}),
			errs.ErrCorrupted,
		},
		{
			"Unknown restriction",
			definition(defParts{flags: FlagRestriction, restriction: b().U32(0x0C).Bytes()}),
			errs.ErrUnknownDiscriminant,
		},
		{
			"Bad folder list",
			definition(defParts{folderList2: b().U32(1).U32(0).U32(4).U32(0).U32(0).Bytes()}),
			errs.ErrTruncated,
		},
		{
			"Huge address count",
			definition(defParts{flags: FlagBinary, addresses: b().U32(0x10000000).Bytes()}),
			errs.ErrTruncated,
		},
	}

	d := newDecoder(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(tt.data)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, errs.ErrCorrupted)
		})
	}
}

func TestDecodeRestriction(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Restriction
	}{
		{
			"Not",
			b().U32(uint32(TypeNot)).Raw(exist(tagSubject).Bytes()...).Bytes(),
			&Not{Child: &Exist{Tag: tagSubject}},
		},
		{
			"Property",
			b().U32(uint32(TypeProperty)).U32(uint32(format.RelOpGreaterThan)).U32(tagImportance.Uint32()).
				U32(tagImportance.Uint32()).U32(1).Bytes(),
			&Property{
				Op:    format.RelOpGreaterThan,
				Tag:   tagImportance,
				Value: propvalue.TaggedValue{Tag: tagImportance, Value: int32(1)},
			},
		},
		{
			"CompareProps",
			b().U32(uint32(TypeCompareProps)).U32(uint32(format.RelOpEqual)).
				U32(tagSubject.Uint32()).U32(tagEmail.Uint32()).Bytes(),
			&CompareProps{Op: format.RelOpEqual, Tag1: tagSubject, Tag2: tagEmail},
		},
		{
			"BitMask",
			b().U32(uint32(TypeBitMask)).U32(1).U32(tagFlags.Uint32()).U32(0x04).Bytes(),
			&BitMask{NotEqualZero: true, Tag: tagFlags, Mask: 0x04},
		},
		{
			"Size",
			b().U32(uint32(TypeSize)).U32(uint32(format.RelOpLessThan)).U32(tagSubject.Uint32()).U32(64).Bytes(),
			&Size{Op: format.RelOpLessThan, Tag: tagSubject, Size: 64},
		},
		{
			"SubObject",
			b().U32(uint32(TypeSubObject)).U32(0x0E12000D).Raw(exist(tagEmail).Bytes()...).Bytes(),
			&SubObject{
				Subobject: format.TagFromUint32(0x0E12000D),
				Child:     &Exist{Tag: tagEmail},
			},
		},
		{
			"Comment with child",
			b().U32(uint32(TypeComment)).U32(1).U32(tagImportance.Uint32()).U32(2).
				U32(1).Raw(exist(tagSubject).Bytes()...).Bytes(),
			&Comment{
				Values: []propvalue.TaggedValue{{Tag: tagImportance, Value: int32(2)}},
				Child:  &Exist{Tag: tagSubject},
			},
		},
		{
			"Comment without child",
			b().U32(uint32(TypeComment)).U32(0).U32(0).Bytes(),
			&Comment{Values: []propvalue.TaggedValue{}},
		},
		{
			"Count",
			b().U32(uint32(TypeCount)).U32(3).Raw(exist(tagSubject).Bytes()...).Bytes(),
			&Count{Count: 3, Child: &Exist{Tag: tagSubject}},
		},
		{
			"Empty And",
			b().U32(uint32(TypeAnd)).U32(0).Bytes(),
			&And{Children: []Restriction{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRestriction(tt.data)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.want.Type(), got.Type())
		})
	}
}

func TestDecodeRestriction_EntryIDValues(t *testing.T) {
	tagParent := format.PropertyTag{Type: format.PtypBinary, ID: entryid.PropParentEntryID}
	parentIs := func(raw []byte) *testutil.Builder {
		return b().U32(uint32(TypeProperty)).U32(uint32(format.RelOpEqual)).U32(tagParent.Uint32()).
			U32(tagParent.Uint32()).U32(uint32(len(raw))).Raw(raw...)
	}

	t.Run("Registered store provider", func(t *testing.T) {
		def, err := newDecoder(t).Decode(definition(defParts{
			flags:       FlagRestriction,
			folderList2: entryList(),
			restriction: or(exist(tagSubject), parentIs(folderEID())).Bytes(),
		}))
		require.NoError(t, err)

		prop, ok := def.Restriction.(*Or).Children[1].(*Property)
		require.True(t, ok)
		require.Equal(t, folderEID(), prop.Value.Value)
		folder, ok := prop.EntryID.(*entryid.Folder)
		require.True(t, ok)
		require.Equal(t, dbGUID, folder.DatabaseGUID)
		require.Equal(t, uint64(0x1234), folder.GlobalCounter)
	})

	t.Run("Unknown provider keeps bytes", func(t *testing.T) {
		res, err := DecodeRestriction(parentIs(folderEID()).Bytes())
		require.NoError(t, err)

		prop, ok := res.(*Property)
		require.True(t, ok)
		require.Nil(t, prop.EntryID)
		require.Equal(t, folderEID(), prop.Value.Value)
	})

	t.Run("Content on entry id", func(t *testing.T) {
		raw := folderEID()
		data := b().U32(uint32(TypeContent)).U16(0).U16(0).U32(tagParent.Uint32()).
			U32(tagParent.Uint32()).U32(uint32(len(raw))).Raw(raw...).Bytes()

		res, err := newDecoder(t).DecodeRestriction(data)
		require.NoError(t, err)
		require.IsType(t, &entryid.Folder{}, res.(*Content).EntryID)
	})
}

func TestDecodeRestriction_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"Bad operator", b().U32(uint32(TypeSize)).U32(0x104).U32(tagSubject.Uint32()).U32(1).Bytes(), errs.ErrUnknownDiscriminant},
		{"Bad bitmask operator", b().U32(uint32(TypeBitMask)).U32(2).U32(tagFlags.Uint32()).U32(1).Bytes(), errs.ErrUnknownDiscriminant},
		{"Child count too large", b().U32(uint32(TypeOr)).U32(2).Raw(exist(tagSubject).Bytes()...).Bytes(), errs.ErrTruncated},
		{"Comment count too large", b().U32(uint32(TypeComment)).U32(100).U32(0).Bytes(), errs.ErrTruncated},
		{"Short discriminant", []byte{0x08, 0x00}, errs.ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRestriction(tt.data)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeRestriction_Depth(t *testing.T) {
	nested := func(n int) []byte {
		out := b()
		for range n {
			out.U32(uint32(TypeNot))
		}

		return out.Raw(exist(tagSubject).Bytes()...).Bytes()
	}

	d, err := NewDecoder(WithMaxDepth(4))
	require.NoError(t, err)

	_, err = d.DecodeRestriction(nested(3))
	require.NoError(t, err)

	_, err = d.DecodeRestriction(nested(4))
	require.ErrorIs(t, err, errs.ErrDepthExceeded)

	_, err = DecodeRestriction(nested(100_000))
	require.ErrorIs(t, err, errs.ErrDepthExceeded)

	_, err = NewDecoder(WithMaxDepth(0))
	require.Error(t, err)
}

func TestFlags_String(t *testing.T) {
	require.Equal(t, "0", Flags(0).String())
	require.Equal(t, "Text|Restriction", (FlagText | FlagRestriction).String())
	require.Equal(t, "Number|0x100", (FlagNumber | 0x100).String())
	require.Equal(t, "Exist", TypeExist.String())
	require.Equal(t, "RestrictionType(0x0000000C)", RestrictionType(0x0C).String())
}
