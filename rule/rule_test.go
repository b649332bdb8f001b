package rule

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
	tagSize       = format.PropertyTag{Type: format.PtypInteger32, ID: 0x0E08}
	tagFlags      = format.PropertyTag{Type: format.PtypInteger32, ID: 0x0E07}
	tagRecipients = format.PropertyTag{Type: format.PtypObject, ID: 0x0E12}
	tagEmail      = format.PropertyTag{Type: format.PtypString, ID: 0x3003}
	tagSender     = format.PropertyTag{Type: format.PtypString, ID: 0x0C1A}
	tagSentName   = format.PropertyTag{Type: format.PtypString, ID: 0x0042}
	tagCategory   = format.PropertyTag{Type: format.PtypString8, ID: 0x8000}

	mailboxUID = entryid.ProviderUID{
		0x1B, 0x55, 0xFA, 0x20, 0xAA, 0x66, 0x11, 0xCD,
		0x9B, 0xC8, 0x00, 0xAA, 0x00, 0x2F, 0xC4, 0x5A,
	}
	dbGUID       = uuid.MustParse("6a3f1c2d-8e4b-4f5a-9c7d-1e2f3a4b5c6d")
	templateGUID = uuid.MustParse("b7c9d0e1-f2a3-4b5c-8d6e-7f8091a2b3c4")
)

func b() *testutil.Builder { return testutil.New() }

func exist(tag format.PropertyTag) *testutil.Builder {
	return b().U8(uint8(TypeExist)).U32(tag.Uint32())
}

func propertyEq(tag format.PropertyTag, s string) *testutil.Builder {
	return b().U8(uint8(TypeProperty)).U8(uint8(format.RelOpEqual)).U32(tag.Uint32()).
		U32(tag.Uint32()).UTF16CString(s)
}

func and(w propvalue.Width, children ...*testutil.Builder) *testutil.Builder {
	out := b().U8(uint8(TypeAnd))
	if w == propvalue.Extended {
		out.U32(uint32(len(children)))
	} else {
		out.U16(uint16(len(children)))
	}
	for _, c := range children {
		out.Raw(c.Bytes()...)
	}

	return out
}

func not(child *testutil.Builder) *testutil.Builder {
	return b().U8(uint8(TypeNot)).Raw(child.Bytes()...)
}

func condition(res *testutil.Builder) []byte {
	return b().U16(0).Raw(res.Bytes()...).Bytes()
}

func TestDecodeCondition(t *testing.T) {
	tree := and(propvalue.Extended,
		propertyEq(tagSubject, "Invoice"),
		not(exist(tagSentName)),
		b().U8(uint8(TypeSubObject)).U32(tagRecipients.Uint32()).
			U8(uint8(TypeContent)).U16(0x0001).U16(0x0001).U32(tagEmail.Uint32()).
			U32(tagEmail.Uint32()).UTF16CString("@contoso.com"),
		b().U8(uint8(TypeComment)).U8(1).
			U32(tagCategory.Uint32()).CString("vip").
			U8(1).Raw(exist(tagSender).Bytes()...),
		b().U8(uint8(TypeComment)).U8(0).U8(0),
		b().U8(uint8(TypeBitMask)).U8(uint8(BitMaskNotEqualZero)).U32(tagFlags.Uint32()).U32(0x10),
		b().U8(uint8(TypeSize)).U8(uint8(format.RelOpGreaterThan)).U32(tagSize.Uint32()).U32(1<<20),
		b().U8(uint8(TypeCompareProps)).U8(uint8(format.RelOpNotEqual)).U32(tagSender.Uint32()).U32(tagSentName.Uint32()),
		b().U8(uint8(TypeCount)).U32(2).Raw(exist(tagImportance).Bytes()...),
	)

	cond, err := DecodeCondition(condition(tree))
	require.NoError(t, err)
	require.Empty(t, cond.NamedProperties.Properties)

	root, ok := cond.Restriction.(*And)
	require.True(t, ok)
	require.Len(t, root.Children, 9)

	require.Equal(t, &Property{
		Op:    format.RelOpEqual,
		Tag:   tagSubject,
		Value: propvalue.TaggedValue{Tag: tagSubject, Value: "Invoice"},
	}, root.Children[0])
	require.Equal(t, &Not{Child: &Exist{Tag: tagSentName}}, root.Children[1])
	require.Equal(t, &SubObject{
		Subobject: tagRecipients,
		Child: &Content{
			FuzzyLevelLow:  1,
			FuzzyLevelHigh: 1,
			Tag:            tagEmail,
			Value:          propvalue.TaggedValue{Tag: tagEmail, Value: "@contoso.com"},
		},
	}, root.Children[2])
	require.Equal(t, &Comment{
		Values: []propvalue.TaggedValue{{Tag: tagCategory, Value: "vip"}},
		Child:  &Exist{Tag: tagSender},
	}, root.Children[3])
	require.Equal(t, &Comment{Values: []propvalue.TaggedValue{}}, root.Children[4])
	require.Nil(t, root.Children[4].(*Comment).Child)
	require.Equal(t, &BitMask{Op: BitMaskNotEqualZero, Tag: tagFlags, Mask: 0x10}, root.Children[5])
	require.Equal(t, &Size{Op: format.RelOpGreaterThan, Tag: tagSize, Size: 1 << 20}, root.Children[6])
	require.Equal(t, &CompareProps{Op: format.RelOpNotEqual, Tag1: tagSender, Tag2: tagSentName}, root.Children[7])
	require.Equal(t, &Count{Count: 2, Child: &Exist{Tag: tagImportance}}, root.Children[8])

	for i, c := range root.Children {
		require.NotEmpty(t, c.Type().String(), "child %d", i)
	}
}

func TestDecodeCondition_NamedProperties(t *testing.T) {
	set := uuid.MustParse("00020329-0000-0000-c000-000000000046")
	names := b().U8(uint8(propvalue.NameKindString)).GUID(set).U8(12).UTF16CString("Level")
	data := b().U16(1).U16(0x8000).U32(uint32(names.Len())).Raw(names.Bytes()...).
		Raw(exist(format.PropertyTag{Type: format.PtypInteger32, ID: 0x8000}).Bytes()...).
		Bytes()

	cond, err := DecodeCondition(data)
	require.NoError(t, err)

	p, ok := cond.NamedProperties.Lookup(cond.Restriction.(*Exist).Tag.ID)
	require.True(t, ok)
	require.Equal(t, "Level", p.Name)
	require.Equal(t, set, p.Set)
}

func TestDecodeCondition_ChildCount(t *testing.T) {
	for c := range 5 {
		children := make([]*testutil.Builder, c)
		for i := range children {
			children[i] = exist(tagSubject)
		}

		cond, err := DecodeCondition(condition(and(propvalue.Extended, children...)))
		require.NoError(t, err)
		require.Len(t, cond.Restriction.(*And).Children, c)
	}

	for bad := range 3 {
		children := []*testutil.Builder{exist(tagSubject), exist(tagSubject), exist(tagSubject)}
		children[bad] = b().U8(0x0C)

		_, err := DecodeCondition(condition(and(propvalue.Extended, children...)))
		require.ErrorIs(t, err, errs.ErrUnknownDiscriminant, "bad child %d", bad)
		require.ErrorIs(t, err, errs.ErrCorrupted)
	}
}

func TestDecodeCondition_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"Unknown type", condition(b().U8(0xFF)), errs.ErrUnknownDiscriminant},
		{"Bad relop", condition(b().U8(uint8(TypeProperty)).U8(0x09).U32(tagSubject.Uint32())), errs.ErrUnknownDiscriminant},
		{"Bad bitmask op", condition(b().U8(uint8(TypeBitMask)).U8(2).U32(tagFlags.Uint32()).U32(1)), errs.ErrUnknownDiscriminant},
		{"Unsupported value type", condition(b().U8(uint8(TypeProperty)).U8(4).U32(tagRecipients.Uint32()).U32(tagRecipients.Uint32())), errs.ErrUnsupportedType},
		{"Missing child", condition(not(b())), errs.ErrTruncated},
		{"Huge child count", condition(b().U8(uint8(TypeOr)).U32(0x7FFFFFFF)), errs.ErrTruncated},
		{"Trailing bytes", append(condition(exist(tagSubject)), 0x00), errs.ErrTrailingBytes},
		{"Empty", nil, errs.ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCondition(tt.data)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, errs.ErrCorrupted)
		})
	}
}

func TestDecodeCondition_Depth(t *testing.T) {
	nested := func(n int) []byte {
		out := b().U16(0)
		for range n {
			out.U8(uint8(TypeNot))
		}

		return out.Raw(exist(tagSubject).Bytes()...).Bytes()
	}

	_, err := DecodeCondition(nested(DefaultMaxDepth - 1))
	require.NoError(t, err)

	_, err = DecodeCondition(nested(DefaultMaxDepth))
	require.ErrorIs(t, err, errs.ErrDepthExceeded)

	d, err := NewDecoder(WithMaxDepth(2))
	require.NoError(t, err)
	_, err = d.DecodeCondition(nested(1))
	require.NoError(t, err)
	_, err = d.DecodeCondition(nested(2))
	require.ErrorIs(t, err, errs.ErrDepthExceeded)

	_, err = NewDecoder(WithMaxDepth(0))
	require.Error(t, err)

	// A deep adversarial tree fails cleanly instead of exhausting the stack.
	_, err = DecodeCondition(nested(100_000))
	require.ErrorIs(t, err, errs.ErrDepthExceeded)
}

func TestDecodeRestriction_StandardWidth(t *testing.T) {
	d, err := NewDecoder()
	require.NoError(t, err)

	data := and(propvalue.Standard,
		exist(tagSubject),
		b().U8(uint8(TypeProperty)).U8(uint8(format.RelOpEqual)).
			U32(format.PropertyTag{Type: format.PtypBinary, ID: 0x0FFF}.Uint32()).
			U32(format.PropertyTag{Type: format.PtypBinary, ID: 0x0FFF}.Uint32()).U16(2).Raw(0xAB, 0xCD),
	).Bytes()

	res, err := d.DecodeRestriction(data, propvalue.Standard)
	require.NoError(t, err)
	require.Len(t, res.(*And).Children, 2)
	require.Equal(t, []byte{0xAB, 0xCD}, res.(*And).Children[1].(*Property).Value.Value)

	_, err = d.DecodeRestriction(data, propvalue.Extended)
	require.ErrorIs(t, err, errs.ErrCorrupted)
}

func TestDecodeCondition_EntryIDValues(t *testing.T) {
	tagParent := format.PropertyTag{Type: format.PtypBinary, ID: entryid.PropParentEntryID}
	tagSearchKey := format.PropertyTag{Type: format.PtypBinary, ID: 0x300B}

	binaryValue := func(tag format.PropertyTag, raw []byte) *testutil.Builder {
		return b().U32(tag.Uint32()).U32(uint32(len(raw))).Raw(raw...)
	}
	property := func(tag format.PropertyTag, raw []byte) *testutil.Builder {
		return b().U8(uint8(TypeProperty)).U8(uint8(format.RelOpEqual)).U32(tag.Uint32()).
			Raw(binaryValue(tag, raw).Bytes()...)
	}
	content := func(tag format.PropertyTag, raw []byte) *testutil.Builder {
		return b().U8(uint8(TypeContent)).U16(0).U16(0).U32(tag.Uint32()).
			Raw(binaryValue(tag, raw).Bytes()...)
	}

	defaultDec, err := NewDecoder()
	require.NoError(t, err)

	tests := []struct {
		name    string
		dec     *Decoder
		res     *testutil.Builder
		decoded bool
	}{
		{"Property with store provider", newActionDecoder(t), property(tagParent, folderEID()), true},
		{"Content with store provider", newActionDecoder(t), content(tagParent, folderEID()), true},
		{"Unknown provider keeps bytes", defaultDec, property(tagParent, folderEID()), false},
		{"Malformed entry id keeps bytes", newActionDecoder(t), property(tagParent, folderEID()[:30]), false},
		{"Not an entry id property", newActionDecoder(t), property(tagSearchKey, folderEID()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := tt.dec.DecodeCondition(condition(tt.res))
			require.NoError(t, err)

			var (
				value propvalue.TaggedValue
				eid   entryid.EntryID
			)
			switch res := cond.Restriction.(type) {
			case *Property:
				value, eid = res.Value, res.EntryID
			case *Content:
				value, eid = res.Value, res.EntryID
			default:
				t.Fatalf("unexpected restriction %T", res)
			}
			require.IsType(t, []byte{}, value.Value)

			if !tt.decoded {
				require.Nil(t, eid)
				return
			}
			folder, ok := eid.(*entryid.Folder)
			require.True(t, ok)
			require.Equal(t, dbGUID, folder.DatabaseGUID)
			require.Equal(t, uint64(0x42), folder.GlobalCounter)
			require.Equal(t, folderEID(), value.Value)
		})
	}
}

func folderEID() []byte {
	return b().U32(0).Raw(mailboxUID[:]...).
		U16(uint16(entryid.TypePrivateFolder)).GUID(dbGUID).U48BE(0x42).U16(0).
		Bytes()
}

func messageEID() []byte {
	return b().U32(0).Raw(mailboxUID[:]...).
		U16(uint16(entryid.TypePrivateMessage)).
		GUID(dbGUID).U48BE(0x42).U16(0).
		GUID(dbGUID).U48BE(0x99).U16(0).
		Bytes()
}

func storeEID() []byte {
	return b().U32(0).Raw(entryid.StoreWrapProviderUID[:]...).U8(0).U8(0).
		CString("emsmdb.dll").Zeros(3).
		U32(0).Raw(mailboxUID[:]...).U32(entryid.WrappedTypePublicFolders).
		CString("srv").
		U32(entryid.StoreMagicV3).U32(16).U32(1).U32(0).
		Bytes()
}

func action(typ ActionType, data *testutil.Builder) *testutil.Builder {
	payload := data.Bytes()
	return b().U32(uint32(actionHeaderSize + len(payload))).U8(uint8(typ)).U32(0).U32(0).Raw(payload...)
}

func actions(blocks ...*testutil.Builder) []byte {
	out := b().U16(0).U32(ActionsVersion).U32(uint32(len(blocks)))
	for _, blk := range blocks {
		out.Raw(blk.Bytes()...)
	}

	return out.Bytes()
}

func newActionDecoder(t *testing.T) *Decoder {
	t.Helper()
	eids, err := entryid.NewDecoder(entryid.WithStoreProvider(mailboxUID))
	require.NoError(t, err)
	d, err := NewDecoder(WithEntryIDDecoder(eids))
	require.NoError(t, err)

	return d
}

func TestDecodeActions(t *testing.T) {
	store, folder := storeEID(), folderEID()
	recipient := b().U8(recipientReserved).U32(2).
		U32(tagEmail.Uint32()).UTF16CString("ops@contoso.com").
		U32(format.PropertyTag{Type: format.PtypBinary, ID: 0x0FFF}.Uint32()).U32(1).Raw(0x01)

	data := actions(
		action(ActionMove, b().U32(uint32(len(store))).Raw(store...).U32(uint32(len(folder))).Raw(folder...)),
		action(ActionReply, b().Raw(messageEID()...).GUID(templateGUID)),
		action(ActionDefer, b().Raw(0x01, 0x02, 0x03)),
		action(ActionBounce, b().U32(0x0000000D)),
		action(ActionForward, b().U32(1).Raw(recipient.Bytes()...)),
		action(ActionTag, b().U32(tagImportance.Uint32()).U32(2)),
		action(ActionDelete, b()),
		action(ActionMarkAsRead, b()),
	)

	acts, err := newActionDecoder(t).DecodeActions(data)
	require.NoError(t, err)
	require.Equal(t, ActionsVersion, acts.Version)
	require.Len(t, acts.Blocks, 8)

	move := acts.Blocks[0].Data.(*MoveCopyData)
	require.Equal(t, entryid.KindStoreObject, move.StoreEntryID.Kind())
	require.Equal(t, uint64(0x42), move.FolderEntryID.(*entryid.Folder).GlobalCounter)

	reply := acts.Blocks[1].Data.(*ReplyData)
	require.Equal(t, templateGUID, reply.TemplateGUID)
	require.Equal(t, uint64(0x99), reply.TemplateEntryID.(*entryid.Message).MessageGlobalCounter)

	require.Equal(t, &DeferData{Data: []byte{1, 2, 3}}, acts.Blocks[2].Data)
	require.Equal(t, &BounceData{Code: 0x0D}, acts.Blocks[3].Data)

	fwd := acts.Blocks[4].Data.(*ForwardData)
	require.Len(t, fwd.Recipients, 1)
	require.Equal(t, "ops@contoso.com", fwd.Recipients[0].Properties[0].Value)
	require.Equal(t, []byte{0x01}, fwd.Recipients[0].Properties[1].Value)

	require.Equal(t, &TagData{Value: propvalue.TaggedValue{Tag: tagImportance, Value: int32(2)}}, acts.Blocks[5].Data)
	require.Nil(t, acts.Blocks[6].Data)
	require.Nil(t, acts.Blocks[7].Data)

	for i, blk := range acts.Blocks {
		require.NotContains(t, blk.Type.String(), "ActionType(", "block %d", i)
	}
}

func TestDecodeActions_Errors(t *testing.T) {
	d := newActionDecoder(t)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			"Bad version",
			b().U16(0).U32(2).U32(0).Bytes(),
			errs.ErrSentinelMismatch,
		},
		{
			"Unknown action type",
			actions(action(ActionType(0x0C), b())),
			errs.ErrUnknownDiscriminant,
		},
		{
			"Unconsumed action data",
			actions(b().U32(actionHeaderSize + 8).U8(uint8(ActionBounce)).U32(0).U32(0).U32(1).U32(2)),
			errs.ErrTrailingBytes,
		},
		{
			"Length below header",
			actions(b().U32(4).U8(uint8(ActionDelete)).U32(0).U32(0)),
			errs.ErrSizeMismatch,
		},
		{
			"Length beyond input",
			actions(b().U32(200).U8(uint8(ActionDelete)).U32(0).U32(0)),
			errs.ErrTruncated,
		},
		{
			"Recipient reserved byte",
			actions(action(ActionDelegate, b().U32(1).U8(0x00).U32(0))),
			errs.ErrSentinelMismatch,
		},
		{
			"Unregistered folder provider",
			func() []byte {
				folder := b().U32(0).Raw(0x99).Zeros(15).U16(1).Zeros(24).Bytes()
				store := storeEID()
				return actions(action(ActionCopy, b().U32(uint32(len(store))).Raw(store...).U32(uint32(len(folder))).Raw(folder...)))
			}(),
			errs.ErrUnknownProvider,
		},
		{
			"Huge action count",
			b().U16(0).U32(ActionsVersion).U32(0xFFFFFFFF).Bytes(),
			errs.ErrTruncated,
		},
		{
			"Trailing bytes",
			append(actions(action(ActionDelete, b())), 0x00),
			errs.ErrTrailingBytes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.DecodeActions(tt.data)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, errs.ErrCorrupted)
		})
	}
}

func TestDecodeActions_DefaultDecoderNeedsStoreProvider(t *testing.T) {
	folder := folderEID()
	store := storeEID()
	data := actions(action(ActionMove, b().U32(uint32(len(store))).Raw(store...).U32(uint32(len(folder))).Raw(folder...)))

	_, err := DecodeActions(data)
	require.ErrorIs(t, err, errs.ErrUnknownProvider)

	_, err = newActionDecoder(t).DecodeActions(data)
	require.NoError(t, err)
}
