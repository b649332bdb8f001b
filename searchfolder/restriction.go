package searchfolder

import (
	"fmt"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/entryid"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/format"
	"github.com/arloliu/mapicodec/propvalue"
)

// RestrictionType is the 4-byte discriminant of a search restriction node.
type RestrictionType uint32

const (
	TypeAnd          RestrictionType = 0x00000000
	TypeOr           RestrictionType = 0x00000001
	TypeNot          RestrictionType = 0x00000002
	TypeContent      RestrictionType = 0x00000003
	TypeProperty     RestrictionType = 0x00000004
	TypeCompareProps RestrictionType = 0x00000005
	TypeBitMask      RestrictionType = 0x00000006
	TypeSize         RestrictionType = 0x00000007
	TypeExist        RestrictionType = 0x00000008
	TypeSubObject    RestrictionType = 0x00000009
	TypeComment      RestrictionType = 0x0000000A
	TypeCount        RestrictionType = 0x0000000B
)

var restrictionTypeNames = map[RestrictionType]string{
	TypeAnd:          "And",
	TypeOr:           "Or",
	TypeNot:          "Not",
	TypeContent:      "Content",
	TypeProperty:     "Property",
	TypeCompareProps: "CompareProps",
	TypeBitMask:      "BitMask",
	TypeSize:         "Size",
	TypeExist:        "Exist",
	TypeSubObject:    "SubObject",
	TypeComment:      "Comment",
	TypeCount:        "Count",
}

func (t RestrictionType) String() string {
	if name, ok := restrictionTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("RestrictionType(0x%08X)", uint32(t))
}

// Restriction is one node of a search folder restriction tree.
type Restriction interface {
	Type() RestrictionType
	isRestriction()
}

type (
	// And matches when every child matches.
	And struct {
		Children []Restriction
	}

	// Or matches when any child matches.
	Or struct {
		Children []Restriction
	}

	// Not negates its child.
	Not struct {
		Child Restriction
	}

	// Content matches a string or binary property against a value. EntryID
	// is set when Value holds a decodable entry id property.
	Content struct {
		FuzzyLevelLow  uint16
		FuzzyLevelHigh uint16
		Tag            format.PropertyTag
		Value          propvalue.TaggedValue
		EntryID        entryid.EntryID
	}

	// Property compares a property with a value. EntryID is set as for
	// Content; Value keeps the raw bytes.
	Property struct {
		Op      format.RelOp
		Tag     format.PropertyTag
		Value   propvalue.TaggedValue
		EntryID entryid.EntryID
	}

	// CompareProps compares two properties of the same object.
	CompareProps struct {
		Op   format.RelOp
		Tag1 format.PropertyTag
		Tag2 format.PropertyTag
	}

	// BitMask tests the bits of a 32-bit property. NotEqualZero selects the
	// BMR_NEZ form.
	BitMask struct {
		NotEqualZero bool
		Tag          format.PropertyTag
		Mask         uint32
	}

	// Size compares the size of a property value with a constant.
	Size struct {
		Op   format.RelOp
		Tag  format.PropertyTag
		Size uint32
	}

	// Exist matches when the property is present.
	Exist struct {
		Tag format.PropertyTag
	}

	// SubObject applies its child to a subobject table.
	SubObject struct {
		Subobject format.PropertyTag
		Child     Restriction
	}

	// Comment annotates its child. Child is nil when absent.
	Comment struct {
		Values []propvalue.TaggedValue
		Child  Restriction
	}

	// Count limits how many times its child may match.
	Count struct {
		Count uint32
		Child Restriction
	}
)

func (*And) Type() RestrictionType          { return TypeAnd }
func (*Or) Type() RestrictionType           { return TypeOr }
func (*Not) Type() RestrictionType          { return TypeNot }
func (*Content) Type() RestrictionType      { return TypeContent }
func (*Property) Type() RestrictionType     { return TypeProperty }
func (*CompareProps) Type() RestrictionType { return TypeCompareProps }
func (*BitMask) Type() RestrictionType      { return TypeBitMask }
func (*Size) Type() RestrictionType         { return TypeSize }
func (*Exist) Type() RestrictionType        { return TypeExist }
func (*SubObject) Type() RestrictionType    { return TypeSubObject }
func (*Comment) Type() RestrictionType      { return TypeComment }
func (*Count) Type() RestrictionType        { return TypeCount }

func (*And) isRestriction()          {}
func (*Or) isRestriction()           {}
func (*Not) isRestriction()          {}
func (*Content) isRestriction()      {}
func (*Property) isRestriction()     {}
func (*CompareProps) isRestriction() {}
func (*BitMask) isRestriction()      {}
func (*Size) isRestriction()         {}
func (*Exist) isRestriction()        {}
func (*SubObject) isRestriction()    {}
func (*Comment) isRestriction()      {}
func (*Count) isRestriction()        {}

// minNodeSize is the smallest encoded restriction: a discriminant.
const minNodeSize = 4

// readRestriction decodes one node at the given depth. The root has depth 1.
func (d *Decoder) readRestriction(r *cursor.Reader, depth int) (Restriction, error) {
	if depth > d.maxDepth {
		return nil, fmt.Errorf("%w: restriction nested %d levels, limit %d", errs.ErrDepthExceeded, depth, d.maxDepth)
	}

	raw, err := r.Uint32(endian.GetLittleEndianEngine())
	if err != nil {
		return nil, err
	}
	typ := RestrictionType(raw)

	res, err := d.readBody(r, typ, depth)
	if err != nil {
		return nil, errs.Wrapf(err, "%s restriction", typ)
	}

	return res, nil
}

func (d *Decoder) readBody(r *cursor.Reader, typ RestrictionType, depth int) (Restriction, error) {
	le := endian.GetLittleEndianEngine()

	switch typ {
	case TypeAnd, TypeOr:
		count, err := r.Uint32(le)
		if err != nil {
			return nil, err
		}
		if uint64(count)*minNodeSize > uint64(r.Remaining()) {
			return nil, fmt.Errorf("%w: %d children exceed %d remaining bytes", errs.ErrTruncated, count, r.Remaining())
		}
		children := make([]Restriction, count)
		for i := range children {
			if children[i], err = d.readRestriction(r, depth+1); err != nil {
				return nil, errs.Wrapf(err, "child %d", i)
			}
		}
		if typ == TypeOr {
			return &Or{Children: children}, nil
		}

		return &And{Children: children}, nil

	case TypeNot:
		child, err := d.readRestriction(r, depth+1)
		if err != nil {
			return nil, err
		}

		return &Not{Child: child}, nil

	case TypeContent:
		fixed, err := r.Fixed(8)
		if err != nil {
			return nil, err
		}
		res := &Content{
			FuzzyLevelLow:  le.Uint16(fixed[0:2]),
			FuzzyLevelHigh: le.Uint16(fixed[2:4]),
			Tag:            format.TagFromUint32(le.Uint32(fixed[4:8])),
		}
		if res.Value, err = propvalue.ReadTagged(r, propvalue.Extended); err != nil {
			return nil, err
		}
		res.EntryID = d.entryIDs.DecodeValue(res.Value.Tag, res.Value.Value)

		return res, nil

	case TypeProperty:
		op, tag, err := readOpTag(r)
		if err != nil {
			return nil, err
		}
		res := &Property{Op: op, Tag: tag}
		if res.Value, err = propvalue.ReadTagged(r, propvalue.Extended); err != nil {
			return nil, err
		}
		res.EntryID = d.entryIDs.DecodeValue(res.Value.Tag, res.Value.Value)

		return res, nil

	case TypeCompareProps:
		op, tag, err := readOpTag(r)
		if err != nil {
			return nil, err
		}
		tag2, err := propvalue.ReadTag(r)
		if err != nil {
			return nil, err
		}

		return &CompareProps{Op: op, Tag1: tag, Tag2: tag2}, nil

	case TypeBitMask:
		fixed, err := r.Fixed(12)
		if err != nil {
			return nil, err
		}
		op := le.Uint32(fixed[0:4])
		if op > 1 {
			return nil, fmt.Errorf("%w: bitmask operator 0x%08X", errs.ErrUnknownDiscriminant, op)
		}

		return &BitMask{
			NotEqualZero: op == 1,
			Tag:          format.TagFromUint32(le.Uint32(fixed[4:8])),
			Mask:         le.Uint32(fixed[8:12]),
		}, nil

	case TypeSize:
		op, tag, err := readOpTag(r)
		if err != nil {
			return nil, err
		}
		size, err := r.Uint32(le)
		if err != nil {
			return nil, err
		}

		return &Size{Op: op, Tag: tag, Size: size}, nil

	case TypeExist:
		tag, err := propvalue.ReadTag(r)
		if err != nil {
			return nil, err
		}

		return &Exist{Tag: tag}, nil

	case TypeSubObject:
		tag, err := propvalue.ReadTag(r)
		if err != nil {
			return nil, err
		}
		child, err := d.readRestriction(r, depth+1)
		if err != nil {
			return nil, err
		}

		return &SubObject{Subobject: tag, Child: child}, nil

	case TypeComment:
		return d.readComment(r, depth)

	case TypeCount:
		count, err := r.Uint32(le)
		if err != nil {
			return nil, err
		}
		child, err := d.readRestriction(r, depth+1)
		if err != nil {
			return nil, err
		}

		return &Count{Count: count, Child: child}, nil

	default:
		return nil, fmt.Errorf("%w: restriction type 0x%08X", errs.ErrUnknownDiscriminant, uint32(typ))
	}
}

func (d *Decoder) readComment(r *cursor.Reader, depth int) (Restriction, error) {
	le := endian.GetLittleEndianEngine()

	count, err := r.Uint32(le)
	if err != nil {
		return nil, err
	}
	// a tagged value takes at least its tag
	if uint64(count)*4 > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %d comment values exceed %d remaining bytes", errs.ErrTruncated, count, r.Remaining())
	}

	res := &Comment{Values: make([]propvalue.TaggedValue, count)}
	for i := range res.Values {
		if res.Values[i], err = propvalue.ReadTagged(r, propvalue.Extended); err != nil {
			return nil, errs.Wrapf(err, "comment value %d", i)
		}
	}

	present, err := r.Uint32(le)
	if err != nil {
		return nil, err
	}
	if present != 0 {
		if res.Child, err = d.readRestriction(r, depth+1); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// readOpTag reads a 4-byte relational operator followed by a property tag.
func readOpTag(r *cursor.Reader) (format.RelOp, format.PropertyTag, error) {
	le := endian.GetLittleEndianEngine()

	fixed, err := r.Fixed(8)
	if err != nil {
		return 0, format.PropertyTag{}, err
	}
	raw := le.Uint32(fixed[0:4])
	op := format.RelOp(raw)
	if raw > 0xFF || !op.Valid() {
		return 0, format.PropertyTag{}, fmt.Errorf("%w: relational operator 0x%08X", errs.ErrUnknownDiscriminant, raw)
	}

	return op, format.TagFromUint32(le.Uint32(fixed[4:8])), nil
}
