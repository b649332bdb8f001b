// Package rule decodes server-side rule conditions and actions.
//
// Conditions are restriction trees in the rule format: every node starts
// with a 1-byte restriction type, and child counts, comment value counts and
// property value COUNT fields are 16 bits wide in the standard format and 32
// bits wide in the extended format stored in PidTagExtendedRuleMessageCondition.
//
// Actions are the extended rule action list stored in
// PidTagExtendedRuleMessageActions.
package rule

import (
	"fmt"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/entryid"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/format"
	"github.com/arloliu/mapicodec/propvalue"
)

// RestrictionType is the 1-byte discriminant of a rule restriction node.
type RestrictionType uint8

const (
	TypeAnd          RestrictionType = 0x00
	TypeOr           RestrictionType = 0x01
	TypeNot          RestrictionType = 0x02
	TypeContent      RestrictionType = 0x03
	TypeProperty     RestrictionType = 0x04
	TypeCompareProps RestrictionType = 0x05
	TypeBitMask      RestrictionType = 0x06
	TypeSize         RestrictionType = 0x07
	TypeExist        RestrictionType = 0x08
	TypeSubObject    RestrictionType = 0x09
	TypeComment      RestrictionType = 0x0A
	TypeCount        RestrictionType = 0x0B
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

	return fmt.Sprintf("RestrictionType(0x%02X)", uint8(t))
}

// Restriction is one node of a rule condition tree.
type Restriction interface {
	Type() RestrictionType
	isRestriction()
}

// And matches when every child matches.
type And struct {
	Children []Restriction
}

// Or matches when any child matches.
type Or struct {
	Children []Restriction
}

// Not negates its child.
type Not struct {
	Child Restriction
}

// Content matches a string or binary property against a value. EntryID is
// set when Value holds a decodable entry id property; Value keeps the raw
// bytes either way.
type Content struct {
	FuzzyLevelLow  uint16
	FuzzyLevelHigh uint16
	Tag            format.PropertyTag
	Value          propvalue.TaggedValue
	EntryID        entryid.EntryID
}

// Property compares a property with a value. EntryID is set as for Content.
type Property struct {
	Op      format.RelOp
	Tag     format.PropertyTag
	Value   propvalue.TaggedValue
	EntryID entryid.EntryID
}

// CompareProps compares two properties of the same object.
type CompareProps struct {
	Op   format.RelOp
	Tag1 format.PropertyTag
	Tag2 format.PropertyTag
}

// BitMaskOp selects whether a BitMask restriction tests for zero or non-zero.
type BitMaskOp uint8

const (
	BitMaskEqualZero    BitMaskOp = 0x00
	BitMaskNotEqualZero BitMaskOp = 0x01
)

// BitMask tests the bits of a 32-bit property.
type BitMask struct {
	Op   BitMaskOp
	Tag  format.PropertyTag
	Mask uint32
}

// Size compares the size of a property value with a constant.
type Size struct {
	Op   format.RelOp
	Tag  format.PropertyTag
	Size uint32
}

// Exist matches when the property is present.
type Exist struct {
	Tag format.PropertyTag
}

// SubObject applies its child to the rows of a subobject table such as the
// recipients or attachments of a message.
type SubObject struct {
	Subobject format.PropertyTag
	Child     Restriction
}

// Comment annotates its child with tagged values. Child is nil when absent.
type Comment struct {
	Values []propvalue.TaggedValue
	Child  Restriction
}

// Count limits how many times its child may match.
type Count struct {
	Count uint32
	Child Restriction
}

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

// restrictionReader decodes one grammar width with a depth limit.
type restrictionReader struct {
	width    propvalue.Width
	maxDepth int
	entryIDs *entryid.Decoder
}

func (rr *restrictionReader) read(r *cursor.Reader, depth int) (Restriction, error) {
	if depth > rr.maxDepth {
		return nil, fmt.Errorf("%w: restriction nested %d levels, limit %d", errs.ErrDepthExceeded, depth, rr.maxDepth)
	}

	raw, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	typ := RestrictionType(raw)

	res, err := rr.readBody(r, typ, depth)
	if err != nil {
		return nil, errs.Wrapf(err, "%s restriction", typ)
	}

	return res, nil
}

func (rr *restrictionReader) readBody(r *cursor.Reader, typ RestrictionType, depth int) (Restriction, error) {
	le := endian.GetLittleEndianEngine()

	switch typ {
	case TypeAnd:
		children, err := rr.readChildren(r, depth)
		if err != nil {
			return nil, err
		}

		return &And{Children: children}, nil

	case TypeOr:
		children, err := rr.readChildren(r, depth)
		if err != nil {
			return nil, err
		}

		return &Or{Children: children}, nil

	case TypeNot:
		child, err := rr.read(r, depth+1)
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
		if res.Value, err = propvalue.ReadTagged(r, rr.width); err != nil {
			return nil, err
		}
		res.EntryID = rr.entryIDs.DecodeValue(res.Value.Tag, res.Value.Value)

		return res, nil

	case TypeProperty:
		op, tag, err := readOpTag(r)
		if err != nil {
			return nil, err
		}
		res := &Property{Op: op, Tag: tag}
		if res.Value, err = propvalue.ReadTagged(r, rr.width); err != nil {
			return nil, err
		}
		res.EntryID = rr.entryIDs.DecodeValue(res.Value.Tag, res.Value.Value)

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
		fixed, err := r.Fixed(9)
		if err != nil {
			return nil, err
		}
		op := BitMaskOp(fixed[0])
		if op != BitMaskEqualZero && op != BitMaskNotEqualZero {
			return nil, fmt.Errorf("%w: bitmask operator 0x%02X", errs.ErrUnknownDiscriminant, fixed[0])
		}

		return &BitMask{
			Op:   op,
			Tag:  format.TagFromUint32(le.Uint32(fixed[1:5])),
			Mask: le.Uint32(fixed[5:9]),
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
		child, err := rr.read(r, depth+1)
		if err != nil {
			return nil, err
		}

		return &SubObject{Subobject: tag, Child: child}, nil

	case TypeComment:
		return rr.readComment(r, depth)

	case TypeCount:
		count, err := r.Uint32(le)
		if err != nil {
			return nil, err
		}
		child, err := rr.read(r, depth+1)
		if err != nil {
			return nil, err
		}

		return &Count{Count: count, Child: child}, nil

	default:
		return nil, fmt.Errorf("%w: restriction type 0x%02X", errs.ErrUnknownDiscriminant, uint8(typ))
	}
}

func (rr *restrictionReader) readChildren(r *cursor.Reader, depth int) ([]Restriction, error) {
	count, err := propvalue.ReadCount(r, rr.width)
	if err != nil {
		return nil, err
	}
	// every child takes at least its type byte
	if count > r.Remaining() {
		return nil, fmt.Errorf("%w: %d children exceed %d remaining bytes", errs.ErrTruncated, count, r.Remaining())
	}

	children := make([]Restriction, count)
	for i := range children {
		if children[i], err = rr.read(r, depth+1); err != nil {
			return nil, errs.Wrapf(err, "child %d", i)
		}
	}

	return children, nil
}

func (rr *restrictionReader) readComment(r *cursor.Reader, depth int) (Restriction, error) {
	count, err := r.Uint8()
	if err != nil {
		return nil, err
	}

	res := &Comment{Values: make([]propvalue.TaggedValue, count)}
	for i := range res.Values {
		if res.Values[i], err = propvalue.ReadTagged(r, rr.width); err != nil {
			return nil, errs.Wrapf(err, "comment value %d", i)
		}
	}

	present, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	if present != 0 {
		if res.Child, err = rr.read(r, depth+1); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func readOpTag(r *cursor.Reader) (format.RelOp, format.PropertyTag, error) {
	fixed, err := r.Fixed(5)
	if err != nil {
		return 0, format.PropertyTag{}, err
	}
	op := format.RelOp(fixed[0])
	if !op.Valid() {
		return 0, format.PropertyTag{}, fmt.Errorf("%w: relational operator 0x%02X", errs.ErrUnknownDiscriminant, fixed[0])
	}

	return op, format.TagFromUint32(endian.GetLittleEndianEngine().Uint32(fixed[1:5])), nil
}
