package format

import "fmt"

// PropertyTag identifies a property by wire type and numeric id.
//
// On the wire a tag is a little-endian uint32 whose low word is the type and
// whose high word is the id.
type PropertyTag struct {
	Type PropertyType
	ID   uint16
}

// TagFromUint32 splits a packed 32-bit tag.
func TagFromUint32(v uint32) PropertyTag {
	return PropertyTag{
		Type: PropertyType(v & 0xFFFF),
		ID:   uint16(v >> 16), //nolint:gosec
	}
}

// Uint32 returns the packed 32-bit form of the tag.
func (t PropertyTag) Uint32() uint32 {
	return uint32(t.ID)<<16 | uint32(t.Type)
}

func (t PropertyTag) String() string {
	return fmt.Sprintf("0x%08X", t.Uint32())
}

// RelOp is a relational operator used by property and compare-properties restrictions.
type RelOp uint8

const (
	RelOpLessThan           RelOp = 0x00
	RelOpLessThanOrEqual    RelOp = 0x01
	RelOpGreaterThan        RelOp = 0x02
	RelOpGreaterThanOrEqual RelOp = 0x03
	RelOpEqual              RelOp = 0x04
	RelOpNotEqual           RelOp = 0x05
	RelOpMemberOfDL         RelOp = 0x64
)

// Valid reports whether op is a known operator.
func (op RelOp) Valid() bool {
	return op <= RelOpNotEqual || op == RelOpMemberOfDL
}

func (op RelOp) String() string {
	switch op {
	case RelOpLessThan:
		return "<"
	case RelOpLessThanOrEqual:
		return "<="
	case RelOpGreaterThan:
		return ">"
	case RelOpGreaterThanOrEqual:
		return ">="
	case RelOpEqual:
		return "=="
	case RelOpNotEqual:
		return "!="
	case RelOpMemberOfDL:
		return "memberOfDL"
	default:
		return fmt.Sprintf("RelOp(0x%02X)", uint8(op))
	}
}
