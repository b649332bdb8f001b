package format

import "fmt"

type (
	// PropertyType is the 16-bit wire type of a property value.
	PropertyType uint16
	// CompressionType identifies how a stored blob is compressed.
	CompressionType uint8
)

const (
	PtypUnspecified        PropertyType = 0x0000
	PtypNull               PropertyType = 0x0001
	PtypInteger16          PropertyType = 0x0002
	PtypInteger32          PropertyType = 0x0003
	PtypFloating32         PropertyType = 0x0004
	PtypFloating64         PropertyType = 0x0005
	PtypCurrency           PropertyType = 0x0006
	PtypFloatingTime       PropertyType = 0x0007
	PtypErrorCode          PropertyType = 0x000A
	PtypBoolean            PropertyType = 0x000B
	PtypObject             PropertyType = 0x000D
	PtypInteger64          PropertyType = 0x0014
	PtypString8            PropertyType = 0x001E
	PtypString             PropertyType = 0x001F
	PtypTime               PropertyType = 0x0040
	PtypGUID               PropertyType = 0x0048
	PtypServerID           PropertyType = 0x00FB
	PtypRestriction        PropertyType = 0x00FD
	PtypRuleAction         PropertyType = 0x00FE
	PtypBinary             PropertyType = 0x0102
	PtypMultipleInteger16  PropertyType = 0x1002
	PtypMultipleInteger32  PropertyType = 0x1003
	PtypMultipleInteger64  PropertyType = 0x1014
	PtypMultipleString8    PropertyType = 0x101E
	PtypMultipleString     PropertyType = 0x101F
	PtypMultipleTime       PropertyType = 0x1040
	PtypMultipleGUID       PropertyType = 0x1048
	PtypMultipleBinary     PropertyType = 0x1102
	MultiValueFlag         PropertyType = 0x1000
	MultiValueInstanceFlag PropertyType = 0x2000
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

// IsMultiValued reports whether the type carries the multi-value flag.
func (t PropertyType) IsMultiValued() bool {
	return t&MultiValueFlag != 0
}

// Base returns the single-valued type with the multi-value flags cleared.
func (t PropertyType) Base() PropertyType {
	return t &^ (MultiValueFlag | MultiValueInstanceFlag)
}

func (t PropertyType) String() string {
	switch t {
	case PtypUnspecified:
		return "Unspecified"
	case PtypNull:
		return "Null"
	case PtypInteger16:
		return "Integer16"
	case PtypInteger32:
		return "Integer32"
	case PtypFloating32:
		return "Floating32"
	case PtypFloating64:
		return "Floating64"
	case PtypCurrency:
		return "Currency"
	case PtypFloatingTime:
		return "FloatingTime"
	case PtypErrorCode:
		return "ErrorCode"
	case PtypBoolean:
		return "Boolean"
	case PtypObject:
		return "Object"
	case PtypInteger64:
		return "Integer64"
	case PtypString8:
		return "String8"
	case PtypString:
		return "String"
	case PtypTime:
		return "Time"
	case PtypGUID:
		return "Guid"
	case PtypServerID:
		return "ServerId"
	case PtypRestriction:
		return "Restriction"
	case PtypRuleAction:
		return "RuleAction"
	case PtypBinary:
		return "Binary"
	}

	if t.IsMultiValued() {
		return "Multiple" + t.Base().String()
	}

	return fmt.Sprintf("Unknown(0x%04X)", uint16(t))
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseCompression maps a lower-case name ("none", "zstd", "s2", "lz4") to a CompressionType.
func ParseCompression(name string) (CompressionType, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}
