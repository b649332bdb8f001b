// Package propvalue decodes tagged property values and the named-property
// information block that precedes extended rule conditions and actions.
//
// A tagged value is a little-endian 32-bit property tag followed by a value
// whose layout depends on the tag's type. Variable-length values carry a
// COUNT prefix that is 16 bits wide in the standard format and 32 bits wide
// in the extended format used by extended rules.
//
// Decoded values use these Go types:
//
//	Null                    nil
//	Integer16               int16
//	Integer32               int32
//	Floating32              float32
//	Floating64              float64
//	Currency                int64 (scaled by 10000)
//	FloatingTime            float64 (OLE automation date)
//	ErrorCode               uint32
//	Boolean                 bool
//	Integer64               int64
//	String8, String         string
//	Time                    time.Time
//	Guid                    uuid.UUID
//	ServerId, Binary        []byte
//	Multiple*               a slice of the single-valued type
package propvalue

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/format"
)

// Width selects the size of COUNT fields.
type Width uint8

const (
	// Standard uses 16-bit COUNT fields.
	Standard Width = iota
	// Extended uses 32-bit COUNT fields.
	Extended
)

func (w Width) String() string {
	if w == Extended {
		return "Extended"
	}

	return "Standard"
}

// TaggedValue is a property tag and its decoded value.
type TaggedValue struct {
	Tag   format.PropertyTag
	Value any
}

// ReadTag reads a packed little-endian property tag.
func ReadTag(r *cursor.Reader) (format.PropertyTag, error) {
	v, err := r.Uint32(endian.GetLittleEndianEngine())
	if err != nil {
		return format.PropertyTag{}, err
	}

	return format.TagFromUint32(v), nil
}

// ReadTagged reads a property tag followed by its value.
//
// Parameters:
//   - r: Cursor positioned at the tag
//   - w: Width of the COUNT fields of binary, string and multi-valued values
//
// Returns:
//   - TaggedValue: The tag and its Go value ([]byte, string, int32, time.Time, ...)
//   - error: errs.ErrUnsupportedType for a type with no wire form here, or a truncation
func ReadTagged(r *cursor.Reader, w Width) (TaggedValue, error) {
	tag, err := ReadTag(r)
	if err != nil {
		return TaggedValue{}, err
	}

	v, err := ReadValue(r, tag.Type, w)
	if err != nil {
		return TaggedValue{}, errs.Wrapf(err, "property %s", tag)
	}

	return TaggedValue{Tag: tag, Value: v}, nil
}

// ReadCount reads a COUNT field of the given width.
func ReadCount(r *cursor.Reader, w Width) (int, error) {
	le := endian.GetLittleEndianEngine()
	if w == Extended {
		n, err := r.Uint32(le)
		return int(n), err
	}

	n, err := r.Uint16(le)

	return int(n), err
}

// ReadValue reads one value of type typ.
func ReadValue(r *cursor.Reader, typ format.PropertyType, w Width) (any, error) {
	if typ.IsMultiValued() {
		return readMulti(r, typ, w)
	}

	le := endian.GetLittleEndianEngine()
	switch typ {
	case format.PtypNull:
		return nil, nil
	case format.PtypInteger16:
		v, err := r.Uint16(le)
		return int16(v), err //nolint:gosec
	case format.PtypInteger32:
		v, err := r.Uint32(le)
		return int32(v), err //nolint:gosec
	case format.PtypFloating32:
		v, err := r.Uint32(le)
		return math.Float32frombits(v), err
	case format.PtypFloating64, format.PtypFloatingTime:
		v, err := r.Uint64(le)
		return math.Float64frombits(v), err
	case format.PtypCurrency, format.PtypInteger64:
		v, err := r.Uint64(le)
		return int64(v), err //nolint:gosec
	case format.PtypErrorCode:
		return r.Uint32(le)
	case format.PtypBoolean:
		v, err := r.Uint8()
		return v != 0, err
	case format.PtypString8:
		return r.ANSICString()
	case format.PtypString:
		return r.UTF16CString()
	case format.PtypTime:
		v, err := r.Uint64(le)
		if err != nil {
			return nil, err
		}

		return format.FileTime(v), nil
	case format.PtypGUID:
		return r.GUID(le)
	case format.PtypBinary, format.PtypServerID:
		return readBinary(r, w)
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedType, typ)
	}
}

func readBinary(r *cursor.Reader, w Width) ([]byte, error) {
	n, err := ReadCount(r, w)
	if err != nil {
		return nil, err
	}

	return r.Bytes(n)
}

// fixedSize returns the wire size of a fixed-width type, or 0.
func fixedSize(typ format.PropertyType) int {
	switch typ {
	case format.PtypInteger16:
		return 2
	case format.PtypInteger32, format.PtypFloating32:
		return 4
	case format.PtypFloating64, format.PtypFloatingTime, format.PtypCurrency, format.PtypInteger64, format.PtypTime:
		return 8
	case format.PtypGUID:
		return endian.GUIDSize
	default:
		return 0
	}
}

func readMulti(r *cursor.Reader, typ format.PropertyType, w Width) (any, error) {
	base := typ.Base()
	n, err := ReadCount(r, w)
	if err != nil {
		return nil, err
	}

	// Strings take at least a terminator, binaries at least a COUNT.
	minSize := fixedSize(base)
	switch base {
	case format.PtypString8:
		minSize = 1
	case format.PtypString:
		minSize = 2
	case format.PtypBinary:
		minSize = 2
		if w == Extended {
			minSize = 4
		}
	}
	if minSize == 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedType, typ)
	}
	if uint64(n)*uint64(minSize) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %d values of %s exceed %d remaining bytes",
			errs.ErrTruncated, n, base, r.Remaining())
	}

	switch base {
	case format.PtypInteger16:
		return readEach[int16](r, n, base, w)
	case format.PtypInteger32:
		return readEach[int32](r, n, base, w)
	case format.PtypFloating32:
		return readEach[float32](r, n, base, w)
	case format.PtypFloating64, format.PtypFloatingTime:
		return readEach[float64](r, n, base, w)
	case format.PtypCurrency, format.PtypInteger64:
		return readEach[int64](r, n, base, w)
	case format.PtypString8, format.PtypString:
		return readEach[string](r, n, base, w)
	case format.PtypTime:
		return readEach[time.Time](r, n, base, w)
	case format.PtypGUID:
		return readEach[uuid.UUID](r, n, base, w)
	case format.PtypBinary:
		return readEach[[]byte](r, n, base, w)
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrUnsupportedType, typ)
	}
}

// readEach reads n single values of type base and collects them as T.
func readEach[T any](r *cursor.Reader, n int, base format.PropertyType, w Width) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		v, err := ReadValue(r, base, w)
		if err != nil {
			return nil, errs.Wrapf(err, "value %d", i)
		}
		out[i], _ = v.(T)
	}

	return out, nil
}
