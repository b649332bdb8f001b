package propvalue

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
)

// NameKind selects how a named property is identified within its set.
type NameKind uint8

const (
	// NameKindID identifies the property by a numeric LID.
	NameKindID NameKind = 0x00
	// NameKindString identifies the property by a Unicode name.
	NameKindString NameKind = 0x01
)

// NamedProperty maps a property id used in a rule to a named property.
type NamedProperty struct {
	ID   uint16
	Kind NameKind
	Set  uuid.UUID
	LID  uint32
	Name string
}

// String formats the property as set:lid or set:"name".
func (p NamedProperty) String() string {
	if p.Kind == NameKindString {
		return fmt.Sprintf("%s:%q", p.Set, p.Name)
	}

	return fmt.Sprintf("%s:0x%08X", p.Set, p.LID)
}

// NamedPropertyInfo lists the named properties referenced by an extended rule.
type NamedPropertyInfo struct {
	Properties []NamedProperty
}

// Lookup returns the named property mapped to id.
func (n NamedPropertyInfo) Lookup(id uint16) (NamedProperty, bool) {
	for _, p := range n.Properties {
		if p.ID == id {
			return p, true
		}
	}

	return NamedProperty{}, false
}

// ReadNamedPropertyInfo reads a named-property information block.
//
// Layout (little-endian):
//
//	u16 NoOfNamedProps
//	NoOfNamedProps x u16 PropId
//	u32 NamedPropertiesSize      present when NoOfNamedProps > 0
//	NoOfNamedProps x PropertyName
//
// The PropertyName entries must occupy exactly NamedPropertiesSize bytes.
func ReadNamedPropertyInfo(r *cursor.Reader) (NamedPropertyInfo, error) {
	le := endian.GetLittleEndianEngine()
	var info NamedPropertyInfo

	count, err := r.Uint16(le)
	if err != nil {
		return info, err
	}
	if count == 0 {
		return info, nil
	}
	if int(count)*2 > r.Remaining() {
		return info, fmt.Errorf("%w: %d named property ids exceed %d remaining bytes",
			errs.ErrTruncated, count, r.Remaining())
	}

	info.Properties = make([]NamedProperty, count)
	for i := range info.Properties {
		if info.Properties[i].ID, err = r.Uint16(le); err != nil {
			return info, err
		}
	}

	size, err := r.Uint32(le)
	if err != nil {
		return info, err
	}
	if uint64(size) > uint64(r.Remaining()) {
		return info, fmt.Errorf("%w: named properties size %d exceeds %d remaining bytes",
			errs.ErrTruncated, size, r.Remaining())
	}
	names, err := r.Sub(int(size))
	if err != nil {
		return info, err
	}

	for i := range info.Properties {
		if err := readPropertyName(names, &info.Properties[i]); err != nil {
			return info, errs.Wrapf(err, "named property %d", i)
		}
	}
	if names.Remaining() != 0 {
		return info, fmt.Errorf("%w: named properties declared %d bytes, used %d",
			errs.ErrSizeMismatch, size, names.Offset())
	}

	return info, nil
}

func readPropertyName(r *cursor.Reader, p *NamedProperty) error {
	kind, err := r.Uint8()
	if err != nil {
		return err
	}
	p.Kind = NameKind(kind)

	if p.Set, err = r.GUID(endian.GetLittleEndianEngine()); err != nil {
		return err
	}

	switch p.Kind {
	case NameKindID:
		p.LID, err = r.Uint32(endian.GetLittleEndianEngine())
		return err

	case NameKindString:
		size, err := r.Uint8()
		if err != nil {
			return err
		}
		if size%2 != 0 {
			return fmt.Errorf("%w: odd name size %d", errs.ErrSizeMismatch, size)
		}
		name, err := r.UTF16(int(size) / 2)
		if err != nil {
			return err
		}
		p.Name = strings.TrimRight(name, "\x00")

		return nil

	default:
		return fmt.Errorf("%w: property name kind 0x%02X", errs.ErrUnknownDiscriminant, kind)
	}
}
