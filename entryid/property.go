package entryid

import "github.com/arloliu/mapicodec/format"

// Property ids whose binary values hold a single entry id.
const (
	PropReceivedByEntryID           uint16 = 0x003F
	PropSentRepresentingEntryID     uint16 = 0x0041
	PropReceivedRepresentingEntryID uint16 = 0x0043
	PropReportEntryID               uint16 = 0x0045
	PropSenderEntryID               uint16 = 0x0C19
	PropParentEntryID               uint16 = 0x0E09
	PropSentMailEntryID             uint16 = 0x0E0A
	PropStoreEntryID                uint16 = 0x0FFB
	PropEntryID                     uint16 = 0x0FFF
	PropCreatorEntryID              uint16 = 0x3FF9
	PropLastModifierEntryID         uint16 = 0x3FFB
)

var entryIDProperties = map[uint16]struct{}{
	PropReceivedByEntryID:           {},
	PropSentRepresentingEntryID:     {},
	PropReceivedRepresentingEntryID: {},
	PropReportEntryID:               {},
	PropSenderEntryID:               {},
	PropParentEntryID:               {},
	PropSentMailEntryID:             {},
	PropStoreEntryID:                {},
	PropEntryID:                     {},
	PropCreatorEntryID:              {},
	PropLastModifierEntryID:         {},
}

// IsEntryIDProperty reports whether tag is a binary property that holds one
// entry id, such as PidTagEntryId or PidTagParentEntryId.
func IsEntryIDProperty(tag format.PropertyTag) bool {
	if tag.Type != format.PtypBinary {
		return false
	}
	_, ok := entryIDProperties[tag.ID]

	return ok
}

// DecodeValue decodes a property value read from a restriction or a property
// row when its tag is an entry id property.
//
// Parameters:
//   - tag: The tag the value was read with
//   - value: The decoded value; only []byte is considered
//
// Returns:
//   - EntryID: The decoded identifier, or nil when tag is not an entry id
//     property, the value is not binary, or the bytes do not decode
func (d *Decoder) DecodeValue(tag format.PropertyTag, value any) EntryID {
	if !IsEntryIDProperty(tag) {
		return nil
	}
	raw, ok := value.([]byte)
	if !ok {
		return nil
	}
	eid, err := d.Decode(raw)
	if err != nil {
		return nil
	}

	return eid
}
