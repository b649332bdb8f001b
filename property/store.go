// Package property reads typed values out of a message store.
//
// The store itself is an external collaborator: it resolves numeric and
// named properties to raw bytes. Accessor decodes those bytes and treats a
// decode failure as an absent property, logging it instead of failing the
// surrounding read.
package property

import (
	"github.com/google/uuid"

	"github.com/arloliu/mapicodec/format"
)

// Store resolves properties to their raw binary values.
type Store interface {
	// Binary returns the value of a numeric property.
	Binary(tag format.PropertyTag) ([]byte, bool)
	// NamedBinary returns the value of a named property identified by its
	// property set and long id.
	NamedBinary(set uuid.UUID, lid uint32) ([]byte, bool)
}

// Property sets of the named properties read by Accessor.
var (
	PSETIDCommon      = uuid.MustParse("00062008-0000-0000-c000-000000000046")
	PSETIDAppointment = uuid.MustParse("00062002-0000-0000-c000-000000000046")
	PSETIDTask        = uuid.MustParse("00062003-0000-0000-c000-000000000046")
)

// Long ids of the named properties read by Accessor.
const (
	LIDVerbStream       uint32 = 0x00008520
	LIDAppointmentRecur uint32 = 0x00008216
	LIDTaskRecurrence   uint32 = 0x00008116
)

func binaryTag(id uint16) format.PropertyTag {
	return format.PropertyTag{Type: format.PtypBinary, ID: id}
}

// Numeric binary properties read by Accessor.
var (
	TagReportTag                    = binaryTag(0x0031)
	TagReceivedByEntryID            = binaryTag(0x003F)
	TagSentRepresentingEntryID      = binaryTag(0x0041)
	TagConversationIndex            = binaryTag(0x0071)
	TagParentEntryID                = binaryTag(0x0E09)
	TagExtendedRuleMessageActions   = binaryTag(0x0E99)
	TagExtendedRuleMessageCondition = binaryTag(0x0E9A)
	TagStoreEntryID                 = binaryTag(0x0FFB)
	TagEntryID                      = binaryTag(0x0FFF)
	TagSearchFolderDefinition       = binaryTag(0x6845)
)

type namedKey struct {
	set uuid.UUID
	lid uint32
}

// MapStore is an in-memory Store.
type MapStore struct {
	tagged map[format.PropertyTag][]byte
	named  map[namedKey][]byte
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{
		tagged: make(map[format.PropertyTag][]byte),
		named:  make(map[namedKey][]byte),
	}
}

// Set stores the value of a numeric property.
func (s *MapStore) Set(tag format.PropertyTag, value []byte) *MapStore {
	s.tagged[tag] = value
	return s
}

// SetNamed stores the value of a named property.
func (s *MapStore) SetNamed(set uuid.UUID, lid uint32, value []byte) *MapStore {
	s.named[namedKey{set: set, lid: lid}] = value
	return s
}

func (s *MapStore) Binary(tag format.PropertyTag) ([]byte, bool) {
	v, ok := s.tagged[tag]
	return v, ok
}

func (s *MapStore) NamedBinary(set uuid.UUID, lid uint32) ([]byte, bool) {
	v, ok := s.named[namedKey{set: set, lid: lid}]
	return v, ok
}
