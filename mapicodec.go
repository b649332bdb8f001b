// Package mapicodec decodes the binary property values that Exchange and
// Outlook store on MAPI objects.
//
// Every decoder is a pure function from a byte slice to a typed record. A
// malformed value yields an error satisfying errors.Is(err, errs.ErrCorrupted)
// and never a panic or a partially filled record.
//
// # Core Features
//
//   - Entry ids: one-off, address book, store, folder, message, contact address,
//     wrapped and general identifiers, dispatched on the 16-byte provider UID
//   - Conversation index, report tag and voting verb stream records
//   - Extended rule conditions and actions with their restriction tree grammar
//   - Search folder definitions with the search restriction grammar
//   - Recurrence patterns, appointment recurrences and exceptions
//
// # Basic Usage
//
// Decoding an entry id read from PidTagEntryID:
//
//	import "github.com/arloliu/mapicodec"
//
//	eid, err := mapicodec.DecodeEntryID(raw)
//	if err != nil {
//	    return err
//	}
//	if folder, ok := eid.(*entryid.Folder); ok {
//	    fmt.Println(folder.DatabaseGUID, folder.GlobalCounter)
//	}
//
// Folder and message identifiers carry the provider UID of the mailbox they
// belong to. Register it before decoding:
//
//	dec, err := entryid.NewDecoder(entryid.WithStoreProvider(mailboxUID))
//
// # Package Structure
//
// This package provides top-level wrappers that use default decoder settings.
// For recursion limits, extra provider UIDs, strict verb stream checks or
// graceful per-object access through a property store, use the entryid, rule,
// searchfolder, verbstream and property packages directly.
package mapicodec

import (
	"github.com/arloliu/mapicodec/conversation"
	"github.com/arloliu/mapicodec/entryid"
	"github.com/arloliu/mapicodec/internal/hash"
	"github.com/arloliu/mapicodec/recurrence"
	"github.com/arloliu/mapicodec/reporttag"
	"github.com/arloliu/mapicodec/rule"
	"github.com/arloliu/mapicodec/searchfolder"
	"github.com/arloliu/mapicodec/verbstream"
)

// Fingerprint returns the 64-bit xxHash64 of a raw property value.
//
// Use it to correlate decode failures or de-duplicate identifiers without
// keeping the bytes around.
func Fingerprint(raw []byte) uint64 {
	return hash.Sum(raw)
}

// DecodeEntryID decodes an entry id with the well-known provider table.
//
// Folder and message identifiers use a per-mailbox provider UID and decode
// only through an entryid.Decoder built with entryid.WithStoreProvider.
//
// Parameters:
//   - data: The complete property value
//
// Returns:
//   - entryid.EntryID: One of the concrete variants (*entryid.OneOff, *entryid.Folder, ...)
//   - error: An error wrapping errs.ErrCorrupted
func DecodeEntryID(data []byte) (entryid.EntryID, error) {
	return entryid.Decode(data)
}

// DecodeEntryList decodes a counted list of entry ids, such as
// PidTagReplyRecipientEntries.
func DecodeEntryList(data []byte) ([]entryid.EntryID, error) {
	return entryid.DecodeList(data)
}

// DecodeConversationIndex decodes PidTagConversationIndex.
//
// Example:
//
//	idx, err := mapicodec.DecodeConversationIndex(raw)
//	if err != nil {
//	    return err
//	}
//	for i := range idx.Levels {
//	    replied, _ := idx.ReplyTime(i)
//	    fmt.Println(idx.Levels[i].Level, replied)
//	}
func DecodeConversationIndex(data []byte) (*conversation.Index, error) {
	return conversation.Decode(data)
}

// DecodeReportTag decodes PidTagReportTag.
func DecodeReportTag(data []byte) (*reporttag.ReportTag, error) {
	return reporttag.Decode(data)
}

// DecodeVerbStream decodes PidLidVerbStream. Repeat fields that disagree with
// their primary fields are accepted; pass verbstream.WithStrictRepeats(true)
// to reject them.
//
// Parameters:
//   - data: The complete property value
//   - opts: verbstream decode options
//
// Returns:
//   - *verbstream.VerbStream: Vote options and their Unicode display names
//   - error: An error wrapping errs.ErrCorrupted
func DecodeVerbStream(data []byte, opts ...verbstream.Option) (*verbstream.VerbStream, error) {
	return verbstream.Decode(data, opts...)
}

// DecodeRuleCondition decodes PidTagExtendedRuleMessageCondition.
func DecodeRuleCondition(data []byte) (*rule.Condition, error) {
	return rule.DecodeCondition(data)
}

// DecodeRuleActions decodes PidTagExtendedRuleMessageActions.
func DecodeRuleActions(data []byte) (*rule.Actions, error) {
	return rule.DecodeActions(data)
}

// DecodeSearchFolder decodes PidTagSearchFolderDefinition.
//
// Mailbox folder ids in the folder list need their store provider registered;
// use a searchfolder.Decoder built with searchfolder.WithEntryIDDecoder.
//
// Returns:
//   - *searchfolder.Definition: Every section of the definition
//   - error: An error wrapping errs.ErrCorrupted
func DecodeSearchFolder(data []byte) (*searchfolder.Definition, error) {
	return searchfolder.Decode(data)
}

// DecodeAppointmentRecurrence decodes PidLidAppointmentRecur, including the
// exception list and extended exceptions.
func DecodeAppointmentRecurrence(data []byte) (*recurrence.Appointment, error) {
	return recurrence.DecodeAppointment(data)
}

// DecodeRecurrencePattern decodes a bare recurrence pattern such as
// PidLidTaskRecurrence.
func DecodeRecurrencePattern(data []byte) (*recurrence.Pattern, error) {
	return recurrence.DecodePattern(data)
}
