package rule

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/entryid"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/propvalue"
)

// ActionsVersion is the only supported extended rule actions version.
const ActionsVersion uint32 = 0x00000001

// actionHeaderSize covers ActionType, ActionFlavor and ActionFlags.
const actionHeaderSize = 1 + 4 + 4

// ActionType selects the layout of an action's data.
type ActionType uint8

const (
	ActionMove       ActionType = 0x01
	ActionCopy       ActionType = 0x02
	ActionReply      ActionType = 0x03
	ActionOOFReply   ActionType = 0x04
	ActionDefer      ActionType = 0x05
	ActionBounce     ActionType = 0x06
	ActionForward    ActionType = 0x07
	ActionDelegate   ActionType = 0x08
	ActionTag        ActionType = 0x09
	ActionDelete     ActionType = 0x0A
	ActionMarkAsRead ActionType = 0x0B
)

var actionTypeNames = map[ActionType]string{
	ActionMove:       "Move",
	ActionCopy:       "Copy",
	ActionReply:      "Reply",
	ActionOOFReply:   "OOFReply",
	ActionDefer:      "Defer",
	ActionBounce:     "Bounce",
	ActionForward:    "Forward",
	ActionDelegate:   "Delegate",
	ActionTag:        "Tag",
	ActionDelete:     "Delete",
	ActionMarkAsRead: "MarkAsRead",
}

func (t ActionType) String() string {
	if name, ok := actionTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("ActionType(0x%02X)", uint8(t))
}

// Actions is a decoded extended rule action list.
type Actions struct {
	NamedProperties propvalue.NamedPropertyInfo
	Version         uint32
	Blocks          []ActionBlock
}

// ActionBlock is one action. Data holds the type-specific payload and is
// one of *MoveCopyData, *ReplyData, *DeferData, *BounceData, *ForwardData,
// *TagData, or nil for Delete and MarkAsRead.
type ActionBlock struct {
	Type   ActionType
	Flavor uint32
	Flags  uint32
	Data   any
}

// MoveCopyData names the destination folder of a move or copy.
type MoveCopyData struct {
	StoreEntryID  entryid.EntryID
	FolderEntryID entryid.EntryID
}

// ReplyData names the template message of a reply.
type ReplyData struct {
	TemplateEntryID entryid.EntryID
	TemplateGUID    uuid.UUID
}

// DeferData is opaque client data.
type DeferData struct {
	Data []byte
}

// BounceData carries the bounce code.
type BounceData struct {
	Code uint32
}

// Recipient is one recipient of a forward or delegate action.
type Recipient struct {
	Properties []propvalue.TaggedValue
}

// ForwardData lists the recipients of a forward or delegate action.
type ForwardData struct {
	Recipients []Recipient
}

// TagData is the property set by a tag action.
type TagData struct {
	Value propvalue.TaggedValue
}

// DecodeActions decodes extended rule actions occupying all of data.
//
// Layout (little-endian):
//
//	NamedPropertyInfo
//	u32 RuleVersion (1)
//	u32 NoOfActions
//	NoOfActions x (u32 ActionLength, u8 ActionType, u32 ActionFlavor, u32 ActionFlags, ActionData)
//
// ActionLength covers everything after itself, so each ActionData must be
// exactly ActionLength-9 bytes.
//
// Returns:
//   - *Actions: The named property table and one Action per block
//   - error: errs.ErrSentinelMismatch for a rule version other than 1,
//     errs.ErrSizeMismatch when action data disagrees with ActionLength
func (d *Decoder) DecodeActions(data []byte) (*Actions, error) {
	le := endian.GetLittleEndianEngine()
	r := cursor.New(data)

	named, err := propvalue.ReadNamedPropertyInfo(r)
	if err != nil {
		return nil, errs.Wrapf(err, "rule actions named properties")
	}

	acts := &Actions{NamedProperties: named}
	if acts.Version, err = r.Uint32(le); err != nil {
		return nil, err
	}
	if acts.Version != ActionsVersion {
		return nil, fmt.Errorf("%w: rule actions version 0x%08X", errs.ErrSentinelMismatch, acts.Version)
	}

	count, err := r.Uint32(le)
	if err != nil {
		return nil, err
	}
	if uint64(count)*(4+actionHeaderSize) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %d actions exceed %d remaining bytes", errs.ErrTruncated, count, r.Remaining())
	}

	acts.Blocks = make([]ActionBlock, count)
	for i := range acts.Blocks {
		if acts.Blocks[i], err = d.readActionBlock(r); err != nil {
			return nil, errs.Wrapf(err, "action %d", i)
		}
	}
	if err := r.ExpectEnd(); err != nil {
		return nil, errs.Wrapf(err, "rule actions")
	}

	return acts, nil
}

func (d *Decoder) readActionBlock(r *cursor.Reader) (ActionBlock, error) {
	le := endian.GetLittleEndianEngine()
	var blk ActionBlock

	length, err := r.Uint32(le)
	if err != nil {
		return blk, err
	}
	if length < actionHeaderSize {
		return blk, fmt.Errorf("%w: action length %d below header size", errs.ErrSizeMismatch, length)
	}
	if uint64(length) > uint64(r.Remaining()) {
		return blk, fmt.Errorf("%w: action length %d exceeds %d remaining bytes", errs.ErrTruncated, length, r.Remaining())
	}
	body, err := r.Sub(int(length))
	if err != nil {
		return blk, err
	}

	head, err := body.Fixed(actionHeaderSize)
	if err != nil {
		return blk, err
	}
	blk.Type = ActionType(head[0])
	blk.Flavor = le.Uint32(head[1:5])
	blk.Flags = le.Uint32(head[5:9])

	if blk.Data, err = d.readActionData(body, blk.Type); err != nil {
		return blk, errs.Wrapf(err, "%s action data", blk.Type)
	}
	if err := body.ExpectEnd(); err != nil {
		return blk, errs.Wrapf(err, "%s action data", blk.Type)
	}

	return blk, nil
}

func (d *Decoder) readActionData(r *cursor.Reader, typ ActionType) (any, error) {
	le := endian.GetLittleEndianEngine()

	switch typ {
	case ActionMove, ActionCopy:
		store, err := d.sizedEntryID(r)
		if err != nil {
			return nil, errs.Wrapf(err, "store entry id")
		}
		folder, err := d.sizedEntryID(r)
		if err != nil {
			return nil, errs.Wrapf(err, "folder entry id")
		}

		return &MoveCopyData{StoreEntryID: store, FolderEntryID: folder}, nil

	case ActionReply, ActionOOFReply:
		raw, err := r.Fixed(entryid.MessageSize)
		if err != nil {
			return nil, err
		}
		msg, err := d.entryIDs.Decode(raw)
		if err != nil {
			return nil, errs.Wrapf(err, "template entry id")
		}
		guid, err := r.GUID(le)
		if err != nil {
			return nil, err
		}

		return &ReplyData{TemplateEntryID: msg, TemplateGUID: guid}, nil

	case ActionDefer:
		data, err := r.Bytes(r.Remaining())
		if err != nil {
			return nil, err
		}

		return &DeferData{Data: data}, nil

	case ActionBounce:
		code, err := r.Uint32(le)
		if err != nil {
			return nil, err
		}

		return &BounceData{Code: code}, nil

	case ActionForward, ActionDelegate:
		return readRecipients(r)

	case ActionTag:
		v, err := propvalue.ReadTagged(r, propvalue.Extended)
		if err != nil {
			return nil, err
		}

		return &TagData{Value: v}, nil

	case ActionDelete, ActionMarkAsRead:
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: action type 0x%02X", errs.ErrUnknownDiscriminant, uint8(typ))
	}
}

// sizedEntryID reads a u32 size followed by an entry id of that size.
func (d *Decoder) sizedEntryID(r *cursor.Reader) (entryid.EntryID, error) {
	size, err := r.Uint32(endian.GetLittleEndianEngine())
	if err != nil {
		return nil, err
	}
	if uint64(size) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: entry id size %d exceeds %d remaining bytes", errs.ErrTruncated, size, r.Remaining())
	}
	raw, err := r.Fixed(int(size))
	if err != nil {
		return nil, err
	}

	return d.entryIDs.Decode(raw)
}

// recipientReserved is the fixed first byte of every recipient block.
const recipientReserved = 0x01

func readRecipients(r *cursor.Reader) (*ForwardData, error) {
	le := endian.GetLittleEndianEngine()

	count, err := r.Uint32(le)
	if err != nil {
		return nil, err
	}
	// reserved byte and property count
	if uint64(count)*5 > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %d recipients exceed %d remaining bytes", errs.ErrTruncated, count, r.Remaining())
	}

	fwd := &ForwardData{Recipients: make([]Recipient, count)}
	for i := range fwd.Recipients {
		reserved, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		if reserved != recipientReserved {
			return nil, fmt.Errorf("%w: recipient %d reserved byte 0x%02X", errs.ErrSentinelMismatch, i, reserved)
		}

		n, err := r.Uint32(le)
		if err != nil {
			return nil, err
		}
		// a tag is at least 4 bytes
		if uint64(n)*4 > uint64(r.Remaining()) {
			return nil, fmt.Errorf("%w: %d recipient properties exceed %d remaining bytes", errs.ErrTruncated, n, r.Remaining())
		}

		props := make([]propvalue.TaggedValue, n)
		for j := range props {
			if props[j], err = propvalue.ReadTagged(r, propvalue.Extended); err != nil {
				return nil, errs.Wrapf(err, "recipient %d property %d", i, j)
			}
		}
		fwd.Recipients[i].Properties = props
	}

	return fwd, nil
}
