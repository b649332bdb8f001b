// Package verbstream decodes PidLidVerbStream, the list of voting and response
// verbs attached to a message.
//
// Layout (little-endian):
//
//	u16 Version (0x0102)
//	u32 Count
//	Count x VoteOption
//	u16 Version2 (0x0104)
//	Count x VoteOptionExtra
//
// VoteOption records carry ANSI strings with 8-bit length prefixes and several
// fixed-value fields. They follow each other with no padding: the record ends
// with Internal6 and the next VerbType starts on the following byte. VoteOptionExtra records carry the same display names as
// UTF-16. Every byte of the stream must be consumed.
package verbstream

import (
	"fmt"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/internal/options"
)

const (
	Version  uint16 = 0x0102 // Version is the required value of the first version field.
	Version2 uint16 = 0x0104 // Version2 is the required value of the second version field.

	MessageClass = "IPM.Note" // required MsgClsName of every vote option

	internal2Value uint32 = 0x00000000
	internal3Value uint8  = 0x00
	internal4Value uint32 = 0x00000001
	internal6Value uint32 = 0xFFFFFFFF

	// verb type, four length prefixes, the message class and the fixed tail
	minVoteOptionSize  = 4 + 4 + len(MessageClass) + voteOptionTailSize
	voteOptionTailSize = 29
)

// VerbType identifies what a verb does.
type VerbType uint32

const (
	VerbOpenForm      VerbType = 0x00000000
	VerbReply         VerbType = 0x00000001
	VerbReplyAll      VerbType = 0x00000002
	VerbForward       VerbType = 0x00000003
	VerbVote          VerbType = 0x00000004
	VerbReplyToFolder VerbType = 0x00000005
)

// SendBehavior selects how a response is sent when the verb is chosen.
type SendBehavior uint32

const (
	SendBehaviorOpen   SendBehavior = 0x00000000
	SendBehaviorSend   SendBehavior = 0x00000001
	SendBehaviorPrompt SendBehavior = 0x00000002
)

func (s SendBehavior) String() string {
	switch s {
	case SendBehaviorOpen:
		return "Open"
	case SendBehaviorSend:
		return "Send"
	case SendBehaviorPrompt:
		return "Prompt"
	default:
		return fmt.Sprintf("SendBehavior(%d)", uint32(s))
	}
}

// VoteOption is one verb from the first section of the stream.
type VoteOption struct {
	VerbType          VerbType
	DisplayName       string
	MessageClass      string
	DisplayNameRepeat string
	UseUSHeaders      bool
	SendBehavior      SendBehavior
	// Internal5 is kept verbatim; writers disagree on its value.
	Internal5 uint32
	ID        uint32
}

// VoteOptionExtra carries the Unicode display name of the matching VoteOption.
type VoteOptionExtra struct {
	DisplayName       string
	DisplayNameRepeat string
}

// VerbStream is a decoded PidLidVerbStream value.
type VerbStream struct {
	Options []VoteOption
	Extras  []VoteOptionExtra
}

// Config holds decoding options.
type Config struct {
	strictRepeats bool
}

// Option configures Decode.
type Option = options.Option[*Config]

// WithStrictRepeats makes a DisplayNameRepeat that differs from DisplayName a
// decode failure. By default repeat fields are accepted as written.
func WithStrictRepeats(strict bool) Option {
	return options.NoError(func(c *Config) {
		c.strictRepeats = strict
	})
}

// Decode decodes a verb stream occupying all of data.
//
// Parameters:
//   - data: The PidLidVerbStream value
//   - opts: Decode options such as WithStrictRepeats
//
// Returns:
//   - *VerbStream: Vote options and their Unicode extras, in stream order
//   - error: errs.ErrSentinelMismatch for a wrong version or fixed field,
//     errs.ErrRepeatMismatch under strict repeats, otherwise another errs.ErrCorrupted refinement
func Decode(data []byte, opts ...Option) (*VerbStream, error) {
	cfg := &Config{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	le := endian.GetLittleEndianEngine()
	r := cursor.New(data)

	if err := expectVersion(r, Version, "version"); err != nil {
		return nil, err
	}
	count, err := r.Uint32(le)
	if err != nil {
		return nil, err
	}
	if uint64(count)*uint64(minVoteOptionSize) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: verb count %d exceeds stream size", errs.ErrTruncated, count)
	}

	vs := &VerbStream{
		Options: make([]VoteOption, count),
		Extras:  make([]VoteOptionExtra, count),
	}
	for i := range vs.Options {
		if vs.Options[i], err = decodeVoteOption(r, cfg); err != nil {
			return nil, errs.Wrapf(err, "vote option %d", i)
		}
	}

	if err := expectVersion(r, Version2, "version2"); err != nil {
		return nil, err
	}

	for i := range vs.Extras {
		if vs.Extras[i], err = decodeVoteOptionExtra(r, cfg); err != nil {
			return nil, errs.Wrapf(err, "vote option extra %d", i)
		}
	}

	if err := r.ExpectEnd(); err != nil {
		return nil, err
	}

	return vs, nil
}

func expectVersion(r *cursor.Reader, want uint16, name string) error {
	v, err := r.Uint16(endian.GetLittleEndianEngine())
	if err != nil {
		return err
	}
	if v != want {
		return fmt.Errorf("%w: verb stream %s 0x%04X, want 0x%04X", errs.ErrSentinelMismatch, name, v, want)
	}

	return nil
}

func decodeVoteOption(r *cursor.Reader, cfg *Config) (VoteOption, error) {
	le := endian.GetLittleEndianEngine()

	var opt VoteOption
	verb, err := r.Uint32(le)
	if err != nil {
		return opt, err
	}
	opt.VerbType = VerbType(verb)

	if opt.DisplayName, err = ansi8(r); err != nil {
		return opt, err
	}
	if opt.MessageClass, err = ansi8(r); err != nil {
		return opt, err
	}
	if opt.MessageClass != MessageClass {
		return opt, fmt.Errorf("%w: message class %q, want %q", errs.ErrSentinelMismatch, opt.MessageClass, MessageClass)
	}

	internal1, err := r.Uint8()
	if err != nil {
		return opt, err
	}
	if internal1 != 0 {
		return opt, fmt.Errorf("%w: internal1 string length %d, want 0", errs.ErrSentinelMismatch, internal1)
	}

	if opt.DisplayNameRepeat, err = ansi8(r); err != nil {
		return opt, err
	}
	if cfg.strictRepeats && opt.DisplayNameRepeat != opt.DisplayName {
		return opt, fmt.Errorf("%w: display name %q repeated as %q", errs.ErrRepeatMismatch, opt.DisplayName, opt.DisplayNameRepeat)
	}

	fixed, err := r.Fixed(voteOptionTailSize)
	if err != nil {
		return opt, err
	}

	if v := le.Uint32(fixed[0:4]); v != internal2Value {
		return opt, fmt.Errorf("%w: internal2 0x%08X", errs.ErrSentinelMismatch, v)
	}
	if fixed[4] != internal3Value {
		return opt, fmt.Errorf("%w: internal3 0x%02X", errs.ErrSentinelMismatch, fixed[4])
	}
	opt.UseUSHeaders = le.Uint32(fixed[5:9]) != 0
	if v := le.Uint32(fixed[9:13]); v != internal4Value {
		return opt, fmt.Errorf("%w: internal4 0x%08X", errs.ErrSentinelMismatch, v)
	}

	opt.SendBehavior = SendBehavior(le.Uint32(fixed[13:17]))
	switch opt.SendBehavior {
	case SendBehaviorOpen, SendBehaviorSend, SendBehaviorPrompt:
	default:
		return opt, fmt.Errorf("%w: send behavior 0x%08X", errs.ErrUnknownDiscriminant, uint32(opt.SendBehavior))
	}

	opt.Internal5 = le.Uint32(fixed[17:21])
	opt.ID = le.Uint32(fixed[21:25])
	if v := le.Uint32(fixed[25:29]); v != internal6Value {
		return opt, fmt.Errorf("%w: internal6 0x%08X", errs.ErrSentinelMismatch, v)
	}

	return opt, nil
}

func decodeVoteOptionExtra(r *cursor.Reader, cfg *Config) (VoteOptionExtra, error) {
	var extra VoteOptionExtra
	var err error

	if extra.DisplayName, err = utf16x8(r); err != nil {
		return extra, err
	}
	if extra.DisplayNameRepeat, err = utf16x8(r); err != nil {
		return extra, err
	}
	if cfg.strictRepeats && extra.DisplayNameRepeat != extra.DisplayName {
		return extra, fmt.Errorf("%w: display name %q repeated as %q", errs.ErrRepeatMismatch, extra.DisplayName, extra.DisplayNameRepeat)
	}

	return extra, nil
}

// ansi8 reads an ANSI string with a u8 byte-count prefix.
func ansi8(r *cursor.Reader) (string, error) {
	n, err := r.Uint8()
	if err != nil {
		return "", err
	}

	return r.ANSI(int(n))
}

// utf16x8 reads a UTF-16 string with a u8 character-count prefix.
func utf16x8(r *cursor.Reader) (string, error) {
	n, err := r.Uint8()
	if err != nil {
		return "", err
	}

	return r.UTF16(int(n))
}
