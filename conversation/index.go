// Package conversation decodes the conversation index (PidTagConversationIndex).
//
// A conversation index is a 22-byte header followed by one 5-byte response
// level per reply in the thread:
//
//	offset  size  field
//	0       1     reserved, always 0x01 (the top byte of the FILETIME)
//	1       5     FILETIME bits 16..55, big-endian
//	6       16    conversation GUID, RFC 4122 byte order
//	22      5*N   response levels
//
// Each response level packs a big-endian uint32 (bit 31 delta code, bits 0..30
// delta time) and one byte (high nibble random, low nibble level).
package conversation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/format"
)

const (
	HeaderSize        = 22   // fixed header size in bytes
	ResponseLevelSize = 5    // size of one response level in bytes
	Reserved          = 0x01 // required value of the reserved byte

	deltaCodeMask = 0x80000000
	deltaTimeMask = 0x7FFFFFFF
)

// Header is the fixed conversation index header.
type Header struct {
	// FileTime is the reconstructed FILETIME of the thread's first message,
	// truncated to 2^16 ticks.
	FileTime uint64
	// GUID identifies the conversation.
	GUID uuid.UUID
}

// Time returns the header timestamp.
func (h Header) Time() time.Time {
	return format.FileTime(h.FileTime)
}

// ResponseLevel describes one reply in the thread.
type ResponseLevel struct {
	// DeltaCode selects the resolution of DeltaTime.
	DeltaCode bool
	// DeltaTime is the 31-bit time difference from the previous message.
	DeltaTime uint32
	// Random is a 4-bit random value.
	Random uint8
	// Level is the 4-bit reply level.
	Level uint8
}

// Delta returns the time difference encoded by the level.
//
// With DeltaCode unset DeltaTime holds FILETIME bits 18..48, otherwise bits 23..53.
func (l ResponseLevel) Delta() time.Duration {
	shift := 18
	if l.DeltaCode {
		shift = 23
	}

	return time.Duration(uint64(l.DeltaTime)<<shift) * 100
}

// Index is a decoded conversation index.
type Index struct {
	Header Header
	// Levels are in wire order, which is reply depth order.
	Levels []ResponseLevel
}

// ReplyTime returns the timestamp of the i-th reply, accumulating deltas from the header.
func (x *Index) ReplyTime(i int) (time.Time, bool) {
	if i < 0 || i >= len(x.Levels) {
		return time.Time{}, false
	}

	t := x.Header.Time()
	for _, l := range x.Levels[:i+1] {
		t = t.Add(l.Delta())
	}

	return t, true
}

// Decode decodes a conversation index that occupies all of data.
//
// Returns:
//   - *Index: decoded header and response levels
//   - error: errs.ErrCorrupted (or a refinement) if the reserved byte is wrong,
//     the buffer is shorter than the header, or the level area is not a
//     multiple of 5 bytes
func Decode(data []byte) (*Index, error) {
	size := len(data)
	if size < HeaderSize {
		return nil, fmt.Errorf("%w: conversation index is %d bytes, need at least %d",
			errs.ErrTruncated, size, HeaderSize)
	}
	if (size-HeaderSize)%ResponseLevelSize != 0 {
		return nil, fmt.Errorf("%w: conversation index level area of %d bytes is not a multiple of %d",
			errs.ErrSizeMismatch, size-HeaderSize, ResponseLevelSize)
	}

	r := cursor.New(data)
	header, err := decodeHeader(r)
	if err != nil {
		return nil, err
	}

	count := (size - HeaderSize) / ResponseLevelSize
	idx := &Index{Header: header, Levels: make([]ResponseLevel, count)}
	for i := range count {
		if idx.Levels[i], err = decodeLevel(r); err != nil {
			return nil, errs.Wrapf(err, "response level %d", i)
		}
	}

	if err := r.ExpectEnd(); err != nil {
		return nil, err
	}

	return idx, nil
}

func decodeHeader(r *cursor.Reader) (Header, error) {
	raw, err := r.Fixed(HeaderSize)
	if err != nil {
		return Header{}, err
	}

	if raw[0] != Reserved {
		return Header{}, fmt.Errorf("%w: conversation index reserved byte is 0x%02X, want 0x%02X",
			errs.ErrSentinelMismatch, raw[0], Reserved)
	}

	var ts uint64
	for _, b := range raw[1:6] {
		ts = ts<<8 | uint64(b)
	}

	return Header{
		FileTime: uint64(Reserved)<<56 | ts<<16,
		GUID:     endian.GUID(raw[6:22], endian.GetBigEndianEngine()),
	}, nil
}

func decodeLevel(r *cursor.Reader) (ResponseLevel, error) {
	word, err := r.Uint32(endian.GetBigEndianEngine())
	if err != nil {
		return ResponseLevel{}, err
	}
	b, err := r.Uint8()
	if err != nil {
		return ResponseLevel{}, err
	}

	return ResponseLevel{
		DeltaCode: word&deltaCodeMask != 0,
		DeltaTime: word & deltaTimeMask,
		Random:    b >> 4,
		Level:     b & 0x0F,
	}, nil
}
