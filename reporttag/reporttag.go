// Package reporttag decodes PidTagReportTag, the blob that links a delivery or
// read report back to the message it reports on.
package reporttag

import (
	"bytes"
	"fmt"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
)

// Cookie is the fixed 9-byte prefix of every report tag.
const Cookie = "PCDFEB09\x00"

const (
	// VersionNoSearchFolder is written when the original message was not in a search folder.
	VersionNoSearchFolder uint32 = 0x00010000
	// VersionSearchFolder is written when a search folder entry id is present.
	VersionSearchFolder uint32 = 0x00020000
)

// ReportTag holds the identifiers of the original message.
//
// Entry id fields are raw bytes; decode them with the entryid package. A block
// with a zero size is nil.
type ReportTag struct {
	Version             uint32
	StoreEntryID        []byte
	FolderEntryID       []byte
	MessageEntryID      []byte
	SearchFolderEntryID []byte
	MessageSearchKey    []byte
	// ANSIText is the subject of the original message with the terminator removed.
	ANSIText string
}

// Decode decodes a report tag occupying all of data.
//
// Returns:
//   - *ReportTag: The version, the raw entry id blocks, the search key and subject
//   - error: errs.ErrSentinelMismatch for a bad cookie, otherwise errs.ErrCorrupted
//     for a short field or trailing bytes
func Decode(data []byte) (*ReportTag, error) {
	r := cursor.New(data)
	le := endian.GetLittleEndianEngine()

	cookie, err := r.Fixed(len(Cookie))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(cookie, []byte(Cookie)) {
		return nil, fmt.Errorf("%w: report tag cookie %q", errs.ErrSentinelMismatch, cookie)
	}

	tag := &ReportTag{}
	if tag.Version, err = r.Uint32(le); err != nil {
		return nil, err
	}

	blocks := []struct {
		name string
		dst  *[]byte
	}{
		{"store entry id", &tag.StoreEntryID},
		{"folder entry id", &tag.FolderEntryID},
		{"message entry id", &tag.MessageEntryID},
		{"search folder entry id", &tag.SearchFolderEntryID},
		{"message search key", &tag.MessageSearchKey},
	}
	for _, blk := range blocks {
		if *blk.dst, err = sizedBlock(r); err != nil {
			return nil, errs.Wrapf(err, "report tag %s", blk.name)
		}
	}

	text, err := sizedBlock(r)
	if err != nil {
		return nil, errs.Wrapf(err, "report tag ansi text")
	}
	if len(text) > 0 {
		sub := cursor.New(bytes.TrimRight(text, "\x00"))
		if tag.ANSIText, err = sub.ANSI(sub.Remaining()); err != nil {
			return nil, err
		}
	}

	if err := r.ExpectEnd(); err != nil {
		return nil, err
	}

	return tag, nil
}

func sizedBlock(r *cursor.Reader) ([]byte, error) {
	size, err := r.Uint32(endian.GetLittleEndianEngine())
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	if uint64(size) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: block size %d exceeds %d remaining bytes", errs.ErrTruncated, size, r.Remaining())
	}

	return r.Bytes(int(size))
}
