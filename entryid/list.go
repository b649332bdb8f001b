package entryid

import (
	"fmt"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/internal/hash"
)

// Fingerprint returns a 64-bit hash of a raw entry id. Equal identifiers have
// equal fingerprints, so it can key de-duplication maps without keeping the
// bytes around.
func Fingerprint(raw []byte) uint64 {
	return hash.Sum(raw)
}

// DecodeList decodes an EntryList with the default decoder.
func DecodeList(data []byte) ([]EntryID, error) {
	return defaultDecoder.DecodeList(data)
}

// DecodeList decodes an EntryList occupying all of data.
//
// Layout (little-endian):
//
//	u32 Count
//	u32 Pad
//	Count x (u32 Length, u32 LengthPad)
//	Count x entry id, each padded to a multiple of 4 bytes
//
// Returns:
//   - []EntryID: The identifiers in list order
//   - error: The first entry's decode error, wrapped with its index
func (d *Decoder) DecodeList(data []byte) ([]EntryID, error) {
	r := cursor.New(data)
	ids, err := d.decodeList(r)
	if err != nil {
		return nil, err
	}
	if err := r.ExpectEnd(); err != nil {
		return nil, errs.Wrapf(err, "entry list")
	}

	return ids, nil
}

// decodeList reads an EntryList from r, leaving r after the last entry.
func (d *Decoder) decodeList(r *cursor.Reader) ([]EntryID, error) {
	le := endian.GetLittleEndianEngine()

	head, err := r.Fixed(8)
	if err != nil {
		return nil, err
	}
	count := le.Uint32(head[0:4])
	if uint64(count)*8 > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: entry list count %d exceeds %d remaining bytes",
			errs.ErrTruncated, count, r.Remaining())
	}

	lengths := make([]uint32, count)
	for i := range lengths {
		pair, err := r.Fixed(8)
		if err != nil {
			return nil, err
		}
		lengths[i] = le.Uint32(pair[0:4])
	}

	ids := make([]EntryID, count)
	for i, n := range lengths {
		if uint64(n) > uint64(r.Remaining()) {
			return nil, fmt.Errorf("%w: entry %d length %d exceeds %d remaining bytes",
				errs.ErrTruncated, i, n, r.Remaining())
		}
		sub, err := r.Sub(int(n))
		if err != nil {
			return nil, err
		}
		if ids[i], err = d.decode(sub, 1); err != nil {
			return nil, errs.Wrapf(err, "entry list item %d", i)
		}
		if pad := (4 - int(n)%4) % 4; pad > 0 {
			if err := r.Skip(pad); err != nil {
				return nil, errs.Wrapf(err, "entry list item %d padding", i)
			}
		}
	}

	return ids, nil
}
