package recurrence

import (
	"fmt"
	"time"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/format"
)

const (
	// ReaderVersion2 is the required second reader version.
	ReaderVersion2 uint32 = 0x00003006
	// ChangeHighlightVersion is the first writer version that stores a
	// change highlight in each extended exception.
	ChangeHighlightVersion uint32 = 0x00003009
)

// OverrideFlags say which fields of an exception differ from the series.
type OverrideFlags uint16

const (
	OverrideSubject       OverrideFlags = 0x0001
	OverrideMeetingType   OverrideFlags = 0x0002
	OverrideReminderDelta OverrideFlags = 0x0004
	OverrideReminder      OverrideFlags = 0x0008
	OverrideLocation      OverrideFlags = 0x0010
	OverrideBusyStatus    OverrideFlags = 0x0020
	OverrideAttachment    OverrideFlags = 0x0040
	OverrideSubType       OverrideFlags = 0x0080
	OverrideAppointColor  OverrideFlags = 0x0100
	OverrideExceptionBody OverrideFlags = 0x0200
)

// Has reports whether every bit of mask is set.
func (f OverrideFlags) Has(mask OverrideFlags) bool {
	return f&mask == mask
}

// Appointment is a decoded AppointmentRecurrencePattern.
type Appointment struct {
	Pattern
	ReaderVersion2     uint32
	WriterVersion2     uint32
	StartTimeOffset    uint32
	EndTimeOffset      uint32
	Exceptions         []Exception
	ReservedBlock1     []byte
	ExtendedExceptions []ExtendedException
	ReservedBlock2     []byte
}

// Exception describes one modified instance. Optional fields are nil unless
// the matching override flag is set.
type Exception struct {
	StartDateTime     time.Time
	EndDateTime       time.Time
	OriginalStartDate time.Time
	OverrideFlags     OverrideFlags
	Subject           *string
	MeetingType       *uint32
	ReminderDelta     *uint32
	ReminderSet       *uint32
	Location          *string
	BusyStatus        *uint32
	Attachment        *uint32
	SubType           *uint32
	AppointmentColor  *uint32
}

// ChangeHighlight is the change highlight of an extended exception.
type ChangeHighlight struct {
	Size     uint32
	Value    uint32
	Reserved []byte
}

// ExtendedOverride carries the wide-character subject and location of an
// exception that overrides either.
type ExtendedOverride struct {
	StartDateTime     time.Time
	EndDateTime       time.Time
	OriginalStartDate time.Time
	Subject           *string
	Location          *string
	ReservedBlockEE2  []byte
}

// ExtendedException pairs with the Exception at the same index.
type ExtendedException struct {
	ChangeHighlight  *ChangeHighlight
	ReservedBlockEE1 []byte
	Override         *ExtendedOverride
}

// DecodeAppointment decodes an AppointmentRecurrencePattern occupying all of data.
//
// Layout (little-endian):
//
//	RecurrencePattern
//	u32 ReaderVersion2 (0x3006)
//	u32 WriterVersion2
//	u32 StartTimeOffset
//	u32 EndTimeOffset
//	u16 ExceptionCount
//	ExceptionCount x ExceptionInfo
//	u32 ReservedBlock1Size, bytes
//	ExceptionCount x ExtendedException
//	u32 ReservedBlock2Size, bytes
//
// Parameters:
//   - data: The PidLidAppointmentRecur value
//
// Returns:
//   - *Appointment: The pattern, time offsets, exceptions and extended exceptions
//   - error: errs.ErrSentinelMismatch for wrong version2 fields,
//     errs.ErrSizeMismatch for inconsistent override string or highlight sizes
func DecodeAppointment(data []byte) (*Appointment, error) {
	le := endian.GetLittleEndianEngine()
	r := cursor.New(data)

	p, err := readPattern(r)
	if err != nil {
		return nil, err
	}
	a := &Appointment{Pattern: *p}

	head, err := r.Fixed(16)
	if err != nil {
		return nil, errs.Wrapf(err, "appointment recurrence header")
	}
	a.ReaderVersion2 = le.Uint32(head[0:4])
	a.WriterVersion2 = le.Uint32(head[4:8])
	a.StartTimeOffset = le.Uint32(head[8:12])
	a.EndTimeOffset = le.Uint32(head[12:16])
	if a.ReaderVersion2 != ReaderVersion2 {
		return nil, fmt.Errorf("%w: reader version2 0x%08X", errs.ErrSentinelMismatch, a.ReaderVersion2)
	}
	if a.WriterVersion2 < ReaderVersion2 {
		return nil, fmt.Errorf("%w: writer version2 0x%08X", errs.ErrSentinelMismatch, a.WriterVersion2)
	}

	count, err := r.Uint16(le)
	if err != nil {
		return nil, err
	}
	// start, end, original start and override flags
	if int(count)*14 > r.Remaining() {
		return nil, fmt.Errorf("%w: %d exceptions exceed %d remaining bytes", errs.ErrTruncated, count, r.Remaining())
	}

	a.Exceptions = make([]Exception, count)
	for i := range a.Exceptions {
		if a.Exceptions[i], err = readException(r); err != nil {
			return nil, errs.Wrapf(err, "exception %d", i)
		}
	}

	if a.ReservedBlock1, err = readBlock(r); err != nil {
		return nil, errs.Wrapf(err, "reserved block 1")
	}

	a.ExtendedExceptions = make([]ExtendedException, count)
	for i := range a.ExtendedExceptions {
		if a.ExtendedExceptions[i], err = readExtendedException(r, a.WriterVersion2, a.Exceptions[i].OverrideFlags); err != nil {
			return nil, errs.Wrapf(err, "extended exception %d", i)
		}
	}

	if a.ReservedBlock2, err = readBlock(r); err != nil {
		return nil, errs.Wrapf(err, "reserved block 2")
	}
	if err := r.ExpectEnd(); err != nil {
		return nil, errs.Wrapf(err, "appointment recurrence")
	}

	return a, nil
}

func readException(r *cursor.Reader) (Exception, error) {
	le := endian.GetLittleEndianEngine()
	var ex Exception

	head, err := r.Fixed(14)
	if err != nil {
		return ex, err
	}
	ex.StartDateTime = format.MinutesSince1601(le.Uint32(head[0:4]))
	ex.EndDateTime = format.MinutesSince1601(le.Uint32(head[4:8]))
	ex.OriginalStartDate = format.MinutesSince1601(le.Uint32(head[8:12]))
	ex.OverrideFlags = OverrideFlags(le.Uint16(head[12:14]))

	fields := []struct {
		flag OverrideFlags
		str  **string
		num  **uint32
	}{
		{flag: OverrideSubject, str: &ex.Subject},
		{flag: OverrideMeetingType, num: &ex.MeetingType},
		{flag: OverrideReminderDelta, num: &ex.ReminderDelta},
		{flag: OverrideReminder, num: &ex.ReminderSet},
		{flag: OverrideLocation, str: &ex.Location},
		{flag: OverrideBusyStatus, num: &ex.BusyStatus},
		{flag: OverrideAttachment, num: &ex.Attachment},
		{flag: OverrideSubType, num: &ex.SubType},
		{flag: OverrideAppointColor, num: &ex.AppointmentColor},
	}
	for _, f := range fields {
		if !ex.OverrideFlags.Has(f.flag) {
			continue
		}
		if f.str != nil {
			s, err := readANSIOverride(r)
			if err != nil {
				return ex, err
			}
			*f.str = &s

			continue
		}
		v, err := r.Uint32(le)
		if err != nil {
			return ex, err
		}
		*f.num = &v
	}

	return ex, nil
}

// readANSIOverride reads a subject or location: u16 length, u16 length2 and
// length2 bytes of ANSI text. Length counts a terminator that is not stored,
// so it must be length2+1.
func readANSIOverride(r *cursor.Reader) (string, error) {
	le := endian.GetLittleEndianEngine()

	lens, err := r.Fixed(4)
	if err != nil {
		return "", err
	}
	n, n2 := le.Uint16(lens[0:2]), le.Uint16(lens[2:4])
	if int(n) != int(n2)+1 {
		return "", fmt.Errorf("%w: override string lengths %d and %d", errs.ErrSizeMismatch, n, n2)
	}

	return r.ANSI(int(n2))
}

func readExtendedException(r *cursor.Reader, writerVersion2 uint32, flags OverrideFlags) (ExtendedException, error) {
	le := endian.GetLittleEndianEngine()
	var ee ExtendedException

	if writerVersion2 >= ChangeHighlightVersion {
		size, err := r.Uint32(le)
		if err != nil {
			return ee, err
		}
		if size < 4 {
			return ee, fmt.Errorf("%w: change highlight size %d", errs.ErrSizeMismatch, size)
		}
		if uint64(size) > uint64(r.Remaining()) {
			return ee, fmt.Errorf("%w: change highlight size %d exceeds %d remaining bytes",
				errs.ErrTruncated, size, r.Remaining())
		}
		ch := &ChangeHighlight{Size: size}
		if ch.Value, err = r.Uint32(le); err != nil {
			return ee, err
		}
		if size > 4 {
			if ch.Reserved, err = r.Bytes(int(size) - 4); err != nil {
				return ee, err
			}
		}
		ee.ChangeHighlight = ch
	}

	var err error
	if ee.ReservedBlockEE1, err = readBlock(r); err != nil {
		return ee, errs.Wrapf(err, "reserved block EE1")
	}

	if !flags.Has(OverrideSubject) && !flags.Has(OverrideLocation) {
		return ee, nil
	}

	head, err := r.Fixed(12)
	if err != nil {
		return ee, err
	}
	ov := &ExtendedOverride{
		StartDateTime:     format.MinutesSince1601(le.Uint32(head[0:4])),
		EndDateTime:       format.MinutesSince1601(le.Uint32(head[4:8])),
		OriginalStartDate: format.MinutesSince1601(le.Uint32(head[8:12])),
	}
	if flags.Has(OverrideSubject) {
		s, err := readWide(r)
		if err != nil {
			return ee, errs.Wrapf(err, "wide subject")
		}
		ov.Subject = &s
	}
	if flags.Has(OverrideLocation) {
		s, err := readWide(r)
		if err != nil {
			return ee, errs.Wrapf(err, "wide location")
		}
		ov.Location = &s
	}
	if ov.ReservedBlockEE2, err = readBlock(r); err != nil {
		return ee, errs.Wrapf(err, "reserved block EE2")
	}
	ee.Override = ov

	return ee, nil
}

// readWide reads a u16 character count and that many UTF-16LE characters.
func readWide(r *cursor.Reader) (string, error) {
	n, err := r.Uint16(endian.GetLittleEndianEngine())
	if err != nil {
		return "", err
	}

	return r.UTF16(int(n))
}

// readBlock reads a u32 size followed by that many bytes. An empty block
// is returned as nil.
func readBlock(r *cursor.Reader) ([]byte, error) {
	n, err := r.Uint32(endian.GetLittleEndianEngine())
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: block size %d exceeds %d remaining bytes", errs.ErrTruncated, n, r.Remaining())
	}
	if n == 0 {
		return nil, nil
	}

	return r.Bytes(int(n))
}
