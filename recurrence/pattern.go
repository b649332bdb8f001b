// Package recurrence decodes calendar and task recurrence blobs: the
// RecurrencePattern stored in PidLidTaskRecurrence and the
// AppointmentRecurrencePattern stored in PidLidAppointmentRecur.
//
// Dates are stored as minutes since 1601-01-01 UTC and are returned as
// time.Time. Values are decoded as written; whether a pattern is
// calendrically sensible is left to the caller.
package recurrence

import (
	"fmt"
	"time"

	"github.com/arloliu/mapicodec/cursor"
	"github.com/arloliu/mapicodec/endian"
	"github.com/arloliu/mapicodec/errs"
	"github.com/arloliu/mapicodec/format"
)

// PatternVersion is the required reader and writer version of a RecurrencePattern.
const PatternVersion uint16 = 0x3004

// Frequency is the RecurFrequency field.
type Frequency uint16

const (
	FrequencyDaily   Frequency = 0x200A
	FrequencyWeekly  Frequency = 0x200B
	FrequencyMonthly Frequency = 0x200C
	FrequencyYearly  Frequency = 0x200D
)

func (f Frequency) String() string {
	switch f {
	case FrequencyDaily:
		return "Daily"
	case FrequencyWeekly:
		return "Weekly"
	case FrequencyMonthly:
		return "Monthly"
	case FrequencyYearly:
		return "Yearly"
	default:
		return fmt.Sprintf("Frequency(0x%04X)", uint16(f))
	}
}

// PatternType selects the shape of the pattern-specific data.
type PatternType uint16

const (
	PatternDay        PatternType = 0x0000
	PatternWeek       PatternType = 0x0001
	PatternMonth      PatternType = 0x0002
	PatternMonthNth   PatternType = 0x0003
	PatternMonthEnd   PatternType = 0x0004
	PatternHjMonth    PatternType = 0x000A
	PatternHjMonthNth PatternType = 0x000B
	PatternHjMonthEnd PatternType = 0x000C
)

var patternTypeNames = map[PatternType]string{
	PatternDay:        "Day",
	PatternWeek:       "Week",
	PatternMonth:      "Month",
	PatternMonthNth:   "MonthNth",
	PatternMonthEnd:   "MonthEnd",
	PatternHjMonth:    "HjMonth",
	PatternHjMonthNth: "HjMonthNth",
	PatternHjMonthEnd: "HjMonthEnd",
}

func (p PatternType) String() string {
	if name, ok := patternTypeNames[p]; ok {
		return name
	}

	return fmt.Sprintf("PatternType(0x%04X)", uint16(p))
}

// EndType says how a recurrence ends.
type EndType uint32

const (
	EndAfterDate        EndType = 0x00002021
	EndAfterOccurrences EndType = 0x00002022
	EndNever            EndType = 0x00002023
	EndNeverLegacy      EndType = 0xFFFFFFFF
)

func (e EndType) String() string {
	switch e {
	case EndAfterDate:
		return "AfterDate"
	case EndAfterOccurrences:
		return "AfterOccurrences"
	case EndNever, EndNeverLegacy:
		return "Never"
	default:
		return fmt.Sprintf("EndType(0x%08X)", uint32(e))
	}
}

// Weekdays is a day-of-week bitmask, Sunday in bit 0.
type Weekdays uint32

// Has reports whether day is set.
func (w Weekdays) Has(day time.Weekday) bool {
	return w&(1<<uint(day)) != 0
}

// Specific is the pattern-type-specific data. Only the fields used by the
// pattern type are set: Weekdays for Week, Day for the Month, MonthEnd and
// Hijri variants, Weekdays and N for the MonthNth variants.
type Specific struct {
	Weekdays Weekdays
	Day      uint32
	N        uint32
}

// Pattern is a decoded RecurrencePattern.
type Pattern struct {
	ReaderVersion         uint16
	WriterVersion         uint16
	Frequency             Frequency
	PatternType           PatternType
	CalendarType          uint16
	FirstDateTime         uint32
	Period                uint32
	SlidingFlag           uint32
	Specific              Specific
	EndType               EndType
	OccurrenceCount       uint32
	FirstDOW              uint32
	DeletedInstanceDates  []time.Time
	ModifiedInstanceDates []time.Time
	StartDate             time.Time
	EndDate               time.Time
}

// DecodePattern decodes a RecurrencePattern occupying all of data.
//
// Returns:
//   - *Pattern: The recurrence pattern with pattern-specific data
//   - error: errs.ErrSentinelMismatch for wrong reader or writer versions,
//     errs.ErrUnknownDiscriminant for an unknown pattern type
func DecodePattern(data []byte) (*Pattern, error) {
	r := cursor.New(data)
	p, err := readPattern(r)
	if err != nil {
		return nil, err
	}
	if err := r.ExpectEnd(); err != nil {
		return nil, errs.Wrapf(err, "recurrence pattern")
	}

	return p, nil
}

// patternHeaderSize covers the fields up to the pattern-specific data.
const patternHeaderSize = 2 + 2 + 2 + 2 + 2 + 4 + 4 + 4

func readPattern(r *cursor.Reader) (*Pattern, error) {
	le := endian.GetLittleEndianEngine()

	head, err := r.Fixed(patternHeaderSize)
	if err != nil {
		return nil, errs.Wrapf(err, "recurrence pattern header")
	}
	p := &Pattern{
		ReaderVersion: le.Uint16(head[0:2]),
		WriterVersion: le.Uint16(head[2:4]),
		Frequency:     Frequency(le.Uint16(head[4:6])),
		PatternType:   PatternType(le.Uint16(head[6:8])),
		CalendarType:  le.Uint16(head[8:10]),
		FirstDateTime: le.Uint32(head[10:14]),
		Period:        le.Uint32(head[14:18]),
		SlidingFlag:   le.Uint32(head[18:22]),
	}
	if p.ReaderVersion != PatternVersion {
		return nil, fmt.Errorf("%w: recurrence reader version 0x%04X", errs.ErrSentinelMismatch, p.ReaderVersion)
	}
	if p.WriterVersion != PatternVersion {
		return nil, fmt.Errorf("%w: recurrence writer version 0x%04X", errs.ErrSentinelMismatch, p.WriterVersion)
	}

	if p.Specific, err = readSpecific(r, p.PatternType); err != nil {
		return nil, errs.Wrapf(err, "%s pattern data", p.PatternType)
	}

	tail, err := r.Fixed(12)
	if err != nil {
		return nil, errs.Wrapf(err, "recurrence end")
	}
	p.EndType = EndType(le.Uint32(tail[0:4]))
	p.OccurrenceCount = le.Uint32(tail[4:8])
	p.FirstDOW = le.Uint32(tail[8:12])

	if p.DeletedInstanceDates, err = readDates(r); err != nil {
		return nil, errs.Wrapf(err, "deleted instance dates")
	}
	if p.ModifiedInstanceDates, err = readDates(r); err != nil {
		return nil, errs.Wrapf(err, "modified instance dates")
	}

	dates, err := r.Fixed(8)
	if err != nil {
		return nil, errs.Wrapf(err, "recurrence range")
	}
	p.StartDate = format.MinutesSince1601(le.Uint32(dates[0:4]))
	p.EndDate = format.MinutesSince1601(le.Uint32(dates[4:8]))

	return p, nil
}

func readSpecific(r *cursor.Reader, typ PatternType) (Specific, error) {
	le := endian.GetLittleEndianEngine()
	var s Specific

	switch typ {
	case PatternDay:
		return s, nil

	case PatternWeek:
		v, err := r.Uint32(le)
		s.Weekdays = Weekdays(v)

		return s, err

	case PatternMonth, PatternMonthEnd, PatternHjMonth, PatternHjMonthEnd:
		v, err := r.Uint32(le)
		s.Day = v

		return s, err

	case PatternMonthNth, PatternHjMonthNth:
		b, err := r.Fixed(8)
		if err != nil {
			return s, err
		}
		s.Weekdays = Weekdays(le.Uint32(b[0:4]))
		s.N = le.Uint32(b[4:8])

		return s, nil

	default:
		return s, fmt.Errorf("%w: pattern type 0x%04X", errs.ErrUnknownDiscriminant, uint16(typ))
	}
}

// readDates reads a u32 count followed by that many minutes-since-1601 dates.
func readDates(r *cursor.Reader) ([]time.Time, error) {
	le := endian.GetLittleEndianEngine()

	count, err := r.Uint32(le)
	if err != nil {
		return nil, err
	}
	if uint64(count)*4 > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %d dates exceed %d remaining bytes", errs.ErrTruncated, count, r.Remaining())
	}

	dates := make([]time.Time, count)
	for i := range dates {
		v, err := r.Uint32(le)
		if err != nil {
			return nil, err
		}
		dates[i] = format.MinutesSince1601(v)
	}

	return dates, nil
}
