package format

import "time"

// EpochDelta1601 is the number of seconds between 1601-01-01 and the Unix epoch.
const EpochDelta1601 = 11644473600

// filetimeUnixOffset is EpochDelta1601 in 100ns ticks.
const filetimeUnixOffset = EpochDelta1601 * 10_000_000

// FileTime converts a FILETIME (100ns ticks since 1601-01-01 UTC) to time.Time.
func FileTime(ticks uint64) time.Time {
	if ticks < filetimeUnixOffset {
		sec := -int64((filetimeUnixOffset - ticks) / 10_000_000)  //nolint:gosec
		nsec := -int64((filetimeUnixOffset - ticks) % 10_000_000) //nolint:gosec

		return time.Unix(sec, nsec*100).UTC()
	}

	rel := ticks - filetimeUnixOffset

	return time.Unix(int64(rel/10_000_000), int64(rel%10_000_000)*100).UTC() //nolint:gosec
}

// MinutesSince1601 converts a 32-bit "minutes since 1601" value to time.Time.
//
// unix seconds = minutes*60 - 11644473600.
func MinutesSince1601(minutes uint32) time.Time {
	return time.Unix(int64(minutes)*60-EpochDelta1601, 0).UTC()
}
