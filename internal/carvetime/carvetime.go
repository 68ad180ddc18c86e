// Package carvetime normalizes the embedded timestamp encodings the carve
// handlers encounter, OLE FILETIME and MS-DOS date/time, to UTC time.Time.
// An encoding that cannot represent a valid instant reports ok=false
// rather than a zero-ish time a caller could mistake for epoch.
package carvetime

import "time"

// oleEpochOffset is the number of 100-nanosecond intervals between the OLE
// FILETIME epoch (1601-01-01) and the Unix epoch (1970-01-01).
const oleEpochOffset = 116444736000000000

// FromOLEFILETIME converts a FILETIME value (100ns intervals since
// 1601-01-01 UTC) as found in OLE/CFB property streams. A value at or
// before the Unix epoch is not representable and reports ok=false.
func FromOLEFILETIME(filetime int64) (t time.Time, ok bool) {
	if filetime <= oleEpochOffset {
		return time.Time{}, false
	}
	unix100ns := filetime - oleEpochOffset
	secs := unix100ns / 10_000_000
	remainder := unix100ns % 10_000_000
	return time.Unix(secs, remainder*100).UTC(), true
}

// FromDOSDateTime converts the 16-bit MS-DOS date and time fields found in
// ZIP local file headers. DOS dates cannot represent years before 1980;
// an all-zero pair (common for streamed or synthetic entries) reports
// ok=false rather than resolving to 1980-01-01 midnight.
func FromDOSDateTime(date, time16 uint16) (t time.Time, ok bool) {
	if date == 0 && time16 == 0 {
		return time.Time{}, false
	}
	year := int(date>>9) + 1980
	month := int((date >> 5) & 0x0F)
	day := int(date & 0x1F)
	hour := int(time16 >> 11)
	minute := int((time16 >> 5) & 0x3F)
	second := int(time16&0x1F) * 2

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), true
}
