// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package fat32

import "time"

// DecodeDateTime unpacks a FAT date/time pair into a calendar moment:
// date bits [year_since_1980:7 | month:4 | day:5], time bits
// [hour:5 | minute:6 | seconds/2:5].
func DecodeDateTime(date, fatTime uint16) time.Time {
	year := int(date>>9&0x7F) + 1980
	month := int(date >> 5 & 0x0F)
	day := int(date & 0x1F)

	hour := int(fatTime >> 11 & 0x1F)
	minute := int(fatTime >> 5 & 0x3F)
	second := int(fatTime&0x1F) * 2

	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

// EncodeDateTime is the inverse of DecodeDateTime. Seconds round down to
// the nearest even second, matching the 2-second resolution of the time
// field.
func EncodeDateTime(t time.Time) (date uint16, fatTime uint16) {
	date = uint16(t.Year()-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day())

	second := t.Second()
	second -= second % 2

	fatTime = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(second/2)
	return date, fatTime
}
