package formatter

import (
	"strconv"
	"strings"
	"time"
)

// strftimeToGo maps the subset of strftime conversion specifiers this
// formatter supports to Go's reference-time layout tokens. No pack example
// bundles a strftime implementation, so this small fixed table is the
// justified stdlib fallback (see DESIGN.md).
var strftimeToGo = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
	'p': "PM",
	'Z': "MST",
	'z': "-0700",
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'B': "January",
	'j': "002",
}

// FormatTimestamp renders t according to a strftime-style layout extended
// with `%Qms`, `%Qus`, `%Qns` for fractional seconds at the indicated
// precision (rounded toward negative infinity, matching the record
// timestamp's own rounding rule).
func FormatTimestamp(t time.Time, layout string) string {
	var b strings.Builder
	b.Grow(len(layout) + 8)

	i := 0
	for i < len(layout) {
		if layout[i] != '%' || i+1 >= len(layout) {
			b.WriteByte(layout[i])
			i++
			continue
		}
		if strings.HasPrefix(layout[i:], "%Qms") {
			b.WriteString(fractional(t, 3))
			i += 4
			continue
		}
		if strings.HasPrefix(layout[i:], "%Qus") {
			b.WriteString(fractional(t, 6))
			i += 4
			continue
		}
		if strings.HasPrefix(layout[i:], "%Qns") {
			b.WriteString(fractional(t, 9))
			i += 4
			continue
		}
		spec := layout[i+1]
		if goTok, ok := strftimeToGo[spec]; ok {
			b.WriteString(t.Format(goTok))
			i += 2
			continue
		}
		// Unrecognized specifier: copy through literally.
		b.WriteByte('%')
		b.WriteByte(spec)
		i += 2
	}
	return b.String()
}

// fractional returns t's sub-second component truncated (floor) to
// digits of precision, zero-padded.
func fractional(t time.Time, digits int) string {
	ns := t.Nanosecond()
	div := 1
	for i := 0; i < 9-digits; i++ {
		div *= 10
	}
	val := ns / div
	s := strconv.Itoa(val)
	for len(s) < digits {
		s = "0" + s
	}
	return s
}
