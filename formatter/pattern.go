package formatter

import (
	"fmt"
	"strconv"
	"strings"
)

// align controls padding applied to a placeholder's substituted text.
type align int

const (
	alignNone align = iota
	alignLeft
	alignRight
)

// segment is one piece of a compiled line pattern: either literal text to
// copy verbatim, or a placeholder to substitute at format time.
type segment struct {
	literal string // valid when name == ""
	name    string // placeholder name, e.g. "log_level"; empty for literal segments
	align   align
	width   int
}

// placeholderNames is the closed set of names `%(name)` may reference.
var placeholderNames = map[string]bool{
	"time":                  true,
	"file_name":             true,
	"full_path":             true,
	"caller_function":       true,
	"log_level":             true,
	"log_level_short_code":  true,
	"line_number":           true,
	"logger":                true,
	"message":               true,
	"thread_id":             true,
	"thread_name":           true,
	"process_id":            true,
	"source_location":       true,
	"short_source_location": true,
	"tags":                  true,
	"named_args":            true,
}

// compilePattern parses a line pattern into a segment sequence, once per
// logger, so formatting a record at runtime is a linear scan with no
// parsing on the hot path. `%(name)`, `%(name:<width)` and `%(name:>width)`
// are recognized; any other `%` run is copied through literally.
func compilePattern(pattern string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder

	flushLiteral := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(pattern) {
		if pattern[i] == '%' && i+1 < len(pattern) && pattern[i+1] == '(' {
			end := strings.IndexByte(pattern[i+2:], ')')
			if end < 0 {
				lit.WriteByte(pattern[i])
				i++
				continue
			}
			inner := pattern[i+2 : i+2+end]
			name, al, width, err := parsePlaceholder(inner)
			if err != nil {
				return nil, err
			}
			flushLiteral()
			segs = append(segs, segment{name: name, align: al, width: width})
			i += 2 + end + 1
			continue
		}
		lit.WriteByte(pattern[i])
		i++
	}
	flushLiteral()
	return segs, nil
}

// parsePlaceholder parses the interior of `%(...)`: `name`, `name:<width`,
// or `name:>width`.
func parsePlaceholder(inner string) (name string, al align, width int, err error) {
	name = inner
	if idx := strings.IndexByte(inner, ':'); idx >= 0 {
		name = inner[:idx]
		spec := inner[idx+1:]
		if len(spec) < 2 {
			return "", 0, 0, fmt.Errorf("formatter: malformed alignment spec %q", inner)
		}
		switch spec[0] {
		case '<':
			al = alignLeft
		case '>':
			al = alignRight
		default:
			return "", 0, 0, fmt.Errorf("formatter: malformed alignment spec %q", inner)
		}
		width, err = strconv.Atoi(spec[1:])
		if err != nil {
			return "", 0, 0, fmt.Errorf("formatter: malformed width in %q: %w", inner, err)
		}
	}
	if !placeholderNames[name] {
		return "", 0, 0, fmt.Errorf("formatter: unknown placeholder %q", name)
	}
	return name, al, width, nil
}

// pad applies a segment's configured alignment/width to s.
func pad(s string, al align, width int) string {
	if al == alignNone || len(s) >= width {
		return s
	}
	padding := strings.Repeat(" ", width-len(s))
	if al == alignLeft {
		return s + padding
	}
	return padding + s
}
