// Package sanitizer cleans up the text a sink actually writes: the
// `message` placeholder of a console/file line and the string values a
// JSON sink embeds. Each output surface has its own idea of what
// "unsafe" means, so sanitization is keyed by a small fixed set of
// destination policies rather than a single universal escaping rule.
package sanitizer

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"
)

// PolicyPreset names a destination-specific sanitization behavior.
type PolicyPreset string

const (
	PolicyRaw   PolicyPreset = "raw"   // no-op passthrough
	PolicyJSON  PolicyPreset = "json"  // escape control characters for embedding in a JSON string
	PolicyTxt   PolicyPreset = "txt"   // hex-encode non-printable runes for a console/file line
	PolicyShell PolicyPreset = "shell" // strip metacharacters that would otherwise confuse a shell pipeline consuming the log
)

// runeAction maps one rune to either "keep" or the replacement text to
// emit instead.
type runeAction func(r rune) (replacement string, keep bool)

var policyActions = map[PolicyPreset]runeAction{
	PolicyRaw: func(r rune) (string, bool) { return "", true },
	PolicyTxt: func(r rune) (string, bool) {
		if strconv.IsPrint(r) {
			return "", true
		}
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], r)
		return "<" + hex.EncodeToString(buf[:n]) + ">", false
	},
	PolicyJSON: func(r rune) (string, bool) {
		if !unicode.IsControl(r) {
			return "", true
		}
		return jsonControlEscape(r), false
	},
	PolicyShell: func(r rune) (string, bool) {
		if unicode.IsSpace(r) || isShellMeta(r) {
			return "", false // stripped, nothing emitted
		}
		return "", true
	},
}

func isShellMeta(r rune) bool {
	switch r {
	case '`', '$', ';', '|', '&', '>', '<', '(', ')', '#':
		return true
	default:
		return false
	}
}

func jsonControlEscape(r rune) string {
	switch r {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '\b':
		return `\b`
	case '\f':
		return `\f`
	default:
		return fmt.Sprintf(`\u%04x`, r)
	}
}

// Sanitizer applies one destination policy to strings. The zero value
// (via New) is PolicyRaw until Policy is called.
type Sanitizer struct {
	act runeAction
	buf []byte
}

// New creates a passthrough Sanitizer; call Policy to select real behavior.
func New() *Sanitizer {
	return &Sanitizer{act: policyActions[PolicyRaw], buf: make([]byte, 0, 256)}
}

// Policy switches the sanitizer to preset's rune-handling rule.
func (s *Sanitizer) Policy(preset PolicyPreset) *Sanitizer {
	if act, ok := policyActions[preset]; ok {
		s.act = act
	}
	return s
}

// Sanitize applies the current policy to data, rune by rune.
func (s *Sanitizer) Sanitize(data string) string {
	s.buf = s.buf[:0]
	for _, r := range data {
		if repl, keep := s.act(r); keep {
			s.buf = utf8.AppendRune(s.buf, r)
		} else {
			s.buf = append(s.buf, repl...)
		}
	}
	return string(s.buf)
}

// Serializer writes a decoded argument value into a growable byte buffer
// the way one particular sink format expects it: JSON needs quoting and
// backslash escaping, a plain-text line only needs quoting when the value
// itself contains spaces or shell-hostile punctuation, and the console's
// raw debug form needs neither.
type Serializer struct {
	format    string
	sanitizer *Sanitizer
}

// NewSerializer returns a Serializer for the given output format ("raw",
// "txt", or "json"). For "raw" and "txt", san's policy is applied to string
// values before any quoting; "json" escapes strings itself and does not
// consult san.
func NewSerializer(format string, san *Sanitizer) *Serializer {
	return &Serializer{format: format, sanitizer: san}
}

// WriteString appends s, sanitized and quoted as the format requires.
func (se *Serializer) WriteString(buf *[]byte, s string) {
	switch se.format {
	case "json":
		writeJSONString(buf, s)
	case "txt":
		sanitized := se.sanitizer.Sanitize(s)
		if se.NeedsQuotes(sanitized) {
			writeQuoted(buf, sanitized)
		} else {
			*buf = append(*buf, sanitized...)
		}
	default: // "raw"
		*buf = append(*buf, se.sanitizer.Sanitize(s)...)
	}
}

func writeQuoted(buf *[]byte, s string) {
	*buf = append(*buf, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			*buf = append(*buf, '\\')
		}
		*buf = append(*buf, s[i])
	}
	*buf = append(*buf, '"')
}

// writeJSONString appends s as a quoted, escaped JSON string, scanning in
// printable runs so plain ASCII text costs one append rather than one per
// byte.
func writeJSONString(buf *[]byte, s string) {
	*buf = append(*buf, '"')
	i := 0
	for i < len(s) {
		c := s[i]
		if c >= ' ' && c != '"' && c != '\\' && c < 0x7f {
			start := i
			for i < len(s) && s[i] >= ' ' && s[i] != '"' && s[i] != '\\' && s[i] < 0x7f {
				i++
			}
			*buf = append(*buf, s[start:i]...)
			continue
		}
		switch c {
		case '\\', '"':
			*buf = append(*buf, '\\', c)
		case '\n':
			*buf = append(*buf, '\\', 'n')
		case '\r':
			*buf = append(*buf, '\\', 'r')
		case '\t':
			*buf = append(*buf, '\\', 't')
		case '\b':
			*buf = append(*buf, '\\', 'b')
		case '\f':
			*buf = append(*buf, '\\', 'f')
		default:
			*buf = append(*buf, fmt.Sprintf(`\u%04x`, c)...)
		}
		i++
	}
	*buf = append(*buf, '"')
}

// WriteNumber appends a pre-formatted numeric literal verbatim.
func (se *Serializer) WriteNumber(buf *[]byte, n string) {
	*buf = append(*buf, n...)
}

// WriteBool appends b's literal form.
func (se *Serializer) WriteBool(buf *[]byte, b bool) {
	*buf = strconv.AppendBool(*buf, b)
}

// WriteNil appends this format's null spelling: "nil" for raw, "null"
// otherwise.
func (se *Serializer) WriteNil(buf *[]byte) {
	if se.format == "raw" {
		*buf = append(*buf, "nil"...)
	} else {
		*buf = append(*buf, "null"...)
	}
}

// spewConfig renders nested structs/maps/slices for the raw debug format,
// with pointer addresses suppressed since they vary run to run and would
// make otherwise-identical debug output diff noisily.
var spewConfig = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// WriteComplex appends v's textual form for a value the codec could not
// encode through a registered type (struct, map, slice of non-formattable
// elements): a full structural dump for raw/debug output, or a single-line
// %+v through WriteString for line-oriented formats.
func (se *Serializer) WriteComplex(buf *[]byte, v any) {
	if se.format == "raw" {
		var b bytes.Buffer
		spewConfig.Fdump(&b, v)
		*buf = append(*buf, bytes.TrimSpace(b.Bytes())...)
		return
	}
	se.WriteString(buf, fmt.Sprintf("%+v", v))
}

// NeedsQuotes reports whether s must be wrapped in quotes for the current
// format: always for JSON, or for txt when s is empty or contains
// whitespace, shell-hostile punctuation, or a non-printable rune.
func (se *Serializer) NeedsQuotes(s string) bool {
	switch se.format {
	case "json":
		return true
	case "txt":
		if len(s) == 0 {
			return true
		}
		for _, r := range s {
			if unicode.IsSpace(r) || needsQuoteRune(r) || !unicode.IsPrint(r) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func needsQuoteRune(r rune) bool {
	switch r {
	case '"', '\'', '\\', '$', '`', '!', '&', '|', ';',
		'(', ')', '<', '>', '*', '?', '[', ']', '{', '}',
		'~', '#', '%', '=':
		return true
	default:
		return false
	}
}
