// Package spew selects the go-spew fallback encoding used for user-defined
// argument values that implement none of codec.Value, codec.TypedValue, or
// fmt.Stringer: rather than the bare "%v" Printf verb, a single-line
// ConfigState dump gives a deterministic, field-by-field rendering of
// arbitrary struct values, matching how the teacher's sanitizer/diagnostics
// code already depends on go-spew for structural dumps.
package spew

import (
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// config renders without pointer addresses, capacities, or method calls:
// just the field-by-field shape of the value.
var config = spew.ConfigState{
	Indent:                  " ",
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Dump renders v as a structural dump collapsed onto a single line, for
// embedding in a formatted log line where an unadorned "%v" would either
// omit unexported fields or fall back to a bare type/pointer string.
func Dump(v any) string {
	s := config.Sdump(v)
	s = strings.TrimRight(s, "\n")
	return strings.ReplaceAll(s, "\n", " ")
}
