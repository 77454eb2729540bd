package formatter

import (
	"fmt"
	"strconv"
	"strings"
)

// NamedArg is one (name, formatted value) pair extracted from a message
// template that used named placeholders, in the order the placeholders
// appear in the template.
type NamedArg struct {
	Name  string
	Value string
}

// RenderMessage substitutes a call site's message template (the `{}` /
// `{name}` / `{:.2f}` placeholder grammar assumed available per §1) against
// the decoded arguments, returning the rendered message and, when the
// template used named placeholders, the ordered name/value pairs consumed
// by the `named_args` formatter placeholder.
func RenderMessage(template string, args []any) (message string, named []NamedArg) {
	var b strings.Builder
	b.Grow(len(template))

	argIdx := 0
	i := 0
	for i < len(template) {
		c := template[i]
		if c == '{' {
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				b.WriteString(template[i:])
				break
			}
			spec := template[i+1 : i+end]
			name, formatSpec := splitSpec(spec)

			var val any
			if argIdx < len(args) {
				val = args[argIdx]
			}
			argIdx++

			formatted := formatValue(val, formatSpec)
			b.WriteString(formatted)
			if name != "" {
				named = append(named, NamedArg{Name: name, Value: formatted})
			}
			i += end + 1
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), named
}

// splitSpec divides a placeholder's interior ("name:spec", "name", ":spec",
// or "") into its name and format-spec parts.
func splitSpec(spec string) (name, formatSpec string) {
	if idx := strings.IndexByte(spec, ':'); idx >= 0 {
		return spec[:idx], spec[idx+1:]
	}
	return spec, ""
}

// formatValue renders v according to an optional printf-like precision
// spec (currently only the ".Nf" float-precision form is recognized, the
// common case for numeric message arguments); anything else falls back to
// the value's natural string form.
func formatValue(v any, spec string) string {
	if spec != "" && strings.HasSuffix(spec, "f") && strings.HasPrefix(spec, ".") {
		if prec, err := strconv.Atoi(spec[1 : len(spec)-1]); err == nil {
			switch f := v.(type) {
			case float64:
				return strconv.FormatFloat(f, 'f', prec, 64)
			case float32:
				return strconv.FormatFloat(float64(f), 'f', prec, 32)
			case int64:
				return strconv.FormatFloat(float64(f), 'f', prec, 64)
			}
		}
	}

	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
