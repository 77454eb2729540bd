// Package formatter implements the pattern formatter (§4.4): it turns a
// decoded record plus a logger's compiled line pattern into one output
// line. A pattern is parsed once per logger (compilePattern) and formatting
// a record is then a linear scan over the cached segments, never
// re-parsing the template string.
package formatter

import (
	"strconv"
	"strings"
	"time"

	"github.com/quillgo/quillgo/record"
	"github.com/quillgo/quillgo/sanitizer"
)

// Formatter renders records for one logger's console/file sinks. JSON
// sinks bypass Formatter entirely and build their own object (§4.5).
type Formatter struct {
	segments  []segment
	tsLayout  string
	loc       *time.Location
	sanitizer *sanitizer.Sanitizer
	pathDepth int
}

// Option configures a Formatter at construction time.
type Option func(*Formatter)

// WithPathDepth sets the source-location directory depth (§4.4): 0 renders
// `file_name`/`short_source_location` as the bare filename (the default),
// N renders the last N path segments, and -1 renders the full path, same
// as `full_path`.
func WithPathDepth(depth int) Option {
	return func(f *Formatter) { f.pathDepth = depth }
}

// New compiles pattern and returns a ready-to-use Formatter. tsLayout is a
// strftime-style layout (with %Qms/%Qus/%Qns extensions); loc selects local
// or GMT wall-clock rendering for the `time` placeholder.
func New(pattern, tsLayout string, loc *time.Location, opts ...Option) (*Formatter, error) {
	segs, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	f := &Formatter{
		segments:  segs,
		tsLayout:  tsLayout,
		loc:       loc,
		sanitizer: sanitizer.New().Policy(sanitizer.PolicyTxt),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Format renders hdr/meta/args as one line, terminated with '\n'.
func (f *Formatter) Format(hdr record.Header, meta *record.Metadata, args []any) []byte {
	message, named := RenderMessage(meta.Template, args)

	var b strings.Builder
	for _, seg := range f.segments {
		if seg.name == "" {
			b.WriteString(seg.literal)
			continue
		}
		b.WriteString(pad(f.field(seg.name, hdr, meta, message, named), seg.align, seg.width))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// field resolves a single placeholder's substituted text.
func (f *Formatter) field(name string, hdr record.Header, meta *record.Metadata, message string, named []NamedArg) string {
	switch name {
	case "time":
		return FormatTimestamp(time.Unix(0, hdr.Timestamp).In(f.loc), f.tsLayout)
	case "file_name":
		return truncatePath(meta.File, f.pathDepth)
	case "full_path":
		return meta.File
	case "caller_function":
		return meta.Function
	case "log_level":
		return hdr.Level.String()
	case "log_level_short_code":
		return hdr.Level.ShortCode()
	case "line_number":
		return strconv.Itoa(meta.Line)
	case "logger":
		return meta.LoggerName
	case "message":
		return f.sanitizer.Sanitize(message)
	case "thread_id":
		return strconv.FormatInt(hdr.ThreadID, 10)
	case "thread_name":
		return "goroutine-" + strconv.FormatInt(hdr.ThreadID, 10)
	case "process_id":
		return strconv.Itoa(processID())
	case "source_location":
		return meta.File + ":" + strconv.Itoa(meta.Line)
	case "short_source_location":
		return truncatePath(meta.File, f.pathDepth) + ":" + strconv.Itoa(meta.Line)
	case "tags":
		return ""
	case "named_args":
		return joinNamedArgs(named)
	default:
		return ""
	}
}

// joinNamedArgs renders the `named_args` placeholder as
// "name: value, name: value" in template order (§4.4 / invariant 8).
func joinNamedArgs(named []NamedArg) string {
	if len(named) == 0 {
		return ""
	}
	var b strings.Builder
	for i, n := range named {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n.Name)
		b.WriteString(": ")
		b.WriteString(n.Value)
	}
	return b.String()
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// truncatePath implements §4.4's source-location directory depth option:
// 0 keeps the bare filename, N keeps the last N path segments (the
// filename plus its N-1 enclosing directories), and a negative depth
// returns the path unchanged.
func truncatePath(path string, depth int) string {
	if depth < 0 {
		return path
	}
	if depth == 0 {
		return baseName(path)
	}
	segs := strings.Split(path, "/")
	if depth >= len(segs) {
		return path
	}
	return strings.Join(segs[len(segs)-depth:], "/")
}
