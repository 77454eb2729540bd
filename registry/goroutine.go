package registry

import (
	"runtime"
	"strconv"
	"strings"
)

// goroutineID parses the current goroutine's numeric id out of a runtime
// stack dump. It is deliberately only ever called once per Producer
// (cached in Producer.threadID), never on the hot logging path: runtime.Stack
// allocates and is far too slow to call per record.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := string(buf[:n])
	field = strings.TrimPrefix(field, "goroutine ")
	if idx := strings.IndexByte(field, ' '); idx >= 0 {
		field = field[:idx]
	}
	id, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return -1
	}
	return id
}
