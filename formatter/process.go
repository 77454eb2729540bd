package formatter

import "os"

func processID() int {
	return os.Getpid()
}
