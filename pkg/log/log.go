package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	mu        sync.Mutex
	logWriter io.Writer = os.Stderr
)

// SetLogWriter sets the log output destination
func SetLogWriter(w io.Writer) {
	if w == nil {
		return
	}
	mu.Lock()
	logWriter = w
	mu.Unlock()
}

// Writer returns the current log output destination.
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return logWriter
}

// Log prints a message to the log output
func Log(a ...any) {
	mu.Lock()
	defer mu.Unlock()
	_, _ = fmt.Fprintln(logWriter, a...)
}

// Logf prints a formatted message to the log output
func Logf(format string, a ...any) {
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	mu.Lock()
	defer mu.Unlock()
	_, _ = fmt.Fprintf(logWriter, format, a...)
}

// Request logs one line per HTTP request, prefixed with an RFC 3339 timestamp.
func Request(method, url, requestID string) {
	Logf("[%s] %s %s (%s)", time.Now().UTC().Format(time.RFC3339), method, url, requestID)
}
