// Package logger provides the structured logger used throughout wasync. A
// client library embedded in someone else's program has no business on
// stdout, so unlike a standalone server this writes to stderr by default;
// callers that want their own sink (or their own verbosity policy) still
// call ReplaceLogger/SetVerbosity before opening a Socket.
package logger

import (
	"log"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

var l = stdr.New(log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile))

func init() {
	if v, err := strconv.Atoi(os.Getenv("WASYNC_LOG_VERBOSITY")); err == nil {
		SetVerbosity(v)
	}
}

// ReplaceLogger swaps the package-wide sink, e.g. to route into an
// application's own logr.Logger. It affects loggers obtained from Get after
// the call; loggers already returned by Get, including the package-level
// loggers the socket and dispatch packages take at initialization, keep the
// previous sink.
func ReplaceLogger(logger logr.Logger) {
	l = logger
}

// SetVerbosity sets the V-level threshold above which log.V(n).Info calls
// (the decoder/dispatch trace lines in protocol and socket) are dropped.
// Has no effect after ReplaceLogger swaps in a sink that isn't an stdr
// logger.
func SetVerbosity(level int) {
	stdr.SetVerbosity(level)
}

// Get returns a named logger derived from the package-wide sink.
func Get(name string) logr.Logger {
	return l.WithName(name)
}
