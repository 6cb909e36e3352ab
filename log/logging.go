package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tevino/abool"
)

// concept
/*
- Logging function:
  - check if level is active
  - before Start: write the line directly
  - after Start: send data to the writer via big buffered channel
- Writer:
  - wait until there are lines waiting
  - write all lines in the buffer
- Channel overbuffering protection:
  - if buffer is full, trigger write and block
*/

// Severity describes a log level.
type Severity uint32

type logLine struct {
	msg       string
	level     Severity
	timestamp time.Time
	file      string
	line      int
}

// Log Levels.
const (
	TraceLevel    Severity = 1
	DebugLevel    Severity = 2
	InfoLevel     Severity = 3
	WarningLevel  Severity = 4
	ErrorLevel    Severity = 5
	CriticalLevel Severity = 6
)

var (
	logBuffer             chan *logLine
	forceEmptyingOfBuffer = make(chan struct{}, 1)

	logLevelInt = uint32(InfoLevel)
	logLevel    = &logLevelInt

	logsWaiting     = make(chan struct{}, 1)
	logsWaitingFlag = abool.NewBool(false)

	started       = abool.NewBool(false)
	startLock     sync.Mutex
	writerStopped chan struct{}
	shutdownSig   chan struct{}

	warningLogLines  = new(uint64)
	errorLogLines    = new(uint64)
	criticalLogLines = new(uint64)
)

// SetLogLevel sets a new log level. Only lines with the same or a higher
// severity are written.
func SetLogLevel(level Severity) {
	atomic.StoreUint32(logLevel, uint32(level))
}

// GetLogLevel returns the current log level.
func GetLogLevel() Severity {
	return Severity(atomic.LoadUint32(logLevel))
}

// ParseLevel returns the level severity of a log level name. Unknown names
// return 0.
func ParseLevel(level string) Severity {
	switch strings.ToLower(level) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warning":
		return WarningLevel
	case "error":
		return ErrorLevel
	case "critical":
		return CriticalLevel
	}
	return 0
}

// Start starts the asynchronous log writer. Lines logged before Start are
// written synchronously.
func Start() error {
	startLock.Lock()
	defer startLock.Unlock()

	if started.IsSet() {
		return nil
	}

	logBuffer = make(chan *logLine, 1024)
	writerStopped = make(chan struct{})
	shutdownSig = make(chan struct{})
	go writer(logBuffer, shutdownSig, writerStopped)

	started.Set()
	return nil
}

// Shutdown writes all buffered lines and stops the log writer.
func Shutdown() {
	startLock.Lock()
	defer startLock.Unlock()

	if !started.SetToIf(true, false) {
		return
	}

	close(shutdownSig)
	select {
	case <-writerStopped:
	case <-time.After(time.Second):
		fmt.Fprintln(os.Stderr, "log: writer did not stop in time, some lines may be lost")
	}
}

// TotalWarningLogLines returns the total amount of warning log lines since
// start of the program.
func TotalWarningLogLines() uint64 {
	return atomic.LoadUint64(warningLogLines)
}

// TotalErrorLogLines returns the total amount of error log lines since start
// of the program.
func TotalErrorLogLines() uint64 {
	return atomic.LoadUint64(errorLogLines)
}

// TotalCriticalLogLines returns the total amount of critical log lines since
// start of the program.
func TotalCriticalLogLines() uint64 {
	return atomic.LoadUint64(criticalLogLines)
}
