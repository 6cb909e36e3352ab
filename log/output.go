package log

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	output     io.Writer = os.Stdout
	outputLock sync.Mutex
)

// SetOutput sets the writer log lines are written to. A nil writer resets
// the output to stdout.
func SetOutput(w io.Writer) {
	outputLock.Lock()
	defer outputLock.Unlock()

	if w == nil {
		w = os.Stdout
	}
	output = w
}

func writeLine(line *logLine, duplicates uint64) {
	outputLock.Lock()
	defer outputLock.Unlock()

	fmt.Fprintln(output, formatLine(line, duplicates, output == os.Stdout))
}

func writer(buffer chan *logLine, shutdown, stopped chan struct{}) {
	defer close(stopped)

	var lastLine *logLine
	var duplicates uint64

	for {
		// wait until logs need to be processed
		select {
		case <-logsWaiting:
			logsWaitingFlag.UnSet()
		case <-forceEmptyingOfBuffer:
		case <-shutdown:
			writeAll(buffer, &lastLine, &duplicates)
			flushDuplicates(lastLine, duplicates)
			return
		}

		writeAll(buffer, &lastLine, &duplicates)
	}
}

func writeAll(buffer chan *logLine, lastLine **logLine, duplicates *uint64) {
	for {
		select {
		case line := <-buffer:
			// collapse identical lines
			if *lastLine != nil && line.Equal(*lastLine) {
				*duplicates++
				continue
			}
			flushDuplicates(*lastLine, *duplicates)
			*duplicates = 0
			*lastLine = line
			writeLine(line, 0)
		default:
			return
		}
	}
}

func flushDuplicates(line *logLine, duplicates uint64) {
	if line != nil && duplicates > 0 {
		writeLine(line, duplicates)
	}
}

// Equal returns whether two log lines carry the same message from the same
// location.
func (ll *logLine) Equal(other *logLine) bool {
	switch {
	case ll.msg != other.msg:
		return false
	case ll.file != other.file:
		return false
	case ll.line != other.line:
		return false
	case ll.level != other.level:
		return false
	}
	return true
}
