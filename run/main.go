// Package run executes a service lifecycle with signal handling.
package run

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/safing/occbase/log"
)

// ShutdownTimeout is how long Run waits for stop before forcing an exit.
var ShutdownTimeout = 3 * time.Minute

var sigUSR1 = syscall.Signal(0xa) // dummy for windows

// Service is a long running service.
type Service interface {
	// Start starts the service and returns once it runs.
	Start() error
	// Done is closed when the service stopped on its own.
	Done() <-chan struct{}
	// Stop stops the service.
	Stop() error
}

// Run starts the service and stops it when the program is interrupted or
// the service stopped on its own. It returns the exit code.
func Run(service Service) int {
	if err := service.Start(); err != nil {
		log.Errorf("main: failed to start: %s", err)
		_ = service.Stop()
		return 1
	}

	// catch interrupt for clean shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(
		signalCh,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		sigUSR1,
	)
	defer signal.Stop(signalCh)

	return wait(service, signalCh)
}

func wait(service Service, signalCh chan os.Signal) int {
	for {
		select {
		case sig := <-signalCh:
			// only print and continue to wait if SIGUSR1
			if sig == sigUSR1 {
				_ = pprof.Lookup("goroutine").WriteTo(os.Stderr, 1)
				continue
			}

			fmt.Println(" <INTERRUPT>")
			log.Warning("main: program was interrupted, shutting down.")

			// catch signals during shutdown
			go func() {
				forceCnt := 5
				for {
					<-signalCh
					forceCnt--
					if forceCnt > 0 {
						fmt.Printf(" <INTERRUPT> again, but already shutting down. %d more to force.\n", forceCnt)
					} else {
						fmt.Fprintln(os.Stderr, "===== FORCED EXIT =====")
						printStackTo(os.Stderr)
						os.Exit(1)
					}
				}
			}()

			timer := time.AfterFunc(ShutdownTimeout, func() {
				fmt.Fprintln(os.Stderr, "===== TAKING TOO LONG FOR SHUTDOWN =====")
				printStackTo(os.Stderr)
				os.Exit(1)
			})
			defer timer.Stop()

			return stop(service)

		case <-service.Done():
			return stop(service)
		}
	}
}

func stop(service Service) int {
	if err := service.Stop(); err != nil {
		log.Errorf("main: failed to shut down: %s", err)
		return 1
	}
	return 0
}

func printStackTo(writer io.Writer) {
	fmt.Fprintln(writer, "=== PRINTING TRACES ===")
	fmt.Fprintln(writer, "=== GOROUTINES ===")
	_ = pprof.Lookup("goroutine").WriteTo(writer, 1)
	fmt.Fprintln(writer, "=== BLOCKING ===")
	_ = pprof.Lookup("block").WriteTo(writer, 1)
	fmt.Fprintln(writer, "=== MUTEXES ===")
	_ = pprof.Lookup("mutex").WriteTo(writer, 1)
	fmt.Fprintln(writer, "=== END TRACES ===")
}
