package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
)

const (
	InfoColor    = "\033[1;34m%s\033[0m"
	NoticeColor  = "\033[1;36m%s\033[0m"
	WarningColor = "\033[1;33m%s\033[0m"
	ErrorColor   = "\033[1;31m%s\033[0m"
	DebugColor   = "\033[0;36m%s\033[0m"
)

var (
	// Enabled controls whether logging is active
	Enabled = true
	// TestMode controls whether we're in test mode (suppresses all logs)
	TestMode = false
	// Verbose turns on Debug output
	Verbose = false
	// Output is the writer where logs are written
	Output io.Writer = os.Stdout
)

func active() bool {
	return Enabled && !TestMode
}

func emit(color, icon, format string, args ...interface{}) {
	if !active() {
		return
	}
	message := fmt.Sprintf(color, icon+" "+fmt.Sprintf(format, args...))
	fmt.Fprintln(Output, message)
}

// Log writes an uncoloured message if logging is enabled
func Log(format string, args ...interface{}) {
	if active() {
		fmt.Fprintf(Output, format+"\n", args...)
	}
}

// Info logs an informational message
func Info(format string, args ...interface{}) {
	emit(InfoColor, "i", format, args...)
}

// Success logs a success message
func Success(format string, args ...interface{}) {
	emit(NoticeColor, "✔", format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	emit(ErrorColor, "✖", format, args...)
}

func Warning(format string, args ...interface{}) {
	emit(WarningColor, "!", format, args...)
}

func Debug(format string, args ...interface{}) {
	if !Verbose {
		return
	}
	emit(DebugColor, "»", format, args...)
}

func Section(name string) {
	if !active() {
		return
	}
	fmt.Fprintf(Output, "\n%s\n%s\n", name, strings.Repeat("=", len(name)+4))
}

// Disable disables logging
func Disable() {
	Enabled = false
}

// Enable enables logging
func Enable() {
	Enabled = true
}

// Reset resets the logger to its default state
func Reset() {
	Enabled = true
	TestMode = false
	Verbose = false
	Output = os.Stdout
}

// SetTestMode enables test mode (suppresses all logs)
func SetTestMode(enabled bool) {
	TestMode = enabled
}

// Spinner is a running indeterminate progress indicator.
// A nil Spinner is valid and does nothing.
type Spinner struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
}

// StartSpinner starts a loading spinner with the given message. The spinner
// keeps animating until Stop is called.
func StartSpinner(message string) *Spinner {
	if !active() {
		return nil
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(message),
		progressbar.OptionSetWidth(10),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	s := &Spinner{bar: bar, done: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()
	return s
}

// Stop halts the spinner and clears its line.
func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	close(s.done)
	_ = s.bar.Finish()
}
