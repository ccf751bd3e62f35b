// Package progress renders CLI progress output. It implements
// output.Printer with a live spinner in interactive mode and plain log
// lines in verbose mode.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
)

const (
	spinnerDelay   = 100 * time.Millisecond
	spinnerCharSet = 14
	spinnerColor   = "cyan"
	ansiRed        = "\x1b[31m"
	ansiGreen      = "\x1b[32m"
	ansiReset      = "\x1b[0m"
)

// Progress renders CLI progress output with optional spinner.
type Progress struct {
	verbose bool
	quiet   bool
	spin    *spinner.Spinner
}

// New creates a Progress printer configured for verbose/quiet output.
// The spinner only runs in the default mode; verbose and quiet both
// disable it.
func New(verbose, quiet bool) *Progress {
	p := &Progress{verbose: verbose, quiet: quiet}
	if quiet || verbose {
		return p
	}

	p.spin = spinner.New(spinner.CharSets[spinnerCharSet], spinnerDelay)
	_ = p.spin.Color(spinnerColor)
	p.spin.Start()
	return p
}

// Printf updates the spinner line or prints a log line.
func (p *Progress) Printf(format string, args ...any) {
	if p.spin != nil {
		p.spin.Suffix = fmt.Sprintf(" "+format, args...)
		return
	}
	if p.verbose {
		fmt.Printf(format+"\n", args...) //nolint:forbidigo
	}
}

// PersistentPrintf prints a line that survives spinner updates.
func (p *Progress) PersistentPrintf(format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	switch {
	case p.spin != nil:
		p.spin.Stop()
		fmt.Println(message) //nolint:forbidigo
		p.spin.Restart()
	case p.verbose:
		fmt.Println(message) //nolint:forbidigo
	}
}

// Okf prints a success message with a colored marker.
func (p *Progress) Okf(format string, args ...any) {
	p.PersistentPrintf("%s✔%s "+format, append([]any{ansiGreen, ansiReset}, args...)...)
}

// Errorf prints an error message with a colored marker.
func (p *Progress) Errorf(format string, args ...any) {
	p.PersistentPrintf("%s✗%s "+format, append([]any{ansiRed, ansiReset}, args...)...)
}

// Debugf prints a debug message when verbose mode is enabled.
func (p *Progress) Debugf(format string, args ...any) {
	if p.verbose {
		fmt.Printf("debug: "+format+"\n", args...) //nolint:forbidigo
	}
}

// DebugSincef prints a debug message with timing info.
func (p *Progress) DebugSincef(start time.Time, format string, args ...any) {
	if p.verbose {
		elapsed := time.Since(start).Round(time.Millisecond)
		fmt.Printf("debug (%s): "+format+"\n", append([]any{elapsed}, args...)...) //nolint:forbidigo
	}
}

// Write implements io.Writer for log output integration.
func (p *Progress) Write(payload []byte) (int, error) {
	message := strings.TrimRight(string(payload), "\n")
	if message != "" {
		p.PersistentPrintf("%s", message)
	}
	return len(payload), nil
}

// Errorf prints an error message without a printer instance, for
// failures that happen before the printer is constructed.
func Errorf(format string, args ...any) {
	fmt.Printf("%s✗%s "+format+"\n", append([]any{ansiRed, ansiReset}, args...)...) //nolint:forbidigo
}

// Close stops the spinner if it is running.
func (p *Progress) Close() {
	if p.spin != nil {
		p.spin.Stop()
	}
}
