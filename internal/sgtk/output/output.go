// Package output defines the progress output boundary. Core packages
// log through Printer; the CLI injects the spinner implementation from
// internal/progress, tests inject a recorder or Discard.
package output

import "time"

// Printer defines the progress output interface.
type Printer interface {
	Printf(format string, args ...any)
	PersistentPrintf(format string, args ...any)
	Debugf(format string, args ...any)
	DebugSincef(startTime time.Time, format string, args ...any)
}

// Discard is a Printer that drops everything. Zero value is usable.
type Discard struct{}

// Printf drops the message.
func (Discard) Printf(string, ...any) {}

// PersistentPrintf drops the message.
func (Discard) PersistentPrintf(string, ...any) {}

// Debugf drops the message.
func (Discard) Debugf(string, ...any) {}

// DebugSincef drops the message.
func (Discard) DebugSincef(time.Time, string, ...any) {}
