// Package diagnostic implements the ordered, severity-tagged message list
// shared by the parser and the compiler. Neither stage ever panics on
// malformed input; both append to a List and keep going.
package diagnostic

import (
	"fmt"

	"github.com/smile-lang/smile/token"
)

// Severity classifies a diagnostic's importance.
type Severity int

//nolint:revive
const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Message is one diagnostic entry.
type Message struct {
	Severity Severity
	Pos      token.Position
	Text     string
}

func (m Message) String() string {
	return fmt.Sprintf("%s: %s: %s", m.Pos, m.Severity, m.Text)
}

// List is an ordered, append-only collection of diagnostics produced
// during one parse or compile pass.
type List struct {
	messages []Message
}

// Add appends a message of the given severity at pos.
func (l *List) Add(severity Severity, pos token.Position, text string) {
	l.messages = append(l.messages, Message{Severity: severity, Pos: pos, Text: text})
}

// Errorf appends an Error-severity message built with fmt.Sprintf.
func (l *List) Errorf(pos token.Position, format string, args ...any) {
	l.Add(Error, pos, fmt.Sprintf(format, args...))
}

// Warnf appends a Warning-severity message built with fmt.Sprintf.
func (l *List) Warnf(pos token.Position, format string, args ...any) {
	l.Add(Warning, pos, fmt.Sprintf(format, args...))
}

// Messages returns every diagnostic recorded so far, in order.
func (l *List) Messages() []Message {
	return l.messages
}

// HasErrors reports whether any message at Error severity or above was
// recorded.
func (l *List) HasErrors() bool {
	for _, m := range l.messages {
		if m.Severity >= Error {
			return true
		}
	}
	return false
}

// Len returns the number of recorded messages.
func (l *List) Len() int { return len(l.messages) }
