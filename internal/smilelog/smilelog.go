// Package smilelog is the ambient logger shared by the pipeline-stage
// packages and the CLI. The teacher logs with bare fmt.Print*; this package
// gives the same call sites structured fields (stage, filename, position)
// without changing what gets logged.
package smilelog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: false})
	return l
}

// SetLevel parses level (e.g. "debug", "warn") and applies it to the shared
// logger, returning an error for an unrecognized name.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lvl)
	return nil
}

// Stage returns a logger pre-tagged with the pipeline stage name ("lexer",
// "parser", "compiler", ...), so every entry it emits carries that field.
func Stage(name string) *logrus.Entry {
	return base.WithField("stage", name)
}

// File returns a logger pre-tagged with a source filename only; it carries no
// stage field. For both, chain from Stage instead:
// smilelog.Stage("parser").WithField("file", name).
func File(name string) *logrus.Entry {
	return base.WithField("file", name)
}
