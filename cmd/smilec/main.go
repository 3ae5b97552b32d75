// Command smilec drives the Smile front-end pipeline from the command line:
// tokenize, parse, compile a source file, or inspect its compiled tables.
//
// The teacher's single-binary "kong" runs a whole REPL/VM session behind a
// stdlib flag list; smilec instead exposes each pipeline stage as its own
// cobra subcommand, since this module stops at compiled bytecode and never
// runs it.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/smile-lang/smile/internal/smilelog"
)

var (
	version  = "0.1.0"
	logLevel string
)

func main() {
	root := &cobra.Command{
		Use:     "smilec",
		Short:   "Smile source pipeline: tokenize, parse, compile, inspect",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return smilelog.SetLevel(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newTokenizeCmd())
	root.AddCommand(newParseCmd())
	root.AddCommand(newCompileCmd())
	root.AddCommand(newInspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readSource reads path, or stdin if path is "-".
func readSource(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	//nolint:gosec // the path comes from a trusted CLI argument, not untrusted user input
	return os.ReadFile(path)
}
