package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/smile-lang/smile/diagnostic"
	"github.com/smile-lang/smile/internal/smilelog"
	"github.com/smile-lang/smile/parser"
	"github.com/smile-lang/smile/parsescope"
	"github.com/smile-lang/smile/symbol"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the parsed s-expression tree for a Smile source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			_, res, diags, err := parseFile(path)
			if err != nil {
				return err
			}
			printDiagnostics(cmd, path, diags)
			if res.Kind == parser.ResultExpr {
				fmt.Fprintln(cmd.OutOrStdout(), res.Expr.String())
			}
			if diags.HasErrors() {
				return errors.New("parse completed with errors")
			}
			return nil
		},
	}
}

// parseFile runs the lexer and parser over path, returning the interned
// symbol table (needed by downstream stages) alongside the parse result.
func parseFile(path string) (*symbol.Table, parser.Result, *diagnostic.List, error) {
	src, err := readSource(path)
	if err != nil {
		return nil, parser.Result{}, nil, errors.Wrapf(err, "reading %s", path)
	}
	syms := symbol.New()
	known := symbol.PreloadKnown(syms)
	root := parsescope.NewRoot()
	diags := &diagnostic.List{}
	p := parser.New(path, src, syms, known, root, diags)
	res := p.ParseProgram()
	return syms, res, diags, nil
}

func printDiagnostics(cmd *cobra.Command, path string, diags *diagnostic.List) {
	log := smilelog.Stage("parser").WithField("file", path)
	for _, m := range diags.Messages() {
		fmt.Fprintln(cmd.ErrOrStderr(), m.String())
		log.WithField("pos", m.Pos.String()).Debug(m.Text)
	}
}
