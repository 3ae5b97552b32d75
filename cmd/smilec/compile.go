package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/smile-lang/smile/compiledtables"
	"github.com/smile-lang/smile/compiler"
	"github.com/smile-lang/smile/diagnostic"
	"github.com/smile-lang/smile/parser"
	"github.com/smile-lang/smile/parsescope"
	"github.com/smile-lang/smile/symbol"
)

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a Smile source file to bytecode and print its disassembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, _, diags, err := compileFile(path)
			if err != nil {
				return err
			}
			printDiagnostics(cmd, path, diags)
			if info != nil {
				fmt.Fprintln(cmd.OutOrStdout(), info.Segment.Instructions.String())
			}
			if diags.HasErrors() {
				return errors.New("compile completed with errors")
			}
			return nil
		},
	}
}

// compileFile runs the full pipeline up through bytecode generation.
func compileFile(path string) (*compiler.UserFunctionInfo, *compiledtables.Tables, *diagnostic.List, error) {
	src, err := readSource(path)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "reading %s", path)
	}
	syms := symbol.New()
	known := symbol.PreloadKnown(syms)
	root := parsescope.NewRoot()
	diags := &diagnostic.List{}
	p := parser.New(path, src, syms, known, root, diags)
	res := p.ParseProgram()
	if res.Kind != parser.ResultExpr {
		return nil, nil, diags, nil
	}
	tables := compiledtables.New()
	c := compiler.New(syms, known, tables, diags)
	info := c.CompileProgram(res.Expr)
	return info, tables, diags, nil
}
