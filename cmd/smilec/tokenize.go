package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/smile-lang/smile/internal/smilelog"
	"github.com/smile-lang/smile/lexer"
	"github.com/smile-lang/smile/symbol"
	"github.com/smile-lang/smile/token"
)

func newTokenizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize <file>",
		Short: "Print the token stream for a Smile source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			src, err := readSource(path)
			if err != nil {
				return errors.Wrapf(err, "reading %s", path)
			}
			syms := symbol.New()
			lx := lexer.New(path, src, syms)
			log := smilelog.Stage("lexer").WithField("file", path)

			for {
				tok := lx.Next()
				printToken(cmd, syms, tok)
				if tok.Kind == token.Error {
					log.WithField("pos", tok.Pos.String()).Warn(tok.Text())
				}
				if tok.Kind == token.EOI {
					break
				}
			}
			return nil
		},
	}
}

func printToken(cmd *cobra.Command, syms *symbol.Table, tok token.Token) {
	switch {
	case tok.Payload.Sym != 0:
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-20s %q\n", tok.Pos.String(), tok.Kind, syms.GetName(tok.Payload.Sym))
	case tok.Payload.Text != "":
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-20s %q\n", tok.Pos.String(), tok.Kind, tok.Payload.Text)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-20s\n", tok.Pos.String(), tok.Kind)
	}
}
