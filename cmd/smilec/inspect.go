package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/smile-lang/smile/compiler"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Compile a Smile source file and dump its compiled tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, tables, diags, err := compileFile(path)
			if err != nil {
				return err
			}
			printDiagnostics(cmd, path, diags)
			if info != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "functions: %d\n", tables.NumUserFunctionInfos())
				for i := 0; i < tables.NumUserFunctionInfos(); i++ {
					fn, ok := tables.UserFunctionInfo(int32(i)).(*compiler.UserFunctionInfo)
					if !ok {
						continue
					}
					name := fn.Name
					if name == "" {
						name = "<anonymous>"
					}
					fmt.Fprintf(out, "  [%d] %s  args=%d vars=%d tempSize=%d bytes=%d\n",
						i, name, fn.NumArgs, fn.NumVars, fn.TempSize, fn.Segment.Len())
				}
				fmt.Fprintf(out, "strings: %d\n", tables.NumStrings())
				fmt.Fprintf(out, "objects: %d\n", tables.NumObjects())
				fmt.Fprintf(out, "till continuations: %d\n", len(tables.TillInfos))
				for i, till := range tables.TillInfos {
					fmt.Fprintf(out, "  [%d] owner=%d flags=%d needsContinuation=%t\n",
						i, till.OwningFunction, len(till.Flags), till.RealContinuationNeeded)
					for _, flag := range till.Flags {
						fmt.Fprintf(out, "      %s -> pc %d\n", flag.Name, flag.ResolvedTarget)
					}
				}
			}
			if diags.HasErrors() {
				return errors.New("compile completed with errors")
			}
			return nil
		},
	}
}
