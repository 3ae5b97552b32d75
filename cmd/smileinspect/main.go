// Command smileinspect is a terminal browser over the Smile front-end
// pipeline: paste or load source and step through its token stream, parsed
// s-expression tree, parse-scope declarations, and compiled bytecode.
//
// Unlike the teacher's repl.go, which drives a full read-eval-print loop
// against a running VM, smileinspect never executes anything it compiles —
// it only renders the artifacts each pipeline stage produces.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	var initial string
	if len(os.Args) > 1 {
		content, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "reading", os.Args[1]+":", err)
			os.Exit(1)
		}
		initial = string(content)
	}

	p := tea.NewProgram(newModel(initial), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error running smileinspect:", err)
		os.Exit(1)
	}
}
