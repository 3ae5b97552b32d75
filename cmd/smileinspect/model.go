package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smile-lang/smile/compiledtables"
	"github.com/smile-lang/smile/compiler"
	"github.com/smile-lang/smile/diagnostic"
	"github.com/smile-lang/smile/lexer"
	"github.com/smile-lang/smile/parser"
	"github.com/smile-lang/smile/parsescope"
	"github.com/smile-lang/smile/symbol"
	"github.com/smile-lang/smile/token"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676")).
			Padding(0, 2)

	activeTabStyle = tabStyle.
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))
)

// pane identifies one of the pipeline-stage views the user can tab through.
type pane int

const (
	paneTokens pane = iota
	paneAST
	paneScope
	paneBytecode
	paneCount
)

func (p pane) String() string {
	switch p {
	case paneTokens:
		return "Tokens"
	case paneAST:
		return "AST"
	case paneScope:
		return "Scope"
	case paneBytecode:
		return "Bytecode"
	default:
		return "?"
	}
}

// pipelineResult holds the rendered text for every pane after one run of
// the pipeline over the editor's current contents.
type pipelineResult struct {
	tokens   string
	ast      string
	scope    string
	bytecode string
}

type pipelineMsg pipelineResult

type model struct {
	input     textarea.Model
	viewports [paneCount]viewport.Model
	active    pane
	width     int
	height    int
	result    pipelineResult
	editing   bool
}

func newModel(initial string) model {
	ta := textarea.New()
	ta.Placeholder = "Paste Smile source, then press Ctrl+R to run the pipeline"
	ta.SetValue(initial)
	ta.Focus()

	m := model{input: ta, active: paneTokens, editing: true}
	for i := range m.viewports {
		m.viewports[i] = viewport.New(80, 20)
	}
	return m
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func runPipeline(src string) tea.Cmd {
	return func() tea.Msg {
		return pipelineMsg(runPipelineNow(src))
	}
}

func runPipelineNow(src string) pipelineResult {
	return pipelineResult{
		tokens:   renderTokens(src),
		ast:      renderAST(src),
		scope:    renderScope(src),
		bytecode: renderBytecode(src),
	}
}

func renderTokens(src string) string {
	syms := symbol.New()
	lx := lexer.New("<inspect>", []byte(src), syms)
	var b strings.Builder
	for {
		tok := lx.Next()
		switch {
		case tok.Payload.Sym != 0:
			fmt.Fprintf(&b, "%-8s %-20s %q\n", tok.Pos.String(), tok.Kind, syms.GetName(tok.Payload.Sym))
		case tok.Payload.Text != "":
			fmt.Fprintf(&b, "%-8s %-20s %q\n", tok.Pos.String(), tok.Kind, tok.Payload.Text)
		default:
			fmt.Fprintf(&b, "%-8s %-20s\n", tok.Pos.String(), tok.Kind)
		}
		if tok.Kind == token.EOI {
			break
		}
	}
	return b.String()
}

func parseSource(src string) (parser.Result, *parsescope.Scope, *symbol.Table, *diagnostic.List) {
	syms := symbol.New()
	known := symbol.PreloadKnown(syms)
	root := parsescope.NewRoot()
	diags := &diagnostic.List{}
	p := parser.New("<inspect>", []byte(src), syms, known, root, diags)
	res := p.ParseProgram()
	return res, root, syms, diags
}

func renderAST(src string) string {
	res, _, _, diags := parseSource(src)
	var b strings.Builder
	for _, m := range diags.Messages() {
		fmt.Fprintln(&b, m.String())
	}
	if res.Kind == parser.ResultExpr {
		fmt.Fprintln(&b, res.Expr.String())
	}
	return b.String()
}

func renderScope(src string) string {
	_, root, syms, _ := parseSource(src)
	var b strings.Builder
	fmt.Fprintf(&b, "scope kind=%s declarations=%d\n", root.Kind, root.DeclarationCount())
	for _, d := range root.Decls() {
		fmt.Fprintf(&b, "  %-20s kind=%-14s %s\n", d.Pos, d.Kind, syms.GetName(d.Symbol))
	}
	return b.String()
}

func renderBytecode(src string) string {
	res, _, syms, diags := parseSource(src)
	var b strings.Builder
	for _, m := range diags.Messages() {
		fmt.Fprintln(&b, m.String())
	}
	if res.Kind != parser.ResultExpr {
		return b.String()
	}
	tables := compiledtables.New()
	known := symbol.PreloadKnown(syms)
	c := compiler.New(syms, known, tables, diags)
	info := c.CompileProgram(res.Expr)
	fmt.Fprintf(&b, "function %q args=%d vars=%d tempSize=%d\n", info.Name, info.NumArgs, info.NumVars, info.TempSize)
	fmt.Fprintln(&b, info.Segment.Instructions.String())
	return b.String()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		paneH := m.height - 10
		for i := range m.viewports {
			m.viewports[i].Width = m.width - 4
			m.viewports[i].Height = paneH
		}
		m.input.SetWidth(m.width - 4)
		m.input.SetHeight(paneH)
		return m, nil

	case pipelineMsg:
		m.result = pipelineResult(msg)
		m.viewports[paneTokens].SetContent(m.result.tokens)
		m.viewports[paneAST].SetContent(m.result.ast)
		m.viewports[paneScope].SetContent(m.result.scope)
		m.viewports[paneBytecode].SetContent(m.result.bytecode)
		m.editing = false
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+r":
			return m, runPipeline(m.input.Value())
		case "tab":
			m.editing = !m.editing
			if m.editing {
				m.input.Focus()
			} else {
				m.input.Blur()
			}
			return m, nil
		case "right", "l":
			if !m.editing {
				m.active = (m.active + 1) % paneCount
			}
			return m, nil
		case "left", "h":
			if !m.editing {
				m.active = (m.active - 1 + paneCount) % paneCount
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.editing {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.viewports[m.active], cmd = m.viewports[m.active].Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" smileinspect — Smile pipeline browser "))
	b.WriteString("\n\n")

	if m.editing {
		b.WriteString(m.input.View())
		b.WriteString("\n\nCtrl+R: run pipeline | Tab: switch to viewer panes | Ctrl+C: quit\n")
		return b.String()
	}

	var tabs strings.Builder
	for p := pane(0); p < paneCount; p++ {
		if p == m.active {
			tabs.WriteString(activeTabStyle.Render(p.String()))
		} else {
			tabs.WriteString(tabStyle.Render(p.String()))
		}
	}
	b.WriteString(tabs.String())
	b.WriteString("\n")
	b.WriteString(paneStyle.Render(m.viewports[m.active].View()))
	b.WriteString("\n\n")
	b.WriteString("←/→: switch pane | Tab: back to editor | Ctrl+C: quit\n")
	return b.String()
}
