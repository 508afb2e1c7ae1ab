package compiler

import "fmt"

// Phase identifies the front-end stage that produced a diagnostic.
type Phase int

const (
	PhaseLexical Phase = iota
	PhaseSyntax
	PhaseSemantic
)

func (p Phase) String() string {
	switch p {
	case PhaseLexical:
		return "lexical"
	case PhaseSyntax:
		return "syntax"
	case PhaseSemantic:
		return "semantic"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Diagnostic is a positioned front-end error. ParseProgram, Analyze, and
// DumpTokens report the first failure as a *Diagnostic and stop (a lexical
// ERROR token becomes one when they read it); the caller decides whether to
// exit. Lines and columns are 1-based, tabs count as four columns.
type Diagnostic struct {
	Path    string
	Line    int
	Column  int
	Phase   Phase
	Message string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s error: %s", d.Path, d.Line, d.Column, d.Phase, d.Message)
}
