package compiler

import (
	"fmt"
	"io"
)

// Compile runs the whole front end over the file at path: lexing, parsing,
// and semantic analysis. On success every expression in the returned tree
// carries a resolved type. Failures come back as a *Diagnostic; nothing is
// printed and the process is never exited from here.
func Compile(path string) (*Program, error) {
	lx, err := NewLexer(path)
	if err != nil {
		return nil, err
	}
	defer lx.Close()

	program, err := NewParser(lx).ParseProgram()
	if err != nil {
		return nil, err
	}

	if err := NewAnalyzer(path).Analyze(program); err != nil {
		return nil, err
	}
	return program, nil
}

// DumpTokens scans the file at path and writes one token per line to w,
// stopping after END. A lexical failure surfaces as a *Diagnostic.
func DumpTokens(w io.Writer, path string) error {
	lx, err := NewLexer(path)
	if err != nil {
		return err
	}
	defer lx.Close()

	for {
		tok := lx.NextToken()
		if tok.Kind == ERROR {
			return &Diagnostic{
				Path:    path,
				Line:    tok.Span.LineStart,
				Column:  tok.Span.ColStart,
				Phase:   PhaseLexical,
				Message: tok.Text,
			}
		}

		fmt.Fprintln(w, tok)
		if tok.Kind == END {
			return nil
		}
	}
}
