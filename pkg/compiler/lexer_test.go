package compiler

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// writeSource dumps src into a temp file and returns its path.
func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.sbst")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// lexAll drains the token stream, stopping after END or the first ERROR.
func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	lx, err := NewLexer(writeSource(t, src))
	if err != nil {
		t.Fatal(err)
	}
	defer lx.Close()

	var tokens []Token
	for {
		tok := lx.NextToken()
		tokens = append(tokens, tok)
		if tok.Kind == END || tok.Kind == ERROR {
			return tokens
		}
	}
}

// flat is a Token without its span, for tests that only care about the
// kind/payload sequence.
type flat struct {
	Kind TokenKind
	Text string
}

func flatten(tokens []Token) []flat {
	out := make([]flat, len(tokens))
	for i, tok := range tokens {
		out[i] = flat{tok.Kind, tok.Text}
	}
	return out
}

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []flat
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []flat{{END, ""}},
		},
		{
			name:  "Punctuation and Operators",
			input: ", ; ( ) { } [ ] < <= > >= == != << >> + - * / % =",
			expected: []flat{
				{COMMA, ""}, {SEMICOLON, ""},
				{LPAREN, ""}, {RPAREN, ""},
				{LBRACE, ""}, {RBRACE, ""},
				{LBRACKET, ""}, {RBRACKET, ""},
				{LT, ""}, {LE, ""}, {GT, ""}, {GE, ""},
				{EQ, ""}, {NEQ, ""}, {BLS, ""}, {BRS, ""},
				{PLUS, ""}, {MINUS, ""}, {MULT, ""}, {DIV, ""}, {MOD, ""},
				{ASSIGN, ""},
				{END, ""},
			},
		},
		{
			name:  "Maximal Munch Without Spaces",
			input: "a<<=b>>=c==d",
			expected: []flat{
				{IDENT, "a"}, {BLS, ""}, {ASSIGN, ""},
				{IDENT, "b"}, {BRS, ""}, {ASSIGN, ""},
				{IDENT, "c"}, {EQ, ""},
				{IDENT, "d"},
				{END, ""},
			},
		},
		{
			name:  "Keywords and Identifiers",
			input: "main int short long char typedef for mainframe _x x1 inty",
			expected: []flat{
				{MAIN, ""}, {INT, ""}, {SHORT, ""}, {LONG, ""},
				{CHAR, ""}, {TYPEDEF, ""}, {FOR, ""},
				{IDENT, "mainframe"}, {IDENT, "_x"}, {IDENT, "x1"}, {IDENT, "inty"},
				{END, ""},
			},
		},
		{
			name:  "Numeric Constants",
			input: "0 42 2147483647 0x0 0xFF 0X7FFFFFFF 0xab12",
			expected: []flat{
				{CONST_DEC, "0"}, {CONST_DEC, "42"}, {CONST_DEC, "2147483647"},
				{CONST_HEX, "0x0"}, {CONST_HEX, "0xFF"}, {CONST_HEX, "0X7FFFFFFF"},
				{CONST_HEX, "0xab12"},
				{END, ""},
			},
		},
		{
			name:  "Symbolic Constants",
			input: `'a' '0' '\n' '\t' '\\' '\''`,
			expected: []flat{
				{CONST_SYMB, "a"}, {CONST_SYMB, "0"},
				{CONST_SYMB, "\n"}, {CONST_SYMB, "\t"},
				{CONST_SYMB, "\\"}, {CONST_SYMB, "'"},
				{END, ""},
			},
		},
		{
			name:  "String Constants",
			input: `"" "hi" "a\tb" "quote:\"" "back\\slash" "new\nline"`,
			expected: []flat{
				{CONST_STR, ""}, {CONST_STR, "hi"},
				{CONST_STR, "a\tb"}, {CONST_STR, `quote:"`},
				{CONST_STR, `back\slash`}, {CONST_STR, "new\nline"},
				{END, ""},
			},
		},
		{
			name:     "String With Raw Newline",
			input:    "\"two\nlines\"",
			expected: []flat{{CONST_STR, "two\nlines"}, {END, ""}},
		},
		{
			name:  "Line Comments",
			input: "int x // the rest is ignored ;;;\ny // trailing comment",
			expected: []flat{
				{INT, ""}, {IDENT, "x"}, {IDENT, "y"}, {END, ""},
			},
		},
		{
			name:     "Slash Is Division Not Comment",
			input:    "a / b",
			expected: []flat{{IDENT, "a"}, {DIV, ""}, {IDENT, "b"}, {END, ""}},
		},
		{
			name:  "Small Program",
			input: "int main() {\n\tint x = 10;\n}\n",
			expected: []flat{
				{INT, ""}, {MAIN, ""}, {LPAREN, ""}, {RPAREN, ""}, {LBRACE, ""},
				{INT, ""}, {IDENT, "x"}, {ASSIGN, ""}, {CONST_DEC, "10"}, {SEMICOLON, ""},
				{RBRACE, ""},
				{END, ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flatten(lexAll(t, tt.input))
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("token mismatch\n got: %v\nwant: %v", got, tt.expected)
			}
		})
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"Invalid Character", "int @", "Invalid character."},
		{"Bare Exclamation", "a ! b", "Invalid lexeme."},
		{"Empty Symbolic", "''", "Symbolic constant can't be empty."},
		{"Wide Symbolic", "'ab'", "Symbolic constant can't contain more than 1 symbol."},
		{"Unclosed Symbolic Escape", `'\n`, "Symbolic constant was never closed."},
		{"Bad Symbolic Escape", `'\q'`, "Invalid escape sequence."},
		{"Unclosed String", `"abc`, "String constant was never closed"},
		{"Bad String Escape", `"a\qb"`, "Invalid escape sequence."},
		{"Hex Without Digits", "0x", "Invalid hex constant."},
		{"Hex Without Digits Uppercase", "0X;", "Invalid hex constant."},
		{"Hex Too Long", "0x123456789", "Hex constant is too long."},
		{"Decimal Too Long", "12345678901", "Decimal constant is too long."},
		{
			"Identifier Too Long",
			strings.Repeat("a", 33),
			"The length of an identifier must not exceed 32 characters.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := lexAll(t, tt.input)
			last := tokens[len(tokens)-1]
			if last.Kind != ERROR {
				t.Fatalf("expected ERROR token, got %v", last)
			}
			if last.Text != tt.message {
				t.Errorf("message mismatch\n got: %q\nwant: %q", last.Text, tt.message)
			}
		})
	}
}

func TestLexBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  TokenKind
	}{
		{"Identifier Of 32", strings.Repeat("a", 32), IDENT},
		{"Identifier Of 33", strings.Repeat("a", 33), ERROR},
		{"Decimal Of 10", "1234567890", CONST_DEC},
		{"Decimal Of 11", "12345678901", ERROR},
		{"Hex Of 10", "0x12345678", CONST_HEX},
		{"Hex Of 11", "0x123456789", ERROR},
		{"Empty Symbolic", "''", ERROR},
		{"Empty String", `""`, CONST_STR},
		{"Max Int Hex", "0X7FFFFFFF", CONST_HEX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := lexAll(t, tt.input)
			if tokens[0].Kind != tt.kind {
				t.Errorf("kind mismatch: got %v, want %v", tokens[0].Kind, tt.kind)
			}
		})
	}
}

func TestLexSpans(t *testing.T) {
	// Columns are 1-based and a tab counts as four.
	tokens := lexAll(t, "int x;\n\tlong y = 0x1F;\n")

	want := []Token{
		{Kind: INT, Span: Span{1, 1, 1, 4}},
		{Kind: IDENT, Text: "x", Span: Span{1, 5, 1, 6}},
		{Kind: SEMICOLON, Span: Span{1, 6, 1, 7}},
		{Kind: LONG, Span: Span{2, 5, 2, 9}},
		{Kind: IDENT, Text: "y", Span: Span{2, 10, 2, 11}},
		{Kind: ASSIGN, Span: Span{2, 12, 2, 13}},
		{Kind: CONST_HEX, Text: "0x1F", Span: Span{2, 14, 2, 18}},
		{Kind: SEMICOLON, Span: Span{2, 18, 2, 19}},
		{Kind: END, Span: Span{3, 1, 3, 1}},
	}

	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("span mismatch\n got: %+v\nwant: %+v", tokens, want)
	}

	for _, tok := range tokens {
		s := tok.Span
		if s.LineStart > s.LineEnd {
			t.Errorf("%v: line start after line end", tok)
		}
		if s.LineStart == s.LineEnd && s.ColStart > s.ColEnd {
			t.Errorf("%v: column start after column end", tok)
		}
	}
}

func TestLexEndLatch(t *testing.T) {
	lx, err := NewLexer(writeSource(t, "int"))
	if err != nil {
		t.Fatal(err)
	}
	defer lx.Close()

	if tok := lx.NextToken(); tok.Kind != INT {
		t.Fatalf("expected INT, got %v", tok)
	}
	for i := 0; i < 3; i++ {
		if tok := lx.NextToken(); tok.Kind != END {
			t.Fatalf("call %d after EOF: expected END, got %v", i, tok)
		}
	}
}

func TestLexLineFeedSkipped(t *testing.T) {
	lx, err := NewLexer(writeSource(t, "int x\ny; z"))
	if err != nil {
		t.Fatal(err)
	}
	defer lx.Close()

	wantFlags := []struct {
		kind    TokenKind
		skipped bool
	}{
		{INT, false},
		{IDENT, false}, // x
		{IDENT, true},  // y, a newline was crossed to reach it
		{SEMICOLON, false},
		{IDENT, false}, // z
		{END, false},
	}

	for _, want := range wantFlags {
		tok := lx.NextToken()
		if tok.Kind != want.kind {
			t.Fatalf("expected %v, got %v", want.kind, tok)
		}
		if got := lx.LineFeedSkipped(); got != want.skipped {
			t.Errorf("%v: LineFeedSkipped() = %v, want %v", tok.Kind, got, want.skipped)
		}
	}
}

func TestLexMissingFile(t *testing.T) {
	if _, err := NewLexer(filepath.Join(t.TempDir(), "nope.sbst")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
