package compiler

import "fmt"

const maxIdentifierLength = 32

// Decimal and hex constants are capped at ten characters; 2147483647 and
// 0x7FFFFFFF both fit, anything longer cannot be an int32 anyway.
const maxConstantLength = 10

// keywords maps source text to its keyword TokenKind.
var keywords = map[string]TokenKind{
	"main":    MAIN,
	"int":     INT,
	"short":   SHORT,
	"long":    LONG,
	"char":    CHAR,
	"typedef": TYPEDEF,
	"for":     FOR,
}

// Lexer produces tokens on demand from a source file. Once END has been
// returned every further call returns END. After an ERROR token the stream
// is not required to be meaningful.
type Lexer struct {
	path      string
	r         *sourceReader
	done      bool
	nlSkipped bool
}

// NewLexer opens path and readies a scanning pass over it.
func NewLexer(path string) (*Lexer, error) {
	r, err := newSourceReader(path)
	if err != nil {
		return nil, err
	}
	return &Lexer{path: path, r: r}, nil
}

func (l *Lexer) Close() error { return l.r.Close() }

// Path reports the file this lexer reads from.
func (l *Lexer) Path() string { return l.path }

// LineFeedSkipped reports whether a newline was consumed while skipping
// whitespace before the most recent token. The parser uses it to attribute
// missing-delimiter errors to the end of the previous line.
func (l *Lexer) LineFeedSkipped() bool { return l.nlSkipped }

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// skipWhitespaceAndComments consumes spaces, tabs, newlines, and // line
// comments, returning the first significant character. A newline sets the
// one-shot flag read by LineFeedSkipped.
func (l *Lexer) skipWhitespaceAndComments() byte {
	for {
		c := l.r.NextChar()

		switch c {
		case ' ', '\t', '\r':
			continue
		case '\n':
			l.nlSkipped = true
			continue
		}

		if c == '/' {
			next := l.r.NextChar()
			if next == '/' {
				for {
					c = l.r.NextChar()
					if c == 0 {
						return 0
					}
					if c == '\n' {
						break
					}
				}
				l.r.UnreadChar('\n')
				continue
			}
			l.r.UnreadChar(next)
		}

		return c
	}
}

// NextToken scans and returns the next token in the stream.
func (l *Lexer) NextToken() Token {
	l.nlSkipped = false

	if l.done {
		return Token{Kind: END, Span: l.pointSpan()}
	}

	c := l.skipWhitespaceAndComments()

	// Put the first significant character back so the span can start at
	// its position, then take it again.
	l.r.UnreadChar(c)
	lineStart, colStart := l.r.Line(), l.r.Column()
	c = l.r.NextChar()

	if c == 0 {
		l.done = true
		return Token{Kind: END, Span: l.pointSpan()}
	}

	if c == '\'' {
		return l.scanChar(lineStart, colStart)
	}
	if c == '"' {
		return l.scanString(lineStart, colStart)
	}
	if isLetter(c) || c == '_' {
		return l.scanIdent(c, lineStart, colStart)
	}
	if isDigit(c) {
		return l.scanNumber(c, lineStart, colStart)
	}

	switch c {
	case ',':
		return l.token(COMMA, lineStart, colStart)
	case ';':
		return l.token(SEMICOLON, lineStart, colStart)
	case '(':
		return l.token(LPAREN, lineStart, colStart)
	case ')':
		return l.token(RPAREN, lineStart, colStart)
	case '{':
		return l.token(LBRACE, lineStart, colStart)
	case '}':
		return l.token(RBRACE, lineStart, colStart)
	case '[':
		return l.token(LBRACKET, lineStart, colStart)
	case ']':
		return l.token(RBRACKET, lineStart, colStart)
	case '+':
		return l.token(PLUS, lineStart, colStart)
	case '-':
		return l.token(MINUS, lineStart, colStart)
	case '*':
		return l.token(MULT, lineStart, colStart)
	case '/':
		return l.token(DIV, lineStart, colStart)
	case '%':
		return l.token(MOD, lineStart, colStart)
	case '<':
		next := l.r.NextChar()
		if next == '<' {
			return l.token(BLS, lineStart, colStart)
		}
		if next == '=' {
			return l.token(LE, lineStart, colStart)
		}
		l.r.UnreadChar(next)
		return l.token(LT, lineStart, colStart)
	case '>':
		next := l.r.NextChar()
		if next == '>' {
			return l.token(BRS, lineStart, colStart)
		}
		if next == '=' {
			return l.token(GE, lineStart, colStart)
		}
		l.r.UnreadChar(next)
		return l.token(GT, lineStart, colStart)
	case '=':
		next := l.r.NextChar()
		if next == '=' {
			return l.token(EQ, lineStart, colStart)
		}
		l.r.UnreadChar(next)
		return l.token(ASSIGN, lineStart, colStart)
	case '!':
		next := l.r.NextChar()
		if next == '=' {
			return l.token(NEQ, lineStart, colStart)
		}
		l.r.UnreadChar(next)
		return l.errorToken("Invalid lexeme.", lineStart, colStart)
	default:
		return l.errorToken("Invalid character.", lineStart, colStart)
	}
}

// scanIdent collects an identifier or keyword. The first character has
// already been consumed.
func (l *Lexer) scanIdent(first byte, lineStart, colStart int) Token {
	lexeme := []byte{first}

	next := l.r.NextChar()
	for isLetter(next) || isDigit(next) || next == '_' {
		lexeme = append(lexeme, next)
		if len(lexeme) > maxIdentifierLength {
			return l.errorToken(
				fmt.Sprintf("The length of an identifier must not exceed %d characters.", maxIdentifierLength),
				lineStart, colStart)
		}
		next = l.r.NextChar()
	}
	l.r.UnreadChar(next)

	if kw, ok := keywords[string(lexeme)]; ok {
		return l.token(kw, lineStart, colStart)
	}
	return l.textToken(IDENT, string(lexeme), lineStart, colStart)
}

// scanNumber collects a decimal or hex constant. The first digit has already
// been consumed.
func (l *Lexer) scanNumber(first byte, lineStart, colStart int) Token {
	lexeme := []byte{first}

	c := l.r.NextChar()

	if first == '0' && (c == 'x' || c == 'X') {
		for {
			lexeme = append(lexeme, c)
			if len(lexeme) > maxConstantLength {
				return l.errorToken("Hex constant is too long.", lineStart, colStart)
			}
			c = l.r.NextChar()
			if !isHexDigit(c) {
				break
			}
		}

		// "0x" with no digits after
		last := lexeme[len(lexeme)-1]
		if last == 'x' || last == 'X' {
			return l.errorToken("Invalid hex constant.", lineStart, colStart)
		}

		l.r.UnreadChar(c)
		return l.textToken(CONST_HEX, string(lexeme), lineStart, colStart)
	}

	for isDigit(c) {
		lexeme = append(lexeme, c)
		if len(lexeme) > maxConstantLength {
			return l.errorToken("Decimal constant is too long.", lineStart, colStart)
		}
		c = l.r.NextChar()
	}

	l.r.UnreadChar(c)
	return l.textToken(CONST_DEC, string(lexeme), lineStart, colStart)
}

// scanChar collects a character literal. The opening quote has already been
// consumed.
func (l *Lexer) scanChar(lineStart, colStart int) Token {
	c := l.r.NextChar()

	if c == '\'' {
		return l.errorToken("Symbolic constant can't be empty.", lineStart, colStart)
	}

	if c == '\\' {
		esc := l.r.NextChar()
		closer := l.r.NextChar()
		if closer != '\'' {
			return l.errorToken("Symbolic constant was never closed.", lineStart, colStart)
		}
		switch esc {
		case 'n':
			return l.textToken(CONST_SYMB, "\n", lineStart, colStart)
		case 't':
			return l.textToken(CONST_SYMB, "\t", lineStart, colStart)
		case '\\':
			return l.textToken(CONST_SYMB, "\\", lineStart, colStart)
		case '\'':
			return l.textToken(CONST_SYMB, "'", lineStart, colStart)
		default:
			return l.errorToken("Invalid escape sequence.", lineStart, colStart)
		}
	}

	closer := l.r.NextChar()
	if closer != '\'' {
		return l.errorToken("Symbolic constant can't contain more than 1 symbol.", lineStart, colStart)
	}
	return l.textToken(CONST_SYMB, string(c), lineStart, colStart)
}

// scanString collects a string literal. The opening quote has already been
// consumed. A raw newline inside the literal is legal; only the closing
// quote or end of input terminates it.
func (l *Lexer) scanString(lineStart, colStart int) Token {
	var lexeme []byte

	c := l.r.NextChar()
	for c != '"' && c != 0 {
		if c == '\\' {
			esc := l.r.NextChar()
			switch esc {
			case 'n':
				lexeme = append(lexeme, '\n')
			case 't':
				lexeme = append(lexeme, '\t')
			case '\\':
				lexeme = append(lexeme, '\\')
			case '"':
				lexeme = append(lexeme, '"')
			default:
				return l.errorToken("Invalid escape sequence.", lineStart, colStart)
			}
		} else {
			lexeme = append(lexeme, c)
		}
		c = l.r.NextChar()
	}

	if c == 0 {
		return l.errorToken("String constant was never closed", lineStart, colStart)
	}

	return l.textToken(CONST_STR, string(lexeme), lineStart, colStart)
}

// token builds a payload-free token ending at the reader's current position.
func (l *Lexer) token(kind TokenKind, lineStart, colStart int) Token {
	return Token{Kind: kind, Span: l.span(lineStart, colStart)}
}

func (l *Lexer) textToken(kind TokenKind, text string, lineStart, colStart int) Token {
	return Token{Kind: kind, Text: text, Span: l.span(lineStart, colStart)}
}

// errorToken reports a lexical failure at the start of the offending token.
func (l *Lexer) errorToken(msg string, lineStart, colStart int) Token {
	return Token{
		Kind: ERROR,
		Text: msg,
		Span: Span{LineStart: lineStart, ColStart: colStart, LineEnd: lineStart, ColEnd: colStart},
	}
}

func (l *Lexer) span(lineStart, colStart int) Span {
	return Span{
		LineStart: lineStart,
		ColStart:  colStart,
		LineEnd:   l.r.Line(),
		ColEnd:    l.r.Column(),
	}
}

func (l *Lexer) pointSpan() Span {
	return Span{
		LineStart: l.r.Line(),
		ColStart:  l.r.Column(),
		LineEnd:   l.r.Line(),
		ColEnd:    l.r.Column(),
	}
}
