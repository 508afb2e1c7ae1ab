package compiler

// parserBufferSize is the length of the lookahead ring. The grammar needs two
// tokens at its decision points; the ring holds eight so the modulo indexing
// never wraps mid-decision.
const parserBufferSize = 8

// tokenSlot pairs a prefetched token with the newline flag captured when it
// was pulled. Reading the flag at diagnostic time would describe the lexer's
// state several tokens ahead, so each slot keeps its own copy.
type tokenSlot struct {
	tok       Token
	nlSkipped bool
}

// Parser builds the AST by recursive descent over a ring of prefetched
// tokens. Every parse method returns the first failure as a *Diagnostic;
// nothing is printed here.
type Parser struct {
	lx  *Lexer
	buf [parserBufferSize]tokenSlot
	pos int

	// End position of the most recently consumed token, used to attribute
	// missing-delimiter errors to the end of the previous line.
	prevLineEnd   int
	prevColumnEnd int
}

// NewParser prefetches up to a full ring of tokens. A zero Token is END, so
// slots past an early end of input stay safe to index.
func NewParser(lx *Lexer) *Parser {
	p := &Parser{lx: lx}
	for i := 0; i < parserBufferSize; i++ {
		p.buf[i] = tokenSlot{tok: lx.NextToken(), nlSkipped: lx.LineFeedSkipped()}
		if p.buf[i].tok.Kind == END {
			break
		}
	}
	return p
}

// lookahead returns the k-th pending token without consuming it, 0 <= k < 8.
func (p *Parser) lookahead(k int) Token {
	return p.buf[(p.pos+k)%parserBufferSize].tok
}

// consume returns the next token and refills its slot from the lexer.
func (p *Parser) consume() Token {
	s := p.buf[p.pos]
	p.prevLineEnd = s.tok.Span.LineEnd
	p.prevColumnEnd = s.tok.Span.ColEnd

	p.buf[p.pos] = tokenSlot{tok: p.lx.NextToken(), nlSkipped: p.lx.LineFeedSkipped()}
	p.pos = (p.pos + 1) % parserBufferSize

	return s.tok
}

// match consumes the next token iff its kind is expected; otherwise it
// reports msg at the offending token. An ERROR token surfaces as the lexical
// diagnostic it carries.
func (p *Parser) match(expected TokenKind, msg string) (Token, error) {
	found := p.lookahead(0)
	if found.Kind == ERROR {
		return Token{}, p.lexicalError(found)
	}
	if found.Kind == expected {
		return p.consume(), nil
	}
	return Token{}, p.syntaxError(msg, found)
}

func (p *Parser) lexicalError(tok Token) *Diagnostic {
	return &Diagnostic{
		Path:    p.lx.Path(),
		Line:    tok.Span.LineStart,
		Column:  tok.Span.ColStart,
		Phase:   PhaseLexical,
		Message: tok.Text,
	}
}

// syntaxError positions the diagnostic at the start of the unexpected token,
// or at the end of the previously consumed token when a newline was crossed
// to reach it: a missing semicolon belongs to the line that lacked it.
func (p *Parser) syntaxError(msg string, found Token) *Diagnostic {
	line, column := found.Span.LineStart, found.Span.ColStart
	if p.buf[p.pos].nlSkipped {
		line, column = p.prevLineEnd, p.prevColumnEnd
	}
	return &Diagnostic{
		Path:    p.lx.Path(),
		Line:    line,
		Column:  column,
		Phase:   PhaseSyntax,
		Message: msg,
	}
}

// parsedType is a type specifier: either a primitive DataType or a typedef
// name, never both.
type parsedType struct {
	baseType DataType
	typeName *Identifier
}

func isDescriptionStart(kind TokenKind) bool {
	switch kind {
	case TYPEDEF, INT, SHORT, LONG, CHAR, IDENT:
		return true
	}
	return false
}

func isStatementOrDeclarationStart(kind TokenKind) bool {
	switch kind {
	case INT, SHORT, LONG, CHAR, IDENT, FOR, SEMICOLON, LBRACE:
		return true
	}
	return false
}

func isPrimitiveType(kind TokenKind) bool {
	switch kind {
	case INT, SHORT, LONG, CHAR:
		return true
	}
	return false
}

func isConstant(kind TokenKind) bool {
	return kind == CONST_DEC || kind == CONST_HEX || kind == CONST_SYMB
}

// ParseProgram parses the whole token stream into a Program.
func (p *Parser) ParseProgram() (*Program, error) {
	program := &Program{}

	for isDescriptionStart(p.lookahead(0).Kind) {
		switch {
		case p.lookahead(0).Kind == INT && p.lookahead(1).Kind == MAIN:
			mainDecl, err := p.parseMainFunction()
			if err != nil {
				return nil, err
			}
			program.Declarations = append(program.Declarations, mainDecl)
		case p.lookahead(0).Kind == TYPEDEF:
			typedefDecl, err := p.parseTypedef()
			if err != nil {
				return nil, err
			}
			program.Declarations = append(program.Declarations, typedefDecl)
		default:
			decls, err := p.parseDeclaration()
			if err != nil {
				return nil, err
			}
			program.Declarations = append(program.Declarations, decls...)
		}
	}

	if _, err := p.match(END, "unexpected token"); err != nil {
		return nil, err
	}
	return program, nil
}

func (p *Parser) parseMainFunction() (*MainDecl, error) {
	intTok, err := p.match(INT, "expected type specifier")
	if err != nil {
		return nil, err
	}
	mainDecl := &MainDecl{astPos: tokenPos(intTok)}

	if _, err := p.match(MAIN, "unexpected token"); err != nil {
		return nil, err
	}
	if _, err := p.match(LPAREN, "expected '('"); err != nil {
		return nil, err
	}
	if _, err := p.match(RPAREN, "expected ')'"); err != nil {
		return nil, err
	}
	if _, err := p.match(LBRACE, "expected '{'"); err != nil {
		return nil, err
	}
	if mainDecl.Body, err = p.parseCompoundStatement(); err != nil {
		return nil, err
	}
	if _, err := p.match(RBRACE, "expected '}'"); err != nil {
		return nil, err
	}
	return mainDecl, nil
}

func (p *Parser) parseCompoundStatement() (*CompoundStatement, error) {
	compound := &CompoundStatement{}

	for isStatementOrDeclarationStart(p.lookahead(0).Kind) {
		// An identifier opens a statement when followed by '[' or '=',
		// otherwise it is a typedef-typed declaration.
		if p.lookahead(0).Kind == IDENT &&
			p.lookahead(1).Kind != LBRACKET && p.lookahead(1).Kind != ASSIGN ||
			isPrimitiveType(p.lookahead(0).Kind) {
			decls, err := p.parseDeclaration()
			if err != nil {
				return nil, err
			}
			for _, d := range decls {
				compound.Statements = append(compound.Statements, d)
			}
			continue
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		compound.Statements = append(compound.Statements, stmt)
	}

	return compound, nil
}

func (p *Parser) parseTypedef() (*TypedefDecl, error) {
	typedefDecl := &TypedefDecl{astPos: tokenPos(p.lookahead(0))}
	if _, err := p.match(TYPEDEF, "unexpected token"); err != nil {
		return nil, err
	}

	underlying, err := p.parseTypeSpecifier()
	if err != nil {
		return nil, err
	}
	if underlying.typeName != nil {
		typedefDecl.BaseTypeName = underlying.typeName
	} else {
		typedefDecl.BaseType = underlying.baseType
	}

	nameTok, err := p.match(IDENT, "expected identifier")
	if err != nil {
		return nil, err
	}
	typedefDecl.NewName = &Identifier{astPos: tokenPos(nameTok), Name: nameTok.Text}

	if p.lookahead(0).Kind == LBRACKET {
		if _, err := p.match(LBRACKET, "expected '['"); err != nil {
			return nil, err
		}
		if typedefDecl.ArraySize, err = p.parseEquality(); err != nil {
			return nil, err
		}
		if _, err := p.match(RBRACKET, "expected ']'"); err != nil {
			return nil, err
		}
	}

	if _, err := p.match(SEMICOLON, "expected ';'"); err != nil {
		return nil, err
	}
	return typedefDecl, nil
}

// parseDeclaration parses "type a, b[2], c = 1;" into one Decl per declarator.
func (p *Parser) parseDeclaration() ([]Decl, error) {
	typeInfo, err := p.parseTypeSpecifier()
	if err != nil {
		return nil, err
	}

	var decls []Decl
	for {
		decl, err := p.parseSingleVariable(typeInfo)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)

		if p.lookahead(0).Kind != COMMA {
			break
		}
		p.consume()
	}

	if _, err := p.match(SEMICOLON, "expected ';'"); err != nil {
		return nil, err
	}
	return decls, nil
}

func (p *Parser) parseTypeSpecifier() (parsedType, error) {
	// Anything other than a type keyword or a name fails the match below.
	expected := p.lookahead(0).Kind
	if !isPrimitiveType(expected) && expected != IDENT {
		expected = IDENT
	}
	tok, err := p.match(expected, "expected type specifier")
	if err != nil {
		return parsedType{}, err
	}

	switch tok.Kind {
	case INT:
		return parsedType{baseType: TypeInt}, nil
	case SHORT:
		return parsedType{baseType: TypeShort}, nil
	case LONG:
		return parsedType{baseType: TypeLong}, nil
	case CHAR:
		return parsedType{baseType: TypeChar}, nil
	case IDENT:
		return parsedType{typeName: &Identifier{astPos: tokenPos(tok), Name: tok.Text}}, nil
	}
	return parsedType{}, nil
}

func (p *Parser) parseSingleVariable(typeInfo parsedType) (Decl, error) {
	identTok, err := p.match(IDENT, "expected identifier")
	if err != nil {
		return nil, err
	}
	identifier := &Identifier{astPos: tokenPos(identTok), Name: identTok.Text}

	if p.lookahead(0).Kind != LBRACKET {
		variable := &VariableDecl{astPos: identifier.astPos, Identifier: identifier}
		if typeInfo.typeName != nil {
			variable.TypedefName = typeInfo.typeName
		} else {
			variable.Type = typeInfo.baseType
		}

		if p.lookahead(0).Kind == ASSIGN {
			p.consume()
			if variable.Init, err = p.parseEquality(); err != nil {
				return nil, err
			}
		}
		return variable, nil
	}

	array := &ArrayDecl{astPos: identifier.astPos, Identifier: identifier}
	if typeInfo.typeName != nil {
		array.TypedefName = typeInfo.typeName
	} else {
		array.BaseType = typeInfo.baseType
	}

	p.consume() // '['
	if p.lookahead(0).Kind != RBRACKET {
		if array.Size, err = p.parseEquality(); err != nil {
			return nil, err
		}
	}
	if _, err := p.match(RBRACKET, "expected ']'"); err != nil {
		return nil, err
	}

	if p.lookahead(0).Kind != ASSIGN {
		return array, nil
	}
	p.consume()

	if p.lookahead(0).Kind == LBRACE {
		p.consume()

		// An empty brace list leaves BraceInit nil.
		if p.lookahead(0).Kind == RBRACE {
			p.consume()
			return array, nil
		}

		for {
			element, err := p.parseEquality()
			if err != nil {
				return nil, err
			}
			array.BraceInit = append(array.BraceInit, element)

			if p.lookahead(0).Kind != COMMA {
				break
			}
			p.consume()
		}

		if _, err := p.match(RBRACE, "expected '}'"); err != nil {
			return nil, err
		}
		return array, nil
	}

	strTok, err := p.match(CONST_STR, "expected expression")
	if err != nil {
		return nil, err
	}
	array.StringInit = &Constant{astPos: tokenPos(strTok), Type: ConstStr, Value: strTok.Text}
	return array, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.lookahead(0).Kind {
	case FOR:
		return p.parseForStatement()
	case LBRACE:
		p.consume()
		compound, err := p.parseCompoundStatement()
		if err != nil {
			return nil, err
		}
		if _, err := p.match(RBRACE, "expected '}'"); err != nil {
			return nil, err
		}
		return compound, nil
	case IDENT:
		assignment, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if _, err := p.match(SEMICOLON, "expected ';'"); err != nil {
			return nil, err
		}
		return assignment, nil
	default:
		semiTok, err := p.match(SEMICOLON, "expected ';'")
		if err != nil {
			return nil, err
		}
		return &EmptyStatement{astPos: tokenPos(semiTok)}, nil
	}
}

func (p *Parser) parseForStatement() (*ForStmt, error) {
	forTok, err := p.match(FOR, "unexpected token")
	if err != nil {
		return nil, err
	}
	forStmt := &ForStmt{astPos: tokenPos(forTok)}

	if _, err := p.match(LPAREN, "expected '('"); err != nil {
		return nil, err
	}

	if p.lookahead(0).Kind == IDENT {
		if forStmt.Init, err = p.parseAssignment(); err != nil {
			return nil, err
		}
	}
	if _, err := p.match(SEMICOLON, "expected ';'"); err != nil {
		return nil, err
	}

	if p.lookahead(0).Kind != SEMICOLON {
		if forStmt.Condition, err = p.parseEquality(); err != nil {
			return nil, err
		}
	}
	if _, err := p.match(SEMICOLON, "expected ';'"); err != nil {
		return nil, err
	}

	if p.lookahead(0).Kind == IDENT {
		if forStmt.Increment, err = p.parseAssignment(); err != nil {
			return nil, err
		}
	}
	if _, err := p.match(RPAREN, "expected ')'"); err != nil {
		return nil, err
	}

	if forStmt.Body, err = p.parseStatement(); err != nil {
		return nil, err
	}
	return forStmt, nil
}

func (p *Parser) parseAssignment() (*Assignment, error) {
	identTok, err := p.match(IDENT, "expected identifier")
	if err != nil {
		return nil, err
	}
	assignment := &Assignment{astPos: tokenPos(identTok)}
	identifier := &Identifier{astPos: tokenPos(identTok), Name: identTok.Text}

	if p.lookahead(0).Kind == LBRACKET {
		arrayIndex := &ArrayIndex{astPos: identifier.astPos, Identifier: identifier}
		p.consume()
		if arrayIndex.Index, err = p.parseEquality(); err != nil {
			return nil, err
		}
		if _, err := p.match(RBRACKET, "expected ']'"); err != nil {
			return nil, err
		}
		assignment.Left = arrayIndex
	} else {
		assignment.Left = identifier
	}

	if _, err := p.match(ASSIGN, "expected '='"); err != nil {
		return nil, err
	}
	if assignment.Value, err = p.parseEquality(); err != nil {
		return nil, err
	}
	return assignment, nil
}

//  Expression tiers, loosest binding first. All operators associate left.

func (p *Parser) parseEquality() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}

	for p.lookahead(0).Kind == EQ || p.lookahead(0).Kind == NEQ {
		opTok := p.consume()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}

		op := OpEq
		if opTok.Kind == NEQ {
			op = OpNeq
		}
		left = binary(op, left, right)
	}
	return left, nil
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseShift()
	if err != nil {
		return nil, err
	}

	for {
		var op Operator
		switch p.lookahead(0).Kind {
		case LT:
			op = OpLt
		case LE:
			op = OpLe
		case GT:
			op = OpGt
		case GE:
			op = OpGe
		default:
			return left, nil
		}
		p.consume()

		right, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		left = binary(op, left, right)
	}
}

func (p *Parser) parseShift() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for p.lookahead(0).Kind == BLS || p.lookahead(0).Kind == BRS {
		opTok := p.consume()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}

		op := OpBls
		if opTok.Kind == BRS {
			op = OpBrs
		}
		left = binary(op, left, right)
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for p.lookahead(0).Kind == PLUS || p.lookahead(0).Kind == MINUS {
		opTok := p.consume()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}

		op := OpAdd
		if opTok.Kind == MINUS {
			op = OpSub
		}
		left = binary(op, left, right)
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		var op Operator
		switch p.lookahead(0).Kind {
		case MULT:
			op = OpMult
		case DIV:
			op = OpDiv
		case MOD:
			op = OpMod
		default:
			return left, nil
		}
		p.consume()

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binary(op, left, right)
	}
}

// parseUnary admits a single optional sign. A minus is folded into a numeric
// constant's text; applied to anything else the sign is consumed and dropped.
func (p *Parser) parseUnary() (Expr, error) {
	negative := false
	if k := p.lookahead(0).Kind; k == MINUS || k == PLUS {
		negative = k == MINUS
		p.consume()
	}

	if p.lookahead(0).Kind == LPAREN {
		p.consume()
		expr, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		if _, err := p.match(RPAREN, "expected ')'"); err != nil {
			return nil, err
		}
		return expr, nil
	}

	if isConstant(p.lookahead(0).Kind) {
		tok := p.consume()
		constant := &Constant{astPos: tokenPos(tok), Value: tok.Text}

		switch tok.Kind {
		case CONST_DEC:
			constant.Type = ConstInt10
		case CONST_HEX:
			constant.Type = ConstInt16
		case CONST_SYMB:
			constant.Type = ConstChar
		}

		if negative && tok.Kind != CONST_SYMB {
			constant.Value = "-" + constant.Value
		}
		return constant, nil
	}

	if p.lookahead(1).Kind == LBRACKET {
		identTok, err := p.match(IDENT, "expected expression")
		if err != nil {
			return nil, err
		}
		identifier := &Identifier{astPos: tokenPos(identTok), Name: identTok.Text}
		arrayIndex := &ArrayIndex{astPos: identifier.astPos, Identifier: identifier}

		p.consume() // '['
		if arrayIndex.Index, err = p.parseEquality(); err != nil {
			return nil, err
		}
		if _, err := p.match(RBRACKET, "expected ']'"); err != nil {
			return nil, err
		}
		return arrayIndex, nil
	}

	identTok, err := p.match(IDENT, "expected expression")
	if err != nil {
		return nil, err
	}
	return &Identifier{astPos: tokenPos(identTok), Name: identTok.Text}, nil
}

func binary(op Operator, left, right Expr) *BinaryOp {
	line, column := left.Pos()
	return &BinaryOp{
		astPos: astPos{Line: line, Column: column},
		Op:     op,
		Left:   left,
		Right:  right,
	}
}

func tokenPos(tok Token) astPos {
	return astPos{Line: tok.Span.LineStart, Column: tok.Span.ColStart}
}
