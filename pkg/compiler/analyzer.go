package compiler

import "fmt"

// Analyzer validates a parsed tree in one pre-order pass, stamping resolved
// types onto expressions and recording every declared name in a scope stack.
// The first rule violation is returned as a *Diagnostic.
type Analyzer struct {
	path    string
	symbols *SymbolTable
}

// NewAnalyzer readies an analysis pass; path only labels diagnostics.
func NewAnalyzer(path string) *Analyzer {
	return &Analyzer{path: path, symbols: NewSymbolTable()}
}

// Analyze checks program and fills in expression types. The tree is not
// usable after an error.
func (a *Analyzer) Analyze(program *Program) error {
	for _, decl := range program.Declarations {
		if err := a.declaration(decl); err != nil {
			return err
		}
	}
	return nil
}

type positioned interface {
	Pos() (line, column int)
}

func (a *Analyzer) errorAt(node positioned, msg string) *Diagnostic {
	line, column := node.Pos()
	return &Diagnostic{
		Path:    a.path,
		Line:    line,
		Column:  column,
		Phase:   PhaseSemantic,
		Message: msg,
	}
}

func (a *Analyzer) declaration(d Decl) error {
	switch n := d.(type) {
	case *MainDecl:
		return a.mainDecl(n)
	case *TypedefDecl:
		return a.typedefDecl(n)
	case *VariableDecl:
		return a.variableDecl(n)
	case *ArrayDecl:
		return a.arrayDecl(n)
	}
	return nil
}

func (a *Analyzer) statement(s Stmt) error {
	switch n := s.(type) {
	case Decl:
		return a.declaration(n)
	case *Assignment:
		return a.assignment(n)
	case *CompoundStatement:
		return a.compound(n)
	case *ForStmt:
		return a.forStmt(n)
	case *EmptyStatement:
		return nil
	}
	return nil
}

func (a *Analyzer) mainDecl(n *MainDecl) error {
	if _, ok := a.symbols.Lookup("main"); ok {
		return a.errorAt(n, "main function is already declared")
	}
	a.symbols.Declare("main", Symbol{Type: TypeInt, ArraySize: -1, Decl: n})
	return a.compound(n.Body)
}

func (a *Analyzer) compound(n *CompoundStatement) error {
	a.symbols.EnterScope()
	defer a.symbols.LeaveScope()

	for _, stmt := range n.Statements {
		if err := a.statement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) forStmt(n *ForStmt) error {
	a.symbols.EnterScope()
	defer a.symbols.LeaveScope()

	if n.Init != nil {
		if err := a.assignment(n.Init); err != nil {
			return err
		}
	}
	if n.Condition != nil {
		if err := a.expression(n.Condition); err != nil {
			return err
		}
		if !n.Condition.ResolvedType().isInteger() {
			return a.errorAt(n.Condition, "the loop condition must be resolvable to a boolean (integer) value")
		}
	}
	if n.Increment != nil {
		if err := a.assignment(n.Increment); err != nil {
			return err
		}
	}
	return a.statement(n.Body)
}

// checkDeclarable reports the redeclaration and typedef-shadowing failures
// shared by variable and array declarations.
func (a *Analyzer) checkDeclarable(name string, node positioned) error {
	if !a.symbols.IsUniqueInCurrentScope(name) {
		return a.errorAt(node, fmt.Sprintf("redeclaration of '%s'", name))
	}
	if sym, ok := a.symbols.Lookup(name); ok && sym.IsTypedef {
		return a.errorAt(node, fmt.Sprintf("typename '%s' was used as a variable name", name))
	}
	return nil
}

// resolveTypedef looks up ref as a type name, for declarations whose type
// slot holds a typedef reference.
func (a *Analyzer) resolveTypedef(ref *Identifier) (Symbol, error) {
	sym, ok := a.symbols.Lookup(ref.Name)
	if !ok || !sym.IsTypedef {
		return Symbol{}, a.errorAt(ref, fmt.Sprintf("usage of an undefined type '%s'", ref.Name))
	}
	return sym, nil
}

func (a *Analyzer) variableDecl(n *VariableDecl) error {
	name := n.Identifier.Name
	if err := a.checkDeclarable(name, n); err != nil {
		return err
	}

	newSym := Symbol{Type: n.Type, ArraySize: -1, Decl: n}

	if n.TypedefName != nil {
		underlying, err := a.resolveTypedef(n.TypedefName)
		if err != nil {
			return err
		}
		newSym.Type = underlying.Type
		newSym.IsArray = underlying.IsArray
		if underlying.IsArray {
			newSym.ArraySize = underlying.ArraySize
		}
	}

	if n.Init != nil {
		if err := a.expression(n.Init); err != nil {
			return err
		}
	}

	a.symbols.Declare(name, newSym)
	return nil
}

func (a *Analyzer) arrayDecl(n *ArrayDecl) error {
	name := n.Identifier.Name
	if err := a.checkDeclarable(name, n); err != nil {
		return err
	}

	elemType := n.BaseType
	size := -1

	if n.TypedefName != nil {
		underlying, err := a.resolveTypedef(n.TypedefName)
		if err != nil {
			return err
		}
		if underlying.IsArray && n.Size != nil {
			return a.errorAt(n, "underlying type is already an array")
		}
		elemType = underlying.Type
		size = underlying.ArraySize
	}

	if n.Size != nil {
		if err := a.expression(n.Size); err != nil {
			return err
		}
		folded, err := evalConstExpr(n.Size)
		if err != nil {
			return a.errorAt(n.Size, err.Error())
		}
		size = int(folded)
		if size <= 0 {
			return a.errorAt(n, "the array size must be greater than 0")
		}
	}

	if n.StringInit != nil {
		a.constant(n.StringInit)
		if elemType != TypeChar {
			return a.errorAt(n, "an array of type other than 'char' can't be initialized with a string")
		}

		required := len(n.StringInit.Value) + 1
		if size == -1 {
			size = required
		} else if size < required {
			return a.errorAt(n, fmt.Sprintf(
				"an array of size %d is too small for initialization with a string of size %d",
				size, required))
		}
	} else if len(n.BraceInit) > 0 {
		if size == -1 {
			size = len(n.BraceInit)
		} else if size < len(n.BraceInit) {
			return a.errorAt(n.BraceInit[0], fmt.Sprintf("too many initializers for an array of size %d", size))
		}

		for _, element := range n.BraceInit {
			if err := a.expression(element); err != nil {
				return err
			}
		}
	}

	if size == -1 {
		return a.errorAt(n, fmt.Sprintf("failed to determine the size of the array '%s'", name))
	}

	a.symbols.Declare(name, Symbol{Type: elemType, IsArray: true, ArraySize: size, Decl: n})
	return nil
}

func (a *Analyzer) typedefDecl(n *TypedefDecl) error {
	name := n.NewName.Name
	if !a.symbols.IsUniqueInCurrentScope(name) {
		return a.errorAt(n, fmt.Sprintf("redeclaration of '%s'", name))
	}

	newSym := Symbol{IsTypedef: true, ArraySize: -1, Decl: n}

	if n.BaseTypeName != nil {
		underlying, ok := a.symbols.Lookup(n.BaseTypeName.Name)
		if !ok {
			return a.errorAt(n.BaseTypeName, "identifier usage before a declaration")
		}

		newSym.Type = underlying.Type
		newSym.IsArray = underlying.IsArray
		if underlying.IsArray {
			if n.ArraySize != nil {
				return a.errorAt(n, "underlying type is already an array")
			}
			newSym.ArraySize = underlying.ArraySize
		}
	} else {
		newSym.Type = n.BaseType
		if n.ArraySize != nil {
			newSym.IsArray = true
			folded, err := evalConstExpr(n.ArraySize)
			if err != nil {
				return a.errorAt(n.ArraySize, "array size in typedef expression must be a constant value")
			}
			newSym.ArraySize = int(folded)
		}
	}

	if n.ArraySize != nil {
		if err := a.expression(n.ArraySize); err != nil {
			return err
		}
	}

	a.symbols.Declare(name, newSym)
	return nil
}

func (a *Analyzer) assignment(n *Assignment) error {
	if err := a.expression(n.Left); err != nil {
		return err
	}
	if err := a.expression(n.Value); err != nil {
		return err
	}

	lvalue := false
	switch target := n.Left.(type) {
	case *Identifier:
		if sym, ok := a.symbols.Lookup(target.Name); ok && !sym.IsArray {
			lvalue = true
		}
	case *ArrayIndex:
		lvalue = true
	}

	if !lvalue {
		return a.errorAt(n, "left operand of an assignment operator must be a l-value")
	}
	return nil
}

func (a *Analyzer) expression(e Expr) error {
	switch n := e.(type) {
	case *Identifier:
		return a.identifier(n)
	case *Constant:
		a.constant(n)
		return nil
	case *BinaryOp:
		return a.binaryOp(n)
	case *ArrayIndex:
		return a.arrayIndex(n)
	}
	return nil
}

func (a *Analyzer) identifier(n *Identifier) error {
	sym, ok := a.symbols.Lookup(n.Name)
	if !ok {
		return a.errorAt(n, "identifier usage before a declaration")
	}
	if sym.IsTypedef {
		return a.errorAt(n, fmt.Sprintf("typename '%s' was used as a variable name", n.Name))
	}

	if sym.IsArray {
		n.Resolved = TypeArray
	} else {
		n.Resolved = sym.Type
	}
	return nil
}

func (a *Analyzer) constant(n *Constant) {
	switch n.Type {
	case ConstInt10, ConstInt16:
		n.Resolved = TypeInt
	case ConstChar:
		n.Resolved = TypeChar
	case ConstStr:
		n.Resolved = TypeArray
	}
}

func (a *Analyzer) binaryOp(n *BinaryOp) error {
	if err := a.expression(n.Left); err != nil {
		return err
	}
	if err := a.expression(n.Right); err != nil {
		return err
	}

	leftType := n.Left.ResolvedType()
	rightType := n.Right.ResolvedType()

	if leftType == TypeUnknown || rightType == TypeUnknown {
		n.Resolved = TypeUnknown
		return nil
	}

	// The diagnostic points at whichever operand is not an integer, the left
	// one first.
	offender := n.Left
	if leftType.isInteger() {
		offender = n.Right
	}

	switch n.Op {
	case OpAdd, OpSub, OpMult, OpDiv, OpMod, OpBls, OpBrs:
		if !leftType.isInteger() || !rightType.isInteger() {
			return a.errorAt(offender, "operands for arithmetic/shift operations must be integers")
		}
		// Integer types are ordered narrow to wide.
		if leftType > rightType {
			n.Resolved = leftType
		} else {
			n.Resolved = rightType
		}

	case OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe:
		if !leftType.isInteger() || !rightType.isInteger() {
			return a.errorAt(offender, "operands for a comparison operation must be integers")
		}
		n.Resolved = TypeInt
	}
	return nil
}

func (a *Analyzer) arrayIndex(n *ArrayIndex) error {
	if err := a.identifier(n.Identifier); err != nil {
		return err
	}
	if err := a.expression(n.Index); err != nil {
		return err
	}

	sym, ok := a.symbols.Lookup(n.Identifier.Name)
	if !ok || !sym.IsArray {
		return a.errorAt(n, "attempt to index not an array")
	}
	n.Resolved = sym.Type
	return nil
}
