package parser

import (
	"github.com/tinyrange/scc/internal/ast"
	"github.com/tinyrange/scc/internal/diag"
	"github.com/tinyrange/scc/internal/lexer"
	"github.com/tinyrange/scc/internal/types"
)

// MaxArgs is the number of integer argument registers in the System V ABI.
const MaxArgs = 6

// Grammar:
//
//	program  = function*
//	function = "int" IDENT "(" params? ")" block
//	params   = "int" IDENT ("," "int" IDENT)*
//	block    = "{" stmts* "}"
//	stmts    = ifstmt | forstmt | stmts2
//	stmts2   = block | stmt
//	stmt     = (decl | assign | return | equality) ";"
//	decl     = "int" IDENT "=" equality
//	assign   = IDENT "=" equality
//	return   = "return" equality
//	ifstmt   = "if" "(" equality ")" stmts2 ("else if" "(" equality ")" stmts2)? ("else" stmts2)?
//	forstmt  = "for" "(" decl ";" equality ";" (assign | expr) ";" ")" stmts2
//	equality = expr (("==" | "!=" | "<=" | ">=" | "<" | ">") expr)?
//	expr     = mul_div (("+" | "-") mul_div)*
//	mul_div  = unary (("*" | "/") unary)*
//	unary    = NUM | "(" equality ")" | fn_call | IDENT
//	fn_call  = IDENT "(" (equality ("," equality)*)? ")"
type Parser struct {
	toks []lexer.Token
	i    int
	tok  lexer.Token
}

// Parse turns a token stream from lexer.Lex into one Function per definition.
func Parse(toks []lexer.Token) ([]*ast.Function, error) {
	if len(toks) == 0 || toks[0].Kind != lexer.INI {
		return nil, diag.Expect(0, "", "INI sentinel")
	}
	p := &Parser{toks: toks}
	p.next()
	var fns []*ast.Function
	for p.tok.Kind != lexer.EOF {
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

// ParseSource lexes and parses src.
func ParseSource(src []byte) ([]*ast.Function, error) {
	toks, err := lexer.Lex(src)
	if err != nil {
		return nil, err
	}
	return Parse(toks)
}

func (p *Parser) next() {
	if p.i < len(p.toks)-1 {
		p.i++
	}
	p.tok = p.toks[p.i]
}

func (p *Parser) peek() lexer.Token {
	if p.i+1 < len(p.toks) {
		return p.toks[p.i+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) errExpected(what string) error {
	return diag.Expect(p.tok.Start(), p.tok.Lit, what)
}

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, error) {
	if p.tok.Kind != k {
		return lexer.Token{}, p.errExpected(what)
	}
	t := p.tok
	p.next()
	return t, nil
}

func (p *Parser) expectPunct(s string) error {
	if !p.tok.IsPunct(s) {
		return p.errExpected("'" + s + "'")
	}
	p.next()
	return nil
}

func (p *Parser) parseFunction() (*ast.Function, error) {
	typTok, err := p.expect(lexer.TYPE, "function definition 'int IDENT(...)'")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT, "function name")
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	root := &ast.Node{Kind: ast.FnRoot, Stmts: body.Stmts, Pos: body.Pos}
	return &ast.Function{Name: nameTok.Lit, Pos: typTok.Start(), Params: params, Root: root}, nil
}

func (p *Parser) parseParams() ([]ast.Param, error) {
	var params []ast.Param
	if p.tok.IsPunct(")") {
		return params, nil
	}
	for {
		typTok, err := p.expect(lexer.TYPE, "parameter type 'int'")
		if err != nil {
			return nil, err
		}
		nameTok, err := p.expect(lexer.IDENT, "parameter name")
		if err != nil {
			return nil, err
		}
		if len(params) == MaxArgs {
			return nil, diag.Errorf(diag.ArityError, nameTok.Start(), nameTok.Lit, "more than %d parameters", MaxArgs)
		}
		params = append(params, ast.Param{Name: nameTok.Lit, Type: types.FromKeyword(typTok.Lit), Pos: nameTok.Start()})
		if !p.tok.IsPunct(",") {
			return params, nil
		}
		p.next()
	}
}

func (p *Parser) parseBlock() (*ast.Node, error) {
	pos := p.tok.Start()
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	blk := &ast.Node{Kind: ast.Block, Pos: pos}
	for !p.tok.IsPunct("}") {
		if p.tok.Kind == lexer.EOF {
			return nil, p.errExpected("'}'")
		}
		s, err := p.parseStmts()
		if err != nil {
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, s)
	}
	p.next()
	return blk, nil
}

func (p *Parser) parseStmts() (*ast.Node, error) {
	switch p.tok.Kind {
	case lexer.IF:
		return p.parseIf()
	case lexer.FOR:
		return p.parseFor()
	default:
		return p.parseStmts2()
	}
}

func (p *Parser) parseStmts2() (*ast.Node, error) {
	if p.tok.IsPunct("{") {
		return p.parseBlock()
	}
	return p.parseStmt()
}

// parseBody parses the stmts2 of an if/else/for and wraps it in Stmt2.
func (p *Parser) parseBody() (*ast.Node, error) {
	pos := p.tok.Start()
	s, err := p.parseStmts2()
	if err != nil {
		return nil, err
	}
	return ast.NewUnary(ast.Stmt2, s, pos), nil
}

func (p *Parser) parseStmt() (*ast.Node, error) {
	pos := p.tok.Start()
	var n *ast.Node
	var err error
	switch {
	case p.tok.Kind == lexer.TYPE:
		n, err = p.parseDecl()
	case p.tok.Kind == lexer.RETURN:
		p.next()
		var v *ast.Node
		v, err = p.parseEquality()
		if err == nil {
			n = ast.NewUnary(ast.Return, v, pos)
		}
	case p.tok.Kind == lexer.IDENT && p.peek().IsPunct("="):
		n, err = p.parseAssign()
	case p.tok.Kind == lexer.IDENT || p.tok.Kind == lexer.NUM || p.tok.IsPunct("("):
		n, err = p.parseEquality()
	default:
		return nil, p.errExpected("statement")
	}
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return ast.NewUnary(ast.Stmt, n, pos), nil
}

func (p *Parser) parseDecl() (*ast.Node, error) {
	typTok, err := p.expect(lexer.TYPE, "'int'")
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(lexer.IDENT, "variable name")
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	init, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.Decl, Name: nameTok.Lit, R: init, Type: types.FromKeyword(typTok.Lit), Pos: typTok.Start()}, nil
}

func (p *Parser) parseAssign() (*ast.Node, error) {
	nameTok, err := p.expect(lexer.IDENT, "variable name")
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	v, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	return ast.NewBinary(ast.Assign, ast.NewIdent(nameTok.Lit, nameTok.Start()), v, nameTok.Start()), nil
}

// parseCond parses `"(" equality ")"` and wraps the equality in IfCond.
func (p *Parser) parseCond() (*ast.Node, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	pos := p.tok.Start()
	c, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return ast.NewUnary(ast.IfCond, c, pos), nil
}

func (p *Parser) parseIf() (*ast.Node, error) {
	pos := p.tok.Start()
	p.next()
	cond, err := p.parseCond()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	stmt := &ast.Node{Kind: ast.IfStmt, Pos: pos, IfNode: &ast.Node{Kind: ast.If, Cond: cond, Body: body, Pos: pos}}

	if p.tok.Kind == lexer.ELIF {
		epos := p.tok.Start()
		p.next()
		cond, err := p.parseCond()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		stmt.ElsifNode = &ast.Node{Kind: ast.Elsif, Cond: cond, Body: body, Pos: epos}
	}
	if p.tok.Kind == lexer.ELSE {
		epos := p.tok.Start()
		p.next()
		body, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		stmt.ElseNode = ast.NewUnary(ast.Else, body, epos)
	}
	return stmt, nil
}

func (p *Parser) parseFor() (*ast.Node, error) {
	pos := p.tok.Start()
	p.next()
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.TYPE {
		return nil, p.errExpected("declaration 'int IDENT = ...' in for initializer")
	}
	init, err := p.parseDecl()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	cond, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	var step *ast.Node
	if p.tok.Kind == lexer.IDENT && p.peek().IsPunct("=") {
		step, err = p.parseAssign()
	} else {
		step, err = p.parseExpr()
	}
	if err != nil {
		return nil, err
	}
	// The step clause is terminated by ';' before ')'.
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.For, Init: init, Cond: cond, Step: step, Body: body, Pos: pos}, nil
}

var compareOps = map[lexer.Kind]ast.Kind{
	lexer.EQ:  ast.Eq,
	lexer.NEQ: ast.Neq,
	lexer.LT:  ast.Lt,
	lexer.LE:  ast.Le,
	lexer.GT:  ast.Gt,
	lexer.GE:  ast.Ge,
}

func (p *Parser) parseEquality() (*ast.Node, error) {
	pos := p.tok.Start()
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	op, ok := compareOps[p.tok.Kind]
	if !ok {
		return ast.NewUnary(ast.Expr, left, pos), nil
	}
	p.next()
	right, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewBinary(op, left, right, pos), nil
}

func (p *Parser) parseExpr() (*ast.Node, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for p.tok.IsPunct("+") || p.tok.IsPunct("-") {
		op := ast.Add
		if p.tok.Lit == "-" {
			op = ast.Sub
		}
		pos := p.tok.Start()
		p.next()
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(op, left, right, pos)
	}
	return left, nil
}

func (p *Parser) parseMulDiv() (*ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.IsPunct("*") || p.tok.IsPunct("/") {
		op := ast.Mul
		if p.tok.Lit == "/" {
			op = ast.Div
		}
		pos := p.tok.Start()
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(op, left, right, pos)
	}
	return left, nil
}

func (p *Parser) parseUnary() (*ast.Node, error) {
	switch {
	case p.tok.Kind == lexer.NUM:
		n := ast.NewNum(p.tok.Val, p.tok.Start())
		p.next()
		return n, nil
	case p.tok.IsPunct("("):
		p.next()
		e, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.tok.Kind == lexer.IDENT && p.peek().IsPunct("("):
		return p.parseCall()
	case p.tok.Kind == lexer.IDENT:
		n := ast.NewIdent(p.tok.Lit, p.tok.Start())
		p.next()
		return n, nil
	default:
		return nil, p.errExpected("number, identifier, call or '('")
	}
}

func (p *Parser) parseCall() (*ast.Node, error) {
	nameTok := p.tok
	p.next()
	p.next() // (
	call := &ast.Node{Kind: ast.FnCall, Name: nameTok.Lit, Pos: nameTok.Start()}
	if p.tok.IsPunct(")") {
		p.next()
		return call, nil
	}
	for {
		argPos := p.tok.Start()
		a, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		if len(call.Args) == MaxArgs {
			return nil, diag.Errorf(diag.ArityError, argPos, nameTok.Lit, "call to %s with more than %d arguments", nameTok.Lit, MaxArgs)
		}
		call.Args = append(call.Args, a)
		if !p.tok.IsPunct(",") {
			break
		}
		p.next()
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return call, nil
}
