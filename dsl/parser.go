/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dsl

import (
	"fmt"
	"strings"

	"github.com/flowql/enginecore/expr"
)

// commandKeywords are the context-sensitive statement-starting tokens:
// plain identifiers everywhere except at the start of a statement.
var commandKeywords = map[string]bool{
	"create": true, "delete": true, "info": true, "list": true,
	"insert": true, "flush": true, "subscribe": true, "unsubscribe": true,
}

// Parser walks the token stream produced by expr.Lexer for the whole
// statement grammar, delegating every embedded value expression back to
// expr.Parse over the matching source slice.
type Parser struct {
	src    string
	tokens []expr.Token
	pos    int
}

// NewParser tokenizes src completely up front; DSL statements are short
// enough that a buffered token slice is simpler than incremental peeking.
func NewParser(src string) (*Parser, error) {
	lex := expr.NewLexer(src)
	var tokens []expr.Token
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, fmt.Errorf("syntax error: %w", err)
		}
		tokens = append(tokens, tok)
		if tok.Type == expr.EOF {
			break
		}
	}
	return &Parser{src: src, tokens: tokens}, nil
}

func (p *Parser) cur() expr.Token { return p.tokens[p.pos] }
func (p *Parser) atEOF() bool     { return p.cur().Type == expr.EOF }
func (p *Parser) advance() expr.Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) isIdent(kw string) bool {
	tok := p.cur()
	return tok.Type == expr.IDENT && strings.EqualFold(tok.Literal, kw)
}

func (p *Parser) expectIdent(kw string) error {
	if !p.isIdent(kw) {
		return fmt.Errorf("expected %q at offset %d, found %q", kw, p.cur().Offset, p.cur().Literal)
	}
	p.advance()
	return nil
}

func (p *Parser) expectType(t expr.TokenType, desc string) error {
	if p.cur().Type != t {
		return fmt.Errorf("expected %s at offset %d, found %q", desc, p.cur().Offset, p.cur().Literal)
	}
	p.advance()
	return nil
}

// identifier consumes any IDENT token (including a context-sensitive
// command keyword used as a plain name) and returns its text.
func (p *Parser) identifier() (string, error) {
	tok := p.cur()
	if tok.Type != expr.IDENT {
		return "", fmt.Errorf("expected identifier at offset %d, found %q", tok.Offset, tok.Literal)
	}
	p.advance()
	return tok.Literal, nil
}

// ParseProgram parses a full `statement (';' statement)* ';'?` program.
func ParseProgram(src string) (*Program, error) {
	p, err := NewParser(src)
	if err != nil {
		return nil, err
	}
	var stmts []Statement
	for !p.atEOF() {
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
		if p.cur().Type == expr.SEMI {
			p.advance()
			continue
		}
		break
	}
	if !p.atEOF() {
		return nil, fmt.Errorf("unexpected token %q at offset %d", p.cur().Literal, p.cur().Offset)
	}
	return &Program{Statements: stmts}, nil
}

func (p *Parser) parseStatement() (Statement, error) {
	switch {
	case p.isIdent("create"):
		return p.parseCreate()
	case p.isIdent("delete"):
		return p.parseDelete()
	case p.isIdent("insert"):
		return p.parseInsert()
	case p.isIdent("flush"):
		p.advance()
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		return &FlushStmt{Name: name}, nil
	case p.isIdent("list"):
		return p.parseList()
	case p.isIdent("info"):
		p.advance()
		if p.cur().Type == expr.IDENT && !commandKeywords[strings.ToLower(p.cur().Literal)] {
			name, _ := p.identifier()
			return &InfoStmt{Name: name}, nil
		}
		return &InfoStmt{}, nil
	case p.isIdent("subscribe"):
		p.advance()
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		return &SubscribeStmt{Name: name}, nil
	case p.isIdent("unsubscribe"):
		p.advance()
		node, err := p.parseExprUntil(nil)
		if err != nil {
			return nil, err
		}
		return &UnsubscribeStmt{ID: node}, nil
	default:
		return p.parsePipelineQuery()
	}
}

func (p *Parser) parseExistence() CreateExistence {
	if p.isIdent("or") {
		p.advance()
		if p.isIdent("replace") {
			p.advance()
		}
		return CreateOrReplace
	}
	if p.isIdent("if") {
		p.advance()
		if p.isIdent("not") {
			p.advance()
		}
		if p.isIdent("exists") {
			p.advance()
		}
		return CreateIfNotExists
	}
	return CreateDefault
}

func (p *Parser) parseCreate() (Statement, error) {
	p.advance() // 'create'
	existence := p.parseExistence()
	switch {
	case p.isIdent("stream"):
		p.advance()
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		return &CreateStreamStmt{Name: name, Existence: existence}, nil
	case p.isIdent("flow"):
		p.advance()
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		var ttl expr.Node
		if p.isIdent("ttl") {
			p.advance()
			if err := p.expectType(expr.LPAREN, "'('"); err != nil {
				return nil, err
			}
			node, err := p.parseExprUntilType(expr.RPAREN)
			if err != nil {
				return nil, err
			}
			ttl = node
			if err := p.expectType(expr.RPAREN, "')'"); err != nil {
				return nil, err
			}
		}
		if err := p.expectIdent("as"); err != nil {
			return nil, err
		}
		query, err := p.parsePipelineQuery()
		if err != nil {
			return nil, err
		}
		return &CreateFlowStmt{Name: name, Existence: existence, TTL: ttl, Query: query}, nil
	case p.isIdent("lookup"):
		p.advance()
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		if err := p.expectType(expr.ASSIGN, "'='"); err != nil {
			return nil, err
		}
		node, err := p.parseExprUntil(nil)
		if err != nil {
			return nil, err
		}
		return &CreateLookupStmt{Name: name, Existence: existence, Value: node}, nil
	}
	return nil, fmt.Errorf("expected stream|flow|lookup after create at offset %d", p.cur().Offset)
}

func (p *Parser) parseDelete() (Statement, error) {
	p.advance() // 'delete'
	var kind DeleteKind
	switch {
	case p.isIdent("stream"):
		kind = DeleteStream
	case p.isIdent("flow"):
		kind = DeleteFlow
	case p.isIdent("lookup"):
		kind = DeleteLookup
	default:
		return nil, fmt.Errorf("expected stream|flow|lookup after delete at offset %d", p.cur().Offset)
	}
	p.advance()
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	return &DeleteStmt{Kind: kind, Name: name}, nil
}

func (p *Parser) parseInsert() (Statement, error) {
	p.advance() // 'insert'
	if err := p.expectIdent("into"); err != nil {
		return nil, err
	}
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	node, err := p.parseExprUntil(nil)
	if err != nil {
		return nil, err
	}
	return &InsertStmt{Target: name, Value: node}, nil
}

func (p *Parser) parseList() (Statement, error) {
	p.advance() // 'list'
	kind := ListStreams
	switch {
	case p.isIdent("streams"):
		kind, _ = ListStreams, p.advance()
	case p.isIdent("flows"):
		kind, _ = ListFlows, p.advance()
	case p.isIdent("lookups"):
		kind, _ = ListLookups, p.advance()
	case p.isIdent("subscriptions"):
		kind, _ = ListSubscriptions, p.advance()
	}
	return &ListStmt{Kind: kind}, nil
}

func (p *Parser) parsePipelineQuery() (*PipelineQueryStmt, error) {
	source, err := p.identifier()
	if err != nil {
		return nil, err
	}
	q := &PipelineQueryStmt{Source: source}
	for p.cur().Type == expr.PIPE {
		p.advance()
		opNode, err := p.parseOperation()
		if err != nil {
			return nil, err
		}
		q.Operations = append(q.Operations, opNode)
	}
	return q, nil
}

func (p *Parser) parseOperation() (Operation, error) {
	switch {
	case p.isIdent("where"):
		p.advance()
		node, err := p.parseExprUntil(nil)
		if err != nil {
			return nil, err
		}
		return &WhereOp{Predicate: node}, nil
	case p.isIdent("select"):
		p.advance()
		node, err := p.parseExprUntil(nil)
		if err != nil {
			return nil, err
		}
		return &SelectOp{Projection: node}, nil
	case p.isIdent("map"):
		p.advance()
		node, err := p.parseExprUntil(nil)
		if err != nil {
			return nil, err
		}
		return &MapOp{Projection: node}, nil
	case p.isIdent("scan"):
		return p.parseScan()
	case p.isIdent("summarize"):
		return p.parseSummarize()
	case p.isIdent("insert_into"):
		p.advance()
		if err := p.expectType(expr.LPAREN, "'('"); err != nil {
			return nil, err
		}
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		if err := p.expectType(expr.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return &InsertIntoOp{Target: name}, nil
	case p.isIdent("write_to_file"):
		p.advance()
		if err := p.expectType(expr.LPAREN, "'('"); err != nil {
			return nil, err
		}
		path, err := p.parseExprUntilType(expr.COMMA, expr.RPAREN)
		if err != nil {
			return nil, err
		}
		var opts expr.Node
		if p.cur().Type == expr.COMMA {
			p.advance()
			opts, err = p.parseExprUntilType(expr.RPAREN)
			if err != nil {
				return nil, err
			}
		}
		if err := p.expectType(expr.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return &WriteToFileOp{Path: path, Options: opts}, nil
	case p.isIdent("assert_or_save_expected"):
		p.advance()
		if err := p.expectType(expr.LPAREN, "'('"); err != nil {
			return nil, err
		}
		path, err := p.parseExprUntilType(expr.RPAREN)
		if err != nil {
			return nil, err
		}
		if err := p.expectType(expr.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return &AssertOrSaveOp{Path: path}, nil
	case p.isIdent("collect"):
		p.advance()
		if p.cur().Type == expr.LPAREN {
			p.advance()
			if err := p.expectType(expr.RPAREN, "')'"); err != nil {
				return nil, err
			}
		}
		return &CollectOp{}, nil
	}
	return nil, fmt.Errorf("unknown pipeline operation %q at offset %d", p.cur().Literal, p.cur().Offset)
}

func (p *Parser) parseScan() (Operation, error) {
	p.advance() // 'scan'
	if err := p.expectType(expr.LPAREN, "'('"); err != nil {
		return nil, err
	}
	var steps []ScanStepSpec
	for {
		if err := p.expectIdent("step"); err != nil {
			return nil, err
		}
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		if err := p.expectType(expr.COLON, "':'"); err != nil {
			return nil, err
		}
		cond, err := p.parseExprUntilType(expr.ARROW)
		if err != nil {
			return nil, err
		}
		if err := p.expectType(expr.ARROW, "'=>'"); err != nil {
			return nil, err
		}
		stmts, err := p.parseScanStatements()
		if err != nil {
			return nil, err
		}
		steps = append(steps, ScanStepSpec{Name: name, Condition: cond, Statements: stmts})
		if p.isIdent("step") {
			continue
		}
		break
	}
	if err := p.expectType(expr.RPAREN, "')'"); err != nil {
		return nil, err
	}
	return &ScanOp{Steps: steps}, nil
}

// parseScanStatements parses a step body: assignment and emit(...)
// statements separated by ',' (or ';'), ending at the scan clause's ')' or
// at the next `step` keyword.
func (p *Parser) parseScanStatements() ([]ScanStmt, error) {
	var out []ScanStmt
	for {
		for p.cur().Type == expr.COMMA || p.cur().Type == expr.SEMI {
			p.advance()
		}
		if p.cur().Type == expr.RPAREN || p.isIdent("step") {
			return out, nil
		}
		if p.cur().Type == expr.EOF {
			return nil, fmt.Errorf("unterminated scan step body at offset %d", p.cur().Offset)
		}
		if target, ok := p.peekAssignTarget(); ok {
			// path segments, the dots between them, and the '='
			for i := 0; i < 2*len(target); i++ {
				p.advance()
			}
			value, err := p.parseExprUntilType(expr.COMMA, expr.SEMI, expr.RPAREN)
			if err != nil {
				return nil, err
			}
			out = append(out, &ScanAssignStmt{Target: target, Value: value})
			continue
		}
		node, err := p.parseExprUntilType(expr.COMMA, expr.SEMI, expr.RPAREN)
		if err != nil {
			return nil, err
		}
		call, ok := node.(*expr.Call)
		if !ok || !strings.EqualFold(call.Name, "emit") || len(call.Args) != 1 {
			return nil, fmt.Errorf("scan step statement must be an assignment or emit(expr)")
		}
		out = append(out, &ScanEmitStmt{Value: call.Args[0]})
	}
}

// peekAssignTarget reports whether the tokens at the current position form
// `ident ('.' ident)* '='` and returns the dotted path if so, without
// consuming anything.
func (p *Parser) peekAssignTarget() ([]string, bool) {
	i := p.pos
	if i >= len(p.tokens) || p.tokens[i].Type != expr.IDENT {
		return nil, false
	}
	path := []string{p.tokens[i].Literal}
	i++
	for i+1 < len(p.tokens) && p.tokens[i].Type == expr.DOT && p.tokens[i+1].Type == expr.IDENT {
		path = append(path, p.tokens[i+1].Literal)
		i += 2
	}
	if i < len(p.tokens) && p.tokens[i].Type == expr.ASSIGN {
		return path, true
	}
	return nil, false
}

func (p *Parser) parseSummarize() (Operation, error) {
	p.advance() // 'summarize'
	agg, err := p.parseExprUntilIdent("by", "over", "emit")
	if err != nil {
		return nil, err
	}
	op := &SummarizeOp{Aggregation: agg}
	if p.isIdent("by") {
		p.advance()
		node, err := p.parseExprUntilIdent("over", "emit")
		if err != nil {
			return nil, err
		}
		op.GroupKey = node
	}
	if p.isIdent("over") {
		p.advance()
		node, err := p.parseExprUntilIdent("emit")
		if err != nil {
			return nil, err
		}
		call, ok := node.(*expr.Call)
		if !ok {
			return nil, fmt.Errorf("window clause must be a function call")
		}
		op.WindowDef = call
	}
	if p.isIdent("emit") {
		p.advance()
		node, err := p.parseExprUntil(nil)
		if err != nil {
			return nil, err
		}
		call, ok := node.(*expr.Call)
		if !ok {
			return nil, fmt.Errorf("emit clause must be a function call")
		}
		op.EmitDef = call
	}
	return op, nil
}

// parseExprUntil extracts and parses one expression starting at the current
// token, stopping at the first PIPE/SEMI/EOF at bracket depth 0, or at any
// of extraTypes given. The stop token is left unconsumed.
func (p *Parser) parseExprUntil(extraTypes []expr.TokenType) (expr.Node, error) {
	stop := map[expr.TokenType]bool{expr.PIPE: true, expr.SEMI: true, expr.EOF: true}
	for _, t := range extraTypes {
		stop[t] = true
	}
	return p.parseExprStopping(stop, nil)
}

func (p *Parser) parseExprUntilType(types ...expr.TokenType) (expr.Node, error) {
	stop := map[expr.TokenType]bool{expr.EOF: true}
	for _, t := range types {
		stop[t] = true
	}
	return p.parseExprStopping(stop, nil)
}

func (p *Parser) parseExprUntilIdent(keywords ...string) (expr.Node, error) {
	stop := map[expr.TokenType]bool{expr.PIPE: true, expr.SEMI: true, expr.EOF: true}
	kw := map[string]bool{}
	for _, k := range keywords {
		kw[strings.ToLower(k)] = true
	}
	return p.parseExprStopping(stop, kw)
}

func (p *Parser) parseExprStopping(stopTypes map[expr.TokenType]bool, stopIdents map[string]bool) (expr.Node, error) {
	start := p.pos
	depth := 0
	for {
		tok := p.cur()
		if depth == 0 {
			if stopTypes[tok.Type] {
				break
			}
			if stopIdents != nil && tok.Type == expr.IDENT && stopIdents[strings.ToLower(tok.Literal)] {
				break
			}
		}
		switch tok.Type {
		case expr.LPAREN, expr.LBRACE, expr.LBRACKET:
			depth++
		case expr.RPAREN, expr.RBRACE, expr.RBRACKET:
			depth--
		case expr.EOF:
			break
		}
		if tok.Type == expr.EOF {
			break
		}
		p.advance()
	}
	end := p.pos
	if start == end {
		return nil, fmt.Errorf("expected expression at offset %d", p.cur().Offset)
	}
	startOffset := p.tokens[start].Offset
	endOffset := len(p.src)
	if end < len(p.tokens) {
		endOffset = p.tokens[end].Offset
	}
	text := strings.TrimSpace(p.src[startOffset:endOffset])
	return expr.Parse(text)
}
