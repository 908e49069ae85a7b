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

package expr

import (
	"fmt"
	"strconv"

	"github.com/flowql/enginecore/types"
)

// Parser builds a Node tree from a token stream via a descending-precedence
// cascade: Or -> And -> Comparison -> Additive -> Multiplicative -> Unary ->
// Postfix -> Primary. Each level recurses into the next, then loops while
// it sees an operator at its own level.
type Parser struct {
	lexer *Lexer
	cur   Token
	peek  Token
}

func NewParser(input string) (*Parser, error) {
	p := &Parser{lexer: NewLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.cur = p.peek
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

// Parse parses a single expression and requires the full input be consumed.
func Parse(input string) (Node, error) {
	p, err := NewParser(input)
	if err != nil {
		return nil, err
	}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != EOF {
		return nil, fmt.Errorf("unexpected token %q at offset %d", p.cur.Literal, p.cur.Offset)
	}
	return node, nil
}

func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == OR {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: OR, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == AND {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: AND, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == EQ || p.cur.Type == NEQ || p.cur.Type == LT || p.cur.Type == LE || p.cur.Type == GT || p.cur.Type == GE {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == PLUS || p.cur.Type == MINUS {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == STAR || p.cur.Type == SLASH || p.cur.Type == PERCENT {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Node, error) {
	if p.cur.Type == MINUS || p.cur.Type == BANG {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Type {
		case DOT:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Type != IDENT {
				return nil, fmt.Errorf("expected field name after '.' at offset %d", p.cur.Offset)
			}
			name := p.cur.Literal
			if err := p.advance(); err != nil {
				return nil, err
			}
			if ref, ok := node.(*FieldRef); ok {
				node = &FieldRef{Path: append(append([]string{}, ref.Path...), name)}
			} else {
				node = &Index{Base: node, Index: &StringLit{Value: name}}
			}
		case LBRACKET:
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			if p.cur.Type != RBRACKET {
				return nil, fmt.Errorf("expected ']' at offset %d", p.cur.Offset)
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			node = &Index{Base: node, Index: idx}
		default:
			return node, nil
		}
	}
}

func (p *Parser) parsePrimary() (Node, error) {
	switch p.cur.Type {
	case NUMBER:
		lit := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number literal %q", lit)
		}
		return &NumberLit{Value: f}, nil
	case DURATION:
		lit := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		d, err := types.ParseDuration(lit)
		if err != nil {
			return nil, err
		}
		return &DurationLit{Value: d}, nil
	case STRING:
		lit := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &StringLit{Value: lit}, nil
	case TRUE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &BoolLit{Value: true}, nil
	case FALSE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &BoolLit{Value: false}, nil
	case NULL:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &NullLit{}, nil
	case LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != RPAREN {
			return nil, fmt.Errorf("expected ')' at offset %d", p.cur.Offset)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return node, nil
	case LBRACE:
		return p.parseObjectLit()
	case IDENT:
		name := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type == LPAREN {
			return p.parseCallArgs(name)
		}
		return &FieldRef{Path: []string{name}}, nil
	}
	return nil, fmt.Errorf("unexpected token %q at offset %d", p.cur.Literal, p.cur.Offset)
}

func (p *Parser) parseCallArgs(name string) (Node, error) {
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	var args []Node
	for p.cur.Type != RPAREN {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Type == COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.cur.Type != RPAREN {
		return nil, fmt.Errorf("expected ')' at offset %d", p.cur.Offset)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &Call{Name: name, Args: args}, nil
}

// parseObjectLit parses { prop, prop, ... }: shorthand ("field"),
// explicit ("key: expr"), spread ("...expr" / "...*") and exclusion
// ("-field") entries.
func (p *Parser) parseObjectLit() (Node, error) {
	if err := p.advance(); err != nil { // consume '{'
		return nil, err
	}
	var props []ObjectProp
	for p.cur.Type != RBRACE {
		if p.cur.Type == ELLIPSIS {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Type == STAR {
				if err := p.advance(); err != nil {
					return nil, err
				}
				props = append(props, ObjectProp{Spread: true, Value: &SelfRef{}})
				if p.cur.Type == COMMA {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
			val, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			props = append(props, ObjectProp{Spread: true, Value: val})
		} else if p.cur.Type == MINUS {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Type != IDENT {
				return nil, fmt.Errorf("expected field name after '-' at offset %d", p.cur.Offset)
			}
			props = append(props, ObjectProp{Key: p.cur.Literal, Exclude: true})
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if p.cur.Type == IDENT {
			name := p.cur.Literal
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Type == COLON {
				if err := p.advance(); err != nil {
					return nil, err
				}
				val, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				props = append(props, ObjectProp{Key: name, Value: val})
			} else {
				props = append(props, ObjectProp{Key: name, Value: &FieldRef{Path: []string{name}}})
			}
		} else {
			return nil, fmt.Errorf("unexpected token %q in object literal at offset %d", p.cur.Literal, p.cur.Offset)
		}
		if p.cur.Type == COMMA {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.cur.Type != RBRACE {
		return nil, fmt.Errorf("expected '}' at offset %d", p.cur.Offset)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ObjectLit{Props: props}, nil
}
