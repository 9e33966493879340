package dub

import (
	"fmt"
	"strconv"
)

type Node interface {
	isNode()
}

func (Identifier) isNode() {}
func (Int) isNode()        {}
func (Float) isNode()      {}
func (String) isNode()     {}
func (KeySet) isNode()     {}

type Command struct {
	Name Identifier
	Args []Node
}

type Identifier string
type Int int
type Float float64
type String string

// KeySet selects MIDI keys, written as '60,64,67 or '48:60 or '*.
type KeySet struct {
	matchers []matcher
}

// Parse parses a single command.
func Parse(input string) (Command, error) {
	cmds, err := ParseLine(input)
	if err != nil {
		return Command{}, err
	}
	if len(cmds) != 1 {
		return Command{}, fmt.Errorf("expected one command, got %d", len(cmds))
	}
	return cmds[0], nil
}

// ParseLine parses a line of commands separated by semicolons. Empty
// commands are skipped.
func ParseLine(input string) ([]Command, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := parser{tokens: tokens}
	var cmds []Command
	for p.peek().typ != typeEOF {
		if p.peek().typ == typeSemicolon {
			p.next()
			continue
		}
		cmd, err := p.parse()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

type parser struct {
	pos    int
	tokens []token
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) peek() token {
	t := p.next()
	p.pos--
	return t
}

func (p *parser) backup() {
	p.pos--
}

func (p *parser) parse() (Command, error) {
	var cmd Command
	token := p.next()
	if token.typ != typeIdentifier {
		return cmd, unexpected(token)
	}
	cmd.Name = Identifier(token.text)
	for token := p.next(); token.typ != typeEOF && token.typ != typeSemicolon; token = p.next() {
		var arg Node
		switch token.typ {
		case typeIdentifier:
			arg = Identifier(token.text)
		case typeString:
			arg = String(token.text[1 : len(token.text)-1])
		case typeFloat:
			f, err := strconv.ParseFloat(token.text, 64)
			if err != nil {
				return cmd, err
			}
			arg = Float(f)
		case typeInt:
			n, err := strconv.Atoi(token.text)
			if err != nil {
				return cmd, err
			}
			arg = Int(n)
		case typeQuote:
			keys, err := p.keySet()
			if err != nil {
				return cmd, err
			}
			arg = keys
		default:
			return cmd, unexpected(token)
		}
		cmd.Args = append(cmd.Args, arg)
	}
	p.backup()
	return cmd, nil
}

func (p *parser) keySet() (KeySet, error) {
	var set KeySet
	for {
		m, err := p.keyItem(p.next())
		if err != nil {
			return set, err
		}
		set.matchers = append(set.matchers, m)
		if p.peek().typ != typeComma {
			return set, nil
		}
		p.next()
	}
}

func (p *parser) keyItem(start token) (matcher, error) {
	switch start.typ {
	case typeAsterisk:
		return matchAll, nil
	case typeInt:
		n, err := key(start)
		if err != nil {
			return nil, err
		}
		if p.peek().typ != typeColon {
			return listMatch{n}, nil
		}
		p.next()
		t := p.next()
		if t.typ != typeInt {
			return nil, unexpected(t)
		}
		end, err := key(t)
		if err != nil {
			return nil, err
		}
		if end < n {
			return nil, fmt.Errorf("empty key range %d:%d", n, end)
		}
		return rangeMatch{start: n, end: end}, nil
	}
	return nil, unexpected(start)
}

func key(t token) (int, error) {
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > maxKey {
		return 0, fmt.Errorf("key %d out of range 0-%d at position %d", n, maxKey, t.pos)
	}
	return n, nil
}

func unexpected(t token) error {
	if t.typ == typeEOF {
		return fmt.Errorf("unexpected end of input")
	}
	return fmt.Errorf("unexpected token %q at position %d", t.text, t.pos)
}
