//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of SeqPrep.
//
// SeqPrep is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SeqPrep is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with SeqPrep. If not, see https://www.gnu.org/licenses/.

package experiment

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Node is one node of a species tree.
type Node struct {
	Name      string
	Length    float64
	HasLength bool
	Children  []*Node
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree is a rooted species tree.
type Tree struct {
	Root *Node
}

// PostOrder returns the nodes of t with every child before its parent and
// siblings in declaration order.
func (t *Tree) PostOrder() []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			walk(c)
		}
		out = append(out, n)
	}
	if t != nil && t.Root != nil {
		walk(t.Root)
	}
	return out
}

// Find returns the first node named name in post-order.
func (t *Tree) Find(name string) *Node {
	for _, n := range t.PostOrder() {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	var cp func(n *Node) *Node
	cp = func(n *Node) *Node {
		c := &Node{Name: n.Name, Length: n.Length, HasLength: n.HasLength}
		for _, child := range n.Children {
			c.Children = append(c.Children, cp(child))
		}
		return c
	}
	if t.Root == nil {
		return &Tree{}
	}
	return &Tree{Root: cp(t.Root)}
}

// String renders t in newick format, terminated by ';'.
func (t *Tree) String() string {
	if t == nil || t.Root == nil {
		return ";"
	}
	var b strings.Builder
	writeNode(&b, t.Root)
	b.WriteByte(';')
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	if len(n.Children) > 0 {
		b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			writeNode(b, c)
		}
		b.WriteByte(')')
	}
	b.WriteString(quoteLabel(n.Name))
	if n.HasLength {
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(n.Length, 'g', -1, 64))
	}
}

func quoteLabel(s string) string {
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "()[]':;, \t\n") {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return s
}

// ParseNewick parses a newick tree string. Comments in square brackets are
// ignored and a trailing ';' is optional.
func ParseNewick(s string) (*Tree, error) {
	p := &newickParser{src: []rune(s)}
	p.skip()
	if p.done() {
		return nil, fmt.Errorf("newick: empty tree")
	}
	root, err := p.node()
	if err != nil {
		return nil, err
	}
	p.skip()
	if !p.done() && p.peek() == ';' {
		p.pos++
		p.skip()
	}
	if !p.done() {
		return nil, p.errorf("unexpected %q after tree", p.peek())
	}
	return &Tree{Root: root}, nil
}

type newickParser struct {
	src []rune
	pos int
}

func (p *newickParser) done() bool { return p.pos >= len(p.src) }
func (p *newickParser) peek() rune { return p.src[p.pos] }

func (p *newickParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("newick: at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

// skip consumes whitespace and bracketed comments.
func (p *newickParser) skip() {
	for !p.done() {
		r := p.peek()
		switch {
		case unicode.IsSpace(r):
			p.pos++
		case r == '[':
			for !p.done() && p.peek() != ']' {
				p.pos++
			}
			if !p.done() {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *newickParser) node() (*Node, error) {
	n := &Node{}
	p.skip()
	if !p.done() && p.peek() == '(' {
		p.pos++
		for {
			child, err := p.node()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
			p.skip()
			if p.done() {
				return nil, p.errorf("unterminated subtree")
			}
			if p.peek() == ',' {
				p.pos++
				continue
			}
			if p.peek() == ')' {
				p.pos++
				break
			}
			return nil, p.errorf("expected ',' or ')', found %q", p.peek())
		}
	}

	p.skip()
	name, err := p.label()
	if err != nil {
		return nil, err
	}
	n.Name = name

	p.skip()
	if !p.done() && p.peek() == ':' {
		p.pos++
		p.skip()
		start := p.pos
		for !p.done() && strings.ContainsRune("0123456789+-.eE", p.peek()) {
			p.pos++
		}
		length, err := strconv.ParseFloat(string(p.src[start:p.pos]), 64)
		if err != nil {
			return nil, p.errorf("bad branch length: %v", err)
		}
		n.Length = length
		n.HasLength = true
	}
	return n, nil
}

func (p *newickParser) label() (string, error) {
	if p.done() {
		return "", nil
	}
	if p.peek() == '\'' {
		p.pos++
		var b strings.Builder
		for {
			if p.done() {
				return "", p.errorf("unterminated quoted label")
			}
			r := p.peek()
			p.pos++
			if r == '\'' {
				if !p.done() && p.peek() == '\'' {
					b.WriteRune('\'')
					p.pos++
					continue
				}
				return b.String(), nil
			}
			b.WriteRune(r)
		}
	}
	start := p.pos
	for !p.done() && !strings.ContainsRune("()[]':;,", p.peek()) && !unicode.IsSpace(p.peek()) {
		p.pos++
	}
	return string(p.src[start:p.pos]), nil
}
