// Package query parses "FROM source[,source...] WHERE name[,name...]"
// statements into typed tokens.
package query

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MaxTokenLength = 4096
	MaxTokens      = 1024
)

var ErrSyntax = errors.New("ldfind: syntax error")

// SyntaxError locates a parse failure in the statement.
type SyntaxError struct {
	Offset int
	Text   string
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Reason)
	}
	return fmt.Sprintf("syntax error at offset %d near %q: %s", e.Offset, e.Text, e.Reason)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// Statement is a parsed query. Tokens ends with a KindEnd token.
type Statement struct {
	Tokens  []Token
	Sources []string
	Names   Names
}

type clause int

const (
	clauseNone clause = iota
	clauseFrom
	clauseWhere
)

type lexeme struct {
	text   string
	offset int
	quoted bool
	comma  bool
}

// Parse parses statement. An empty statement selects every standard source
// and every name.
func Parse(statement string) (*Statement, error) {
	lexemes, err := lex(statement)
	if err != nil {
		return nil, err
	}

	stmt := &Statement{Tokens: make([]Token, 0, len(lexemes)+standardSourcesCount+1)}
	var (
		current  = clauseNone
		sawFrom  bool
		sawWhere bool
		fromSize int
	)
	for _, lx := range lexemes {
		if lx.comma {
			stmt.Tokens = append(stmt.Tokens, Token{Text: ",", Kind: KindComma})
			continue
		}
		if !lx.quoted {
			switch {
			case strings.EqualFold(lx.text, "FROM"):
				if sawFrom {
					return nil, &SyntaxError{Offset: lx.offset, Text: lx.text, Reason: "FROM appears twice"}
				}
				if sawWhere {
					return nil, &SyntaxError{Offset: lx.offset, Text: lx.text, Reason: "WHERE precedes FROM"}
				}
				sawFrom = true
				current = clauseFrom
				stmt.Tokens = append(stmt.Tokens, Token{Text: lx.text, Kind: KindFrom})
				continue
			case strings.EqualFold(lx.text, "WHERE"):
				if sawWhere {
					return nil, &SyntaxError{Offset: lx.offset, Text: lx.text, Reason: "WHERE appears twice"}
				}
				if sawFrom && fromSize == 0 {
					return nil, &SyntaxError{Offset: lx.offset, Text: lx.text, Reason: "FROM clause is empty"}
				}
				sawWhere = true
				current = clauseWhere
				stmt.Tokens = append(stmt.Tokens, Token{Text: lx.text, Kind: KindWhere})
				continue
			}
		}

		switch current {
		case clauseFrom:
			kind := KindNonstandardSource
			if IsStandardSource(lx.text) {
				kind = KindSource
			}
			stmt.Tokens = append(stmt.Tokens, Token{Text: lx.text, Kind: kind})
			stmt.Sources = append(stmt.Sources, lx.text)
			fromSize++
		case clauseWhere:
			stmt.Tokens = append(stmt.Tokens, Token{Text: lx.text, Kind: KindName})
			stmt.Names = stmt.Names.Add(lx.text)
		default:
			return nil, &SyntaxError{Offset: lx.offset, Text: lx.text, Reason: "expected FROM or WHERE"}
		}
	}
	if sawFrom && fromSize == 0 {
		return nil, &SyntaxError{Offset: len(statement), Reason: "FROM clause is empty"}
	}

	if !sawFrom {
		for _, name := range standardSources {
			stmt.Tokens = append(stmt.Tokens, Token{Text: name, Kind: KindSource})
			stmt.Sources = append(stmt.Sources, name)
		}
	}
	stmt.Tokens = append(stmt.Tokens, Token{Kind: KindEnd})
	return stmt, nil
}

func lex(s string) ([]lexeme, error) {
	var out []lexeme
	push := func(lx lexeme) error {
		if len(lx.text) > MaxTokenLength {
			return &SyntaxError{Offset: lx.offset, Text: lx.text[:32], Reason: fmt.Sprintf("token longer than %d bytes", MaxTokenLength)}
		}
		if len(out) == MaxTokens {
			return &SyntaxError{Offset: lx.offset, Reason: fmt.Sprintf("more than %d tokens", MaxTokens)}
		}
		out = append(out, lx)
		return nil
	}

	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case isSpace(c):
			i++
		case c == ',':
			if err := push(lexeme{text: ",", offset: i, comma: true}); err != nil {
				return nil, err
			}
			i++
		case c == '"' || c == '\'' || c == ':':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, &SyntaxError{Offset: i, Text: s[i:min(len(s), i+32)], Reason: "unterminated quote"}
			}
			if err := push(lexeme{text: s[i+1 : i+1+end], offset: i, quoted: true}); err != nil {
				return nil, err
			}
			i += end + 2
		default:
			start := i
			for i < len(s) && !isSpace(s[i]) && s[i] != ',' {
				i++
			}
			if err := push(lexeme{text: s[start:i], offset: start}); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
