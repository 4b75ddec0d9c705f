// Package compiler implements Troll's single-pass, precedence-climbing
// expression compiler (§4.2): it drains a token stream directly into
// bytecode with no intermediate AST, in contrast to the teacher's
// parser/ast two-stage pipeline (parser/parser.go builds an ast.Node
// tree that runtime/compiler.go then walks). The parse-rule-table shape
// — a map from token kind to a {prefix, infix, precedence} row, method
// values used as parser functions — follows the Pratt-parser structure
// found in the retrieval pack's informatter-nilan/compiler/compiler.go,
// generalized from its five-token arithmetic grammar to Troll's full
// operator set.
package compiler

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"troll/internal/chunk"
	"troll/internal/lexer"
	"troll/internal/token"
	"troll/internal/value"
)

type parseFn func(c *Compiler)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// Compiler drains a Troll source string into a *chunk.Chunk. It carries
// the teacher's panic-mode error model (runtime/errors.go's accumulate-
// and-suppress-until-sync pattern) rather than aborting on the first
// error.
type Compiler struct {
	scanner *lexer.Scanner
	chunk   *chunk.Chunk

	previous token.Token
	current  token.Token

	hadError  bool
	panicMode bool
	errs      *multierror.Error

	rules map[token.Kind]parseRule
}

// Compile compiles source into a chunk. The returned chunk is only safe
// to run when the returned error is nil; a failing compile still leaves
// a partially populated chunk (§4.2), which the caller must discard.
func Compile(source string) (*chunk.Chunk, error) {
	c := &Compiler{
		scanner: lexer.New(source),
		chunk:   chunk.New(),
	}
	c.rules = c.buildRules()

	c.advance()
	c.expression()
	for c.match(token.SEMICOLON) {
		c.emitByte(byte(chunk.OP_POP))
		if c.check(token.EOF) {
			break
		}
		c.expression()
	}
	c.consume(token.EOF, "Expect end of expression.")
	c.emitByte(byte(chunk.OP_RETURN))

	if c.hadError {
		return c.chunk, c.errs.ErrorOrNil()
	}
	return c.chunk, nil
}

func (c *Compiler) expression() {
	c.parsePrecedence(PrecConcat)
}

// parsePrecedence implements §4.2's algorithm exactly: advance, run the
// prefix rule for the consumed token, then keep consuming infix
// operators whose precedence is at least minPrec. Infix rules recurse at
// precedence+1, making every operator left-associative.
func (c *Compiler) parsePrecedence(minPrec Precedence) {
	c.advance()
	prefix := c.rules[c.previous.Kind].prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}
	prefix(c)

	for minPrec <= c.rules[c.current.Kind].precedence {
		c.advance()
		infix := c.rules[c.previous.Kind].infix
		infix(c)
	}
}

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Next()
		if c.current.Kind != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(k token.Kind) bool { return c.current.Kind == k }

func (c *Compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k token.Kind, msg string) {
	if c.check(k) {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

// --- emission helpers -------------------------------------------------

func (c *Compiler) emitByte(b byte) {
	c.chunk.Write(b, c.previous.Line)
}

func (c *Compiler) emitBytes(a, b byte) {
	c.emitByte(a)
	c.emitByte(b)
}

// makeConstant adds v to the chunk's constant pool, reporting a compile
// error (not a panic) if the pool is already full (§4.1).
func (c *Compiler) makeConstant(v value.Value) byte {
	idx, ok := c.chunk.AddConstant(v)
	if !ok {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitBytes(byte(chunk.OP_CONSTANT), c.makeConstant(v))
}

func (c *Compiler) identifierConstant(name string) byte {
	return c.makeConstant(value.FromObject(value.NewString(name)))
}

// --- error reporting ----------------------------------------------------

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.previous, msg) }

// errorAt implements the panic-mode model of §4.2/§7: the first error at
// a given point is recorded; later errors are swallowed until the next
// synchronization point (here, only EOF — there are no statements to
// resynchronize on). The exact "[line N] Error at '<lexeme>': <msg>"
// text is required by §8's scenario 8 and is formatted here; the CLI
// layer is responsible for actually writing it to stderr.
func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	var where string
	switch tok.Kind {
	case token.EOF:
		where = "at end"
	case token.ERROR:
		where = ""
	default:
		where = fmt.Sprintf("at '%s'", tok.Lexeme)
	}

	var text string
	if where == "" {
		text = fmt.Sprintf("[line %d] Error: %s", tok.Line, msg)
	} else {
		text = fmt.Sprintf("[line %d] Error %s: %s", tok.Line, where, msg)
	}
	c.errs = multierror.Append(c.errs, fmt.Errorf("%s", text))
}
