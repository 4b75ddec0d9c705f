package compiler

import (
	"strconv"

	"troll/internal/chunk"
	"troll/internal/token"
	"troll/internal/value"
)

// buildRules constructs the static precedence table (§4.2). Method
// expressions are used as parser functions, the same shape as
// informatter-nilan's parsingRules map, generalized to Troll's full
// token vocabulary.
func (c *Compiler) buildRules() map[token.Kind]parseRule {
	return map[token.Kind]parseRule{
		token.INTEGER:    {prefix: (*Compiler).integer},
		token.STRING:     {prefix: (*Compiler).stringLiteral},
		token.IDENTIFIER: {prefix: (*Compiler).identifier},

		token.LPAREN: {prefix: (*Compiler).grouping},
		token.LBRACK: {prefix: (*Compiler).pairLiteral},
		token.LBRACE: {prefix: (*Compiler).collectionLiteral},

		token.MINUS: {prefix: (*Compiler).unaryMinus, infix: (*Compiler).binary, precedence: PrecTerm},
		token.PLUS:  {infix: (*Compiler).binary, precedence: PrecTerm},

		token.TIMES:  {infix: (*Compiler).binary, precedence: PrecFactor},
		token.DIVIDE: {infix: (*Compiler).binary, precedence: PrecFactor},
		token.MOD:    {infix: (*Compiler).binary, precedence: PrecFactor},

		token.SUM:       {prefix: (*Compiler).unaryAggregate},
		token.SGN:       {prefix: (*Compiler).unaryAggregate},
		token.MIN:       {prefix: (*Compiler).unaryAggregate},
		token.MAX:       {prefix: (*Compiler).unaryAggregate},
		token.MINIMAL:   {prefix: (*Compiler).unaryAggregate},
		token.MAXIMAL:   {prefix: (*Compiler).unaryAggregate},
		token.MEDIAN:    {prefix: (*Compiler).unaryAggregate},
		token.CHOOSE:    {prefix: (*Compiler).unaryAggregate},
		token.DIFFERENT: {prefix: (*Compiler).unaryAggregate},
		token.BANG:      {prefix: (*Compiler).unaryAggregate},
		token.COUNT:     {prefix: (*Compiler).unaryAggregate},

		token.DIE:      {prefix: (*Compiler).diePrefix, infix: (*Compiler).dieInfix, precedence: PrecMultiDie},
		token.ZERO_DIE: {prefix: (*Compiler).diePrefix, infix: (*Compiler).dieInfix, precedence: PrecMultiDie},

		token.QUESTION: {prefix: (*Compiler).question},

		token.FIRST:  {infix: (*Compiler).pairSelector, precedence: PrecAggregate},
		token.SECOND: {infix: (*Compiler).pairSelector, precedence: PrecAggregate},

		token.UNION: {infix: (*Compiler).binary, precedence: PrecUnion},
		token.AND:   {infix: (*Compiler).binary, precedence: PrecUnion},

		token.SET_MINUS: {infix: (*Compiler).binary, precedence: PrecDrop},
		token.DROP:      {infix: (*Compiler).binary, precedence: PrecDrop},
		token.KEEP:      {infix: (*Compiler).binary, precedence: PrecDrop},
		token.PICK:      {infix: (*Compiler).binary, precedence: PrecDrop},
		token.LARGEST:   {infix: (*Compiler).binary, precedence: PrecDrop},
		token.LEAST:     {infix: (*Compiler).binary, precedence: PrecDrop},

		token.DOT_DOT: {infix: (*Compiler).binary, precedence: PrecRange},

		token.HCONC:  {infix: (*Compiler).binary, precedence: PrecConcat},
		token.VCONCL: {infix: (*Compiler).binary, precedence: PrecConcat},
		token.VCONCR: {infix: (*Compiler).binary, precedence: PrecConcat},
		token.VCONCC: {infix: (*Compiler).binary, precedence: PrecConcat},

		token.EQ:  {infix: (*Compiler).binary, precedence: PrecRelational},
		token.NEQ: {infix: (*Compiler).binary, precedence: PrecRelational},
		token.LT:  {infix: (*Compiler).binary, precedence: PrecRelational},
		token.GT:  {infix: (*Compiler).binary, precedence: PrecRelational},
		token.LE:  {infix: (*Compiler).binary, precedence: PrecRelational},
		token.GE:  {infix: (*Compiler).binary, precedence: PrecRelational},
	}
}

// --- prefix rules -------------------------------------------------------

// integer parses a decimal literal and emits it as a constant (§4.2).
func (c *Compiler) integer() {
	n, err := strconv.ParseInt(c.previous.Lexeme, 10, 32)
	if err != nil {
		c.error("Invalid integer literal '" + c.previous.Lexeme + "'.")
		return
	}
	c.emitConstant(value.Int(int32(n)))
}

// stringLiteral allocates a string constant from the token's interior
// (the scanner has already stripped the surrounding quotes, §3).
func (c *Compiler) stringLiteral() {
	c.emitConstant(value.FromObject(value.NewString(c.previous.Lexeme)))
}

// grouping parses a parenthesized subexpression.
func (c *Compiler) grouping() {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

// unaryMinus negates its operand, parsed at UNARY_MINUS: +, -, *, /, mod
// and the collection operators end the operand, while relational
// operators, infix dice and %1/%2 bind tighter and are applied before
// the negation.
func (c *Compiler) unaryMinus() {
	c.parsePrecedence(PrecUnaryMinus)
	c.emitByte(byte(chunk.OP_NEGATE))
}

var aggregateOps = map[token.Kind]chunk.OpCode{
	token.SUM:       chunk.OP_SUM,
	token.SGN:       chunk.OP_SGN,
	token.MIN:       chunk.OP_MIN,
	token.MAX:       chunk.OP_MAX,
	token.MINIMAL:   chunk.OP_MINIMAL,
	token.MAXIMAL:   chunk.OP_MAXIMAL,
	token.MEDIAN:    chunk.OP_MEDIAN,
	token.CHOOSE:    chunk.OP_CHOOSE,
	token.DIFFERENT: chunk.OP_DIFFERENT,
	token.BANG:      chunk.OP_NOT,
	token.COUNT:     chunk.OP_COUNT,
}

// unaryAggregate covers the ten named prefix aggregators plus count
// (which §4.2's prose omits from the prefix list but whose opcode,
// OP_COUNT, has no other way to reach the instruction stream — treated
// here identically to sum/sgn/etc, at the same UNARY_MINUS rung).
func (c *Compiler) unaryAggregate() {
	op := aggregateOps[c.previous.Kind]
	c.parsePrecedence(PrecUnaryMinus)
	c.emitByte(byte(op))
}

// diePrefix parses "D n" / "z n" — a single roll of an n-sided die.
func (c *Compiler) diePrefix() {
	kw := c.previous.Kind
	c.parsePrecedence(PrecDie)
	if kw == token.ZERO_DIE {
		c.emitByte(byte(chunk.OP_ZERO_DIE))
	} else {
		c.emitByte(byte(chunk.OP_DIE))
	}
}

// dieInfix parses "k D n" / "k z n" — k independent draws.
func (c *Compiler) dieInfix() {
	kw := c.previous.Kind
	c.parsePrecedence(PrecMultiDie + 1)
	if kw == token.ZERO_DIE {
		c.emitByte(byte(chunk.OP_MZDIE))
	} else {
		c.emitByte(byte(chunk.OP_MDIE))
	}
}

// question parses "? <real>": the operand is a real literal token
// consumed directly, not a parsed subexpression (§4.2).
func (c *Compiler) question() {
	c.consume(token.REAL, "Expect probability literal after '?'.")
	p, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid probability literal '" + c.previous.Lexeme + "'.")
		return
	}
	if p <= 0 || p >= 1 {
		c.error("Probability must lie strictly between 0 and 1.")
		return
	}
	c.emitConstant(value.Real(p))
	c.emitByte(byte(chunk.OP_QUESTION))
}

// pairLiteral parses "[a, b]", emitting OP_MKPAIR.
func (c *Compiler) pairLiteral() {
	c.expression()
	c.consume(token.COMMA, "Expect ',' between pair elements.")
	c.expression()
	c.consume(token.RBRACK, "Expect ']' after pair.")
	c.emitByte(byte(chunk.OP_MKPAIR))
}

// collectionLiteral parses "{e1, e2, ...}". OP_MKCOLLECTION is emitted
// before any element so the empty collection sits under the elements
// as they're pushed; OP_ADD2CLLCTN then folds them in (§4.2).
func (c *Compiler) collectionLiteral() {
	c.emitByte(byte(chunk.OP_MKCOLLECTION))
	count := 0
	if !c.check(token.RBRACE) {
		for {
			c.expression()
			count++
			if count > 255 {
				c.error("Too many elements in collection literal.")
				return
			}
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RBRACE, "Expect '}' after collection elements.")
	c.emitBytes(byte(chunk.OP_ADD2CLLCTN), byte(count))
}

// pairSelector parses "e %1" / "e %2", a postfix pair-component selector
// binding at AGGREGATE. The original source's pairSelector instead
// consumed %1/%2 as a prefix operator over the expression that
// *follows* it (its own author flagged that shape with a "TODO: I don't
// think this is correct"); this implementation takes the left operand
// already on the stack and needs no further parse, so that
// "[1+2, 3*4] %1" selects the pair's first component (a worked scenario
// in vm_test.go) — see DESIGN.md for the resolution.
func (c *Compiler) pairSelector() {
	kw := c.previous.Kind
	if kw == token.FIRST {
		c.emitByte(byte(chunk.OP_FIRST))
	} else {
		c.emitByte(byte(chunk.OP_SECOND))
	}
}

// identifier loads a global, or — for "name := expr" — compiles an
// assignment: define the global, then
// immediately re-load it so the assignment remains usable as a
// value-producing (sub)expression despite OP_DEFINE_GLOBAL popping its
// operand.
func (c *Compiler) identifier() {
	nameConst := c.identifierConstant(c.previous.Lexeme)
	if c.match(token.ASSIGN) {
		c.expression()
		c.emitBytes(byte(chunk.OP_DEFINE_GLOBAL), nameConst)
		c.emitBytes(byte(chunk.OP_GET_GLOBAL), nameConst)
		return
	}
	c.emitBytes(byte(chunk.OP_GET_GLOBAL), nameConst)
}

// --- infix rule ---------------------------------------------------------

var binaryOps = map[token.Kind]chunk.OpCode{
	token.PLUS:      chunk.OP_ADD,
	token.MINUS:     chunk.OP_SUBTRACT,
	token.TIMES:     chunk.OP_MULTIPLY,
	token.DIVIDE:    chunk.OP_DIVIDE,
	token.MOD:       chunk.OP_MOD,
	token.UNION:     chunk.OP_UNION,
	token.AND:       chunk.OP_AND,
	token.SET_MINUS: chunk.OP_SETMINUS,
	token.DROP:      chunk.OP_DROP,
	token.KEEP:      chunk.OP_KEEP,
	token.PICK:      chunk.OP_PICK,
	token.LARGEST:   chunk.OP_LARGEST,
	token.LEAST:     chunk.OP_LEAST,
	token.DOT_DOT:   chunk.OP_RANGE,
	token.HCONC:     chunk.OP_HCONC,
	token.VCONCL:    chunk.OP_VCONCL,
	token.VCONCR:    chunk.OP_VCONCR,
	token.VCONCC:    chunk.OP_VCONCC,
	token.EQ:        chunk.OP_EQ,
	token.NEQ:       chunk.OP_NEQ,
	token.LT:        chunk.OP_LT,
	token.GT:        chunk.OP_GT,
	token.LE:        chunk.OP_LE,
	token.GE:        chunk.OP_GE,
}

// binary parses the right operand one rung tighter than the operator's
// own precedence, making every binary operator left-associative (§4.2).
func (c *Compiler) binary() {
	opKind := c.previous.Kind
	rule := c.rules[opKind]
	c.parsePrecedence(rule.precedence + 1)
	c.emitByte(byte(binaryOps[opKind]))
}
