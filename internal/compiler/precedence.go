package compiler

// Precedence is a binding power in the static precedence table (§4.2).
// The ladder is fixed by the language, loosest to tightest; SEMICOLON and
// ELSE have no infix rule bound to them (there are no statements or
// conditionals in this language, §1 Non-goals) but keep their rungs so the
// table reads as the complete ladder the language was specified against.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecSemicolon
	PrecElse
	PrecConcat // ||, <|, |>, <>
	PrecRange  // ..
	PrecDrop   // --, drop, keep, pick, largest, least
	PrecUnion  // U, @, &
	PrecTerm   // +, -
	PrecFactor // *, /, mod
	PrecUnaryMinus
	PrecAggregate // %1, %2 (the prefix aggregators parse their operand at PrecUnaryMinus)
	PrecRelational
	PrecMultiDie // infix D/d, Z/z
	PrecDie      // prefix D/d, Z/z
	PrecPrimary
)
