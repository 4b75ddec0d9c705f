package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"troll/internal/compiler"
)

// run compiles src and executes it on a fresh, seeded VM, returning the
// printed OP_RETURN result line with its trailing newline trimmed.
func run(t *testing.T, seed int64, src string) string {
	t.Helper()
	chk, err := compiler.Compile(src)
	require.NoError(t, err, src)

	var out bytes.Buffer
	machine := New(seed)
	machine.Stdout = &out

	err = machine.Interpret(chk)
	require.NoError(t, err, src)
	return strings.TrimRight(out.String(), "\n")
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	chk, err := compiler.Compile(src)
	require.NoError(t, err, src)

	machine := New(0)
	machine.Stdout = &bytes.Buffer{}
	return machine.Interpret(chk)
}

// TestWorkedScenarios exercises §8's concrete end-to-end examples that do
// not depend on a specific RNG draw sequence.
func TestWorkedScenarios(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"operator precedence", "3 + 4 * 2", "11"},
		{"grouping overrides precedence", "(3 + 4) * 2", "14"},
		{"multiset union prints ascending", "{1,2,3} U {3,4}", "1, 2, 3, 3, 4"},
		{"sum of a collection", "sum {1,2,3,4}", "10"},
		{"pair first selector", "[1+2, 3*4] %1", "3"},
		{"pair second selector", "[1+2, 3*4] %2", "12"},
		{"multiset difference removes one occurrence", "{5,1,5,3} -- {5}", "1, 3, 5"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, run(t, 0, c.src))
		})
	}
}

func TestDieBounds(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		n := parseInt(t, run(t, seed, "D 6"))
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 6)
	}
}

func TestZeroDieBounds(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		out := run(t, seed, "z 6")
		n := parseInt(t, out)
		assert.GreaterOrEqual(t, n, 0)
		assert.LessOrEqual(t, n, 6)
	}
}

func TestMultiDieReturnsExactCount(t *testing.T) {
	out := run(t, 1, "3 D 6")
	parts := strings.Split(out, ", ")
	require.Len(t, parts, 3)
	for _, p := range parts {
		n := parseInt(t, p)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 6)
	}
}

func TestRangeOperator(t *testing.T) {
	assert.Equal(t, "", run(t, 0, "5 .. 5"))
	assert.Equal(t, "", run(t, 0, "7 .. 2"))
	assert.Equal(t, "1, 2, 3, 4", run(t, 0, "1 .. 5"))
}

func TestPairRoundTrip(t *testing.T) {
	assert.Equal(t, "7", run(t, 0, "[7, {1,2}] %1"))
	assert.Equal(t, "1, 2", run(t, 0, "[7, {1,2}] %2"))
}

func TestUnionPreservesMultiplicities(t *testing.T) {
	assert.Equal(t, "1, 1, 2, 3, 3", run(t, 0, "{1,2,3} U {1,3}"))
}

func TestSetMinusLeavesNonMatchingUntouched(t *testing.T) {
	assert.Equal(t, "2", run(t, 0, "{1,2} -- {1}"))
}

func TestDropKeepUseMembership(t *testing.T) {
	assert.Equal(t, "2", run(t, 0, "{1,2,3} drop {1,3}"))
	assert.Equal(t, "1, 3", run(t, 0, "{1,2,3} keep {1,3}"))
}

func TestAndShortCircuitsOnEmpty(t *testing.T) {
	assert.Equal(t, "1, 2", run(t, 0, "{1,2} & {9}"))
	assert.Equal(t, "", run(t, 0, "{1,2} & {}"))
}

func TestRelationalProducesBooleanAsCollection(t *testing.T) {
	assert.Equal(t, "1", run(t, 0, "3 = 3"))
	assert.Equal(t, "", run(t, 0, "3 = 4"))
	assert.Equal(t, "1", run(t, 0, "3 < 4"))
	assert.Equal(t, "", run(t, 0, "3 > 4"))
}

func TestAggregatesOnCollection(t *testing.T) {
	assert.Equal(t, "4", run(t, 0, "max {1,4,2}"))
	assert.Equal(t, "1", run(t, 0, "min {1,4,2}"))
	assert.Equal(t, "3", run(t, 0, "count {1,4,2}"))
	assert.Equal(t, "2", run(t, 0, "median {1,4,2}"))
	assert.Equal(t, "1, 2", run(t, 0, "different {1,1,2,2}"))
}

func TestSgn(t *testing.T) {
	assert.Equal(t, "1", run(t, 0, "sgn 5"))
	assert.Equal(t, "-1", run(t, 0, "sgn -5"))
	assert.Equal(t, "0", run(t, 0, "sgn 0"))
}

func TestNotOnCollection(t *testing.T) {
	assert.Equal(t, "1", run(t, 0, "! {}"))
	assert.Equal(t, "", run(t, 0, "! {1}"))
}

func TestLargestLeast(t *testing.T) {
	assert.Equal(t, "4, 5", run(t, 0, "2 largest {1,5,4,2}"))
	assert.Equal(t, "1, 2", run(t, 0, "2 least {1,5,4,2}"))
}

func TestMaximalMinimal(t *testing.T) {
	assert.Equal(t, "5, 5", run(t, 0, "maximal {1,5,2,5}"))
	assert.Equal(t, "1", run(t, 0, "minimal {1,5,2,5}"))
}

func TestStringConcatenation(t *testing.T) {
	assert.Equal(t, "ab", run(t, 0, `"a" || "b"`))
	assert.Equal(t, "ab", run(t, 0, `"a" <| "b"`))
	assert.Equal(t, "ab", run(t, 0, `"a" |> "b"`))
	assert.Equal(t, "ab", run(t, 0, `"a" <> "b"`))
}

func TestGlobalsDefineAndGet(t *testing.T) {
	assert.Equal(t, "5", run(t, 0, "x := 5"))
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	err := runErr(t, "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Undefined variable")
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	err := runErr(t, "1 / 0")
	require.Error(t, err)
}

func TestNonPositiveDieIsRuntimeError(t *testing.T) {
	err := runErr(t, "D 0")
	require.Error(t, err)
}

func TestTypeMismatchIsRuntimeError(t *testing.T) {
	err := runErr(t, `1 + "a"`)
	require.Error(t, err)
}

func TestStackEmptyAfterSuccessfulReturn(t *testing.T) {
	chk, err := compiler.Compile("1 + 2")
	require.NoError(t, err)
	var out bytes.Buffer
	m := New(0)
	m.Stdout = &out
	require.NoError(t, m.Interpret(chk))
	assert.Zero(t, m.sp, "§8: a successful run must leave the operand stack empty")
}

func TestPickSamplesWithoutReplacement(t *testing.T) {
	out := run(t, 0, "2 pick {1,2,3,4,5}")
	parts := strings.Split(out, ", ")
	require.Len(t, parts, 2)
	assert.NotEqual(t, parts[0], parts[1], "pick without replacement must not repeat an index")
}

func TestPickClampsToCollectionSize(t *testing.T) {
	out := run(t, 0, "5 pick {1,2}")
	parts := strings.Split(out, ", ")
	require.Len(t, parts, 2)
}

func parseInt(t *testing.T, s string) int {
	t.Helper()
	var n int
	var neg bool
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	for _, r := range s {
		require.True(t, r >= '0' && r <= '9', "not a digit: %q in %q", r, s)
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}
