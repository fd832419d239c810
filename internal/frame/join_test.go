package frame

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeftJoinFillsUnmatchedWithMissing(t *testing.T) {
	left := New("left")
	require.NoError(t, left.AddStrings("Province", []string{"Ontario", "Alberta"}))
	require.NoError(t, left.AddNumbers("income", []float64{1, 2}))

	right := New("right")
	require.NoError(t, right.AddStrings("Province", []string{"Ontario"}))
	require.NoError(t, right.AddNumbers("cpi", []float64{150}))

	out, err := LeftJoin(left, right, []string{"Province"})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	cpi, err := out.Numbers("cpi")
	require.NoError(t, err)
	assert.Equal(t, 150.0, cpi[0])
	assert.True(t, math.IsNaN(cpi[1]))
}

func TestLeftJoinEmitsDuplicateMatches(t *testing.T) {
	left := New("left")
	require.NoError(t, left.AddStrings("Province", []string{"Ontario"}))
	require.NoError(t, left.AddNumbers("income", []float64{1}))

	right := New("right")
	require.NoError(t, right.AddStrings("Province", []string{"Ontario", "Ontario"}))
	require.NoError(t, right.AddNumbers("cpi", []float64{150, 151}))

	out, err := LeftJoin(left, right, []string{"Province"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len(), "multiple matches surface as rows, never averaged")

	err = AssertUniqueKey(out, []string{"Province"})
	var dke *DuplicateKeyError
	require.ErrorAs(t, err, &dke)
	assert.Equal(t, []string{"Province"}, dke.Keys)
	assert.Equal(t, 1, dke.Duplicates)
}

func TestLeftJoinColumnCollision(t *testing.T) {
	left := New("left")
	require.NoError(t, left.AddStrings("Province", []string{"Ontario"}))
	require.NoError(t, left.AddNumbers("v", []float64{1}))

	right := New("right")
	require.NoError(t, right.AddStrings("Province", []string{"Ontario"}))
	require.NoError(t, right.AddNumbers("v", []float64{2}))

	_, err := LeftJoin(left, right, []string{"Province"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"v"`)
}

func TestLeftJoinBroadcastsQuarterOnlyRight(t *testing.T) {
	// Province x Quarter fact joined with a Quarter-only rate table: the
	// rate repeats for every province in the quarter.
	q1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	left := New("fact")
	require.NoError(t, left.AddStrings("Province", []string{"Alberta", "Ontario"}))
	require.NoError(t, left.AddTimes("Quarter", []time.Time{q1, q1}))

	right := New("rates")
	require.NoError(t, right.AddTimes("Quarter", []time.Time{q1}))
	require.NoError(t, right.AddNumbers("prime", []float64{6.5}))

	out, err := LeftJoin(left, right, []string{"Quarter"})
	require.NoError(t, err)
	prime, err := out.Numbers("prime")
	require.NoError(t, err)
	assert.Equal(t, []float64{6.5, 6.5}, prime)
}

func TestSelfJoinOnUniqueKeyIsIdentity(t *testing.T) {
	f := New("t")
	require.NoError(t, f.AddStrings("Province", []string{"Alberta", "Ontario"}))
	require.NoError(t, f.AddNumbers("v", []float64{1, 2}))

	keyOnly, err := f.Select("Province")
	require.NoError(t, err)
	out, err := LeftJoin(f, keyOnly, []string{"Province"})
	require.NoError(t, err)

	assert.Equal(t, f.Len(), out.Len())
	assert.Equal(t, f.Columns(), out.Columns())
}

func TestOuterJoinKeepsUnmatchedRight(t *testing.T) {
	left := New("left")
	require.NoError(t, left.AddStrings("GEO", []string{"Ontario"}))
	require.NoError(t, left.AddNumbers("income", []float64{1}))

	right := New("right")
	require.NoError(t, right.AddStrings("GEO", []string{"Ontario", "Quebec"}))
	require.NoError(t, right.AddNumbers("interest", []float64{10, 20}))

	out, err := OuterJoin(left, right, []string{"GEO"})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	geos, err := out.Strings("GEO")
	require.NoError(t, err)
	income, err := out.Numbers("income")
	require.NoError(t, err)
	interest, err := out.Numbers("interest")
	require.NoError(t, err)

	assert.Equal(t, []string{"Ontario", "Quebec"}, geos)
	assert.True(t, math.IsNaN(income[1]), "left payload missing on right-only rows")
	assert.Equal(t, 20.0, interest[1])
}

func TestCountDuplicates(t *testing.T) {
	f := New("t")
	require.NoError(t, f.AddStrings("Province", []string{"Alberta", "Alberta", "Alberta", "Ontario"}))

	dups, err := CountDuplicates(f, []string{"Province"})
	require.NoError(t, err)
	assert.Equal(t, 2, dups)
	require.NoError(t, AssertUniqueKey(New("empty"), nil))
}
