package frame

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reducer selects how grouped values collapse to one number per key.
type Reducer int

const (
	// Mean smooths series sampled finer than the quarter (CPI,
	// unemployment rate). NaN cells are excluded from the mean.
	Mean Reducer = iota
	// Sum totals monetary aggregates reported at sub-quarter or
	// sub-provincial detail.
	Sum
	// Last takes the chronologically latest non-missing observation in
	// the group. Rows must be sorted by their original date first; used
	// for point-in-time rates.
	Last
)

func (r Reducer) String() string {
	switch r {
	case Mean:
		return "mean"
	case Sum:
		return "sum"
	case Last:
		return "last"
	default:
		return "unknown"
	}
}

// GroupReduce groups f by the key columns and reduces the value column,
// producing one row per distinct key tuple sorted by key. The output key
// tuple is unique by construction.
func GroupReduce(f *Frame, keys []string, valueColumn, outColumn string, r Reducer) (*Frame, error) {
	keyCols, err := f.keyColumns(keys)
	if err != nil {
		return nil, err
	}
	nums, err := f.Numbers(valueColumn)
	if err != nil {
		return nil, err
	}

	type group struct {
		firstRow int
		values   []float64
	}
	order := make([]string, 0)
	groups := make(map[string]*group)
	for i := 0; i < f.Len(); i++ {
		key := f.rowKey(keyCols, i)
		g, ok := groups[key]
		if !ok {
			g = &group{firstRow: i}
			groups[key] = g
			order = append(order, key)
		}
		if !math.IsNaN(nums[i]) {
			g.values = append(g.values, nums[i])
		}
	}

	firstRows := make([]int, 0, len(order))
	reduced := make([]float64, 0, len(order))
	for _, key := range order {
		g := groups[key]
		firstRows = append(firstRows, g.firstRow)
		reduced = append(reduced, reduce(g.values, r))
	}

	out := New(f.name)
	for _, c := range keyCols {
		if err := out.addColumn(c.take(firstRows)); err != nil {
			return nil, err
		}
	}
	if err := out.AddNumbers(outColumn, reduced); err != nil {
		return nil, err
	}
	return out.SortBy(keys...)
}

func reduce(values []float64, r Reducer) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	switch r {
	case Mean:
		return stat.Mean(values, nil)
	case Sum:
		return floats.Sum(values)
	case Last:
		return values[len(values)-1]
	default:
		return math.NaN()
	}
}

// YearOverYear appends a percentage-change column comparing each row's
// value to the same entity's value exactly four quarters earlier. The
// result is NaN whenever either endpoint is missing or the base is zero;
// gaps are never interpolated.
func YearOverYear(f *Frame, entityKeys []string, quarterColumn, valueColumn, outColumn string) (*Frame, error) {
	entityCols, err := f.keyColumns(entityKeys)
	if err != nil {
		return nil, err
	}
	quarters, err := f.Times(quarterColumn)
	if err != nil {
		return nil, err
	}
	nums, err := f.Numbers(valueColumn)
	if err != nil {
		return nil, err
	}

	at := make(map[string]float64, f.Len())
	for i := 0; i < f.Len(); i++ {
		at[yoyKey(f, entityCols, i, quarters[i])] = nums[i]
	}

	yoy := make([]float64, f.Len())
	for i := 0; i < f.Len(); i++ {
		cur := nums[i]
		prev, ok := at[yoyKey(f, entityCols, i, quarters[i].AddDate(-1, 0, 0))]
		if !ok || math.IsNaN(cur) || math.IsNaN(prev) || prev == 0 {
			yoy[i] = math.NaN()
			continue
		}
		yoy[i] = (cur - prev) / prev * 100
	}

	out := f.takeRows(allRows(f.Len()))
	if err := out.AddNumbers(outColumn, yoy); err != nil {
		return nil, err
	}
	return out, nil
}

func yoyKey(f *Frame, entityCols []*Column, row int, quarter time.Time) string {
	key := f.rowKey(entityCols, row)
	return fmt.Sprintf("%s\x1f%s", key, quarter.Format("2006-01-02"))
}
