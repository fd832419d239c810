package pipeline

import (
	"errors"
	"strings"
	"time"

	"macrofact/internal/frame"
	"macrofact/internal/period"
	"macrofact/internal/scale"
)

// Standard StatCan full-table columns plus the derived grain columns.
const (
	colRefDate  = "REF_DATE"
	colGeo      = "GEO"
	colValue    = "VALUE"
	colUOM      = "UOM"
	colScalar   = "SCALAR_FACTOR"
	colProvince = "Province"
	colQuarter  = "Quarter"
	colMonth    = "Month"
	colDate     = "date"
)

var provinceQuarterKeys = []string{colProvince, colQuarter}

// withQuarter appends a Quarter column bucketized from the reference
// column. viaMonth follows the monthly-table path (calendar date truncated
// to month, then quarter); otherwise native YYYYQn tokens are accepted
// too. Rows whose period cannot be parsed are dropped, never defaulted.
func withQuarter(f *frame.Frame, refColumn string, viaMonth bool) (*frame.Frame, error) {
	raws, err := f.Strings(refColumn)
	if err != nil {
		return nil, err
	}

	quarters := make([]time.Time, len(raws))
	keep := make([]bool, len(raws))
	for i, raw := range raws {
		if viaMonth {
			if m, ok := period.MonthStart(raw); ok {
				quarters[i] = period.OfDate(m)
				keep[i] = true
			}
			continue
		}
		if q, ok := period.QuarterStart(raw); ok {
			quarters[i] = q
			keep[i] = true
		}
	}

	out := f.Filter(func(i int) bool { return keep[i] })
	kept := make([]time.Time, 0, out.Len())
	for i := range raws {
		if keep[i] {
			kept = append(kept, quarters[i])
		}
	}
	if err := out.AddTimes(colQuarter, kept); err != nil {
		return nil, err
	}
	return out, nil
}

// withMonth appends a Month column from the reference column, dropping
// unparseable rows.
func withMonth(f *frame.Frame, refColumn string) (*frame.Frame, error) {
	raws, err := f.Strings(refColumn)
	if err != nil {
		return nil, err
	}

	months := make([]time.Time, len(raws))
	keep := make([]bool, len(raws))
	for i, raw := range raws {
		if m, ok := period.MonthStart(raw); ok {
			months[i] = m
			keep[i] = true
		}
	}

	out := f.Filter(func(i int) bool { return keep[i] })
	kept := make([]time.Time, 0, out.Len())
	for i := range raws {
		if keep[i] {
			kept = append(kept, months[i])
		}
	}
	if err := out.AddTimes(colMonth, kept); err != nil {
		return nil, err
	}
	return out, nil
}

// provinceSeries drops the national aggregate and renames GEO to Province.
func provinceSeries(f *frame.Frame) (*frame.Frame, error) {
	out, err := f.FilterNotEq(colGeo, "Canada")
	if err != nil {
		return nil, err
	}
	if err := out.Rename(colGeo, colProvince); err != nil {
		return nil, err
	}
	return out, nil
}

// filterScalar keeps rows whose scalar factor matches case-insensitively.
func filterScalar(f *frame.Frame, factor string) (*frame.Frame, error) {
	scalars, err := f.Strings(colScalar)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(factor))
	return f.Filter(func(i int) bool {
		return strings.ToLower(strings.TrimSpace(scalars[i])) == want
	}), nil
}

// normalizeValue appends base-unit and million-unit columns derived from
// VALUE and the per-row scalar factor.
func normalizeValue(f *frame.Frame, baseColumn, millionColumn string) (*frame.Frame, error) {
	values, err := f.Numbers(colValue)
	if err != nil {
		return nil, err
	}
	scalars, err := f.Strings(colScalar)
	if err != nil {
		return nil, err
	}

	base := make([]float64, len(values))
	millions := make([]float64, len(values))
	for i := range values {
		base[i] = scale.ToBase(values[i], scalars[i])
		millions[i] = scale.Millions(base[i])
	}
	if err := f.AddNumbers(baseColumn, base); err != nil {
		return nil, err
	}
	if err := f.AddNumbers(millionColumn, millions); err != nil {
		return nil, err
	}
	return f, nil
}

// quarterEndRates fetches the two policy/posted rate series, collapses
// each to its quarter-end value and outer-joins them on Quarter. Rate
// series have no province dimension; they later broadcast across
// provinces through a Quarter-only join.
func quarterEndRates(f *frame.Frame, seriesID, outColumn string) (*frame.Frame, error) {
	dates, err := f.Times(colDate)
	if err != nil {
		return nil, err
	}
	quarters := make([]time.Time, len(dates))
	for i, d := range dates {
		quarters[i] = period.OfDate(d)
	}
	if err := f.AddTimes(colQuarter, quarters); err != nil {
		return nil, err
	}
	// The series frame arrives date-sorted, which Last relies on.
	return frame.GroupReduce(f, []string{colQuarter}, seriesID, outColumn, frame.Last)
}

func fetchQuarterEndRates(f1, f2 *frame.Frame, series1, series2 string) (*frame.Frame, error) {
	primeQ, err := quarterEndRates(f1, series1, "PrimeRate_QEnd_Pct")
	if err != nil {
		return nil, err
	}
	mortQ, err := quarterEndRates(f2, series2, "Mortgage5YPosted_QEnd_Pct")
	if err != nil {
		return nil, err
	}
	joined, err := frame.OuterJoin(primeQ, mortQ, []string{colQuarter})
	if err != nil {
		return nil, err
	}
	return joined.SortBy(colQuarter)
}

// resolveOptionalColumn resolves a column by substring keywords, treating
// absence as "not applicable" rather than an error.
func resolveOptionalColumn(f *frame.Frame, keywords ...string) (string, bool) {
	column, err := frame.ResolveColumn(f, nil, keywords...)
	if err != nil {
		return "", false
	}
	return column, true
}

// labelAbsent reports whether err is only a missing-label condition, used
// for concepts the source may legitimately not publish.
func labelAbsent(err error) bool {
	var lnf *frame.LabelNotFoundError
	return errors.As(err, &lnf)
}

// derive appends a computed column; fn sees the row index.
func derive(f *frame.Frame, outColumn string, fn func(i int) float64) error {
	values := make([]float64, f.Len())
	for i := range values {
		values[i] = fn(i)
	}
	return f.AddNumbers(outColumn, values)
}
