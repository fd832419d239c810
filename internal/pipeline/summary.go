package pipeline

import (
	"fmt"
	"io"
	"sort"
	"time"

	"macrofact/internal/frame"
)

// NullRate is the fraction of missing cells in one output column.
type NullRate struct {
	Column string
	Rate   float64
}

// Summary is the run diagnostic emitted for every build: row count,
// duplicate-key count and the columns with the highest null rates.
type Summary struct {
	Table         string
	Rows          int
	DuplicateKeys int
	LatestQuarter time.Time
	NullRates     []NullRate
}

// Summarize computes the diagnostics for a finished fact table.
func Summarize(f *frame.Frame, keys []string, topN int) (*Summary, error) {
	dups, err := frame.CountDuplicates(f, keys)
	if err != nil {
		return nil, err
	}

	s := &Summary{Table: f.Name(), Rows: f.Len(), DuplicateKeys: dups}

	if f.HasColumn(colQuarter) {
		quarters, err := f.Times(colQuarter)
		if err == nil {
			for _, q := range quarters {
				if q.After(s.LatestQuarter) {
					s.LatestQuarter = q
				}
			}
		}
	}

	rates := make([]NullRate, 0, len(f.Columns()))
	for _, column := range f.Columns() {
		missing := 0
		for i := 0; i < f.Len(); i++ {
			if f.CellMissing(column, i) {
				missing++
			}
		}
		rate := 0.0
		if f.Len() > 0 {
			rate = float64(missing) / float64(f.Len())
		}
		rates = append(rates, NullRate{Column: column, Rate: rate})
	}
	sort.SliceStable(rates, func(i, j int) bool { return rates[i].Rate > rates[j].Rate })
	if len(rates) > topN {
		rates = rates[:topN]
	}
	s.NullRates = rates
	return s, nil
}

// Print writes the summary in the one-line-per-fact format the CLI emits
// after each run.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "%s: rows=%d duplicate_keys=%d", s.Table, s.Rows, s.DuplicateKeys)
	if !s.LatestQuarter.IsZero() {
		fmt.Fprintf(w, " latest_quarter=%s", s.LatestQuarter.Format("2006-01-02"))
	}
	fmt.Fprintln(w)
	for _, nr := range s.NullRates {
		fmt.Fprintf(w, "  null_rate %-40s %.3f\n", nr.Column, nr.Rate)
	}
}
