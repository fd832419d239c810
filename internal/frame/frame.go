// Package frame holds the in-memory tabular layer the pipelines are built
// on: a small column-oriented table with the filtering, grouping and join
// operations the fact builders need. All operations return new frames; no
// frame mutates another's columns.
package frame

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Kind int

const (
	String Kind = iota
	Number
	Time
)

// Column is a single named column. Exactly one of the backing slices is
// populated, selected by Kind. Missing values are NaN for Number columns,
// the zero time for Time columns and "" for String columns.
type Column struct {
	name  string
	kind  Kind
	strs  []string
	nums  []float64
	times []time.Time
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }

func (c *Column) len() int {
	switch c.kind {
	case Number:
		return len(c.nums)
	case Time:
		return len(c.times)
	default:
		return len(c.strs)
	}
}

// IsMissing reports whether the value at row i is the column's null.
func (c *Column) IsMissing(i int) bool {
	switch c.kind {
	case Number:
		return math.IsNaN(c.nums[i])
	case Time:
		return c.times[i].IsZero()
	default:
		return c.strs[i] == ""
	}
}

// cellKey renders the value at row i as a grouping/join key fragment.
func (c *Column) cellKey(i int) string {
	switch c.kind {
	case Number:
		return strconv.FormatFloat(c.nums[i], 'g', -1, 64)
	case Time:
		return c.times[i].Format("2006-01-02")
	default:
		return c.strs[i]
	}
}

func (c *Column) take(rows []int) *Column {
	out := &Column{name: c.name, kind: c.kind}
	switch c.kind {
	case Number:
		out.nums = make([]float64, 0, len(rows))
		for _, i := range rows {
			out.nums = append(out.nums, c.nums[i])
		}
	case Time:
		out.times = make([]time.Time, 0, len(rows))
		for _, i := range rows {
			out.times = append(out.times, c.times[i])
		}
	default:
		out.strs = make([]string, 0, len(rows))
		for _, i := range rows {
			out.strs = append(out.strs, c.strs[i])
		}
	}
	return out
}

func (c *Column) appendMissing() {
	switch c.kind {
	case Number:
		c.nums = append(c.nums, math.NaN())
	case Time:
		c.times = append(c.times, time.Time{})
	default:
		c.strs = append(c.strs, "")
	}
}

func (c *Column) appendFrom(src *Column, i int) {
	switch c.kind {
	case Number:
		c.nums = append(c.nums, src.nums[i])
	case Time:
		c.times = append(c.times, src.times[i])
	default:
		c.strs = append(c.strs, src.strs[i])
	}
}

func emptyLike(c *Column) *Column {
	return &Column{name: c.name, kind: c.kind}
}

// Frame is an ordered collection of equal-length columns with a table name
// used in diagnostics.
type Frame struct {
	name  string
	cols  []*Column
	index map[string]int
	rows  int
}

func New(name string) *Frame {
	return &Frame{name: name, index: make(map[string]int)}
}

func (f *Frame) Name() string { return f.name }
func (f *Frame) Len() int     { return f.rows }

// SetName renames the table for diagnostics.
func (f *Frame) SetName(name string) { f.name = name }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, 0, len(f.cols))
	for _, c := range f.cols {
		names = append(names, c.name)
	}
	return names
}

func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

func (f *Frame) column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

func (f *Frame) addColumn(c *Column) error {
	if _, exists := f.index[c.name]; exists {
		return fmt.Errorf("%s: column %q already present", f.name, c.name)
	}
	if len(f.cols) == 0 {
		f.rows = c.len()
	} else if c.len() != f.rows {
		return fmt.Errorf("%s: column %q has %d rows, frame has %d", f.name, c.name, c.len(), f.rows)
	}
	f.index[c.name] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

func (f *Frame) AddStrings(name string, values []string) error {
	return f.addColumn(&Column{name: name, kind: String, strs: values})
}

func (f *Frame) AddNumbers(name string, values []float64) error {
	return f.addColumn(&Column{name: name, kind: Number, nums: values})
}

func (f *Frame) AddTimes(name string, values []time.Time) error {
	return f.addColumn(&Column{name: name, kind: Time, times: values})
}

// Strings returns the backing slice of a String column. Callers must not
// modify the result.
func (f *Frame) Strings(name string) ([]string, error) {
	c, ok := f.column(name)
	if !ok {
		return nil, &ColumnNotFoundError{Table: f.name, Candidates: []string{name}, FoundColumns: f.Columns()}
	}
	if c.kind != String {
		return nil, fmt.Errorf("%s: column %q is not a string column", f.name, name)
	}
	return c.strs, nil
}

func (f *Frame) Numbers(name string) ([]float64, error) {
	c, ok := f.column(name)
	if !ok {
		return nil, &ColumnNotFoundError{Table: f.name, Candidates: []string{name}, FoundColumns: f.Columns()}
	}
	if c.kind != Number {
		return nil, fmt.Errorf("%s: column %q is not a number column", f.name, name)
	}
	return c.nums, nil
}

func (f *Frame) Times(name string) ([]time.Time, error) {
	c, ok := f.column(name)
	if !ok {
		return nil, &ColumnNotFoundError{Table: f.name, Candidates: []string{name}, FoundColumns: f.Columns()}
	}
	if c.kind != Time {
		return nil, fmt.Errorf("%s: column %q is not a time column", f.name, name)
	}
	return c.times, nil
}

// CellMissing reports whether the cell at (column, row) holds the
// column's null value.
func (f *Frame) CellMissing(column string, i int) bool {
	c, ok := f.column(column)
	if !ok {
		return true
	}
	return c.IsMissing(i)
}

// Rename renames a column in place. Renaming a missing column is an error.
func (f *Frame) Rename(from, to string) error {
	i, ok := f.index[from]
	if !ok {
		return &ColumnNotFoundError{Table: f.name, Candidates: []string{from}, FoundColumns: f.Columns()}
	}
	if _, exists := f.index[to]; exists && to != from {
		return fmt.Errorf("%s: cannot rename %q to %q: target exists", f.name, from, to)
	}
	delete(f.index, from)
	f.cols[i].name = to
	f.index[to] = i
	return nil
}

// Select returns a new frame holding copies of the named columns, in the
// given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := New(f.name)
	all := allRows(f.rows)
	for _, name := range names {
		c, ok := f.column(name)
		if !ok {
			return nil, &ColumnNotFoundError{Table: f.name, Candidates: []string{name}, FoundColumns: f.Columns()}
		}
		if err := out.addColumn(c.take(all)); err != nil {
			return nil, err
		}
	}
	out.rows = f.rows
	return out, nil
}

// Filter returns a new frame holding the rows for which keep returns true.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	rows := make([]int, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return f.takeRows(rows)
}

func (f *Frame) takeRows(rows []int) *Frame {
	out := New(f.name)
	for _, c := range f.cols {
		// addColumn cannot fail here: names are unique, lengths equal.
		_ = out.addColumn(c.take(rows))
	}
	out.rows = len(rows)
	return out
}

// FilterEq keeps rows whose string column equals value (case-sensitive,
// matching the source tables' exact labels).
func (f *Frame) FilterEq(column, value string) (*Frame, error) {
	strs, err := f.Strings(column)
	if err != nil {
		return nil, err
	}
	return f.Filter(func(i int) bool { return strs[i] == value }), nil
}

// FilterNotEq keeps rows whose string column differs from value.
func (f *Frame) FilterNotEq(column, value string) (*Frame, error) {
	strs, err := f.Strings(column)
	if err != nil {
		return nil, err
	}
	return f.Filter(func(i int) bool { return strs[i] != value }), nil
}

// Distinct returns the distinct non-empty values of a string column in
// order of first appearance.
func (f *Frame) Distinct(column string) ([]string, error) {
	strs, err := f.Strings(column)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, v := range strs {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// CoerceNumber converts a string column to a number column in place.
// Values that do not parse as plain floats become NaN; individual bad
// cells never abort a run.
func (f *Frame) CoerceNumber(column string) error {
	i, ok := f.index[column]
	if !ok {
		return &ColumnNotFoundError{Table: f.name, Candidates: []string{column}, FoundColumns: f.Columns()}
	}
	c := f.cols[i]
	if c.kind == Number {
		return nil
	}
	if c.kind != String {
		return fmt.Errorf("%s: column %q is not coercible", f.name, column)
	}
	nums := make([]float64, len(c.strs))
	for j, raw := range c.strs {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			nums[j] = math.NaN()
			continue
		}
		nums[j] = v
	}
	f.cols[i] = &Column{name: column, kind: Number, nums: nums}
	return nil
}

// SortBy stably sorts the frame by the given columns, ascending. Missing
// values sort first.
func (f *Frame) SortBy(columns ...string) (*Frame, error) {
	cols := make([]*Column, 0, len(columns))
	for _, name := range columns {
		c, ok := f.column(name)
		if !ok {
			return nil, &ColumnNotFoundError{Table: f.name, Candidates: []string{name}, FoundColumns: f.Columns()}
		}
		cols = append(cols, c)
	}
	rows := allRows(f.rows)
	sort.SliceStable(rows, func(a, b int) bool {
		ia, ib := rows[a], rows[b]
		for _, c := range cols {
			if cmp := compareCell(c, ia, ib); cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	return f.takeRows(rows), nil
}

func compareCell(c *Column, i, j int) int {
	switch c.kind {
	case Number:
		a, b := c.nums[i], c.nums[j]
		switch {
		case math.IsNaN(a) && math.IsNaN(b):
			return 0
		case math.IsNaN(a):
			return -1
		case math.IsNaN(b):
			return 1
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	case Time:
		a, b := c.times[i], c.times[j]
		switch {
		case a.Before(b):
			return -1
		case a.After(b):
			return 1
		default:
			return 0
		}
	default:
		return strings.Compare(c.strs[i], c.strs[j])
	}
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func (f *Frame) rowKey(cols []*Column, i int) string {
	var b strings.Builder
	for k, c := range cols {
		if k > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(c.cellKey(i))
	}
	return b.String()
}

func (f *Frame) keyColumns(keys []string) ([]*Column, error) {
	cols := make([]*Column, 0, len(keys))
	for _, name := range keys {
		c, ok := f.column(name)
		if !ok {
			return nil, &ColumnNotFoundError{Table: f.name, Candidates: []string{name}, FoundColumns: f.Columns()}
		}
		cols = append(cols, c)
	}
	return cols, nil
}
