package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ReadCSV loads a CSV stream into a frame of string columns. A UTF-8 BOM
// on the first header cell is stripped; the StatCan full-table CSVs carry
// one. Numeric columns are coerced afterwards with CoerceNumber.
func ReadCSV(name string, r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	cols := make([][]string, len(header))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: reading rows: %w", name, err)
		}
		for i := range header {
			if i < len(record) {
				cols[i] = append(cols[i], record[i])
			} else {
				cols[i] = append(cols[i], "")
			}
		}
	}

	f := New(name)
	for i, col := range header {
		if col == "" {
			col = fmt.Sprintf("column_%d", i)
		}
		if err := f.AddStrings(col, cols[i]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteCSV writes the frame with dates as YYYY-MM-DD and missing numerics
// as empty cells.
func WriteCSV(f *Frame, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Columns()); err != nil {
		return err
	}
	record := make([]string, len(f.cols))
	for i := 0; i < f.Len(); i++ {
		for j, c := range f.cols {
			record[j] = formatCell(c, i)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatCell(c *Column, i int) string {
	switch c.kind {
	case Number:
		if math.IsNaN(c.nums[i]) {
			return ""
		}
		return strconv.FormatFloat(c.nums[i], 'f', -1, 64)
	case Time:
		if c.times[i].IsZero() {
			return ""
		}
		return c.times[i].Format("2006-01-02")
	default:
		return c.strs[i]
	}
}
