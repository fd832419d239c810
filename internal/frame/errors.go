package frame

import (
	"fmt"
	"strings"
)

// SampleLimit bounds how many observed values a LabelNotFoundError carries.
const SampleLimit = 40

// ColumnNotFoundError reports that none of the candidate column names (nor
// any substring fallback) exist in a table. FoundColumns lists everything
// the table actually has so the config can be corrected without re-running
// under a debugger.
type ColumnNotFoundError struct {
	Table        string
	Candidates   []string
	Fallbacks    []string
	FoundColumns []string
}

func (e *ColumnNotFoundError) Error() string {
	msg := fmt.Sprintf("%s: none of the candidate columns %v found", e.Table, e.Candidates)
	if len(e.Fallbacks) > 0 {
		msg += fmt.Sprintf(" (fallback keywords %v)", e.Fallbacks)
	}
	return msg + "; available columns: " + strings.Join(e.FoundColumns, ", ")
}

// LabelNotFoundError reports that none of the expected category labels are
// present in a dimension column. SampleValues is a bounded, sorted sample
// of what the column actually contains.
type LabelNotFoundError struct {
	Table        string
	Column       string
	Labels       []string
	SampleValues []string
}

func (e *LabelNotFoundError) Error() string {
	return fmt.Sprintf("%s: none of the labels %v found in column %q; sample values: %s",
		e.Table, e.Labels, e.Column, strings.Join(e.SampleValues, " | "))
}

// DuplicateKeyError reports a post-aggregation or post-join uniqueness
// violation. It means an upstream filter was too loose; rows are never
// deduplicated silently.
type DuplicateKeyError struct {
	Table      string
	Keys       []string
	Duplicates int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: %d duplicate rows on keys %v", e.Table, e.Duplicates, e.Keys)
}
