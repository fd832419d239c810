package frame

import (
	"sort"
	"strings"
)

// ResolveColumn locates a dimension column. Candidates are tried in order
// by exact name; if none exist, each fallback keyword is tried as a
// case-insensitive substring of the column names. Source tables use
// different names for semantically equivalent dimensions, so the ordered
// candidate list is part of the pipeline config, not guessed at runtime.
func ResolveColumn(f *Frame, candidates []string, fallbacks ...string) (string, error) {
	for _, name := range candidates {
		if f.HasColumn(name) {
			return name, nil
		}
	}
	for _, keyword := range fallbacks {
		lower := strings.ToLower(keyword)
		for _, name := range f.Columns() {
			if strings.Contains(strings.ToLower(name), lower) {
				return name, nil
			}
		}
	}
	return "", &ColumnNotFoundError{
		Table:        f.Name(),
		Candidates:   candidates,
		Fallbacks:    fallbacks,
		FoundColumns: f.Columns(),
	}
}

// ResolveLabel picks the first label from labels that is present among the
// column's observed values. The order of labels wins, not the order the
// data happens to arrive in.
func ResolveLabel(f *Frame, column string, labels []string) (string, error) {
	observed, err := f.Distinct(column)
	if err != nil {
		return "", err
	}
	present := make(map[string]struct{}, len(observed))
	for _, v := range observed {
		present[v] = struct{}{}
	}
	for _, label := range labels {
		if _, ok := present[label]; ok {
			return label, nil
		}
	}
	sort.Strings(observed)
	if len(observed) > SampleLimit {
		observed = observed[:SampleLimit]
	}
	return "", &LabelNotFoundError{
		Table:        f.Name(),
		Column:       column,
		Labels:       labels,
		SampleValues: observed,
	}
}

// FilterLabel resolves a label from candidates and keeps only matching
// rows.
func FilterLabel(f *Frame, column string, labels []string) (*Frame, error) {
	label, err := ResolveLabel(f, column, labels)
	if err != nil {
		return nil, err
	}
	return f.FilterEq(column, label)
}

// FilterOptional applies col==value filters only for columns the table
// actually has and, for each present column, only when the value is
// actually observed. StatCan tables vary in which qualifier dimensions
// (Sex, Age group, Data type, ...) they carry.
func FilterOptional(f *Frame, filters map[string]string) (*Frame, error) {
	out := f
	for column, value := range filters {
		if !out.HasColumn(column) {
			continue
		}
		observed, err := out.Distinct(column)
		if err != nil {
			return nil, err
		}
		found := false
		for _, v := range observed {
			if v == value {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		out, err = out.FilterEq(column, value)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
