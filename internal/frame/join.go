package frame

import (
	"fmt"
)

// LeftJoin joins right onto left over the shared key columns. Every left
// row survives; unmatched metric cells become the column's null. When the
// right side carries several rows for one key the join emits one output
// row per match, so a loose upstream filter surfaces as duplicates for
// AssertUniqueKey instead of being averaged away. Joining a table with
// itself on its own unique key returns the table unchanged.
func LeftJoin(left, right *Frame, on []string) (*Frame, error) {
	return join(left, right, on, false)
}

// OuterJoin is LeftJoin plus the right-side rows that matched nothing,
// appended after the left rows with left metric cells null.
func OuterJoin(left, right *Frame, on []string) (*Frame, error) {
	return join(left, right, on, true)
}

func join(left, right *Frame, on []string, keepUnmatchedRight bool) (*Frame, error) {
	leftKeys, err := left.keyColumns(on)
	if err != nil {
		return nil, err
	}
	rightKeys, err := right.keyColumns(on)
	if err != nil {
		return nil, err
	}

	onSet := make(map[string]struct{}, len(on))
	for _, k := range on {
		onSet[k] = struct{}{}
	}
	var rightPayload []*Column
	for _, c := range right.cols {
		if _, isKey := onSet[c.name]; isKey {
			continue
		}
		if left.HasColumn(c.name) {
			return nil, fmt.Errorf("join %s + %s: column %q exists on both sides", left.name, right.name, c.name)
		}
		rightPayload = append(rightPayload, c)
	}

	rightIndex := make(map[string][]int, right.Len())
	for i := 0; i < right.Len(); i++ {
		key := right.rowKey(rightKeys, i)
		rightIndex[key] = append(rightIndex[key], i)
	}

	outLeft := make([]*Column, len(left.cols))
	for i, c := range left.cols {
		outLeft[i] = emptyLike(c)
	}
	outRight := make([]*Column, len(rightPayload))
	for i, c := range rightPayload {
		outRight[i] = emptyLike(c)
	}

	matched := make(map[string]struct{})
	rows := 0
	for i := 0; i < left.Len(); i++ {
		key := left.rowKey(leftKeys, i)
		hits := rightIndex[key]
		if len(hits) == 0 {
			for k, c := range left.cols {
				outLeft[k].appendFrom(c, i)
			}
			for k := range outRight {
				outRight[k].appendMissing()
			}
			rows++
			continue
		}
		matched[key] = struct{}{}
		for _, j := range hits {
			for k, c := range left.cols {
				outLeft[k].appendFrom(c, i)
			}
			for k, c := range rightPayload {
				outRight[k].appendFrom(c, j)
			}
			rows++
		}
	}

	if keepUnmatchedRight {
		// Key columns come from the right side for rows the left never had.
		keyPos := make(map[string]int, len(on))
		for pos, k := range on {
			keyPos[k] = pos
		}
		for j := 0; j < right.Len(); j++ {
			key := right.rowKey(rightKeys, j)
			if _, ok := matched[key]; ok {
				continue
			}
			for k, c := range left.cols {
				if pos, isKey := keyPos[c.name]; isKey {
					outLeft[k].appendFrom(rightKeys[pos], j)
				} else {
					outLeft[k].appendMissing()
				}
			}
			for k, c := range rightPayload {
				outRight[k].appendFrom(c, j)
			}
			rows++
		}
	}

	out := New(left.name)
	for _, c := range outLeft {
		if err := out.addColumn(c); err != nil {
			return nil, err
		}
	}
	for _, c := range outRight {
		if err := out.addColumn(c); err != nil {
			return nil, err
		}
	}
	out.rows = rows
	return out, nil
}

// CountDuplicates returns how many rows beyond the first share a key tuple.
func CountDuplicates(f *Frame, keys []string) (int, error) {
	keyCols, err := f.keyColumns(keys)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, f.Len())
	dups := 0
	for i := 0; i < f.Len(); i++ {
		key := f.rowKey(keyCols, i)
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups, nil
}

// AssertUniqueKey fails with a DuplicateKeyError when any key tuple
// repeats.
func AssertUniqueKey(f *Frame, keys []string) error {
	dups, err := CountDuplicates(f, keys)
	if err != nil {
		return err
	}
	if dups > 0 {
		return &DuplicateKeyError{Table: f.Name(), Keys: keys, Duplicates: dups}
	}
	return nil
}
