package pipeline

import (
	"context"
	"fmt"
	"time"

	"macrofact/internal/frame"
	"macrofact/internal/period"
)

var geoQuarterKeys = []string{colGeo, colQuarter}

// BuildDSRFact extracts three series from the household debt service
// table — household income, interest paid and the interest-only debt
// service ratio — and outer-joins them into one Quarter x GEO fact.
// This table reports the national aggregate alongside provinces, so GEO
// is kept as-is.
func BuildDSRFact(ctx context.Context, cfg Config, tables TableSource) (*frame.Frame, *Summary, error) {
	raw, err := tables.FetchTable(ctx, cfg.DSRPID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching dsr table: %w", err)
	}

	required := []string{colRefDate, colGeo, colValue, colUOM, colScalar, "Estimates"}
	for _, column := range required {
		if !raw.HasColumn(column) {
			return nil, nil, &frame.ColumnNotFoundError{
				Table:        raw.Name(),
				Candidates:   required,
				FoundColumns: raw.Columns(),
			}
		}
	}
	if err := raw.CoerceNumber(colValue); err != nil {
		return nil, nil, err
	}

	// REF_DATE is a native quarterly token (e.g. 1981Q1) in this table.
	withQ, err := withQuarter(raw, colRefDate, false)
	if err != nil {
		return nil, nil, err
	}
	withQ, err = filterQuarterWindow(withQ, cfg.DSRStartQuarter, cfg.DSREndQuarter)
	if err != nil {
		return nil, nil, err
	}

	income, err := dsrSeries(withQ, cfg.HouseholdIncomeLabel, "Dollars", "millions", "HouseholdIncome_MillionCAD")
	if err != nil {
		return nil, nil, err
	}
	interest, err := dsrSeries(withQ, cfg.InterestPaidLabel, "Dollars", "millions", "InterestPaid_MillionCAD")
	if err != nil {
		return nil, nil, err
	}
	ratio, err := dsrSeries(withQ, cfg.DSRLabel, "Ratio", "units", "DebtServiceRatio_InterestOnly")
	if err != nil {
		return nil, nil, err
	}

	fact, err := frame.OuterJoin(income, interest, geoQuarterKeys)
	if err != nil {
		return nil, nil, err
	}
	if fact, err = frame.OuterJoin(fact, ratio, geoQuarterKeys); err != nil {
		return nil, nil, err
	}
	if fact, err = fact.SortBy(colGeo, colQuarter); err != nil {
		return nil, nil, err
	}
	fact.SetName("household_dsr_interestonly_quarterly")
	if err := frame.AssertUniqueKey(fact, geoQuarterKeys); err != nil {
		return nil, nil, err
	}

	summary, err := Summarize(fact, geoQuarterKeys, 10)
	if err != nil {
		return nil, nil, err
	}
	return fact, summary, nil
}

// dsrSeries pulls one Estimates series with its expected unit and scalar
// factor and renames VALUE to the output column.
func dsrSeries(f *frame.Frame, label, uom, scalarFactor, outColumn string) (*frame.Frame, error) {
	filtered, err := frame.FilterLabel(f, "Estimates", []string{label})
	if err != nil {
		return nil, err
	}
	if filtered, err = filtered.FilterEq(colUOM, uom); err != nil {
		return nil, err
	}
	if filtered, err = filterScalar(filtered, scalarFactor); err != nil {
		return nil, err
	}
	out, err := filtered.Select(colGeo, colQuarter, colValue)
	if err != nil {
		return nil, err
	}
	if err := out.Rename(colValue, outColumn); err != nil {
		return nil, err
	}
	return out, nil
}

// filterQuarterWindow keeps quarters within the optional inclusive window.
func filterQuarterWindow(f *frame.Frame, start, end string) (*frame.Frame, error) {
	var startAt, endAt time.Time
	if start != "" {
		t, ok := period.ParseDate(start)
		if !ok {
			return nil, fmt.Errorf("invalid start quarter %q", start)
		}
		startAt = t
	}
	if end != "" {
		t, ok := period.ParseDate(end)
		if !ok {
			return nil, fmt.Errorf("invalid end quarter %q", end)
		}
		endAt = t
	}
	if startAt.IsZero() && endAt.IsZero() {
		return f, nil
	}

	quarters, err := f.Times(colQuarter)
	if err != nil {
		return nil, err
	}
	return f.Filter(func(i int) bool {
		if !startAt.IsZero() && quarters[i].Before(startAt) {
			return false
		}
		if !endAt.IsZero() && quarters[i].After(endAt) {
			return false
		}
		return true
	}), nil
}
