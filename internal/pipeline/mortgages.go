package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"macrofact/internal/frame"
	"macrofact/internal/period"
)

// MortgageOutstanding is the Canada-level residential mortgage credit
// output: the monthly normalized series and its quarterly average with
// YoY.
type MortgageOutstanding struct {
	Monthly   *frame.Frame
	Quarterly *frame.Frame
}

// BuildMortgageOutstanding filters the mortgage credit table to the total
// outstanding balance at the national grain, normalizes scalar factors to
// CAD and rolls the monthly series up to quarterly averages.
func BuildMortgageOutstanding(ctx context.Context, cfg Config, tables TableSource) (*MortgageOutstanding, *Summary, error) {
	raw, err := tables.FetchTable(ctx, cfg.MortgageOutstandingPID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching mortgage credit table: %w", err)
	}
	if err := raw.CoerceNumber(colValue); err != nil {
		return nil, nil, err
	}

	withM, err := withMonth(raw, colRefDate)
	if err != nil {
		return nil, nil, err
	}
	withM, err = filterMonthWindow(withM, cfg.MortgageStartMonth, cfg.MortgageEndMonth)
	if err != nil {
		return nil, nil, err
	}
	national, err := withM.FilterEq(colGeo, "Canada")
	if err != nil {
		return nil, nil, err
	}

	component, err := frame.ResolveColumn(national, []string{"Components"}, "component")
	if err != nil {
		return nil, nil, err
	}
	national, err = frame.FilterLabel(national, component, cfg.MortgageComponentLabels)
	if err != nil {
		return nil, nil, err
	}

	// Timing and seasonal-adjustment dimensions exist only in some
	// vintages of this table; filter when present, skip when not.
	optional := map[string]string{}
	if timing, ok := resolveOptionalColumn(national, "month-end", "month end"); ok {
		optional[timing] = cfg.MortgageTimingLabel
	}
	if seasonal, ok := resolveOptionalColumn(national, "seasonal"); ok {
		optional[seasonal] = cfg.MortgageSeasonalLabel
	}
	national, err = frame.FilterOptional(national, optional)
	if err != nil {
		return nil, nil, err
	}
	if national.HasColumn(colUOM) {
		uoms, err := national.Strings(colUOM)
		if err != nil {
			return nil, nil, err
		}
		national = national.Filter(func(i int) bool {
			return strings.Contains(strings.ToLower(uoms[i]), "dollar")
		})
	}

	if national, err = normalizeValue(national, "MortgageOutstanding_CAD", "MortgageOutstanding_MillionCAD"); err != nil {
		return nil, nil, err
	}

	monthly, err := national.Select(colMonth, "MortgageOutstanding_CAD", "MortgageOutstanding_MillionCAD")
	if err != nil {
		return nil, nil, err
	}
	if monthly, err = monthly.SortBy(colMonth); err != nil {
		return nil, nil, err
	}
	monthly.SetName("mortgage_outstanding_canada_monthly")
	if err := frame.AssertUniqueKey(monthly, []string{colMonth}); err != nil {
		return nil, nil, err
	}

	months, err := monthly.Times(colMonth)
	if err != nil {
		return nil, nil, err
	}
	quarters := make([]time.Time, len(months))
	for i, m := range months {
		quarters[i] = period.OfDate(m)
	}
	if err := monthly.AddTimes(colQuarter, quarters); err != nil {
		return nil, nil, err
	}

	cadQ, err := frame.GroupReduce(monthly, []string{colQuarter}, "MortgageOutstanding_CAD", "MortgageOutstanding_QAvg_CAD", frame.Mean)
	if err != nil {
		return nil, nil, err
	}
	millionQ, err := frame.GroupReduce(monthly, []string{colQuarter}, "MortgageOutstanding_MillionCAD", "MortgageOutstanding_QAvg_MillionCAD", frame.Mean)
	if err != nil {
		return nil, nil, err
	}
	quarterly, err := frame.LeftJoin(cadQ, millionQ, []string{colQuarter})
	if err != nil {
		return nil, nil, err
	}
	quarterly, err = frame.YearOverYear(quarterly, nil, colQuarter, "MortgageOutstanding_QAvg_CAD", "MortgageOutstanding_YoY_Pct")
	if err != nil {
		return nil, nil, err
	}
	quarterly.SetName("mortgage_outstanding_canada_quarterly")

	// The quarter grain no longer needs the helper column on the
	// monthly output.
	monthly, err = monthly.Select(colMonth, "MortgageOutstanding_CAD", "MortgageOutstanding_MillionCAD")
	if err != nil {
		return nil, nil, err
	}
	monthly.SetName("mortgage_outstanding_canada_monthly")

	summary, err := Summarize(quarterly, []string{colQuarter}, 10)
	if err != nil {
		return nil, nil, err
	}
	return &MortgageOutstanding{Monthly: monthly, Quarterly: quarterly}, summary, nil
}

// filterMonthWindow keeps months within the optional inclusive window.
func filterMonthWindow(f *frame.Frame, start, end string) (*frame.Frame, error) {
	var startAt, endAt time.Time
	if start != "" {
		t, ok := period.ParseDate(start)
		if !ok {
			return nil, fmt.Errorf("invalid start month %q", start)
		}
		startAt = t
	}
	if end != "" {
		t, ok := period.ParseDate(end)
		if !ok {
			return nil, fmt.Errorf("invalid end month %q", end)
		}
		endAt = t
	}
	if startAt.IsZero() && endAt.IsZero() {
		return f, nil
	}

	months, err := f.Times(colMonth)
	if err != nil {
		return nil, err
	}
	return f.Filter(func(i int) bool {
		if !startAt.IsZero() && months[i].Before(startAt) {
			return false
		}
		if !endAt.IsZero() && months[i].After(endAt) {
			return false
		}
		return true
	}), nil
}
