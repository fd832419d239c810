package pipeline

import (
	"context"
	"fmt"

	"macrofact/internal/boc"
	"macrofact/internal/frame"
)

// MortgageRates is the three-table output of the rate-group pipeline: the
// series map for inspection, the full wide observations table, and the
// four funds-advanced rate columns the dashboards consume.
type MortgageRates struct {
	SeriesMap  *frame.Frame
	Wide       *frame.Frame
	FourColumn *frame.Frame
}

// BuildMortgageRates downloads the posted mortgage rate group and picks
// the variable/fixed-5y insured/uninsured series by label and description
// tokens, preferring "total" breakdowns.
func BuildMortgageRates(ctx context.Context, cfg Config, rates RateSource) (*MortgageRates, *Summary, error) {
	series, obs, err := rates.FetchGroup(ctx, cfg.MortgageRateGroup, cfg.MortgageRateStart, cfg.MortgageRateEnd)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching rate group %s: %w", cfg.MortgageRateGroup, err)
	}

	find := func(label, coverage string) (string, error) {
		tokens := append(append([]string{}, cfg.MortgageRateBaseTokens...), coverage)
		return boc.FindSeries(series, obs, label, tokens)
	}

	variableInsured, err := find(cfg.VariableRateLabel, "insured")
	if err != nil {
		return nil, nil, err
	}
	fixedInsured, err := find(cfg.Fixed5YRateLabel, "insured")
	if err != nil {
		return nil, nil, err
	}
	variableUninsured, err := find(cfg.VariableRateLabel, "uninsured")
	if err != nil {
		return nil, nil, err
	}
	fixedUninsured, err := find(cfg.Fixed5YRateLabel, "uninsured")
	if err != nil {
		return nil, nil, err
	}

	fourColumn, err := obs.Select(colDate, variableInsured, fixedInsured, variableUninsured, fixedUninsured)
	if err != nil {
		return nil, nil, err
	}
	for from, to := range map[string]string{
		colDate:           "Date",
		variableInsured:   "Mortgage_Variable_Insured_Pct",
		fixedInsured:      "Mortgage_Fixed_5YPlus_Insured_Pct",
		variableUninsured: "Mortgage_Variable_Uninsured_Pct",
		fixedUninsured:    "Mortgage_Fixed_5YPlus_Uninsured_Pct",
	} {
		if err := fourColumn.Rename(from, to); err != nil {
			return nil, nil, err
		}
	}
	fourColumn.SetName("boc_mortgage_rates_4cols")

	seriesMap := frame.New("boc_" + cfg.MortgageRateGroup + "_series_map")
	ids := make([]string, len(series))
	labels := make([]string, len(series))
	descriptions := make([]string, len(series))
	for i, s := range series {
		ids[i] = s.ID
		labels[i] = s.Label
		descriptions[i] = s.Description
	}
	if err := seriesMap.AddStrings("id", ids); err != nil {
		return nil, nil, err
	}
	if err := seriesMap.AddStrings("label", labels); err != nil {
		return nil, nil, err
	}
	if err := seriesMap.AddStrings("description", descriptions); err != nil {
		return nil, nil, err
	}
	obs.SetName("boc_" + cfg.MortgageRateGroup + "_wide")

	summary, err := Summarize(fourColumn, []string{"Date"}, 10)
	if err != nil {
		return nil, nil, err
	}
	return &MortgageRates{SeriesMap: seriesMap, Wide: obs, FourColumn: fourColumn}, summary, nil
}
