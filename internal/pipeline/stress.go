package pipeline

import (
	"context"
	"fmt"
	"math"

	"macrofact/internal/frame"
)

// BuildStressFact assembles the household stress fact table: the core
// province metrics plus non-bank mortgages outstanding and the derived
// interest-cost proxy ratios.
func BuildStressFact(ctx context.Context, cfg Config, tables TableSource, rates RateSource) (*frame.Frame, *Summary, error) {
	income, err := tables.FetchTable(ctx, cfg.IncomePID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching income table: %w", err)
	}
	cpi, err := tables.FetchTable(ctx, cfg.CPIPID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching cpi table: %w", err)
	}
	unemployment, err := tables.FetchTable(ctx, cfg.UnemploymentPID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching unemployment table: %w", err)
	}
	mortgages, err := tables.FetchTable(ctx, cfg.NonBankMortgagePID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching non-bank mortgage table: %w", err)
	}
	prime, err := rates.FetchSeries(ctx, cfg.PrimeRateSeries)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching prime rate: %w", err)
	}
	mort5, err := rates.FetchSeries(ctx, cfg.Mortgage5YSeries)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching 5y mortgage rate: %w", err)
	}

	incomeQ, err := incomeQuarterly(income, cfg)
	if err != nil {
		return nil, nil, err
	}
	cpiQ, err := cpiQuarterly(cpi, cfg, []string{cfg.CPIAllItemsLabel}, "CPI", true)
	if err != nil {
		return nil, nil, err
	}
	unemploymentQ, err := unemploymentQuarterly(unemployment, cfg)
	if err != nil {
		return nil, nil, err
	}
	mortgagesQ, err := nonBankMortgagesQuarterly(mortgages, cfg)
	if err != nil {
		return nil, nil, err
	}
	ratesQ, err := fetchQuarterEndRates(prime, mort5, cfg.PrimeRateSeries, cfg.Mortgage5YSeries)
	if err != nil {
		return nil, nil, err
	}

	fact := incomeQ
	fact.SetName("fact_household_stress_quarterly")
	if fact, err = frame.LeftJoin(fact, cpiQ, provinceQuarterKeys); err != nil {
		return nil, nil, err
	}
	if fact, err = frame.LeftJoin(fact, unemploymentQ, provinceQuarterKeys); err != nil {
		return nil, nil, err
	}
	if fact, err = frame.LeftJoin(fact, mortgagesQ, provinceQuarterKeys); err != nil {
		return nil, nil, err
	}
	if fact, err = frame.LeftJoin(fact, ratesQ, []string{colQuarter}); err != nil {
		return nil, nil, err
	}
	if fact, err = fact.SortBy(colProvince, colQuarter); err != nil {
		return nil, nil, err
	}
	if err := frame.AssertUniqueKey(fact, provinceQuarterKeys); err != nil {
		return nil, nil, err
	}
	if err := deriveStressMetrics(fact); err != nil {
		return nil, nil, err
	}

	summary, err := Summarize(fact, provinceQuarterKeys, 10)
	if err != nil {
		return nil, nil, err
	}
	return fact, summary, nil
}

// nonBankMortgagesQuarterly filters the non-bank mortgage table to the
// outstanding-balance measure by enumerated label and sums to the
// quarter. The measure column is resolved from an ordered candidate list;
// the labels are exact matches, replacing the old scan of every text
// column for the word "outstanding".
func nonBankMortgagesQuarterly(mortgages *frame.Frame, cfg Config) (*frame.Frame, error) {
	if err := mortgages.CoerceNumber(colValue); err != nil {
		return nil, err
	}
	withQ, err := withQuarter(mortgages, colRefDate, false)
	if err != nil {
		return nil, err
	}
	prov, err := provinceSeries(withQ)
	if err != nil {
		return nil, err
	}

	measure, err := frame.ResolveColumn(prov, cfg.MortgageMeasureColumns, "outstanding", "mortgage")
	if err != nil {
		return nil, err
	}
	prov, err = frame.FilterLabel(prov, measure, cfg.MortgageOutstandingLabels)
	if err != nil {
		return nil, err
	}

	if prov.HasColumn(colScalar) {
		if prov, err = normalizeValue(prov, "NonBankMortgagesOutstanding_Q_CAD", "NonBankMortgagesOutstanding_Q_MillionCAD"); err != nil {
			return nil, err
		}
	} else {
		if err := prov.Rename(colValue, "NonBankMortgagesOutstanding_Q_CAD"); err != nil {
			return nil, err
		}
	}

	return frame.GroupReduce(prov, provinceQuarterKeys, "NonBankMortgagesOutstanding_Q_CAD", "NonBankMortgagesOutstanding_Q_CAD", frame.Sum)
}

// deriveStressMetrics appends the post-join engineered metrics. Division
// by a missing or zero disposable income yields null, never infinity.
func deriveStressMetrics(fact *frame.Frame) error {
	outstanding, err := fact.Numbers("NonBankMortgagesOutstanding_Q_CAD")
	if err != nil {
		return err
	}
	rate, err := fact.Numbers("Mortgage5YPosted_QEnd_Pct")
	if err != nil {
		return err
	}
	if err := derive(fact, "InterestCostProxy_Q", func(i int) float64 {
		return outstanding[i] * (rate[i] / 100)
	}); err != nil {
		return err
	}

	proxy, err := fact.Numbers("InterestCostProxy_Q")
	if err != nil {
		return err
	}
	income, err := fact.Numbers("DisposableIncome_Q_CAD")
	if err != nil {
		return err
	}
	return derive(fact, "InterestServiceRatioProxy_Q", func(i int) float64 {
		if math.IsNaN(income[i]) || income[i] == 0 {
			return math.NaN()
		}
		return proxy[i] / income[i]
	})
}
