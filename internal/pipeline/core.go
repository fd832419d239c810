package pipeline

import (
	"context"
	"fmt"

	"macrofact/internal/frame"
)

// BuildCoreFact assembles the Province x Quarter core fact table:
// disposable income, CPI all-items and shelter with YoY, unemployment
// rate, and the quarter-end policy/posted mortgage rates.
func BuildCoreFact(ctx context.Context, cfg Config, tables TableSource, rates RateSource) (*frame.Frame, *Summary, error) {
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
	cpiAllQ, err := cpiQuarterly(cpi, cfg, []string{cfg.CPIAllItemsLabel}, "CPI_AllItems", true)
	if err != nil {
		return nil, nil, err
	}
	cpiShelterQ, err := cpiQuarterly(cpi, cfg, cfg.CPIShelterLabels, "CPI_Shelter", false)
	if err != nil {
		return nil, nil, err
	}
	unemploymentQ, err := unemploymentQuarterly(unemployment, cfg)
	if err != nil {
		return nil, nil, err
	}
	ratesQ, err := fetchQuarterEndRates(prime, mort5, cfg.PrimeRateSeries, cfg.Mortgage5YSeries)
	if err != nil {
		return nil, nil, err
	}

	fact := incomeQ
	fact.SetName("fact_core_province_quarter")
	if fact, err = frame.LeftJoin(fact, cpiAllQ, provinceQuarterKeys); err != nil {
		return nil, nil, err
	}
	if cpiShelterQ != nil {
		if fact, err = frame.LeftJoin(fact, cpiShelterQ, provinceQuarterKeys); err != nil {
			return nil, nil, err
		}
	}
	if fact, err = frame.LeftJoin(fact, unemploymentQ, provinceQuarterKeys); err != nil {
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

	summary, err := Summarize(fact, provinceQuarterKeys, 10)
	if err != nil {
		return nil, nil, err
	}
	return fact, summary, nil
}

// incomeQuarterly filters the income table to provincial disposable
// income in dollars, normalizes the scalar factor per row and sums to the
// quarter.
func incomeQuarterly(income *frame.Frame, cfg Config) (*frame.Frame, error) {
	if err := income.CoerceNumber(colValue); err != nil {
		return nil, err
	}
	withQ, err := withQuarter(income, colRefDate, false)
	if err != nil {
		return nil, err
	}
	prov, err := provinceSeries(withQ)
	if err != nil {
		return nil, err
	}
	if prov.HasColumn(colUOM) {
		if prov, err = prov.FilterEq(colUOM, "Dollars"); err != nil {
			return nil, err
		}
	}
	if prov.HasColumn(colScalar) {
		if prov, err = filterScalar(prov, "millions"); err != nil {
			return nil, err
		}
	}

	concept, err := frame.ResolveColumn(prov, cfg.IncomeConceptColumns, "income", "transactions")
	if err != nil {
		return nil, err
	}
	prov, err = frame.FilterLabel(prov, concept, cfg.DisposableIncomeLabels)
	if err != nil {
		return nil, err
	}

	if prov, err = normalizeValue(prov, "DisposableIncome_Q_CAD", "DisposableIncome_Q_MillionCAD"); err != nil {
		return nil, err
	}

	cad, err := frame.GroupReduce(prov, provinceQuarterKeys, "DisposableIncome_Q_CAD", "DisposableIncome_Q_CAD", frame.Sum)
	if err != nil {
		return nil, err
	}
	millions, err := frame.GroupReduce(prov, provinceQuarterKeys, "DisposableIncome_Q_MillionCAD", "DisposableIncome_Q_MillionCAD", frame.Sum)
	if err != nil {
		return nil, err
	}
	return frame.LeftJoin(cad, millions, provinceQuarterKeys)
}

// cpiQuarterly filters the monthly CPI table to one product group at the
// configured index base, averages to the quarter and appends YoY.
// Required concepts fail loudly when the label is absent; optional ones
// (shelter) yield a nil frame instead.
func cpiQuarterly(cpi *frame.Frame, cfg Config, labels []string, outPrefix string, required bool) (*frame.Frame, error) {
	if err := cpi.CoerceNumber(colValue); err != nil {
		return nil, err
	}
	withQ, err := withQuarter(cpi, colRefDate, true)
	if err != nil {
		return nil, err
	}

	product, err := frame.ResolveColumn(withQ, []string{"Products and product groups"}, "products and product groups", "product")
	if err != nil {
		return nil, err
	}
	filtered, err := withQ.FilterEq(colUOM, cfg.CPIBase)
	if err != nil {
		return nil, err
	}
	prov, err := provinceSeries(filtered)
	if err != nil {
		return nil, err
	}
	prov, err = frame.FilterLabel(prov, product, labels)
	if err != nil {
		if !required && labelAbsent(err) {
			return nil, nil
		}
		return nil, err
	}

	avgColumn := outPrefix + "_QAvg_Index"
	q, err := frame.GroupReduce(prov, provinceQuarterKeys, colValue, avgColumn, frame.Mean)
	if err != nil {
		return nil, err
	}
	return frame.YearOverYear(q, []string{colProvince}, colQuarter, avgColumn, outPrefix+"_YoY_Pct")
}

// unemploymentQuarterly filters the monthly labour force table to the
// unemployment rate and averages to the quarter.
func unemploymentQuarterly(unemployment *frame.Frame, cfg Config) (*frame.Frame, error) {
	if err := unemployment.CoerceNumber(colValue); err != nil {
		return nil, err
	}
	withQ, err := withQuarter(unemployment, colRefDate, true)
	if err != nil {
		return nil, err
	}

	lfs, err := frame.ResolveColumn(withQ, cfg.UnemploymentColumns, "labour force characteristics")
	if err != nil {
		return nil, err
	}
	filtered, err := frame.FilterLabel(withQ, lfs, []string{cfg.UnemploymentLabel})
	if err != nil {
		return nil, err
	}
	filtered, err = frame.FilterOptional(filtered, cfg.UnemploymentFilters)
	if err != nil {
		return nil, err
	}
	prov, err := provinceSeries(filtered)
	if err != nil {
		return nil, err
	}
	return frame.GroupReduce(prov, provinceQuarterKeys, colValue, "Unemployment_QAvg_Pct", frame.Mean)
}
