package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrofact/internal/boc"
	"macrofact/internal/frame"
)

func nonBankMortgageFixture(t *testing.T) *frame.Frame {
	sink := newRowSink("REF_DATE", "GEO", "Mortgages", "SCALAR_FACTOR", "VALUE")
	for _, token := range quarterTokens {
		sink.add(token, "Ontario", "Outstanding balances", "thousands", "500000")
		sink.add(token, "Alberta", "Outstanding balances", "thousands", "200000")
		sink.add(token, "Ontario", "Number of mortgages", "units", "12345")
	}
	return sink.frame(t, "nonbank")
}

func TestBuildStressFact(t *testing.T) {
	cfg := Default()
	// Alberta reports zero income in 2023Q1; the ratio must be null there,
	// never infinite.
	tables := fakeTables{
		cfg.IncomePID:          incomeFixture(t, []float64{0, 51, 52, 53, 54}),
		cfg.CPIPID:             cpiFixture(t),
		cfg.UnemploymentPID:    unemploymentFixture(t),
		cfg.NonBankMortgagePID: nonBankMortgageFixture(t),
	}

	fact, summary, err := BuildStressFact(context.Background(), cfg, tables, ratesFixture(t, cfg))
	require.NoError(t, err)

	assert.Equal(t, "fact_household_stress_quarterly", fact.Name())
	require.Equal(t, 10, fact.Len())
	assert.True(t, fact.HasColumn("CPI_QAvg_Index"))

	outstanding, err := fact.Numbers("NonBankMortgagesOutstanding_Q_CAD")
	require.NoError(t, err)
	assert.Equal(t, 200_000_000.0, outstanding[0], "thousands scalar normalized to base dollars")

	proxy, err := fact.Numbers("InterestCostProxy_Q")
	require.NoError(t, err)
	assert.InDelta(t, 200_000_000*0.055, proxy[0], 1e-6, "outstanding times the posted 5y rate")
	assert.True(t, math.IsNaN(proxy[1]), "no posted rate in the quarter")

	ratio, err := fact.Numbers("InterestServiceRatioProxy_Q")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ratio[0]), "zero income never divides")
	assert.InDelta(t, 500_000_000*0.055/100_000_000, ratio[5], 1e-9)

	assert.Equal(t, 0, summary.DuplicateKeys)
}

func dsrFixture(t *testing.T) *frame.Frame {
	sink := newRowSink("REF_DATE", "GEO", "Estimates", "UOM", "SCALAR_FACTOR", "VALUE")
	for _, geo := range []string{"Canada", "Ontario"} {
		for i, token := range []string{"2023Q1", "2023Q2"} {
			sink.add(token, geo, "Household income", "Dollars", "millions", fmt.Sprintf("%d", 1000+i))
			sink.add(token, geo, "Interest paid", "Dollars", "millions", "50")
			sink.add(token, geo, "Equals: debt service ratio, interest only", "Ratio", "units", "0.05")
			sink.add(token, geo, "Total debt payments", "Dollars", "millions", "120")
		}
	}
	return sink.frame(t, "dsr")
}

func TestBuildDSRFact(t *testing.T) {
	cfg := Default()
	tables := fakeTables{cfg.DSRPID: dsrFixture(t)}

	fact, summary, err := BuildDSRFact(context.Background(), cfg, tables)
	require.NoError(t, err)

	assert.Equal(t, "household_dsr_interestonly_quarterly", fact.Name())
	require.Equal(t, 4, fact.Len(), "Canada kept alongside provinces")

	income, err := fact.Numbers("HouseholdIncome_MillionCAD")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, income[0])
	interest, err := fact.Numbers("InterestPaid_MillionCAD")
	require.NoError(t, err)
	assert.Equal(t, 50.0, interest[0])
	ratio, err := fact.Numbers("DebtServiceRatio_InterestOnly")
	require.NoError(t, err)
	assert.Equal(t, 0.05, ratio[0])

	assert.Equal(t, 4, summary.Rows)
}

func TestBuildDSRFactQuarterWindow(t *testing.T) {
	cfg := Default()
	cfg.DSRStartQuarter = "2023-04-01"
	tables := fakeTables{cfg.DSRPID: dsrFixture(t)}

	fact, _, err := BuildDSRFact(context.Background(), cfg, tables)
	require.NoError(t, err)
	assert.Equal(t, 2, fact.Len())

	quarters, err := fact.Times("Quarter")
	require.NoError(t, err)
	for _, q := range quarters {
		assert.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), q)
	}
}

func TestBuildDSRFactMissingColumns(t *testing.T) {
	cfg := Default()
	sink := newRowSink("REF_DATE", "GEO", "VALUE")
	sink.add("2023Q1", "Canada", "1")
	tables := fakeTables{cfg.DSRPID: sink.frame(t, "dsr")}

	_, _, err := BuildDSRFact(context.Background(), cfg, tables)
	var cnf *frame.ColumnNotFoundError
	require.ErrorAs(t, err, &cnf)
	assert.Contains(t, cnf.FoundColumns, "GEO")
}

func mortgageCreditFixture(t *testing.T) *frame.Frame {
	sink := newRowSink("REF_DATE", "GEO", "Components", "UOM", "SCALAR_FACTOR", "VALUE")
	months := []string{"2023-01", "2023-02", "2023-03", "2023-04", "2023-05", "2023-06"}
	for i, month := range months {
		sink.add(month, "Canada", "Total outstanding balances", "Dollars", "millions", fmt.Sprintf("%d", 100+i))
		sink.add(month, "Canada", "Variable rate mortgages", "Dollars", "millions", "40")
		sink.add(month, "Ontario", "Total outstanding balances", "Dollars", "millions", "60")
	}
	// Outside the configured window.
	sink.add("2011-12", "Canada", "Total outstanding balances", "Dollars", "millions", "80")
	return sink.frame(t, "mortgage credit")
}

func TestBuildMortgageOutstanding(t *testing.T) {
	cfg := Default()
	tables := fakeTables{cfg.MortgageOutstandingPID: mortgageCreditFixture(t)}

	out, summary, err := BuildMortgageOutstanding(context.Background(), cfg, tables)
	require.NoError(t, err)

	assert.Equal(t, "mortgage_outstanding_canada_monthly", out.Monthly.Name())
	require.Equal(t, 6, out.Monthly.Len(), "national total only, window applied")
	cad, err := out.Monthly.Numbers("MortgageOutstanding_CAD")
	require.NoError(t, err)
	assert.Equal(t, 100_000_000.0, cad[0])

	assert.Equal(t, "mortgage_outstanding_canada_quarterly", out.Quarterly.Name())
	require.Equal(t, 2, out.Quarterly.Len())
	avg, err := out.Quarterly.Numbers("MortgageOutstanding_QAvg_CAD")
	require.NoError(t, err)
	assert.InDelta(t, 101_000_000.0, avg[0], 1e-6)
	assert.InDelta(t, 104_000_000.0, avg[1], 1e-6)

	yoy, err := out.Quarterly.Numbers("MortgageOutstanding_YoY_Pct")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(yoy[0]))
	assert.True(t, math.IsNaN(yoy[1]))

	assert.Equal(t, 2, summary.Rows)
}

func mortgageRateGroup() ([]boc.SeriesInfo, []string) {
	series := []boc.SeriesInfo{
		{ID: "V1", Label: "Variable rate", Description: "Residential mortgages, outstanding balances, insured, variable rate, total"},
		{ID: "V2", Label: "Fixed rate, 5 years and over", Description: "Residential mortgages, outstanding balances, insured, fixed rate, total"},
		{ID: "V3", Label: "Variable rate", Description: "Residential mortgages, outstanding balances, uninsured, variable rate, total"},
		{ID: "V4", Label: "Fixed rate, 5 years and over", Description: "Residential mortgages, outstanding balances, uninsured, fixed rate, total"},
		{ID: "V9", Label: "Variable rate", Description: "Consumer credit, variable rate"},
	}
	ids := []string{"V1", "V2", "V3", "V4", "V9"}
	return series, ids
}

func TestBuildMortgageRates(t *testing.T) {
	cfg := Default()
	series, ids := mortgageRateGroup()

	obs := frame.New("boc group")
	dates := []time.Time{
		time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, obs.AddTimes("date", dates))
	for i, id := range ids {
		require.NoError(t, obs.AddNumbers(id, []float64{5 + float64(i), 5.1 + float64(i)}))
	}

	rates := &fakeRates{groupSeries: series, groupObs: obs}
	out, summary, err := BuildMortgageRates(context.Background(), cfg, rates)
	require.NoError(t, err)

	assert.Equal(t, "boc_mortgage_rates_4cols", out.FourColumn.Name())
	assert.Equal(t, []string{
		"Date",
		"Mortgage_Variable_Insured_Pct",
		"Mortgage_Fixed_5YPlus_Insured_Pct",
		"Mortgage_Variable_Uninsured_Pct",
		"Mortgage_Fixed_5YPlus_Uninsured_Pct",
	}, out.FourColumn.Columns())

	variable, err := out.FourColumn.Numbers("Mortgage_Variable_Insured_Pct")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5.1}, variable)

	assert.Equal(t, "boc_A4_RATES_MORTGAGES_wide", out.Wide.Name())
	assert.Equal(t, "boc_A4_RATES_MORTGAGES_series_map", out.SeriesMap.Name())
	assert.Equal(t, len(series), out.SeriesMap.Len())
	assert.Equal(t, 2, summary.Rows)
}

func TestBuildMortgageRatesSeriesMissing(t *testing.T) {
	cfg := Default()
	series, _ := mortgageRateGroup()

	obs := frame.New("boc group")
	require.NoError(t, obs.AddTimes("date", []time.Time{time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, obs.AddNumbers("V1", []float64{5}))

	rates := &fakeRates{groupSeries: series, groupObs: obs}
	_, _, err := BuildMortgageRates(context.Background(), cfg, rates)
	var snf *boc.SeriesNotFoundError
	require.ErrorAs(t, err, &snf, "series present in the map but absent from observations")
}

func TestSummarize(t *testing.T) {
	f := frame.New("fact")
	require.NoError(t, f.AddStrings("Province", []string{"Alberta", "Alberta", "Ontario", "Ontario"}))
	require.NoError(t, f.AddTimes("Quarter", []time.Time{
		quarterStarts[0], quarterStarts[0], quarterStarts[0], quarterStarts[1],
	}))
	require.NoError(t, f.AddNumbers("income", []float64{1, 2, math.NaN(), 4}))
	require.NoError(t, f.AddNumbers("cpi", []float64{math.NaN(), math.NaN(), math.NaN(), 150}))

	summary, err := Summarize(f, []string{"Province", "Quarter"}, 2)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Rows)
	assert.Equal(t, 1, summary.DuplicateKeys)
	assert.Equal(t, quarterStarts[1], summary.LatestQuarter)
	require.Len(t, summary.NullRates, 2, "truncated to topN")
	assert.Equal(t, NullRate{Column: "cpi", Rate: 0.75}, summary.NullRates[0])
	assert.Equal(t, NullRate{Column: "income", Rate: 0.25}, summary.NullRates[1])

	var b strings.Builder
	summary.Print(&b)
	assert.Contains(t, b.String(), "rows=4 duplicate_keys=1 latest_quarter=2023-04-01")
	assert.Contains(t, b.String(), "null_rate")
}
