// Package pipeline builds the quarterly fact tables: each builder is one
// linear download → resolve → normalize → bucketize → aggregate → join →
// validate sequence over immutable frames.
package pipeline

// Config carries every table id, series code and label rule the pipelines
// filter on. It is passed explicitly into each build so runs and tests can
// use different configurations without shared state.
type Config struct {
	// StatCan product ids (full-table ZIP download).
	IncomePID              string // quarterly income distributions
	CPIPID                 string // monthly consumer price index
	UnemploymentPID        string // monthly labour force survey
	NonBankMortgagePID     string // quarterly non-bank mortgages by province
	DSRPID                 string // quarterly household DSR components
	MortgageOutstandingPID string // monthly residential mortgage credit

	// Bank of Canada Valet series and groups.
	PrimeRateSeries   string
	Mortgage5YSeries  string
	MortgageRateGroup string
	MortgageRateStart string
	MortgageRateEnd   string

	// CPI label rules.
	CPIBase          string
	CPIAllItemsLabel string
	CPIShelterLabels []string

	// Income label rules: ordered concept-column candidates, then the
	// disposable-income labels tried in order.
	IncomeConceptColumns   []string
	DisposableIncomeLabels []string

	// Unemployment label rules. Optional filters apply only when the
	// table carries the column and the value.
	UnemploymentColumns []string
	UnemploymentLabel   string
	UnemploymentFilters map[string]string

	// Non-bank mortgage label rules. Enumerated labels replace the old
	// scan-every-text-column-for-"outstanding" heuristic.
	MortgageMeasureColumns    []string
	MortgageOutstandingLabels []string

	// DSR table labels (Estimates dimension).
	HouseholdIncomeLabel string
	InterestPaidLabel    string
	DSRLabel             string
	DSRStartQuarter      string // inclusive, YYYY-MM-DD; empty keeps all
	DSREndQuarter        string

	// Mortgage rate group rules: label plus all-of description tokens.
	MortgageRateBaseTokens []string
	VariableRateLabel      string
	Fixed5YRateLabel       string

	// Canada-level mortgage outstanding rules.
	MortgageComponentLabels []string
	MortgageTimingLabel     string
	MortgageSeasonalLabel   string
	MortgageStartMonth      string // inclusive, YYYY-MM-DD
	MortgageEndMonth        string
}

// Default returns the production configuration.
func Default() Config {
	return Config{
		IncomePID:              "36100663",
		CPIPID:                 "18100004",
		UnemploymentPID:        "14100287",
		NonBankMortgagePID:     "33100530",
		DSRPID:                 "36100226",
		MortgageOutstandingPID: "10100129",

		PrimeRateSeries:   "V80691311",
		Mortgage5YSeries:  "V80691335",
		MortgageRateGroup: "A4_RATES_MORTGAGES",
		MortgageRateStart: "2013-01-01",

		CPIBase:          "2002=100",
		CPIAllItemsLabel: "All-items",
		CPIShelterLabels: []string{"Shelter"},

		IncomeConceptColumns: []string{
			"Income, consumption and saving",
			"Income",
			"Household sector transactions",
			"Household economic accounts",
			"Estimates",
		},
		DisposableIncomeLabels: []string{
			"Disposable income",
			"Household disposable income",
			"Disposable income, households",
		},

		UnemploymentColumns: []string{"Labour force characteristics"},
		UnemploymentLabel:   "Unemployment rate",
		UnemploymentFilters: map[string]string{
			"Sex":       "Both sexes",
			"Age group": "15 years and over",
			"Data type": "Seasonally adjusted",
			"UOM":       "Percent",
		},

		MortgageMeasureColumns: []string{"Mortgages", "Components", "Estimates"},
		MortgageOutstandingLabels: []string{
			"Outstanding balances",
			"Mortgages outstanding",
			"Total outstanding balances",
		},

		HouseholdIncomeLabel: "Household income",
		InterestPaidLabel:    "Interest paid",
		DSRLabel:             "Equals: debt service ratio, interest only",

		MortgageRateBaseTokens: []string{
			"mortgages",
			"outstanding balances",
			"residential mortgages",
		},
		VariableRateLabel: "Variable rate",
		Fixed5YRateLabel:  "Fixed rate, 5 years and over",

		MortgageComponentLabels: []string{
			"Total outstanding balances",
			"Total, outstanding balances",
		},
		MortgageTimingLabel:   "At month-end",
		MortgageSeasonalLabel: "Seasonally adjusted",
		MortgageStartMonth:    "2012-01-01",
		MortgageEndMonth:      "2025-12-31",
	}
}
