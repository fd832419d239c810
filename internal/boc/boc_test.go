package boc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupCSV = `"GROUP"
"name","label","description"
"A4_RATES_MORTGAGES","Mortgage rates","Interest rates on funds advanced"

"SERIES"
"id","label","description"
"V001","Variable rate","Residential mortgages, outstanding balances, insured, total, variable rate"
"V002","Variable rate","Residential mortgages, outstanding balances, insured, under $100k, variable rate"
"V003","Fixed rate, 5 years and over","Residential mortgages, outstanding balances, uninsured, total"
"V004","Prime rate","Chartered banks, prime lending rate"

"OBSERVATIONS"
"date","V001","V002","V003","V004"
"2024-02-01","5.10","5.25","5.90","7.20"
"2024-01-01","5.00","5.15","5.80","7.20"
"not a date","",""," ",""
`

func TestParseGroupCSV(t *testing.T) {
	series, obs, err := ParseGroupCSV("A4_RATES_MORTGAGES", groupCSV)
	require.NoError(t, err)

	require.Len(t, series, 4)
	assert.Equal(t, SeriesInfo{
		ID:          "V001",
		Label:       "Variable rate",
		Description: "Residential mortgages, outstanding balances, insured, total, variable rate",
	}, series[0])

	assert.Equal(t, []string{"date", "V001", "V002", "V003", "V004"}, obs.Columns())
	require.Equal(t, 2, obs.Len(), "unparseable date rows dropped")

	dates, err := obs.Times("date")
	require.NoError(t, err)
	assert.True(t, dates[0].Before(dates[1]), "observations sorted ascending")

	v1, err := obs.Numbers("V001")
	require.NoError(t, err)
	assert.Equal(t, []float64{5.00, 5.10}, v1)
}

func TestParseGroupCSVMissingSections(t *testing.T) {
	_, _, err := ParseGroupCSV("g", "\"OBSERVATIONS\"\n\"date\"\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERIES")

	_, _, err = ParseGroupCSV("g", "\"SERIES\"\n\"id\",\"label\",\"description\"\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OBSERVATIONS")
}

func TestFindSeriesPrefersTotal(t *testing.T) {
	series, obs, err := ParseGroupCSV("A4_RATES_MORTGAGES", groupCSV)
	require.NoError(t, err)

	id, err := FindSeries(series, obs, "Variable rate", []string{"residential mortgages", "insured"})
	require.NoError(t, err)
	assert.Equal(t, "V001", id, "the total breakdown wins over sub-breakdowns")
}

func TestFindSeriesNotFound(t *testing.T) {
	series, obs, err := ParseGroupCSV("A4_RATES_MORTGAGES", groupCSV)
	require.NoError(t, err)

	_, err = FindSeries(series, obs, "Variable rate", []string{"uninsured"})
	var snf *SeriesNotFoundError
	require.ErrorAs(t, err, &snf)
	assert.Equal(t, "Variable rate", snf.Label)
	assert.NotEmpty(t, snf.Sample, "mortgage-like candidates included for correction")
}

func TestFetchSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/valet/observations/V80691311/json", r.URL.Path)
		w.Write([]byte(`{
			"observations": [
				{"d": "2024-02-07", "V80691311": {"v": "7.20"}},
				{"d": "2024-01-10", "V80691311": {"v": "7.00"}},
				{"d": "bogus", "V80691311": {"v": "9.99"}}
			]
		}`))
	}))
	defer server.Close()

	client := NewWithConfig(Config{BaseURL: server.URL})
	f, err := client.FetchSeries(context.Background(), "V80691311")
	require.NoError(t, err)
	require.Equal(t, 2, f.Len())

	dates, err := f.Times("date")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), dates[0])

	values, err := f.Numbers("V80691311")
	require.NoError(t, err)
	assert.Equal(t, []float64{7.00, 7.20}, values)
}

func TestFetchGroupPassesDateWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2013-01-01", r.URL.Query().Get("start_date"))
		w.Write([]byte(groupCSV))
	}))
	defer server.Close()

	client := NewWithConfig(Config{BaseURL: server.URL})
	series, obs, err := client.FetchGroup(context.Background(), "A4_RATES_MORTGAGES", "2013-01-01", "")
	require.NoError(t, err)
	assert.Len(t, series, 4)
	assert.Equal(t, 2, obs.Len())
}
