// Package boc downloads Bank of Canada Valet observations: single series
// as JSON and series groups as the two-block CSV the Valet API emits.
package boc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"macrofact/internal/frame"
	"macrofact/internal/period"
)

const (
	defaultBaseURL        = "https://www.bankofcanada.ca"
	defaultTimeoutSeconds = 60
	defaultUserAgent      = "macrofact/0.1"
)

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	config Config
	client *http.Client
}

func New() *Client {
	return NewWithConfig(ConfigFromEnv())
}

func NewWithConfig(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeoutSeconds * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL: getenv("BOC_BASE_URL", defaultBaseURL),
		Timeout: time.Duration(getenvInt("BOC_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second,
	}
}

// SeriesInfo is one row of the SERIES block of a Valet group response.
type SeriesInfo struct {
	ID          string
	Label       string
	Description string
}

// SeriesNotFoundError reports that no group series matched a label/token
// rule. Sample carries mortgage-like candidates so the config can be
// corrected against what the group actually publishes.
type SeriesNotFoundError struct {
	Label  string
	Tokens []string
	Sample []SeriesInfo
}

func (e *SeriesNotFoundError) Error() string {
	parts := make([]string, 0, len(e.Sample))
	for _, s := range e.Sample {
		parts = append(parts, fmt.Sprintf("%s (%s: %s)", s.ID, s.Label, s.Description))
	}
	return fmt.Sprintf("boc: no series with label %q and description tokens %v; candidates: %s",
		e.Label, e.Tokens, strings.Join(parts, " | "))
}

// FetchSeries downloads one series as JSON and returns a frame with a
// "date" time column and one numeric column named after the series id,
// sorted by date. Rows without a parseable date are dropped.
func (c *Client) FetchSeries(ctx context.Context, series string) (*frame.Frame, error) {
	series = strings.TrimSpace(series)
	if series == "" {
		return nil, fmt.Errorf("boc: series id is required")
	}

	endpoint := fmt.Sprintf("%s/valet/observations/%s/json",
		strings.TrimRight(c.config.BaseURL, "/"), url.PathEscape(series))
	body, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Observations []map[string]any `json:"observations"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("boc %s: decoding observations: %w", series, err)
	}

	type point struct {
		date  time.Time
		value float64
	}
	points := make([]point, 0, len(payload.Observations))
	for _, obs := range payload.Observations {
		raw, _ := obs["d"].(string)
		date, ok := period.ParseDate(raw)
		if !ok {
			continue
		}
		value := math.NaN()
		if node, ok := obs[series].(map[string]any); ok {
			value = coerceFloat(node["v"])
		}
		points = append(points, point{date: date, value: value})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].date.Before(points[j].date) })

	dates := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		dates[i] = p.date
		values[i] = p.value
	}

	f := frame.New("boc " + series)
	if err := f.AddTimes("date", dates); err != nil {
		return nil, err
	}
	if err := f.AddNumbers(series, values); err != nil {
		return nil, err
	}
	return f, nil
}

// FetchGroup downloads a series group as CSV and parses its SERIES and
// OBSERVATIONS blocks.
func (c *Client) FetchGroup(ctx context.Context, group, startDate, endDate string) ([]SeriesInfo, *frame.Frame, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		return nil, nil, fmt.Errorf("boc: group code is required")
	}

	endpoint := fmt.Sprintf("%s/valet/observations/group/%s/csv",
		strings.TrimRight(c.config.BaseURL, "/"), url.PathEscape(group))
	query := url.Values{}
	if strings.TrimSpace(startDate) != "" {
		query.Set("start_date", startDate)
	}
	if strings.TrimSpace(endDate) != "" {
		query.Set("end_date", endDate)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	body, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return nil, nil, err
	}
	return ParseGroupCSV(group, string(body))
}

var obsHeader = regexp.MustCompile(`^\s*"?date"?\s*,`)

// ParseGroupCSV splits a Valet group response into its SERIES block
// (id,label,description) and its OBSERVATIONS block (date plus one numeric
// column per series id).
func ParseGroupCSV(group, raw string) ([]SeriesInfo, *frame.Frame, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	seriesIdx := -1
	for i, line := range lines {
		if cleanText(line) == "SERIES" {
			seriesIdx = i
			break
		}
	}
	if seriesIdx < 0 {
		return nil, nil, fmt.Errorf("boc %s: SERIES section not found", group)
	}

	obsIdx := -1
	for i := seriesIdx + 1; i < len(lines); i++ {
		if cleanText(lines[i]) == "OBSERVATIONS" {
			obsIdx = i
			break
		}
	}
	if obsIdx < 0 {
		return nil, nil, fmt.Errorf("boc %s: OBSERVATIONS section not found", group)
	}

	seriesBlock := strings.TrimSpace(strings.Join(lines[seriesIdx+1:obsIdx], "\n"))
	seriesFrame, err := frame.ReadCSV("boc "+group+" series", strings.NewReader(seriesBlock))
	if err != nil {
		return nil, nil, err
	}
	series, err := seriesInfos(seriesFrame)
	if err != nil {
		return nil, nil, fmt.Errorf("boc %s: %w", group, err)
	}

	headerIdx := -1
	for i := obsIdx + 1; i < len(lines); i++ {
		if obsHeader.MatchString(strings.ToLower(lines[i])) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, nil, fmt.Errorf("boc %s: observations header row not found", group)
	}

	obsBlock := strings.Join(lines[headerIdx:], "\n")
	rawObs, err := frame.ReadCSV("boc "+group, strings.NewReader(obsBlock))
	if err != nil {
		return nil, nil, err
	}
	obs, err := timeIndexed(rawObs)
	if err != nil {
		return nil, nil, fmt.Errorf("boc %s: %w", group, err)
	}
	return series, obs, nil
}

func seriesInfos(f *frame.Frame) ([]SeriesInfo, error) {
	for _, col := range []string{"id", "label", "description"} {
		if !f.HasColumn(col) {
			return nil, fmt.Errorf("series table missing column %q; found: %s", col, strings.Join(f.Columns(), ", "))
		}
	}
	ids, _ := f.Strings("id")
	labels, _ := f.Strings("label")
	descriptions, _ := f.Strings("description")

	out := make([]SeriesInfo, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		out = append(out, SeriesInfo{
			ID:          cleanText(ids[i]),
			Label:       cleanText(labels[i]),
			Description: cleanText(descriptions[i]),
		})
	}
	return out, nil
}

// timeIndexed converts the raw observations frame into a date-sorted frame
// with a time column and numeric series columns. Rows with unparseable
// dates are dropped.
func timeIndexed(raw *frame.Frame) (*frame.Frame, error) {
	columns := raw.Columns()
	if len(columns) == 0 || !strings.EqualFold(columns[0], "date") {
		return nil, fmt.Errorf("observations missing date column; found: %s", strings.Join(columns, ", "))
	}
	dateCol := columns[0]
	rawDates, err := raw.Strings(dateCol)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, len(rawDates))
	keep := make([]bool, len(rawDates))
	for i, v := range rawDates {
		if t, ok := period.ParseDate(cleanText(v)); ok {
			dates[i] = t
			keep[i] = true
		}
	}

	order := make([]int, 0, len(rawDates))
	for i := range rawDates {
		if keep[i] {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return dates[order[a]].Before(dates[order[b]]) })

	out := frame.New(raw.Name())
	sorted := make([]time.Time, len(order))
	for i, j := range order {
		sorted[i] = dates[j]
	}
	if err := out.AddTimes("date", sorted); err != nil {
		return nil, err
	}
	for _, col := range columns[1:] {
		values, err := raw.Strings(col)
		if err != nil {
			return nil, err
		}
		nums := make([]float64, len(order))
		for i, j := range order {
			nums[i] = coerceFloat(values[j])
		}
		if err := out.AddNumbers(cleanText(col), nums); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FindSeries locates the group series whose label matches exactly
// (case-insensitive) and whose description contains every token, and which
// is present as an observations column. Descriptions mentioning "total"
// win when several series qualify.
func FindSeries(series []SeriesInfo, obs *frame.Frame, label string, tokens []string) (string, error) {
	matches := make([]SeriesInfo, 0)
	for _, s := range series {
		if !strings.EqualFold(s.Label, label) {
			continue
		}
		desc := strings.ToLower(s.Description)
		ok := true
		for _, token := range tokens {
			if !strings.Contains(desc, strings.ToLower(token)) {
				ok = false
				break
			}
		}
		if !ok || !obs.HasColumn(s.ID) {
			continue
		}
		matches = append(matches, s)
	}

	for _, s := range matches {
		if strings.Contains(strings.ToLower(s.Description), "total") {
			return s.ID, nil
		}
	}
	if len(matches) > 0 {
		return matches[0].ID, nil
	}

	sample := make([]SeriesInfo, 0)
	for _, s := range series {
		if strings.Contains(strings.ToLower(s.Description), "mortgage") ||
			strings.Contains(strings.ToLower(s.Label), "mortgage") {
			sample = append(sample, s)
			if len(sample) == frame.SampleLimit {
				break
			}
		}
	}
	return "", &SeriesNotFoundError{Label: label, Tokens: tokens, Sample: sample}
}

func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("boc: request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func coerceFloat(value any) float64 {
	switch typed := value.(type) {
	case float64:
		return typed
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return math.NaN()
		}
		return parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return math.NaN()
		}
		return parsed
	default:
		return math.NaN()
	}
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\ufeff", "")
	s = strings.ReplaceAll(s, "\"", "")
	return strings.Join(strings.Fields(s), " ")
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
