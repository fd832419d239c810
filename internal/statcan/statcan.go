// Package statcan downloads Statistics Canada full-table ZIP archives and
// loads the data CSV they contain.
package statcan

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"macrofact/internal/frame"
)

const (
	defaultBaseURL        = "https://www150.statcan.gc.ca"
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
		BaseURL: getenv("STATCAN_BASE_URL", defaultBaseURL),
		Timeout: time.Duration(getenvInt("STATCAN_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second,
	}
}

// FetchTable downloads the full-table ZIP for a product id and returns the
// data CSV as a frame of string columns.
func (c *Client) FetchTable(ctx context.Context, pid string) (*frame.Frame, error) {
	pid = strings.TrimSpace(pid)
	if pid == "" {
		return nil, fmt.Errorf("statcan: pid is required")
	}

	endpoint := fmt.Sprintf("%s/n1/en/tbl/csv/%s-eng.zip",
		strings.TrimRight(c.config.BaseURL, "/"), url.PathEscape(pid))

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
		return nil, fmt.Errorf("statcan %s: request failed (%s): %s", pid, resp.Status, strings.TrimSpace(string(body)))
	}

	return ReadTableZip(pid, body)
}

// ReadTableZip extracts the data CSV from a full-table ZIP. The archive
// holds the data CSV plus a metadata CSV; the data file is the largest
// member whose name does not mention metadata.
func ReadTableZip(pid string, data []byte) (*frame.Frame, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("statcan %s: reading zip: %w", pid, err)
	}

	var pick *zip.File
	names := make([]string, 0, len(archive.File))
	for _, member := range archive.File {
		names = append(names, member.Name)
		lower := strings.ToLower(member.Name)
		if !strings.HasSuffix(lower, ".csv") || strings.Contains(lower, "meta") {
			continue
		}
		if pick == nil || member.UncompressedSize64 > pick.UncompressedSize64 {
			pick = member
		}
	}
	if pick == nil {
		return nil, fmt.Errorf("statcan %s: no data csv in zip; contents: %s", pid, strings.Join(names, ", "))
	}

	reader, err := pick.Open()
	if err != nil {
		return nil, fmt.Errorf("statcan %s: opening %s: %w", pid, pick.Name, err)
	}
	defer reader.Close()

	return frame.ReadCSV("statcan "+pid, reader)
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
