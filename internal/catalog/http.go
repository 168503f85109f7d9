package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// maxRecordBytes bounds the size of a catalog response body.
const maxRecordBytes = 1 << 20

// HTTPLookup queries a catalog server that serves one JSON record per
// barcode at GET {base}/records/{barcode}.
type HTTPLookup struct {
	baseURL *url.URL
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPLookup creates a lookup against baseURL. A zero timeout selects ten
// seconds.
func NewHTTPLookup(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTPLookup, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid catalog URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid catalog URL %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPLookup{
		baseURL: u,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(slog.String("component", "catalog")),
	}, nil
}

// FetchRecord implements Lookup.
func (l *HTTPLookup) FetchRecord(ctx context.Context, barcode string) (*Record, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, ErrRecordNotFound
	}

	endpoint := l.baseURL.JoinPath("records", barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		l.logger.InfoContext(ctx, "no catalog record", slog.String("barcode", barcode))
		return nil, ErrRecordNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog returned status %d for %s", resp.StatusCode, barcode)
	}

	var record Record
	body := io.LimitReader(resp.Body, maxRecordBytes)
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(body).Decode(&record); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to decode catalog record: %w", err)
	}
	if strings.TrimSpace(record.Title) == "" {
		return nil, ErrRecordNotFound
	}

	l.logger.DebugContext(ctx, "fetched catalog record",
		slog.String("barcode", barcode),
		slog.String("record_id", record.ID))
	return &record, nil
}
