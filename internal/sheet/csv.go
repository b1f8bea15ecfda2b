package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sheetmail/sheetmail/internal/logger"
)

// DefaultExportBaseURL is the public spreadsheet export endpoint
const DefaultExportBaseURL = "https://docs.google.com/spreadsheets/d/"

// CSVExportReader downloads the CSV export of a shared spreadsheet.
type CSVExportReader struct {
	sheetID string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// CSVOption configures a CSVExportReader.
type CSVOption func(*CSVExportReader)

// WithBaseURL overrides the export endpoint. The sheet ID and export path are appended to it.
func WithBaseURL(baseURL string) CSVOption {
	return func(r *CSVExportReader) {
		r.baseURL = baseURL
	}
}

// WithHTTPClient overrides the HTTP client used for the download.
func WithHTTPClient(client *http.Client) CSVOption {
	return func(r *CSVExportReader) {
		r.client = client
	}
}

// NewCSVExportReader creates a reader for the given spreadsheet ID
func NewCSVExportReader(sheetID string, timeout time.Duration, log *logger.Logger, opts ...CSVOption) *CSVExportReader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := &CSVExportReader{
		sheetID: sheetID,
		baseURL: DefaultExportBaseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.WithComponent("sheet"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// URL returns the export address for the configured sheet
func (r *CSVExportReader) URL() string {
	return r.baseURL + url.PathEscape(r.sheetID) + "/export?format=csv"
}

// Fetch downloads and parses the sheet. Any failure is logged and returned
// wrapped in ErrFetch with no rows.
func (r *CSVExportReader) Fetch(ctx context.Context) ([]Row, error) {
	rows, err := r.fetch(ctx)
	if err != nil {
		r.log.Error().Err(err).Str("sheet_id", r.sheetID).Msg("error fetching data from Google Sheets")
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	r.log.Info().Int("rows", len(rows)).Msgf("Successfully fetched %d rows from Google Sheets", len(rows))
	return rows, nil
}

func (r *CSVExportReader) fetch(ctx context.Context) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return ParseCSV(resp.Body)
}

// ParseCSV parses a CSV document whose first record holds the column headers
func ParseCSV(src io.Reader) ([]Row, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rowsFromRecords(records), nil
}
