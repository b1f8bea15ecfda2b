package sheet

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sheetmail/sheetmail/internal/logger"
)

// APIConfig holds the configuration for reading a sheet through the Sheets API.
type APIConfig struct {
	// SheetID is the spreadsheet identifier from its URL.
	SheetID string
	// Range is the A1 range to read, e.g. "A:ZZ" or "Contacts!A:F".
	Range string
	// CredentialsJSON is a service account key with read access to the sheet.
	CredentialsJSON string
}

// APIReader reads a private spreadsheet with service account credentials.
type APIReader struct {
	cfg     APIConfig
	service *sheets.Service
	log     *logger.Logger
}

// NewAPIReader creates a new APIReader.
func NewAPIReader(ctx context.Context, cfg APIConfig, log *logger.Logger) (*APIReader, error) {
	if cfg.CredentialsJSON == "" {
		return nil, fmt.Errorf("sheets: credentials JSON is required")
	}
	if cfg.SheetID == "" {
		return nil, fmt.Errorf("sheets: sheet ID is required")
	}
	if cfg.Range == "" {
		cfg.Range = "A:ZZ"
	}

	jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: failed to parse credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets: failed to create service: %w", err)
	}

	return newAPIReaderWithService(cfg, svc, log), nil
}

func newAPIReaderWithService(cfg APIConfig, svc *sheets.Service, log *logger.Logger) *APIReader {
	return &APIReader{
		cfg:     cfg,
		service: svc,
		log:     log.WithComponent("sheet"),
	}
}

// Fetch reads the configured range. Failures are logged and returned wrapped in ErrFetch.
func (r *APIReader) Fetch(ctx context.Context) ([]Row, error) {
	resp, err := r.service.Spreadsheets.Values.Get(r.cfg.SheetID, r.cfg.Range).Context(ctx).Do()
	if err != nil {
		r.log.Error().Err(err).Str("sheet_id", r.cfg.SheetID).Msg("error fetching data from Sheets API")
		return nil, fmt.Errorf("%w: sheets: %w", ErrFetch, err)
	}

	rows := rowsFromRecords(valuesToRecords(resp.Values))
	r.log.Info().Int("rows", len(rows)).Msgf("Successfully fetched %d rows from Sheets API", len(rows))
	return rows, nil
}

// valuesToRecords converts the API's loosely typed cells to strings
func valuesToRecords(values [][]interface{}) [][]string {
	records := make([][]string, len(values))
	for i, line := range values {
		rec := make([]string, len(line))
		for j, cell := range line {
			if cell != nil {
				rec[j] = fmt.Sprint(cell)
			}
		}
		records[i] = rec
	}
	return records
}
