// Package sheetstore persists the historical record set in a Google Sheets
// worksheet. Storage is string-typed: dates and numbers are written as text
// and every read goes back through the normalizer, so the worksheet can be
// hand-edited without breaking the pipeline.
package sheetstore

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "adpulse/internal/errors"
	"adpulse/pkg/contracts/domain"
)

// Store is the persistence surface the report service depends on.
type Store interface {
	// Load reads every record currently in the worksheet.
	Load(ctx context.Context) ([]domain.Record, error)
	// Replace clears the worksheet and writes header plus records.
	Replace(ctx context.Context, records []domain.Record) error
	// Append adds records after the existing rows. The header row is
	// written only when the worksheet is still empty.
	Append(ctx context.Context, records []domain.Record) error
}

// Config identifies the backing worksheet.
type Config struct {
	SpreadsheetID   string
	WorksheetName   string
	CredentialsJSON []byte
}

// valuesAPI is the slice of the Sheets values API the store uses, extracted
// so tests can substitute an in-memory fake.
type valuesAPI interface {
	get(ctx context.Context, readRange string) ([][]interface{}, error)
	update(ctx context.Context, writeRange string, values [][]interface{}) error
	clear(ctx context.Context, clearRange string) error
	append(ctx context.Context, writeRange string, values [][]interface{}) error
}

// SheetStore implements Store against the Google Sheets API.
type SheetStore struct {
	cfg    Config
	api    valuesAPI
	logger *slog.Logger
}

// New builds a SheetStore with a service-account authenticated client.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*SheetStore, error) {
	if cfg.SpreadsheetID == "" || cfg.WorksheetName == "" {
		return nil, apperrors.NewConfigError("sheet store requires spreadsheet id and worksheet name", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(cfg.CredentialsJSON))
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create sheets service", err)
	}

	return &SheetStore{
		cfg:    cfg,
		api:    &googleValuesAPI{service: service, spreadsheetID: cfg.SpreadsheetID},
		logger: logger,
	}, nil
}

// Load implements Store.
func (s *SheetStore) Load(ctx context.Context) ([]domain.Record, error) {
	values, err := s.api.get(ctx, s.cfg.WorksheetName)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read worksheet", err).
			WithContext("worksheet", s.cfg.WorksheetName)
	}

	records := decodeRows(values)
	s.logger.Debug("loaded records from worksheet",
		slog.String("worksheet", s.cfg.WorksheetName),
		slog.Int("records", len(records)))
	return records, nil
}

// Replace implements Store.
func (s *SheetStore) Replace(ctx context.Context, records []domain.Record) error {
	if err := s.api.clear(ctx, s.cfg.WorksheetName); err != nil {
		return apperrors.NewStorageError("failed to clear worksheet", err).
			WithContext("worksheet", s.cfg.WorksheetName)
	}

	rows := append([][]interface{}{headerRow()}, encodeRecords(records)...)
	if err := s.api.update(ctx, s.startRange(), rows); err != nil {
		return apperrors.NewStorageError("failed to write worksheet", err).
			WithContext("worksheet", s.cfg.WorksheetName)
	}

	s.logger.Info("replaced worksheet contents",
		slog.String("worksheet", s.cfg.WorksheetName),
		slog.Int("records", len(records)))
	return nil
}

// Append implements Store.
func (s *SheetStore) Append(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	existing, err := s.api.get(ctx, s.cfg.WorksheetName)
	if err != nil {
		return apperrors.NewStorageError("failed to read worksheet before append", err).
			WithContext("worksheet", s.cfg.WorksheetName)
	}

	rows := encodeRecords(records)
	if len(existing) == 0 {
		rows = append([][]interface{}{headerRow()}, rows...)
	}
	if err := s.api.append(ctx, s.startRange(), rows); err != nil {
		return apperrors.NewStorageError("failed to append to worksheet", err).
			WithContext("worksheet", s.cfg.WorksheetName)
	}

	s.logger.Info("appended records to worksheet",
		slog.String("worksheet", s.cfg.WorksheetName),
		slog.Int("records", len(records)),
		slog.Bool("wrote_header", len(existing) == 0))
	return nil
}

func (s *SheetStore) startRange() string {
	return fmt.Sprintf("%s!A1", s.cfg.WorksheetName)
}

// googleValuesAPI adapts *sheets.Service to valuesAPI. All writes use RAW
// input so the apostrophe text marker reaches the cell untouched.
type googleValuesAPI struct {
	service       *sheets.Service
	spreadsheetID string
}

func (g *googleValuesAPI) get(ctx context.Context, readRange string) ([][]interface{}, error) {
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (g *googleValuesAPI) update(ctx context.Context, writeRange string, values [][]interface{}) error {
	_, err := g.service.Spreadsheets.Values.
		Update(g.spreadsheetID, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (g *googleValuesAPI) clear(ctx context.Context, clearRange string) error {
	_, err := g.service.Spreadsheets.Values.
		Clear(g.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return err
}

func (g *googleValuesAPI) append(ctx context.Context, writeRange string, values [][]interface{}) error {
	_, err := g.service.Spreadsheets.Values.
		Append(g.spreadsheetID, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
