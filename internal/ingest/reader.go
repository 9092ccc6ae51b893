// Package ingest reads uploaded Excel ad reports and turns them into
// normalized records ready for reconciliation. It owns the boundary rules:
// the report date comes from the filename, zero-spend rows never enter the
// pipeline, and every record is stamped with the upload date.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	apperrors "adpulse/internal/errors"
	"adpulse/internal/report"
	"adpulse/pkg/contracts/domain"
)

// reportDatePattern matches the ISO date every report filename must carry,
// e.g. "tiktok_report_2024-03-15.xlsx".
var reportDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// headerScanLimit bounds how deep into a sheet the header row is searched.
// Real exports put it in the first few rows, sometimes under a title banner.
const headerScanLimit = 10

// Upload is a single uploaded report file.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Reader parses uploaded report files.
type Reader struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewReader creates a Reader logging through the given logger.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		logger: logger,
		now:    time.Now,
	}
}

// ReportDateFromFilename extracts the report date from an uploaded filename.
// A filename without a YYYY-MM-DD substring is rejected before any cell of
// the file is read.
func ReportDateFromFilename(name string) (time.Time, error) {
	match := reportDatePattern.FindString(name)
	if match == "" {
		return time.Time{}, apperrors.NewParsingError(
			fmt.Sprintf("no YYYY-MM-DD date found in filename %q", name), nil)
	}
	t, err := time.Parse(domain.DateFormat, match)
	if err != nil {
		return time.Time{}, apperrors.NewParsingError(
			fmt.Sprintf("invalid date %q in filename %q", match, name), err)
	}
	return t, nil
}

// ReadFile parses one uploaded .xlsx report. The filename date overrides any
// report_date column in the file, rows whose cost is absent or non-positive
// are dropped, and the remaining records are stamped with today's upload
// date. Row order within the file is preserved.
func (r *Reader) ReadFile(upload Upload) ([]domain.Record, error) {
	reportDate, err := ReportDateFromFilename(upload.Filename)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(upload.Content)
	if err != nil {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("%s is not a readable xlsx file", upload.Filename), err).
			WithContext("filename", upload.Filename)
	}
	defer f.Close()

	headers, rows, err := findTable(f)
	if err != nil {
		return nil, err
	}

	records := report.NormalizeBatch(report.RawBatch{Headers: headers, Rows: rows})
	uploadDate := r.now().UTC().Format(domain.DateFormat)

	kept := records[:0]
	for _, rec := range records {
		if rec.MetricOrZero(domain.MetricCost) <= 0 {
			continue
		}
		rec.ReportDate = domain.TimePtr(reportDate)
		rec.UploadDate = uploadDate
		kept = append(kept, rec)
	}

	r.logger.Info("parsed report file",
		slog.String("filename", upload.Filename),
		slog.String("report_date", reportDate.Format(domain.DateFormat)),
		slog.Int("rows_read", len(records)),
		slog.Int("rows_kept", len(kept)))

	return kept, nil
}

// ReadAll parses a multi-file upload. Files are parsed concurrently but the
// result concatenates them in the order given, each file's rows in their
// original order. The first failing file aborts the whole upload.
func (r *Reader) ReadAll(ctx context.Context, uploads []Upload) ([]domain.Record, error) {
	results := make([][]domain.Record, len(uploads))

	g, ctx := errgroup.WithContext(ctx)
	for i, u := range uploads {
		i, u := i, u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, err := r.ReadFile(u)
			if err != nil {
				return fmt.Errorf("%s: %w", u.Filename, err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var combined []domain.Record
	for _, records := range results {
		combined = append(combined, records...)
	}
	return combined, nil
}

// findTable locates the tabular report data in the workbook: the first sheet
// containing a recognizable header row wins.
func findTable(f *excelize.File) (headers []string, rows [][]string, err error) {
	for _, name := range f.GetSheetList() {
		sheetRows, rowsErr := f.GetRows(name)
		if rowsErr != nil || len(sheetRows) == 0 {
			continue
		}
		if idx := headerRowIndex(sheetRows); idx >= 0 {
			return sheetRows[idx], sheetRows[idx+1:], nil
		}
	}
	return nil, nil, apperrors.NewParsingError("no tabular report data found in workbook", nil)
}

// headerRowIndex scans the top of a sheet for the header row. A row naming a
// campaign column alongside cost is preferred; a row with just a cost column
// is accepted as a fallback for reduced exports.
func headerRowIndex(rows [][]string) int {
	fallback := -1
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for i := 0; i < limit; i++ {
		cols := make(map[string]bool, len(rows[i]))
		for _, cell := range rows[i] {
			cols[report.NormalizeColumn(cell)] = true
		}
		if !cols[domain.MetricCost] {
			continue
		}
		if cols["campaign_name"] || cols["campaign_id"] {
			return i
		}
		if fallback == -1 {
			fallback = i
		}
	}
	return fallback
}
