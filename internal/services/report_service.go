package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperrors "adpulse/internal/errors"
	"adpulse/internal/exporter"
	"adpulse/internal/infrastructure"
	"adpulse/internal/ingest"
	"adpulse/internal/notify"
	"adpulse/internal/report"
	"adpulse/internal/sheetstore"
	"adpulse/pkg/contracts/domain"
)

// ReportReader parses uploaded report files.
type ReportReader interface {
	ReadAll(ctx context.Context, uploads []ingest.Upload) ([]domain.Record, error)
}

// SummaryExporter renders aggregated rows as an Excel workbook.
type SummaryExporter interface {
	WriteSummary(rows []domain.SummaryRow) ([]byte, error)
}

// Notifier delivers the summary payload to the configured webhook.
type Notifier interface {
	Send(ctx context.Context, payload notify.Payload) error
}

// RecordFilter narrows which historical records an operation sees.
type RecordFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Account   string
	Campaign  string
}

// UploadResult reports what reconciliation did with an upload.
type UploadResult struct {
	Mode         domain.MergeMode   `json:"mode"`
	Policy       domain.MergePolicy `json:"policy"`
	TotalRecords int                `json:"total_records"`
	NewRecords   int                `json:"new_records"`
	Conflicts    []domain.Record    `json:"conflicts,omitempty"`
	Overwrote    int                `json:"overwrote"`
	Skipped      int                `json:"skipped"`
}

// PreviewResult shows the conflicts an upload would hit, without commit.
type PreviewResult struct {
	Mode       domain.MergeMode `json:"mode"`
	NewRecords int              `json:"new_records"`
	Conflicts  []domain.Record  `json:"conflicts"`
}

// SummaryResult is the dashboard rollup: KPIs plus the ranked campaign
// split.
type SummaryResult struct {
	KPIs       domain.KPIReport         `json:"kpis"`
	RankMetric string                   `json:"rank_metric,omitempty"`
	Top        []domain.CampaignSummary `json:"top_campaigns"`
	Rest       []domain.CampaignSummary `json:"remaining_campaigns"`
}

// ExportRequest configures a summary export.
type ExportRequest struct {
	Filter RecordFilter
	Bucket domain.Bucket
	Format string // "xlsx" or "csv"
}

// ExportArtifact is a generated export file.
type ExportArtifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NotifyRequest configures a webhook notification.
type NotifyRequest struct {
	Filter RecordFilter
	Bucket domain.Bucket
	TopN   int
}

// ReportService orchestrates the report lifecycle.
type ReportService struct {
	store      sheetstore.Store
	reader     ReportReader
	excel      SummaryExporter
	csv        *exporter.CSVWriter
	webhook    Notifier
	metrics    *infrastructure.Metrics
	logger     *slog.Logger
	exportsDir string
}

// NewReportService wires the service from its collaborators.
func NewReportService(
	store sheetstore.Store,
	reader ReportReader,
	excel SummaryExporter,
	csv *exporter.CSVWriter,
	webhook Notifier,
	metrics *infrastructure.Metrics,
	exportsDir string,
	logger *slog.Logger,
) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		store:      store,
		reader:     reader,
		excel:      excel,
		csv:        csv,
		webhook:    webhook,
		metrics:    metrics,
		logger:     logger,
		exportsDir: exportsDir,
	}
}

// Upload ingests report files, reconciles them against the historical set
// under the given merge policy, and persists the merged result.
func (s *ReportService) Upload(ctx context.Context, uploads []ingest.Upload, policy domain.MergePolicy) (*UploadResult, error) {
	result, existing, err := s.reconcileUpload(ctx, uploads, policy)
	if err != nil {
		return nil, err
	}

	if err := s.store.Replace(ctx, result.Merged); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.UploadsTotal.WithLabelValues(string(result.Policy), string(result.Mode)).Inc()
		s.metrics.RecordsMerged.Add(float64(len(result.Merged)))
		if len(result.Conflicts) > 0 {
			s.metrics.ConflictsTotal.WithLabelValues(string(result.Mode)).Add(float64(len(result.Conflicts)))
		}
	}

	s.logger.InfoContext(ctx, "upload reconciled",
		slog.String("mode", string(result.Mode)),
		slog.String("policy", string(result.Policy)),
		slog.Int("merged", len(result.Merged)),
		slog.Int("conflicts", len(result.Conflicts)),
		slog.Int("overwrote", result.Overwrote),
		slog.Int("skipped", result.Skipped))

	return &UploadResult{
		Mode:         result.Mode,
		Policy:       result.Policy,
		TotalRecords: len(result.Merged),
		NewRecords:   len(result.Merged) - existing,
		Conflicts:    result.Conflicts,
		Overwrote:    result.Overwrote,
		Skipped:      result.Skipped,
	}, nil
}

// Preview runs the same reconciliation as Upload but never persists,
// so callers can show the conflicts before choosing a policy.
func (s *ReportService) Preview(ctx context.Context, uploads []ingest.Upload) (*PreviewResult, error) {
	result, existing, err := s.reconcileUpload(ctx, uploads, domain.SkipDuplicates)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		Mode:       result.Mode,
		NewRecords: len(result.Merged) - existing,
		Conflicts:  result.Conflicts,
	}, nil
}

func (s *ReportService) reconcileUpload(ctx context.Context, uploads []ingest.Upload, policy domain.MergePolicy) (domain.MergeResult, int, error) {
	if len(uploads) == 0 {
		return domain.MergeResult{}, 0, ErrNoUploads
	}

	incoming, err := s.reader.ReadAll(ctx, uploads)
	if err != nil {
		return domain.MergeResult{}, 0, err
	}
	if len(incoming) == 0 {
		return domain.MergeResult{}, 0, ErrEmptyUpload
	}

	report.ClassifyRecords(incoming)

	existing, err := s.store.Load(ctx)
	if err != nil {
		return domain.MergeResult{}, 0, err
	}

	return report.Reconcile(existing, incoming, policy), len(existing), nil
}

// Records returns the filtered historical record set.
func (s *ReportService) Records(ctx context.Context, filter RecordFilter) ([]domain.Record, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return filterRecords(records, filter), nil
}

// Aggregate loads, filters and aggregates the historical set.
func (s *ReportService) Aggregate(ctx context.Context, filter RecordFilter, bucket domain.Bucket) ([]domain.SummaryRow, error) {
	records, err := s.Records(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	rows := report.Aggregate(records, report.AggregateOptions{Bucket: bucket})
	if s.metrics != nil {
		s.metrics.AggregationsTotal.WithLabelValues(string(bucket)).Inc()
	}
	return rows, nil
}

// Summary computes the KPI block and the top-N campaign split.
func (s *ReportService) Summary(ctx context.Context, filter RecordFilter, topN int) (*SummaryResult, error) {
	records, err := s.Records(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	top, rest := report.TopCampaigns(records, topN)
	result := &SummaryResult{
		KPIs: report.KPIs(records),
		Top:  top,
		Rest: rest,
	}
	if metric, ok := report.RankMetric(records); ok {
		result.RankMetric = metric
	}
	return result, nil
}

// Export aggregates the filtered records and renders them as a downloadable
// artifact, persisting a copy under the exports directory.
func (s *ReportService) Export(ctx context.Context, req ExportRequest) (*ExportArtifact, error) {
	records, err := s.Records(ctx, req.Filter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	rows := report.Aggregate(records, report.AggregateOptions{Bucket: req.Bucket})
	start, end := dateRange(records)

	artifact, err := s.renderExport(rows, req, start, end)
	if err != nil {
		return nil, err
	}

	if s.exportsDir != "" {
		path := filepath.Join(s.exportsDir, artifact.Filename)
		if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
			s.logger.WarnContext(ctx, "failed to persist export copy",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}

	if s.metrics != nil {
		s.metrics.ExportsTotal.Inc()
	}

	s.logger.InfoContext(ctx, "export generated",
		slog.String("filename", artifact.Filename),
		slog.Int("rows", len(rows)))
	return artifact, nil
}

func (s *ReportService) renderExport(rows []domain.SummaryRow, req ExportRequest, start, end time.Time) (*ExportArtifact, error) {
	switch req.Format {
	case "", "xlsx":
		data, err := s.excel.WriteSummary(rows)
		if err != nil {
			return nil, err
		}
		return &ExportArtifact{
			Filename:    exporter.SummaryFilename(req.Bucket, start, end),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	case "csv":
		return s.renderCSV(rows, req.Bucket, start, end)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown export format %q", req.Format), nil)
	}
}

// summaryTable flattens summary rows to a header plus string records.
func summaryTable(rows []domain.SummaryRow) (headers []string, records [][]string) {
	metricSet := make(map[string]bool)
	for _, r := range rows {
		for name := range r.Metrics {
			metricSet[name] = true
		}
	}
	var metricCols []string
	for _, name := range []string{
		domain.MetricCost, domain.MetricGrossRevenue, domain.MetricOrders,
		domain.MetricImpressions, domain.MetricClicks, domain.MetricCTR,
		domain.MetricCPC, domain.MetricCPM, domain.MetricNetCost,
		domain.MetricROI, domain.MetricCostPerOrder,
	} {
		if metricSet[name] {
			metricCols = append(metricCols, name)
		}
	}

	headers = append([]string{"account_name", "campaign_name", "period"}, metricCols...)
	for _, r := range rows {
		row := []string{r.AccountName, r.CampaignName, r.Period}
		for _, name := range metricCols {
			row = append(row, fmt.Sprintf("%.2f", r.Metric(name)))
		}
		records = append(records, row)
	}
	return headers, records
}

func (s *ReportService) renderCSV(rows []domain.SummaryRow, bucket domain.Bucket, start, end time.Time) (*ExportArtifact, error) {
	headers, records := summaryTable(rows)

	filename := fmt.Sprintf("ad_summary_%s_%s_to_%s.csv",
		bucket, start.Format(domain.DateFormat), end.Format(domain.DateFormat))
	if err := s.csv.WriteSimpleCSV(filename, headers, records); err != nil {
		return nil, apperrors.NewExportError("failed to write summary csv", err)
	}

	data, err := os.ReadFile(filepath.Join(s.exportsDir, filename))
	if err != nil {
		return nil, apperrors.NewExportError("failed to read back summary csv", err)
	}
	return &ExportArtifact{
		Filename:    filename,
		ContentType: "text/csv; charset=utf-8",
		Data:        data,
	}, nil
}

// Notify builds the summary payload for the filtered window and delivers it
// to the webhook, referencing a freshly generated Excel artifact.
func (s *ReportService) Notify(ctx context.Context, req NotifyRequest) error {
	records, err := s.Records(ctx, req.Filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrNoRecords
	}

	rows := report.Aggregate(records, report.AggregateOptions{Bucket: req.Bucket})
	start, end := dateRange(records)

	artifact, err := s.renderExport(rows, ExportRequest{Bucket: req.Bucket}, start, end)
	if err != nil {
		s.countNotification("export_failed")
		return err
	}

	artifactName := notify.ArtifactName(artifact.Filename)
	if s.exportsDir != "" {
		path := filepath.Join(s.exportsDir, filepath.Base(artifactName))
		if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
			s.countNotification("artifact_failed")
			return apperrors.NewExportError("failed to store notification artifact", err)
		}
	}

	top, rest := report.TopCampaigns(records, req.TopN)
	payload := notify.BuildPayload(start, end, report.KPIs(records), top, rest, rows,
		"/exports/"+filepath.Base(artifactName))

	if err := s.webhook.Send(ctx, payload); err != nil {
		s.countNotification("failure")
		return err
	}
	s.countNotification("success")

	s.logger.InfoContext(ctx, "notification delivered",
		slog.String("start_date", payload.StartDate),
		slog.String("end_date", payload.EndDate),
		slog.Int("summary_rows", len(rows)))
	return nil
}

func (s *ReportService) countNotification(outcome string) {
	if s.metrics != nil {
		s.metrics.NotificationsTotal.WithLabelValues(outcome).Inc()
	}
}

// filterRecords applies the date window and dimension filters. Records
// without a report date only survive when no date window is set.
func filterRecords(records []domain.Record, filter RecordFilter) []domain.Record {
	dateWindow := filter.StartDate != nil || filter.EndDate != nil

	out := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		if dateWindow {
			if rec.ReportDate == nil {
				continue
			}
			if filter.StartDate != nil && rec.ReportDate.Before(*filter.StartDate) {
				continue
			}
			if filter.EndDate != nil && rec.ReportDate.After(*filter.EndDate) {
				continue
			}
		}
		if filter.Account != "" && rec.Account() != filter.Account {
			continue
		}
		if filter.Campaign != "" && rec.Campaign() != filter.Campaign {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// dateRange returns the min and max report dates across the records.
func dateRange(records []domain.Record) (start, end time.Time) {
	for _, rec := range records {
		if rec.ReportDate == nil {
			continue
		}
		d := *rec.ReportDate
		if start.IsZero() || d.Before(start) {
			start = d
		}
		if end.IsZero() || d.After(end) {
			end = d
		}
	}
	return start, end
}
