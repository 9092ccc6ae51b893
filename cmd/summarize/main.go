package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"adpulse/internal/config"
	"adpulse/internal/exporter"
	"adpulse/internal/infrastructure"
	"adpulse/internal/ingest"
	"adpulse/internal/report"
	"adpulse/pkg/contracts/domain"
)

// reportFile pairs an upload path with the date carried in its name.
type reportFile struct {
	path string
	date time.Time
}

func main() {
	inDir := flag.String("in", "data", "directory containing report .xlsx files")
	outDir := flag.String("out", "data/exports", "directory for the generated summary")
	bucketFlag := flag.String("bucket", "weekly", "aggregation bucket: daily, weekly or monthly")
	formatFlag := flag.String("format", "xlsx", "output format: xlsx or csv")
	policyFlag := flag.String("policy", "skip", "merge policy for duplicate rows: skip or overwrite")
	topN := flag.Int("top", 5, "number of top campaigns to report")
	flag.Parse()

	logger, err := infrastructure.InitializeLogger(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "console",
	})
	if err != nil {
		slog.Error("failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(*inDir, *outDir, *bucketFlag, *formatFlag, *policyFlag, *topN, logger); err != nil {
		logger.Error("summarize failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(inDir, outDir, bucketFlag, formatFlag, policyFlag string, topN int, logger *slog.Logger) error {
	bucket, err := domain.ParseBucket(bucketFlag)
	if err != nil {
		return err
	}
	policy, err := domain.ParseMergePolicy(policyFlag)
	if err != nil {
		return err
	}
	if formatFlag != "xlsx" && formatFlag != "csv" {
		return fmt.Errorf("unknown format %q", formatFlag)
	}

	files, err := collectReportFiles(inDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no report files with a dated filename found in %s", inDir)
	}

	logger.Info("summarizing reports",
		slog.Int("files", len(files)),
		slog.String("bucket", string(bucket)),
		slog.String("policy", string(policy)))

	records, err := loadRecords(files, policy, logger)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("report files contained no usable rows")
	}
	report.ClassifyRecords(records)

	rows := report.Aggregate(records, report.AggregateOptions{Bucket: bucket})
	start, end := files[0].date, files[len(files)-1].date

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	var outPath string
	switch formatFlag {
	case "xlsx":
		data, err := exporter.NewExcelExporter(logger).WriteSummary(rows)
		if err != nil {
			return err
		}
		outPath = filepath.Join(outDir, exporter.SummaryFilename(bucket, start, end))
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return err
		}
	case "csv":
		headers, table := summaryTable(rows)
		name := fmt.Sprintf("ad_summary_%s_%s_to_%s.csv",
			bucket, start.Format(domain.DateFormat), end.Format(domain.DateFormat))
		if err := exporter.NewCSVWriter(outDir, logger).WriteSimpleCSV(name, headers, table); err != nil {
			return err
		}
		outPath = filepath.Join(outDir, name)
	}

	kpis := report.KPIs(records)
	top, _ := report.TopCampaigns(records, topN)

	logger.Info("summary written",
		slog.String("path", outPath),
		slog.Int("rows", len(rows)),
		slog.Float64("total_cost", kpis.TotalCost),
		slog.Float64("total_revenue", kpis.TotalRevenue),
		slog.Float64("avg_roi", kpis.AvgROI))
	for i, c := range top {
		logger.Info("top campaign",
			slog.Int("rank", i+1),
			slog.String("campaign", c.CampaignName),
			slog.String("rank_metric", c.RankMetric),
			slog.Float64("rank_value", c.RankValue),
			slog.Float64("roi", c.ROI))
	}
	return nil
}

// collectReportFiles lists the .xlsx files whose names carry a report date,
// ordered oldest first so reconciliation replays uploads chronologically.
func collectReportFiles(dir string) ([]reportFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []reportFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xlsx") {
			continue
		}
		date, err := ingest.ReportDateFromFilename(entry.Name())
		if err != nil {
			continue
		}
		files = append(files, reportFile{path: filepath.Join(dir, entry.Name()), date: date})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].date.Before(files[j].date) })
	return files, nil
}

// loadRecords replays each file through reconciliation in date order.
func loadRecords(files []reportFile, policy domain.MergePolicy, logger *slog.Logger) ([]domain.Record, error) {
	reader := ingest.NewReader(logger)

	var merged []domain.Record
	for _, file := range files {
		f, err := os.Open(file.path)
		if err != nil {
			return nil, err
		}
		records, err := reader.ReadFile(ingest.Upload{
			Filename: filepath.Base(file.path),
			Content:  f,
		})
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(file.path), err)
		}

		result := report.Reconcile(merged, records, policy)
		logger.Info("file reconciled",
			slog.String("file", filepath.Base(file.path)),
			slog.String("mode", string(result.Mode)),
			slog.Int("records", len(records)),
			slog.Int("conflicts", len(result.Conflicts)))
		merged = result.Merged
	}
	return merged, nil
}

// summaryTable flattens summary rows for CSV output.
func summaryTable(rows []domain.SummaryRow) (headers []string, table [][]string) {
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
		table = append(table, row)
	}
	return headers, table
}
