// Package notify delivers the periodic summary payload to a webhook so a
// downstream automation can turn it into the weekly email.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "adpulse/internal/errors"
	"adpulse/pkg/contracts/domain"
)

// Payload is the webhook body: the reporting window, the flat KPI block,
// the ranked campaign split and the aggregated rows, plus a reference to
// the uploaded Excel artifact.
type Payload struct {
	StartDate          string                   `json:"start_date"`
	EndDate            string                   `json:"end_date"`
	KPIs               domain.KPIReport         `json:"kpis"`
	TopCampaigns       []domain.CampaignSummary `json:"top_campaigns"`
	RemainingCampaigns []domain.CampaignSummary `json:"remaining_campaigns"`
	SummaryData        []domain.SummaryRow      `json:"summary_data"`
	ExcelReportURL     string                   `json:"excel_report_url,omitempty"`
}

// BuildPayload assembles the webhook payload from the engine outputs.
func BuildPayload(start, end time.Time, kpis domain.KPIReport, top, rest []domain.CampaignSummary, rows []domain.SummaryRow, reportURL string) Payload {
	return Payload{
		StartDate:          start.Format(domain.DateFormat),
		EndDate:            end.Format(domain.DateFormat),
		KPIs:               kpis,
		TopCampaigns:       top,
		RemainingCampaigns: rest,
		SummaryData:        rows,
		ExcelReportURL:     reportURL,
	}
}

// ArtifactName builds a collision-free object name for an uploaded report,
// keeping the original base name for readability.
func ArtifactName(originalFilename string) string {
	ext := filepath.Ext(originalFilename)
	base := strings.TrimSuffix(filepath.Base(originalFilename), ext)
	return fmt.Sprintf("reports/%s_%x%s", base, uuid.New(), ext)
}

// Webhook posts payloads to a configured endpoint.
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhook creates a webhook sender. A nil client gets a default with a
// 30 second timeout.
func NewWebhook(url string, client *http.Client, logger *slog.Logger) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{url: url, client: client, logger: logger}
}

// Send delivers the payload. Any non-2xx response is an error carrying the
// response status and a snippet of the body.
func (w *Webhook) Send(ctx context.Context, payload Payload) error {
	if w.url == "" {
		return apperrors.NewConfigError("webhook url is not configured", nil)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewNotifyError("failed to encode webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewNotifyError("failed to build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return apperrors.NewNetworkError("webhook delivery failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewNotifyError(
			fmt.Sprintf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil).
			WithContext("status", resp.StatusCode)
	}

	w.logger.Info("webhook payload delivered",
		slog.String("start_date", payload.StartDate),
		slog.String("end_date", payload.EndDate),
		slog.Int("summary_rows", len(payload.SummaryData)))
	return nil
}
