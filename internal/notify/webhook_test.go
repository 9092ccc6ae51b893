package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adpulse/internal/shared/testutil"
	"adpulse/pkg/contracts/domain"
)

func testPayload() Payload {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	return BuildPayload(start, end,
		domain.KPIReport{TotalCost: 100, TotalRevenue: 250, AvgROI: 2.5},
		[]domain.CampaignSummary{{CampaignName: "Spring Sale", RankMetric: domain.MetricOrders, RankValue: 12}},
		[]domain.CampaignSummary{{CampaignName: "Summer Push", RankMetric: domain.MetricOrders, RankValue: 3}},
		[]domain.SummaryRow{{CampaignName: "Spring Sale", Period: "2024-03-04"}},
		"https://storage.example.com/reports/summary.xlsx")
}

func TestWebhookSend(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hook := NewWebhook(server.URL, server.Client(), testutil.Logger(t))
	require.NoError(t, hook.Send(context.Background(), testPayload()))

	assert.Equal(t, "2024-03-01", got["start_date"])
	assert.Equal(t, "2024-03-31", got["end_date"])
	assert.NotEmpty(t, got["kpis"])
	assert.NotEmpty(t, got["top_campaigns"])
	assert.Equal(t, "https://storage.example.com/reports/summary.xlsx", got["excel_report_url"])
}

func TestWebhookSend_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream automation down"))
	}))
	defer server.Close()

	hook := NewWebhook(server.URL, server.Client(), testutil.Logger(t))
	err := hook.Send(context.Background(), testPayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream automation down")
}

func TestWebhookSend_MissingURL(t *testing.T) {
	hook := NewWebhook("", nil, testutil.Logger(t))
	assert.Error(t, hook.Send(context.Background(), testPayload()))
}

func TestWebhookSend_RespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	hook := NewWebhook(server.URL, server.Client(), testutil.Logger(t))
	assert.Error(t, hook.Send(ctx, testPayload()))
}

func TestArtifactName(t *testing.T) {
	first := ArtifactName("ad_summary_weekly_2024-03-01_to_2024-03-31.xlsx")
	second := ArtifactName("ad_summary_weekly_2024-03-01_to_2024-03-31.xlsx")

	assert.True(t, strings.HasPrefix(first, "reports/ad_summary_weekly_2024-03-01_to_2024-03-31_"))
	assert.True(t, strings.HasSuffix(first, ".xlsx"))
	assert.NotEqual(t, first, second, "names must not collide between uploads")
}
