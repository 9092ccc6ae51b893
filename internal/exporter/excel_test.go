package exporter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"adpulse/internal/shared/testutil"
	"adpulse/pkg/contracts/domain"
)

func summaryRow(account, campaign, period string, cost, revenue float64) domain.SummaryRow {
	return domain.SummaryRow{
		AccountName:  account,
		CampaignName: campaign,
		Period:       period,
		Metrics: map[string]float64{
			domain.MetricCost:         cost,
			domain.MetricGrossRevenue: revenue,
		},
	}
}

func TestSummaryFilename(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	got := SummaryFilename(domain.BucketWeekly, start, end)
	assert.Equal(t, "ad_summary_weekly_2024-03-01_to_2024-03-31.xlsx", got)
}

func TestWriteSummary_AllDataLayout(t *testing.T) {
	exporter := NewExcelExporter(testutil.Logger(t))

	rows := []domain.SummaryRow{
		summaryRow("Granitestone", "Spring Sale", "2024-03-04", 10, 20),
		summaryRow("Granitestone", "Spring Sale", "2024-03-11", 5, 12),
		summaryRow("Granitestone", "Summer Push", "2024-03-04", 3, 9),
	}

	data, err := exporter.WriteSummary(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheetRows, err := f.GetRows(allDataSheet)
	require.NoError(t, err)

	// Block one: header, two period rows. Blank separator. Block two:
	// header, one period row.
	require.GreaterOrEqual(t, len(sheetRows), 6)
	assert.Equal(t, "account_name", sheetRows[0][0])
	assert.Equal(t, "Spring Sale", sheetRows[1][1])
	assert.Equal(t, "2024-03-04", sheetRows[1][2])
	assert.Equal(t, "Spring Sale", sheetRows[2][1])
	assert.Empty(t, sheetRows[3], "blocks are separated by a blank row")
	assert.Equal(t, "account_name", sheetRows[4][0])
	assert.Equal(t, "Summer Push", sheetRows[5][1])
}

func TestWriteSummary_CampaignSheets(t *testing.T) {
	exporter := NewExcelExporter(testutil.Logger(t))

	longName := "A Campaign Name That Greatly Exceeds The Sheet Limit"
	rows := []domain.SummaryRow{
		summaryRow("Granitestone", "Spring Sale", "2024-03-04", 10, 20),
		summaryRow("Other Accounts", longName, "2024-03-04", 1, 2),
	}

	data, err := exporter.WriteSummary(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Spring Sale")
	for _, s := range sheets {
		assert.LessOrEqual(t, len([]rune(s)), 31)
	}

	campaignRows, err := f.GetRows("Spring Sale")
	require.NoError(t, err)
	require.Len(t, campaignRows, 2)
	assert.Equal(t, "campaign_name", campaignRows[0][1])
	assert.Equal(t, "Spring Sale", campaignRows[1][1])
}

func TestWriteSummary_MetricColumnsFollowCanonicalOrder(t *testing.T) {
	exporter := NewExcelExporter(testutil.Logger(t))

	row := domain.SummaryRow{
		AccountName:  "Granitestone",
		CampaignName: "Spring Sale",
		Period:       "2024-03-04",
		Metrics: map[string]float64{
			domain.MetricROI:          2,
			domain.MetricCost:         10,
			domain.MetricOrders:       4,
			domain.MetricGrossRevenue: 20,
		},
	}

	data, err := exporter.WriteSummary([]domain.SummaryRow{row})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheetRows, err := f.GetRows(allDataSheet)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"account_name", "campaign_name", "period", "cost", "gross_revenue", "orders", "roi"},
		sheetRows[0])
}

func TestWriteSummary_EmptyInput(t *testing.T) {
	exporter := NewExcelExporter(testutil.Logger(t))

	_, err := exporter.WriteSummary(nil)
	assert.Error(t, err)
}

func TestSheetNameCollisions(t *testing.T) {
	used := map[string]bool{}

	first := sheetName("Campaign [A/B]", used)
	assert.Equal(t, "Campaign  A B", first)

	second := sheetName("Campaign [A/B]", used)
	assert.NotEqual(t, first, second)
	assert.LessOrEqual(t, len([]rune(second)), 31)
}
