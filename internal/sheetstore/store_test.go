package sheetstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adpulse/internal/shared/testutil"
	"adpulse/pkg/contracts/domain"
)

// fakeValuesAPI is an in-memory worksheet.
type fakeValuesAPI struct {
	values [][]interface{}
	fail   error
}

func (f *fakeValuesAPI) get(_ context.Context, _ string) ([][]interface{}, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.values, nil
}

func (f *fakeValuesAPI) update(_ context.Context, _ string, values [][]interface{}) error {
	if f.fail != nil {
		return f.fail
	}
	f.values = values
	return nil
}

func (f *fakeValuesAPI) clear(_ context.Context, _ string) error {
	if f.fail != nil {
		return f.fail
	}
	f.values = nil
	return nil
}

func (f *fakeValuesAPI) append(_ context.Context, _ string, values [][]interface{}) error {
	if f.fail != nil {
		return f.fail
	}
	f.values = append(f.values, values...)
	return nil
}

func testStore(t *testing.T, api valuesAPI) *SheetStore {
	return &SheetStore{
		cfg:    Config{SpreadsheetID: "sheet-id", WorksheetName: "Data"},
		api:    api,
		logger: testutil.Logger(t),
	}
}

func storedRecord(id, date string, cost float64) domain.Record {
	day, _ := time.Parse(domain.DateFormat, date)
	rec := domain.Record{
		ReportDate:   domain.TimePtr(day),
		CampaignID:   domain.StringPtr(id),
		CampaignName: domain.StringPtr("Campaign " + id),
		AccountName:  domain.StringPtr("Granitestone"),
		UploadDate:   "2024-03-20",
	}
	rec.SetMetric(domain.MetricCost, cost)
	return rec
}

func TestReplaceThenLoadRoundTrip(t *testing.T) {
	api := &fakeValuesAPI{}
	store := testStore(t, api)
	ctx := context.Background()

	in := []domain.Record{
		storedRecord("12345", "2024-03-15", 10.5),
		storedRecord("67890", "2024-03-16", 7),
	}
	require.NoError(t, store.Replace(ctx, in))

	// Header row plus one row per record.
	require.Len(t, api.values, 3)
	assert.Equal(t, "report_date", api.values[0][0])

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)

	first := out[0]
	require.NotNil(t, first.CampaignID)
	assert.Equal(t, "12345", *first.CampaignID)
	assert.Equal(t, "2024-03-15", first.ReportDate.Format(domain.DateFormat))
	assert.Equal(t, 10.5, first.MetricOrZero(domain.MetricCost))
	assert.Equal(t, "Granitestone", first.Account())
	assert.Equal(t, "2024-03-20", first.UploadDate)
}

func TestCampaignIDTextMarker(t *testing.T) {
	api := &fakeValuesAPI{}
	store := testStore(t, api)
	ctx := context.Background()

	require.NoError(t, store.Replace(ctx, []domain.Record{storedRecord("00042", "2024-03-15", 1)}))

	// Written with the marker so Sheets keeps the leading zeros.
	assert.Equal(t, "'00042", api.values[1][1])

	// Read back without it.
	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "00042", *out[0].CampaignID)
}

func TestMissingFieldsSurviveRoundTrip(t *testing.T) {
	api := &fakeValuesAPI{}
	store := testStore(t, api)
	ctx := context.Background()

	rec := domain.Record{CampaignName: domain.StringPtr("No ID Campaign")}
	rec.SetMetric(domain.MetricCost, 3)
	require.NoError(t, store.Replace(ctx, []domain.Record{rec}))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out[0]
	assert.Nil(t, got.CampaignID)
	assert.Nil(t, got.ReportDate)
	_, hasRevenue := got.Metric(domain.MetricGrossRevenue)
	assert.False(t, hasRevenue, "absent metric must stay absent, not become zero")
	assert.Equal(t, 3.0, got.MetricOrZero(domain.MetricCost))
}

func TestAppendWritesHeaderOnlyOnFirstWrite(t *testing.T) {
	api := &fakeValuesAPI{}
	store := testStore(t, api)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, []domain.Record{storedRecord("1", "2024-03-15", 1)}))
	require.Len(t, api.values, 2, "first append writes header plus row")
	assert.Equal(t, "report_date", api.values[0][0])

	require.NoError(t, store.Append(ctx, []domain.Record{storedRecord("2", "2024-03-16", 2)}))
	require.Len(t, api.values, 3, "second append writes only the row")
}

func TestAppendNothingIsNoop(t *testing.T) {
	api := &fakeValuesAPI{}
	store := testStore(t, api)

	require.NoError(t, store.Append(context.Background(), nil))
	assert.Empty(t, api.values)
}

func TestLoadEmptyWorksheet(t *testing.T) {
	store := testStore(t, &fakeValuesAPI{})

	out, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestStorageErrorsAreTyped(t *testing.T) {
	api := &fakeValuesAPI{fail: assert.AnError}
	store := testStore(t, api)
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	err = store.Replace(ctx, []domain.Record{storedRecord("1", "2024-03-15", 1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
