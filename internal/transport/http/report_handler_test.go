package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "adpulse/internal/errors"
	"adpulse/internal/ingest"
	"adpulse/internal/services"
	"adpulse/internal/shared/testutil"
	"adpulse/pkg/contracts/domain"
)

type fakeReportService struct {
	uploadResult  *services.UploadResult
	previewResult *services.PreviewResult
	records       []domain.Record
	rows          []domain.SummaryRow
	summary       *services.SummaryResult
	artifact      *services.ExportArtifact
	err           error

	lastPolicy  domain.MergePolicy
	lastUploads []ingest.Upload
	lastFilter  services.RecordFilter
	lastBucket  domain.Bucket
	lastTopN    int
	lastExport  services.ExportRequest
	lastNotify  services.NotifyRequest
}

func (f *fakeReportService) Upload(_ context.Context, uploads []ingest.Upload, policy domain.MergePolicy) (*services.UploadResult, error) {
	f.lastUploads = uploads
	f.lastPolicy = policy
	return f.uploadResult, f.err
}

func (f *fakeReportService) Preview(_ context.Context, uploads []ingest.Upload) (*services.PreviewResult, error) {
	f.lastUploads = uploads
	return f.previewResult, f.err
}

func (f *fakeReportService) Records(_ context.Context, filter services.RecordFilter) ([]domain.Record, error) {
	f.lastFilter = filter
	return f.records, f.err
}

func (f *fakeReportService) Aggregate(_ context.Context, filter services.RecordFilter, bucket domain.Bucket) ([]domain.SummaryRow, error) {
	f.lastFilter = filter
	f.lastBucket = bucket
	return f.rows, f.err
}

func (f *fakeReportService) Summary(_ context.Context, filter services.RecordFilter, topN int) (*services.SummaryResult, error) {
	f.lastFilter = filter
	f.lastTopN = topN
	return f.summary, f.err
}

func (f *fakeReportService) Export(_ context.Context, req services.ExportRequest) (*services.ExportArtifact, error) {
	f.lastExport = req
	return f.artifact, f.err
}

func (f *fakeReportService) Notify(_ context.Context, req services.NotifyRequest) error {
	f.lastNotify = req
	return f.err
}

func newTestRouter(t *testing.T, svc *fakeReportService) chi.Router {
	t.Helper()
	logger := testutil.Logger(t)
	handler := NewReportHandler(svc, 1<<20, logger, apierrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Mount("/api/reports", handler.Routes())
	return r
}

func multipartBody(t *testing.T, policy string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if policy != "" {
		require.NoError(t, mw.WriteField("merge_policy", policy))
	}
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestUploadHandler(t *testing.T) {
	t.Run("accepts files and policy", func(t *testing.T) {
		svc := &fakeReportService{uploadResult: &services.UploadResult{
			Mode:         domain.MergeModeCompositeKey,
			Policy:       domain.OverwriteDuplicates,
			TotalRecords: 3,
		}}
		router := newTestRouter(t, svc)

		body, contentType := multipartBody(t, "overwrite", map[string][]byte{
			"report_2024-03-18.xlsx": []byte("workbook"),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/reports/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.OverwriteDuplicates, svc.lastPolicy)
		require.Len(t, svc.lastUploads, 1)
		assert.Equal(t, "report_2024-03-18.xlsx", svc.lastUploads[0].Filename)

		payload := decodeBody(t, rec)
		assert.Equal(t, "success", payload["status"])
	})

	t.Run("missing policy defaults to skip", func(t *testing.T) {
		svc := &fakeReportService{uploadResult: &services.UploadResult{}}
		router := newTestRouter(t, svc)

		body, contentType := multipartBody(t, "", map[string][]byte{
			"report_2024-03-18.xlsx": []byte("workbook"),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/reports/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.SkipDuplicates, svc.lastPolicy)
	})

	t.Run("rejects unknown policy", func(t *testing.T) {
		router := newTestRouter(t, &fakeReportService{})

		body, contentType := multipartBody(t, "merge-softly", map[string][]byte{
			"report_2024-03-18.xlsx": []byte("workbook"),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/reports/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		payload := decodeBody(t, rec)
		assert.Equal(t, "/errors/validation", payload["type"])
	})

	t.Run("rejects missing files", func(t *testing.T) {
		router := newTestRouter(t, &fakeReportService{})

		body, contentType := multipartBody(t, "skip", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/reports/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps empty upload to 422", func(t *testing.T) {
		svc := &fakeReportService{err: services.ErrEmptyUpload}
		router := newTestRouter(t, svc)

		body, contentType := multipartBody(t, "skip", map[string][]byte{
			"report_2024-03-18.xlsx": []byte("workbook"),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/reports/upload", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestPreviewHandler(t *testing.T) {
	svc := &fakeReportService{previewResult: &services.PreviewResult{
		Mode:       domain.MergeModeCompositeKey,
		NewRecords: 1,
	}}
	router := newTestRouter(t, svc)

	body, contentType := multipartBody(t, "", map[string][]byte{
		"report_2024-03-18.xlsx": []byte("workbook"),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/reports/upload/preview", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	payload := decodeBody(t, rec)
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, "composite_key", data["mode"])
}

func TestGetRecordsHandler(t *testing.T) {
	t.Run("passes filter through", func(t *testing.T) {
		svc := &fakeReportService{records: []domain.Record{{}}}
		router := newTestRouter(t, svc)

		req := httptest.NewRequest(http.MethodGet,
			"/api/reports/records?start_date=2024-03-01&end_date=2024-03-31&account=Acme&campaign=Spring", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, svc.lastFilter.StartDate)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *svc.lastFilter.StartDate)
		assert.Equal(t, "Acme", svc.lastFilter.Account)
		assert.Equal(t, "Spring", svc.lastFilter.Campaign)

		payload := decodeBody(t, rec)
		assert.Equal(t, float64(1), payload["count"])
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		router := newTestRouter(t, &fakeReportService{})

		req := httptest.NewRequest(http.MethodGet, "/api/reports/records?start_date=03-01-2024", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		router := newTestRouter(t, &fakeReportService{})

		req := httptest.NewRequest(http.MethodGet,
			"/api/reports/records?start_date=2024-03-31&end_date=2024-03-01", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetAggregateHandler(t *testing.T) {
	t.Run("defaults to weekly", func(t *testing.T) {
		svc := &fakeReportService{rows: []domain.SummaryRow{{Period: "2024-03-18"}}}
		router := newTestRouter(t, svc)

		req := httptest.NewRequest(http.MethodGet, "/api/reports/aggregate", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.BucketWeekly, svc.lastBucket)
	})

	t.Run("rejects unknown bucket", func(t *testing.T) {
		router := newTestRouter(t, &fakeReportService{})

		req := httptest.NewRequest(http.MethodGet, "/api/reports/aggregate?bucket=hourly", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps empty history to 404", func(t *testing.T) {
		svc := &fakeReportService{err: services.ErrNoRecords}
		router := newTestRouter(t, svc)

		req := httptest.NewRequest(http.MethodGet, "/api/reports/aggregate?bucket=daily", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetSummaryHandler(t *testing.T) {
	t.Run("default top_n", func(t *testing.T) {
		svc := &fakeReportService{summary: &services.SummaryResult{RankMetric: domain.MetricOrders}}
		router := newTestRouter(t, svc)

		req := httptest.NewRequest(http.MethodGet, "/api/reports/summary", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, defaultTopN, svc.lastTopN)
	})

	t.Run("rejects out-of-range top_n", func(t *testing.T) {
		router := newTestRouter(t, &fakeReportService{})

		req := httptest.NewRequest(http.MethodGet, "/api/reports/summary?top_n=0", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExportHandler(t *testing.T) {
	t.Run("serves attachment", func(t *testing.T) {
		svc := &fakeReportService{artifact: &services.ExportArtifact{
			Filename:    "ad_summary_weekly_2024-03-18_to_2024-03-25.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        []byte("workbook"),
		}}
		router := newTestRouter(t, svc)

		req := httptest.NewRequest(http.MethodGet, "/api/reports/export?bucket=weekly&format=xlsx", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "ad_summary_weekly")
		assert.Equal(t, "workbook", rec.Body.String())
		assert.Equal(t, "xlsx", svc.lastExport.Format)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		router := newTestRouter(t, &fakeReportService{})

		req := httptest.NewRequest(http.MethodGet, "/api/reports/export?format=pdf", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestNotifyHandler(t *testing.T) {
	t.Run("passes window and defaults top_n", func(t *testing.T) {
		svc := &fakeReportService{}
		router := newTestRouter(t, svc)

		body := strings.NewReader(`{"start_date":"2024-03-01","end_date":"2024-03-31","bucket":"weekly"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/reports/notify", body)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.BucketWeekly, svc.lastNotify.Bucket)
		assert.Equal(t, defaultTopN, svc.lastNotify.TopN)
		require.NotNil(t, svc.lastNotify.Filter.StartDate)
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		svc := &fakeReportService{}
		router := newTestRouter(t, svc)

		req := httptest.NewRequest(http.MethodPost, "/api/reports/notify", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.BucketWeekly, svc.lastNotify.Bucket)
	})

	t.Run("rejects malformed window", func(t *testing.T) {
		router := newTestRouter(t, &fakeReportService{})

		body := strings.NewReader(`{"start_date":"March 1st"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/reports/notify", body)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps store disabled to 503", func(t *testing.T) {
		svc := &fakeReportService{err: services.ErrStoreDisabled}
		router := newTestRouter(t, svc)

		req := httptest.NewRequest(http.MethodPost, "/api/reports/notify", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	handler := NewHealthHandler("1.2.3", true, false)

	rec := httptest.NewRecorder()
	handler.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decodeBody(t, rec)
	assert.Equal(t, "healthy", payload["status"])
	assert.Equal(t, "1.2.3", payload["version"])
	assert.Equal(t, true, payload["sheets_enabled"])
	assert.Equal(t, false, payload["webhook_enabled"])

	rec = httptest.NewRecorder()
	handler.LivenessCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))
	assert.Equal(t, "alive", decodeBody(t, rec)["status"])
}
