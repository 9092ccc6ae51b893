package http

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "adpulse/internal/errors"
	"adpulse/internal/ingest"
	appmiddleware "adpulse/internal/middleware"
	"adpulse/internal/services"
	"adpulse/pkg/contracts/domain"
)

const defaultTopN = 5

// ReportHandler handles the report API with RFC 7807 error responses.
type ReportHandler struct {
	service        ReportServiceInterface
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	validator      *appmiddleware.Validator
	maxUploadBytes int64
}

// NewReportHandler creates a report handler.
func NewReportHandler(service ReportServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:        service,
		logger:         logger.With(slog.String("component", "report_handler")),
		errorHandler:   errorHandler,
		validator:      appmiddleware.NewValidator(),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the report routes.
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/upload", h.Upload)
	r.Post("/upload/preview", h.Preview)
	r.Get("/records", h.GetRecords)
	r.Get("/aggregate", h.GetAggregate)
	r.Get("/summary", h.GetSummary)
	r.Get("/export", h.Export)
	r.Post("/notify", h.Notify)

	return r
}

// Upload handles POST /api/reports/upload. Accepts one or more report
// workbooks as multipart "files" parts plus an optional "merge_policy"
// field, reconciles them against history and persists the result.
func (h *ReportHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uploads, closeAll, apiErr := h.parseUploadForm(w, r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}
	defer closeAll()

	policy, err := domain.ParseMergePolicy(r.FormValue("merge_policy"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("merge_policy", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "upload received",
		slog.String("request_id", appmiddleware.GetRequestID(r.Context())),
		slog.Int("files", len(uploads)),
		slog.String("merge_policy", string(policy)),
	)

	result, err := h.service.Upload(r.Context(), uploads, policy)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}

// Preview handles POST /api/reports/upload/preview. Runs reconciliation
// without persisting so the caller can inspect conflicts first.
func (h *ReportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	uploads, closeAll, apiErr := h.parseUploadForm(w, r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}
	defer closeAll()

	result, err := h.service.Preview(r.Context(), uploads)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
	})
}

// GetRecords handles GET /api/reports/records.
func (h *ReportHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	filter, apiErr := parseFilter(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	records, err := h.service.Records(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   records,
		"count":  len(records),
	})
}

// GetAggregate handles GET /api/reports/aggregate.
func (h *ReportHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	filter, apiErr := parseFilter(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	bucket, err := domain.ParseBucket(r.URL.Query().Get("bucket"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("bucket", err.Error()))
		return
	}

	rows, err := h.service.Aggregate(r.Context(), filter, bucket)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   rows,
		"count":  len(rows),
		"bucket": bucket,
	})
}

// GetSummary handles GET /api/reports/summary.
func (h *ReportHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	filter, apiErr := parseFilter(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	topN := defaultTopN
	if raw := r.URL.Query().Get("top_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("top_n", "top_n must be a number between 1 and 100"))
			return
		}
		topN = n
	}

	summary, err := h.service.Summary(r.Context(), filter, topN)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// Export handles GET /api/reports/export. Streams the generated workbook
// or CSV as an attachment.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, apiErr := parseFilter(r)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	bucket, err := domain.ParseBucket(r.URL.Query().Get("bucket"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("bucket", err.Error()))
		return
	}

	format := r.URL.Query().Get("format")
	if format != "" && format != "xlsx" && format != "csv" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "format must be xlsx or csv"))
		return
	}

	artifact, err := h.service.Export(r.Context(), services.ExportRequest{
		Filter: filter,
		Bucket: bucket,
		Format: format,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "serving export",
		slog.String("request_id", appmiddleware.GetRequestID(r.Context())),
		slog.String("filename", artifact.Filename),
		slog.Int("bytes", len(artifact.Data)),
	)

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Write(artifact.Data)
}

// Notify handles POST /api/reports/notify.
func (h *ReportHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate string `json:"start_date" validate:"omitempty,isodate"`
		EndDate   string `json:"end_date" validate:"omitempty,isodate"`
		Bucket    string `json:"bucket" validate:"omitempty,bucket"`
		TopN      int    `json:"top_n" validate:"omitempty,min=1,max=100"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filter, apiErr := filterFromDates(req.StartDate, req.EndDate)
	if apiErr != nil {
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	bucket, err := domain.ParseBucket(req.Bucket)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("bucket", err.Error()))
		return
	}

	topN := req.TopN
	if topN <= 0 {
		topN = defaultTopN
	}

	if err := h.service.Notify(r.Context(), services.NotifyRequest{
		Filter: filter,
		Bucket: bucket,
		TopN:   topN,
	}); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
	})
}

// parseUploadForm reads the multipart form and opens every "files" part.
// The returned closer must be deferred by the caller.
func (h *ReportHandler) parseUploadForm(w http.ResponseWriter, r *http.Request) ([]ingest.Upload, func(), *apierrors.APIError) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return nil, nil, apierrors.New(
				http.StatusRequestEntityTooLarge,
				"UPLOAD_TOO_LARGE",
				fmt.Sprintf("Upload exceeds the %d byte limit", h.maxUploadBytes),
			)
		}
		return nil, nil, apierrors.InvalidRequestWithError(err)
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, nil, apierrors.ErrValidation("files", "At least one report file is required")
	}

	var (
		uploads []ingest.Upload
		opened  []multipart.File
	)
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, apierrors.MalformedUploadError(fh.Filename, err)
		}
		opened = append(opened, f)
		uploads = append(uploads, ingest.Upload{Filename: fh.Filename, Content: f})
	}
	return uploads, closeAll, nil
}

// handleServiceError maps service sentinels onto API errors before falling
// back to the shared handler.
func (h *ReportHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "report operation failed",
		slog.String("request_id", appmiddleware.GetRequestID(r.Context())),
		slog.String("error", err.Error()),
	)

	switch {
	case errors.Is(err, services.ErrNoRecords):
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusNotFound,
			"NO_RECORDS",
			"No records available for the requested window",
		))
	case errors.Is(err, services.ErrNoUploads):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("files", "At least one report file is required"))
	case errors.Is(err, services.ErrEmptyUpload):
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusUnprocessableEntity,
			"EMPTY_UPLOAD",
			"Upload contained no usable rows",
		))
	case errors.Is(err, services.ErrStoreDisabled):
		h.errorHandler.HandleError(w, r, apierrors.New(
			http.StatusServiceUnavailable,
			"STORE_DISABLED",
			"Spreadsheet store is not configured",
		))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

// parseFilter reads the shared date-window and dimension query parameters.
func parseFilter(r *http.Request) (services.RecordFilter, *apierrors.APIError) {
	q := r.URL.Query()
	filter, apiErr := filterFromDates(q.Get("start_date"), q.Get("end_date"))
	if apiErr != nil {
		return services.RecordFilter{}, apiErr
	}
	filter.Account = q.Get("account")
	filter.Campaign = q.Get("campaign")
	return filter, nil
}

func filterFromDates(start, end string) (services.RecordFilter, *apierrors.APIError) {
	var filter services.RecordFilter
	if start != "" {
		day, err := time.Parse(domain.DateFormat, start)
		if err != nil {
			return filter, apierrors.ErrValidation("start_date", "start_date must be formatted YYYY-MM-DD")
		}
		filter.StartDate = &day
	}
	if end != "" {
		day, err := time.Parse(domain.DateFormat, end)
		if err != nil {
			return filter, apierrors.ErrValidation("end_date", "end_date must be formatted YYYY-MM-DD")
		}
		filter.EndDate = &day
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return filter, apierrors.ErrValidation("end_date", "end_date must not be before start_date")
	}
	return filter, nil
}
