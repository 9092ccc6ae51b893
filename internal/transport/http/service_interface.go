package http

import (
	"context"

	"adpulse/internal/ingest"
	"adpulse/internal/services"
	"adpulse/pkg/contracts/domain"
)

// ReportServiceInterface is the service surface the handlers depend on.
// Defined here so tests can substitute a fake without the real
// collaborators.
type ReportServiceInterface interface {
	Upload(ctx context.Context, uploads []ingest.Upload, policy domain.MergePolicy) (*services.UploadResult, error)
	Preview(ctx context.Context, uploads []ingest.Upload) (*services.PreviewResult, error)
	Records(ctx context.Context, filter services.RecordFilter) ([]domain.Record, error)
	Aggregate(ctx context.Context, filter services.RecordFilter, bucket domain.Bucket) ([]domain.SummaryRow, error)
	Summary(ctx context.Context, filter services.RecordFilter, topN int) (*services.SummaryResult, error)
	Export(ctx context.Context, req services.ExportRequest) (*services.ExportArtifact, error)
	Notify(ctx context.Context, req services.NotifyRequest) error
}
