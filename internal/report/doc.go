// Package report implements the core of the ad-report pipeline: normalizing
// raw tabular batches into records, classifying campaigns into accounts,
// reconciling uploads against the historical set, and aggregating records
// into period summaries with recomputed ratio metrics.
//
// The package is pure computation. It performs no I/O and holds no state
// between calls; reading the spreadsheet store, parsing uploaded files and
// delivering notifications belong to the surrounding packages (sheetstore,
// ingest, exporter, notify).
//
// # Data Flow
//
//	Uploaded xlsx → ingest → []domain.Record → Reconcile → sheetstore
//	sheetstore → NormalizeBatch → Aggregate / TopCampaigns / KPIs → exporter, notify
//
// All ratio metrics (roi, cost_per_order) in any output of this package are
// recomputed from summed numerators and denominators with safe division:
// a zero or missing denominator yields 0, never infinity or NaN.
package report
