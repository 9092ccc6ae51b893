package report

import (
	"adpulse/pkg/contracts/domain"
)

// Reconcile merges an incoming batch of normalized records into the existing
// historical set, detecting duplicates on the (campaign_id, report_date)
// composite key and resolving them per the given policy.
//
// Three paths, in order of preference:
//
//  1. First upload: existing is empty or carries no usable report_date, so
//     the incoming batch is taken verbatim.
//  2. Composite key: both sides carry campaign IDs; conflicts are incoming
//     records whose key exactly matches an existing one, resolved per policy.
//  3. Date-only fallback: a campaign_id dimension is missing on either side;
//     incoming records whose date already exists anywhere in the historical
//     set are dropped entirely. The result is flagged MergeModeDateOnly so
//     callers can surface the weaker guarantee.
//
// The incoming batch is first deduplicated against itself on the composite
// key, last record winning, so two uploaded files claiming the same
// campaign-day cannot both survive the merge.
//
// Reconcile is deterministic: merged order is existing-then-incoming and the
// same inputs always yield the same result.
func Reconcile(existing, incoming []domain.Record, policy domain.MergePolicy) domain.MergeResult {
	incoming = dedupeWithin(incoming)

	result := domain.MergeResult{
		Conflicts: []domain.Record{},
		Policy:    policy,
	}

	if !hasUsableDates(existing) {
		result.Mode = domain.MergeModeFirstUpload
		result.Merged = append([]domain.Record{}, incoming...)
		return result
	}

	if hasCampaignIDs(existing) && hasCampaignIDs(incoming) {
		return reconcileByKey(existing, incoming, policy, result)
	}
	return reconcileByDate(existing, incoming, result)
}

// reconcileByKey performs the composite-key merge.
func reconcileByKey(existing, incoming []domain.Record, policy domain.MergePolicy, result domain.MergeResult) domain.MergeResult {
	result.Mode = domain.MergeModeCompositeKey

	existingKeys := make(map[string]bool, len(existing))
	for _, rec := range existing {
		if key, ok := rec.Key(); ok {
			existingKeys[key] = true
		}
	}

	conflictKeys := make(map[string]bool)
	for _, rec := range incoming {
		if key, ok := rec.Key(); ok && existingKeys[key] {
			conflictKeys[key] = true
			result.Conflicts = append(result.Conflicts, rec)
		}
	}

	if len(conflictKeys) == 0 {
		result.Merged = concat(existing, incoming)
		return result
	}

	switch policy {
	case domain.OverwriteDuplicates:
		// Existing records sharing a conflicted key are dropped; every
		// incoming record survives.
		kept := make([]domain.Record, 0, len(existing))
		for _, rec := range existing {
			if key, ok := rec.Key(); ok && conflictKeys[key] {
				result.Overwrote++
				continue
			}
			kept = append(kept, rec)
		}
		result.Merged = concat(kept, incoming)
	default:
		// Skip: existing wins, conflicted incoming records are discarded.
		kept := make([]domain.Record, 0, len(incoming))
		for _, rec := range incoming {
			if key, ok := rec.Key(); ok && conflictKeys[key] {
				result.Skipped++
				continue
			}
			kept = append(kept, rec)
		}
		result.Merged = concat(existing, kept)
	}
	return result
}

// reconcileByDate is the coarse fallback: any incoming record whose report
// date already exists in the historical set is dropped, whole days at a time.
func reconcileByDate(existing, incoming []domain.Record, result domain.MergeResult) domain.MergeResult {
	result.Mode = domain.MergeModeDateOnly

	existingDates := make(map[string]bool, len(existing))
	for _, rec := range existing {
		if key, ok := rec.DateKey(); ok {
			existingDates[key] = true
		}
	}

	kept := make([]domain.Record, 0, len(incoming))
	for _, rec := range incoming {
		if key, ok := rec.DateKey(); ok && existingDates[key] {
			result.Skipped++
			result.Conflicts = append(result.Conflicts, rec)
			continue
		}
		kept = append(kept, rec)
	}
	result.Merged = concat(existing, kept)
	return result
}

// dedupeWithin removes composite-key duplicates inside a single batch, last
// record winning. Records without a usable key pass through untouched.
func dedupeWithin(records []domain.Record) []domain.Record {
	lastIndex := make(map[string]int, len(records))
	for i, rec := range records {
		if key, ok := rec.Key(); ok {
			lastIndex[key] = i
		}
	}
	out := make([]domain.Record, 0, len(records))
	for i, rec := range records {
		if key, ok := rec.Key(); ok && lastIndex[key] != i {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// hasUsableDates reports whether any record carries a parsed report_date.
func hasUsableDates(records []domain.Record) bool {
	for _, rec := range records {
		if rec.ReportDate != nil {
			return true
		}
	}
	return false
}

// hasCampaignIDs reports whether the campaign_id dimension is present on at
// least one record, the row-of-structs equivalent of a column-presence check.
func hasCampaignIDs(records []domain.Record) bool {
	for _, rec := range records {
		if rec.CampaignID != nil {
			return true
		}
	}
	return false
}

func concat(a, b []domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
