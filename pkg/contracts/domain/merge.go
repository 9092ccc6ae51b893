package domain

import "fmt"

// MergePolicy decides what happens to incoming records whose identity key
// already exists in the historical set.
type MergePolicy string

const (
	// SkipDuplicates keeps the existing record and discards the incoming one.
	SkipDuplicates MergePolicy = "skip"
	// OverwriteDuplicates replaces the existing record with the incoming one.
	OverwriteDuplicates MergePolicy = "overwrite"
)

// ParseMergePolicy validates a policy string from a request or CLI flag.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(s) {
	case SkipDuplicates, OverwriteDuplicates:
		return MergePolicy(s), nil
	case "":
		return SkipDuplicates, nil
	}
	return "", fmt.Errorf("unknown merge policy %q", s)
}

// MergeMode reports which reconciliation path produced a merge result.
type MergeMode string

const (
	// MergeModeFirstUpload means the historical set was empty; the incoming
	// batch was taken verbatim.
	MergeModeFirstUpload MergeMode = "first_upload"
	// MergeModeCompositeKey means both sides carried campaign IDs and the
	// merge deduplicated on (campaign_id, report_date).
	MergeModeCompositeKey MergeMode = "composite_key"
	// MergeModeDateOnly is the coarse fallback used when a campaign_id
	// dimension is unavailable: whole days collide, not single campaigns.
	// Callers should surface this weaker guarantee to the user.
	MergeModeDateOnly MergeMode = "date_only"
)

// MergeResult is the outcome of reconciling an incoming batch against the
// historical record set.
type MergeResult struct {
	Merged     []Record    `json:"merged"`
	Conflicts  []Record    `json:"conflicts"`
	Mode       MergeMode   `json:"mode"`
	Policy     MergePolicy `json:"policy"`
	Overwrote  int         `json:"overwrote"`
	Skipped    int         `json:"skipped"`
}
