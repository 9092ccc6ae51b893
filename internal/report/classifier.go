package report

import (
	"strings"

	"adpulse/pkg/contracts/domain"
)

// accountRule maps a campaign-name substring to an account label.
type accountRule struct {
	pattern string
	label   string
}

// accountRules is evaluated in order; the first matching pattern wins, so
// the order here is load-bearing when patterns co-occur in one name.
var accountRules = []accountRule{
	{"granitestone", "Granitestone"},
	{"bell and howell", "Bell+Howell"},
}

// ClassifyAccount derives an account label from a free-text campaign name by
// case-insensitive substring matching. Unmatched or empty names fall back to
// the default label.
func ClassifyAccount(campaignName string) string {
	name := strings.ToLower(strings.TrimSpace(campaignName))
	if name == "" {
		return domain.DefaultAccount
	}
	for _, rule := range accountRules {
		if strings.Contains(name, rule.pattern) {
			return rule.label
		}
	}
	return domain.DefaultAccount
}

// ClassifyRecords fills in the account dimension for records that lack it.
// Records with an account label already set are left alone.
func ClassifyRecords(records []domain.Record) {
	for i := range records {
		if records[i].AccountName != nil {
			continue
		}
		label := ClassifyAccount(records[i].Campaign())
		records[i].AccountName = &label
	}
}
