package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"adpulse/pkg/contracts/domain"
)

func TestClassifyAccount(t *testing.T) {
	tests := []struct {
		name         string
		campaignName string
		want         string
	}{
		{
			name:         "granitestone match",
			campaignName: "Granitestone Diamond Pan BAU",
			want:         "Granitestone",
		},
		{
			name:         "bell and howell match",
			campaignName: "Q3 Bell and Howell Torch",
			want:         "Bell+Howell",
		},
		{
			name:         "case insensitive",
			campaignName: "GRANITESTONE blue series",
			want:         "Granitestone",
		},
		{
			name:         "no match falls back",
			campaignName: "Copper Chef Promo",
			want:         "Other Accounts",
		},
		{
			name:         "empty input falls back",
			campaignName: "",
			want:         "Other Accounts",
		},
		{
			name:         "whitespace only falls back",
			campaignName: "   ",
			want:         "Other Accounts",
		},
		{
			// Both patterns co-occur; the rule order puts granitestone
			// first, so it must win.
			name:         "overlapping patterns resolve by rule order",
			campaignName: "Granitestone Bell and Howell Promo",
			want:         "Granitestone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyAccount(tt.campaignName))
		})
	}
}

func TestClassifyRecords(t *testing.T) {
	existing := "Granitestone"
	records := []domain.Record{
		{CampaignName: domain.StringPtr("Bell and Howell Clever Grip")},
		{CampaignName: domain.StringPtr("Unknown Brand"), AccountName: &existing},
		{},
	}

	ClassifyRecords(records)

	assert.Equal(t, "Bell+Howell", records[0].Account())
	assert.Equal(t, "Granitestone", records[1].Account(), "preset label must not be overwritten")
	assert.Equal(t, "Other Accounts", records[2].Account(), "missing campaign name uses default")
}
