package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adpulse/pkg/contracts/domain"
)

// rec builds a test record with a campaign id, date and cost.
func rec(id, date string, cost float64) domain.Record {
	t, ok := ParseDate(date)
	r := domain.Record{Metrics: map[string]float64{domain.MetricCost: cost}}
	if ok {
		r.ReportDate = &t
	}
	if id != "" {
		r.CampaignID = &id
	}
	return r
}

// dateOnlyRec builds a record carrying only a date, no campaign id.
func dateOnlyRec(date string, cost float64) domain.Record {
	return rec("", date, cost)
}

func TestReconcile_FirstUpload(t *testing.T) {
	incoming := []domain.Record{
		rec("A", "2024-01-01", 10),
		rec("B", "2024-01-01", 20),
	}

	for _, policy := range []domain.MergePolicy{domain.SkipDuplicates, domain.OverwriteDuplicates} {
		t.Run(string(policy), func(t *testing.T) {
			result := Reconcile(nil, incoming, policy)

			assert.Equal(t, domain.MergeModeFirstUpload, result.Mode)
			assert.Equal(t, incoming, result.Merged)
			assert.Empty(t, result.Conflicts)
		})
	}
}

func TestReconcile_NoDatesInExistingIsFirstUpload(t *testing.T) {
	// A historical set whose dates all failed parsing upstream cannot be
	// merged against; treat it like a first upload.
	existing := []domain.Record{{CampaignID: domain.StringPtr("A")}}
	incoming := []domain.Record{rec("A", "2024-01-01", 10)}

	result := Reconcile(existing, incoming, domain.SkipDuplicates)

	assert.Equal(t, domain.MergeModeFirstUpload, result.Mode)
	assert.Equal(t, incoming, result.Merged)
}

func TestReconcile_SkipVersusOverwrite(t *testing.T) {
	existing := []domain.Record{rec("A", "2024-01-01", 10)}
	incoming := []domain.Record{rec("A", "2024-01-01", 20)}

	t.Run("skip keeps existing", func(t *testing.T) {
		result := Reconcile(existing, incoming, domain.SkipDuplicates)

		assert.Equal(t, domain.MergeModeCompositeKey, result.Mode)
		require.Len(t, result.Merged, 1)
		assert.InDelta(t, 10.0, result.Merged[0].MetricOrZero(domain.MetricCost), 1e-9)
		assert.Equal(t, 1, result.Skipped)
		require.Len(t, result.Conflicts, 1)
	})

	t.Run("overwrite takes incoming", func(t *testing.T) {
		result := Reconcile(existing, incoming, domain.OverwriteDuplicates)

		require.Len(t, result.Merged, 1)
		assert.InDelta(t, 20.0, result.Merged[0].MetricOrZero(domain.MetricCost), 1e-9)
		assert.Equal(t, 1, result.Overwrote)
	})
}

func TestReconcile_NoConflictsConcatenates(t *testing.T) {
	existing := []domain.Record{rec("A", "2024-01-01", 10)}
	incoming := []domain.Record{rec("B", "2024-01-01", 20), rec("A", "2024-01-02", 30)}

	result := Reconcile(existing, incoming, domain.SkipDuplicates)

	assert.Equal(t, domain.MergeModeCompositeKey, result.Mode)
	assert.Empty(t, result.Conflicts)
	require.Len(t, result.Merged, 3)
	// Order is existing-then-incoming.
	assert.Equal(t, "A", *result.Merged[0].CampaignID)
	assert.Equal(t, "B", *result.Merged[1].CampaignID)
}

func TestReconcile_NoDuplicateKeysSurvive(t *testing.T) {
	existing := []domain.Record{
		rec("A", "2024-01-01", 10),
		rec("B", "2024-01-01", 15),
		rec("A", "2024-01-02", 12),
	}
	incoming := []domain.Record{
		rec("A", "2024-01-01", 20),
		rec("B", "2024-01-02", 25),
		rec("C", "2024-01-01", 30),
	}

	for _, policy := range []domain.MergePolicy{domain.SkipDuplicates, domain.OverwriteDuplicates} {
		t.Run(string(policy), func(t *testing.T) {
			result := Reconcile(existing, incoming, policy)

			seen := make(map[string]bool)
			for _, r := range result.Merged {
				key, ok := r.Key()
				require.True(t, ok)
				assert.False(t, seen[key], "duplicate key %s in merged set", key)
				seen[key] = true
			}
		})
	}
}

func TestReconcile_OverwriteIsIdempotent(t *testing.T) {
	existing := []domain.Record{
		rec("A", "2024-01-01", 10),
		rec("B", "2024-01-01", 15),
	}
	incoming := []domain.Record{
		rec("A", "2024-01-01", 20),
		rec("C", "2024-01-02", 30),
	}

	once := Reconcile(existing, incoming, domain.OverwriteDuplicates)
	twice := Reconcile(once.Merged, incoming, domain.OverwriteDuplicates)

	assert.Equal(t, once.Merged, twice.Merged, "re-running an overwrite must be a no-op")
}

func TestReconcile_DateOnlyFallback(t *testing.T) {
	existing := []domain.Record{dateOnlyRec("2024-01-01", 10)}
	incoming := []domain.Record{
		rec("A", "2024-01-01", 20),
		rec("B", "2024-01-02", 30),
	}

	result := Reconcile(existing, incoming, domain.OverwriteDuplicates)

	assert.Equal(t, domain.MergeModeDateOnly, result.Mode, "missing id on one side must be flagged distinctly")
	require.Len(t, result.Merged, 2)
	// The entire colliding day is dropped, overwrite is not offered.
	assert.InDelta(t, 10.0, result.Merged[0].MetricOrZero(domain.MetricCost), 1e-9)
	assert.InDelta(t, 30.0, result.Merged[1].MetricOrZero(domain.MetricCost), 1e-9)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Conflicts, 1)
}

func TestReconcile_IncomingBatchDedupedAgainstItself(t *testing.T) {
	incoming := []domain.Record{
		rec("A", "2024-01-01", 10),
		rec("B", "2024-01-01", 15),
		rec("A", "2024-01-01", 99),
	}

	result := Reconcile(nil, incoming, domain.SkipDuplicates)

	require.Len(t, result.Merged, 2)
	// Last record wins for a key duplicated within the batch.
	assert.Equal(t, "B", *result.Merged[0].CampaignID)
	assert.Equal(t, "A", *result.Merged[1].CampaignID)
	assert.InDelta(t, 99.0, result.Merged[1].MetricOrZero(domain.MetricCost), 1e-9)
}

func TestReconcile_Deterministic(t *testing.T) {
	existing := []domain.Record{
		rec("A", "2024-01-01", 10),
		rec("B", "2024-01-02", 15),
	}
	incoming := []domain.Record{
		rec("B", "2024-01-02", 25),
		rec("C", "2024-01-03", 35),
	}

	first := Reconcile(existing, incoming, domain.SkipDuplicates)
	for i := 0; i < 10; i++ {
		again := Reconcile(existing, incoming, domain.SkipDuplicates)
		require.Equal(t, first, again)
	}
}

func TestReconcile_PolicyParsing(t *testing.T) {
	policy, err := domain.ParseMergePolicy("overwrite")
	require.NoError(t, err)
	assert.Equal(t, domain.OverwriteDuplicates, policy)

	policy, err = domain.ParseMergePolicy("")
	require.NoError(t, err)
	assert.Equal(t, domain.SkipDuplicates, policy)

	_, err = domain.ParseMergePolicy("merge")
	assert.Error(t, err)
}

func TestRecordKey(t *testing.T) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	r := domain.Record{CampaignID: domain.StringPtr(" A "), ReportDate: &d}
	key, ok := r.Key()
	require.True(t, ok)
	assert.Equal(t, "A|2024-01-01", key, "ids compare trimmed")

	_, ok = domain.Record{ReportDate: &d}.Key()
	assert.False(t, ok)

	_, ok = domain.Record{CampaignID: domain.StringPtr("A")}.Key()
	assert.False(t, ok)
}
