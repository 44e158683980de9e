package report

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oddeven-service/internal/domain/capture"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregateEmpty(t *testing.T) {
	result := Aggregate(nil)
	assert.Zero(t, result.TotalRecords)
	assert.Zero(t, result.TotalViolations)
	assert.Zero(t, result.TotalCompliant)
	assert.Zero(t, result.TotalUndetermined)
	assert.Empty(t, result.Days)
}

func TestAggregateCountsAndOrdering(t *testing.T) {
	records := []capture.DecisionRecord{
		{CaptureDate: day(5), Verdict: capture.VerdictViolation},
		{CaptureDate: day(3), Verdict: capture.VerdictCompliant},
		{CaptureDate: day(5), Verdict: capture.VerdictCompliant},
		{CaptureDate: day(5), Verdict: capture.VerdictUndetermined},
		{CaptureDate: day(3), Verdict: capture.VerdictViolation},
		{CaptureDate: day(4), Verdict: capture.VerdictViolation},
	}

	result := Aggregate(records)
	assert.Equal(t, 6, result.TotalRecords)
	assert.Equal(t, 3, result.TotalViolations)
	assert.Equal(t, 2, result.TotalCompliant)
	assert.Equal(t, 1, result.TotalUndetermined)

	require.Len(t, result.Days, 3)
	assert.Equal(t, day(3), result.Days[0].Date)
	assert.Equal(t, day(4), result.Days[1].Date)
	assert.Equal(t, day(5), result.Days[2].Date)

	assert.Equal(t, capture.DayBreakdown{Date: day(3), Violations: 1, Compliant: 1}, result.Days[0])
	assert.Equal(t, capture.DayBreakdown{Date: day(4), Violations: 1}, result.Days[1])
	assert.Equal(t, capture.DayBreakdown{Date: day(5), Violations: 1, Compliant: 1, Undetermined: 1}, result.Days[2])
}

func TestAggregateOrderIndependent(t *testing.T) {
	verdicts := []capture.Verdict{capture.VerdictViolation, capture.VerdictCompliant, capture.VerdictUndetermined}
	records := make([]capture.DecisionRecord, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, capture.DecisionRecord{
			CaptureDate: day(1 + i%7),
			Verdict:     verdicts[i%3],
		})
	}

	expected := Aggregate(records)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 5; trial++ {
		shuffled := make([]capture.DecisionRecord, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		assert.Equal(t, expected, Aggregate(shuffled))
	}
}

func TestAggregateNormalizesTimeOfDay(t *testing.T) {
	records := []capture.DecisionRecord{
		{CaptureDate: time.Date(2024, 3, 7, 8, 15, 0, 0, time.UTC), Verdict: capture.VerdictViolation},
		{CaptureDate: time.Date(2024, 3, 7, 17, 45, 0, 0, time.UTC), Verdict: capture.VerdictCompliant},
	}

	result := Aggregate(records)
	require.Len(t, result.Days, 1)
	assert.Equal(t, day(7), result.Days[0].Date)
	assert.Equal(t, 1, result.Days[0].Violations)
	assert.Equal(t, 1, result.Days[0].Compliant)
}
