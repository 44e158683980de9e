package report

import (
	"sort"
	"time"

	"oddeven-service/internal/domain/capture"
)

// Aggregate rolls a sequence of decision records into per-day verdict
// counts plus overall totals. Pure function of its input: order of the
// records does not affect the result, and an empty input yields zero
// totals with an empty breakdown.
func Aggregate(records []capture.DecisionRecord) capture.ReportResult {
	result := capture.ReportResult{Days: []capture.DayBreakdown{}}

	byDay := make(map[time.Time]*capture.DayBreakdown)
	for _, rec := range records {
		day := time.Date(rec.CaptureDate.Year(), rec.CaptureDate.Month(), rec.CaptureDate.Day(), 0, 0, 0, 0, time.UTC)
		bd, ok := byDay[day]
		if !ok {
			bd = &capture.DayBreakdown{Date: day}
			byDay[day] = bd
		}
		switch rec.Verdict {
		case capture.VerdictViolation:
			bd.Violations++
			result.TotalViolations++
		case capture.VerdictCompliant:
			bd.Compliant++
			result.TotalCompliant++
		default:
			bd.Undetermined++
			result.TotalUndetermined++
		}
		result.TotalRecords++
	}

	for _, bd := range byDay {
		result.Days = append(result.Days, *bd)
	}
	sort.Slice(result.Days, func(i, j int) bool {
		return result.Days[i].Date.Before(result.Days[j].Date)
	})
	return result
}
