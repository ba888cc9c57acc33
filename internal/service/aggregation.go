package service

import (
	"sort"

	"github.com/tutorbase/tutor-api/internal/models"
)

// Summarize reduces ledger lines into global totals. Paid and unpaid totals
// are monetary sums of the resolved fee; not-created is a count because those
// lines carry no recorded amount. The reduction is order-independent, so
// summaries over disjoint line sets can be combined.
func Summarize(lines []models.TuitionLine) models.TuitionSummary {
	var summary models.TuitionSummary
	for _, line := range lines {
		switch line.TuitionStatus {
		case models.TuitionStatusPaid:
			summary.TotalPaid += line.Fee
		case models.TuitionStatusUnpaid:
			summary.TotalUnpaid += line.Fee
		default:
			summary.TotalNotCreated++
		}
	}
	return summary
}

// CombineSummaries merges summaries computed over disjoint line sets.
func CombineSummaries(a, b models.TuitionSummary) models.TuitionSummary {
	return models.TuitionSummary{
		TotalPaid:       a.TotalPaid + b.TotalPaid,
		TotalUnpaid:     a.TotalUnpaid + b.TotalUnpaid,
		TotalNotCreated: a.TotalNotCreated + b.TotalNotCreated,
	}
}

// ClassRevenues groups ledger lines per class. Revenue counts paid lines
// only. Output is sorted by class name for stable presentation.
func ClassRevenues(lines []models.TuitionLine) []models.ClassRevenue {
	byClass := make(map[string]*models.ClassRevenue)
	for _, line := range lines {
		rev, ok := byClass[line.ClassID]
		if !ok {
			rev = &models.ClassRevenue{ClassID: line.ClassID, ClassName: line.ClassName}
			byClass[line.ClassID] = rev
		}
		rev.EnrolledCount++
		switch line.TuitionStatus {
		case models.TuitionStatusPaid:
			rev.Revenue += line.Fee
			rev.PaidCount++
		case models.TuitionStatusUnpaid:
			rev.UnpaidCount++
		}
	}

	revenues := make([]models.ClassRevenue, 0, len(byClass))
	for _, rev := range byClass {
		revenues = append(revenues, *rev)
	}
	sort.Slice(revenues, func(i, j int) bool {
		if revenues[i].ClassName != revenues[j].ClassName {
			return revenues[i].ClassName < revenues[j].ClassName
		}
		return revenues[i].ClassID < revenues[j].ClassID
	})
	return revenues
}

// ComputeAttendanceStats reduces a matrix into present/absent/pending counts.
// Pending is the expected grid size minus the recorded cells.
func ComputeAttendanceStats(matrix models.AttendanceMatrix) models.AttendanceStats {
	var stats models.AttendanceStats
	for _, cell := range matrix.Cells {
		if cell.Present {
			stats.Present++
		} else {
			stats.Absent++
		}
	}
	stats.Pending = matrix.ExpectedCells() - stats.Present - stats.Absent
	if stats.Pending < 0 {
		stats.Pending = 0
	}
	return stats
}
