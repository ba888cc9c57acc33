package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/internal/timetable"
)

func TestSummarizeSeparatesCountsFromSums(t *testing.T) {
	lines := []models.TuitionLine{
		{Fee: 500000, TuitionStatus: models.TuitionStatusPaid},
		{Fee: 450000, TuitionStatus: models.TuitionStatusPaid},
		{Fee: 500000, TuitionStatus: models.TuitionStatusUnpaid},
		{Fee: 450000, TuitionStatus: models.TuitionStatusNotCreated},
		{Fee: 450000, TuitionStatus: models.TuitionStatusNotCreated},
	}
	summary := Summarize(lines)
	assert.Equal(t, int64(950000), summary.TotalPaid)
	assert.Equal(t, int64(500000), summary.TotalUnpaid)
	assert.Equal(t, 2, summary.TotalNotCreated)
}

func TestSummarizeIsAdditiveOverPartitions(t *testing.T) {
	lines := []models.TuitionLine{
		{Fee: 100, TuitionStatus: models.TuitionStatusPaid},
		{Fee: 200, TuitionStatus: models.TuitionStatusUnpaid},
		{Fee: 300, TuitionStatus: models.TuitionStatusPaid},
		{Fee: 400, TuitionStatus: models.TuitionStatusNotCreated},
	}
	whole := Summarize(lines)
	for split := 0; split <= len(lines); split++ {
		combined := CombineSummaries(Summarize(lines[:split]), Summarize(lines[split:]))
		assert.Equal(t, whole, combined, "split at %d", split)
	}
}

func TestClassRevenuesGroupsAndSorts(t *testing.T) {
	lines := []models.TuitionLine{
		{ClassID: "b", ClassName: "Văn 9", Fee: 400000, TuitionStatus: models.TuitionStatusPaid},
		{ClassID: "a", ClassName: "Toán 9", Fee: 500000, TuitionStatus: models.TuitionStatusPaid},
		{ClassID: "a", ClassName: "Toán 9", Fee: 500000, TuitionStatus: models.TuitionStatusUnpaid},
		{ClassID: "a", ClassName: "Toán 9", Fee: 500000, TuitionStatus: models.TuitionStatusNotCreated},
	}
	revenues := ClassRevenues(lines)
	require.Len(t, revenues, 2)

	math := revenues[0]
	assert.Equal(t, "Toán 9", math.ClassName)
	assert.Equal(t, int64(500000), math.Revenue, "only paid lines count toward revenue")
	assert.Equal(t, 1, math.PaidCount)
	assert.Equal(t, 1, math.UnpaidCount)
	assert.Equal(t, 3, math.EnrolledCount)

	assert.Equal(t, "Văn 9", revenues[1].ClassName)
}

func TestComputeAttendanceStatsCountsPending(t *testing.T) {
	matrix := models.AttendanceMatrix{
		Classes: []models.ClassMatrix{{
			ClassID:  "class-1",
			Sessions: make([]timetable.Session, 4),
			People:   make([]models.MatrixPerson, 3),
		}},
		Cells: map[string]models.AttendanceCell{
			"a": {Present: true},
			"b": {Present: true},
			"c": {Present: false},
		},
	}
	stats := ComputeAttendanceStats(matrix)
	assert.Equal(t, 2, stats.Present)
	assert.Equal(t, 1, stats.Absent)
	assert.Equal(t, 9, stats.Pending, "12 expected cells minus 3 recorded")
}

func TestComputeAttendanceStatsEmptyMatrix(t *testing.T) {
	stats := ComputeAttendanceStats(models.AttendanceMatrix{Cells: map[string]models.AttendanceCell{}})
	assert.Zero(t, stats.Present)
	assert.Zero(t, stats.Absent)
	assert.Zero(t, stats.Pending)
}
