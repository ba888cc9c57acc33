package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/internal/period"
	"github.com/tutorbase/tutor-api/internal/timetable"
)

func TestTuitionCSVIncludesTotals(t *testing.T) {
	ledger := &fakeLedgerBuilder{report: &LedgerReport{
		Lines: []models.TuitionLine{
			{StudentName: "An", StudentPhone: "0901", ClassName: "Math 9", Status: models.EnrollmentStatusActive, Fee: 500000, TuitionStatus: models.TuitionStatusPaid},
			{StudentName: "Binh", StudentPhone: "0902", ClassName: "Math 9", Status: models.EnrollmentStatusTrial, Fee: 450000, TuitionStatus: models.TuitionStatusNotCreated},
		},
		Summary: models.TuitionSummary{TotalPaid: 500000, TotalNotCreated: 1},
	}}
	svc := NewExportService(ledger, &fakeMatrixBuilder{}, nil, nil, nil)

	file, err := svc.TuitionCSV(context.Background(), ReconcileRequest{Month: 2, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, "tuition-2024-02.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	body := string(file.Data)
	assert.Contains(t, body, "An")
	assert.Contains(t, body, "500.000")
	assert.Contains(t, body, "NOT_CREATED")
	assert.Contains(t, body, "Totals")
}

func TestTuitionPDFRenders(t *testing.T) {
	ledger := &fakeLedgerBuilder{report: &LedgerReport{
		Lines: []models.TuitionLine{
			{StudentName: "An", ClassName: "Math 9", Fee: 500000, TuitionStatus: models.TuitionStatusPaid},
		},
		Summary: models.TuitionSummary{TotalPaid: 500000},
	}}
	svc := NewExportService(ledger, &fakeMatrixBuilder{}, nil, nil, nil)

	file, err := svc.TuitionPDF(context.Background(), ReconcileRequest{Month: 2, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestAttendanceCSVMarksPendingCells(t *testing.T) {
	start, err := timetable.ParseClock("18:00")
	require.NoError(t, err)
	date, err := period.ParseDate("2024-02-01")
	require.NoError(t, err)

	matrix := &fakeMatrixBuilder{matrix: &models.AttendanceMatrix{
		Classes: []models.ClassMatrix{{
			ClassID:  "class-1",
			Name:     "Math 9",
			Sessions: []timetable.Session{{ClassID: "class-1", Date: date, Start: start, End: start}},
			People: []models.MatrixPerson{
				{ID: "stu-1", Kind: models.PersonKindStudent, FullName: "An"},
				{ID: "stu-2", Kind: models.PersonKindStudent, FullName: "Binh"},
			},
		}},
		Cells: map[string]models.AttendanceCell{
			models.CellKey("class-1", "stu-1", "2024-02-01", "18:00"): {Present: true},
		},
	}}
	svc := NewExportService(&fakeLedgerBuilder{}, matrix, nil, nil, nil)

	file, err := svc.AttendanceCSV(context.Background(), MatrixRequest{From: "2024-02-01", To: "2024-02-29"})
	require.NoError(t, err)

	body := string(file.Data)
	assert.Contains(t, body, "PRESENT")
	assert.Contains(t, body, "PENDING")
	assert.NotContains(t, body, "ABSENT,")
}
