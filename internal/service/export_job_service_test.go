package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/pkg/storage"
)

func newJobService(t *testing.T, ledger *fakeLedgerBuilder) *ExportJobService {
	t.Helper()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	exports := NewExportService(ledger, &fakeMatrixBuilder{matrix: &models.AttendanceMatrix{}}, nil, nil, nil)

	svc := NewExportJobService(exports, store, signer, nil, 1, nil, nil)
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func waitForJob(t *testing.T, svc *ExportJobService, id string) *ExportJob {
	t.Helper()

	var job *ExportJob
	require.Eventually(t, func() bool {
		j, err := svc.Status(id)
		if err != nil {
			return false
		}
		job = j
		return j.Status == ExportJobDone || j.Status == ExportJobFailed
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestExportJobRendersAndSigns(t *testing.T) {
	ledger := &fakeLedgerBuilder{report: &LedgerReport{
		Lines: []models.TuitionLine{
			{StudentName: "An", ClassName: "Math 9", Fee: 500000, TuitionStatus: models.TuitionStatusPaid},
		},
		Summary: models.TuitionSummary{TotalPaid: 500000},
	}}
	svc := newJobService(t, ledger)

	job, err := svc.Submit(context.Background(), ExportJobRequest{Kind: ExportKindTuitionCSV, Month: 2, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, ExportJobPending, job.Status)

	done := waitForJob(t, svc, job.ID)
	require.Equal(t, ExportJobDone, done.Status)
	assert.Equal(t, "tuition-2024-02.csv", done.Filename)
	assert.NotEmpty(t, done.Token)
	require.NotNil(t, done.CompletedAt)

	file, downloaded, err := svc.OpenDownload(done.Token)
	require.NoError(t, err)
	defer file.Close()

	body, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(body), "An")
	assert.Equal(t, "tuition-2024-02.csv", downloaded.Filename)
}

func TestExportJobFailureIsRecorded(t *testing.T) {
	ledger := &fakeLedgerBuilder{err: assert.AnError}
	svc := newJobService(t, ledger)

	job, err := svc.Submit(context.Background(), ExportJobRequest{Kind: ExportKindTuitionPDF, Month: 2, Year: 2024})
	require.NoError(t, err)

	done := waitForJob(t, svc, job.ID)
	assert.Equal(t, ExportJobFailed, done.Status)
	assert.NotEmpty(t, done.Error)
	assert.Empty(t, done.Token)
}

func TestExportJobRejectsBadRequests(t *testing.T) {
	svc := newJobService(t, &fakeLedgerBuilder{report: &LedgerReport{}})

	_, err := svc.Submit(context.Background(), ExportJobRequest{Kind: "spreadsheet"})
	require.Error(t, err)

	_, err = svc.Submit(context.Background(), ExportJobRequest{Kind: ExportKindAttendanceCSV})
	require.Error(t, err)
}

func TestExportJobStatusUnknownID(t *testing.T) {
	svc := newJobService(t, &fakeLedgerBuilder{report: &LedgerReport{}})

	_, err := svc.Status("missing")
	require.Error(t, err)
}

func TestExportJobBogusDownloadToken(t *testing.T) {
	svc := newJobService(t, &fakeLedgerBuilder{report: &LedgerReport{}})

	_, _, err := svc.OpenDownload("not.a.valid.token")
	require.Error(t, err)
}
