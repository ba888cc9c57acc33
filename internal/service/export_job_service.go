package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/tutorbase/tutor-api/pkg/errors"
	"github.com/tutorbase/tutor-api/pkg/jobs"
	"github.com/tutorbase/tutor-api/pkg/storage"
)

// Export kinds accepted by the background pipeline.
const (
	ExportKindTuitionCSV    = "tuition_csv"
	ExportKindTuitionPDF    = "tuition_pdf"
	ExportKindAttendanceCSV = "attendance_csv"
)

// Export job lifecycle states.
const (
	ExportJobPending = "PENDING"
	ExportJobRunning = "RUNNING"
	ExportJobDone    = "DONE"
	ExportJobFailed  = "FAILED"
)

// ExportJobRequest asks for a file to be rendered in the background. Tuition
// kinds use Month/Year plus the ledger filters; the attendance kind uses the
// From/To window.
type ExportJobRequest struct {
	Kind    string `json:"kind" validate:"required,oneof=tuition_csv tuition_pdf attendance_csv"`
	Month   int    `json:"month"`
	Year    int    `json:"year"`
	Student string `json:"student"`
	Subject string `json:"subject"`
	Status  string `json:"status"`

	From     string   `json:"from"`
	To       string   `json:"to"`
	ClassIDs []string `json:"classIds"`
}

// ExportJob tracks one background render from submission to download.
type ExportJob struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Filename    string     `json:"filename,omitempty"`
	ContentType string     `json:"-"`
	Token       string     `json:"download_token,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ExportJobService runs export renders on a worker queue, parks the output on
// disk and hands out signed download tokens. Job state lives in memory: a
// restart drops pending jobs, which is acceptable because submissions are
// cheap to repeat.
type ExportJobService struct {
	exports *ExportService
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	metrics *MetricsService

	queue     *jobs.Queue[ExportJobRequest]
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cancel    context.CancelFunc

	mu   sync.RWMutex
	byID map[string]*ExportJob
}

// NewExportJobService constructs the service and its queue. Call Start before
// submitting and Stop on shutdown.
func NewExportJobService(exports *ExportService, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, workers int, validate *validator.Validate, logger *zap.Logger) *ExportJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportJobService{
		exports:   exports,
		store:     store,
		signer:    signer,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		byID:      map[string]*ExportJob{},
	}
	s.queue = jobs.New("exports", s.process, jobs.Options{
		Workers:    workers,
		MaxRetries: 1,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers and a janitor that prunes stored files
// once their download links have expired.
func (s *ExportJobService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.queue.Start(ctx)
	go s.janitor(ctx)
}

func (s *ExportJobService) janitor(ctx context.Context) {
	ttl := s.signer.TTL()
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.CleanupExpired(ttl)
			if err != nil {
				s.logger.Sugar().Warnw("export cleanup failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				s.logger.Sugar().Infow("expired exports removed", "count", len(removed))
			}
		}
	}
}

// Stop halts the janitor and drains the queue workers.
func (s *ExportJobService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.queue.Stop()
}

// Submit validates the request, registers a pending job and enqueues it.
func (s *ExportJobService) Submit(ctx context.Context, req ExportJobRequest) (*ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, "VALIDATION_ERROR", http.StatusBadRequest, "invalid export request")
	}
	if req.Kind == ExportKindAttendanceCSV && (req.From == "" || req.To == "") {
		return nil, appErrors.New("VALIDATION_ERROR", http.StatusBadRequest, "attendance exports require from and to dates")
	}

	job := &ExportJob{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		Status:    ExportJobPending,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.byID[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(job.ID, req); err != nil {
		s.mu.Lock()
		delete(s.byID, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, "EXPORT_QUEUE_UNAVAILABLE", http.StatusServiceUnavailable, "export queue unavailable")
	}

	s.logger.Sugar().Infow("export job submitted", "job_id", job.ID, "kind", job.Kind)
	return s.snapshot(job.ID), nil
}

// Status returns the current state of a job.
func (s *ExportJobService) Status(jobID string) (*ExportJob, error) {
	job := s.snapshot(jobID)
	if job == nil {
		return nil, appErrors.ErrNotFound
	}
	return job, nil
}

// OpenDownload validates a signed token and opens the stored file.
func (s *ExportJobService) OpenDownload(token string) (*os.File, *ExportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, "INVALID_DOWNLOAD_TOKEN", http.StatusUnauthorized, "download link is invalid or expired")
	}
	job := s.snapshot(jobID)
	if job == nil || job.Status != ExportJobDone {
		return nil, nil, appErrors.ErrNotFound
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, "EXPORT_FILE_MISSING", http.StatusNotFound, "export file no longer available")
	}
	return file, job, nil
}

// CleanupExpired removes stored files older than the given TTL.
func (s *ExportJobService) CleanupExpired(ttl time.Duration) ([]string, error) {
	return s.store.CleanupOlderThan(ttl)
}

func (s *ExportJobService) process(ctx context.Context, task jobs.Task[ExportJobRequest]) error {
	err := s.run(ctx, task)
	if err != nil {
		s.metrics.RecordExportJob(task.Payload.Kind, "failed")
		return err
	}
	s.metrics.RecordExportJob(task.Payload.Kind, "done")
	return nil
}

func (s *ExportJobService) run(ctx context.Context, task jobs.Task[ExportJobRequest]) error {
	s.setStatus(task.ID, ExportJobRunning, "")

	file, err := s.render(ctx, task.Payload)
	if err != nil {
		s.setStatus(task.ID, ExportJobFailed, err.Error())
		return err
	}

	relPath := fmt.Sprintf("%s/%s", task.ID, file.Filename)
	if _, err := s.store.Save(relPath, file.Data); err != nil {
		s.setStatus(task.ID, ExportJobFailed, err.Error())
		return err
	}

	token, expiresAt, err := s.signer.Generate(task.ID, relPath)
	if err != nil {
		s.setStatus(task.ID, ExportJobFailed, err.Error())
		return err
	}

	done := s.now()
	s.mu.Lock()
	if j := s.byID[task.ID]; j != nil {
		j.Status = ExportJobDone
		j.Filename = file.Filename
		j.ContentType = file.ContentType
		j.Token = token
		j.ExpiresAt = &expiresAt
		j.CompletedAt = &done
		j.Error = ""
	}
	s.mu.Unlock()

	s.logger.Sugar().Infow("export job completed", "job_id", task.ID, "file", file.Filename)
	return nil
}

func (s *ExportJobService) render(ctx context.Context, req ExportJobRequest) (*ExportFile, error) {
	switch req.Kind {
	case ExportKindTuitionCSV:
		return s.exports.TuitionCSV(ctx, ReconcileRequest{
			Month: req.Month, Year: req.Year,
			Student: req.Student, Subject: req.Subject, Status: req.Status,
		})
	case ExportKindTuitionPDF:
		return s.exports.TuitionPDF(ctx, ReconcileRequest{
			Month: req.Month, Year: req.Year,
			Student: req.Student, Subject: req.Subject, Status: req.Status,
		})
	case ExportKindAttendanceCSV:
		return s.exports.AttendanceCSV(ctx, MatrixRequest{From: req.From, To: req.To, ClassIDs: req.ClassIDs})
	default:
		return nil, fmt.Errorf("unsupported export kind %q", req.Kind)
	}
}

func (s *ExportJobService) setStatus(jobID, status, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j := s.byID[jobID]; j != nil {
		j.Status = status
		j.Error = errMsg
	}
}

func (s *ExportJobService) snapshot(jobID string) *ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.byID[jobID]
	if !ok {
		return nil
	}
	copied := *j
	return &copied
}
