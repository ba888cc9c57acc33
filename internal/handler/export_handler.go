package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tutorbase/tutor-api/internal/service"
	"github.com/tutorbase/tutor-api/pkg/config"
	appErrors "github.com/tutorbase/tutor-api/pkg/errors"
	"github.com/tutorbase/tutor-api/pkg/response"
)

// ExportHandler streams rendered ledger and attendance files and fronts the
// background export pipeline.
type ExportHandler struct {
	exports *service.ExportService
	jobs    *service.ExportJobService
	ledger  config.LedgerConfig
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService, jobs *service.ExportJobService, ledger config.LedgerConfig) *ExportHandler {
	return &ExportHandler{exports: exports, jobs: jobs, ledger: ledger}
}

func (h *ExportHandler) reconcileRequest(c *gin.Context) service.ReconcileRequest {
	now := time.Now()
	month := int(now.Month())
	year := now.Year()
	if v, err := strconv.Atoi(c.Query("month")); err == nil && v != 0 {
		month = v
	}
	if v, err := strconv.Atoi(c.Query("year")); err == nil && v != 0 {
		year = v
	}
	if month < 1 {
		month = 1
	}
	if month > 12 {
		month = 12
	}
	if h.ledger.MinYear > 0 && year < h.ledger.MinYear {
		year = h.ledger.MinYear
	}
	if h.ledger.MaxYear > 0 && year > h.ledger.MaxYear {
		year = h.ledger.MaxYear
	}
	return service.ReconcileRequest{
		Month:   month,
		Year:    year,
		Student: strings.TrimSpace(c.Query("student")),
		Subject: strings.TrimSpace(c.Query("subject")),
		Status:  strings.TrimSpace(c.Query("status")),
	}
}

func stream(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", "attachment; filename="+file.Filename)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// TuitionCSV godoc
// @Summary Export the tuition ledger as CSV
// @Tags Exports
// @Produce text/csv
// @Param month query int false "Month (1-12)"
// @Param year query int false "Year"
// @Success 200 {file} file
// @Router /exports/tuition.csv [get]
func (h *ExportHandler) TuitionCSV(c *gin.Context) {
	file, err := h.exports.TuitionCSV(c.Request.Context(), h.reconcileRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	stream(c, file)
}

// TuitionPDF godoc
// @Summary Export the tuition ledger as PDF
// @Tags Exports
// @Produce application/pdf
// @Param month query int false "Month (1-12)"
// @Param year query int false "Year"
// @Success 200 {file} file
// @Router /exports/tuition.pdf [get]
func (h *ExportHandler) TuitionPDF(c *gin.Context) {
	file, err := h.exports.TuitionPDF(c.Request.Context(), h.reconcileRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	stream(c, file)
}

// AttendanceCSV godoc
// @Summary Export the attendance grid as CSV
// @Tags Exports
// @Produce text/csv
// @Param from query string true "Window start (YYYY-MM-DD)"
// @Param to query string true "Window end (YYYY-MM-DD)"
// @Param classIds query string false "Comma-separated class IDs"
// @Success 200 {file} file
// @Router /exports/attendance.csv [get]
func (h *ExportHandler) AttendanceCSV(c *gin.Context) {
	req := service.MatrixRequest{From: c.Query("from"), To: c.Query("to")}
	if raw := c.Query("classIds"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.ClassIDs = append(req.ClassIDs, id)
			}
		}
	}
	file, err := h.exports.AttendanceCSV(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	stream(c, file)
}

// SubmitJob godoc
// @Summary Queue a background export render
// @Tags Exports
// @Accept json
// @Produce json
// @Param request body service.ExportJobRequest true "Export job"
// @Success 202 {object} response.Envelope{data=service.ExportJob}
// @Failure 400 {object} response.Envelope
// @Router /exports/jobs [post]
func (h *ExportHandler) SubmitJob(c *gin.Context) {
	var req service.ExportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if req.Month == 0 || req.Year == 0 {
		now := time.Now()
		if req.Month == 0 {
			req.Month = int(now.Month())
		}
		if req.Year == 0 {
			req.Year = now.Year()
		}
	}
	if h.ledger.MinYear > 0 && req.Year < h.ledger.MinYear {
		req.Year = h.ledger.MinYear
	}
	if h.ledger.MaxYear > 0 && req.Year > h.ledger.MaxYear {
		req.Year = h.ledger.MaxYear
	}
	job, err := h.jobs.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// JobStatus godoc
// @Summary Get the state of a queued export
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope{data=service.ExportJob}
// @Failure 404 {object} response.Envelope
// @Router /exports/jobs/{id} [get]
func (h *ExportHandler) JobStatus(c *gin.Context) {
	job, err := h.jobs.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a completed export via signed token
// @Tags Exports
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /exports/downloads [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, job, err := h.jobs.OpenDownload(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Disposition", "attachment; filename="+job.Filename)
	c.Header("Content-Type", job.ContentType)
	c.File(file.Name())
}
