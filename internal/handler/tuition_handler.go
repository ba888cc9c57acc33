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

// TuitionHandler exposes the ledger and payment endpoints. Month and year
// query values are clamped here, at the boundary, so the reconciliation core
// only ever sees sane input.
type TuitionHandler struct {
	tuition *service.TuitionService
	ledger  config.LedgerConfig
}

// NewTuitionHandler constructs TuitionHandler.
func NewTuitionHandler(tuition *service.TuitionService, ledger config.LedgerConfig) *TuitionHandler {
	return &TuitionHandler{tuition: tuition, ledger: ledger}
}

func (h *TuitionHandler) clampPeriod(c *gin.Context) (int, int) {
	now := time.Now()
	month := int(now.Month())
	year := now.Year()
	if raw := c.Query("month"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			month = v
		}
	}
	if raw := c.Query("year"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			year = v
		}
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
	return month, year
}

// Ledger godoc
// @Summary Reconciled tuition ledger for a month
// @Tags Tuition
// @Produce json
// @Param month query int false "Month (1-12, defaults to current)"
// @Param year query int false "Year (defaults to current)"
// @Param student query string false "Filter by student name or phone, diacritic-insensitive"
// @Param subject query string false "Filter by class name, diacritic-insensitive"
// @Param status query string false "Filter by enrollment status"
// @Success 200 {object} response.Envelope
// @Router /tuition/ledger [get]
func (h *TuitionHandler) Ledger(c *gin.Context) {
	month, year := h.clampPeriod(c)
	report, err := h.tuition.Ledger(c.Request.Context(), service.ReconcileRequest{
		Month:   month,
		Year:    year,
		Student: strings.TrimSpace(c.Query("student")),
		Subject: strings.TrimSpace(c.Query("subject")),
		Status:  strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// CreatePayment godoc
// @Summary Record a payment fact
// @Tags Tuition
// @Accept json
// @Produce json
// @Param payload body service.CreatePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tuition/payments [post]
func (h *TuitionHandler) CreatePayment(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fact, err := h.tuition.CreatePayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fact)
}

// ConfirmPayment godoc
// @Summary Confirm a payment and optionally activate the enrollment
// @Tags Tuition
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.ConfirmPaymentRequest true "Confirmation payload"
// @Success 200 {object} response.Envelope
// @Router /tuition/payments/{id}/confirm [post]
func (h *TuitionHandler) ConfirmPayment(c *gin.Context) {
	var req service.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fact, err := h.tuition.ConfirmPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fact, nil)
}
