package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/pkg/export"
	appErrors "github.com/tutorbase/tutor-api/pkg/errors"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered document ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders tuition ledgers and attendance grids as downloadable
// files. Small datasets stream straight from the handlers; larger renders go
// through ExportJobService.
type ExportService struct {
	ledger ledgerBuilder
	matrix matrixBuilder
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(ledger ledgerBuilder, matrix matrixBuilder, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{ledger: ledger, matrix: matrix, csv: csv, pdf: pdf, logger: logger}
}

var tuitionHeaders = []string{"Student", "Phone", "Class", "Status", "Tuition", "Fee", "Paid At"}

func tuitionDataset(report *LedgerReport, month, year int) export.Dataset {
	rows := make([]map[string]string, 0, len(report.Lines))
	for _, line := range report.Lines {
		paidAt := ""
		if line.Payment != nil && line.Payment.PaidAt != nil {
			paidAt = line.Payment.PaidAt.Format("2006-01-02")
		}
		rows = append(rows, map[string]string{
			"Student": line.StudentName,
			"Phone":   line.StudentPhone,
			"Class":   line.ClassName,
			"Status":  string(line.Status),
			"Tuition": string(line.TuitionStatus),
			"Fee":     export.FormatMoney(line.Fee),
			"Paid At": paidAt,
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Tuition ledger %02d/%d", month, year),
		Headers: tuitionHeaders,
		Rows:    rows,
		Footer: map[string]string{
			"Student": "Totals",
			"Tuition": fmt.Sprintf("unpaid %s", export.FormatMoney(report.Summary.TotalUnpaid)),
			"Fee":     fmt.Sprintf("paid %s", export.FormatMoney(report.Summary.TotalPaid)),
		},
		Landscape: true,
	}
}

// TuitionCSV renders the month ledger as CSV.
func (s *ExportService) TuitionCSV(ctx context.Context, req ReconcileRequest) (*ExportFile, error) {
	report, err := s.ledger.Ledger(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := s.csv.Render(tuitionDataset(report, req.Month, req.Year))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render tuition csv")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("tuition-%04d-%02d.csv", req.Year, req.Month),
		ContentType: "text/csv",
		Data:        data,
	}, nil
}

// TuitionPDF renders the month ledger as a printable PDF.
func (s *ExportService) TuitionPDF(ctx context.Context, req ReconcileRequest) (*ExportFile, error) {
	report, err := s.ledger.Ledger(ctx, req)
	if err != nil {
		return nil, err
	}
	data, err := s.pdf.Render(tuitionDataset(report, req.Month, req.Year))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render tuition pdf")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("tuition-%04d-%02d.pdf", req.Year, req.Month),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

var attendanceHeaders = []string{"Class", "Person", "Kind", "Date", "Start", "Status", "Note"}

// AttendanceCSV renders the attendance grid for a window as CSV. Every
// expected cell appears as a row; cells without a fact show as PENDING.
func (s *ExportService) AttendanceCSV(ctx context.Context, req MatrixRequest) (*ExportFile, error) {
	matrix, err := s.matrix.BuildMatrix(ctx, req)
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	for _, grid := range matrix.Classes {
		for _, session := range grid.Sessions {
			for _, person := range grid.People {
				key := models.CellKey(grid.ClassID, person.ID, session.Date.String(), session.Start.String())
				status := "PENDING"
				note := ""
				if cell, ok := matrix.Cells[key]; ok {
					status = "ABSENT"
					if cell.Present {
						status = "PRESENT"
					}
					if cell.Note != nil {
						note = *cell.Note
					}
				}
				rows = append(rows, map[string]string{
					"Class":  grid.Name,
					"Person": person.FullName,
					"Kind":   string(person.Kind),
					"Date":   session.Date.String(),
					"Start":  session.Start.String(),
					"Status": status,
					"Note":   note,
				})
			}
		}
	}

	data, err := s.csv.Render(export.Dataset{
		Title:   fmt.Sprintf("Attendance %s to %s", req.From, req.To),
		Headers: attendanceHeaders,
		Rows:    rows,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render attendance csv")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("attendance-%s-%s.csv", req.From, req.To),
		ContentType: "text/csv",
		Data:        data,
	}, nil
}
