package models

import "time"

// TeacherPayrollLine is one teacher's salary entry for a month.
type TeacherPayrollLine struct {
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	Salary      int64  `json:"salary"`
	ClassCount  int    `json:"class_count"`
}

// DashboardOverview is the month-scoped snapshot shown on the landing page.
type DashboardOverview struct {
	Month           int                  `json:"month"`
	Year            int                  `json:"year"`
	Tuition         TuitionSummary       `json:"tuition"`
	ClassRevenues   []ClassRevenue       `json:"class_revenues"`
	Attendance      AttendanceStats      `json:"attendance"`
	Payroll         []TeacherPayrollLine `json:"payroll"`
	PayrollTotal    int64                `json:"payroll_total"`
	ActiveClasses   int                  `json:"active_classes"`
	EnrolledCount   int                  `json:"enrolled_count"`
	EstimatedProfit int64                `json:"estimated_profit"`
	GeneratedAt     time.Time            `json:"generated_at"`
}
