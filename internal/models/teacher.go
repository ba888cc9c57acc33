package models

import "time"

// Teacher is an instructor employed by the center. MonthlySalary is stored in
// the smallest currency unit and used as given for payroll summaries.
type Teacher struct {
	ID            string    `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Phone         string    `db:"phone" json:"phone"`
	MonthlySalary int64     `db:"monthly_salary" json:"monthly_salary"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures listing criteria.
type TeacherFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
