package models

import (
	"fmt"
	"time"

	"github.com/tutorbase/tutor-api/internal/timetable"
)

// PersonKind distinguishes whose attendance a fact records.
type PersonKind string

const (
	PersonKindStudent PersonKind = "STUDENT"
	PersonKindTeacher PersonKind = "TEACHER"
)

// Valid reports whether the kind is a supported value.
func (k PersonKind) Valid() bool {
	return k == PersonKindStudent || k == PersonKindTeacher
}

// AttendanceFact is a recorded presence or absence for one person at one
// session. Facts are only ever written by explicit mark/unmark actions; the
// absence of a fact means "unrecorded", which is distinct from a fact with
// Present=false.
type AttendanceFact struct {
	ID         string     `db:"id" json:"id"`
	ClassID    string     `db:"class_id" json:"class_id"`
	PersonID   string     `db:"person_id" json:"person_id"`
	PersonKind PersonKind `db:"person_kind" json:"person_kind"`
	Date       time.Time  `db:"date" json:"date"`
	StartTime  string     `db:"start_time" json:"start_time"`
	Present    bool       `db:"present" json:"present"`
	Note       *string    `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes fact reads to a class set and date window.
type AttendanceFilter struct {
	ClassIDs []string
	From     time.Time
	To       time.Time
}

// CellKey builds the stable attendance cell identifier consumed by the
// presentation and export layers: classID||personID||date@@start.
func CellKey(classID, personID, date, start string) string {
	return fmt.Sprintf("%s||%s||%s@@%s", classID, personID, date, start)
}

// MatrixPerson is one row subject inside a class grid.
type MatrixPerson struct {
	ID       string     `json:"id"`
	Kind     PersonKind `json:"kind"`
	FullName string     `json:"full_name"`
}

// AttendanceCell is a recorded fact overlaid on the expected grid.
type AttendanceCell struct {
	Present bool    `json:"present"`
	Note    *string `json:"note,omitempty"`
}

// ClassMatrix is the expected grid for one class: its expanded sessions
// crossed with the people eligible to attend them.
type ClassMatrix struct {
	ClassID  string              `json:"class_id"`
	Name     string              `json:"name"`
	Sessions []timetable.Session `json:"sessions"`
	People   []MatrixPerson      `json:"people"`
}

// AttendanceMatrix joins expanded sessions against sparse recorded facts.
// Cells holds entries only where a fact exists; everything else is pending.
type AttendanceMatrix struct {
	Classes []ClassMatrix             `json:"classes"`
	Cells   map[string]AttendanceCell `json:"cells"`
}

// ExpectedCells counts the full (session x person) grid across all classes.
func (m AttendanceMatrix) ExpectedCells() int {
	total := 0
	for _, c := range m.Classes {
		total += len(c.Sessions) * len(c.People)
	}
	return total
}

// AttendanceStats summarises a matrix. Pending counts expected cells with no
// recorded fact.
type AttendanceStats struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Pending int `json:"pending"`
}
