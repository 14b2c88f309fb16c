package models

import "time"

// GroupKind tags a course group as a lecture or a lab section. The kind is
// resolved once when the group is loaded; nothing downstream probes optional
// associations to figure it out.
type GroupKind string

const (
	GroupKindLecture GroupKind = "LECTURE"
	GroupKindLab     GroupKind = "LAB"
)

// Valid reports whether the kind is a known value.
func (k GroupKind) Valid() bool {
	return k == GroupKindLecture || k == GroupKindLab
}

// CellTag returns the short tag rendered inside a timetable cell.
func (k GroupKind) CellTag() string {
	if k == GroupKindLab {
		return "LAB"
	}
	return "LEC"
}

// CourseGroup is a lecture or lab section of a course.
type CourseGroup struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	CourseName string    `db:"course_name" json:"course_name"`
	Kind       GroupKind `db:"kind" json:"kind"`
	Section    string    `db:"section" json:"section"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id,omitempty"`
	Capacity   int       `db:"capacity" json:"capacity"`
}

// RecurringCommitment is one weekly block of a course group in a room. It is
// exclusively owned by its group: edits replace the group's whole block set
// and deleting the group cascades here.
type RecurringCommitment struct {
	ID      string `db:"id" json:"id"`
	GroupID string `db:"group_id" json:"group_id"`
	RoomID  string `db:"room_id" json:"room_id"`
	TimeInterval

	// Denormalised group attributes carried along for display and
	// conflict messages.
	CourseID   string    `db:"course_id" json:"course_id"`
	CourseName string    `db:"course_name" json:"course_name"`
	Kind       GroupKind `db:"kind" json:"kind"`
	Section    string    `db:"section" json:"section"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DisplayCode renders the "COURSE-SECTION" label shown in grid cells, e.g.
// "CS2901-A".
func (c RecurringCommitment) DisplayCode() string {
	if c.Section == "" {
		return c.CourseID
	}
	return c.CourseID + "-" + c.Section
}

// LabEnrollment records a student's membership in a lab section. Lecture
// enrollment lives in the surrounding registrar system; this table only
// carries what the clash check and the timetable need.
type LabEnrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
