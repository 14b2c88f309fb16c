package models

// GridCell is one weekday column of a timetable row. Derived and ephemeral:
// recomputed on every render, never persisted.
type GridCell struct {
	Code       string   `json:"code"`
	CourseID   string   `json:"course_id"`
	CourseName string   `json:"course_name"`
	Tag        string   `json:"tag"`
	RoomID     string   `json:"room_id"`
	Color      string   `json:"color"`
	Conflict   bool     `json:"conflict"`
	// ConflictWith lists every colliding occupant when Conflict is set, in
	// input order, the displayed one included. Each entry carries the
	// display code plus the course name, e.g. "CS101-A (Algorithms)".
	ConflictWith []string `json:"conflict_with,omitempty"`
}

// GridRow is one consolidated time band of the weekly grid with a cell per
// teaching day. Cells of idle columns are nil.
type GridRow struct {
	Label string      `json:"label"`
	Start ClockTime   `json:"start"`
	End   ClockTime   `json:"end"`
	Idle  bool        `json:"idle"`
	Cells []*GridCell `json:"cells"`
}

// LegendEntry maps a course to its stable display color within one grid.
type LegendEntry struct {
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name"`
	Color      string `json:"color"`
}

// Timetable is the rendered weekly grid. Legend entries appear in
// first-seen course order; rows are chronological and contiguous.
type Timetable struct {
	Days        []Weekday     `json:"days"`
	Rows        []GridRow     `json:"rows"`
	Legend      []LegendEntry `json:"legend"`
	HasConflict bool          `json:"has_conflict"`
}
