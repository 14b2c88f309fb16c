// Package timetable holds the pure scheduling engine: half-open interval
// arithmetic, conflict scanning, and synthesis of a consolidated weekly grid
// from irregular, non-uniform time blocks. Everything here is side-effect
// free and safe for concurrent use.
package timetable

import (
	"sort"

	"github.com/campushub/timetable-api/internal/models"
)

// DefaultPalette cycles display colors per course in first-seen order. The
// values are the CSS classes the web frontend styles cells with.
var DefaultPalette = []string{
	"bg-primary", "bg-warning", "bg-success", "bg-danger", "bg-info", "bg-secondary", "bg-dark",
}

// DefaultMinRowSpan is the narrowest row, in minutes, that is rendered on its
// own instead of being merged into a neighbor. Near-simultaneous but
// non-identical block boundaries otherwise produce sliver rows.
const DefaultMinRowSpan = 11

// Entry is one weekly block to place on the grid together with its display
// payload. Color, Conflict, and ConflictWith on the cell are owned by the
// builder and overwritten during Build.
type Entry struct {
	Interval models.TimeInterval
	Cell     models.GridCell
}

// BuilderConfig tunes grid synthesis.
type BuilderConfig struct {
	DisplayFloor models.ClockTime
	DisplayCeil  models.ClockTime
	MinRowSpan   int
	Palette      []string
}

// Builder renders entries into consolidated grid rows. Zero-value fields of
// the config fall back to defaults.
type Builder struct {
	floor      models.ClockTime
	ceil       models.ClockTime
	minRowSpan int
	palette    []string
}

// NewBuilder constructs a Builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	b := &Builder{
		floor:      cfg.DisplayFloor,
		ceil:       cfg.DisplayCeil,
		minRowSpan: cfg.MinRowSpan,
		palette:    cfg.Palette,
	}
	if b.ceil <= b.floor {
		b.floor, _ = models.ParseClockTime("07:00")
		b.ceil, _ = models.ParseClockTime("21:00")
	}
	if b.minRowSpan <= 0 {
		b.minRowSpan = DefaultMinRowSpan
	}
	if len(b.palette) == 0 {
		b.palette = DefaultPalette
	}
	return b
}

// Build derives the minimal row boundaries from the entries' start and end
// times, buckets every entry into rows by weekday column, merges idle rows
// and sub-minimum slivers, and resolves same-cell collisions by keeping the
// first entry in input order while flagging the cell as a conflict.
//
// Build never fails: an empty entry set yields a single idle row spanning
// the display window. Output is deterministic for a given input ordering;
// callers that need cross-run stability must pass entries in a stable order.
func (b *Builder) Build(entries []Entry) models.Timetable {
	bands := b.rowBands(entries)

	grid := models.Timetable{Days: models.Weekdays}
	colors := make(map[string]string, len(entries))

	for _, band := range bands {
		row := models.GridRow{
			Label: band.start.String() + "-" + band.end.String(),
			Start: band.start,
			End:   band.end,
			Cells: make([]*models.GridCell, len(models.Weekdays)),
			Idle:  true,
		}

		for col, day := range models.Weekdays {
			covering := coveringEntries(entries, day, band.start)
			if len(covering) == 0 {
				continue
			}
			row.Idle = false

			// First in input order wins the cell; the full set is
			// preserved for the warning label.
			cell := covering[0].Cell
			if len(covering) > 1 {
				cell.Conflict = true
				cell.ConflictWith = make([]string, 0, len(covering))
				for _, e := range covering {
					cell.ConflictWith = append(cell.ConflictWith, conflictLabel(e.Cell))
				}
				grid.HasConflict = true
			}

			color, seen := colors[cell.CourseID]
			if !seen {
				color = b.palette[len(colors)%len(b.palette)]
				colors[cell.CourseID] = color
				grid.Legend = append(grid.Legend, models.LegendEntry{
					CourseID:   cell.CourseID,
					CourseName: cell.CourseName,
					Color:      color,
				})
			}
			cell.Color = color
			row.Cells[col] = &cell
		}

		// Consolidate adjacent idle rows into one band. Occupied rows
		// keep row-per-span granularity even when identical.
		if row.Idle && len(grid.Rows) > 0 && grid.Rows[len(grid.Rows)-1].Idle {
			prev := &grid.Rows[len(grid.Rows)-1]
			prev.End = row.End
			prev.Label = prev.Start.String() + "-" + prev.End.String()
			continue
		}
		grid.Rows = append(grid.Rows, row)
	}

	return grid
}

// conflictLabel names an occupant for the conflict warning: the display
// code plus the course name when the name adds information.
func conflictLabel(cell models.GridCell) string {
	if cell.CourseName == "" || cell.CourseName == cell.Code {
		return cell.Code
	}
	return cell.Code + " (" + cell.CourseName + ")"
}

type band struct {
	start, end models.ClockTime
}

// rowBands returns the consolidated [start,end) bands between cut points.
// The cut set is seeded with the display floor and ceiling; bands narrower
// than the minimum span are merged into a neighbor instead of rendered.
func (b *Builder) rowBands(entries []Entry) []band {
	cutSet := map[models.ClockTime]struct{}{
		b.floor: {},
		b.ceil:  {},
	}
	for _, e := range entries {
		cutSet[e.Interval.Start] = struct{}{}
		cutSet[e.Interval.End] = struct{}{}
	}

	cuts := make([]models.ClockTime, 0, len(cutSet))
	for t := range cutSet {
		cuts = append(cuts, t)
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i] < cuts[j] })

	var bands []band
	start := cuts[0]
	for _, next := range cuts[1:] {
		if next <= start {
			continue
		}
		if int(next-start) < b.minRowSpan {
			if len(bands) > 0 {
				// Sliver: stretch the previous band over it.
				bands[len(bands)-1].end = next
				start = next
				continue
			}
			// Leading sliver: fold it into the following band by
			// keeping start where it is.
			continue
		}
		bands = append(bands, band{start: start, end: next})
		start = next
	}

	if len(bands) == 0 {
		bands = append(bands, band{start: cuts[0], end: cuts[len(cuts)-1]})
	}
	return bands
}

// coveringEntries returns, in input order, every entry on the given day
// whose span covers the row's start instant.
func coveringEntries(entries []Entry, day models.Weekday, rowStart models.ClockTime) []Entry {
	var covering []Entry
	for _, e := range entries {
		if e.Interval.Weekday != day {
			continue
		}
		if e.Interval.Start <= rowStart && e.Interval.End > rowStart {
			covering = append(covering, e)
		}
	}
	return covering
}
