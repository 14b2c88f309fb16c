package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

type mockTimetableBlocks struct {
	byGroups  []models.RecurringCommitment
	byTeacher []models.RecurringCommitment
	byRoom    []models.RecurringCommitment
}

func (m *mockTimetableBlocks) ListByGroups(ctx context.Context, groupIDs []string) ([]models.RecurringCommitment, error) {
	return m.byGroups, nil
}

func (m *mockTimetableBlocks) ListByTeacher(ctx context.Context, teacherID string) ([]models.RecurringCommitment, error) {
	return m.byTeacher, nil
}

func (m *mockTimetableBlocks) ListByRoom(ctx context.Context, roomID string) ([]models.RecurringCommitment, error) {
	return m.byRoom, nil
}

type mockTimetableBookings struct {
	inRange []models.PunctualReservation
	from    time.Time
	to      time.Time
}

func (m *mockTimetableBookings) ListByRoomInRange(ctx context.Context, roomID string, from, to time.Time) ([]models.PunctualReservation, error) {
	m.from = from
	m.to = to
	return m.inRange, nil
}

type mockStudentGroups struct {
	ids []string
}

func (m *mockStudentGroups) ListGroupIDsByStudent(ctx context.Context, studentID string) ([]string, error) {
	return m.ids, nil
}

type memoryCache struct {
	values  map[string][]byte
	deleted []string
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.values == nil {
		m.values = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	return nil
}

func lectureBlock(groupID, courseID string, day models.Weekday, start, end models.ClockTime) models.RecurringCommitment {
	return models.RecurringCommitment{
		ID:           "block-" + groupID,
		GroupID:      groupID,
		RoomID:       "room-1",
		TimeInterval: models.TimeInterval{Weekday: day, Start: start, End: end},
		CourseID:     courseID,
		CourseName:   courseID,
		Kind:         models.GroupKindLecture,
		Section:      "A",
	}
}

func TestStudentTimetableBuildsGrid(t *testing.T) {
	blocks := &mockTimetableBlocks{byGroups: []models.RecurringCommitment{
		lectureBlock("g1", "CS101", models.Monday, 540, 600),
	}}
	cache := &memoryCache{}
	svc := NewTimetableService(blocks, &mockTimetableBookings{}, &mockStudentGroups{ids: []string{"g1"}}, cache, nil, nil, time.Minute, zap.NewNop())

	grid, err := svc.StudentTimetable(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, grid.Rows, 3)
	assert.False(t, grid.HasConflict)
	require.Len(t, grid.Legend, 1)
	assert.Equal(t, "CS101", grid.Legend[0].CourseID)

	occupied := grid.Rows[1]
	require.NotNil(t, occupied.Cells[0])
	assert.Equal(t, "CS101-A", occupied.Cells[0].Code)
	assert.Equal(t, "LEC", occupied.Cells[0].Tag)

	// Second call is served from the cache.
	_, cached := cache.values["timetable:student:stu-1"]
	assert.True(t, cached)
	again, err := svc.StudentTimetable(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, grid, again)
}

func TestTeacherTimetableFlagsOverlap(t *testing.T) {
	blocks := &mockTimetableBlocks{byTeacher: []models.RecurringCommitment{
		lectureBlock("g1", "CS101", models.Tuesday, 600, 720),
		lectureBlock("g2", "MA201", models.Tuesday, 660, 780),
	}}
	svc := NewTimetableService(blocks, &mockTimetableBookings{}, &mockStudentGroups{}, nil, nil, nil, time.Minute, zap.NewNop())

	grid, err := svc.TeacherTimetable(context.Background(), "teach-1")
	require.NoError(t, err)
	assert.True(t, grid.HasConflict)
}

func TestRoomTimetableFoldsReservations(t *testing.T) {
	wed := time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC)
	blocks := &mockTimetableBlocks{byRoom: []models.RecurringCommitment{
		lectureBlock("g1", "CS101", models.Monday, 480, 600),
	}}
	bookings := &mockTimetableBookings{inRange: []models.PunctualReservation{{
		ID:            "r1",
		RoomID:        "room-1",
		RequesterID:   "person-1",
		DatedInterval: models.DatedInterval{Date: wed, Start: 840, End: 960},
	}}}
	svc := NewTimetableService(blocks, bookings, &mockStudentGroups{}, nil, nil, nil, time.Minute, zap.NewNop())

	grid, err := svc.RoomTimetable(context.Background(), "room-1", wed)
	require.NoError(t, err)

	// The query window is the teaching week of the given date.
	assert.Equal(t, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), bookings.from)
	assert.Equal(t, time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), bookings.to)

	var bookedCell *models.GridCell
	for _, row := range grid.Rows {
		if row.Start == models.ClockTime(840) {
			bookedCell = row.Cells[models.Wednesday.Column()]
		}
	}
	require.NotNil(t, bookedCell)
	assert.Equal(t, "BOOKED", bookedCell.Code)
	assert.Equal(t, "RES", bookedCell.Tag)
}

func TestInvalidatePatterns(t *testing.T) {
	cache := &memoryCache{}
	svc := NewTimetableService(&mockTimetableBlocks{}, &mockTimetableBookings{}, &mockStudentGroups{}, cache, nil, nil, time.Minute, zap.NewNop())

	svc.InvalidateRoom(context.Background(), "room-1")
	svc.InvalidateStudent(context.Background(), "stu-1")
	svc.InvalidateAll(context.Background())

	assert.Equal(t, []string{
		"timetable:room:room-1:*",
		"timetable:student:stu-1",
		"timetable:*",
	}, cache.deleted)
}

func TestEntriesFromBlocksPreservesOrder(t *testing.T) {
	blocks := []models.RecurringCommitment{
		lectureBlock("g1", "CS101", models.Monday, 480, 600),
		lectureBlock("g2", "MA201", models.Monday, 480, 600),
	}
	entries := entriesFromBlocks(blocks)
	require.Len(t, entries, 2)
	assert.Equal(t, "CS101-A", entries[0].Cell.Code)
	assert.Equal(t, "MA201-A", entries[1].Cell.Code)
}
