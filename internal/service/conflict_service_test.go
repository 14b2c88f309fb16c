package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
)

type mockBlockIndex struct {
	byGroups  []models.RecurringCommitment
	byRoom    []models.RecurringCommitment
	byTeacher []models.RecurringCommitment
}

func (m *mockBlockIndex) ListByGroups(ctx context.Context, groupIDs []string) ([]models.RecurringCommitment, error) {
	return m.byGroups, nil
}

func (m *mockBlockIndex) ListByGroupsTx(ctx context.Context, tx *sqlx.Tx, groupIDs []string) ([]models.RecurringCommitment, error) {
	return m.byGroups, nil
}

func (m *mockBlockIndex) ListByGroupsForDay(ctx context.Context, groupIDs []string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return m.byGroups, nil
}

func (m *mockBlockIndex) ListByGroupsForDayTx(ctx context.Context, tx *sqlx.Tx, groupIDs []string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return m.byGroups, nil
}

func (m *mockBlockIndex) ListByRoomForDay(ctx context.Context, roomID string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return m.byRoom, nil
}

func (m *mockBlockIndex) ListByRoomForDayTx(ctx context.Context, tx *sqlx.Tx, roomID string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return m.byRoom, nil
}

func (m *mockBlockIndex) ListByTeacherForDay(ctx context.Context, teacherID string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return m.byTeacher, nil
}

func (m *mockBlockIndex) ListByTeacherForDayTx(ctx context.Context, tx *sqlx.Tx, teacherID string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return m.byTeacher, nil
}

type mockGroupIndex struct {
	ids []string
}

func (m *mockGroupIndex) ListGroupIDsByStudent(ctx context.Context, studentID string) ([]string, error) {
	return m.ids, nil
}

func (m *mockGroupIndex) ListGroupIDsByStudentTx(ctx context.Context, tx *sqlx.Tx, studentID string) ([]string, error) {
	return m.ids, nil
}

type mockBookingIndex struct {
	byRoom      []models.PunctualReservation
	byRequester []models.PunctualReservation
	inRange     []models.PunctualReservation
}

func (m *mockBookingIndex) ListByRoomAndDate(ctx context.Context, roomID string, date time.Time) ([]models.PunctualReservation, error) {
	return m.byRoom, nil
}

func (m *mockBookingIndex) ListByRoomAndDateTx(ctx context.Context, tx *sqlx.Tx, roomID string, date time.Time) ([]models.PunctualReservation, error) {
	return m.byRoom, nil
}

func (m *mockBookingIndex) ListByRequesterAndDate(ctx context.Context, requesterID string, date time.Time) ([]models.PunctualReservation, error) {
	return m.byRequester, nil
}

func (m *mockBookingIndex) ListByRequesterAndDateTx(ctx context.Context, tx *sqlx.Tx, requesterID string, date time.Time) ([]models.PunctualReservation, error) {
	return m.byRequester, nil
}

func (m *mockBookingIndex) ListByRoomInRange(ctx context.Context, roomID string, from, to time.Time) ([]models.PunctualReservation, error) {
	return m.inRange, nil
}

func weeklyBlock(groupID string, day models.Weekday, start, end models.ClockTime) models.RecurringCommitment {
	return models.RecurringCommitment{
		ID:           "block-" + groupID,
		GroupID:      groupID,
		TimeInterval: models.TimeInterval{Weekday: day, Start: start, End: end},
		CourseID:     "CS101",
		CourseName:   "Algorithms",
	}
}

func TestClassifyRecurringBeforePunctual(t *testing.T) {
	tue := time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC)
	blocks := &mockBlockIndex{
		byRoom: []models.RecurringCommitment{weeklyBlock("g1", models.Tuesday, 600, 720)},
	}
	bookings := &mockBookingIndex{
		byRoom: []models.PunctualReservation{{
			ID:            "r1",
			DatedInterval: models.DatedInterval{Date: tue, Start: 600, End: 720},
		}},
	}
	svc := NewConflictService(blocks, bookings, &mockGroupIndex{}, 0, zap.NewNop())

	candidate := models.DatedInterval{Date: tue, Start: 630, End: 700}
	verdict, err := svc.Classify(context.Background(), nil, candidate, Owners{RoomID: "room-1"}, Excluding{})
	require.NoError(t, err)
	assert.Equal(t, models.ConflictRecurring, verdict.Kind)
	require.NotNil(t, verdict.Recurring)
	assert.Equal(t, "g1", verdict.Recurring.GroupID)
	assert.Nil(t, verdict.Punctual)
}

func TestClassifyPunctualConflict(t *testing.T) {
	tue := time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC)
	bookings := &mockBookingIndex{
		byRequester: []models.PunctualReservation{{
			ID:            "r1",
			DatedInterval: models.DatedInterval{Date: tue, Start: 600, End: 720},
		}},
	}
	svc := NewConflictService(&mockBlockIndex{}, bookings, &mockGroupIndex{}, 0, zap.NewNop())

	candidate := models.DatedInterval{Date: tue, Start: 660, End: 780}
	verdict, err := svc.Classify(context.Background(), nil, candidate, Owners{RequesterID: "person-1"}, Excluding{})
	require.NoError(t, err)
	assert.Equal(t, models.ConflictPunctual, verdict.Kind)
	require.NotNil(t, verdict.Punctual)
	assert.Equal(t, "r1", verdict.Punctual.ID)
}

func TestClassifyRequesterTaughtClassConflict(t *testing.T) {
	mon := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	blocks := &mockBlockIndex{
		byTeacher: []models.RecurringCommitment{weeklyBlock("g1", models.Monday, 540, 600)},
	}
	svc := NewConflictService(blocks, &mockBookingIndex{}, &mockGroupIndex{}, 0, zap.NewNop())

	// The requester teaches Monday 09:00-10:00; booking a different room
	// for 09:15-09:45 must fail even with the target room free.
	candidate := models.DatedInterval{Date: mon, Start: 555, End: 585}
	verdict, err := svc.Classify(context.Background(), nil, candidate, Owners{RoomID: "room-2", RequesterID: "prof-1"}, Excluding{})
	require.NoError(t, err)
	assert.Equal(t, models.ConflictRecurring, verdict.Kind)
	require.NotNil(t, verdict.Recurring)
	assert.Equal(t, "g1", verdict.Recurring.GroupID)
}

func TestClassifyRequesterAttendedClassConflict(t *testing.T) {
	tue := time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC)
	blocks := &mockBlockIndex{
		byGroups: []models.RecurringCommitment{weeklyBlock("g2", models.Tuesday, 600, 720)},
	}
	groups := &mockGroupIndex{ids: []string{"g2"}}
	svc := NewConflictService(blocks, &mockBookingIndex{}, groups, 0, zap.NewNop())

	candidate := models.DatedInterval{Date: tue, Start: 660, End: 700}
	verdict, err := svc.Classify(context.Background(), nil, candidate, Owners{RoomID: "room-2", RequesterID: "stu-1"}, Excluding{})
	require.NoError(t, err)
	assert.Equal(t, models.ConflictRecurring, verdict.Kind)
	require.NotNil(t, verdict.Recurring)
	assert.Equal(t, "g2", verdict.Recurring.GroupID)
}

func TestClassifyFree(t *testing.T) {
	tue := time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC)
	svc := NewConflictService(&mockBlockIndex{}, &mockBookingIndex{}, &mockGroupIndex{}, 0, zap.NewNop())

	verdict, err := svc.Classify(context.Background(), nil, models.DatedInterval{Date: tue, Start: 600, End: 720}, Owners{RoomID: "room-1", RequesterID: "person-1"}, Excluding{})
	require.NoError(t, err)
	assert.True(t, verdict.Free())
}

func TestClassifyInvalidRange(t *testing.T) {
	tue := time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC)
	svc := NewConflictService(&mockBlockIndex{}, &mockBookingIndex{}, &mockGroupIndex{}, 0, zap.NewNop())

	_, err := svc.Classify(context.Background(), nil, models.DatedInterval{Date: tue, Start: 720, End: 720}, Owners{}, Excluding{})
	assert.Error(t, err)
}

func TestClassifyWeeklyExcludesEditedGroup(t *testing.T) {
	blocks := &mockBlockIndex{
		byRoom: []models.RecurringCommitment{weeklyBlock("g1", models.Monday, 480, 600)},
	}
	svc := NewConflictService(blocks, &mockBookingIndex{}, &mockGroupIndex{}, 0, zap.NewNop())

	candidate := models.TimeInterval{Weekday: models.Monday, Start: 480, End: 600}

	verdict, err := svc.ClassifyWeekly(context.Background(), nil, candidate, Owners{RoomID: "room-1"}, Excluding{GroupID: "g1"})
	require.NoError(t, err)
	assert.True(t, verdict.Free(), "a group may keep its own slots")

	verdict, err = svc.ClassifyWeekly(context.Background(), nil, candidate, Owners{RoomID: "room-1"}, Excluding{})
	require.NoError(t, err)
	assert.Equal(t, models.ConflictRecurring, verdict.Kind)
}

func TestClassifyWeeklyHitsRoomBookings(t *testing.T) {
	wed := time.Date(2025, 3, 19, 0, 0, 0, 0, time.UTC)
	bookings := &mockBookingIndex{
		inRange: []models.PunctualReservation{{
			ID:            "r1",
			DatedInterval: models.DatedInterval{Date: wed, Start: 840, End: 960},
		}},
	}
	svc := NewConflictService(&mockBlockIndex{}, bookings, &mockGroupIndex{}, 30, zap.NewNop())

	candidate := models.TimeInterval{Weekday: models.Wednesday, Start: 900, End: 1020}
	verdict, err := svc.ClassifyWeekly(context.Background(), nil, candidate, Owners{RoomID: "room-1"}, Excluding{})
	require.NoError(t, err)
	assert.Equal(t, models.ConflictPunctual, verdict.Kind)
}
