package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

type mockScheduleBlockRepo struct {
	db       *sqlx.DB
	existing []models.RecurringCommitment
	replaced []models.RecurringCommitment
}

func (m *mockScheduleBlockRepo) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, nil)
}

func (m *mockScheduleBlockRepo) ListByGroups(ctx context.Context, groupIDs []string) ([]models.RecurringCommitment, error) {
	return m.existing, nil
}

func (m *mockScheduleBlockRepo) ReplaceForGroupTx(ctx context.Context, tx *sqlx.Tx, groupID string, blocks []models.RecurringCommitment) error {
	m.replaced = blocks
	return nil
}

type mockGroupReader struct {
	groups map[string]models.CourseGroup
}

func (m *mockGroupReader) FindByID(ctx context.Context, id string) (*models.CourseGroup, error) {
	if g, ok := m.groups[id]; ok {
		return &g, nil
	}
	return nil, appErrors.ErrNotFound
}

func TestReplaceBlocksSuccess(t *testing.T) {
	db, mock := newTxDB(t)
	repo := &mockScheduleBlockRepo{db: db}
	groups := &mockGroupReader{groups: map[string]models.CourseGroup{
		"g1": {ID: "g1", CourseID: "CS101", CourseName: "Algorithms", Kind: models.GroupKindLecture, Section: "A"},
	}}
	checker := &mockChecker{verdict: models.Classification{Kind: models.ConflictNone}}
	cache := &mockInvalidator{}
	svc := NewScheduleService(repo, groups, checker, cache, nil, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	blocks, err := svc.ReplaceBlocks(context.Background(), "g1", ReplaceBlocksRequest{Blocks: []BlockInput{
		{RoomID: "room-1", Weekday: "MONDAY", Start: "08:00", End: "10:00"},
		{RoomID: "room-1", Weekday: "WEDNESDAY", Start: "08:00", End: "10:00"},
	}})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "CS101", blocks[0].CourseID)
	assert.Equal(t, models.GroupKindLecture, blocks[0].Kind)
	require.Len(t, repo.replaced, 2)
	assert.Equal(t, 1, cache.all, "schedule change must flush cached grids")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceBlocksRoomConflict(t *testing.T) {
	db, mock := newTxDB(t)
	repo := &mockScheduleBlockRepo{db: db}
	groups := &mockGroupReader{groups: map[string]models.CourseGroup{
		"g1": {ID: "g1", CourseID: "CS101", Kind: models.GroupKindLecture},
	}}
	checker := &mockChecker{verdict: models.Classification{
		Kind:      models.ConflictRecurring,
		Recurring: &models.RecurringCommitment{GroupID: "g2", CourseID: "MA201"},
	}}
	svc := NewScheduleService(repo, groups, checker, nil, nil, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.ReplaceBlocks(context.Background(), "g1", ReplaceBlocksRequest{Blocks: []BlockInput{
		{RoomID: "room-1", Weekday: "MONDAY", Start: "08:00", End: "10:00"},
	}})
	requireErrorCode(t, err, appErrors.ErrConflict.Code)
	assert.Nil(t, repo.replaced, "the previous schedule stays in place")
}

func TestReplaceBlocksSelfOverlapRejected(t *testing.T) {
	db, mock := newTxDB(t)
	repo := &mockScheduleBlockRepo{db: db}
	groups := &mockGroupReader{groups: map[string]models.CourseGroup{
		"g1": {ID: "g1", CourseID: "CS101", Kind: models.GroupKindLecture},
	}}
	checker := &mockChecker{verdict: models.Classification{Kind: models.ConflictNone}}
	svc := NewScheduleService(repo, groups, checker, nil, nil, zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.ReplaceBlocks(context.Background(), "g1", ReplaceBlocksRequest{Blocks: []BlockInput{
		{RoomID: "room-1", Weekday: "MONDAY", Start: "08:00", End: "10:00"},
		{RoomID: "room-2", Weekday: "MONDAY", Start: "09:00", End: "11:00"},
	}})
	requireErrorCode(t, err, appErrors.ErrConflict.Code)
}

func TestReplaceBlocksInvalidPayload(t *testing.T) {
	groups := &mockGroupReader{groups: map[string]models.CourseGroup{
		"g1": {ID: "g1", CourseID: "CS101", Kind: models.GroupKindLecture},
	}}
	svc := NewScheduleService(&mockScheduleBlockRepo{}, groups, &mockChecker{}, nil, nil, zap.NewNop())

	_, err := svc.ReplaceBlocks(context.Background(), "g1", ReplaceBlocksRequest{Blocks: []BlockInput{
		{RoomID: "room-1", Weekday: "SUNDAY", Start: "08:00", End: "10:00"},
	}})
	requireErrorCode(t, err, appErrors.ErrValidation.Code)

	_, err = svc.ReplaceBlocks(context.Background(), "g1", ReplaceBlocksRequest{Blocks: []BlockInput{
		{RoomID: "room-1", Weekday: "MONDAY", Start: "10:00", End: "08:00"},
	}})
	requireErrorCode(t, err, appErrors.ErrInvalidRange.Code)
}

func TestGetBlocksUnknownGroup(t *testing.T) {
	svc := NewScheduleService(&mockScheduleBlockRepo{}, &mockGroupReader{}, &mockChecker{}, nil, nil, zap.NewNop())

	_, err := svc.GetBlocks(context.Background(), "missing")
	requireErrorCode(t, err, appErrors.ErrNotFound.Code)
}
