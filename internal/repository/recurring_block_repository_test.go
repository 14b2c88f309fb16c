package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/campushub/timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func blockRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "group_id", "room_id", "weekday", "start_min", "end_min", "created_at",
		"course_id", "course_name", "kind", "section",
	})
}

func TestRecurringBlockRepositoryListByGroups(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecurringBlockRepository(db)

	rows := blockRows().
		AddRow("b1", "g1", "room-1", "MONDAY", 480, 600, time.Now(), "CS101", "Algorithms", "LECTURE", "A").
		AddRow("b2", "g1", "room-2", "WEDNESDAY", 600, 720, time.Now(), "CS101", "Algorithms", "LECTURE", "A")
	mock.ExpectQuery(`SELECT .+ FROM recurring_blocks b\s+JOIN course_groups g ON g\.id = b\.group_id\s+WHERE b\.group_id = ANY\(\$1\)`).
		WithArgs(pq.Array([]string{"g1"})).
		WillReturnRows(rows)

	blocks, err := repo.ListByGroups(context.Background(), []string{"g1"})
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, models.Monday, blocks[0].Weekday)
	require.Equal(t, models.ClockTime(480), blocks[0].Start)
	require.Equal(t, "CS101-A", blocks[0].DisplayCode())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringBlockRepositoryListByGroupsEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecurringBlockRepository(db)

	blocks, err := repo.ListByGroups(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, blocks)
}

func TestRecurringBlockRepositoryListByRoomForDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecurringBlockRepository(db)

	rows := blockRows().
		AddRow("b1", "g1", "room-1", "FRIDAY", 840, 960, time.Now(), "PHY201", "Mechanics", "LAB", "B")
	mock.ExpectQuery(`WHERE b\.room_id = \$1 AND b\.weekday = \$2`).
		WithArgs("room-1", models.Friday).
		WillReturnRows(rows)

	blocks, err := repo.ListByRoomForDay(context.Background(), "room-1", models.Friday)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, models.GroupKindLab, blocks[0].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringBlockRepositoryReplaceForGroupTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRecurringBlockRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM recurring_blocks WHERE group_id = \$1`).
		WithArgs("g1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO recurring_blocks`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	blocks := []models.RecurringCommitment{
		{
			RoomID: "room-1",
			TimeInterval: models.TimeInterval{
				Weekday: models.Monday,
				Start:   480,
				End:     600,
			},
		},
	}
	require.NoError(t, repo.ReplaceForGroupTx(context.Background(), tx, "g1", blocks))
	require.NoError(t, tx.Commit())

	require.Equal(t, "g1", blocks[0].GroupID)
	require.NotEmpty(t, blocks[0].ID)
	require.False(t, blocks[0].CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
