package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campushub/timetable-api/internal/models"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

func TestCourseGroupRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseGroupRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "course_name", "kind", "section", "teacher_id", "capacity"}).
		AddRow("g1", "CS101", "Algorithms", "LAB", "B", "teach-1", 20)
	mock.ExpectQuery(`SELECT .+ FROM course_groups WHERE id = \$1`).
		WithArgs("g1").
		WillReturnRows(rows)

	group, err := repo.FindByID(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, models.GroupKindLab, group.Kind)
	require.Equal(t, 20, group.Capacity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseGroupRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseGroupRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM course_groups WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "course_name", "kind", "section", "teacher_id", "capacity"}))

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseGroupRepositoryListGroupIDsByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseGroupRepository(db)

	rows := sqlmock.NewRows([]string{"group_id"}).AddRow("g1").AddRow("g2")
	mock.ExpectQuery(`SELECT group_id FROM lecture_enrollments WHERE student_id = \$1\s+UNION\s+SELECT group_id FROM lab_enrollments WHERE student_id = \$1`).
		WithArgs("stu-1").
		WillReturnRows(rows)

	ids, err := repo.ListGroupIDsByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Equal(t, []string{"g1", "g2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseGroupRepositoryListAvailableLabs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseGroupRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "course_name", "kind", "section", "teacher_id", "capacity"}).
		AddRow("g9", "CS101", "Algorithms", "LAB", "C", "teach-2", 15)
	mock.ExpectQuery(`SELECT .+ FROM course_groups g\s+WHERE g\.kind = \$1`).
		WithArgs(models.GroupKindLab, "stu-1").
		WillReturnRows(rows)

	labs, err := repo.ListAvailableLabs(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, labs, 1)
	require.Equal(t, "g9", labs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrefixColumns(t *testing.T) {
	require.Equal(t, "g.id, g.kind", prefixColumns("g", "id, kind"))
}
