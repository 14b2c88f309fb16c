package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campushub/timetable-api/internal/models"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

const groupColumns = `id, course_id, course_name, kind, section, teacher_id, capacity`

// CourseGroupRepository reads lecture and lab sections. Lecture memberships
// are mirrored in from the registrar (lecture_enrollments); lab memberships
// are created here (lab_enrollments). Both feed the commitment union.
type CourseGroupRepository struct {
	db *sqlx.DB
}

// NewCourseGroupRepository creates a new course group repository.
func NewCourseGroupRepository(db *sqlx.DB) *CourseGroupRepository {
	return &CourseGroupRepository{db: db}
}

// FindByID loads one group with its kind already resolved.
func (r *CourseGroupRepository) FindByID(ctx context.Context, id string) (*models.CourseGroup, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_groups WHERE id = $1`, groupColumns)
	var group models.CourseGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find course group: %w", err)
	}
	return &group, nil
}

// ListGroupIDsByStudent returns the union of the student's lecture and lab
// group ids. The union is the commitment set every clash check runs against.
func (r *CourseGroupRepository) ListGroupIDsByStudent(ctx context.Context, studentID string) ([]string, error) {
	return r.listGroupIDsByStudent(ctx, r.db, studentID)
}

// ListGroupIDsByStudentTx is ListGroupIDsByStudent inside an existing transaction.
func (r *CourseGroupRepository) ListGroupIDsByStudentTx(ctx context.Context, tx *sqlx.Tx, studentID string) ([]string, error) {
	return r.listGroupIDsByStudent(ctx, tx, studentID)
}

func (r *CourseGroupRepository) listGroupIDsByStudent(ctx context.Context, q sqlx.ExtContext, studentID string) ([]string, error) {
	const query = `SELECT group_id FROM lecture_enrollments WHERE student_id = $1
		UNION
		SELECT group_id FROM lab_enrollments WHERE student_id = $1
		ORDER BY group_id ASC`
	var ids []string
	if err := sqlx.SelectContext(ctx, q, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list group ids by student: %w", err)
	}
	return ids, nil
}

// ListAvailableLabs returns the lab sections the student may enroll into:
// labs of courses the student's lectures cover, excluding courses that
// already hold a lab enrollment, excluding full sections.
func (r *CourseGroupRepository) ListAvailableLabs(ctx context.Context, studentID string) ([]models.CourseGroup, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_groups g
		WHERE g.kind = $1
		  AND g.course_id IN (
			SELECT cg.course_id FROM lecture_enrollments le
			JOIN course_groups cg ON cg.id = le.group_id
			WHERE le.student_id = $2)
		  AND g.course_id NOT IN (
			SELECT course_id FROM lab_enrollments WHERE student_id = $2)
		  AND (SELECT COUNT(*) FROM lab_enrollments e WHERE e.group_id = g.id) < g.capacity
		ORDER BY g.course_id ASC, g.section ASC`, prefixColumns("g", groupColumns))
	var groups []models.CourseGroup
	if err := r.db.SelectContext(ctx, &groups, query, models.GroupKindLab, studentID); err != nil {
		return nil, fmt.Errorf("list available labs: %w", err)
	}
	return groups, nil
}

// prefixColumns qualifies each column in a comma-separated list with a table
// alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
