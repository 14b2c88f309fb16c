package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/timetable-api/internal/models"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

// LabEnrollmentRepository persists lab-section memberships.
type LabEnrollmentRepository struct {
	db *sqlx.DB
}

// NewLabEnrollmentRepository creates a new lab enrollment repository.
func NewLabEnrollmentRepository(db *sqlx.DB) *LabEnrollmentRepository {
	return &LabEnrollmentRepository{db: db}
}

// BeginTx opens a transaction for the enroll check plus insert.
func (r *LabEnrollmentRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

// ListByStudent returns the student's lab enrollments.
func (r *LabEnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.LabEnrollment, error) {
	const query = `SELECT id, student_id, group_id, course_id, created_at
		FROM lab_enrollments WHERE student_id = $1 ORDER BY created_at ASC`
	var enrollments []models.LabEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list lab enrollments: %w", err)
	}
	return enrollments, nil
}

// ExistsForCourseTx reports whether the student already holds a lab section
// of the course, reading within the caller's transaction.
func (r *LabEnrollmentRepository) ExistsForCourseTx(ctx context.Context, tx *sqlx.Tx, studentID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM lab_enrollments WHERE student_id = $1 AND course_id = $2)`
	var exists bool
	if err := tx.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check lab enrollment: %w", err)
	}
	return exists, nil
}

// CountByGroupTx counts the group's current members within the caller's
// transaction, for the capacity check.
func (r *LabEnrollmentRepository) CountByGroupTx(ctx context.Context, tx *sqlx.Tx, groupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM lab_enrollments WHERE group_id = $1`
	var count int
	if err := tx.GetContext(ctx, &count, query, groupID); err != nil {
		return 0, fmt.Errorf("count lab enrollments: %w", err)
	}
	return count, nil
}

// CreateTx inserts the enrollment within the caller's transaction. The
// unique (student_id, course_id) constraint turns concurrent duplicate
// enrollments into a conflict.
func (r *LabEnrollmentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.LabEnrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lab_enrollments (id, student_id, group_id, course_id, created_at)
		VALUES (:id, :student_id, :group_id, :course_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, enrollment); err != nil {
		if isUniqueViolation(err) {
			return appErrors.ErrConflict
		}
		return fmt.Errorf("create lab enrollment: %w", err)
	}
	return nil
}
