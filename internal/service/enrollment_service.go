package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

type labEnrollmentRepository interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.LabEnrollment, error)
	ExistsForCourseTx(ctx context.Context, tx *sqlx.Tx, studentID, courseID string) (bool, error)
	CountByGroupTx(ctx context.Context, tx *sqlx.Tx, groupID string) (int, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, enrollment *models.LabEnrollment) error
}

type enrollmentGroupRepository interface {
	FindByID(ctx context.Context, id string) (*models.CourseGroup, error)
	ListGroupIDsByStudentTx(ctx context.Context, tx *sqlx.Tx, studentID string) ([]string, error)
	ListAvailableLabs(ctx context.Context, studentID string) ([]models.CourseGroup, error)
}

type enrollmentBlockReader interface {
	ListByGroupsTx(ctx context.Context, tx *sqlx.Tx, groupIDs []string) ([]models.RecurringCommitment, error)
}

type studentCacheInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID string)
}

// EnrollLabRequest describes a lab enrollment request.
type EnrollLabRequest struct {
	StudentID string `json:"-"`
	GroupID   string `json:"group_id" validate:"required"`
}

// EnrollmentService runs the lab-section enrollment workflow: one lab per
// course, capacity respected, and no clash with the student's existing
// weekly commitments.
type EnrollmentService struct {
	repo      labEnrollmentRepository
	groups    enrollmentGroupRepository
	blocks    enrollmentBlockReader
	conflicts weeklyChecker
	cache     studentCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo labEnrollmentRepository, groups enrollmentGroupRepository, blocks enrollmentBlockReader, conflicts weeklyChecker, cache studentCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, groups: groups, blocks: blocks, conflicts: conflicts, cache: cache, validator: validate, logger: logger}
}

// ListAvailability returns the lab sections the student may still join.
func (s *EnrollmentService) ListAvailability(ctx context.Context, studentID string) ([]models.CourseGroup, error) {
	labs, err := s.groups.ListAvailableLabs(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available labs")
	}
	return labs, nil
}

// ListByStudent returns the student's current lab enrollments.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.LabEnrollment, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lab enrollments")
	}
	return enrollments, nil
}

// Enroll admits the student into a lab section. Every lab block is checked
// against the union of the student's current commitments; the first clash
// rejects the enrollment with the colliding course, day and time.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollLabRequest) (*models.LabEnrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	group, err := s.groups.FindByID(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if group.Kind != models.GroupKindLab {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group is not a lab section")
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists bool
	if exists, err = s.repo.ExistsForCourseTx(ctx, tx, req.StudentID, group.CourseID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
		return nil, err
	}
	if exists {
		err = appErrors.Clone(appErrors.ErrConflict, "student already holds a lab section for this course")
		return nil, err
	}

	var members int
	if members, err = s.repo.CountByGroupTx(ctx, tx, req.GroupID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count section members")
		return nil, err
	}
	if group.Capacity > 0 && members >= group.Capacity {
		err = appErrors.Clone(appErrors.ErrConflict, "lab section is full")
		return nil, err
	}

	var studentGroups []string
	if studentGroups, err = s.groups.ListGroupIDsByStudentTx(ctx, tx, req.StudentID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student commitments")
		return nil, err
	}
	var labBlocks []models.RecurringCommitment
	if labBlocks, err = s.blocks.ListByGroupsTx(ctx, tx, []string{req.GroupID}); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lab blocks")
		return nil, err
	}

	for _, block := range labBlocks {
		var verdict models.Classification
		verdict, err = s.conflicts.ClassifyWeekly(ctx, tx, block.TimeInterval, Owners{GroupIDs: studentGroups}, Excluding{})
		if err != nil {
			return nil, err
		}
		if !verdict.Free() {
			err = conflictRejection(verdict)
			return nil, err
		}
	}

	enrollment := &models.LabEnrollment{
		StudentID: req.StudentID,
		GroupID:   req.GroupID,
		CourseID:  group.CourseID,
	}
	if err = s.repo.CreateTx(ctx, tx, enrollment); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit enrollment")
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateStudent(ctx, req.StudentID)
	}
	s.logger.Info("lab enrollment created",
		zap.String("student_id", req.StudentID),
		zap.String("group_id", req.GroupID))
	return enrollment, nil
}
