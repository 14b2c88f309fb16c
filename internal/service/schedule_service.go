package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

type scheduleBlockRepository interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	ListByGroups(ctx context.Context, groupIDs []string) ([]models.RecurringCommitment, error)
	ReplaceForGroupTx(ctx context.Context, tx *sqlx.Tx, groupID string, blocks []models.RecurringCommitment) error
}

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseGroup, error)
}

type weeklyChecker interface {
	ClassifyWeekly(ctx context.Context, tx *sqlx.Tx, candidate models.TimeInterval, owners Owners, excluding Excluding) (models.Classification, error)
}

type scheduleCacheInvalidator interface {
	InvalidateAll(ctx context.Context)
}

// BlockInput is one weekly block in a replacement request.
type BlockInput struct {
	RoomID  string `json:"room_id" validate:"required"`
	Weekday string `json:"weekday" validate:"required"`
	Start   string `json:"start" validate:"required"`
	End     string `json:"end" validate:"required"`
}

// ReplaceBlocksRequest replaces a group's weekly block set wholesale.
type ReplaceBlocksRequest struct {
	Blocks []BlockInput `json:"blocks" validate:"required,dive"`
}

// ScheduleService reads and atomically replaces the weekly blocks of a
// course group. A replacement is all-or-nothing: one rejected block rejects
// the whole request and leaves the previous schedule in place.
type ScheduleService struct {
	blocks    scheduleBlockRepository
	groups    groupReader
	conflicts weeklyChecker
	cache     scheduleCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(blocks scheduleBlockRepository, groups groupReader, conflicts weeklyChecker, cache scheduleCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{blocks: blocks, groups: groups, conflicts: conflicts, cache: cache, validator: validate, logger: logger}
}

// GetBlocks returns a group's current weekly blocks.
func (s *ScheduleService) GetBlocks(ctx context.Context, groupID string) ([]models.RecurringCommitment, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		return nil, err
	}
	blocks, err := s.blocks.ListByGroups(ctx, []string{groupID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group blocks")
	}
	return blocks, nil
}

// ReplaceBlocks validates every block of the new schedule against its room's
// other commitments, excluding the group being edited, then swaps the block
// set inside one transaction.
func (s *ScheduleService) ReplaceBlocks(ctx context.Context, groupID string, req ReplaceBlocksRequest) ([]models.RecurringCommitment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	blocks, err := parseBlocks(group, req.Blocks)
	if err != nil {
		return nil, err
	}

	tx, err := s.blocks.BeginTx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range blocks {
		// Room-side check. The edited group's own old blocks are
		// excluded so a schedule can shift within its current slots.
		var verdict models.Classification
		verdict, err = s.conflicts.ClassifyWeekly(ctx, tx, blocks[i].TimeInterval, Owners{RoomID: blocks[i].RoomID}, Excluding{GroupID: groupID})
		if err != nil {
			return nil, err
		}
		if !verdict.Free() {
			err = conflictRejection(verdict)
			return nil, err
		}

		// Blocks within the same request must not overlap each other:
		// the cohort cannot sit in two places at once.
		for j := 0; j < i; j++ {
			if blocks[i].TimeInterval.Overlaps(blocks[j].TimeInterval) {
				err = appErrors.Clone(appErrors.ErrConflict, "schedule blocks overlap each other")
				return nil, err
			}
		}
	}

	if err = s.blocks.ReplaceForGroupTx(ctx, tx, groupID, blocks); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace group blocks")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule replacement")
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
	s.logger.Info("group schedule replaced",
		zap.String("group_id", groupID),
		zap.Int("blocks", len(blocks)))
	return blocks, nil
}

func parseBlocks(group *models.CourseGroup, inputs []BlockInput) ([]models.RecurringCommitment, error) {
	blocks := make([]models.RecurringCommitment, 0, len(inputs))
	for _, in := range inputs {
		day := models.Weekday(in.Weekday)
		if !day.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown weekday "+in.Weekday)
		}
		start, err := models.ParseClockTime(in.Start)
		if err != nil {
			return nil, appErrors.ErrInvalidRange
		}
		end, err := models.ParseClockTime(in.End)
		if err != nil {
			return nil, appErrors.ErrInvalidRange
		}
		interval := models.TimeInterval{Weekday: day, Start: start, End: end}
		if !interval.Valid() {
			return nil, appErrors.ErrInvalidRange
		}
		blocks = append(blocks, models.RecurringCommitment{
			GroupID:      group.ID,
			RoomID:       in.RoomID,
			TimeInterval: interval,
			CourseID:     group.CourseID,
			CourseName:   group.CourseName,
			Kind:         group.Kind,
			Section:      group.Section,
		})
	}
	return blocks, nil
}
