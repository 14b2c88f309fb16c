package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
	"github.com/campushub/timetable-api/internal/timetable"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

type conflictBlockIndex interface {
	ListByGroups(ctx context.Context, groupIDs []string) ([]models.RecurringCommitment, error)
	ListByGroupsTx(ctx context.Context, tx *sqlx.Tx, groupIDs []string) ([]models.RecurringCommitment, error)
	ListByGroupsForDay(ctx context.Context, groupIDs []string, day models.Weekday) ([]models.RecurringCommitment, error)
	ListByGroupsForDayTx(ctx context.Context, tx *sqlx.Tx, groupIDs []string, day models.Weekday) ([]models.RecurringCommitment, error)
	ListByRoomForDay(ctx context.Context, roomID string, day models.Weekday) ([]models.RecurringCommitment, error)
	ListByRoomForDayTx(ctx context.Context, tx *sqlx.Tx, roomID string, day models.Weekday) ([]models.RecurringCommitment, error)
	ListByTeacherForDay(ctx context.Context, teacherID string, day models.Weekday) ([]models.RecurringCommitment, error)
	ListByTeacherForDayTx(ctx context.Context, tx *sqlx.Tx, teacherID string, day models.Weekday) ([]models.RecurringCommitment, error)
}

type conflictGroupIndex interface {
	ListGroupIDsByStudent(ctx context.Context, studentID string) ([]string, error)
	ListGroupIDsByStudentTx(ctx context.Context, tx *sqlx.Tx, studentID string) ([]string, error)
}

type conflictBookingIndex interface {
	ListByRoomAndDate(ctx context.Context, roomID string, date time.Time) ([]models.PunctualReservation, error)
	ListByRoomAndDateTx(ctx context.Context, tx *sqlx.Tx, roomID string, date time.Time) ([]models.PunctualReservation, error)
	ListByRequesterAndDate(ctx context.Context, requesterID string, date time.Time) ([]models.PunctualReservation, error)
	ListByRequesterAndDateTx(ctx context.Context, tx *sqlx.Tx, requesterID string, date time.Time) ([]models.PunctualReservation, error)
	ListByRoomInRange(ctx context.Context, roomID string, from, to time.Time) ([]models.PunctualReservation, error)
}

// Owners names the commitment sets a candidate is checked against. Empty
// fields are skipped; the enrollment check passes GroupIDs only, the booking
// check passes RoomID and RequesterID. A RequesterID pulls in the requester's
// own recurring commitments — groups they teach or attend — as well as their
// punctual bookings, so a requester busy elsewhere at that time is rejected.
type Owners struct {
	GroupIDs    []string
	RoomID      string
	RequesterID string
}

// Excluding names commitments the check must ignore: the group whose
// schedule is being replaced, or the reservation being re-checked.
type Excluding struct {
	GroupID       string
	ReservationID string
}

// ConflictService classifies candidate intervals against existing
// commitments. Recurring blocks are checked before punctual bookings; the
// first overlap in scan order decides the outcome.
type ConflictService struct {
	blocks      conflictBlockIndex
	bookings    conflictBookingIndex
	groups      conflictGroupIndex
	horizonDays int
	logger      *zap.Logger
	now         func() time.Time
}

// NewConflictService constructs ConflictService. horizonDays bounds how far
// ahead punctual bookings are considered when checking a weekly candidate.
func NewConflictService(blocks conflictBlockIndex, bookings conflictBookingIndex, groups conflictGroupIndex, horizonDays int, logger *zap.Logger) *ConflictService {
	if horizonDays <= 0 {
		horizonDays = 120
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{blocks: blocks, bookings: bookings, groups: groups, horizonDays: horizonDays, logger: logger, now: time.Now}
}

// Classify checks a dated candidate against the owners' commitments. A nil
// tx reads the live tables; a non-nil tx reads inside the caller's
// transaction so the verdict and the subsequent insert share one snapshot.
func (s *ConflictService) Classify(ctx context.Context, tx *sqlx.Tx, candidate models.DatedInterval, owners Owners, excluding Excluding) (models.Classification, error) {
	if !candidate.Valid() {
		return models.Classification{}, appErrors.ErrInvalidRange
	}

	day, weekday := models.WeekdayOf(candidate.Date)
	blocks, err := s.collectBlocks(ctx, tx, owners, day, weekday)
	if err != nil {
		return models.Classification{}, err
	}
	if hit := timetable.FirstBlockOverlapDated(candidate, blocks, excluding.GroupID); hit != nil {
		return models.Classification{Kind: models.ConflictRecurring, Recurring: hit}, nil
	}

	bookings, err := s.collectBookings(ctx, tx, owners, candidate.Date)
	if err != nil {
		return models.Classification{}, err
	}
	if hit := timetable.FirstBookingOverlap(candidate, bookings, excluding.ReservationID); hit != nil {
		return models.Classification{Kind: models.ConflictPunctual, Punctual: hit}, nil
	}

	return models.Classification{Kind: models.ConflictNone}, nil
}

// ClassifyWeekly checks a weekly candidate against the owners' commitments:
// the groups' blocks, the room's blocks on the candidate's weekday, and the
// room's punctual bookings falling on that weekday within the horizon.
func (s *ConflictService) ClassifyWeekly(ctx context.Context, tx *sqlx.Tx, candidate models.TimeInterval, owners Owners, excluding Excluding) (models.Classification, error) {
	if !candidate.Valid() {
		return models.Classification{}, appErrors.ErrInvalidRange
	}

	blocks, err := s.collectBlocks(ctx, tx, owners, candidate.Weekday, true)
	if err != nil {
		return models.Classification{}, err
	}
	if hit := timetable.FirstBlockOverlap(candidate, blocks, excluding.GroupID); hit != nil {
		return models.Classification{Kind: models.ConflictRecurring, Recurring: hit}, nil
	}

	if owners.RoomID != "" {
		from := s.now()
		to := from.AddDate(0, 0, s.horizonDays)
		bookings, err := s.bookings.ListByRoomInRange(ctx, owners.RoomID, from, to)
		if err != nil {
			return models.Classification{}, fmt.Errorf("load room bookings: %w", err)
		}
		if hit := timetable.FirstBookingOverlapWeekly(candidate, bookings, excluding.ReservationID); hit != nil {
			return models.Classification{Kind: models.ConflictPunctual, Punctual: hit}, nil
		}
	}

	return models.Classification{Kind: models.ConflictNone}, nil
}

func (s *ConflictService) collectBlocks(ctx context.Context, tx *sqlx.Tx, owners Owners, day models.Weekday, weekday bool) ([]models.RecurringCommitment, error) {
	var blocks []models.RecurringCommitment

	if len(owners.GroupIDs) > 0 {
		var groupBlocks []models.RecurringCommitment
		var err error
		if tx != nil {
			groupBlocks, err = s.blocks.ListByGroupsTx(ctx, tx, owners.GroupIDs)
		} else {
			groupBlocks, err = s.blocks.ListByGroups(ctx, owners.GroupIDs)
		}
		if err != nil {
			return nil, fmt.Errorf("load group blocks: %w", err)
		}
		blocks = append(blocks, groupBlocks...)
	}

	// A candidate off the teaching week cannot hit recurring blocks.
	if owners.RoomID != "" && weekday {
		var roomBlocks []models.RecurringCommitment
		var err error
		if tx != nil {
			roomBlocks, err = s.blocks.ListByRoomForDayTx(ctx, tx, owners.RoomID, day)
		} else {
			roomBlocks, err = s.blocks.ListByRoomForDay(ctx, owners.RoomID, day)
		}
		if err != nil {
			return nil, fmt.Errorf("load room blocks: %w", err)
		}
		blocks = append(blocks, roomBlocks...)
	}

	// The requester's own classes — taught or attended — occupy them the
	// same way a room booking does.
	if owners.RequesterID != "" && weekday {
		var taught []models.RecurringCommitment
		var err error
		if tx != nil {
			taught, err = s.blocks.ListByTeacherForDayTx(ctx, tx, owners.RequesterID, day)
		} else {
			taught, err = s.blocks.ListByTeacherForDay(ctx, owners.RequesterID, day)
		}
		if err != nil {
			return nil, fmt.Errorf("load requester taught blocks: %w", err)
		}
		blocks = append(blocks, taught...)

		var enrolled []string
		if tx != nil {
			enrolled, err = s.groups.ListGroupIDsByStudentTx(ctx, tx, owners.RequesterID)
		} else {
			enrolled, err = s.groups.ListGroupIDsByStudent(ctx, owners.RequesterID)
		}
		if err != nil {
			return nil, fmt.Errorf("load requester groups: %w", err)
		}
		if len(enrolled) > 0 {
			var attended []models.RecurringCommitment
			if tx != nil {
				attended, err = s.blocks.ListByGroupsForDayTx(ctx, tx, enrolled, day)
			} else {
				attended, err = s.blocks.ListByGroupsForDay(ctx, enrolled, day)
			}
			if err != nil {
				return nil, fmt.Errorf("load requester attended blocks: %w", err)
			}
			blocks = append(blocks, attended...)
		}
	}

	return blocks, nil
}

func (s *ConflictService) collectBookings(ctx context.Context, tx *sqlx.Tx, owners Owners, date time.Time) ([]models.PunctualReservation, error) {
	var bookings []models.PunctualReservation

	if owners.RoomID != "" {
		var roomBookings []models.PunctualReservation
		var err error
		if tx != nil {
			roomBookings, err = s.bookings.ListByRoomAndDateTx(ctx, tx, owners.RoomID, date)
		} else {
			roomBookings, err = s.bookings.ListByRoomAndDate(ctx, owners.RoomID, date)
		}
		if err != nil {
			return nil, fmt.Errorf("load room bookings: %w", err)
		}
		bookings = append(bookings, roomBookings...)
	}

	if owners.RequesterID != "" {
		var own []models.PunctualReservation
		var err error
		if tx != nil {
			own, err = s.bookings.ListByRequesterAndDateTx(ctx, tx, owners.RequesterID, date)
		} else {
			own, err = s.bookings.ListByRequesterAndDate(ctx, owners.RequesterID, date)
		}
		if err != nil {
			return nil, fmt.Errorf("load requester bookings: %w", err)
		}
		bookings = append(bookings, own...)
	}

	return bookings, nil
}
