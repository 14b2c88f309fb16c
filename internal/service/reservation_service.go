package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

type reservationRepository interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	FindByID(ctx context.Context, id string) (*models.PunctualReservation, error)
	List(ctx context.Context, filter models.ReservationFilter) ([]models.PunctualReservation, int, error)
	CountByRequesterInRange(ctx context.Context, tx *sqlx.Tx, requesterID string, from, to time.Time) (int, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, res *models.PunctualReservation) error
	Delete(ctx context.Context, id, requesterID string) error
}

type roomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
	List(ctx context.Context) ([]models.Room, error)
}

type admissionChecker interface {
	Classify(ctx context.Context, tx *sqlx.Tx, candidate models.DatedInterval, owners Owners, excluding Excluding) (models.Classification, error)
}

type timetableInvalidator interface {
	InvalidateRoom(ctx context.Context, roomID string)
}

// CreateReservationRequest describes a booking request.
type CreateReservationRequest struct {
	RoomID      string `json:"room_id" validate:"required"`
	RequesterID string `json:"-"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Start       string `json:"start" validate:"required"`
	End         string `json:"end" validate:"required"`
}

// ReservationService admits and manages punctual room bookings. Admission
// applies its rules in a fixed order, each rejection short-circuiting the
// rest: invalid range, weekend, past date, weekly quota, then conflicts.
type ReservationService struct {
	repo        reservationRepository
	rooms       roomReader
	conflicts   admissionChecker
	cache       timetableInvalidator
	weeklyQuota int
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewReservationService constructs ReservationService.
func NewReservationService(repo reservationRepository, rooms roomReader, conflicts admissionChecker, cache timetableInvalidator, weeklyQuota int, validate *validator.Validate, logger *zap.Logger) *ReservationService {
	if weeklyQuota <= 0 {
		weeklyQuota = 2
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{
		repo:        repo,
		rooms:       rooms,
		conflicts:   conflicts,
		cache:       cache,
		weeklyQuota: weeklyQuota,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns reservations matching the filter with pagination metadata.
func (s *ReservationService) List(ctx context.Context, filter models.ReservationFilter) ([]models.PunctualReservation, *models.Pagination, error) {
	reservations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return reservations, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Admit runs the admission policy and, when every rule passes, creates the
// reservation. The quota count and the conflict check run inside the insert
// transaction so a concurrent booking cannot slip between check and insert;
// the database exclusion constraint backstops the remainder.
func (s *ReservationService) Admit(ctx context.Context, req CreateReservationRequest) (*models.PunctualReservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	candidate, err := s.parseCandidate(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.rooms.FindByID(ctx, req.RoomID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
	}

	// Rule 1: well-formed range.
	if !candidate.Valid() {
		return nil, appErrors.ErrInvalidRange
	}
	// Rule 2: teaching days only.
	if _, ok := models.WeekdayOf(candidate.Date); !ok {
		return nil, appErrors.ErrWeekendNotAllowed
	}
	// Rule 3: no booking in the past.
	if candidate.Date.Before(s.today()) {
		return nil, appErrors.ErrPastDate
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

	// Rule 4: weekly quota over the ISO week of the requested date.
	weekStart, weekEnd := isoWeekBounds(candidate.Date)
	var count int
	if count, err = s.repo.CountByRequesterInRange(ctx, tx, req.RequesterID, weekStart, weekEnd); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count weekly reservations")
		return nil, err
	}
	if count >= s.weeklyQuota {
		err = appErrors.ErrWeeklyQuotaExceeded
		return nil, err
	}

	// Rule 5: no collision on the room side nor on the requester's own
	// bookings.
	var verdict models.Classification
	verdict, err = s.conflicts.Classify(ctx, tx, candidate, Owners{RoomID: req.RoomID, RequesterID: req.RequesterID}, Excluding{})
	if err != nil {
		return nil, err
	}
	if !verdict.Free() {
		err = conflictRejection(verdict)
		return nil, err
	}

	reservation := &models.PunctualReservation{
		RoomID:        req.RoomID,
		RequesterID:   req.RequesterID,
		DatedInterval: candidate,
	}
	if err = s.repo.CreateTx(ctx, tx, reservation); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reservation")
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidateRoom(ctx, req.RoomID)
	}
	s.logger.Info("reservation admitted",
		zap.String("reservation_id", reservation.ID),
		zap.String("room_id", reservation.RoomID),
		zap.String("requester_id", reservation.RequesterID))
	return reservation, nil
}

// Cancel deletes a reservation owned by the requester.
func (s *ReservationService) Cancel(ctx context.Context, id, requesterID string) error {
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if reservation.RequesterID != requesterID {
		return appErrors.Clone(appErrors.ErrForbidden, "reservation belongs to another requester")
	}
	if err := s.repo.Delete(ctx, id, requesterID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.InvalidateRoom(ctx, reservation.RoomID)
	}
	return nil
}

func (s *ReservationService) parseCandidate(req CreateReservationRequest) (models.DatedInterval, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return models.DatedInterval{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	start, err := models.ParseClockTime(req.Start)
	if err != nil {
		return models.DatedInterval{}, appErrors.ErrInvalidRange
	}
	end, err := models.ParseClockTime(req.End)
	if err != nil {
		return models.DatedInterval{}, appErrors.ErrInvalidRange
	}
	return models.DatedInterval{Date: date, Start: start, End: end}, nil
}

// today truncates the clock off the current instant.
func (s *ReservationService) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// isoWeekBounds returns the Monday and Sunday dates of the ISO week
// containing the given date. The quota window follows the requested date's
// week, not the current week.
func isoWeekBounds(date time.Time) (time.Time, time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	offset := int(day.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

// conflictRejection renders a classification into the conflict error the
// client sees, carrying the colliding commitment.
func conflictRejection(verdict models.Classification) error {
	cerr := &models.ConflictError{Kind: verdict.Kind}
	switch verdict.Kind {
	case models.ConflictRecurring:
		cerr.Recurring = verdict.Recurring
		cerr.Message = fmt.Sprintf("conflicts with %s on %s %s",
			verdict.Recurring.DisplayCode(), verdict.Recurring.Weekday, verdict.Recurring.Label())
	case models.ConflictPunctual:
		cerr.Punctual = verdict.Punctual
		cerr.Message = fmt.Sprintf("conflicts with a reservation on %s %s-%s",
			verdict.Punctual.Date.Format("2006-01-02"), verdict.Punctual.Start, verdict.Punctual.End)
	default:
		return nil
	}
	return appErrors.Wrap(cerr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, cerr.Message)
}
