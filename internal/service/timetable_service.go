package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campushub/timetable-api/internal/models"
	"github.com/campushub/timetable-api/internal/timetable"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

type timetableBlockIndex interface {
	ListByGroups(ctx context.Context, groupIDs []string) ([]models.RecurringCommitment, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.RecurringCommitment, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.RecurringCommitment, error)
}

type timetableBookingIndex interface {
	ListByRoomInRange(ctx context.Context, roomID string, from, to time.Time) ([]models.PunctualReservation, error)
}

type studentGroupIndex interface {
	ListGroupIDsByStudent(ctx context.Context, studentID string) ([]string, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheRecorder interface {
	RecordCacheOperation(hit bool)
}

// TimetableService renders consolidated weekly grids for students, teachers
// and rooms, with a Redis cache in front of the builder.
type TimetableService struct {
	blocks   timetableBlockIndex
	bookings timetableBookingIndex
	groups   studentGroupIndex
	cache    timetableCache
	metrics  cacheRecorder
	builder  *timetable.Builder
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewTimetableService constructs TimetableService. cache may be nil to
// disable caching.
func NewTimetableService(blocks timetableBlockIndex, bookings timetableBookingIndex, groups studentGroupIndex, cache timetableCache, metrics cacheRecorder, builder *timetable.Builder, cacheTTL time.Duration, logger *zap.Logger) *TimetableService {
	if builder == nil {
		builder = timetable.NewBuilder(timetable.BuilderConfig{})
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		blocks:   blocks,
		bookings: bookings,
		groups:   groups,
		cache:    cache,
		metrics:  metrics,
		builder:  builder,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// StudentTimetable renders the weekly grid of a student's commitments: the
// union of their lecture and lab groups.
func (s *TimetableService) StudentTimetable(ctx context.Context, studentID string) (models.Timetable, error) {
	key := "timetable:student:" + studentID
	if grid, ok := s.cached(ctx, key); ok {
		return grid, nil
	}

	groupIDs, err := s.groups.ListGroupIDsByStudent(ctx, studentID)
	if err != nil {
		return models.Timetable{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student groups")
	}
	blocks, err := s.blocks.ListByGroups(ctx, groupIDs)
	if err != nil {
		return models.Timetable{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student blocks")
	}

	grid := s.builder.Build(entriesFromBlocks(blocks))
	s.store(ctx, key, grid)
	return grid, nil
}

// TeacherTimetable renders the weekly grid of every group a teacher teaches.
// Overlapping sections surface as conflict cells rather than errors.
func (s *TimetableService) TeacherTimetable(ctx context.Context, teacherID string) (models.Timetable, error) {
	key := "timetable:teacher:" + teacherID
	if grid, ok := s.cached(ctx, key); ok {
		return grid, nil
	}

	blocks, err := s.blocks.ListByTeacher(ctx, teacherID)
	if err != nil {
		return models.Timetable{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher blocks")
	}

	grid := s.builder.Build(entriesFromBlocks(blocks))
	s.store(ctx, key, grid)
	return grid, nil
}

// RoomTimetable renders a room's week: its recurring blocks plus the
// punctual reservations of the week containing the given date, folded into
// the weekday columns.
func (s *TimetableService) RoomTimetable(ctx context.Context, roomID string, date time.Time) (models.Timetable, error) {
	monday, _ := isoWeekBounds(date)
	key := "timetable:room:" + roomID + ":" + monday.Format("2006-01-02")
	if grid, ok := s.cached(ctx, key); ok {
		return grid, nil
	}

	blocks, err := s.blocks.ListByRoom(ctx, roomID)
	if err != nil {
		return models.Timetable{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room blocks")
	}
	friday := monday.AddDate(0, 0, 4)
	reservations, err := s.bookings.ListByRoomInRange(ctx, roomID, monday, friday)
	if err != nil {
		return models.Timetable{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room reservations")
	}

	entries := entriesFromBlocks(blocks)
	for i := range reservations {
		res := reservations[i]
		day, ok := models.WeekdayOf(res.Date)
		if !ok {
			continue
		}
		entries = append(entries, timetable.Entry{
			Interval: models.TimeInterval{Weekday: day, Start: res.Start, End: res.End},
			Cell: models.GridCell{
				Code:       "BOOKED",
				CourseID:   "reservation",
				CourseName: "Room reservation",
				Tag:        "RES",
				RoomID:     res.RoomID,
			},
		})
	}

	grid := s.builder.Build(entries)
	s.store(ctx, key, grid)
	return grid, nil
}

// InvalidateRoom drops every cached week of a room after a booking change.
func (s *TimetableService) InvalidateRoom(ctx context.Context, roomID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:room:"+roomID+":*"); err != nil {
		s.logger.Warn("room timetable invalidation failed", zap.String("room_id", roomID), zap.Error(err))
	}
}

// InvalidateStudent drops a student's cached grid after a lab enrollment.
func (s *TimetableService) InvalidateStudent(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:student:"+studentID); err != nil {
		s.logger.Warn("student timetable invalidation failed", zap.String("student_id", studentID), zap.Error(err))
	}
}

// InvalidateAll drops every cached grid. Schedule replacement touches an
// unknown set of student and teacher grids, so everything goes.
func (s *TimetableService) InvalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "timetable:*"); err != nil {
		s.logger.Warn("timetable invalidation failed", zap.Error(err))
	}
}

func (s *TimetableService) cached(ctx context.Context, key string) (models.Timetable, bool) {
	if s.cache == nil {
		return models.Timetable{}, false
	}
	var grid models.Timetable
	if err := s.cache.Get(ctx, key, &grid); err != nil {
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
		return models.Timetable{}, false
	}
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(true)
	}
	return grid, true
}

func (s *TimetableService) store(ctx context.Context, key string, grid models.Timetable) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, grid, s.cacheTTL); err != nil {
		s.logger.Warn("timetable cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// entriesFromBlocks converts recurring commitments into grid entries,
// preserving repository order so conflict tie-breaks stay deterministic.
func entriesFromBlocks(blocks []models.RecurringCommitment) []timetable.Entry {
	entries := make([]timetable.Entry, 0, len(blocks))
	for i := range blocks {
		b := blocks[i]
		entries = append(entries, timetable.Entry{
			Interval: b.TimeInterval,
			Cell: models.GridCell{
				Code:       b.DisplayCode(),
				CourseID:   b.CourseID,
				CourseName: b.CourseName,
				Tag:        b.Kind.CellTag(),
				RoomID:     b.RoomID,
			},
		})
	}
	return entries
}
