package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushub/timetable-api/internal/models"
	appErrors "github.com/campushub/timetable-api/pkg/errors"
)

const reservationColumns = `id, room_id, requester_id, res_date, start_min, end_min, created_at`

// ReservationRepository persists punctual room reservations.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// BeginTx opens a transaction for admission checks plus insert.
func (r *ReservationRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

// FindByID loads one reservation.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.PunctualReservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE id = $1`, reservationColumns)
	var res models.PunctualReservation
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find reservation: %w", err)
	}
	return &res, nil
}

// List returns reservations matching the filter, newest date first, with the
// total count for pagination.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.PunctualReservation, int, error) {
	conds := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.RoomID != "" {
		conds = append(conds, "room_id = "+arg(filter.RoomID))
	}
	if filter.RequesterID != "" {
		conds = append(conds, "requester_id = "+arg(filter.RequesterID))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "res_date >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "res_date <= "+arg(filter.To))
	}
	where := strings.Join(conds, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM reservations WHERE " + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE %s
		ORDER BY res_date DESC, start_min ASC`, reservationColumns, where)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %s OFFSET %s", arg(filter.PageSize), arg((page-1)*filter.PageSize))
	}

	var reservations []models.PunctualReservation
	if err := r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, total, nil
}

// ListByRoomAndDate returns a room's bookings on one calendar date ordered by
// start time.
func (r *ReservationRepository) ListByRoomAndDate(ctx context.Context, roomID string, date time.Time) ([]models.PunctualReservation, error) {
	return r.listByRoomAndDate(ctx, r.db, roomID, date)
}

// ListByRoomAndDateTx is ListByRoomAndDate inside an existing transaction.
func (r *ReservationRepository) ListByRoomAndDateTx(ctx context.Context, tx *sqlx.Tx, roomID string, date time.Time) ([]models.PunctualReservation, error) {
	return r.listByRoomAndDate(ctx, tx, roomID, date)
}

func (r *ReservationRepository) listByRoomAndDate(ctx context.Context, q sqlx.ExtContext, roomID string, date time.Time) ([]models.PunctualReservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations
		WHERE room_id = $1 AND res_date = $2
		ORDER BY start_min ASC`, reservationColumns)
	var reservations []models.PunctualReservation
	if err := sqlx.SelectContext(ctx, q, &reservations, query, roomID, date); err != nil {
		return nil, fmt.Errorf("list reservations by room and date: %w", err)
	}
	return reservations, nil
}

// ListByRequesterAndDate returns a requester's own bookings on one date.
func (r *ReservationRepository) ListByRequesterAndDate(ctx context.Context, requesterID string, date time.Time) ([]models.PunctualReservation, error) {
	return r.listByRequesterAndDate(ctx, r.db, requesterID, date)
}

// ListByRequesterAndDateTx is ListByRequesterAndDate inside an existing transaction.
func (r *ReservationRepository) ListByRequesterAndDateTx(ctx context.Context, tx *sqlx.Tx, requesterID string, date time.Time) ([]models.PunctualReservation, error) {
	return r.listByRequesterAndDate(ctx, tx, requesterID, date)
}

func (r *ReservationRepository) listByRequesterAndDate(ctx context.Context, q sqlx.ExtContext, requesterID string, date time.Time) ([]models.PunctualReservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations
		WHERE requester_id = $1 AND res_date = $2
		ORDER BY start_min ASC`, reservationColumns)
	var reservations []models.PunctualReservation
	if err := sqlx.SelectContext(ctx, q, &reservations, query, requesterID, date); err != nil {
		return nil, fmt.Errorf("list reservations by requester and date: %w", err)
	}
	return reservations, nil
}

// ListByRoomInRange returns a room's bookings with dates in [from, to].
func (r *ReservationRepository) ListByRoomInRange(ctx context.Context, roomID string, from, to time.Time) ([]models.PunctualReservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations
		WHERE room_id = $1 AND res_date >= $2 AND res_date <= $3
		ORDER BY res_date ASC, start_min ASC`, reservationColumns)
	var reservations []models.PunctualReservation
	if err := r.db.SelectContext(ctx, &reservations, query, roomID, from, to); err != nil {
		return nil, fmt.Errorf("list reservations by room in range: %w", err)
	}
	return reservations, nil
}

// CountByRequesterInRange counts a requester's bookings with dates inside
// [from, to]. The quota check passes the Monday and Sunday of the requested
// date's ISO week.
func (r *ReservationRepository) CountByRequesterInRange(ctx context.Context, tx *sqlx.Tx, requesterID string, from, to time.Time) (int, error) {
	var q sqlx.ExtContext = r.db
	if tx != nil {
		q = tx
	}
	const query = `SELECT COUNT(*) FROM reservations
		WHERE requester_id = $1 AND res_date >= $2 AND res_date <= $3`
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, requesterID, from, to); err != nil {
		return 0, fmt.Errorf("count reservations in range: %w", err)
	}
	return count, nil
}

// CreateTx inserts the reservation within the caller's transaction, filling
// ID and CreatedAt when empty. A violation of the room-overlap exclusion
// constraint surfaces as a conflict error.
func (r *ReservationRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, res *models.PunctualReservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reservations (id, room_id, requester_id, res_date, start_min, end_min, created_at)
		VALUES (:id, :room_id, :requester_id, :res_date, :start_min, :end_min, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, res); err != nil {
		if isExclusionViolation(err) {
			return appErrors.ErrConflict
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// Delete removes a reservation owned by the requester.
func (r *ReservationRepository) Delete(ctx context.Context, id, requesterID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1 AND requester_id = $2`, id, requesterID)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}
