package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushub/timetable-api/internal/models"
)

// blockColumns is the projection shared by every recurring-block query:
// the block itself joined with the denormalised attributes of its group.
const blockColumns = `b.id, b.group_id, b.room_id, b.weekday, b.start_min, b.end_min, b.created_at,
	g.course_id, g.course_name, g.kind, g.section`

// RecurringBlockRepository is the read-only index over weekly recurring
// commitments plus the atomic replace used when a group's schedule is
// edited. It performs no conflict logic.
type RecurringBlockRepository struct {
	db *sqlx.DB
}

// NewRecurringBlockRepository creates a new recurring block repository.
func NewRecurringBlockRepository(db *sqlx.DB) *RecurringBlockRepository {
	return &RecurringBlockRepository{db: db}
}

// BeginTx opens a transaction for the replace check plus insert.
func (r *RecurringBlockRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

// ListByGroups returns every block of the given groups ordered by
// (group_id, weekday, start_min) so downstream tie-breaks are stable.
func (r *RecurringBlockRepository) ListByGroups(ctx context.Context, groupIDs []string) ([]models.RecurringCommitment, error) {
	return r.listByGroups(ctx, r.db, groupIDs)
}

// ListByGroupsTx is ListByGroups inside an existing transaction.
func (r *RecurringBlockRepository) ListByGroupsTx(ctx context.Context, tx *sqlx.Tx, groupIDs []string) ([]models.RecurringCommitment, error) {
	return r.listByGroups(ctx, tx, groupIDs)
}

func (r *RecurringBlockRepository) listByGroups(ctx context.Context, q sqlx.ExtContext, groupIDs []string) ([]models.RecurringCommitment, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM recurring_blocks b
		JOIN course_groups g ON g.id = b.group_id
		WHERE b.group_id = ANY($1)
		ORDER BY b.group_id ASC, b.weekday ASC, b.start_min ASC`, blockColumns)
	var blocks []models.RecurringCommitment
	if err := sqlx.SelectContext(ctx, q, &blocks, query, pq.Array(groupIDs)); err != nil {
		return nil, fmt.Errorf("list blocks by groups: %w", err)
	}
	return blocks, nil
}

// ListByGroupsForDay narrows ListByGroups to a single weekday.
func (r *RecurringBlockRepository) ListByGroupsForDay(ctx context.Context, groupIDs []string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return r.listByGroupsForDay(ctx, r.db, groupIDs, day)
}

// ListByGroupsForDayTx is ListByGroupsForDay inside an existing transaction.
func (r *RecurringBlockRepository) ListByGroupsForDayTx(ctx context.Context, tx *sqlx.Tx, groupIDs []string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return r.listByGroupsForDay(ctx, tx, groupIDs, day)
}

func (r *RecurringBlockRepository) listByGroupsForDay(ctx context.Context, q sqlx.ExtContext, groupIDs []string, day models.Weekday) ([]models.RecurringCommitment, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM recurring_blocks b
		JOIN course_groups g ON g.id = b.group_id
		WHERE b.group_id = ANY($1) AND b.weekday = $2
		ORDER BY b.group_id ASC, b.start_min ASC`, blockColumns)
	var blocks []models.RecurringCommitment
	if err := sqlx.SelectContext(ctx, q, &blocks, query, pq.Array(groupIDs), day); err != nil {
		return nil, fmt.Errorf("list blocks by groups for day: %w", err)
	}
	return blocks, nil
}

// ListByRoom returns every block hosted in a room.
func (r *RecurringBlockRepository) ListByRoom(ctx context.Context, roomID string) ([]models.RecurringCommitment, error) {
	query := fmt.Sprintf(`SELECT %s FROM recurring_blocks b
		JOIN course_groups g ON g.id = b.group_id
		WHERE b.room_id = $1
		ORDER BY b.group_id ASC, b.weekday ASC, b.start_min ASC`, blockColumns)
	var blocks []models.RecurringCommitment
	if err := r.db.SelectContext(ctx, &blocks, query, roomID); err != nil {
		return nil, fmt.Errorf("list blocks by room: %w", err)
	}
	return blocks, nil
}

// ListByRoomForDay returns a room's blocks on one weekday.
func (r *RecurringBlockRepository) ListByRoomForDay(ctx context.Context, roomID string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return r.listByRoomForDay(ctx, r.db, roomID, day)
}

// ListByRoomForDayTx is ListByRoomForDay inside an existing transaction.
func (r *RecurringBlockRepository) ListByRoomForDayTx(ctx context.Context, tx *sqlx.Tx, roomID string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return r.listByRoomForDay(ctx, tx, roomID, day)
}

func (r *RecurringBlockRepository) listByRoomForDay(ctx context.Context, q sqlx.ExtContext, roomID string, day models.Weekday) ([]models.RecurringCommitment, error) {
	query := fmt.Sprintf(`SELECT %s FROM recurring_blocks b
		JOIN course_groups g ON g.id = b.group_id
		WHERE b.room_id = $1 AND b.weekday = $2
		ORDER BY b.group_id ASC, b.start_min ASC`, blockColumns)
	var blocks []models.RecurringCommitment
	if err := sqlx.SelectContext(ctx, q, &blocks, query, roomID, day); err != nil {
		return nil, fmt.Errorf("list blocks by room for day: %w", err)
	}
	return blocks, nil
}

// ListByTeacher returns the blocks of every group taught by a teacher.
func (r *RecurringBlockRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.RecurringCommitment, error) {
	return r.listByTeacher(ctx, r.db, teacherID, "")
}

// ListByTeacherForDay narrows ListByTeacher to one weekday.
func (r *RecurringBlockRepository) ListByTeacherForDay(ctx context.Context, teacherID string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return r.listByTeacher(ctx, r.db, teacherID, day)
}

// ListByTeacherForDayTx is ListByTeacherForDay inside an existing transaction.
func (r *RecurringBlockRepository) ListByTeacherForDayTx(ctx context.Context, tx *sqlx.Tx, teacherID string, day models.Weekday) ([]models.RecurringCommitment, error) {
	return r.listByTeacher(ctx, tx, teacherID, day)
}

func (r *RecurringBlockRepository) listByTeacher(ctx context.Context, q sqlx.ExtContext, teacherID string, day models.Weekday) ([]models.RecurringCommitment, error) {
	query := fmt.Sprintf(`SELECT %s FROM recurring_blocks b
		JOIN course_groups g ON g.id = b.group_id
		WHERE g.teacher_id = $1`, blockColumns)
	args := []interface{}{teacherID}
	if day != "" {
		query += " AND b.weekday = $2"
		args = append(args, day)
	}
	query += " ORDER BY b.group_id ASC, b.weekday ASC, b.start_min ASC"
	var blocks []models.RecurringCommitment
	if err := sqlx.SelectContext(ctx, q, &blocks, query, args...); err != nil {
		return nil, fmt.Errorf("list blocks by teacher: %w", err)
	}
	return blocks, nil
}

// ReplaceForGroupTx deletes every block of the group and inserts the new
// set within the caller's transaction. Schedule edits are always a full
// replacement, never a partial patch.
func (r *RecurringBlockRepository) ReplaceForGroupTx(ctx context.Context, tx *sqlx.Tx, groupID string, blocks []models.RecurringCommitment) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM recurring_blocks WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("delete blocks for group: %w", err)
	}

	now := time.Now().UTC()
	for i := range blocks {
		payload := blocks[i]
		payload.GroupID = groupID
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		const query = `INSERT INTO recurring_blocks (id, group_id, room_id, weekday, start_min, end_min, created_at)
			VALUES (:id, :group_id, :room_id, :weekday, :start_min, :end_min, :created_at)`
		if _, err := sqlx.NamedExecContext(ctx, tx, query, &payload); err != nil {
			return fmt.Errorf("insert block for group: %w", err)
		}
		blocks[i] = payload
	}
	return nil
}
