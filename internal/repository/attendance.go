package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

const attendanceColumns = `id, event_id, player_id, user_id, division_id, order_id, status, created_at`

func scanAttendance(row pgx.Row) (model.EventAttendance, error) {
	var a model.EventAttendance
	err := row.Scan(&a.ID, &a.EventID, &a.PlayerID, &a.UserID, &a.DivisionID, &a.OrderID, &a.Status, &a.CreatedAt)
	return a, err
}

// GetAttendance returns the attendance of playerID at eventID or ErrNotFound.
func (q *Queries) GetAttendance(ctx context.Context, eventID, playerID string) (*model.EventAttendance, error) {
	a, err := scanAttendance(q.db.QueryRow(ctx,
		`SELECT `+attendanceColumns+` FROM event_attendance WHERE event_id = $1 AND player_id = $2`,
		eventID, playerID,
	))
	if err != nil {
		return nil, wrap("get attendance", err)
	}
	return &a, nil
}

// EnsureAttendance returns the (event, player) attendance, inserting a
// pending one when none exists. The row is locked for the rest of the
// transaction.
func (q *Queries) EnsureAttendance(ctx context.Context, eventID, playerID, userID string) (*model.EventAttendance, error) {
	_, err := q.db.Exec(ctx,
		`INSERT INTO event_attendance (id, event_id, player_id, user_id, status, created_at)
		 VALUES ($1, $2, $3, $4, 'pending', $5)
		 ON CONFLICT (event_id, player_id) DO NOTHING`,
		uuid.New().String(), eventID, playerID, userID, time.Now().UTC(),
	)
	if err != nil {
		return nil, wrap("insert attendance", err)
	}

	a, err := scanAttendance(q.db.QueryRow(ctx,
		`SELECT `+attendanceColumns+` FROM event_attendance
		 WHERE event_id = $1 AND player_id = $2
		 FOR UPDATE`,
		eventID, playerID,
	))
	if err != nil {
		return nil, wrap("lock attendance", err)
	}
	return &a, nil
}

// MarkAttendancePaid sets an attendance to paid and links it to orderID.
// An empty divisionID keeps the division already on the row.
func (q *Queries) MarkAttendancePaid(ctx context.Context, id, orderID, divisionID string) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE event_attendance
		 SET status = 'paid', order_id = $2, division_id = COALESCE($3::uuid, division_id)
		 WHERE id = $1`,
		id, orderID, nullable(divisionID),
	)
	if err != nil {
		return wrap("mark attendance paid", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAttendanceByEvent returns every attendance of an event, oldest first.
func (q *Queries) ListAttendanceByEvent(ctx context.Context, eventID string) ([]model.EventAttendance, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+attendanceColumns+` FROM event_attendance WHERE event_id = $1 ORDER BY created_at`,
		eventID,
	)
	if err != nil {
		return nil, wrap("list attendance", err)
	}
	out, err := collect(rows, scanAttendance)
	return out, wrap("scan attendance", err)
}
