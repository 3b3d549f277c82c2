package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Miompolly/capstone/internal/models"
	"github.com/Miompolly/capstone/pkg/logger"
	"github.com/Miompolly/capstone/pkg/metrics"
)

var (
	// ErrNotFound indicates the row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict indicates the booking was not in the expected status
	ErrStatusConflict = errors.New("booking status conflict")
)

// bookingColumns is the select list shared by all booking queries.
// Times are rendered as HH:MM strings, names come from the users joins.
const bookingColumns = `
	b.id, b.mentor_id, b.mentee_id, b.title, b.note, b.day,
	to_char(b.start_time, 'HH24:MI'), to_char(b.end_time, 'HH24:MI'),
	b.status, b.meeting_batch, b.meeting_link, b.created_at, b.updated_at,
	mentor.name, mentee.name`

const userJoins = `
	JOIN users mentor ON mentor.id = b.mentor_id
	JOIN users mentee ON mentee.id = b.mentee_id`

// BookingRepository handles booking data access backed by PostgreSQL
type BookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{
		pool: pool,
	}
}

// observeDB records duration and outcome of a database operation
func observeDB(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := metrics.MeasureDuration(start)
	metrics.DBOperationDuration.WithLabelValues(operation, status).Observe(duration)
	metrics.DBOperationTotal.WithLabelValues(operation, status).Inc()
	logger.LogDBCall(operation, status, duration)
}

// Create stores a new pending booking for a mentee
func (r *BookingRepository) Create(ctx context.Context, menteeID int64, req *models.CreateBookingRequest) (*models.Booking, error) {
	start := time.Now()

	query := `
		WITH b AS (
			INSERT INTO bookings (mentor_id, mentee_id, title, note, day, start_time, end_time, status)
			VALUES ($1, $2, $3, $4, $5, $6::time, $7::time, 'pending')
			RETURNING *
		)
		SELECT ` + bookingColumns + `
		FROM b` + userJoins

	booking, err := models.ScanBooking(r.pool.QueryRow(ctx, query,
		req.MentorID, menteeID, req.Title, req.Note, req.Day, req.StartTime, req.EndTime))
	observeDB("booking_create", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	return booking, nil
}

// GetByID fetches a single booking with mentor and mentee names
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	start := time.Now()

	query := `SELECT ` + bookingColumns + ` FROM bookings b` + userJoins + ` WHERE b.id = $1`

	booking, err := models.ScanBooking(r.pool.QueryRow(ctx, query, id))
	observeDB("booking_get_by_id", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return booking, nil
}

// GetByMentor fetches a mentor's bookings filtered by statuses.
// Empty statuses means no status filter.
func (r *BookingRepository) GetByMentor(ctx context.Context, mentorID int64, statuses []models.BookingStatus) ([]*models.Booking, error) {
	return r.list(ctx, "booking_get_by_mentor", `b.mentor_id = $1`, mentorID, statuses)
}

// GetByMentee fetches a mentee's bookings filtered by statuses
func (r *BookingRepository) GetByMentee(ctx context.Context, menteeID int64, statuses []models.BookingStatus) ([]*models.Booking, error) {
	return r.list(ctx, "booking_get_by_mentee", `b.mentee_id = $1`, menteeID, statuses)
}

// GetAll fetches every booking filtered by statuses (admin view)
func (r *BookingRepository) GetAll(ctx context.Context, statuses []models.BookingStatus) ([]*models.Booking, error) {
	start := time.Now()

	query := `SELECT ` + bookingColumns + ` FROM bookings b` + userJoins + `
		WHERE ($1::text[] IS NULL OR b.status = ANY($1))
		ORDER BY b.created_at DESC, b.id`

	rows, err := r.pool.Query(ctx, query, statusArg(statuses))
	if err != nil {
		observeDB("booking_get_all", start, err)
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}

	bookings, err := models.ScanBookings(rows)
	observeDB("booking_get_all", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to scan bookings: %w", err)
	}
	return bookings, nil
}

// list runs a filtered booking query for one side of the booking
func (r *BookingRepository) list(ctx context.Context, operation, ownerClause string, ownerID int64, statuses []models.BookingStatus) ([]*models.Booking, error) {
	start := time.Now()

	query := `SELECT ` + bookingColumns + ` FROM bookings b` + userJoins + `
		WHERE ` + ownerClause + ` AND ($2::text[] IS NULL OR b.status = ANY($2))
		ORDER BY b.day, b.start_time, b.id`

	rows, err := r.pool.Query(ctx, query, ownerID, statusArg(statuses))
	if err != nil {
		observeDB(operation, start, err)
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}

	bookings, err := models.ScanBookings(rows)
	observeDB(operation, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to scan bookings: %w", err)
	}
	return bookings, nil
}

// statusArg converts a status filter to a text array argument, nil meaning no filter
func statusArg(statuses []models.BookingStatus) []string {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// GetPendingIDsForMentor filters the given IDs down to bookings that belong
// to the mentor and are still pending
func (r *BookingRepository) GetPendingIDsForMentor(ctx context.Context, mentorID int64, ids []int64) ([]int64, error) {
	start := time.Now()

	query := `
		SELECT id FROM bookings
		WHERE mentor_id = $1 AND status = 'pending' AND id = ANY($2)
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, mentorID, ids)
	if err != nil {
		observeDB("booking_get_pending_ids", start, err)
		return nil, fmt.Errorf("failed to query pending bookings: %w", err)
	}
	defer rows.Close()

	pending := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			observeDB("booking_get_pending_ids", start, err)
			return nil, fmt.Errorf("failed to scan booking id: %w", err)
		}
		pending = append(pending, id)
	}
	err = rows.Err()
	observeDB("booking_get_pending_ids", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending bookings: %w", err)
	}

	return pending, nil
}

// UpdateStatus moves a booking from one status to another without touching
// allocation fields. The write is a compare-and-set on the expected current
// status, so a decision racing a concurrent one fails with ErrStatusConflict
// instead of overwriting it.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, from, to models.BookingStatus) error {
	start := time.Now()

	query := `UPDATE bookings SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`

	tag, err := r.pool.Exec(ctx, query, id, string(from), string(to))
	observeDB("booking_update_status", start, err)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or its status changed under us
		var exists bool
		err := r.pool.QueryRow(ctx, `SELECT true FROM bookings WHERE id = $1`, id).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check booking existence: %w", err)
		}
		return ErrStatusConflict
	}

	return nil
}

// ApproveWithAllocation approves a pending booking and stores the batch
// assignment computed by assign. The whole read-decide-write runs inside a
// transaction holding an advisory lock on the mentor, so concurrent
// approvals for the same mentor are serialized and cannot overfill a batch.
func (r *BookingRepository) ApproveWithAllocation(ctx context.Context, bookingID, mentorID int64,
	assign func(maxBatch *int, countInMax int) (batch int, link string)) (*models.Booking, error) {
	start := time.Now()
	booking, err := r.approveWithAllocation(ctx, bookingID, mentorID, assign)
	observeDB("booking_approve", start, err)
	return booking, err
}

func (r *BookingRepository) approveWithAllocation(ctx context.Context, bookingID, mentorID int64,
	assign func(maxBatch *int, countInMax int) (batch int, link string)) (*models.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize allocation per mentor. The lock is released at commit or rollback.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, mentorID); err != nil {
		return nil, fmt.Errorf("failed to acquire mentor lock: %w", err)
	}

	// Re-check under the lock: a concurrent decision may have won.
	var status models.BookingStatus
	err = tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1 AND mentor_id = $2`,
		bookingID, mentorID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read booking status: %w", err)
	}
	if status != models.StatusPending {
		return nil, ErrStatusConflict
	}

	var maxBatch *int
	var countInMax int
	err = tx.QueryRow(ctx, `
		SELECT max(meeting_batch),
			count(*) FILTER (WHERE meeting_batch = (
				SELECT max(meeting_batch) FROM bookings
				WHERE mentor_id = $1 AND status = 'approved'))
		FROM bookings
		WHERE mentor_id = $1 AND status = 'approved'`, mentorID).Scan(&maxBatch, &countInMax)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch occupancy: %w", err)
	}

	batch, link := assign(maxBatch, countInMax)

	query := `
		WITH b AS (
			UPDATE bookings
			SET status = 'approved', meeting_batch = $2, meeting_link = $3, updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + bookingColumns + `
		FROM b` + userJoins

	booking, err := models.ScanBooking(tx.QueryRow(ctx, query, bookingID, batch, link))
	if err != nil {
		return nil, fmt.Errorf("failed to store approval: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	logger.Debug("Booking approved with batch allocation",
		zap.Int64("booking_id", bookingID),
		zap.Int64("mentor_id", mentorID),
		zap.Int("batch", batch))

	return booking, nil
}

// Delete removes a booking
func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	tag, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	observeDB("booking_delete", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// GetCalendar fetches a mentor's approved bookings as calendar entries
func (r *BookingRepository) GetCalendar(ctx context.Context, mentorID int64) ([]*models.CalendarEntry, error) {
	start := time.Now()

	query := `
		SELECT b.id, coalesce(b.title, 'Mentorship session'), mentee.name, b.day,
			to_char(b.start_time, 'HH24:MI'), to_char(b.end_time, 'HH24:MI'), b.meeting_link
		FROM bookings b
		JOIN users mentee ON mentee.id = b.mentee_id
		WHERE b.mentor_id = $1 AND b.status = 'approved'
		ORDER BY b.day, b.start_time, b.id`

	rows, err := r.pool.Query(ctx, query, mentorID)
	if err != nil {
		observeDB("booking_get_calendar", start, err)
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}
	defer rows.Close()

	entries := []*models.CalendarEntry{}
	for rows.Next() {
		var e models.CalendarEntry
		if err := rows.Scan(&e.BookingID, &e.Title, &e.MenteeName, &e.Day,
			&e.StartTime, &e.EndTime, &e.MeetingLink); err != nil {
			observeDB("booking_get_calendar", start, err)
			return nil, fmt.Errorf("failed to scan calendar entry: %w", err)
		}
		entries = append(entries, &e)
	}
	err = rows.Err()
	observeDB("booking_get_calendar", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar: %w", err)
	}

	return entries, nil
}
