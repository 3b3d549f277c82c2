package models

import (
	"time"

	"github.com/jackc/pgx/v5"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusApproved  BookingStatus = "approved"
	StatusDenied    BookingStatus = "denied"
	StatusCancelled BookingStatus = "cancelled"
)

// DecisionStatuses are the statuses a mentor decision can target
var DecisionStatuses = []BookingStatus{StatusApproved, StatusDenied}

// IsTerminalStatus returns true if the status is terminal (no further transitions allowed)
func (s BookingStatus) IsTerminalStatus() bool {
	return s == StatusDenied || s == StatusCancelled
}

// IsValid reports whether the status is one of the known lifecycle statuses
func (s BookingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid
func (s BookingStatus) CanTransitionTo(newStatus BookingStatus) bool {
	// Terminal statuses cannot transition
	if s.IsTerminalStatus() {
		return false
	}

	switch s {
	case StatusPending:
		return newStatus == StatusApproved || newStatus == StatusDenied || newStatus == StatusCancelled
	case StatusApproved:
		return newStatus == StatusCancelled
	default:
		return false
	}
}

// Booking represents a mentee's session request to a mentor
type Booking struct {
	ID           int64         `json:"id"`
	MentorID     int64         `json:"mentor_id"`
	MenteeID     int64         `json:"mentee_id"`
	MentorName   string        `json:"mentor_name,omitempty"`
	MenteeName   string        `json:"mentee_name,omitempty"`
	Title        *string       `json:"title"`
	Note         *string       `json:"note"`
	Day          time.Time     `json:"day"`
	StartTime    *string       `json:"start_time"`
	EndTime      *string       `json:"end_time"`
	Status       BookingStatus `json:"status"`
	MeetingBatch *int          `json:"meeting_batch"`
	MeetingLink  *string       `json:"meeting_link"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// CanBeModifiedBy reports whether a user may decide or override this
// booking's status. Mentees manage their bookings through cancel only.
func (b *Booking) CanBeModifiedBy(userID int64, role string) bool {
	if role == RoleAdmin {
		return true
	}
	return role == RoleMentor && b.MentorID == userID
}

// CreateBookingRequest is the payload for creating a booking
type CreateBookingRequest struct {
	MentorID  int64   `json:"mentor_id" binding:"required,gt=0"`
	Title     *string `json:"title" binding:"omitempty,max=200"`
	Note      *string `json:"note" binding:"omitempty,max=2000"`
	Day       string  `json:"day" binding:"required,datetime=2006-01-02"`
	StartTime *string `json:"start_time" binding:"omitempty,datetime=15:04"`
	EndTime   *string `json:"end_time" binding:"omitempty,datetime=15:04"`
}

// DecisionRequest is the payload for a mentor approving or denying a booking
type DecisionRequest struct {
	Action string `json:"action" binding:"required,oneof=approve deny"`
}

// BulkDecisionRequest is the payload for deciding several bookings at once
type BulkDecisionRequest struct {
	BookingIDs []int64 `json:"booking_ids" binding:"required,min=1,dive,gt=0"`
	Action     string  `json:"action" binding:"required,oneof=approve deny"`
}

// UpdateBookingStatusRequest is the admin payload for overriding a booking status
type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required,oneof=pending approved denied cancelled"`
}

// BulkDecisionResult reports per-booking outcomes of a bulk decision
type BulkDecisionResult struct {
	Succeeded []int64 `json:"succeeded"`
	Failed    []int64 `json:"failed"`
}

// BookingsResponse is the response for listing bookings
type BookingsResponse struct {
	Bookings []*Booking `json:"bookings"`
	Total    int        `json:"total"`
}

// CalendarEntry is one approved booking in a mentor's calendar feed
type CalendarEntry struct {
	BookingID   int64     `json:"booking_id"`
	Title       string    `json:"title"`
	MenteeName  string    `json:"mentee_name"`
	Day         time.Time `json:"day"`
	StartTime   *string   `json:"start_time"`
	EndTime     *string   `json:"end_time"`
	MeetingLink *string   `json:"meeting_link"`
}

// ScanBooking scans a single PostgreSQL row into a Booking struct
// Expected columns: id, mentor_id, mentee_id, title, note, day, start_time,
// end_time, status, meeting_batch, meeting_link, created_at, updated_at,
// mentor_name, mentee_name (from JOIN users)
func ScanBooking(row pgx.Row) (*Booking, error) {
	var b Booking

	err := row.Scan(
		&b.ID,
		&b.MentorID,
		&b.MenteeID,
		&b.Title,
		&b.Note,
		&b.Day,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.MeetingBatch,
		&b.MeetingLink,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.MentorName,
		&b.MenteeName,
	)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// ScanBookings scans multiple PostgreSQL rows into a slice of Booking structs
func ScanBookings(rows pgx.Rows) ([]*Booking, error) {
	defer rows.Close()

	bookings := []*Booking{}
	for rows.Next() {
		booking, err := ScanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}
