package repository

import (
	"context"

	"github.com/Miompolly/capstone/internal/models"
)

// BookingDataSource defines the interface for booking persistence.
// The allocation decision itself is passed in by the caller: persistence
// only serializes access and stores the result.
type BookingDataSource interface {
	// Create stores a new pending booking for a mentee
	Create(ctx context.Context, menteeID int64, req *models.CreateBookingRequest) (*models.Booking, error)

	// GetByID fetches a single booking with mentor and mentee names
	GetByID(ctx context.Context, id int64) (*models.Booking, error)

	// GetByMentor fetches a mentor's bookings filtered by statuses
	GetByMentor(ctx context.Context, mentorID int64, statuses []models.BookingStatus) ([]*models.Booking, error)

	// GetByMentee fetches a mentee's bookings filtered by statuses
	GetByMentee(ctx context.Context, menteeID int64, statuses []models.BookingStatus) ([]*models.Booking, error)

	// GetAll fetches every booking filtered by statuses (admin view)
	GetAll(ctx context.Context, statuses []models.BookingStatus) ([]*models.Booking, error)

	// GetPendingIDsForMentor filters the given IDs down to bookings that
	// belong to the mentor and are still pending
	GetPendingIDsForMentor(ctx context.Context, mentorID int64, ids []int64) ([]int64, error)

	// UpdateStatus moves a booking from one status to another without
	// touching allocation fields. Returns ErrStatusConflict when the
	// booking is no longer in the from status.
	UpdateStatus(ctx context.Context, id int64, from, to models.BookingStatus) error

	// ApproveWithAllocation approves a pending booking inside a transaction
	// that holds a per-mentor lock. assign receives the mentor's current
	// highest batch (nil when none) and the approved count in that batch,
	// and returns the batch and meeting link to store.
	ApproveWithAllocation(ctx context.Context, bookingID, mentorID int64,
		assign func(maxBatch *int, countInMax int) (batch int, link string)) (*models.Booking, error)

	// Delete removes a booking
	Delete(ctx context.Context, id int64) error

	// GetCalendar fetches a mentor's approved bookings as calendar entries
	GetCalendar(ctx context.Context, mentorID int64) ([]*models.CalendarEntry, error)
}

// UserDataSource defines the interface for user persistence
type UserDataSource interface {
	// Create stores a new user and returns it with its assigned ID
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID fetches a user by ID
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByEmail fetches a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetAll fetches all users, optionally filtered by role
	GetAll(ctx context.Context, role string) ([]*models.User, error)

	// SetActive flips a user's active flag
	SetActive(ctx context.Context, id int64, active bool) error
}
