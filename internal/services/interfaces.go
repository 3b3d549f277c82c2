package services

import (
	"context"

	"github.com/Miompolly/capstone/internal/models"
)

// BookingServiceInterface defines the interface for booking lifecycle operations
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, session *models.UserSession, req *models.CreateBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, session *models.UserSession, id int64) (*models.Booking, error)
	ListForMentor(ctx context.Context, mentorID int64, statuses []models.BookingStatus) (*models.BookingsResponse, error)
	ListForMentee(ctx context.Context, menteeID int64, statuses []models.BookingStatus) (*models.BookingsResponse, error)
	ListAll(ctx context.Context, statuses []models.BookingStatus) (*models.BookingsResponse, error)
	Decide(ctx context.Context, session *models.UserSession, id int64, action string) (*models.Booking, error)
	Cancel(ctx context.Context, session *models.UserSession, id int64) (*models.Booking, error)
	SetStatus(ctx context.Context, session *models.UserSession, id int64, status models.BookingStatus) (*models.Booking, error)
	BulkDecision(ctx context.Context, session *models.UserSession, req *models.BulkDecisionRequest) (*models.BulkDecisionResult, error)
	DeleteBooking(ctx context.Context, session *models.UserSession, id int64) error
	GetCalendar(ctx context.Context, session *models.UserSession, mentorID int64) ([]*models.CalendarEntry, error)
}

// AuthServiceInterface defines the interface for authentication operations
type AuthServiceInterface interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error)
	VerifyUser(ctx context.Context, session *models.UserSession, userID int64) (*models.User, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ListUsers(ctx context.Context, session *models.UserSession, role string) (*models.UsersResponse, error)
}

// MentorServiceInterface defines the interface for the mentor directory
type MentorServiceInterface interface {
	ListMentors(ctx context.Context) (*models.UsersResponse, error)
	GetMentor(ctx context.Context, id int64) (*models.User, error)
}

// Ensure services implement their interfaces
var _ BookingServiceInterface = (*BookingService)(nil)
var _ AuthServiceInterface = (*AuthService)(nil)
var _ MentorServiceInterface = (*MentorService)(nil)
var _ Notifier = (*TriggerNotifier)(nil)
var _ Notifier = NoopNotifier{}
