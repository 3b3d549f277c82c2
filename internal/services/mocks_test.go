package services_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Miompolly/capstone/internal/models"
	"github.com/Miompolly/capstone/internal/services"
)

// MockBookingRepository is a mock implementation of repository.BookingDataSource
type MockBookingRepository struct {
	mock.Mock

	// Batch occupancy handed to the assign callback in ApproveWithAllocation
	MaxBatch   *int
	CountInMax int
}

func (m *MockBookingRepository) Create(ctx context.Context, menteeID int64, req *models.CreateBookingRequest) (*models.Booking, error) {
	args := m.Called(ctx, menteeID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByMentor(ctx context.Context, mentorID int64, statuses []models.BookingStatus) ([]*models.Booking, error) {
	args := m.Called(ctx, mentorID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByMentee(ctx context.Context, menteeID int64, statuses []models.BookingStatus) ([]*models.Booking, error) {
	args := m.Called(ctx, menteeID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetAll(ctx context.Context, statuses []models.BookingStatus) ([]*models.Booking, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetPendingIDsForMentor(ctx context.Context, mentorID int64, ids []int64) ([]int64, error) {
	args := m.Called(ctx, mentorID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id int64, from, to models.BookingStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

// ApproveWithAllocation runs the assign callback against the occupancy
// configured on the mock, mimicking what the real repository does inside
// its transaction, and stamps the result onto the returned booking.
func (m *MockBookingRepository) ApproveWithAllocation(ctx context.Context, bookingID, mentorID int64,
	assign func(maxBatch *int, countInMax int) (batch int, link string)) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, mentorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	batch, link := assign(m.MaxBatch, m.CountInMax)
	booking := args.Get(0).(*models.Booking)
	booking.Status = models.StatusApproved
	booking.MeetingBatch = &batch
	booking.MeetingLink = &link

	// The next approval in the same batch sees one more occupant
	if m.MaxBatch == nil || batch != *m.MaxBatch {
		b := batch
		m.MaxBatch = &b
		m.CountInMax = 1
	} else {
		m.CountInMax++
	}

	return booking, args.Error(1)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingRepository) GetCalendar(ctx context.Context, mentorID int64) ([]*models.CalendarEntry, error) {
	args := m.Called(ctx, mentorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CalendarEntry), args.Error(1)
}

// MockUserRepository is a mock implementation of repository.UserDataSource
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetAll(ctx context.Context, role string) ([]*models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

// RecordingNotifier captures dispatched events for assertions
type RecordingNotifier struct {
	mu     sync.Mutex
	Events []services.Event
	IDs    []int64
}

func (n *RecordingNotifier) Notify(event services.Event, subjectID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, event)
	n.IDs = append(n.IDs, subjectID)
}
