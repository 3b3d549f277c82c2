package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Miompolly/capstone/config"
	"github.com/Miompolly/capstone/internal/models"
	"github.com/Miompolly/capstone/internal/repository"
	"github.com/Miompolly/capstone/internal/services"
	"github.com/Miompolly/capstone/pkg/meeting"
)

const testMeetingBaseURL = "https://meet.example.com/lookup"

func newBookingService(bookingRepo *MockBookingRepository, userRepo *MockUserRepository, notifier services.Notifier) *services.BookingService {
	if notifier == nil {
		notifier = services.NoopNotifier{}
	}
	return services.NewBookingService(bookingRepo, userRepo, notifier,
		config.MeetingConfig{BaseURL: testMeetingBaseURL})
}

func menteeSession() *models.UserSession {
	return &models.UserSession{UserID: 20, Email: "mentee@example.com", Name: "Mira", Role: models.RoleMentee}
}

func mentorSession() *models.UserSession {
	return &models.UserSession{UserID: 10, Email: "mentor@example.com", Name: "Grace", Role: models.RoleMentor}
}

func adminSession() *models.UserSession {
	return &models.UserSession{UserID: 1, Email: "admin@example.com", Name: "Ada", Role: models.RoleAdmin}
}

func pendingBooking(id int64) *models.Booking {
	return &models.Booking{
		ID:       id,
		MentorID: 10,
		MenteeID: 20,
		Day:      time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		Status:   models.StatusPending,
	}
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func TestCreateBooking_Success(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	userRepo := new(MockUserRepository)
	notifier := &RecordingNotifier{}
	service := newBookingService(bookingRepo, userRepo, notifier)

	req := &models.CreateBookingRequest{MentorID: 10, Day: "2026-09-14", StartTime: strPtr("10:00"), EndTime: strPtr("11:00")}

	userRepo.On("GetByID", mock.Anything, int64(10)).
		Return(&models.User{ID: 10, Role: models.RoleMentor, IsActive: true}, nil)
	bookingRepo.On("Create", mock.Anything, int64(20), req).
		Return(pendingBooking(5), nil)

	booking, err := service.CreateBooking(context.Background(), menteeSession(), req)

	require.NoError(t, err)
	assert.Equal(t, int64(5), booking.ID)
	assert.Equal(t, models.StatusPending, booking.Status)
	assert.Nil(t, booking.MeetingBatch, "pending bookings carry no batch")
	assert.Equal(t, []services.Event{services.EventNewRequest}, notifier.Events)
	bookingRepo.AssertExpectations(t)
}

func TestCreateBooking_MentorMissingOrInactive(t *testing.T) {
	tests := []struct {
		name   string
		mentor *models.User
		err    error
	}{
		{"mentor not found", nil, repository.ErrNotFound},
		{"user is not a mentor", &models.User{ID: 10, Role: models.RoleMentee, IsActive: true}, nil},
		{"mentor not verified", &models.User{ID: 10, Role: models.RoleMentor, IsActive: false}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookingRepo := new(MockBookingRepository)
			userRepo := new(MockUserRepository)
			service := newBookingService(bookingRepo, userRepo, nil)

			if tt.mentor == nil {
				userRepo.On("GetByID", mock.Anything, int64(10)).Return(nil, tt.err)
			} else {
				userRepo.On("GetByID", mock.Anything, int64(10)).Return(tt.mentor, nil)
			}

			_, err := service.CreateBooking(context.Background(), menteeSession(),
				&models.CreateBookingRequest{MentorID: 10, Day: "2026-09-14"})

			assert.ErrorIs(t, err, services.ErrMentorNotFound)
			bookingRepo.AssertNotCalled(t, "Create")
		})
	}
}

func TestCreateBooking_InvalidTimeRange(t *testing.T) {
	service := newBookingService(new(MockBookingRepository), new(MockUserRepository), nil)

	_, err := service.CreateBooking(context.Background(), menteeSession(), &models.CreateBookingRequest{
		MentorID: 10, Day: "2026-09-14", StartTime: strPtr("11:00"), EndTime: strPtr("10:00"),
	})

	assert.ErrorIs(t, err, services.ErrInvalidTimeRange)
}

func TestDecide_ApproveAssignsBatchAndLink(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	notifier := &RecordingNotifier{}
	service := newBookingService(bookingRepo, new(MockUserRepository), notifier)

	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(pendingBooking(5), nil)
	bookingRepo.On("ApproveWithAllocation", mock.Anything, int64(5), int64(10)).
		Return(pendingBooking(5), nil)

	booking, err := service.Decide(context.Background(), mentorSession(), 5, "approve")

	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, booking.Status)
	require.NotNil(t, booking.MeetingBatch)
	assert.Equal(t, 1, *booking.MeetingBatch, "first approval opens batch 1")

	require.NotNil(t, booking.MeetingLink)
	expectedLink := meeting.Link(testMeetingBaseURL, meeting.Code(10, 1))
	assert.Equal(t, expectedLink, *booking.MeetingLink)

	assert.Equal(t, []services.Event{services.EventApproved}, notifier.Events)
}

func TestDecide_ApproveKeepsFillingOpenBatch(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	bookingRepo.MaxBatch = intPtr(2)
	bookingRepo.CountInMax = 4
	service := newBookingService(bookingRepo, new(MockUserRepository), nil)

	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(pendingBooking(5), nil)
	bookingRepo.On("ApproveWithAllocation", mock.Anything, int64(5), int64(10)).
		Return(pendingBooking(5), nil)

	booking, err := service.Decide(context.Background(), mentorSession(), 5, "approve")

	require.NoError(t, err)
	require.NotNil(t, booking.MeetingBatch)
	assert.Equal(t, 2, *booking.MeetingBatch)
}

func TestDecide_ApproveOpensNewBatchWhenFull(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	bookingRepo.MaxBatch = intPtr(1)
	bookingRepo.CountInMax = meeting.BatchCapacity
	service := newBookingService(bookingRepo, new(MockUserRepository), nil)

	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(pendingBooking(5), nil)
	bookingRepo.On("ApproveWithAllocation", mock.Anything, int64(5), int64(10)).
		Return(pendingBooking(5), nil)

	booking, err := service.Decide(context.Background(), mentorSession(), 5, "approve")

	require.NoError(t, err)
	require.NotNil(t, booking.MeetingBatch)
	assert.Equal(t, 2, *booking.MeetingBatch, "11th approval opens batch 2")

	require.NotNil(t, booking.MeetingLink)
	assert.Equal(t, meeting.Link(testMeetingBaseURL, meeting.Code(10, 2)), *booking.MeetingLink)
}

func TestDecide_DenyLeavesAllocationEmpty(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	notifier := &RecordingNotifier{}
	service := newBookingService(bookingRepo, new(MockUserRepository), notifier)

	denied := pendingBooking(5)
	denied.Status = models.StatusDenied

	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(pendingBooking(5), nil).Once()
	bookingRepo.On("UpdateStatus", mock.Anything, int64(5), models.StatusPending, models.StatusDenied).Return(nil)
	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(denied, nil)

	booking, err := service.Decide(context.Background(), mentorSession(), 5, "deny")

	require.NoError(t, err)
	assert.Equal(t, models.StatusDenied, booking.Status)
	assert.Nil(t, booking.MeetingBatch)
	assert.Nil(t, booking.MeetingLink)
	assert.Equal(t, []services.Event{services.EventDenied}, notifier.Events)
	bookingRepo.AssertNotCalled(t, "ApproveWithAllocation")
}

func TestDecide_NonPendingRejected(t *testing.T) {
	for _, status := range []models.BookingStatus{models.StatusApproved, models.StatusDenied, models.StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			bookingRepo := new(MockBookingRepository)
			service := newBookingService(bookingRepo, new(MockUserRepository), nil)

			booking := pendingBooking(5)
			booking.Status = status
			bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(booking, nil)

			action := "approve"
			if status == models.StatusApproved {
				// approved -> denied is also forbidden
				action = "deny"
			}

			_, err := service.Decide(context.Background(), mentorSession(), 5, action)
			assert.ErrorIs(t, err, services.ErrInvalidStatusTransition)
		})
	}
}

func TestDecide_AccessControl(t *testing.T) {
	otherMentor := &models.UserSession{UserID: 11, Role: models.RoleMentor}

	tests := []struct {
		name    string
		session *models.UserSession
		allowed bool
	}{
		{"owning mentor", mentorSession(), true},
		{"admin", adminSession(), true},
		{"other mentor", otherMentor, false},
		{"mentee", menteeSession(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookingRepo := new(MockBookingRepository)
			service := newBookingService(bookingRepo, new(MockUserRepository), nil)

			bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(pendingBooking(5), nil)
			bookingRepo.On("ApproveWithAllocation", mock.Anything, int64(5), int64(10)).
				Return(pendingBooking(5), nil)

			_, err := service.Decide(context.Background(), tt.session, 5, "approve")

			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, services.ErrAccessDenied)
			}
		})
	}
}

func TestDecide_LostRaceToConcurrentDecision(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	service := newBookingService(bookingRepo, new(MockUserRepository), nil)

	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(pendingBooking(5), nil)
	bookingRepo.On("ApproveWithAllocation", mock.Anything, int64(5), int64(10)).
		Return(nil, repository.ErrStatusConflict)

	_, err := service.Decide(context.Background(), mentorSession(), 5, "approve")

	assert.ErrorIs(t, err, services.ErrInvalidStatusTransition)
}

func TestDecide_DenyLosesRaceToConcurrentApproval(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	notifier := &RecordingNotifier{}
	service := newBookingService(bookingRepo, new(MockUserRepository), notifier)

	// The read sees pending, but by write time a concurrent approval has
	// landed. The compare-and-set write refuses to overwrite it.
	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(pendingBooking(5), nil)
	bookingRepo.On("UpdateStatus", mock.Anything, int64(5), models.StatusPending, models.StatusDenied).
		Return(repository.ErrStatusConflict)

	_, err := service.Decide(context.Background(), mentorSession(), 5, "deny")

	assert.ErrorIs(t, err, services.ErrInvalidStatusTransition)
	assert.Empty(t, notifier.Events, "no denial notice for a booking that got approved")
}

func TestCancel_MentorCancelsApprovedWithoutNotification(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	notifier := &RecordingNotifier{}
	service := newBookingService(bookingRepo, new(MockUserRepository), notifier)

	approved := pendingBooking(5)
	approved.Status = models.StatusApproved
	approved.MeetingBatch = intPtr(1)

	cancelled := pendingBooking(5)
	cancelled.Status = models.StatusCancelled

	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(approved, nil).Once()
	bookingRepo.On("UpdateStatus", mock.Anything, int64(5), models.StatusApproved, models.StatusCancelled).Return(nil)
	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(cancelled, nil)

	booking, err := service.Cancel(context.Background(), mentorSession(), 5)

	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, booking.Status)
	assert.Empty(t, notifier.Events, "cancellations are silent")
}

func TestCancel_MenteeExcluded(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	service := newBookingService(bookingRepo, new(MockUserRepository), nil)

	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(pendingBooking(5), nil)

	_, err := service.Cancel(context.Background(), menteeSession(), 5)

	assert.ErrorIs(t, err, services.ErrAccessDenied)
	bookingRepo.AssertNotCalled(t, "UpdateStatus")
}

func TestSetStatus_AdminHonorsLifecycle(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	service := newBookingService(bookingRepo, new(MockUserRepository), nil)

	denied := pendingBooking(5)
	denied.Status = models.StatusDenied
	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(denied, nil)

	_, err := service.SetStatus(context.Background(), adminSession(), 5, models.StatusApproved)

	assert.ErrorIs(t, err, services.ErrInvalidStatusTransition)
	bookingRepo.AssertNotCalled(t, "ApproveWithAllocation")
}

func TestSetStatus_NonAdminRejected(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	service := newBookingService(bookingRepo, new(MockUserRepository), nil)

	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(pendingBooking(5), nil)

	_, err := service.SetStatus(context.Background(), mentorSession(), 5, models.StatusDenied)

	assert.ErrorIs(t, err, services.ErrAccessDenied)
}

func TestBulkDecision_PartialSuccess(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	notifier := &RecordingNotifier{}
	service := newBookingService(bookingRepo, new(MockUserRepository), notifier)

	// Of the requested ids only 1 and 3 are still the mentor's pending bookings
	bookingRepo.On("GetPendingIDsForMentor", mock.Anything, int64(10), []int64{1, 2, 3}).
		Return([]int64{1, 3}, nil)
	bookingRepo.On("GetByID", mock.Anything, int64(1)).Return(pendingBooking(1), nil)
	bookingRepo.On("GetByID", mock.Anything, int64(3)).Return(pendingBooking(3), nil)
	bookingRepo.On("ApproveWithAllocation", mock.Anything, int64(1), int64(10)).
		Return(pendingBooking(1), nil)
	bookingRepo.On("ApproveWithAllocation", mock.Anything, int64(3), int64(10)).
		Return(pendingBooking(3), nil)

	result, err := service.BulkDecision(context.Background(), mentorSession(),
		&models.BulkDecisionRequest{BookingIDs: []int64{1, 2, 3}, Action: "approve"})

	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, result.Succeeded)
	assert.Equal(t, []int64{2}, result.Failed)
	assert.Equal(t, []services.Event{services.EventApproved, services.EventApproved}, notifier.Events)
}

func TestBulkDecision_SharedBatchAcrossItems(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	service := newBookingService(bookingRepo, new(MockUserRepository), nil)

	bookingRepo.On("GetPendingIDsForMentor", mock.Anything, int64(10), []int64{1, 2}).
		Return([]int64{1, 2}, nil)
	first := pendingBooking(1)
	second := pendingBooking(2)
	bookingRepo.On("GetByID", mock.Anything, int64(1)).Return(first, nil)
	bookingRepo.On("GetByID", mock.Anything, int64(2)).Return(second, nil)
	bookingRepo.On("ApproveWithAllocation", mock.Anything, int64(1), int64(10)).Return(first, nil)
	bookingRepo.On("ApproveWithAllocation", mock.Anything, int64(2), int64(10)).Return(second, nil)

	_, err := service.BulkDecision(context.Background(), mentorSession(),
		&models.BulkDecisionRequest{BookingIDs: []int64{1, 2}, Action: "approve"})

	require.NoError(t, err)
	require.NotNil(t, first.MeetingBatch)
	require.NotNil(t, second.MeetingBatch)
	assert.Equal(t, *first.MeetingBatch, *second.MeetingBatch, "both land in the same batch")
	assert.Equal(t, *first.MeetingLink, *second.MeetingLink, "same batch shares one link")
}

func TestBulkDecision_NoMatches(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	service := newBookingService(bookingRepo, new(MockUserRepository), nil)

	bookingRepo.On("GetPendingIDsForMentor", mock.Anything, int64(10), []int64{7, 8}).
		Return([]int64{}, nil)

	_, err := service.BulkDecision(context.Background(), mentorSession(),
		&models.BulkDecisionRequest{BookingIDs: []int64{7, 8}, Action: "deny"})

	assert.ErrorIs(t, err, services.ErrNoBulkMatches)
}

func TestGetBooking_AccessControl(t *testing.T) {
	stranger := &models.UserSession{UserID: 99, Role: models.RoleMentee}

	tests := []struct {
		name    string
		session *models.UserSession
		allowed bool
	}{
		{"mentee sees own booking", menteeSession(), true},
		{"mentor sees own booking", mentorSession(), true},
		{"admin sees any booking", adminSession(), true},
		{"stranger denied", stranger, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookingRepo := new(MockBookingRepository)
			service := newBookingService(bookingRepo, new(MockUserRepository), nil)

			bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(pendingBooking(5), nil)

			_, err := service.GetBooking(context.Background(), tt.session, 5)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, services.ErrAccessDenied)
			}
		})
	}
}

func TestDeleteBooking_MenteeMayDelete(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	service := newBookingService(bookingRepo, new(MockUserRepository), nil)

	bookingRepo.On("GetByID", mock.Anything, int64(5)).Return(pendingBooking(5), nil)
	bookingRepo.On("Delete", mock.Anything, int64(5)).Return(nil)

	err := service.DeleteBooking(context.Background(), menteeSession(), 5)

	assert.NoError(t, err)
	bookingRepo.AssertExpectations(t)
}

func TestGetCalendar_OwnMentorOnly(t *testing.T) {
	bookingRepo := new(MockBookingRepository)
	service := newBookingService(bookingRepo, new(MockUserRepository), nil)

	bookingRepo.On("GetCalendar", mock.Anything, int64(10)).
		Return([]*models.CalendarEntry{{BookingID: 5, Title: "Mentorship session"}}, nil)

	entries, err := service.GetCalendar(context.Background(), mentorSession(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = service.GetCalendar(context.Background(), &models.UserSession{UserID: 11, Role: models.RoleMentor}, 10)
	assert.ErrorIs(t, err, services.ErrAccessDenied)
}
