package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Miompolly/capstone/config"
	"github.com/Miompolly/capstone/internal/models"
	"github.com/Miompolly/capstone/internal/repository"
	"github.com/Miompolly/capstone/pkg/logger"
	"github.com/Miompolly/capstone/pkg/meeting"
	"github.com/Miompolly/capstone/pkg/metrics"
)

var (
	ErrBookingNotFound         = errors.New("booking not found")
	ErrMentorNotFound          = errors.New("mentor not found")
	ErrAccessDenied            = errors.New("access denied")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidTimeRange        = errors.New("start time must be before end time")
	ErrNoBulkMatches           = errors.New("no pending bookings match the given ids")
)

// BookingService handles the booking lifecycle: creation, mentor decisions,
// cancellation, bulk decisions and the batch allocation of approved bookings.
type BookingService struct {
	bookingRepo repository.BookingDataSource
	userRepo    repository.UserDataSource
	notifier    Notifier
	meetingCfg  config.MeetingConfig
}

// NewBookingService creates a new BookingService
func NewBookingService(bookingRepo repository.BookingDataSource, userRepo repository.UserDataSource,
	notifier Notifier, meetingCfg config.MeetingConfig) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		meetingCfg:  meetingCfg,
	}
}

// CreateBooking creates a pending booking from a mentee to a mentor
func (s *BookingService) CreateBooking(ctx context.Context, session *models.UserSession, req *models.CreateBookingRequest) (*models.Booking, error) {
	if req.StartTime != nil && req.EndTime != nil && *req.StartTime >= *req.EndTime {
		return nil, ErrInvalidTimeRange
	}
	if req.MentorID == session.UserID {
		return nil, fmt.Errorf("%w: cannot book a session with yourself", ErrAccessDenied)
	}

	mentor, err := s.userRepo.GetByID(ctx, req.MentorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMentorNotFound
		}
		return nil, fmt.Errorf("failed to look up mentor: %w", err)
	}
	if !mentor.IsMentor() || !mentor.IsActive {
		return nil, ErrMentorNotFound
	}

	booking, err := s.bookingRepo.Create(ctx, session.UserID, req)
	if err != nil {
		metrics.BookingCreations.WithLabelValues("error").Inc()
		logger.Error("Failed to create booking",
			zap.Int64("mentee_id", session.UserID),
			zap.Int64("mentor_id", req.MentorID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	metrics.BookingCreations.WithLabelValues("success").Inc()
	logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("mentee_id", session.UserID),
		zap.Int64("mentor_id", req.MentorID))

	s.notifier.Notify(EventNewRequest, booking.ID)

	return booking, nil
}

// GetBooking fetches a booking, restricted to its mentor, its mentee, and admins
func (s *BookingService) GetBooking(ctx context.Context, session *models.UserSession, id int64) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if session.Role != models.RoleAdmin && booking.MentorID != session.UserID && booking.MenteeID != session.UserID {
		logger.Warn("Access denied to booking",
			zap.Int64("booking_id", id),
			zap.Int64("user_id", session.UserID))
		return nil, ErrAccessDenied
	}

	return booking, nil
}

// ListForMentor lists a mentor's bookings filtered by statuses
func (s *BookingService) ListForMentor(ctx context.Context, mentorID int64, statuses []models.BookingStatus) (*models.BookingsResponse, error) {
	bookings, err := s.bookingRepo.GetByMentor(ctx, mentorID, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentor bookings: %w", err)
	}
	return &models.BookingsResponse{Bookings: bookings, Total: len(bookings)}, nil
}

// ListForMentee lists a mentee's bookings filtered by statuses
func (s *BookingService) ListForMentee(ctx context.Context, menteeID int64, statuses []models.BookingStatus) (*models.BookingsResponse, error) {
	bookings, err := s.bookingRepo.GetByMentee(ctx, menteeID, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentee bookings: %w", err)
	}
	return &models.BookingsResponse{Bookings: bookings, Total: len(bookings)}, nil
}

// ListAll lists every booking filtered by statuses (admin view)
func (s *BookingService) ListAll(ctx context.Context, statuses []models.BookingStatus) (*models.BookingsResponse, error) {
	bookings, err := s.bookingRepo.GetAll(ctx, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return &models.BookingsResponse{Bookings: bookings, Total: len(bookings)}, nil
}

// Decide applies a mentor decision (approve or deny) to a pending booking
func (s *BookingService) Decide(ctx context.Context, session *models.UserSession, id int64, action string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if !booking.CanBeModifiedBy(session.UserID, session.Role) {
		logger.Warn("Access denied to booking decision",
			zap.Int64("booking_id", id),
			zap.Int64("user_id", session.UserID),
			zap.String("role", session.Role))
		return nil, ErrAccessDenied
	}

	switch action {
	case "approve":
		return s.approve(ctx, booking)
	case "deny":
		return s.transition(ctx, booking, models.StatusDenied)
	default:
		return nil, fmt.Errorf("unknown decision action %q", action)
	}
}

// Cancel cancels a booking. Only the owning mentor or an admin may cancel;
// mentees manage their side by not attending.
func (s *BookingService) Cancel(ctx context.Context, session *models.UserSession, id int64) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if !booking.CanBeModifiedBy(session.UserID, session.Role) {
		return nil, ErrAccessDenied
	}

	return s.transition(ctx, booking, models.StatusCancelled)
}

// SetStatus is the admin override for a booking's status. It still honors
// the lifecycle rules, and routes approvals through batch allocation.
func (s *BookingService) SetStatus(ctx context.Context, session *models.UserSession, id int64, status models.BookingStatus) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if session.Role != models.RoleAdmin {
		return nil, ErrAccessDenied
	}

	if status == models.StatusApproved {
		return s.approve(ctx, booking)
	}
	return s.transition(ctx, booking, status)
}

// BulkDecision applies a decision to several of a mentor's pending bookings,
// reporting per-booking outcomes. IDs that are not the mentor's pending
// bookings are reported as failed; one decision failing does not stop the rest.
func (s *BookingService) BulkDecision(ctx context.Context, session *models.UserSession, req *models.BulkDecisionRequest) (*models.BulkDecisionResult, error) {
	pendingIDs, err := s.bookingRepo.GetPendingIDsForMentor(ctx, session.UserID, req.BookingIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pending bookings: %w", err)
	}
	if len(pendingIDs) == 0 {
		return nil, ErrNoBulkMatches
	}

	pending := make(map[int64]bool, len(pendingIDs))
	for _, id := range pendingIDs {
		pending[id] = true
	}

	result := &models.BulkDecisionResult{Succeeded: []int64{}, Failed: []int64{}}
	for _, id := range req.BookingIDs {
		if !pending[id] {
			result.Failed = append(result.Failed, id)
			metrics.BulkDecisionOutcomes.WithLabelValues(req.Action, "skipped").Inc()
			continue
		}

		if _, err := s.Decide(ctx, session, id, req.Action); err != nil {
			logger.Warn("Bulk decision item failed",
				zap.Int64("booking_id", id),
				zap.String("action", req.Action),
				zap.Error(err))
			result.Failed = append(result.Failed, id)
			metrics.BulkDecisionOutcomes.WithLabelValues(req.Action, "error").Inc()
			continue
		}

		result.Succeeded = append(result.Succeeded, id)
		metrics.BulkDecisionOutcomes.WithLabelValues(req.Action, "success").Inc()
	}

	logger.Info("Bulk decision applied",
		zap.Int64("mentor_id", session.UserID),
		zap.String("action", req.Action),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)))

	return result, nil
}

// DeleteBooking removes a booking. The mentor, the mentee, and admins may delete.
func (s *BookingService) DeleteBooking(ctx context.Context, session *models.UserSession, id int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("failed to get booking: %w", err)
	}

	allowed := session.Role == models.RoleAdmin ||
		booking.MentorID == session.UserID ||
		booking.MenteeID == session.UserID
	if !allowed {
		return ErrAccessDenied
	}

	if err := s.bookingRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	logger.Info("Booking deleted",
		zap.Int64("booking_id", id),
		zap.Int64("user_id", session.UserID))

	return nil
}

// GetCalendar returns a mentor's approved bookings as calendar entries
func (s *BookingService) GetCalendar(ctx context.Context, session *models.UserSession, mentorID int64) ([]*models.CalendarEntry, error) {
	if session.Role != models.RoleAdmin && session.UserID != mentorID {
		return nil, ErrAccessDenied
	}

	entries, err := s.bookingRepo.GetCalendar(ctx, mentorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar: %w", err)
	}
	return entries, nil
}

// approve moves a pending booking to approved and assigns it a meeting batch.
// The repository serializes the allocation per mentor; the batch and link
// decision itself happens here, in the assign callback.
func (s *BookingService) approve(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if !booking.Status.CanTransitionTo(models.StatusApproved) {
		metrics.BookingTransitionRejections.WithLabelValues(string(models.StatusApproved), "invalid_transition").Inc()
		return nil, fmt.Errorf("%w: cannot transition from '%s' to '%s'",
			ErrInvalidStatusTransition, booking.Status, models.StatusApproved)
	}

	approved, err := s.bookingRepo.ApproveWithAllocation(ctx, booking.ID, booking.MentorID,
		func(maxBatch *int, countInMax int) (int, string) {
			batch := meeting.NextBatch(maxBatch, countInMax)
			if maxBatch != nil && batch == *maxBatch {
				metrics.BatchAllocations.WithLabelValues("packed").Inc()
			} else {
				metrics.BatchAllocations.WithLabelValues("opened").Inc()
			}
			code := meeting.Code(booking.MentorID, batch)
			return batch, meeting.Link(s.meetingCfg.BaseURL, code)
		})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Lost the race to a concurrent decision
			metrics.BookingTransitionRejections.WithLabelValues(string(models.StatusApproved), "conflict").Inc()
			return nil, fmt.Errorf("%w: booking is no longer pending", ErrInvalidStatusTransition)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to approve booking: %w", err)
	}

	metrics.BookingTransitions.WithLabelValues(string(booking.Status), string(models.StatusApproved)).Inc()
	logger.Info("Booking approved",
		zap.Int64("booking_id", approved.ID),
		zap.Int64("mentor_id", approved.MentorID),
		zap.Intp("meeting_batch", approved.MeetingBatch))

	s.notifier.Notify(EventApproved, approved.ID)

	return approved, nil
}

// transition applies a non-approval status change after validating it.
// Deny notifies the mentee; cancel is silent.
func (s *BookingService) transition(ctx context.Context, booking *models.Booking, newStatus models.BookingStatus) (*models.Booking, error) {
	if !booking.Status.CanTransitionTo(newStatus) {
		metrics.BookingTransitionRejections.WithLabelValues(string(newStatus), "invalid_transition").Inc()
		return nil, fmt.Errorf("%w: cannot transition from '%s' to '%s'",
			ErrInvalidStatusTransition, booking.Status, newStatus)
	}

	if err := s.bookingRepo.UpdateStatus(ctx, booking.ID, booking.Status, newStatus); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Lost the race to a concurrent decision
			metrics.BookingTransitionRejections.WithLabelValues(string(newStatus), "conflict").Inc()
			return nil, fmt.Errorf("%w: booking is no longer %s", ErrInvalidStatusTransition, booking.Status)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	metrics.BookingTransitions.WithLabelValues(string(booking.Status), string(newStatus)).Inc()
	logger.Info("Booking status updated",
		zap.Int64("booking_id", booking.ID),
		zap.String("from_status", string(booking.Status)),
		zap.String("to_status", string(newStatus)))

	if newStatus == models.StatusDenied {
		s.notifier.Notify(EventDenied, booking.ID)
	}

	return s.bookingRepo.GetByID(ctx, booking.ID)
}
