package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     BookingStatus
		to       BookingStatus
		expected bool
	}{
		{"pending to approved", StatusPending, StatusApproved, true},
		{"pending to denied", StatusPending, StatusDenied, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"approved to cancelled", StatusApproved, StatusCancelled, true},
		{"approved to denied", StatusApproved, StatusDenied, false},
		{"approved to pending", StatusApproved, StatusPending, false},
		{"denied to approved", StatusDenied, StatusApproved, false},
		{"denied to cancelled", StatusDenied, StatusCancelled, false},
		{"cancelled to approved", StatusCancelled, StatusApproved, false},
		{"cancelled to pending", StatusCancelled, StatusPending, false},
		{"pending to pending", StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBookingStatus_IsTerminalStatus(t *testing.T) {
	assert.False(t, StatusPending.IsTerminalStatus())
	assert.False(t, StatusApproved.IsTerminalStatus())
	assert.True(t, StatusDenied.IsTerminalStatus())
	assert.True(t, StatusCancelled.IsTerminalStatus())
}

func TestBookingStatus_IsValid(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusApproved.IsValid())
	assert.True(t, StatusDenied.IsValid())
	assert.True(t, StatusCancelled.IsValid())
	assert.False(t, BookingStatus("rescheduled").IsValid())
	assert.False(t, BookingStatus("").IsValid())
}

func TestBooking_CanBeModifiedBy(t *testing.T) {
	booking := &Booking{ID: 1, MentorID: 10, MenteeID: 20}

	assert.True(t, booking.CanBeModifiedBy(10, RoleMentor), "owning mentor can modify")
	assert.True(t, booking.CanBeModifiedBy(99, RoleAdmin), "any admin can modify")
	assert.False(t, booking.CanBeModifiedBy(11, RoleMentor), "other mentors cannot modify")
	assert.False(t, booking.CanBeModifiedBy(20, RoleMentee), "mentee cannot modify")
}
