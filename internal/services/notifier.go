package services

import (
	"github.com/Miompolly/capstone/config"
	"github.com/Miompolly/capstone/pkg/httpclient"
	"github.com/Miompolly/capstone/pkg/trigger"
)

// Event identifies a booking lifecycle event that fans out to notifications
type Event string

const (
	EventNewRequest Event = "new_request"
	EventApproved   Event = "approved"
	EventDenied     Event = "denied"
	// Cancellations intentionally produce no event: nobody is emailed
	// when a booking is cancelled.
)

// Notifier dispatches booking events to interested parties. Implementations
// must be fire-and-forget: a failed delivery never fails the booking
// operation that produced the event.
type Notifier interface {
	Notify(event Event, bookingID int64)
}

// TriggerNotifier delivers events to the configured webhook trigger URLs
type TriggerNotifier struct {
	triggers   config.EventTriggerFunctionsConfig
	httpClient httpclient.Client
}

// NewTriggerNotifier creates a notifier backed by webhook triggers
func NewTriggerNotifier(triggers config.EventTriggerFunctionsConfig, httpClient httpclient.Client) *TriggerNotifier {
	return &TriggerNotifier{
		triggers:   triggers,
		httpClient: httpClient,
	}
}

// Notify delivers the event asynchronously to its trigger URL.
// Unknown events and unconfigured URLs are skipped silently.
func (n *TriggerNotifier) Notify(event Event, bookingID int64) {
	var url string
	switch event {
	case EventNewRequest:
		url = n.triggers.BookingCreatedTriggerURL
	case EventApproved:
		url = n.triggers.BookingApprovedTriggerURL
	case EventDenied:
		url = n.triggers.BookingDeniedTriggerURL
	default:
		return
	}

	trigger.CallAsync(url, string(event), bookingID, n.httpClient)
}

// NoopNotifier drops all events. Used in tests and when no triggers are configured.
type NoopNotifier struct{}

// Notify does nothing
func (NoopNotifier) Notify(Event, int64) {}

// NewNotifier picks the notifier implementation for the given configuration
func NewNotifier(triggers config.EventTriggerFunctionsConfig, httpClient httpclient.Client) Notifier {
	if triggers.BookingCreatedTriggerURL == "" &&
		triggers.BookingApprovedTriggerURL == "" &&
		triggers.BookingDeniedTriggerURL == "" {
		return NoopNotifier{}
	}
	return NewTriggerNotifier(triggers, httpClient)
}
