package trigger

import (
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Miompolly/capstone/pkg/httpclient"
	"github.com/Miompolly/capstone/pkg/logger"
	"github.com/Miompolly/capstone/pkg/metrics"
)

// Payload is the JSON body delivered to an event trigger URL.
type Payload struct {
	DeliveryID string    `json:"delivery_id"`
	Event      string    `json:"event"`
	SubjectID  int64     `json:"subject_id"`
	SentAt     time.Time `json:"sent_at"`
}

// CallAsync delivers an event to a trigger URL asynchronously.
// Failures are logged and counted but never block or fail the operation
// that produced the event.
func CallAsync(triggerURL, event string, subjectID int64, httpClient httpclient.Client) {
	if triggerURL == "" {
		// No trigger URL configured, skip silently
		return
	}

	payload := Payload{
		DeliveryID: uuid.NewString(),
		Event:      event,
		SubjectID:  subjectID,
		SentAt:     time.Now().UTC(),
	}

	// Run in goroutine to avoid blocking
	go func() {
		logger.Info("Delivering event trigger",
			zap.String("url", triggerURL),
			zap.String("event", event),
			zap.String("delivery_id", payload.DeliveryID),
			zap.Int64("subject_id", subjectID))

		resp, err := httpclient.PostJSON(httpClient, triggerURL, payload)
		if err != nil {
			metrics.NotificationsSent.WithLabelValues(event, "error").Inc()
			logger.Error("Failed to deliver event trigger",
				zap.Error(err),
				zap.String("url", triggerURL),
				zap.String("event", event),
				zap.String("delivery_id", payload.DeliveryID))
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			metrics.NotificationsSent.WithLabelValues(event, "success").Inc()
			logger.Info("Event trigger delivered",
				zap.String("url", triggerURL),
				zap.String("event", event),
				zap.String("delivery_id", payload.DeliveryID),
				zap.Int("status_code", resp.StatusCode))
		} else {
			metrics.NotificationsSent.WithLabelValues(event, "non_2xx").Inc()
			logger.Warn("Event trigger returned non-success status",
				zap.String("url", triggerURL),
				zap.String("event", event),
				zap.String("delivery_id", payload.DeliveryID),
				zap.Int("status_code", resp.StatusCode))
		}
	}()
}
