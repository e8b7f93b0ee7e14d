package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "amqms-portal"
	EventVersion = "1.0"
)

// Topics
const (
	TopicEnrollmentRequested     = "enrollment.requested"
	TopicEnrollmentStatusChanged = "enrollment.status_changed"
	TopicEnrollmentPendingDigest = "enrollment.pending_digest"
	TopicInquiryReceived         = "inquiry.received"
	TopicMagicLinkRequested      = "auth.magic_link_requested"
)

// AllTopics lists every topic the notification worker consumes.
var AllTopics = []string{
	TopicEnrollmentRequested,
	TopicEnrollmentStatusChanged,
	TopicEnrollmentPendingDigest,
	TopicInquiryReceived,
	TopicMagicLinkRequested,
}

// Event is the envelope written to every topic.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope for the given type.
func NewEvent(eventType string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the payload into dest.
func (e *Event) Decode(dest interface{}) error {
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Publisher publishes domain events. The event type doubles as the topic.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
	Close() error
}

// ===== PAYLOADS =====

type EnrollmentRequested struct {
	EnrollmentID    string    `json:"enrollment_id"`
	SeatNumber      int       `json:"seat_number"`
	CourseID        string    `json:"course_id"`
	CourseTitle     string    `json:"course_title"`
	CourseStandard  string    `json:"course_standard"`
	CourseStartDate time.Time `json:"course_start_date"`
	CourseFormat    string    `json:"course_format"`
	PriceUSD        float64   `json:"price_usd"`
	Name            string    `json:"name"`
	Company         string    `json:"company"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
}

type EnrollmentStatusChanged struct {
	EnrollmentID    string    `json:"enrollment_id"`
	CourseTitle     string    `json:"course_title"`
	CourseStartDate time.Time `json:"course_start_date"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	From            string    `json:"from"`
	To              string    `json:"to"`
}

type PendingDigestItem struct {
	EnrollmentID string    `json:"enrollment_id"`
	CourseTitle  string    `json:"course_title"`
	Name         string    `json:"name"`
	Company      string    `json:"company"`
	Email        string    `json:"email"`
	EnrolledAt   time.Time `json:"enrolled_at"`
}

type PendingDigest struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Items       []PendingDigestItem `json:"items"`
}

type InquiryReceived struct {
	InquiryID string `json:"inquiry_id"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Standard  string `json:"standard"`
	Message   string `json:"message"`
}

type MagicLinkRequested struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}
