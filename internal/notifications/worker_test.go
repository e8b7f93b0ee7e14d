package notifications

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alrena-group/amqms-portal/internal/config"
	"github.com/alrena-group/amqms-portal/internal/events"
)

type fakeMailer struct {
	mu       sync.Mutex
	sent     []Message
	attempts int
	failures map[string]int // subject -> remaining failures
	failWith error
}

func (f *fakeMailer) Send(ctx context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts++
	if f.failures[msg.Subject] > 0 {
		f.failures[msg.Subject]--
		return f.failWith
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) Sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

func (f *fakeMailer) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func startWorker(t *testing.T, mailer Mailer) events.Publisher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	bus, err := events.NewBus(config.KafkaConfig{}, logger)
	require.NoError(t, err)

	renderer, err := NewRenderer("256707068533", time.UTC)
	require.NoError(t, err)

	worker, err := NewWorker(bus, mailer, renderer,
		config.EmailConfig{NotificationEmail: "office@amqms.example"},
		WorkerConfig{MaxRetries: 3, InitialInterval: time.Millisecond},
		logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		bus.Close()
	})

	select {
	case <-worker.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not start")
	}

	return events.NewWatermillPublisher(bus.Publisher, logger)
}

func enrollmentPayload() events.EnrollmentRequested {
	return events.EnrollmentRequested{
		EnrollmentID:    "e-1",
		SeatNumber:      4,
		CourseTitle:     "ISO 9001 Lead Auditor",
		CourseStandard:  "ISO 9001:2015",
		CourseStartDate: time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		PriceUSD:        850,
		Name:            "Grace Nakato",
		Company:         "Kampala Mills",
		Email:           "grace@example.com",
		Phone:           "+256700123456",
	}
}

func TestWorker_EnrollmentRequestedSendsBothEmails(t *testing.T) {
	mailer := &fakeMailer{}
	publisher := startWorker(t, mailer)

	require.NoError(t, publisher.Publish(context.Background(), events.TopicEnrollmentRequested, enrollmentPayload()))

	require.Eventually(t, func() bool { return len(mailer.Sent()) == 2 }, 5*time.Second, 10*time.Millisecond)

	sent := mailer.Sent()
	assert.Equal(t, []string{"office@amqms.example"}, sent[0].To)
	assert.Equal(t, "New Enrollment Request — ISO 9001 Lead Auditor", sent[0].Subject)
	assert.Equal(t, "grace@example.com", sent[0].ReplyTo)
	assert.Equal(t, []string{"grace@example.com"}, sent[1].To)
	assert.Equal(t, "Enrollment Request Received — ISO 9001 Lead Auditor", sent[1].Subject)
}

func TestWorker_RetriesWithoutResendingDeliveredEmails(t *testing.T) {
	mailer := &fakeMailer{
		failures: map[string]int{"Enrollment Request Received — ISO 9001 Lead Auditor": 2},
		failWith: &APIError{StatusCode: 503, Body: "unavailable"},
	}
	publisher := startWorker(t, mailer)

	require.NoError(t, publisher.Publish(context.Background(), events.TopicEnrollmentRequested, enrollmentPayload()))

	require.Eventually(t, func() bool { return len(mailer.Sent()) == 2 }, 5*time.Second, 10*time.Millisecond)

	// admin once, client failed twice then succeeded
	assert.Equal(t, 4, mailer.Attempts())
	assert.Equal(t, "New Enrollment Request — ISO 9001 Lead Auditor", mailer.Sent()[0].Subject)
}

func TestWorker_RejectedEmailIsNotRetried(t *testing.T) {
	mailer := &fakeMailer{
		failures: map[string]int{"We received your enquiry — AM Quality Management Systems": 10},
		failWith: &APIError{StatusCode: 422, Body: "invalid to"},
	}
	publisher := startWorker(t, mailer)

	require.NoError(t, publisher.Publish(context.Background(), events.TopicInquiryReceived, events.InquiryReceived{
		Name: "Peter", Company: "Nile Foods", Email: "bad", Standard: "ISO 22000", Message: "Help",
	}))

	require.Eventually(t, func() bool { return mailer.Attempts() >= 2 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 2, mailer.Attempts())
	require.Len(t, mailer.Sent(), 1)
	assert.Equal(t, "New Consulting Enquiry — ISO 22000 — Nile Foods", mailer.Sent()[0].Subject)
}

func TestWorker_StatusChangedAndMagicLink(t *testing.T) {
	mailer := &fakeMailer{}
	publisher := startWorker(t, mailer)
	ctx := context.Background()

	require.NoError(t, publisher.Publish(ctx, events.TopicEnrollmentStatusChanged, events.EnrollmentStatusChanged{
		CourseTitle: "ISO 14001", Email: "grace@example.com", From: "pending", To: "confirmed",
	}))
	require.NoError(t, publisher.Publish(ctx, events.TopicMagicLinkRequested, events.MagicLinkRequested{
		Email: "grace@example.com", Link: "https://portal.example/api/auth/magic-link/verify?token=abc", ExpiresAt: time.Now(),
	}))

	require.Eventually(t, func() bool { return len(mailer.Sent()) == 2 }, 5*time.Second, 10*time.Millisecond)

	subjects := []string{mailer.Sent()[0].Subject, mailer.Sent()[1].Subject}
	assert.ElementsMatch(t, []string{
		"Enrollment Confirmed — ISO 14001",
		"Your sign-in link — AM Quality Management Systems",
	}, subjects)
}
