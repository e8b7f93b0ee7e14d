package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/alrena-group/amqms-portal/internal/config"
	"github.com/alrena-group/amqms-portal/internal/events"
)

const PoisonTopic = "notifications.poison"

// WorkerConfig controls delivery retries.
type WorkerConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{MaxRetries: 3, InitialInterval: time.Second}
}

// Worker consumes domain events and turns them into emails.
type Worker struct {
	router     *message.Router
	mailer     Mailer
	renderer   *Renderer
	adminEmail string
	logger     *slog.Logger
}

func NewWorker(bus *events.Bus, mailer Mailer, renderer *Renderer, emailCfg config.EmailConfig, workerCfg WorkerConfig, logger *slog.Logger) (*Worker, error) {
	router, err := message.NewRouter(message.RouterConfig{}, bus.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	poisonQueue, err := middleware.PoisonQueue(bus.Publisher, PoisonTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to create poison queue: %w", err)
	}

	retry := middleware.Retry{
		MaxRetries:      workerCfg.MaxRetries,
		InitialInterval: workerCfg.InitialInterval,
		Multiplier:      2,
		Logger:          bus.Logger,
	}

	// Outermost first: exhausted retries land on the poison topic and are not redelivered
	router.AddMiddleware(poisonQueue, retry.Middleware, middleware.Recoverer)

	w := &Worker{
		router:     router,
		mailer:     mailer,
		renderer:   renderer,
		adminEmail: emailCfg.NotificationEmail,
		logger:     logger,
	}

	handlers := map[string]func(context.Context, *message.Message, *events.Event) error{
		events.TopicEnrollmentRequested:     w.handleEnrollmentRequested,
		events.TopicEnrollmentStatusChanged: w.handleStatusChanged,
		events.TopicEnrollmentPendingDigest: w.handlePendingDigest,
		events.TopicInquiryReceived:         w.handleInquiryReceived,
		events.TopicMagicLinkRequested:      w.handleMagicLink,
	}
	for _, topic := range events.AllTopics {
		router.AddNoPublisherHandler("email."+topic, topic, bus.Subscriber, w.wrap(handlers[topic]))
	}

	return w, nil
}

// Run blocks until ctx is cancelled or the router is closed.
func (w *Worker) Run(ctx context.Context) error {
	return w.router.Run(ctx)
}

// Running is closed once every handler has subscribed.
func (w *Worker) Running() chan struct{} {
	return w.router.Running()
}

func (w *Worker) Close() error {
	return w.router.Close()
}

func (w *Worker) wrap(handle func(context.Context, *message.Message, *events.Event) error) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		event, err := events.DecodeMessage(msg)
		if err != nil {
			// Malformed messages can never succeed
			w.logger.Error("Dropping undecodable event", "message_id", msg.UUID, "error", err)
			return nil
		}

		ctx := msg.Context()
		if err := handle(ctx, msg, event); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && !apiErr.Retryable() {
				w.logger.ErrorContext(ctx, "Email rejected by provider",
					"event_id", event.ID, "event_type", event.Type, "status", apiErr.StatusCode, "error", err)
				return nil
			}
			w.logger.WarnContext(ctx, "Email delivery failed", "event_id", event.ID, "event_type", event.Type, "error", err)
			return err
		}
		return nil
	}
}

// deliver sends msg once per message even when the handler is retried.
func (w *Worker) deliver(ctx context.Context, wm *message.Message, step string, msg Message, renderErr error) error {
	if renderErr != nil {
		return renderErr
	}
	key := "sent." + step
	if wm.Metadata.Get(key) != "" {
		return nil
	}
	if len(msg.To) == 0 {
		w.logger.WarnContext(ctx, "No recipient for email, skipping", "step", step, "subject", msg.Subject)
		return nil
	}
	if err := w.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	wm.Metadata.Set(key, "1")
	return nil
}

func (w *Worker) toAdmin(msg Message) Message {
	if w.adminEmail != "" {
		msg.To = []string{w.adminEmail}
	}
	return msg
}

func (w *Worker) handleEnrollmentRequested(ctx context.Context, wm *message.Message, event *events.Event) error {
	var p events.EnrollmentRequested
	if err := event.Decode(&p); err != nil {
		w.logger.ErrorContext(ctx, "Dropping enrollment event", "event_id", event.ID, "error", err)
		return nil
	}

	adminMsg, err := w.renderer.EnrollmentAdmin(p)
	if err := w.deliver(ctx, wm, "admin", w.toAdmin(adminMsg), err); err != nil {
		return err
	}

	clientMsg, err := w.renderer.EnrollmentClient(p)
	return w.deliver(ctx, wm, "client", clientMsg, err)
}

func (w *Worker) handleInquiryReceived(ctx context.Context, wm *message.Message, event *events.Event) error {
	var p events.InquiryReceived
	if err := event.Decode(&p); err != nil {
		w.logger.ErrorContext(ctx, "Dropping inquiry event", "event_id", event.ID, "error", err)
		return nil
	}

	adminMsg, err := w.renderer.InquiryAdmin(p)
	if err := w.deliver(ctx, wm, "admin", w.toAdmin(adminMsg), err); err != nil {
		return err
	}

	clientMsg, err := w.renderer.InquiryClient(p)
	return w.deliver(ctx, wm, "client", clientMsg, err)
}

func (w *Worker) handleStatusChanged(ctx context.Context, wm *message.Message, event *events.Event) error {
	var p events.EnrollmentStatusChanged
	if err := event.Decode(&p); err != nil {
		w.logger.ErrorContext(ctx, "Dropping status event", "event_id", event.ID, "error", err)
		return nil
	}

	msg, err := w.renderer.StatusChanged(p)
	return w.deliver(ctx, wm, "client", msg, err)
}

func (w *Worker) handlePendingDigest(ctx context.Context, wm *message.Message, event *events.Event) error {
	var p events.PendingDigest
	if err := event.Decode(&p); err != nil {
		w.logger.ErrorContext(ctx, "Dropping digest event", "event_id", event.ID, "error", err)
		return nil
	}

	msg, err := w.renderer.PendingDigest(p)
	return w.deliver(ctx, wm, "admin", w.toAdmin(msg), err)
}

func (w *Worker) handleMagicLink(ctx context.Context, wm *message.Message, event *events.Event) error {
	var p events.MagicLinkRequested
	if err := event.Decode(&p); err != nil {
		w.logger.ErrorContext(ctx, "Dropping magic link event", "event_id", event.ID, "error", err)
		return nil
	}

	msg, err := w.renderer.MagicLink(p)
	return w.deliver(ctx, wm, "client", msg, err)
}
