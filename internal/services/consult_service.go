package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/alrena-group/amqms-portal/internal/validator"
)

type consultService struct {
	repo      repositories.Repository
	publisher events.Publisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewConsultService(repo repositories.Repository, publisher events.Publisher, logger *slog.Logger, validator *validator.Validator) ConsultService {
	return &consultService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

func (s *consultService) Submit(ctx context.Context, req *ConsultRequest) (*models.ConsultingInquiry, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	inquiry := &models.ConsultingInquiry{
		Name:     strings.TrimSpace(req.Name),
		Company:  strings.TrimSpace(req.Company),
		Email:    models.NormalizeEmail(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Standard: strings.TrimSpace(req.Standard),
		Message:  strings.TrimSpace(req.Message),
	}
	if err := s.repo.Inquiry().Create(ctx, nil, inquiry); err != nil {
		return nil, fmt.Errorf("failed to save inquiry: %w", err)
	}

	s.logger.Info("Consulting inquiry received", "inquiry_id", inquiry.ID, "standard", inquiry.Standard)

	err := s.publisher.Publish(ctx, events.TopicInquiryReceived, events.InquiryReceived{
		InquiryID: inquiry.ID.String(),
		Name:      inquiry.Name,
		Company:   inquiry.Company,
		Email:     inquiry.Email,
		Phone:     inquiry.Phone,
		Standard:  inquiry.Standard,
		Message:   inquiry.Message,
	})
	if err != nil {
		s.logger.Error("Failed to publish event", "event_type", events.TopicInquiryReceived, "error", err)
	}

	return inquiry, nil
}
