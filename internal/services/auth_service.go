package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/alrena-group/amqms-portal/internal/auth"
	"github.com/alrena-group/amqms-portal/internal/events"
	"github.com/alrena-group/amqms-portal/internal/models"
	"github.com/alrena-group/amqms-portal/internal/repositories"
	"github.com/alrena-group/amqms-portal/internal/validator"
)

const (
	DefaultRedirect     = "/dashboard"
	magicLinkVerifyPath = "/api/auth/magic-link/verify"
)

type authService struct {
	repo          repositories.Repository
	magicLinks    *auth.MagicLinkIssuer
	publisher     events.Publisher
	publicBaseURL string
	logger        *slog.Logger
	validator     *validator.Validator
}

func NewAuthService(repo repositories.Repository, magicLinks *auth.MagicLinkIssuer, publisher events.Publisher, publicBaseURL string, logger *slog.Logger, validator *validator.Validator) AuthService {
	return &authService{
		repo:          repo,
		magicLinks:    magicLinks,
		publisher:     publisher,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
		validator:     validator,
	}
}

func (s *authService) SignUp(ctx context.Context, req *SignUpRequest) (*models.Profile, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(req.Email)
	_, err := s.repo.Profile().GetByEmail(ctx, nil, email)
	if err == nil {
		// Passwordless profiles sign in with a magic link instead
		return nil, ErrEmailTaken
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &models.Profile{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         models.RoleStudent,
		PasswordHash: &hash,
	}
	if err := s.repo.Profile().Create(ctx, nil, profile); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("Profile signed up", "profile_id", profile.ID)
	return profile, nil
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*models.Profile, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	profile, err := s.repo.Profile().GetByEmail(ctx, nil, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}

	if profile.PasswordHash == nil || !auth.VerifyPassword(*profile.PasswordHash, req.Password) {
		s.logger.Warn("Failed login attempt", "profile_id", profile.ID)
		return nil, ErrInvalidCredentials
	}

	return profile, nil
}

// RequestMagicLink never reveals whether the email was known.
func (s *authService) RequestMagicLink(ctx context.Context, req *MagicLinkRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	email := models.NormalizeEmail(req.Email)
	profile, err := s.repo.Profile().GetByEmail(ctx, nil, email)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to look up profile: %w", err)
		}

		profile = &models.Profile{Email: email, Role: models.RoleStudent}
		if err := s.repo.Profile().Create(ctx, nil, profile); err != nil {
			if !repositories.IsDuplicateKeyError(err) {
				return fmt.Errorf("failed to create profile: %w", err)
			}
			if profile, err = s.repo.Profile().GetByEmail(ctx, nil, email); err != nil {
				return fmt.Errorf("failed to look up profile: %w", err)
			}
		}
		s.logger.Info("Profile created from magic link request", "profile_id", profile.ID)
	}

	token, expiresAt, err := s.magicLinks.Issue(ctx, profile.ID, profile.Email, SafeRedirect(req.RedirectTo))
	if err != nil {
		return fmt.Errorf("failed to issue magic link: %w", err)
	}

	link := s.publicBaseURL + magicLinkVerifyPath + "?token=" + url.QueryEscape(token)
	err = s.publisher.Publish(ctx, events.TopicMagicLinkRequested, events.MagicLinkRequested{
		Email:     profile.Email,
		Name:      profile.FirstName(),
		Link:      link,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		s.logger.Error("Failed to publish event", "event_type", events.TopicMagicLinkRequested, "error", err)
	}

	return nil
}

func (s *authService) VerifyMagicLink(ctx context.Context, token string) (*models.Profile, string, error) {
	link, err := s.magicLinks.Verify(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrTokenUsed) {
			return nil, "", fmt.Errorf("%w: %w", ErrMagicLinkInvalid, err)
		}
		return nil, "", err
	}

	profile, err := s.repo.Profile().GetByID(ctx, nil, link.ProfileID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrMagicLinkInvalid
		}
		return nil, "", fmt.Errorf("failed to load profile: %w", err)
	}

	return profile, SafeRedirect(link.Redirect), nil
}

func (s *authService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.Profile().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile, nil
}

func (s *authService) SyncIdentity(ctx context.Context, identity *auth.Identity) (*models.Profile, error) {
	profile, err := s.repo.Profile().GetByExternalID(ctx, nil, identity.ExternalID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	if profile == nil {
		profile, err = s.repo.Profile().GetByEmail(ctx, nil, identity.Email)
		if err != nil && !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to look up profile: %w", err)
		}
	}

	if profile == nil {
		externalID := identity.ExternalID
		profile = &models.Profile{
			Email:      identity.Email,
			FullName:   identity.FullName,
			Phone:      identity.Phone,
			Role:       identity.Role,
			ExternalID: &externalID,
		}
		if err := s.repo.Profile().Create(ctx, nil, profile); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		s.logger.Info("Profile created from hosted identity", "profile_id", profile.ID)
		return profile, nil
	}

	if !identityChanged(profile, identity) {
		return profile, nil
	}

	externalID := identity.ExternalID
	profile.ExternalID = &externalID
	profile.Email = identity.Email
	profile.Role = identity.Role
	if identity.FullName != "" {
		profile.FullName = identity.FullName
	}
	if identity.Phone != "" {
		profile.Phone = identity.Phone
	}
	if err := s.repo.Profile().Update(ctx, nil, profile); err != nil {
		return nil, fmt.Errorf("failed to sync profile: %w", err)
	}
	return profile, nil
}

func identityChanged(profile *models.Profile, identity *auth.Identity) bool {
	if profile.ExternalID == nil || *profile.ExternalID != identity.ExternalID {
		return true
	}
	if profile.Email != identity.Email || profile.Role != identity.Role {
		return true
	}
	if identity.FullName != "" && identity.FullName != profile.FullName {
		return true
	}
	return identity.Phone != "" && identity.Phone != profile.Phone
}

// SafeRedirect only allows same-site relative paths. Browsers drop tab, CR and LF
// from URLs, so any control byte is rejected before parsing.
func SafeRedirect(target string) string {
	target = strings.TrimSpace(target)
	if target == "" || strings.ContainsFunc(target, isControl) || strings.Contains(target, "\\") {
		return DefaultRedirect
	}

	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" || parsed.User != nil {
		return DefaultRedirect
	}
	if !strings.HasPrefix(parsed.Path, "/") || strings.HasPrefix(parsed.Path, "//") || strings.HasPrefix(target, "//") {
		return DefaultRedirect
	}
	return target
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
