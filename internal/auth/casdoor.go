package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/alrena-group/amqms-portal/internal/config"
	"github.com/alrena-group/amqms-portal/internal/models"
)

var ErrIdentityIncomplete = errors.New("identity token has no user id or email")

// TokenParser is satisfied by *casdoorsdk.Client.
type TokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// Identity is the part of a hosted-identity token the portal needs.
type Identity struct {
	ExternalID string
	Email      string
	FullName   string
	Phone      string
	Role       models.UserRole
}

// CasdoorVerifier validates bearer tokens issued by Casdoor.
type CasdoorVerifier struct {
	parser TokenParser
}

func NewCasdoorVerifier(cfg config.CasdoorConfig) *CasdoorVerifier {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return NewCasdoorVerifierWithParser(client)
}

func NewCasdoorVerifierWithParser(parser TokenParser) *CasdoorVerifier {
	return &CasdoorVerifier{parser: parser}
}

func (v *CasdoorVerifier) Verify(token string) (*Identity, error) {
	claims, err := v.parser.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims.User.Id == "" || claims.User.Email == "" {
		return nil, ErrIdentityIncomplete
	}

	return &Identity{
		ExternalID: claims.User.Id,
		Email:      models.NormalizeEmail(claims.User.Email),
		FullName:   claims.User.DisplayName,
		Phone:      claims.User.Phone,
		Role:       MapCasdoorRole(claims.User.Type, claims.User.IsAdmin),
	}, nil
}

// MapCasdoorRole maps a Casdoor user type to a portal role.
func MapCasdoorRole(casdoorType string, isAdmin bool) models.UserRole {
	if isAdmin {
		return models.RoleAdmin
	}
	switch strings.ToLower(casdoorType) {
	case "admin", "administrator", "staff":
		return models.RoleAdmin
	default:
		return models.RoleStudent
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
