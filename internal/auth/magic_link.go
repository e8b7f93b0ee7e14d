package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alrena-group/amqms-portal/internal/cache"
	"github.com/alrena-group/amqms-portal/internal/config"
)

const magicLinkIssuer = "amqms-portal"

var (
	ErrInvalidToken = errors.New("invalid sign-in link")
	ErrTokenExpired = errors.New("sign-in link has expired")
	ErrTokenUsed    = errors.New("sign-in link has already been used")
)

type magicLinkClaims struct {
	Email    string `json:"email"`
	Redirect string `json:"redirect,omitempty"`
	jwt.RegisteredClaims
}

// MagicLink is a verified sign-in link.
type MagicLink struct {
	ProfileID uuid.UUID
	Email     string
	Redirect  string
}

// MagicLinkIssuer signs single-use sign-in tokens. With Redis available each token id is
// recorded on issue and deleted on first use; without it tokens are only bound by expiry.
type MagicLinkIssuer struct {
	secret []byte
	ttl    time.Duration
	tokens *cache.CacheHelper
	now    func() time.Time
}

func NewMagicLinkIssuer(cfg config.MagicLinkConfig, tokens *cache.CacheHelper) *MagicLinkIssuer {
	return &MagicLinkIssuer{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		tokens: tokens,
		now:    time.Now,
	}
}

func (m *MagicLinkIssuer) Issue(ctx context.Context, profileID uuid.UUID, email, redirect string) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)
	jti := uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &magicLinkClaims{
		Email:    email,
		Redirect: redirect,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    magicLinkIssuer,
			Subject:   profileID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign magic link: %w", err)
	}

	if err := m.tokens.SetString(ctx, tokenKey(jti), profileID.String(), m.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to record magic link: %w", err)
	}

	return signed, expiresAt, nil
}

func (m *MagicLinkIssuer) Verify(ctx context.Context, tokenString string) (*MagicLink, error) {
	claims := &magicLinkClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(magicLinkIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	profileID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	if m.tokens.Available() {
		owner, err := m.tokens.Consume(ctx, tokenKey(claims.ID))
		if err != nil {
			if errors.Is(err, cache.ErrCacheNotFound) {
				return nil, ErrTokenUsed
			}
			return nil, fmt.Errorf("failed to consume magic link: %w", err)
		}
		// The recorded owner must match the signed subject
		if owner != profileID.String() {
			return nil, ErrInvalidToken
		}
	}

	return &MagicLink{ProfileID: profileID, Email: claims.Email, Redirect: claims.Redirect}, nil
}

func tokenKey(jti string) string {
	return "magic:" + jti
}
