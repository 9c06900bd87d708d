// Package auth resolves the three credential kinds (local email/password,
// external provider token, static admin pair) into one canonical Actor and
// issues the signed bearer tokens used by every ownership-sensitive route.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"levelquiz-service/internal/domain"
)

// UserStore abstracts persistence of locally registered accounts.
type UserStore interface {
	Create(ctx context.Context, u domain.User) error
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
}

// Config carries the signing secret, token lifetime and the static admin
// credential. The admin is never stored as a user row.
type Config struct {
	Secret        []byte
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string
}

// Service implements registration, login, the one-time external token
// exchange, and per-request verification.
type Service struct {
	users    UserStore
	provider IdentityProvider
	config   Config
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(users UserStore, provider IdentityProvider, config Config, logger *slog.Logger) *Service {
	if config.TokenTTL <= 0 {
		config.TokenTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:    users,
		provider: provider,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// claims is the internal token payload. Kind decides which identity fields
// are meaningful.
type claims struct {
	Kind  string `json:"kind"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	UID   string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// Register creates a local account and returns the actor plus a fresh token.
func (s *Service) Register(ctx context.Context, name, email, password, confirm string) (domain.Actor, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" {
		return domain.Actor{}, "", domain.Invalid("name", "name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.Actor{}, "", domain.Invalid("email", "valid email is required")
	}
	if len(password) < 6 {
		return domain.Actor{}, "", domain.Invalid("password", "password must be at least 6 characters")
	}
	if password != confirm {
		return domain.Actor{}, "", domain.Invalid("confirmPassword", "passwords do not match")
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return domain.Actor{}, "", domain.Invalid("email", "email already registered")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Actor{}, "", fmt.Errorf("check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Actor{}, "", fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.Actor{}, "", fmt.Errorf("create user: %w", err)
	}

	actor := domain.Actor{Kind: domain.ActorLocal, ID: user.ID, Name: user.Name, Email: user.Email}
	token, err := s.issue(actor)
	if err != nil {
		return domain.Actor{}, "", err
	}
	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return actor, token, nil
}

// Login verifies a local or admin credential. The admin pair is checked
// first so the admin never needs a user row.
func (s *Service) Login(ctx context.Context, email, password string) (domain.Actor, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.Actor{}, "", domain.Invalid("", "email and password are required")
	}

	if s.config.AdminEmail != "" && email == strings.ToLower(s.config.AdminEmail) {
		if password != s.config.AdminPassword {
			return domain.Actor{}, "", domain.ErrUnauthenticated
		}
		actor := domain.Actor{Kind: domain.ActorAdmin, Email: email, Name: "Admin"}
		token, err := s.issue(actor)
		if err != nil {
			return domain.Actor{}, "", err
		}
		s.logger.Info("admin logged in")
		return actor, token, nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Actor{}, "", domain.ErrUnauthenticated
		}
		return domain.Actor{}, "", fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.Actor{}, "", domain.ErrUnauthenticated
	}

	actor := domain.Actor{Kind: domain.ActorLocal, ID: user.ID, Name: user.Name, Email: user.Email}
	token, err := s.issue(actor)
	if err != nil {
		return domain.Actor{}, "", err
	}
	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return actor, token, nil
}

// ExchangeExternal verifies a provider-issued identity token once and
// trades it for an internally signed token carrying the provider uid and
// email. Subsequent requests verify only the internal signature.
func (s *Service) ExchangeExternal(ctx context.Context, providerToken string) (domain.Actor, string, error) {
	if s.provider == nil {
		return domain.Actor{}, "", domain.ErrUnauthenticated
	}
	if providerToken == "" {
		return domain.Actor{}, "", domain.Invalid("token", "provider token is required")
	}
	ident, err := s.provider.Verify(ctx, providerToken)
	if err != nil {
		s.logger.Warn("external token rejected", slog.String("error", err.Error()))
		return domain.Actor{}, "", domain.ErrUnauthenticated
	}
	actor := domain.Actor{
		Kind:  domain.ActorExternal,
		UID:   ident.UID,
		Email: strings.ToLower(ident.Email),
		Name:  ident.Name,
	}
	if actor.Name == "" {
		actor.Name = actor.Email
	}
	token, err := s.issue(actor)
	if err != nil {
		return domain.Actor{}, "", err
	}
	s.logger.Info("external user logged in", slog.String("uid", ident.UID))
	return actor, token, nil
}

// Resolve verifies a bearer token and reconstructs the actor. Any failure
// (bad signature, expiry, malformed claims) is ErrUnauthenticated; the
// caller maps it to a 401 that forces the client back to login.
func (s *Service) Resolve(tokenStr string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.config.Secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return domain.Actor{}, domain.ErrUnauthenticated
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return domain.Actor{}, domain.ErrUnauthenticated
	}

	switch domain.ActorKind(c.Kind) {
	case domain.ActorLocal:
		return domain.Actor{Kind: domain.ActorLocal, ID: c.Subject, Name: c.Name, Email: c.Email}, nil
	case domain.ActorExternal:
		if c.UID == "" && c.Email == "" {
			return domain.Actor{}, domain.ErrUnauthenticated
		}
		return domain.Actor{Kind: domain.ActorExternal, UID: c.UID, Email: c.Email, Name: c.Name}, nil
	case domain.ActorAdmin:
		if s.config.AdminEmail == "" || c.Email != strings.ToLower(s.config.AdminEmail) {
			return domain.Actor{}, domain.ErrUnauthenticated
		}
		return domain.Actor{Kind: domain.ActorAdmin, Email: c.Email, Name: c.Name}, nil
	}
	return domain.Actor{}, domain.ErrUnauthenticated
}

func (s *Service) issue(actor domain.Actor) (string, error) {
	now := s.now()
	subject := actor.ID
	if subject == "" {
		subject = actor.UID
	}
	if subject == "" {
		subject = actor.Email
	}
	c := &claims{
		Kind:  string(actor.Kind),
		Name:  actor.Name,
		Email: actor.Email,
		UID:   actor.UID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
