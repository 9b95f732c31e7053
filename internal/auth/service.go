// Package auth identifies the user behind each request. Sessions are signed
// JWTs carried in a cookie or a bearer header.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type Service struct {
	users      UserStore
	jwt        *JWTService
	bcryptCost int
	logger     *slog.Logger
}

func NewService(users UserStore, jwtSvc *JWTService, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = DefaultBcryptCost
	}
	return &Service{users: users, jwt: jwtSvc, bcryptCost: bcryptCost, logger: logger}
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Session is a signed token together with the user it belongs to.
type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, c Credentials) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, domain.Validationf("a valid email is required")
	}
	if len(c.Password) < minPasswordLen || len(c.Password) > maxPasswordLen {
		return nil, domain.Validationf("password must be %d to %d characters", minPasswordLen, maxPasswordLen)
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	hash, err := HashPassword(c.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{Email: email, Name: name, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return s.session(user)
}

// Login answers every failure with the same authentication error so callers
// cannot probe which emails exist.
func (s *Service) Login(ctx context.Context, c Credentials) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(c.Email)))
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.Authenticationf("invalid credentials")
		}
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, c.Password) {
		return nil, domain.Authenticationf("invalid credentials")
	}
	return s.session(user)
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.Authenticationf("authentication required")
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) JWT() *JWTService { return s.jwt }

func (s *Service) session(user *domain.User) (*Session, error) {
	token, err := s.jwt.Sign(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}
