package services

import (
	"context"
	"strings"

	"storefront-service/internal/auth"
	"storefront-service/internal/domain"
	"storefront-service/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	log    *zap.Logger
	cost   int
}

func NewAuthService(u repository.UserRepository, tokens *auth.TokenManager, log *zap.Logger) *AuthService {
	return &AuthService{users: u, tokens: tokens, log: log, cost: bcrypt.DefaultCost}
}

type RegisterInput struct {
	Username string
	Password string
	Email    string
	Role     domain.Role
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	switch {
	case len(in.Username) < 3:
		return nil, domain.ValidationError("username must be at least 3 characters")
	case len(in.Password) < 6:
		return nil, domain.ValidationError("password must be at least 6 characters")
	case in.Role != domain.RoleUser && in.Role != domain.RoleAdmin:
		return nil, domain.ValidationError("unknown role %q", in.Role)
	}

	existing, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrUserExists
	}
	if in.Role == domain.RoleAdmin {
		admins, err := s.users.CountByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if admins >= domain.MaxAdmins {
			return nil, domain.ErrAdminLimit
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.Uint64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Login returns a signed token for valid credentials. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Generate(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}
