package services

import (
	"context"
	"testing"
	"time"

	"storefront-service/internal/auth"
	"storefront-service/internal/domain"
	"storefront-service/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(users *mocks.MockUserRepository) (*AuthService, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	svc := NewAuthService(users, tokens, zap.NewNop())
	svc.cost = bcrypt.MinCost
	return svc, tokens
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		input         RegisterInput
		setupMocks    func(*mocks.MockUserRepository)
		expectedError error
	}{
		{
			name:  "new user",
			input: RegisterInput{Username: "jane", Password: "secret1", Email: "jane@example.com"},
			setupMocks: func(u *mocks.MockUserRepository) {
				u.On("FindByUsername", mock.Anything, "jane").Return(nil, nil)
				u.On("Create", mock.Anything, mock.MatchedBy(func(user *domain.User) bool {
					return user.Role == domain.RoleUser && bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")) == nil
				})).Return(nil)
			},
		},
		{
			name:  "taken username",
			input: RegisterInput{Username: "jane", Password: "secret1"},
			setupMocks: func(u *mocks.MockUserRepository) {
				u.On("FindByUsername", mock.Anything, "jane").Return(&domain.User{ID: 1}, nil)
			},
			expectedError: domain.ErrUserExists,
		},
		{
			name:  "admin limit",
			input: RegisterInput{Username: "boss", Password: "secret1", Role: domain.RoleAdmin},
			setupMocks: func(u *mocks.MockUserRepository) {
				u.On("FindByUsername", mock.Anything, "boss").Return(nil, nil)
				u.On("CountByRole", mock.Anything, domain.RoleAdmin).Return(int64(domain.MaxAdmins), nil)
			},
			expectedError: domain.ErrAdminLimit,
		},
		{
			name:          "short password",
			input:         RegisterInput{Username: "jane", Password: "123"},
			setupMocks:    func(*mocks.MockUserRepository) {},
			expectedError: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(mocks.MockUserRepository)
			tt.setupMocks(users)
			svc, _ := newTestAuth(users)

			u, err := svc.Register(context.Background(), tt.input)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, u)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, u.PasswordHash)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	users := new(mocks.MockUserRepository)
	users.On("FindByUsername", mock.Anything, "jane").
		Return(&domain.User{ID: 4, Username: "jane", PasswordHash: string(hash), Role: domain.RoleAdmin}, nil)
	users.On("FindByUsername", mock.Anything, "ghost").Return(nil, nil)
	svc, tokens := newTestAuth(users)
	ctx := context.Background()

	token, u, err := svc.Login(ctx, "jane", "secret1")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), u.ID)
	id, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), id.UserID)
	assert.True(t, id.IsAdmin())

	_, _, err = svc.Login(ctx, "jane", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "ghost", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
