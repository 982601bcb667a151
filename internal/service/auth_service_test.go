package service

import (
	"context"
	"testing"
	"time"

	"insightlens/internal/dto"
	"insightlens/internal/models"
	"insightlens/pkg/auth"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: map[string]*models.User{},
		byID:    map[uuid.UUID]*models.User{},
	}
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func newTestAuth(users UserStore) *AuthService {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	return NewAuthService(users, jwtManager, zap.NewNop())
}

func TestRegisterDefaultsToAnalyst(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuth(users)

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "a@example.com",
		Password: "s3cret",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RoleAnalyst, resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)

	// Stored password is hashed.
	stored := users.byEmail["a@example.com"]
	assert.NotEqual(t, "s3cret", stored.Password)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := newTestAuth(newFakeUserStore())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "a@example.com",
		Password: "s3cret",
		Role:     "superuser",
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestAuth(newFakeUserStore())

	req := dto.RegisterRequest{Email: "a@example.com", Password: "s3cret"}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLogin(t *testing.T) {
	svc := newTestAuth(newFakeUserStore())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "a@example.com",
		Password: "s3cret",
		Role:     models.RoleAdmin,
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "a@example.com",
		Password: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email:    "a@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "s3cret",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh(t *testing.T) {
	svc := newTestAuth(newFakeUserStore())

	registered, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "a@example.com",
		Password: "s3cret",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), dto.RefreshRequest{
		RefreshToken: registered.RefreshToken,
	})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, refreshed.User.ID)

	_, err = svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: "garbage"})
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
