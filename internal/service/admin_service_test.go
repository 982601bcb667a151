package service

import (
	"context"
	"testing"
	"time"

	"insightlens/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAssignmentAdmin struct {
	fakeAssignments
	assigned map[string]bool
}

func key(userID uuid.UUID, category string) string {
	return userID.String() + "/" + category
}

func (f *fakeAssignmentAdmin) Insert(_ context.Context, userID uuid.UUID, category string) (bool, error) {
	if f.assigned == nil {
		f.assigned = map[string]bool{}
	}
	if f.assigned[key(userID, category)] {
		return false, nil
	}
	f.assigned[key(userID, category)] = true
	return true, nil
}

func (f *fakeAssignmentAdmin) Delete(_ context.Context, userID uuid.UUID, category string) (int64, error) {
	if f.assigned[key(userID, category)] {
		delete(f.assigned, key(userID, category))
		return 1, nil
	}
	return 0, nil
}

type fakeUserDirectory struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserDirectory) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserDirectory) ListAll(_ context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func newUser(role string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        uuid.New(),
		Email:     "u@example.com",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestAssignCategoryIdempotent(t *testing.T) {
	analyst := newUser(models.RoleAnalyst)
	users := &fakeUserDirectory{users: map[uuid.UUID]*models.User{analyst.ID: analyst}}
	svc := NewAdminService(users, &fakeAssignmentAdmin{}, zap.NewNop())

	first, err := svc.AssignCategory(context.Background(), analyst.ID, "Books")
	require.NoError(t, err)
	assert.Equal(t, "category assigned", first.Message)

	second, err := svc.AssignCategory(context.Background(), analyst.ID, "Books")
	require.NoError(t, err)
	assert.Equal(t, "category already assigned", second.Message)
}

func TestAssignCategoryRejectsAdmins(t *testing.T) {
	admin := newUser(models.RoleAdmin)
	users := &fakeUserDirectory{users: map[uuid.UUID]*models.User{admin.ID: admin}}
	svc := NewAdminService(users, &fakeAssignmentAdmin{}, zap.NewNop())

	_, err := svc.AssignCategory(context.Background(), admin.ID, "Books")
	assert.ErrorIs(t, err, ErrNotAnalyst)
}

func TestAssignCategoryUnknownUser(t *testing.T) {
	svc := NewAdminService(&fakeUserDirectory{}, &fakeAssignmentAdmin{}, zap.NewNop())

	_, err := svc.AssignCategory(context.Background(), uuid.New(), "Books")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRemoveCategory(t *testing.T) {
	analyst := newUser(models.RoleAnalyst)
	users := &fakeUserDirectory{users: map[uuid.UUID]*models.User{analyst.ID: analyst}}
	assignments := &fakeAssignmentAdmin{}
	svc := NewAdminService(users, assignments, zap.NewNop())

	_, err := svc.AssignCategory(context.Background(), analyst.ID, "Books")
	require.NoError(t, err)

	deleted, err := svc.RemoveCategory(context.Background(), analyst.ID, "Books")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = svc.RemoveCategory(context.Background(), analyst.ID, "Books")
	assert.ErrorIs(t, err, ErrNoSuchMapping)
}
