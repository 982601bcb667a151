package service

import (
	"context"
	"errors"
	"testing"

	"insightlens/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAssignments struct {
	categories map[uuid.UUID][]string
	err        error
}

func (f *fakeAssignments) ListCategories(_ context.Context, userID uuid.UUID) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.categories[userID], nil
}

func TestResolveAdminUnrestricted(t *testing.T) {
	svc := NewScopeService(&fakeAssignments{}, zap.NewNop())

	scope, err := svc.Resolve(context.Background(), uuid.New(), models.RoleAdmin)
	require.NoError(t, err)

	assert.True(t, scope.Unrestricted)
	assert.False(t, scope.Empty())
	// Unrestricted means every category, including ones created later.
	assert.True(t, scope.Allows("Electronics"))
	assert.True(t, scope.Allows("BrandNewCategory"))
}

func TestResolveAnalystAssignments(t *testing.T) {
	userID := uuid.New()
	svc := NewScopeService(&fakeAssignments{
		categories: map[uuid.UUID][]string{userID: {"Books", "Electronics"}},
	}, zap.NewNop())

	scope, err := svc.Resolve(context.Background(), userID, models.RoleAnalyst)
	require.NoError(t, err)

	assert.False(t, scope.Unrestricted)
	assert.True(t, scope.Allows("Books"))
	assert.False(t, scope.Allows("Toys"))
}

func TestResolveAnalystNoAssignments(t *testing.T) {
	svc := NewScopeService(&fakeAssignments{}, zap.NewNop())

	scope, err := svc.Resolve(context.Background(), uuid.New(), models.RoleAnalyst)
	require.NoError(t, err)

	// Empty scope is valid, not an error.
	assert.True(t, scope.Empty())
	assert.False(t, scope.Allows("Books"))
}

func TestResolveStoreError(t *testing.T) {
	svc := NewScopeService(&fakeAssignments{err: errors.New("db down")}, zap.NewNop())

	_, err := svc.Resolve(context.Background(), uuid.New(), models.RoleAnalyst)
	assert.Error(t, err)
}
