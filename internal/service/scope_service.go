package service

import (
	"context"

	"insightlens/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssignmentStore is the category directory the resolver reads from.
type AssignmentStore interface {
	ListCategories(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// ScopeService resolves a caller's identity and role into the category set
// they may see. This is the only place in the codebase that inspects the
// role string; everything downstream works with the resolved Scope.
type ScopeService struct {
	assignments AssignmentStore
	logger      *zap.Logger
}

func NewScopeService(assignments AssignmentStore, logger *zap.Logger) *ScopeService {
	return &ScopeService{
		assignments: assignments,
		logger:      logger,
	}
}

// Resolve returns the unrestricted marker for admins and the assigned
// category set for everyone else. An empty set is a valid result, not an
// error: a freshly registered analyst simply sees no data yet.
func (s *ScopeService) Resolve(ctx context.Context, userID uuid.UUID, role string) (models.Scope, error) {
	if role == models.RoleAdmin {
		return models.UnrestrictedScope(), nil
	}

	categories, err := s.assignments.ListCategories(ctx, userID)
	if err != nil {
		return models.Scope{}, err
	}

	return models.ScopeOf(categories...), nil
}
