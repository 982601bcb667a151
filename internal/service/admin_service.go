package service

import (
	"context"
	"errors"

	"insightlens/internal/dto"
	"insightlens/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNotAnalyst    = errors.New("categories can only be assigned to analysts")
	ErrNoSuchMapping = errors.New("assignment not found")
)

// AssignmentAdminStore extends the read-only directory with mutations.
type AssignmentAdminStore interface {
	AssignmentStore
	Insert(ctx context.Context, userID uuid.UUID, category string) (bool, error)
	Delete(ctx context.Context, userID uuid.UUID, category string) (int64, error)
}

// UserDirectory is the listing surface the admin service reads.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
}

// AdminService manages the analyst-to-category directory.
type AdminService struct {
	users       UserDirectory
	assignments AssignmentAdminStore
	logger      *zap.Logger
}

func NewAdminService(users UserDirectory, assignments AssignmentAdminStore, logger *zap.Logger) *AdminService {
	return &AdminService{
		users:       users,
		assignments: assignments,
		logger:      logger,
	}
}

// ListUsers returns every account with its assigned categories. Admins show
// an empty category list; their access does not come from assignments.
func (s *AdminService) ListUsers(ctx context.Context) ([]dto.AdminUserResponse, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AdminUserResponse, 0, len(users))
	for _, u := range users {
		categories := []string{}
		if u.Role == models.RoleAnalyst {
			assigned, err := s.assignments.ListCategories(ctx, u.ID)
			if err != nil {
				return nil, err
			}
			if assigned != nil {
				categories = assigned
			}
		}
		out = append(out, dto.AdminUserResponse{
			ID:         u.ID.String(),
			Email:      u.Email,
			Role:       u.Role,
			Categories: categories,
		})
	}

	return out, nil
}

// AssignCategory grants an analyst access to a category. Repeating an
// existing grant is not an error; the message reports it instead.
func (s *AdminService) AssignCategory(ctx context.Context, userID uuid.UUID, category string) (*dto.AssignCategoryResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Role != models.RoleAnalyst {
		return nil, ErrNotAnalyst
	}

	created, err := s.assignments.Insert(ctx, userID, category)
	if err != nil {
		return nil, err
	}

	if !created {
		return &dto.AssignCategoryResponse{Message: "category already assigned"}, nil
	}

	s.logger.Info("category assigned",
		zap.String("user_id", userID.String()), zap.String("category", category))
	return &dto.AssignCategoryResponse{Message: "category assigned"}, nil
}

// RemoveCategory revokes a grant. Removing a grant that does not exist
// reports ErrNoSuchMapping so the handler can answer 404.
func (s *AdminService) RemoveCategory(ctx context.Context, userID uuid.UUID, category string) (int64, error) {
	deleted, err := s.assignments.Delete(ctx, userID, category)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, ErrNoSuchMapping
	}

	s.logger.Info("category removed",
		zap.String("user_id", userID.String()), zap.String("category", category))
	return deleted, nil
}
