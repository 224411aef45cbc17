package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/models"
	"github.com/apexti/apex-go-api/internal/repository"
)

// ErrUserNotFound indicates the account does not exist.
var ErrUserNotFound = errors.New("user not found")

// UserService exposes account profile lookups.
type UserService interface {
	Me(ctx context.Context, actor lifecycle.Actor) (dto.UserResponse, error)
	ListStudents(ctx context.Context, actor lifecycle.Actor) ([]dto.UserResponse, error)
}

type userService struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(userRepo repository.UserRepository, logger zerolog.Logger) UserService {
	return &userService{
		users:  userRepo,
		logger: logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Me(ctx context.Context, actor lifecycle.Actor) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) ListStudents(ctx context.Context, actor lifecycle.Actor) ([]dto.UserResponse, error) {
	if actor.Role != lifecycle.RoleAdmin {
		return nil, lifecycle.ErrForbidden
	}

	students, err := s.users.ListByRole(ctx, models.UserRoleStudent)
	if err != nil {
		return nil, err
	}

	return dto.NewUserResponseSlice(students), nil
}
