package services

import (
	"context"
	"strings"

	"github.com/accounthub/user-service/internal/models"
	"github.com/accounthub/user-service/internal/repositories"
	"github.com/accounthub/user-service/internal/security"
	"go.uber.org/zap"
)

// defaultListLimit is the page size used when the caller does not provide one
const defaultListLimit = 100

// userService implements the user directory operations gated by the
// caller's resolved principal
type userService struct {
	userRepo UserRepository
	hasher   security.Hasher
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo UserRepository,
	hasher security.Hasher,
	logger *zap.Logger,
) *userService {
	return &userService{
		userRepo: userRepo,
		hasher:   hasher,
		logger:   logger,
	}
}

// ListUsers retrieves a paginated list of users with optional search and
// role filters. The caller must already be admin-gated.
func (s *userService) ListUsers(ctx context.Context, skip, limit int, search string, role *models.Role) ([]models.UserResponse, error) {
	if skip < 0 {
		skip = 0
	}
	if limit < 1 {
		limit = defaultListLimit
	}
	if role != nil && !role.Valid() {
		return nil, ErrInvalidRole
	}

	users, err := s.userRepo.List(ctx, skip, limit, strings.TrimSpace(search), role)
	if err != nil {
		return nil, err
	}

	responses := make([]models.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}

	return responses, nil
}

// UpdateUser applies a partial update to the target user.
//
// Authorization rules:
//   - the principal may modify only its own record;
//   - a present role field requires the principal to be admin, even on the
//     principal's own record, so users cannot promote themselves.
func (s *userService) UpdateUser(ctx context.Context, principal *models.User, targetID int, req *models.UpdateUserRequest) (*models.User, error) {
	if principal.ID != targetID {
		return nil, models.ErrForbidden
	}
	if req.Role != nil && principal.Role != models.RoleAdmin {
		return nil, models.ErrForbidden
	}

	fields := repositories.UpdateUserFields{}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !emailRegex.MatchString(email) {
			return nil, ErrInvalidEmail
		}
		fields.Email = &email
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		fields.Name = &name
	}
	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			return nil, ErrPasswordTooShort
		}
		passwordHash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		fields.PasswordHash = &passwordHash
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, ErrInvalidRole
		}
		fields.Role = req.Role
	}

	user, err := s.userRepo.Update(ctx, targetID, fields)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser removes a user permanently. The caller must already be
// admin-gated.
func (s *userService) DeleteUser(ctx context.Context, targetID int) error {
	if _, err := s.userRepo.Delete(ctx, targetID); err != nil {
		return err
	}
	return nil
}
