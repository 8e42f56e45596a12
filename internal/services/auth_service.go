package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/accounthub/user-service/internal/models"
	"github.com/accounthub/user-service/internal/repositories"
	"github.com/accounthub/user-service/internal/security"
	"go.uber.org/zap"
)

// UserRepository is the interface that wraps methods for User table data access
type UserRepository interface {
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, models.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, userID int) (*models.User, error)
	// Method GetByEmail retrieves a user by exact email match.
	//
	// If user with such email does not exist, models.ErrNotFound will be returned together with "nil" value.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Method Create inserts a new user into the database and sets the generated ID.
	//
	// If some error occurs during user creation, the error will be returned.
	Create(ctx context.Context, user *models.User) error
	// Method Update overwrites the present fields on the user with the given ID.
	//
	// Returns models.ErrNotFound if the user does not exist and
	// models.ErrEmailTaken if the new email belongs to another user.
	Update(ctx context.Context, userID int, fields repositories.UpdateUserFields) (*models.User, error)
	// Method Delete removes a user permanently and returns the deleted snapshot.
	//
	// Returns models.ErrNotFound if the user does not exist.
	Delete(ctx context.Context, userID int) (*models.User, error)
	// Method List retrieves a paginated list of users with optional search and role filters.
	//
	// If some error occurs, the error will be returned together with "nil" value.
	List(ctx context.Context, skip, limit int, search string, role *models.Role) ([]models.User, error)
}

// TokenIssuer is the interface that wraps bearer token issuance
type TokenIssuer interface {
	// Method Issue creates a signed token carrying the subject.
	//
	// If signing fails, the error will be returned together with an empty string.
	Issue(subject string) (string, error)
}

// LoginMetrics records authentication outcomes
type LoginMetrics interface {
	RecordLoginSuccess()
	RecordLoginFailure()
}

// authService implements registration and authentication
type authService struct {
	userRepo UserRepository
	hasher   security.Hasher
	tokens   TokenIssuer
	metrics  LoginMetrics
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo UserRepository,
	hasher security.Hasher,
	tokens TokenIssuer,
	metrics LoginMetrics,
	logger *zap.Logger,
) *authService {
	return &authService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
	}
}

// emailRegex validates email format
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// minPasswordLength is the minimum accepted password length
const minPasswordLength = 8

// Register creates a new user account.
// The role is always forced to RoleUser and the account starts active,
// regardless of anything in the request.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)

	if !emailRegex.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.ErrEmailTaken
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		IsActive:     true,
		Role:         models.RoleUser, // Default role
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login authenticates an email+password pair and returns a bearer token.
//
// Unknown email and wrong password both surface as
// models.ErrInvalidCredentials so the API does not reveal whether an
// email is registered.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (string, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		s.metrics.RecordLoginFailure()
		return "", models.ErrInvalidCredentials
	}

	// TODO: decide whether inactive users should be blocked from logging in.
	// Today is_active is stored but never gated.
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if err == models.ErrNotFound {
			s.metrics.RecordLoginFailure()
			return "", models.ErrInvalidCredentials
		}
		return "", err
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.metrics.RecordLoginFailure()
		return "", models.ErrInvalidCredentials
	}

	accessToken, err := s.tokens.Issue(strconv.Itoa(user.ID))
	if err != nil {
		s.logger.Error("failed to issue token", zap.Int("userID", user.ID), zap.Error(err))
		return "", err
	}

	s.metrics.RecordLoginSuccess()
	return accessToken, nil
}
