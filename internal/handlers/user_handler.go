package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/accounthub/user-service/internal/auth/middleware"
	"github.com/accounthub/user-service/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegistrationService is the interface that wraps user account creation.
type RegistrationService interface {
	// Method Register performs credentials validation and user creation.
	//
	// "req" parameter contains email, name and password. The created user
	// always gets the regular user role and an active account.
	//
	// If the email is already registered, models.ErrEmailTaken will be returned together with "nil" value.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
}

// UserService is the interface that wraps the principal-gated user directory operations.
type UserService interface {
	// Method ListUsers retrieves a paginated list of users with optional search and role filters.
	//
	// "skip" and "limit" parameters control pagination.
	// "search" parameter is an optional case-insensitive substring match on name or email.
	// "role" parameter is an optional exact role filter.
	//
	// If some error occurs, the error will be returned together with "nil" value.
	ListUsers(ctx context.Context, skip, limit int, search string, role *models.Role) ([]models.UserResponse, error)
	// Method UpdateUser applies a partial update to the target user.
	//
	// "principal" parameter is the acting authenticated user.
	// "targetID" parameter identifies the record to update.
	// "req" parameter carries the optional fields to overwrite.
	//
	// Returns models.ErrForbidden when the principal may not perform the
	// update, and models.ErrNotFound or models.ErrEmailTaken when it fails.
	UpdateUser(ctx context.Context, principal *models.User, targetID int, req *models.UpdateUserRequest) (*models.User, error)
	// Method DeleteUser removes a user permanently.
	//
	// Returns models.ErrNotFound if no such user exists.
	DeleteUser(ctx context.Context, targetID int) error
}

// UserHandler handles user directory HTTP requests
type UserHandler struct {
	BaseHandler
	registration RegistrationService
	userService  UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	registration RegistrationService,
	userService UserService,
	logger *zap.Logger,
) *UserHandler {
	return &UserHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		registration: registration,
		userService:  userService,
	}
}

// RegisterRoutes registers all user handler routes.
// "authenticate" resolves the principal, "requireAdmin" gates admin-only routes.
// Note: This assumes the router is already scoped to /api/v1
func (h *UserHandler) RegisterRoutes(r chi.Router, authenticate, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.Register)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", h.GetSelf)
			r.Put("/{id}", h.UpdateUser)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Get("/", h.ListUsers)
				r.Delete("/{id}", h.DeleteUser)
			})
		})
	})
}

// Register handles POST /users
// @Summary Register a new user
// @Description Register a new user with email, name and password. The new account always has the regular user role.
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration request"
// @Success 201 {object} models.UserResponse "User registered successfully"
// @Failure 400 {object} map[string]string "Invalid request body or user already exists"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /users [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.registration.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			h.RespondError(w, http.StatusBadRequest, "the user with this email already exists in the system")
			return
		}
		if isValidationError(err) {
			h.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("failed to register user", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.RespondJSON(w, http.StatusCreated, user.ToResponse())
}

// GetSelf handles GET /users/me
// @Summary Get current user
// @Description Get the profile of the currently authenticated user.
// @Tags users
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} models.UserResponse "Current user"
// @Failure 401 {object} map[string]string "Could not validate credentials"
// @Router /users/me [get]
func (h *UserHandler) GetSelf(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	h.RespondJSON(w, http.StatusOK, principal.ToResponse())
}

// ListUsers handles GET /users
// @Summary List users
// @Description Retrieve a paginated list of users. Admin only. Supports search (name or email substring) and role filtering.
// @Tags users
// @Produce json
// @Security ApiKeyAuth
// @Param skip query int false "Pagination offset" default(0)
// @Param limit query int false "Page size" default(100)
// @Param search query string false "Case-insensitive substring match on name or email"
// @Param role query int false "Role filter (1=user, 2=admin)"
// @Success 200 {array} models.UserResponse "Users"
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Could not validate credentials"
// @Failure 403 {object} map[string]string "Not enough privileges"
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	skip := 0
	if skipStr := query.Get("skip"); skipStr != "" {
		parsed, err := strconv.Atoi(skipStr)
		if err != nil {
			h.RespondError(w, http.StatusBadRequest, "invalid skip parameter")
			return
		}
		skip = parsed
	}

	limit := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			h.RespondError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	var role *models.Role
	if roleStr := query.Get("role"); roleStr != "" {
		parsed, err := strconv.Atoi(roleStr)
		if err != nil {
			h.RespondError(w, http.StatusBadRequest, "invalid role parameter")
			return
		}
		roleValue := models.Role(parsed)
		role = &roleValue
	}

	users, err := h.userService.ListUsers(r.Context(), skip, limit, query.Get("search"), role)
	if err != nil {
		if isValidationError(err) {
			h.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("failed to list users", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.RespondJSON(w, http.StatusOK, users)
}

// UpdateUser handles PUT /users/{id}
// @Summary Update a user
// @Description Partially update a user record. Users may only update their own record; only admins can change roles.
// @Tags users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Target user ID"
// @Param request body models.UpdateUserRequest true "Fields to update"
// @Success 200 {object} models.UserResponse "Updated user"
// @Failure 400 {object} map[string]string "Update failed"
// @Failure 401 {object} map[string]string "Could not validate credentials"
// @Failure 403 {object} map[string]string "Not authorized to update this user"
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	targetID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.UpdateUser(r.Context(), principal, targetID, &req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrForbidden):
			h.RespondError(w, http.StatusForbidden, "not authorized to update this user")
		case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrEmailTaken):
			// The two causes are deliberately indistinguishable here.
			h.RespondError(w, http.StatusBadRequest, "update failed: user not found or email already exists")
		case isValidationError(err):
			h.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			h.Logger.Error("failed to update user", zap.Int("targetID", targetID), zap.Error(err))
			h.RespondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.RespondJSON(w, http.StatusOK, user.ToResponse())
}

// DeleteUser handles DELETE /users/{id}
// @Summary Delete a user
// @Description Permanently delete a user record. Admin only.
// @Tags users
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Target user ID"
// @Success 204 "User deleted"
// @Failure 401 {object} map[string]string "Could not validate credentials"
// @Failure 403 {object} map[string]string "Not enough privileges"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	targetID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.userService.DeleteUser(r.Context(), targetID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			h.RespondError(w, http.StatusNotFound, "user not found")
			return
		}
		h.Logger.Error("failed to delete user", zap.Int("targetID", targetID), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
