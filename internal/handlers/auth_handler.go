package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/accounthub/user-service/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthService is the interface that wraps methods for authentication business logic.
type AuthService interface {
	// Method Login performs a user credentials validation and returns a bearer token.
	//
	// "req" parameter contains email and password.
	//
	// If the email is unknown or the password is wrong,
	// models.ErrInvalidCredentials will be returned together with an empty string.
	Login(ctx context.Context, req *models.LoginRequest) (string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService AuthService,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{Logger: logger},
		authService: authService,
	}
}

// RegisterRoutes registers all auth handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
	})
}

// Login handles POST /auth/login
// @Summary Login user
// @Description Authenticate user with email and password. Returns a bearer access token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login request"
// @Success 200 {object} models.TokenResponse "Login successful"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Incorrect email or password"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	accessToken, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			h.RespondError(w, http.StatusUnauthorized, "incorrect email or password")
			return
		}
		h.Logger.Error("failed to login user", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.RespondJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
	})
}
