package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/imbhaskarn/devboss-blog/internal/platform/httpx"
)

// Reference response messages; part of the public API contract.
const (
	msgEmailTaken         = "Email is already registered."
	msgUsernameTaken      = "Username is already in use."
	msgInvalidCredentials = "Invalid credentials."
	msgInvalidToken       = "Invalid or expired token."
	msgTokenMissing       = "Access denied, token missing!"
	msgUserNotFound       = "User not found"
	msgInternal           = "An internal server error occurred."
)

// Handler wires HTTP endpoints for the auth flow.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignUp)
	r.Post("/signin", h.handleSignIn)
	r.Get("/verify-email", h.handleVerifyEmail)
	r.Post("/refresh-token", h.handleRefreshToken)
	r.Post("/forgot-password", h.handleForgotPassword)
	r.Get("/verify-forgot-password", h.handleVerifyForgotPassword)
}

type signUpRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Malformed JSON body.")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	creds, err := h.service.SignUp(r.Context(), SignUpInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			httpx.Problem(w, http.StatusConflict, "Conflict", msgEmailTaken)
		case errors.Is(err, ErrUsernameTaken):
			httpx.Problem(w, http.StatusConflict, "Conflict", msgUsernameTaken)
		default:
			h.logger.Error("signup", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", msgInternal)
		}
		return
	}

	httpx.Success(w, http.StatusCreated, "Check your email to verify your account.", creds)
}

type signInRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Malformed JSON body.")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.Email == "" && req.Username == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Either email or username is required.")
		return
	}

	session, err := h.service.SignIn(r.Context(), SignInInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", msgInvalidCredentials)
			return
		}
		h.logger.Error("signin", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", msgInternal)
		return
	}

	httpx.Success(w, http.StatusOK, "Login successful.", session)
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	presented := r.URL.Query().Get("token")
	email := r.URL.Query().Get("email")
	if presented == "" || email == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Token and email are required.")
		return
	}

	user, err := h.service.VerifyEmail(r.Context(), presented, email)
	if err != nil {
		// Mismatched token and unknown address produce the same response so
		// the endpoint never discloses whether an email is registered.
		if errors.Is(err, ErrInvalidToken) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", msgInvalidToken)
			return
		}
		h.logger.Error("verify email", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", msgInternal)
		return
	}

	httpx.Success(w, http.StatusOK, "Email verified successfully.", map[string]any{"user": user})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Malformed JSON body.")
		return
	}
	if req.RefreshToken == "" {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", msgTokenMissing)
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", msgInvalidToken)
		case errors.Is(err, ErrUserNotFound):
			httpx.Problem(w, http.StatusForbidden, "Forbidden", msgUserNotFound)
		default:
			h.logger.Error("refresh token", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", msgInternal)
		}
		return
	}

	httpx.Success(w, http.StatusOK, "Token refreshed successfully.", map[string]string{"accessToken": accessToken})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Malformed JSON body.")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.logger.Error("forgot password", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", msgInternal)
		return
	}

	httpx.Success(w, http.StatusOK, "Password reset link sent successfully.", struct{}{})
}

func (h *Handler) handleVerifyForgotPassword(w http.ResponseWriter, r *http.Request) {
	presented := r.URL.Query().Get("token")
	email := r.URL.Query().Get("email")
	if presented == "" || email == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Invalid token or email")
		return
	}

	accessToken, err := h.service.VerifyForgotPassword(r.Context(), presented, email)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", msgInvalidToken)
			return
		}
		h.logger.Error("verify forgot password", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", msgInternal)
		return
	}

	httpx.Success(w, http.StatusOK, "Password reset confirmed.", map[string]string{"accessToken": accessToken})
}
