package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"readingjourney/internal/httpx"
	"readingjourney/internal/platform/crypto"
	"readingjourney/internal/session"
	"readingjourney/internal/user"
)

type CookieConfig struct {
	RefreshTTL time.Duration
	Secure     bool
}

type HTTPHandler struct {
	service *Service
	cookie  CookieConfig
}

func NewHTTPHandler(service *Service, cookie CookieConfig) *HTTPHandler {
	return &HTTPHandler{service: service, cookie: cookie}
}

func (h *HTTPHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/api/v1",
		MaxAge:   int(h.cookie.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *HTTPHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/api/v1",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func refreshTokenFrom(r *http.Request) string {
	if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        user.Summary `json:"user"`
}

func toTokenResponse(t Tokens) tokenResponse {
	return tokenResponse{
		AccessToken: t.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   t.ExpiresIn,
		User:        t.User.Summary(),
	}
}

type signupReq struct {
	FullName        string `json:"full_name" validate:"required,min=2,max=50"`
	UserName        string `json:"user_name" validate:"required,username"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// Signup handles POST /auth/register
// @Summary Register a new user
// @Description Create an unverified account and send a verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body signupReq true "Registration request"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 409 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /auth/register [post]
func (h *HTTPHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.UserName = strings.TrimSpace(req.UserName)
	req.Email = strings.TrimSpace(req.Email)

	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	u, err := h.service.Signup(r.Context(), SignupInput{
		FullName: req.FullName,
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			httpx.Conflict(w, r, "Email already registered")
		case errors.Is(err, user.ErrUserNameTaken):
			httpx.Conflict(w, r, "User name already taken")
		default:
			httpx.InternalError(w, r)
		}
		return
	}

	httpx.JSONCreated(w, r, map[string]any{
		"message": "Registration successful. Please check your email to verify your account.",
		"user":    u.Summary(),
	})
}

type loginReq struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /auth/login
// @Summary User login
// @Description Authenticate with email or user name; the refresh token is set as an HttpOnly cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginReq true "Login request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 403 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /auth/login [post]
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	req.Login = strings.TrimSpace(req.Login)

	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	tokens, err := h.service.Login(r.Context(), req.Login, req.Password, r.UserAgent(), httpx.ClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			httpx.Unauthorized(w, r, "Invalid credentials")
		case errors.Is(err, ErrEmailNotVerified):
			httpx.Forbidden(w, r, "Email not verified. Please check your email.")
		case errors.Is(err, ErrAccountInactive):
			httpx.Forbidden(w, r, "Account deactivated")
		default:
			httpx.InternalError(w, r)
		}
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	httpx.JSONSuccess(w, r, toTokenResponse(tokens), nil)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /auth/refresh
// @Summary Refresh access token
// @Description Rotate the refresh token cookie and issue a new access token
// @Tags auth
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /auth/refresh [post]
func (h *HTTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFrom(r)
	if token == "" && r.ContentLength != 0 {
		var req refreshReq
		if !httpx.DecodeJSON(w, r, &req) {
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		httpx.Unauthorized(w, r, "Refresh token not found")
		return
	}

	tokens, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			h.clearRefreshCookie(w)
			httpx.Unauthorized(w, r, "Invalid or expired refresh token")
		case errors.Is(err, ErrInvalidCredentials):
			h.clearRefreshCookie(w)
			httpx.Unauthorized(w, r, "User not found or inactive")
		default:
			httpx.InternalError(w, r)
		}
		return
	}

	h.setRefreshCookie(w, tokens.RefreshToken)
	httpx.JSONSuccess(w, r, toTokenResponse(tokens), nil)
}

// Me handles GET /auth/me
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /auth/me [get]
func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r, "Unauthorized")
		return
	}

	u, err := h.service.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			httpx.NotFound(w, r, "User not found")
			return
		}
		httpx.InternalError(w, r)
		return
	}

	httpx.JSONSuccess(w, r, u.Summary(), nil)
}

// VerifyEmail handles POST /auth/verify-email/{token}
// @Summary Verify email address
// @Tags auth
// @Produce json
// @Param token path string true "Verification token"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /auth/verify-email/{token} [post]
func (h *HTTPHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	err := h.service.VerifyEmail(r.Context(), r.PathValue("token"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			httpx.BadRequest(w, r, "Invalid or expired verification token")
		case errors.Is(err, ErrUnknownAccount):
			httpx.NotFound(w, r, "User not found or already verified")
		default:
			httpx.InternalError(w, r)
		}
		return
	}

	httpx.JSONMessage(w, r, "Email verified successfully! You can now log in.")
}

type emailReq struct {
	Email string `json:"email" validate:"required,email"`
}

// ResendVerification handles POST /auth/resend-verification
// @Summary Resend verification email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body emailReq true "Email"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /auth/resend-verification [post]
func (h *HTTPHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyVerified):
			httpx.BadRequest(w, r, "Email already verified")
		case errors.Is(err, ErrMailDelivery):
			httpx.JSONError(w, r, http.StatusInternalServerError, httpx.CodeInternal, "Failed to send verification email", nil)
		default:
			httpx.InternalError(w, r)
		}
		return
	}

	httpx.JSONMessage(w, r, "If account exists, verification email has been sent")
}

// ForgotPassword handles POST /auth/forgot-password
// @Summary Request a password reset email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body emailReq true "Email"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /auth/forgot-password [post]
func (h *HTTPHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		httpx.InternalError(w, r)
		return
	}

	httpx.JSONMessage(w, r, "If account exists, password reset email has been sent")
}

type resetPasswordReq struct {
	Password        string `json:"password" validate:"required,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// ResetPassword handles POST /auth/reset-password/{token}
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param request body resetPasswordReq true "New password"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /auth/reset-password/{token} [post]
func (h *HTTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	if err := h.service.ResetPassword(r.Context(), r.PathValue("token"), req.Password); err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			httpx.BadRequest(w, r, "Invalid or expired reset token")
		case crypto.IsWeakPassword(err):
			httpx.ValidationFailed(w, r, []httpx.ErrorDetail{{Field: "password", Message: err.Error()}})
		case errors.Is(err, user.ErrNotFound):
			httpx.NotFound(w, r, "User not found")
		default:
			httpx.InternalError(w, r)
		}
		return
	}

	httpx.JSONMessage(w, r, "Password reset successfully")
}

// Logout handles POST /auth/logout
// @Summary User logout
// @Description Revoke the current access token and end the refresh session
// @Tags auth
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /auth/logout [post]
func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	token, ok := httpx.TokenFrom(r)
	if userID == "" || !ok {
		httpx.Unauthorized(w, r, "Unauthorized")
		return
	}

	if err := h.service.Logout(r.Context(), userID, token, refreshTokenFrom(r)); err != nil {
		httpx.InternalError(w, r)
		return
	}

	h.clearRefreshCookie(w)
	httpx.JSONMessage(w, r, "Logged out successfully")
}
