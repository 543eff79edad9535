package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"readingjourney/internal/httpx"
	"readingjourney/internal/platform/crypto"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// sessionView is a session as its owner sees it. The token hash never leaves the server.
type sessionView struct {
	ID         string    `json:"id"`
	UserAgent  string    `json:"user_agent"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsCurrent  bool      `json:"is_current"`
}

func refreshToken(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.NotFound(w, r, "Session not found")
		return
	}
	httpx.InternalError(w, r)
}

// ListSessions handles GET /users/sessions
// @Summary List user sessions
// @Description Live sessions of the authenticated user, most recently used first
// @Tags sessions
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /users/sessions [get]
func (h *HTTPHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r, "Could not validate credentials")
		return
	}

	sessions, err := h.service.ListByUserID(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var current string
	if token := refreshToken(r); token != "" {
		current = crypto.HashToken(token)
	}
	views := make([]sessionView, len(sessions))
	for i, s := range sessions {
		views[i] = sessionView{
			ID:         s.ID,
			UserAgent:  s.UserAgent,
			IPAddress:  s.IPAddress,
			CreatedAt:  s.CreatedAt.UTC(),
			LastUsedAt: s.LastUsedAt.UTC(),
			ExpiresAt:  s.ExpiresAt.UTC(),
			IsCurrent:  current != "" && s.RefreshTokenHash == current,
		}
	}
	httpx.JSONSuccess(w, r, views, map[string]any{"total": len(views)})
}

// DeleteSession handles DELETE /users/sessions/{id}
// @Summary Revoke a session
// @Tags sessions
// @Security Bearer
// @Param id path string true "Session ID"
// @Success 204
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/sessions/{id} [delete]
func (h *HTTPHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r, "Could not validate credentials")
		return
	}

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		httpx.BadRequest(w, r, "Invalid session ID")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

// DeleteOtherSessions handles DELETE /users/sessions
// @Summary Sign out other devices
// @Description Revoke every session except the one behind the refresh cookie
// @Tags sessions
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Router /users/sessions [delete]
func (h *HTTPHandler) DeleteOtherSessions(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r, "Could not validate credentials")
		return
	}

	n, err := h.service.RevokeOthers(r.Context(), userID, refreshToken(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, map[string]int64{"revoked": n}, nil)
}
