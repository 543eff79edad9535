package profile

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"readingjourney/internal/httpx"
	"readingjourney/internal/platform/crypto"
	"readingjourney/internal/platform/imagestore"
	"readingjourney/internal/user"
)

type HTTPHandler struct {
	service        *Service
	maxAvatarBytes int64
}

func NewHTTPHandler(service *Service, maxAvatarBytes int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxAvatarBytes: maxAvatarBytes}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		httpx.NotFound(w, r, "User not found")
	case errors.Is(err, user.ErrNoChanges):
		httpx.BadRequest(w, r, "No data to update")
	case errors.Is(err, ErrIncorrectPassword):
		httpx.BadRequest(w, r, "Current password is incorrect")
	case errors.Is(err, ErrNoPicture):
		httpx.NotFound(w, r, "No profile picture to delete")
	case crypto.IsWeakPassword(err):
		httpx.ValidationFailed(w, r, []httpx.ErrorDetail{{Field: "new_password", Message: err.Error()}})
	case errors.Is(err, imagestore.ErrTooLarge):
		httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, httpx.CodePayloadTooLarge, "Image too large", nil)
	case errors.Is(err, imagestore.ErrUnsupportedType):
		httpx.JSONError(w, r, http.StatusUnsupportedMediaType, httpx.CodeUnsupportedMediaType,
			"Invalid file type. Allowed: png, jpg, jpeg, gif, webp", nil)
	default:
		httpx.InternalError(w, r)
	}
}

// GetProfile handles GET /users/profile
// @Summary Get own profile
// @Description Get the authenticated user's complete profile
// @Tags users
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /users/profile [get]
func (h *HTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), httpx.UserIDFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, u, nil)
}

type updateReq struct {
	FullName      *string `json:"full_name" validate:"omitempty,min=2,max=50"`
	Bio           *string `json:"bio" validate:"omitempty,max=500"`
	Birthdate     *string `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	Gender        *string `json:"gender" validate:"omitempty,gender"`
	Country       *string `json:"country" validate:"omitempty,max=100"`
	City          *string `json:"city" validate:"omitempty,max=100"`
	FavoriteGenre *string `json:"favorite_genre" validate:"omitempty,max=50"`
	FavoriteBook  *string `json:"favorite_book" validate:"omitempty,max=500"`
	ReadingGoal   *int    `json:"reading_goal" validate:"omitempty,min=1,max=1000"`
	Hobbies       *string `json:"hobbies" validate:"omitempty,max=200"`
	Theme         *string `json:"theme" validate:"omitempty,theme"`
}

// optional trims s and treats a blank value as absent.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (req *updateReq) normalize() {
	req.FullName = optional(req.FullName)
	req.Bio = optional(req.Bio)
	req.Birthdate = optional(req.Birthdate)
	req.Gender = optional(req.Gender)
	req.Country = optional(req.Country)
	req.City = optional(req.City)
	req.FavoriteGenre = optional(req.FavoriteGenre)
	req.FavoriteBook = optional(req.FavoriteBook)
	req.Hobbies = optional(req.Hobbies)
	req.Theme = optional(req.Theme)
}

func (req updateReq) toUpdate() user.ProfileUpdate {
	u := user.ProfileUpdate{
		FullName:      req.FullName,
		Bio:           req.Bio,
		Gender:        req.Gender,
		Country:       req.Country,
		City:          req.City,
		FavoriteGenre: req.FavoriteGenre,
		FavoriteBook:  req.FavoriteBook,
		ReadingGoal:   req.ReadingGoal,
		Hobbies:       req.Hobbies,
		Theme:         req.Theme,
	}
	if req.Birthdate != nil {
		// already checked by the datetime tag
		if t, err := time.Parse(time.DateOnly, *req.Birthdate); err == nil {
			u.Birthdate = &t
		}
	}
	return u
}

// UpdateProfile handles PUT /users/profile
// @Summary Update own profile
// @Description Partial update; omitted or blank fields are left unchanged
// @Tags users
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body updateReq true "Profile update request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /users/profile [put]
func (h *HTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	u, err := h.service.Update(r.Context(), httpx.UserIDFrom(r), req.toUpdate())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, u, nil)
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ChangePassword handles PUT /users/password
// @Summary Change password
// @Tags users
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body changePasswordReq true "Password change request"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /users/password [put]
func (h *HTTPHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	if err := h.service.ChangePassword(r.Context(), httpx.UserIDFrom(r), req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONMessage(w, r, "Password changed successfully")
}

// UploadPicture handles POST /users/profile-picture
// @Summary Upload a profile picture
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param profile_picture formData file true "Image (png, jpg, gif, webp)"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 413 {object} httpx.ErrorResponse
// @Failure 415 {object} httpx.ErrorResponse
// @Router /users/profile-picture [post]
func (h *HTTPHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	file, header, ok := httpx.FormFile(w, r, h.maxAvatarBytes, "profile_picture", "file")
	if !ok {
		return
	}
	defer file.Close()

	if !imagestore.AllowedExtension(header.Filename) {
		h.writeError(w, r, imagestore.ErrUnsupportedType)
		return
	}

	u, err := h.service.UploadPicture(r.Context(), httpx.UserIDFrom(r), file, h.maxAvatarBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, u, nil)
}

// DeletePicture handles DELETE /users/profile-picture
// @Summary Delete the profile picture
// @Tags users
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /users/profile-picture [delete]
func (h *HTTPHandler) DeletePicture(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePicture(r.Context(), httpx.UserIDFrom(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONMessage(w, r, "Profile picture deleted")
}

// DeleteAccount handles DELETE /users/delete-account
// @Summary Delete account
// @Description Delete the account with all books, sessions and stored images
// @Tags users
// @Security Bearer
// @Success 204
// @Failure 401 {object} httpx.ErrorResponse
// @Router /users/delete-account [delete]
func (h *HTTPHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteAccount(r.Context(), httpx.UserIDFrom(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}
