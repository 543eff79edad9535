package profile

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readingjourney/internal/httpx"
	"readingjourney/internal/testutil"
	"readingjourney/internal/user"
)

func newTestHandler(t *testing.T) (*HTTPHandler, deps) {
	svc, d := newTestService(t)
	return NewHTTPHandler(svc, 1<<20), d
}

func withUser(r *http.Request) *http.Request {
	return r.WithContext(httpx.ContextWithUser(r.Context(), testUserID, httpx.TokenInfo{}))
}

func TestHTTPHandler_GetProfile(t *testing.T) {
	handler, d := newTestHandler(t)
	d.users.EXPECT().GetByID(gomock.Any(), testUserID).Return(user.User{
		ID:           testUserID,
		UserName:     "reader",
		PasswordHash: "secret-hash",
		Theme:        "light",
	}, nil)

	w := httptest.NewRecorder()
	handler.GetProfile(w, withUser(testutil.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)))

	res := testutil.RecordHTTPResponse(w)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "reader", res.Data()["user_name"])
	assert.NotContains(t, res.Data(), "password_hash")
}

func TestHTTPHandler_UpdateProfile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, d := newTestHandler(t)
		d.users.EXPECT().
			UpdateProfile(gomock.Any(), testUserID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, u user.ProfileUpdate) (user.User, error) {
				require.NotNil(t, u.Birthdate)
				assert.Equal(t, time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC), *u.Birthdate)
				assert.Equal(t, "Lisbon", *u.City)
				assert.Nil(t, u.Bio)
				assert.Equal(t, 24, *u.ReadingGoal)
				return user.User{ID: testUserID, Theme: "dark"}, nil
			})

		w := httptest.NewRecorder()
		r := withUser(testutil.NewRequest(http.MethodPut, "/api/v1/users/profile", map[string]any{
			"birthdate":    "1990-04-12",
			"city":         " Lisbon ",
			"bio":          "   ",
			"reading_goal": 24,
			"theme":        "dark",
		}))
		handler.UpdateProfile(w, r)

		res := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "dark", res.Data()["theme"])
	})

	t.Run("validation", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		r := withUser(testutil.NewRequest(http.MethodPut, "/api/v1/users/profile", map[string]any{
			"birthdate":    "12/04/1990",
			"gender":       "robot",
			"theme":        "neon",
			"reading_goal": 0,
		}))
		handler.UpdateProfile(w, r)

		res := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, httpx.CodeValidation, res.ErrorCode())
		details := res.Body["error"].(map[string]any)["details"].([]any)
		fields := []string{}
		for _, d := range details {
			fields = append(fields, d.(map[string]any)["field"].(string))
		}
		assert.ElementsMatch(t, []string{"birthdate", "gender", "reading_goal", "theme"}, fields)
	})

	t.Run("nothing to update", func(t *testing.T) {
		handler, d := newTestHandler(t)
		d.users.EXPECT().UpdateProfile(gomock.Any(), testUserID, user.ProfileUpdate{}).Return(user.User{}, user.ErrNoChanges)

		w := httptest.NewRecorder()
		handler.UpdateProfile(w, withUser(testutil.NewRequest(http.MethodPut, "/api/v1/users/profile", map[string]any{"bio": ""})))

		res := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, "No data to update", res.ErrorMessage())
	})
}

func TestHTTPHandler_ChangePassword(t *testing.T) {
	t.Run("mismatched confirmation", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		handler.ChangePassword(w, withUser(testutil.NewRequest(http.MethodPut, "/api/v1/users/password", map[string]any{
			"current_password": "OldPass1!",
			"new_password":     "NewPass2@",
			"confirm_password": "NewPass3@",
		})))

		res := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, httpx.CodeValidation, res.ErrorCode())
	})

	t.Run("incorrect current password", func(t *testing.T) {
		handler, d := newTestHandler(t)
		d.users.EXPECT().GetByID(gomock.Any(), testUserID).Return(user.User{ID: testUserID, PasswordHash: "not-a-bcrypt-hash"}, nil)

		w := httptest.NewRecorder()
		handler.ChangePassword(w, withUser(testutil.NewRequest(http.MethodPut, "/api/v1/users/password", map[string]any{
			"current_password": "OldPass1!",
			"new_password":     "NewPass2@",
			"confirm_password": "NewPass2@",
		})))

		res := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, "Current password is incorrect", res.ErrorMessage())
	})
}

func pictureRequest(t *testing.T, field, filename string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/users/profile-picture", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return withUser(r)
}

func TestHTTPHandler_UploadPicture(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, d := newTestHandler(t)
		d.users.EXPECT().GetByID(gomock.Any(), testUserID).Return(user.User{ID: testUserID}, nil)
		d.users.EXPECT().SetProfilePicture(gomock.Any(), testUserID, gomock.Any()).Return(nil)

		w := httptest.NewRecorder()
		handler.UploadPicture(w, pictureRequest(t, "profile_picture", "me.png"))

		res := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, d.images.saveURL, res.Data()["profile_picture"])
	})

	t.Run("bad extension", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		handler.UploadPicture(w, pictureRequest(t, "profile_picture", "me.bmp"))

		res := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusUnsupportedMediaType, res.Code)
		assert.Equal(t, httpx.CodeUnsupportedMediaType, res.ErrorCode())
	})

	t.Run("missing field", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		handler.UploadPicture(w, pictureRequest(t, "avatar", "me.png"))

		res := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, httpx.CodeValidation, res.ErrorCode())
	})
}

func TestHTTPHandler_DeletePicture_None(t *testing.T) {
	handler, d := newTestHandler(t)
	d.users.EXPECT().GetByID(gomock.Any(), testUserID).Return(user.User{ID: testUserID}, nil)

	w := httptest.NewRecorder()
	handler.DeletePicture(w, withUser(testutil.NewRequest(http.MethodDelete, "/api/v1/users/profile-picture", nil)))

	res := testutil.RecordHTTPResponse(w)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "No profile picture to delete", res.ErrorMessage())
}

func TestHTTPHandler_DeleteAccount(t *testing.T) {
	handler, d := newTestHandler(t)
	d.users.EXPECT().GetByID(gomock.Any(), testUserID).Return(user.User{ID: testUserID}, nil)
	d.library.EXPECT().DeleteAllByUser(gomock.Any(), testUserID).Return([]string{}, nil)
	d.sessions.EXPECT().RevokeAll(gomock.Any(), testUserID).Return(nil)
	d.users.EXPECT().Delete(gomock.Any(), testUserID).Return(nil)

	w := httptest.NewRecorder()
	handler.DeleteAccount(w, withUser(testutil.NewRequest(http.MethodDelete, "/api/v1/users/delete-account", nil)))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}
