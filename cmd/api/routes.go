package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"readingjourney/internal/auth"
	"readingjourney/internal/book"
	"readingjourney/internal/config"
	"readingjourney/internal/dataio"
	"readingjourney/internal/httpx"
	"readingjourney/internal/profile"
	"readingjourney/internal/session"
)

const apiPrefix = "/api/v1"

// multipartSlack leaves room for multipart framing around a maximum-size upload.
const multipartSlack = 1 << 20

type pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	auth     *auth.HTTPHandler
	sessions *session.HTTPHandler
	profile  *profile.HTTPHandler
	books    *book.HTTPHandler
	data     *dataio.HTTPHandler
}

type server struct {
	cfg         config.Config
	logger      *zap.Logger
	db          pinger
	h           handlers
	requireAuth func(http.Handler) http.Handler
	limiter     *httpx.RateLimitMiddleware
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.welcome)
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /readyz", s.ready)
	mux.Handle("GET /uploads/", uploads(s.cfg.UploadDir))

	public := func(pattern string, h http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.Handle(method+" "+apiPrefix+path, h)
	}
	private := func(pattern string, h http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.Handle(method+" "+apiPrefix+path, s.requireAuth(h))
	}

	public("POST /auth/register", s.h.auth.Signup)
	public("POST /auth/login", s.h.auth.Login)
	public("POST /auth/refresh", s.h.auth.Refresh)
	public("POST /auth/verify-email/{token}", s.h.auth.VerifyEmail)
	public("POST /auth/resend-verification", s.h.auth.ResendVerification)
	public("POST /auth/forgot-password", s.h.auth.ForgotPassword)
	public("POST /auth/reset-password/{token}", s.h.auth.ResetPassword)
	private("GET /auth/me", s.h.auth.Me)
	private("POST /auth/logout", s.h.auth.Logout)

	private("GET /users/profile", s.h.profile.GetProfile)
	private("PUT /users/profile", s.h.profile.UpdateProfile)
	private("PUT /users/password", s.h.profile.ChangePassword)
	private("POST /users/profile-picture", s.h.profile.UploadPicture)
	private("DELETE /users/profile-picture", s.h.profile.DeletePicture)
	private("DELETE /users/delete-account", s.h.profile.DeleteAccount)
	private("GET /users/sessions", s.h.sessions.ListSessions)
	private("DELETE /users/sessions", s.h.sessions.DeleteOtherSessions)
	private("DELETE /users/sessions/{id}", s.h.sessions.DeleteSession)

	private("POST /books", s.h.books.Create)
	private("GET /books", s.h.books.List)
	private("GET /books/favorites", s.h.books.Favorites)
	private("GET /books/stats", s.h.books.Stats)
	private("GET /books/lookup", s.h.books.Lookup)
	private("GET /books/{id}", s.h.books.Get)
	private("PUT /books/{id}", s.h.books.Update)
	private("DELETE /books/{id}", s.h.books.Delete)
	private("PATCH /books/{id}/favorite", s.h.books.ToggleFavorite)
	private("POST /books/{id}/cover", s.h.books.UploadCover)

	private("POST /data/import", s.h.data.Import)
	private("GET /data/export/json", s.h.data.ExportJSON)
	private("GET /data/export/csv", s.h.data.ExportCSV)
	public("GET /data/template/csv", s.h.data.Template)

	return httpx.Chain(mux,
		httpx.RecoveryMiddleware(s.logger),
		httpx.RequestIDMiddleware,
		httpx.ClientIPMiddleware(s.cfg.TrustedProxies),
		httpx.AccessLogMiddleware(s.logger),
		httpx.SecurityHeadersMiddleware(s.cfg.EnableHSTS),
		httpx.CORSMiddleware(s.cfg.CORSOrigins),
		s.limiter.Middleware,
		httpx.RequestSizeLimitMiddleware(s.cfg.MaxUploadBytes+multipartSlack),
	)
}

func (s *server) welcome(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string]string{
		"message": "Welcome to " + s.cfg.AppName,
		"version": s.cfg.AppVersion,
		"docs":    apiPrefix,
	}, nil)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string]string{
		"status":  "healthy",
		"version": s.cfg.AppVersion,
		"app":     s.cfg.AppName,
	}, nil)
}

func (s *server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "NOT_READY", "Database not ready", nil)
		return
	}
	httpx.JSONSuccess(w, r, map[string]string{"status": "ready"}, nil)
}

// uploads serves stored images without directory listings.
func uploads(dir string) http.Handler {
	files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			httpx.NotFound(w, r, "Not found")
			return
		}
		files.ServeHTTP(w, r)
	})
}
