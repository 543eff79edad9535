package book

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"readingjourney/internal/httpx"
	"readingjourney/internal/platform/imagestore"
)

type HTTPHandler struct {
	service       *Service
	maxImageBytes int64
}

func NewHTTPHandler(service *Service, maxImageBytes int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxImageBytes: maxImageBytes}
}

// flexTime accepts RFC 3339 timestamps and bare YYYY-MM-DD dates.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t *flexTime) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
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

type createReq struct {
	Title           string    `json:"title" validate:"required,min=1,max=200"`
	Author          *string   `json:"author" validate:"omitempty,max=100"`
	ISBN            *string   `json:"isbn" validate:"omitempty,max=20,isbn"`
	Genre           *string   `json:"genre" validate:"omitempty,max=50"`
	Rating          *float64  `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Description     *string   `json:"description" validate:"omitempty,max=2000"`
	ReadingStarted  *flexTime `json:"reading_started" validate:"required"`
	ReadingFinished *flexTime `json:"reading_finished"`
	PageCount       *int      `json:"page_count" validate:"omitempty,gt=0,lte=2147483647"`
	Publisher       *string   `json:"publisher" validate:"omitempty,max=100"`
	PublicationYear *int      `json:"publication_year" validate:"omitempty,gte=0,lte=9999"`
	Language        *string   `json:"language" validate:"omitempty,max=50"`
	Format          *string   `json:"format" validate:"omitempty,book_format"`
}

func (req *createReq) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.Author = optional(req.Author)
	req.ISBN = optional(req.ISBN)
	req.Genre = optional(req.Genre)
	req.Description = optional(req.Description)
	req.Publisher = optional(req.Publisher)
	req.Language = optional(req.Language)
	req.Format = optional(req.Format)
}

type updateReq struct {
	Title           *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Author          *string   `json:"author" validate:"omitempty,max=100"`
	ISBN            *string   `json:"isbn" validate:"omitempty,max=20,isbn"`
	Genre           *string   `json:"genre" validate:"omitempty,max=50"`
	Rating          *float64  `json:"rating" validate:"omitempty,gte=0,lte=5"`
	Description     *string   `json:"description" validate:"omitempty,max=2000"`
	ReadingStarted  *flexTime `json:"reading_started"`
	ReadingFinished *flexTime `json:"reading_finished"`
	IsFavorite      *bool     `json:"is_favorite"`
	PageCount       *int      `json:"page_count" validate:"omitempty,gt=0,lte=2147483647"`
	Publisher       *string   `json:"publisher" validate:"omitempty,max=100"`
	PublicationYear *int      `json:"publication_year" validate:"omitempty,gte=0,lte=9999"`
	Language        *string   `json:"language" validate:"omitempty,max=50"`
	Format          *string   `json:"format" validate:"omitempty,book_format"`
}

func (req *updateReq) normalize() {
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		req.Title = &t
	}
	req.Author = optional(req.Author)
	req.ISBN = optional(req.ISBN)
	req.Genre = optional(req.Genre)
	req.Description = optional(req.Description)
	req.Publisher = optional(req.Publisher)
	req.Language = optional(req.Language)
	req.Format = optional(req.Format)
}

func (req updateReq) toUpdate() Update {
	return Update{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		Genre:           req.Genre,
		Rating:          req.Rating,
		Description:     req.Description,
		ReadingStarted:  req.ReadingStarted.ptr(),
		ReadingFinished: req.ReadingFinished.ptr(),
		IsFavorite:      req.IsFavorite,
		PageCount:       req.PageCount,
		Publisher:       req.Publisher,
		PublicationYear: req.PublicationYear,
		Language:        req.Language,
		Format:          req.Format,
	}
}

func (h *HTTPHandler) bookID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		httpx.BadRequest(w, r, "Invalid book ID")
		return "", false
	}
	return id, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.NotFound(w, r, "Book not found")
	case errors.Is(err, ErrNoChanges):
		httpx.BadRequest(w, r, "No data to update")
	case errors.Is(err, ErrInvalidDates):
		httpx.ValidationFailed(w, r, []httpx.ErrorDetail{{Field: "reading_finished", Message: ErrInvalidDates.Error()}})
	default:
		httpx.InternalError(w, r)
	}
}

// Create handles POST /books
// @Summary Add a book
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body createReq true "Book"
// @Success 201 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 401 {object} httpx.ErrorResponse
// @Router /books [post]
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r, "Unauthorized")
		return
	}

	var req createReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	nb := NewBook{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		Genre:           req.Genre,
		Description:     req.Description,
		ReadingStarted:  req.ReadingStarted.Time,
		ReadingFinished: req.ReadingFinished.ptr(),
		PageCount:       req.PageCount,
		Publisher:       req.Publisher,
		PublicationYear: req.PublicationYear,
		Format:          req.Format,
	}
	if req.Rating != nil {
		nb.Rating = *req.Rating
	}
	if req.Language != nil {
		nb.Language = *req.Language
	}

	b, err := h.service.Create(r.Context(), userID, nb)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, b)
}

func parseQuery(r *http.Request) (Query, []httpx.ErrorDetail) {
	values := r.URL.Query()
	q := Query{
		UserID: httpx.UserIDFrom(r),
		Genre:  values.Get("genre"),
		Author: values.Get("author"),
		Search: values.Get("search"),
		Sort:   values.Get("sort"),
		Page:   1,
		Limit:  DefaultLimit,
	}
	var details []httpx.ErrorDetail
	invalid := func(field, msg string) {
		details = append(details, httpx.ErrorDetail{Field: field, Message: msg})
	}

	if v := values.Get("favorite"); v != "" {
		fav, err := strconv.ParseBool(v)
		if err != nil {
			invalid("favorite", "favorite must be true or false")
		} else {
			q.Favorite = &fav
		}
	}

	parseRating := func(field string) *float64 {
		v := values.Get(field)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 5 {
			invalid(field, field+" must be between 0 and 5")
			return nil
		}
		return &f
	}
	q.RatingMin = parseRating("rating_min")
	q.RatingMax = parseRating("rating_max")

	if v := values.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			invalid("year", "year must be a number")
		} else {
			q.Year = &y
		}
	}

	page, limit, pageDetails := parsePaging(r)
	q.Page, q.Limit = page, limit
	details = append(details, pageDetails...)
	return q, details
}

func parsePaging(r *http.Request) (int, int, []httpx.ErrorDetail) {
	values := r.URL.Query()
	page, limit := 1, DefaultLimit
	var details []httpx.ErrorDetail

	if v := values.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			details = append(details, httpx.ErrorDetail{Field: "page", Message: "page must be greater than 0"})
		} else {
			page = n
		}
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			details = append(details, httpx.ErrorDetail{Field: "limit", Message: "limit must be between 1 and 100"})
		} else {
			limit = n
		}
	}
	return page, limit, details
}

// List handles GET /books
// @Summary List books
// @Description Filter, sort and paginate the caller's library
// @Tags books
// @Produce json
// @Security Bearer
// @Param favorite query bool false "Only favorites"
// @Param genre query string false "Genre substring"
// @Param author query string false "Author substring"
// @Param rating_min query number false "Minimum rating"
// @Param rating_max query number false "Maximum rating"
// @Param year query int false "Year reading started"
// @Param search query string false "Title or author substring"
// @Param sort query string false "date_desc, date_asc, title_asc, title_desc, rating_desc, author_asc, author_desc"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Router /books [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	q, details := parseQuery(r)
	if q.UserID == "" {
		httpx.Unauthorized(w, r, "Unauthorized")
		return
	}
	if len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	page, err := h.service.List(r.Context(), q)
	if err != nil {
		httpx.InternalError(w, r)
		return
	}
	httpx.JSONSuccess(w, r, page, nil)
}

// Favorites handles GET /books/favorites
// @Summary List favorite books
// @Tags books
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Router /books/favorites [get]
func (h *HTTPHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r, "Unauthorized")
		return
	}
	page, limit, details := parsePaging(r)
	if len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	result, err := h.service.Favorites(r.Context(), userID, page, limit)
	if err != nil {
		httpx.InternalError(w, r)
		return
	}
	httpx.JSONSuccess(w, r, result, nil)
}

// Stats handles GET /books/stats
// @Summary Reading statistics
// @Tags books
// @Produce json
// @Security Bearer
// @Success 200 {object} httpx.SuccessResponse
// @Router /books/stats [get]
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFrom(r)
	if userID == "" {
		httpx.Unauthorized(w, r, "Unauthorized")
		return
	}
	st, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		httpx.InternalError(w, r)
		return
	}
	httpx.JSONSuccess(w, r, st, nil)
}

// Get handles GET /books/{id}
// @Summary Get a book
// @Tags books
// @Produce json
// @Security Bearer
// @Param id path string true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id} [get]
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), httpx.UserIDFrom(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Update handles PUT /books/{id}
// @Summary Update a book
// @Tags books
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Book ID"
// @Param request body updateReq true "Fields to change"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id} [put]
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	var req updateReq
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.ValidationFailed(w, r, details)
		return
	}

	b, err := h.service.Update(r.Context(), httpx.UserIDFrom(r), id, req.toUpdate())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Delete handles DELETE /books/{id}
// @Summary Delete a book
// @Tags books
// @Security Bearer
// @Param id path string true "Book ID"
// @Success 204
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id} [delete]
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), httpx.UserIDFrom(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

// ToggleFavorite handles PATCH /books/{id}/favorite
// @Summary Toggle favorite flag
// @Tags books
// @Produce json
// @Security Bearer
// @Param id path string true "Book ID"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Router /books/{id}/favorite [patch]
func (h *HTTPHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}
	b, err := h.service.ToggleFavorite(r.Context(), httpx.UserIDFrom(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// UploadCover handles POST /books/{id}/cover
// @Summary Upload a cover image
// @Tags books
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param id path string true "Book ID"
// @Param cover formData file true "Image (png, jpg, gif, webp)"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 413 {object} httpx.ErrorResponse
// @Failure 415 {object} httpx.ErrorResponse
// @Router /books/{id}/cover [post]
func (h *HTTPHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	file, header, ok := httpx.FormFile(w, r, h.maxImageBytes, "cover", "file")
	if !ok {
		return
	}
	defer file.Close()

	if !imagestore.AllowedExtension(header.Filename) {
		httpx.JSONError(w, r, http.StatusUnsupportedMediaType, httpx.CodeUnsupportedMediaType,
			"Invalid file type. Allowed: png, jpg, jpeg, gif, webp", nil)
		return
	}

	b, err := h.service.UploadCover(r.Context(), httpx.UserIDFrom(r), id, file, h.maxImageBytes)
	if err != nil {
		switch {
		case errors.Is(err, imagestore.ErrTooLarge):
			httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, httpx.CodePayloadTooLarge, "Image too large", nil)
		case errors.Is(err, imagestore.ErrUnsupportedType):
			httpx.JSONError(w, r, http.StatusUnsupportedMediaType, httpx.CodeUnsupportedMediaType,
				"Invalid file type. Allowed: png, jpg, jpeg, gif, webp", nil)
		default:
			h.writeError(w, r, err)
		}
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Lookup handles GET /books/lookup
// @Summary Look up ISBN metadata
// @Description Fetch title, author, publisher, pages, year and cover from Open Library
// @Tags books
// @Produce json
// @Security Bearer
// @Param isbn query string true "ISBN-10 or ISBN-13"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Router /books/lookup [get]
func (h *HTTPHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Lookup(r.Context(), r.URL.Query().Get("isbn"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidISBN):
			httpx.ValidationFailed(w, r, []httpx.ErrorDetail{{Field: "isbn", Message: "isbn must be a valid ISBN-10 or ISBN-13"}})
		case errors.Is(err, ErrMetadataNotFound):
			httpx.NotFound(w, r, "No metadata found for this ISBN")
		default:
			httpx.JSONError(w, r, http.StatusBadGateway, httpx.CodeBadGateway, "Metadata service unavailable", nil)
		}
		return
	}
	httpx.JSONSuccess(w, r, m, nil)
}
