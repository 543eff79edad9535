package dataio

import (
	"errors"
	"net/http"
	"strconv"

	"readingjourney/internal/httpx"
)

type HTTPHandler struct {
	service  *Service
	maxBytes int64
}

func NewHTTPHandler(service *Service, maxBytes int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBytes: maxBytes}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fileErr *FileError
	switch {
	case errors.As(err, &fileErr):
		httpx.BadRequest(w, r, fileErr.Reason)
	case errors.Is(err, ErrUnknownFormat):
		httpx.BadRequest(w, r, "Unsupported format. Use json or csv")
	case errors.Is(err, ErrFilename):
		httpx.BadRequest(w, r, "Invalid filename")
	case errors.Is(err, ErrTooLarge):
		httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, httpx.CodePayloadTooLarge, "File too large", nil)
	case errors.Is(err, ErrNothingToExport):
		httpx.NotFound(w, r, "No books found to export")
	default:
		httpx.InternalError(w, r)
	}
}

func writeDownload(w http.ResponseWriter, d Download) {
	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+d.Filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.Body)
}

// Import handles POST /data/import
// @Summary Import books from a file
// @Description Bulk import from a JSON array or a CSV sheet. Duplicates are skipped
// @Tags data
// @Accept multipart/form-data
// @Produce json
// @Security Bearer
// @Param format query string false "json or csv; defaults to the file extension"
// @Param file formData file true "Import file"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 400 {object} httpx.ErrorResponse
// @Failure 413 {object} httpx.ErrorResponse
// @Router /data/import [post]
func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	file, header, ok := httpx.FormFile(w, r, h.maxBytes, "file")
	if !ok {
		return
	}
	defer file.Close()

	format, err := ResolveFormat(r.URL.Query().Get("format"), header.Filename)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if header.Size > h.maxBytes {
		h.writeError(w, r, ErrTooLarge)
		return
	}

	res, err := h.service.Import(r.Context(), httpx.UserIDFrom(r), format, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, res, nil)
}

func (h *HTTPHandler) export(w http.ResponseWriter, r *http.Request, f Format) {
	favoritesOnly := false
	if raw := r.URL.Query().Get("include_favorites_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.ValidationFailed(w, r, []httpx.ErrorDetail{{Field: "include_favorites_only", Message: "include_favorites_only must be true or false"}})
			return
		}
		favoritesOnly = v
	}

	d, err := h.service.Export(r.Context(), httpx.UserIDFrom(r), f, favoritesOnly)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeDownload(w, d)
}

// ExportJSON handles GET /data/export/json
// @Summary Export books as JSON
// @Tags data
// @Produce json
// @Security Bearer
// @Param include_favorites_only query bool false "Only favorite books"
// @Success 200 {file} file
// @Failure 404 {object} httpx.ErrorResponse
// @Router /data/export/json [get]
func (h *HTTPHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, FormatJSON)
}

// ExportCSV handles GET /data/export/csv
// @Summary Export books as CSV
// @Tags data
// @Produce text/csv
// @Security Bearer
// @Param include_favorites_only query bool false "Only favorite books"
// @Success 200 {file} file
// @Failure 404 {object} httpx.ErrorResponse
// @Router /data/export/csv [get]
func (h *HTTPHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, FormatCSV)
}

// Template handles GET /data/template/csv
// @Summary Download the CSV import template
// @Tags data
// @Produce text/csv
// @Success 200 {file} file
// @Router /data/template/csv [get]
func (h *HTTPHandler) Template(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Template()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeDownload(w, d)
}
