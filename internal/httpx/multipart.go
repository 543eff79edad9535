package httpx

import (
	"errors"
	"mime/multipart"
	"net/http"
)

// FormFile parses a multipart body and returns the first file present under
// one of fields. Parts beyond maxMemory spill to temporary files. On failure
// it has already answered the request: a part sent under one of fields
// without a filename gets 400 "Invalid filename", no part at all gets a
// validation error.
func FormFile(w http.ResponseWriter, r *http.Request, maxMemory int64, fields ...string) (multipart.File, *multipart.FileHeader, bool) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			JSONError(w, r, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body too large", nil)
			return nil, nil, false
		}
		BadRequest(w, r, "Invalid multipart form")
		return nil, nil, false
	}

	for _, field := range fields {
		file, header, err := r.FormFile(field)
		if err == nil {
			return file, header, true
		}
	}

	for _, field := range fields {
		if _, sent := r.MultipartForm.Value[field]; sent {
			BadRequest(w, r, "Invalid filename")
			return nil, nil, false
		}
	}

	field := "file"
	if len(fields) > 0 {
		field = fields[0]
	}
	ValidationFailed(w, r, []ErrorDetail{{Field: field, Message: field + " is required"}})
	return nil, nil, false
}
