package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type field struct {
	name  string
	value *string
}

// missingFields names the required fields that were absent from the request.
func missingFields(fields ...field) string {
	var missing []string
	for _, f := range fields {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return "Field required: " + strings.Join(missing, ", ")
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondErr(w, r, err)
			return false
		}
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// parseMultipart reads a multipart body no larger than the upload limit.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondErr(w, r, err)
			return false
		}
		s.respondError(w, http.StatusBadRequest, "Invalid multipart body")
		return false
	}
	return true
}

// formValue returns a pointer to the first value of key, or nil when the
// form did not include it.
func formValue(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
