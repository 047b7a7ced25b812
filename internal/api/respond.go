package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.io/infrasutra/speedydraft/internal/draft"
	"github.io/infrasutra/speedydraft/internal/extract"
	"github.io/infrasutra/speedydraft/internal/records"
)

// errorStatus maps domain errors to response codes. Order matters only for
// errors that wrap more than one sentinel.
var errorStatus = []struct {
	err    error
	status int
}{
	{records.ErrNotFound, http.StatusNotFound},
	{extract.ErrFolderNotFound, http.StatusBadRequest},
	{extract.ErrNotDirectory, http.StatusBadRequest},
	{extract.ErrPermissionDenied, http.StatusForbidden},
	{extract.ErrNoPDFs, http.StatusNotFound},
	{extract.ErrNoFiles, http.StatusBadRequest},
	{extract.ErrNoValidUploads, http.StatusBadRequest},
	{draft.ErrPDFNotFound, http.StatusNotFound},
	{draft.ErrInvalidRequest, http.StatusUnprocessableEntity},
	{draft.ErrAssembly, http.StatusInternalServerError},
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) respondText(w http.ResponseWriter, status int, payload string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(payload))
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	s.respondError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// respondErr writes err using the status of the first matching domain error.
// Anything unrecognised is logged and reported as a 500.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	for _, entry := range errorStatus {
		if errors.Is(err, entry.err) {
			if entry.status >= http.StatusInternalServerError {
				s.logger.Error("request failed", "path", r.URL.Path, "error", err)
			}
			s.respondError(w, entry.status, capitalize(err.Error()))
			return
		}
	}
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	s.respondError(w, http.StatusInternalServerError, "Internal Server Error")
}

func capitalize(message string) string {
	first, size := utf8.DecodeRuneInString(message)
	if first == utf8.RuneError {
		return message
	}
	return string(unicode.ToUpper(first)) + message[size:]
}
