package api

import (
	"fmt"
	"io"
	"net/http"

	"github.io/infrasutra/speedydraft/internal/extract"
)

type extractRequest struct {
	FolderPath *string `json:"folder_path"`
}

func (s *Server) handleExtractFolder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}
	var payload extractRequest
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	if missing := missingFields(field{"folder_path", payload.FolderPath}); missing != "" {
		s.respondError(w, http.StatusUnprocessableEntity, missing)
		return
	}
	results, err := s.extract.FromFolder(r.Context(), *payload.FolderPath)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleExtractUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}
	if !s.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	var uploads []extract.Upload
	for _, header := range r.MultipartForm.File["files"] {
		file, err := header.Open()
		if err != nil {
			s.respondErr(w, r, fmt.Errorf("open upload %s: %w", header.Filename, err))
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			s.respondErr(w, r, fmt.Errorf("read upload %s: %w", header.Filename, err))
			return
		}
		uploads = append(uploads, extract.Upload{Filename: header.Filename, Data: data})
	}

	results, err := s.extract.FromUploads(r.Context(), uploads)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, results)
}
