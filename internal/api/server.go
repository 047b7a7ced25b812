package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.io/infrasutra/speedydraft/internal/config"
	"github.io/infrasutra/speedydraft/internal/draft"
	"github.io/infrasutra/speedydraft/internal/extract"
	"github.io/infrasutra/speedydraft/internal/records"
)

type Server struct {
	cfg     *config.Config
	records *records.Service
	extract *extract.Service
	drafts  *draft.Assembler
	logger  *slog.Logger
	mux     *http.ServeMux
	handler http.Handler
}

func NewServer(cfg *config.Config, recs *records.Service, extractor *extract.Service, drafts *draft.Assembler, logger *slog.Logger) *Server {
	server := &Server{
		cfg:     cfg,
		records: recs,
		extract: extractor,
		drafts:  drafts,
		logger:  logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/", server.handleRoot)
	mux.HandleFunc("/api/email-accounts", server.handleAccounts)
	mux.HandleFunc("/api/email-accounts/", server.handleAccount)
	mux.HandleFunc("/api/templates", server.handleTemplates)
	mux.HandleFunc("/api/templates/", server.handleTemplate)
	mux.HandleFunc("/api/pdf/extract", server.handleExtractFolder)
	mux.HandleFunc("/api/pdf/upload-extract", server.handleExtractUpload)
	mux.HandleFunc("/api/outlook/draft", server.handleDraft)
	mux.HandleFunc("/api/outlook/draft-upload", server.handleDraftUpload)
	server.mux = mux
	server.handler = server.withCORS(http.HandlerFunc(server.route))
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if strings.HasPrefix(path, "/api/") {
		s.mux.ServeHTTP(w, r)
		return
	}
	if path == "/health" {
		s.handleHealth(w, r)
		return
	}
	if path == "/ready" {
		s.handleReady(w, r)
		return
	}
	s.respondError(w, http.StatusNotFound, "Not Found")
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/" {
		s.respondError(w, http.StatusNotFound, "Not Found")
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Speedy Statements API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondText(w, http.StatusOK, "ok")
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.respondText(w, http.StatusOK, "ready")
}
