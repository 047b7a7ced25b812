package api

import (
	"errors"
	"net/http"
	"strings"

	"github.io/infrasutra/speedydraft/internal/pagination"
	"github.io/infrasutra/speedydraft/internal/records"
)

type accountRequest struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

type templateRequest struct {
	Name    *string `json:"name"`
	Subject *string `json:"subject"`
	Body    *string `json:"body"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page := pagination.GetPaginationParams(r.URL.Query())
		accounts, err := s.records.ListAccounts(r.Context(), page.Offset, page.Limit)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, accounts)
	case http.MethodPost:
		var payload accountRequest
		if !s.decodeJSON(w, r, &payload) {
			return
		}
		if missing := missingFields(field{"email", payload.Email}, field{"name", payload.Name}); missing != "" {
			s.respondError(w, http.StatusUnprocessableEntity, missing)
			return
		}
		account, err := s.records.CreateAccount(r.Context(), records.AccountInput{
			Email: *payload.Email,
			Name:  *payload.Name,
		})
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, account)
	default:
		s.methodNotAllowed(w)
	}
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "/api/email-accounts/")
	if !ok {
		return
	}
	err := s.records.DeleteAccount(r.Context(), id)
	if errors.Is(err, records.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "Email account not found")
		return
	}
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Email account deleted successfully"})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		page := pagination.GetPaginationParams(r.URL.Query())
		templates, err := s.records.ListTemplates(r.Context(), page.Offset, page.Limit)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, templates)
	case http.MethodPost:
		var payload templateRequest
		if !s.decodeJSON(w, r, &payload) {
			return
		}
		missing := missingFields(
			field{"name", payload.Name},
			field{"subject", payload.Subject},
			field{"body", payload.Body},
		)
		if missing != "" {
			s.respondError(w, http.StatusUnprocessableEntity, missing)
			return
		}
		template, err := s.records.CreateTemplate(r.Context(), records.TemplateInput{
			Name:    *payload.Name,
			Subject: *payload.Subject,
			Body:    *payload.Body,
		})
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, template)
	default:
		s.methodNotAllowed(w)
	}
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "/api/templates/")
	if !ok {
		return
	}
	err := s.records.DeleteTemplate(r.Context(), id)
	if errors.Is(err, records.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "Template not found")
		return
	}
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Template deleted successfully"})
}

// pathID extracts the single id segment after prefix for DELETE requests.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		s.respondError(w, http.StatusNotFound, "Not Found")
		return "", false
	}
	if r.Method != http.MethodDelete {
		s.methodNotAllowed(w)
		return "", false
	}
	return id, true
}
