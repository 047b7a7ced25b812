package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"

	"github.io/infrasutra/speedydraft/internal/draft"
)

type draftRequest struct {
	PDFFilename    *string `json:"pdf_filename"`
	PDFPath        *string `json:"pdf_path"`
	RecipientEmail *string `json:"recipient_email"`
	SenderEmail    *string `json:"sender_email"`
	SenderName     *string `json:"sender_name"`
	Subject        *string `json:"subject"`
	Body           *string `json:"body"`
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}
	var payload draftRequest
	if !s.decodeJSON(w, r, &payload) {
		return
	}
	missing := missingFields(
		field{"pdf_filename", payload.PDFFilename},
		field{"pdf_path", payload.PDFPath},
		field{"recipient_email", payload.RecipientEmail},
		field{"subject", payload.Subject},
		field{"body", payload.Body},
	)
	if missing != "" {
		s.respondError(w, http.StatusUnprocessableEntity, missing)
		return
	}

	req := draft.Request{
		Recipient:   *payload.RecipientEmail,
		Subject:     *payload.Subject,
		Body:        *payload.Body,
		SenderEmail: deref(payload.SenderEmail),
		SenderName:  deref(payload.SenderName),
	}
	d, err := s.drafts.FromPath(r.Context(), req, *payload.PDFFilename, *payload.PDFPath)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.serveDraft(w, r, d)
}

func (s *Server) handleDraftUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}
	if !s.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	recipient := formValue(r, "recipient_email")
	subject := formValue(r, "subject")
	body := formValue(r, "body")
	missing := missingFields(
		field{"recipient_email", recipient},
		field{"subject", subject},
		field{"body", body},
	)
	files := r.MultipartForm.File["pdf_file"]
	if len(files) == 0 {
		if missing == "" {
			missing = "Field required: pdf_file"
		} else {
			missing += ", pdf_file"
		}
	}
	if missing != "" {
		s.respondError(w, http.StatusUnprocessableEntity, missing)
		return
	}

	file, err := files[0].Open()
	if err != nil {
		s.respondErr(w, r, fmt.Errorf("%w: open upload: %v", draft.ErrAssembly, err))
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		s.respondErr(w, r, fmt.Errorf("%w: read upload: %v", draft.ErrAssembly, err))
		return
	}

	req := draft.Request{
		Recipient:   *recipient,
		Subject:     *subject,
		Body:        *body,
		SenderEmail: deref(formValue(r, "sender_email")),
		SenderName:  deref(formValue(r, "sender_name")),
	}
	d, err := s.drafts.FromUpload(r.Context(), req, draft.Attachment{Filename: files[0].Filename, Data: data})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.serveDraft(w, r, d)
}

// serveDraft streams the generated .eml from the outbox as a download.
func (s *Server) serveDraft(w http.ResponseWriter, r *http.Request, d draft.Draft) {
	file, err := os.Open(d.Path)
	if err != nil {
		s.respondErr(w, r, fmt.Errorf("%w: open draft: %v", draft.ErrAssembly, err))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		s.respondErr(w, r, fmt.Errorf("%w: stat draft: %v", draft.ErrAssembly, err))
		return
	}
	w.Header().Set("Content-Type", "message/rfc822")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	http.ServeContent(w, r, d.Filename, info.ModTime(), file)
}
