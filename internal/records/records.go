// Package records stores email templates and sender accounts on top of the
// document store. Ids and creation times are assigned here.
package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.io/infrasutra/speedydraft/internal/store"
)

var ErrNotFound = errors.New("record not found")

const (
	fieldName      = "name"
	fieldSubject   = "subject"
	fieldBody      = "body"
	fieldEmail     = "email"
	fieldCreatedAt = "created_at"
)

type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type TemplateInput struct {
	Name    string
	Subject string
	Body    string
}

type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type AccountInput struct {
	Email string
	Name  string
}

type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(st store.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Service) ListTemplates(ctx context.Context, offset, limit int) ([]Template, error) {
	docs, err := s.page(ctx, store.Templates, offset, limit)
	if err != nil {
		return nil, err
	}
	templates := make([]Template, 0, len(docs))
	for _, doc := range docs {
		templates = append(templates, Template{
			ID:        stringField(doc, store.IDField),
			Name:      stringField(doc, fieldName),
			Subject:   stringField(doc, fieldSubject),
			Body:      stringField(doc, fieldBody),
			CreatedAt: s.timeField(doc, fieldCreatedAt),
		})
	}
	return templates, nil
}

func (s *Service) CreateTemplate(ctx context.Context, input TemplateInput) (Template, error) {
	template := Template{
		ID:        s.newID(),
		Name:      input.Name,
		Subject:   input.Subject,
		Body:      input.Body,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.store.Insert(ctx, store.Templates, store.Record{
		store.IDField:  template.ID,
		fieldName:      template.Name,
		fieldSubject:   template.Subject,
		fieldBody:      template.Body,
		fieldCreatedAt: template.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return Template{}, fmt.Errorf("create template: %w", err)
	}
	return template, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	return s.deleteByID(ctx, store.Templates, id)
}

func (s *Service) ListAccounts(ctx context.Context, offset, limit int) ([]Account, error) {
	docs, err := s.page(ctx, store.Accounts, offset, limit)
	if err != nil {
		return nil, err
	}
	accounts := make([]Account, 0, len(docs))
	for _, doc := range docs {
		accounts = append(accounts, Account{
			ID:        stringField(doc, store.IDField),
			Email:     stringField(doc, fieldEmail),
			Name:      stringField(doc, fieldName),
			CreatedAt: s.timeField(doc, fieldCreatedAt),
		})
	}
	return accounts, nil
}

func (s *Service) CreateAccount(ctx context.Context, input AccountInput) (Account, error) {
	account := Account{
		ID:        s.newID(),
		Email:     input.Email,
		Name:      input.Name,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.store.Insert(ctx, store.Accounts, store.Record{
		store.IDField:  account.ID,
		fieldEmail:     account.Email,
		fieldName:      account.Name,
		fieldCreatedAt: account.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	return s.deleteByID(ctx, store.Accounts, id)
}

// page returns up to limit records after skipping offset. A limit of zero
// returns everything from offset on.
func (s *Service) page(ctx context.Context, collection string, offset, limit int) ([]store.Record, error) {
	if offset < 0 {
		offset = 0
	}
	capacity := 0
	if limit > 0 {
		capacity = offset + limit
	}
	docs, err := s.store.Find(ctx, collection, store.Query{}, capacity)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if offset >= len(docs) {
		return []store.Record{}, nil
	}
	return docs[offset:], nil
}

func (s *Service) deleteByID(ctx context.Context, collection, id string) error {
	deleted, err := s.store.DeleteOne(ctx, collection, store.Query{store.IDField: id})
	if err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	s.logger.Info("record deleted", "collection", collection, "id", id)
	return nil
}

func stringField(doc store.Record, key string) string {
	value, _ := doc[key].(string)
	return value
}

func (s *Service) timeField(doc store.Record, key string) time.Time {
	raw := stringField(doc, key)
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		s.logger.Warn("parse timestamp", "field", key, "value", raw, "error", err)
		return time.Time{}
	}
	return parsed
}
