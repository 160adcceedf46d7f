package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
)

const (
	maxNomeLen         = 255
	maxTelefoneLen     = 50
	maxContactEmailLen = 255
)

// ContactService manages the contacts of one owner at a time. ownerID must
// come from an authenticated identity; the service never crosses owners.
type ContactService struct {
	pool        *dbx.Pool
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	now         Clock
}

func NewContactService(pool *dbx.Pool, m repomanager.RepositoryManager, log logging.Logger) *ContactService {
	return &ContactService{
		pool:        pool,
		repomanager: m,
		log:         log,
		now:         time.Now,
	}
}

// Add stores a new contact for ownerID.
func (s *ContactService) Add(ctx context.Context, ownerID int64, nome, telefone string, email *string) (*models.Contact, error) {
	c, err := newContact(ownerID, nome, telefone, email)
	if err != nil {
		return nil, err
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	err = s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var createErr error
		c, createErr = s.repomanager.Contacts(tx).Create(ctx, c)
		return createErr
	})
	if err != nil {
		return nil, translate(ctx, s.log, "add contact", err)
	}
	s.log.Debug(ctx, "contact added", "owner_id", ownerID, "contact_id", c.ID)
	return c, nil
}

// List returns every contact of ownerID ordered by name, then id.
func (s *ContactService) List(ctx context.Context, ownerID int64) ([]*models.Contact, error) {
	var result []*models.Contact
	err := s.pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var listErr error
		result, listErr = s.repomanager.Contacts(db).ListByOwner(ctx, ownerID)
		return listErr
	})
	if err != nil {
		return nil, translate(ctx, s.log, "list contacts", err)
	}
	return result, nil
}

// Search returns contacts of ownerID whose name or phone contains term.
// A blank term lists everything.
func (s *ContactService) Search(ctx context.Context, ownerID int64, term string) ([]*models.Contact, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.List(ctx, ownerID)
	}

	var result []*models.Contact
	err := s.pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var searchErr error
		result, searchErr = s.repomanager.Contacts(db).Search(ctx, ownerID, term)
		return searchErr
	})
	if err != nil {
		return nil, translate(ctx, s.log, "search contacts", err)
	}
	return result, nil
}

// Get returns contact id of ownerID.
func (s *ContactService) Get(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	var c *models.Contact
	err := s.pool.WithConn(ctx, func(ctx context.Context, db dbx.DBTX) error {
		var getErr error
		c, getErr = s.repomanager.Contacts(db).GetByID(ctx, ownerID, id)
		return getErr
	})
	if err != nil {
		return nil, translate(ctx, s.log, "get contact", err)
	}
	return c, nil
}

// Update rewrites the contact of ownerID whose phone is currentPhone.
func (s *ContactService) Update(ctx context.Context, ownerID int64, currentPhone, nome, telefone string, email *string) (*models.Contact, error) {
	c, err := newContact(ownerID, nome, telefone, email)
	if err != nil {
		return nil, err
	}
	currentPhone = strings.TrimSpace(currentPhone)
	if currentPhone == "" {
		return nil, common.ErrorNotFound
	}
	c.UpdatedAt = s.now()

	err = s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var updErr error
		c, updErr = s.repomanager.Contacts(tx).UpdateByPhone(ctx, currentPhone, c)
		return updErr
	})
	if err != nil {
		return nil, translate(ctx, s.log, "update contact", err)
	}
	return c, nil
}

// UpdateByID rewrites contact id of ownerID.
func (s *ContactService) UpdateByID(ctx context.Context, ownerID, id int64, nome, telefone string, email *string) (*models.Contact, error) {
	c, err := newContact(ownerID, nome, telefone, email)
	if err != nil {
		return nil, err
	}
	c.ID = id
	c.UpdatedAt = s.now()

	err = s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var updErr error
		c, updErr = s.repomanager.Contacts(tx).UpdateByID(ctx, c)
		return updErr
	})
	if err != nil {
		return nil, translate(ctx, s.log, "update contact", err)
	}
	return c, nil
}

// Remove deletes the contact of ownerID with phone telefone.
func (s *ContactService) Remove(ctx context.Context, ownerID int64, telefone string) error {
	telefone = strings.TrimSpace(telefone)
	if telefone == "" {
		return common.ErrorNotFound
	}
	err := s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Contacts(tx).DeleteByPhone(ctx, ownerID, telefone)
	})
	return translate(ctx, s.log, "remove contact", err)
}

// RemoveByID deletes contact id of ownerID.
func (s *ContactService) RemoveByID(ctx context.Context, ownerID, id int64) error {
	err := s.pool.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Contacts(tx).DeleteByID(ctx, ownerID, id)
	})
	return translate(ctx, s.log, "remove contact", err)
}

func newContact(ownerID int64, nome, telefone string, email *string) (*models.Contact, error) {
	nome = strings.TrimSpace(nome)
	telefone = strings.TrimSpace(telefone)
	email = normalizeOptional(email)

	switch {
	case nome == "":
		return nil, common.NewValidationError("name is required")
	case telefone == "":
		return nil, common.NewValidationError("phone is required")
	case utf8.RuneCountInString(nome) > maxNomeLen:
		return nil, common.NewValidationError("name must not exceed %d characters", maxNomeLen)
	case utf8.RuneCountInString(telefone) > maxTelefoneLen:
		return nil, common.NewValidationError("phone must not exceed %d characters", maxTelefoneLen)
	case email != nil && utf8.RuneCountInString(*email) > maxContactEmailLen:
		return nil, common.NewValidationError("email must not exceed %d characters", maxContactEmailLen)
	}

	return &models.Contact{OwnerID: ownerID, Nome: nome, Telefone: telefone, Email: email}, nil
}
