// Package contacts provides the PostgreSQL-backed, owner-scoped contact
// repository. owner_id is a predicate of every statement.
package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

const selectColumns = `id, owner_id, nome, telefone, email, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts contact and fills its ID. A phone the owner already has
// yields common.ErrDuplicatePhone; an owner that does not exist yields
// common.ErrorUnauthorized.
func (r *PostgresRepository) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	query := `
		INSERT INTO contacts (owner_id, nome, telefone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		contact.OwnerID, contact.Nome, contact.Telefone, contact.Email, contact.CreatedAt, contact.UpdatedAt,
	).Scan(&contact.ID)
	if err != nil {
		return nil, translate(err)
	}
	return contact, nil
}

// ListByOwner returns all contacts of ownerID ordered by name
// (case-insensitive), then id.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Contact, error) {
	query := `SELECT ` + selectColumns + ` FROM contacts
		WHERE owner_id = $1
		ORDER BY lower(nome), id
	`
	return r.queryMany(ctx, query, ownerID)
}

// Search returns the contacts of ownerID whose name contains term
// (case-insensitive) or whose phone contains term, in ListByOwner order.
func (r *PostgresRepository) Search(ctx context.Context, ownerID int64, term string) ([]*models.Contact, error) {
	query := `SELECT ` + selectColumns + ` FROM contacts
		WHERE owner_id = $1 AND (nome ILIKE $2 ESCAPE '\' OR telefone LIKE $2 ESCAPE '\')
		ORDER BY lower(nome), id
	`
	return r.queryMany(ctx, query, ownerID, containsPattern(term))
}

// GetByID returns one contact of ownerID, or common.ErrorNotFound when the
// id does not exist or belongs to someone else.
func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	query := `SELECT ` + selectColumns + ` FROM contacts
		WHERE id = $1 AND owner_id = $2
	`
	c, err := scanContact(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// UpdateByPhone rewrites the contact of contact.OwnerID currently holding
// currentPhone.
func (r *PostgresRepository) UpdateByPhone(ctx context.Context, currentPhone string, contact *models.Contact) (*models.Contact, error) {
	query := `
		UPDATE contacts SET nome = $1, telefone = $2, email = $3, updated_at = $4
		WHERE owner_id = $5 AND telefone = $6
		RETURNING ` + selectColumns

	c, err := scanContact(r.db.QueryRowContext(ctx, query,
		contact.Nome, contact.Telefone, contact.Email, contact.UpdatedAt, contact.OwnerID, currentPhone))
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// UpdateByID rewrites contact.ID provided it belongs to contact.OwnerID.
func (r *PostgresRepository) UpdateByID(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	query := `
		UPDATE contacts SET nome = $1, telefone = $2, email = $3, updated_at = $4
		WHERE id = $5 AND owner_id = $6
		RETURNING ` + selectColumns

	c, err := scanContact(r.db.QueryRowContext(ctx, query,
		contact.Nome, contact.Telefone, contact.Email, contact.UpdatedAt, contact.ID, contact.OwnerID))
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (r *PostgresRepository) DeleteByPhone(ctx context.Context, ownerID int64, telefone string) error {
	query := `DELETE FROM contacts WHERE owner_id = $1 AND telefone = $2`
	return r.deleteOne(ctx, query, ownerID, telefone)
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, ownerID, id int64) error {
	query := `DELETE FROM contacts WHERE id = $1 AND owner_id = $2`
	return r.deleteOne(ctx, query, id, ownerID)
}

func (r *PostgresRepository) deleteOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select contacts: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(s scanner) (*models.Contact, error) {
	var (
		c     models.Contact
		email sql.NullString
	)
	if err := s.Scan(&c.ID, &c.OwnerID, &c.Nome, &c.Telefone, &email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if email.Valid {
		c.Email = &email.String
	}
	return &c, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return common.ErrorNotFound
	case dbx.IsUniqueViolation(err):
		return common.ErrDuplicatePhone
	case dbx.IsForeignKeyViolation(err):
		return common.ErrorUnauthorized
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns term into a LIKE pattern matching it literally
// anywhere in the value.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
