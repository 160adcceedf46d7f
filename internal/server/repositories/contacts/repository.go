package contacts

import (
	"context"

	"github.com/dmitrijs2005/contactbook/internal/server/models"
)

// Repository stores contacts. Every method is scoped to one owner and never
// touches rows of another.
type Repository interface {
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Contact, error)
	Search(ctx context.Context, ownerID int64, term string) ([]*models.Contact, error)
	GetByID(ctx context.Context, ownerID, id int64) (*models.Contact, error)
	UpdateByPhone(ctx context.Context, currentPhone string, contact *models.Contact) (*models.Contact, error)
	UpdateByID(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	DeleteByPhone(ctx context.Context, ownerID int64, telefone string) error
	DeleteByID(ctx context.Context, ownerID, id int64) error
}
