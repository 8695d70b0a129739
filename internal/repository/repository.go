package repository

import (
	"context"
	"errors"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateCode = errors.New("short code already exists")
)

//go:generate mockgen -source=repository.go -destination=../mocks/mock_repository.go -package=mocks

// LinkRepository defines the persistence operations for links
type LinkRepository interface {
	// Create inserts the link and fills ID and timestamps. It fails with
	// ErrDuplicateCode when the code is already taken.
	Create(ctx context.Context, link *entities.Link) error
	FindByCode(ctx context.Context, code string) (*entities.Link, error)
	FindByID(ctx context.Context, id string) (*entities.Link, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	// Update replaces the mutable fields of the link (last writer wins).
	Update(ctx context.Context, link *entities.Link) error
	Delete(ctx context.Context, id string) error
	// List returns links of an owner, or every link when ownerID is nil.
	List(ctx context.Context, ownerID *string) ([]*entities.Link, error)
}

// VisitRepository defines the persistence operations for visits
type VisitRepository interface {
	Create(ctx context.Context, visit *entities.Visit) error
	FindByID(ctx context.Context, id string) (*entities.Visit, error)
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, filter models.VisitFilter) ([]*entities.Visit, error)
	Count(ctx context.Context, filter models.VisitFilter) (int64, error)
	// CountByLink returns visit counts keyed by link id, restricted to expired or non-expired visits.
	CountByLink(ctx context.Context, expired bool) (map[string]int64, error)
}
