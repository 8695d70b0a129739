package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/repository"
)

const (
	pgErrCodeUniqueViolation = "23505"
	pgErrCodeInvalidText     = "22P02"
)

// isInvalidID reports whether err comes from a malformed UUID, which can never match a row
func isInvalidID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgErrCodeInvalidText
}

const linkColumns = `id, code, destination, owner_id, password_protected, password_hash, expires_at,
	device_targeting_enabled, android_destination, ios_destination, created_at, updated_at`

type linkRow struct {
	ID                 string         `db:"id"`
	Code               string         `db:"code"`
	Destination        string         `db:"destination"`
	OwnerID            sql.NullString `db:"owner_id"`
	PasswordProtected  bool           `db:"password_protected"`
	PasswordHash       sql.NullString `db:"password_hash"`
	ExpiresAt          sql.NullTime   `db:"expires_at"`
	TargetingEnabled   bool           `db:"device_targeting_enabled"`
	AndroidDestination sql.NullString `db:"android_destination"`
	IOSDestination     sql.NullString `db:"ios_destination"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (r linkRow) toEntity() *entities.Link {
	link := &entities.Link{
		ID:          r.ID,
		Code:        r.Code,
		Destination: r.Destination,
		Password: entities.PasswordPolicy{
			Enabled: r.PasswordProtected,
			Hash:    r.PasswordHash.String,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.OwnerID.Valid {
		owner := r.OwnerID.String
		link.OwnerID = &owner
	}
	if r.ExpiresAt.Valid {
		expiresAt := r.ExpiresAt.Time.UTC()
		link.ExpiresAt = &expiresAt
	}
	if r.TargetingEnabled || r.AndroidDestination.String != "" || r.IOSDestination.String != "" {
		link.DeviceTargeting = &entities.DeviceTargeting{
			Enabled:            r.TargetingEnabled,
			AndroidDestination: r.AndroidDestination.String,
			IOSDestination:     r.IOSDestination.String,
		}
	}
	return link
}

// linkArgs flattens the mutable part of a link into column values
func linkArgs(link *entities.Link) (owner, hash sql.NullString, expires sql.NullTime, targeting bool, android, ios sql.NullString) {
	if link.OwnerID != nil {
		owner = sql.NullString{String: *link.OwnerID, Valid: true}
	}
	if link.Password.Enabled {
		hash = sql.NullString{String: link.Password.Hash, Valid: true}
	}
	if link.ExpiresAt != nil {
		expires = sql.NullTime{Time: link.ExpiresAt.UTC(), Valid: true}
	}
	if dt := link.DeviceTargeting; dt != nil {
		targeting = dt.Enabled
		android = sql.NullString{String: dt.AndroidDestination, Valid: dt.AndroidDestination != ""}
		ios = sql.NullString{String: dt.IOSDestination, Valid: dt.IOSDestination != ""}
	}
	return
}

type linkRepository struct {
	db *sqlx.DB
}

// NewLinkRepository creates a Postgres backed link repository
func NewLinkRepository(db *sqlx.DB) repository.LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts a new link; a unique violation on code maps to ErrDuplicateCode
func (r *linkRepository) Create(ctx context.Context, link *entities.Link) error {
	owner, hash, expires, targeting, android, ios := linkArgs(link)

	query := `
		INSERT INTO links (code, destination, owner_id, password_protected, password_hash, expires_at,
			device_targeting_enabled, android_destination, ios_destination)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		link.Code, link.Destination, owner, link.Password.Enabled, hash, expires, targeting, android, ios,
	).Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgErrCodeUniqueViolation {
			return fmt.Errorf("%w: %s", repository.ErrDuplicateCode, link.Code)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

func (r *linkRepository) FindByCode(ctx context.Context, code string) (*entities.Link, error) {
	return r.findOne(ctx, `SELECT `+linkColumns+` FROM links WHERE code = $1`, code)
}

func (r *linkRepository) FindByID(ctx context.Context, id string) (*entities.Link, error) {
	return r.findOne(ctx, `SELECT `+linkColumns+` FROM links WHERE id = $1`, id)
}

func (r *linkRepository) findOne(ctx context.Context, query string, arg any) (*entities.Link, error) {
	var row linkRow
	err := r.db.GetContext(ctx, &row, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		if isInvalidID(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	return row.toEntity(), nil
}

func (r *linkRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM links WHERE code = $1)`, code); err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}
	return exists, nil
}

func (r *linkRepository) Update(ctx context.Context, link *entities.Link) error {
	owner, hash, expires, targeting, android, ios := linkArgs(link)

	query := `
		UPDATE links
		SET destination = $1, owner_id = $2, password_protected = $3, password_hash = $4, expires_at = $5,
			device_targeting_enabled = $6, android_destination = $7, ios_destination = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		link.Destination, owner, link.Password.Enabled, hash, expires, targeting, android, ios, link.ID,
	).Scan(&link.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}
	return nil
}

func (r *linkRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE id = $1`, id)
	if isInvalidID(err) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *linkRepository) List(ctx context.Context, ownerID *string) ([]*entities.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links ORDER BY created_at DESC`
	var args []any
	if ownerID != nil {
		query = `SELECT ` + linkColumns + ` FROM links WHERE owner_id = $1 ORDER BY created_at DESC`
		args = append(args, *ownerID)
	}

	var rows []linkRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	links := make([]*entities.Link, len(rows))
	for i, row := range rows {
		links[i] = row.toEntity()
	}
	return links, nil
}
