package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/models"
	"shortlink-be/internal/repository"
)

const visitColumns = `id, link_id, ip, ipv4, ipv6, country, country_code, state, state_code, city, timezone,
	coordinates, user_agent, device_type, os, browser, expired, password_enabled, password_hash, created_at`

type visitRow struct {
	ID              string         `db:"id"`
	LinkID          string         `db:"link_id"`
	IP              string         `db:"ip"`
	IPv4            string         `db:"ipv4"`
	IPv6            string         `db:"ipv6"`
	Country         string         `db:"country"`
	CountryCode     string         `db:"country_code"`
	State           string         `db:"state"`
	StateCode       string         `db:"state_code"`
	City            string         `db:"city"`
	Timezone        string         `db:"timezone"`
	Coordinates     string         `db:"coordinates"`
	UserAgent       string         `db:"user_agent"`
	DeviceType      string         `db:"device_type"`
	OS              string         `db:"os"`
	Browser         string         `db:"browser"`
	Expired         bool           `db:"expired"`
	PasswordEnabled bool           `db:"password_enabled"`
	PasswordHash    sql.NullString `db:"password_hash"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (r visitRow) toEntity() *entities.Visit {
	return &entities.Visit{
		ID:     r.ID,
		LinkID: r.LinkID,
		IP:     r.IP,
		IPv4:   r.IPv4,
		IPv6:   r.IPv6,
		Geo: entities.Geo{
			Country:     r.Country,
			CountryCode: r.CountryCode,
			State:       r.State,
			StateCode:   r.StateCode,
			City:        r.City,
			Timezone:    r.Timezone,
			Coordinates: r.Coordinates,
		},
		Device: entities.Device{
			UserAgent:  r.UserAgent,
			DeviceType: r.DeviceType,
			OS:         r.OS,
			Browser:    r.Browser,
		},
		ExpiredAtVisit: r.Expired,
		PasswordSnapshot: entities.PasswordSnapshot{
			Enabled: r.PasswordEnabled,
			Hash:    r.PasswordHash.String,
		},
		CreatedAt: r.CreatedAt,
	}
}

type visitRepository struct {
	db *sqlx.DB
}

// NewVisitRepository creates a Postgres backed visit repository
func NewVisitRepository(db *sqlx.DB) repository.VisitRepository {
	return &visitRepository{db: db}
}

// Create inserts the visit. A preset ID or CreatedAt is kept, otherwise the database fills them.
func (r *visitRepository) Create(ctx context.Context, visit *entities.Visit) error {
	var hash sql.NullString
	if visit.PasswordSnapshot.Enabled {
		hash = sql.NullString{String: visit.PasswordSnapshot.Hash, Valid: true}
	}
	id := sql.NullString{String: visit.ID, Valid: visit.ID != ""}
	createdAt := sql.NullTime{Time: visit.CreatedAt, Valid: !visit.CreatedAt.IsZero()}

	query := `
		INSERT INTO visits (id, link_id, ip, ipv4, ipv6, country, country_code, state, state_code, city, timezone,
			coordinates, user_agent, device_type, os, browser, expired, password_enabled, password_hash, created_at)
		VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, COALESCE($20::timestamptz, NOW()))
		RETURNING id, created_at
	`
	g, d := visit.Geo, visit.Device
	err := r.db.QueryRowxContext(ctx, query,
		id, visit.LinkID, visit.IP, visit.IPv4, visit.IPv6,
		g.Country, g.CountryCode, g.State, g.StateCode, g.City, g.Timezone, g.Coordinates,
		d.UserAgent, d.DeviceType, d.OS, d.Browser,
		visit.ExpiredAtVisit, visit.PasswordSnapshot.Enabled, hash, createdAt,
	).Scan(&visit.ID, &visit.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

func (r *visitRepository) FindByID(ctx context.Context, id string) (*entities.Visit, error) {
	var row visitRow
	err := r.db.GetContext(ctx, &row, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find visit: %w", err)
	}
	return row.toEntity(), nil
}

func (r *visitRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM visits WHERE id = $1`, id)
	if isInvalidID(err) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete visit: %w", err)
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

func (r *visitRepository) Query(ctx context.Context, filter models.VisitFilter) ([]*entities.Visit, error) {
	where, args := buildVisitWhere(filter)
	query := r.db.Rebind(`SELECT ` + visitColumns + ` FROM visits` + where + ` ORDER BY created_at ASC`)

	var rows []visitRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}

	visits := make([]*entities.Visit, len(rows))
	for i, row := range rows {
		visits[i] = row.toEntity()
	}
	return visits, nil
}

func (r *visitRepository) Count(ctx context.Context, filter models.VisitFilter) (int64, error) {
	where, args := buildVisitWhere(filter)
	query := r.db.Rebind(`SELECT COUNT(*) FROM visits` + where)

	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return count, nil
}

func (r *visitRepository) CountByLink(ctx context.Context, expired bool) (map[string]int64, error) {
	var rows []struct {
		LinkID string `db:"link_id"`
		Count  int64  `db:"count"`
	}
	query := `SELECT link_id, COUNT(*) AS count FROM visits WHERE expired = $1 GROUP BY link_id`
	if err := r.db.SelectContext(ctx, &rows, query, expired); err != nil {
		return nil, fmt.Errorf("failed to count visits by link: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.LinkID] = row.Count
	}
	return counts, nil
}

// buildVisitWhere renders the filter with '?' placeholders; callers Rebind the query
func buildVisitWhere(filter models.VisitFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}

	if filter.LinkID != nil {
		add("link_id = ?", *filter.LinkID)
	}
	if filter.LinkIDs != nil {
		add("link_id = ANY(?::uuid[])", pq.Array(filter.LinkIDs))
	}
	if filter.Expired != nil {
		add("expired = ?", *filter.Expired)
	}
	if filter.Country != "" {
		add("country = ?", filter.Country)
	}
	if filter.State != "" {
		add("state = ?", filter.State)
	}
	if filter.OS != "" {
		add("os = ?", filter.OS)
	}
	if filter.DeviceType != "" {
		add("device_type = ?", filter.DeviceType)
	}
	if filter.Browser != "" {
		add("browser = ?", filter.Browser)
	}
	if filter.From != nil {
		add("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		add("created_at <= ?", filter.To.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
