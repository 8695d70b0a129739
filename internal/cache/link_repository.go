package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/repository"
)

const (
	linkTTL      = 1 * time.Hour
	codeTakenTTL = 1 * time.Hour
)

func linkKey(code string) string      { return "link:" + code }
func codeTakenKey(code string) string { return "shortcode:exists:" + code }

// cachedLink mirrors entities.Link including the password hash, which the
// entity hides from JSON
type cachedLink struct {
	ID              string                    `json:"id"`
	Code            string                    `json:"code"`
	Destination     string                    `json:"destination"`
	OwnerID         *string                   `json:"owner_id,omitempty"`
	PasswordEnabled bool                      `json:"password_enabled"`
	PasswordHash    string                    `json:"password_hash,omitempty"`
	ExpiresAt       *time.Time                `json:"expires_at,omitempty"`
	DeviceTargeting *entities.DeviceTargeting `json:"device_targeting,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

func toCached(l *entities.Link) cachedLink {
	return cachedLink{
		ID:              l.ID,
		Code:            l.Code,
		Destination:     l.Destination,
		OwnerID:         l.OwnerID,
		PasswordEnabled: l.Password.Enabled,
		PasswordHash:    l.Password.Hash,
		ExpiresAt:       l.ExpiresAt,
		DeviceTargeting: l.DeviceTargeting,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func (c cachedLink) toEntity() *entities.Link {
	return &entities.Link{
		ID:              c.ID,
		Code:            c.Code,
		Destination:     c.Destination,
		OwnerID:         c.OwnerID,
		Password:        entities.PasswordPolicy{Enabled: c.PasswordEnabled, Hash: c.PasswordHash},
		ExpiresAt:       c.ExpiresAt,
		DeviceTargeting: c.DeviceTargeting,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

type linkRepository struct {
	next  repository.LinkRepository
	cache Cache
	log   zerolog.Logger
}

// NewLinkRepository wraps a link repository with a read-through cache keyed by
// code. Cache failures are logged and the call falls through to the store.
// The expiry is cached as a timestamp and still compared on every resolution.
func NewLinkRepository(next repository.LinkRepository, c Cache, log zerolog.Logger) repository.LinkRepository {
	return &linkRepository{next: next, cache: c, log: log.With().Str("component", "link_cache").Logger()}
}

func (r *linkRepository) Create(ctx context.Context, link *entities.Link) error {
	if err := r.next.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrDuplicateCode) {
			r.markTaken(ctx, link.Code)
		}
		return err
	}
	r.markTaken(ctx, link.Code)
	r.store(ctx, link)
	return nil
}

func (r *linkRepository) FindByCode(ctx context.Context, code string) (*entities.Link, error) {
	var cached cachedLink
	err := r.cache.GetJSON(ctx, linkKey(code), &cached)
	if err == nil {
		return cached.toEntity(), nil
	}
	if !errors.Is(err, ErrMiss) {
		r.log.Warn().Err(err).Str("code", code).Msg("link cache read failed")
	}

	link, err := r.next.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.store(ctx, link)
	return link, nil
}

func (r *linkRepository) FindByID(ctx context.Context, id string) (*entities.Link, error) {
	return r.next.FindByID(ctx, id)
}

// ExistsByCode trusts a "taken" hint; absence of the hint is confirmed by the store.
func (r *linkRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	taken, err := r.cache.Exists(ctx, codeTakenKey(code))
	if err == nil && taken {
		return true, nil
	}

	exists, err := r.next.ExistsByCode(ctx, code)
	if err != nil {
		return false, err
	}
	if exists {
		r.markTaken(ctx, code)
	}
	return exists, nil
}

func (r *linkRepository) Update(ctx context.Context, link *entities.Link) error {
	if err := r.next.Update(ctx, link); err != nil {
		return err
	}
	r.evict(ctx, link.Code)
	return nil
}

func (r *linkRepository) Delete(ctx context.Context, id string) error {
	link, err := r.next.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, link.Code, codeTakenKey(link.Code))
	return nil
}

func (r *linkRepository) List(ctx context.Context, ownerID *string) ([]*entities.Link, error) {
	return r.next.List(ctx, ownerID)
}

func (r *linkRepository) store(ctx context.Context, link *entities.Link) {
	if err := r.cache.SetJSON(ctx, linkKey(link.Code), toCached(link), linkTTL); err != nil {
		r.log.Warn().Err(err).Str("code", link.Code).Msg("link cache write failed")
	}
}

func (r *linkRepository) markTaken(ctx context.Context, code string) {
	if err := r.cache.Set(ctx, codeTakenKey(code), "taken", codeTakenTTL); err != nil {
		r.log.Warn().Err(err).Str("code", code).Msg("code hint write failed")
	}
}

func (r *linkRepository) evict(ctx context.Context, code string, extra ...string) {
	keys := append([]string{linkKey(code)}, extra...)
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.log.Warn().Err(err).Str("code", code).Msg("link cache eviction failed")
	}
}
