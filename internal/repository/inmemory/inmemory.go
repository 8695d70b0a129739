package inmemory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/models"
	"shortlink-be/internal/repository"
)

// LinkStorage keeps links in memory. Records are copied on the way in and out.
type LinkStorage struct {
	mu     sync.RWMutex
	byID   map[string]*entities.Link
	byCode map[string]string // code -> id
}

func NewLinkStorage() *LinkStorage {
	return &LinkStorage{
		byID:   make(map[string]*entities.Link),
		byCode: make(map[string]string),
	}
}

func (m *LinkStorage) Create(ctx context.Context, link *entities.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byCode[link.Code]; exists {
		return repository.ErrDuplicateCode
	}

	now := time.Now().UTC()
	link.ID = uuid.NewString()
	link.CreatedAt = now
	link.UpdatedAt = now

	m.byID[link.ID] = cloneLink(link)
	m.byCode[link.Code] = link.ID
	return nil
}

func (m *LinkStorage) FindByCode(ctx context.Context, code string) (*entities.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byCode[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneLink(m.byID[id]), nil
}

func (m *LinkStorage) FindByID(ctx context.Context, id string) (*entities.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneLink(link), nil
}

func (m *LinkStorage) ExistsByCode(ctx context.Context, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byCode[code]
	return ok, nil
}

func (m *LinkStorage) Update(ctx context.Context, link *entities.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.byID[link.ID]
	if !ok {
		return repository.ErrNotFound
	}

	// code and creation time are immutable
	link.Code = stored.Code
	link.CreatedAt = stored.CreatedAt
	link.UpdatedAt = time.Now().UTC()
	m.byID[link.ID] = cloneLink(link)
	return nil
}

func (m *LinkStorage) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.byCode, link.Code)
	delete(m.byID, id)
	return nil
}

func (m *LinkStorage) List(ctx context.Context, ownerID *string) ([]*entities.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	links := make([]*entities.Link, 0, len(m.byID))
	for _, link := range m.byID {
		if ownerID != nil && (link.OwnerID == nil || *link.OwnerID != *ownerID) {
			continue
		}
		links = append(links, cloneLink(link))
	}

	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return links, nil
}

func cloneLink(link *entities.Link) *entities.Link {
	c := *link
	if link.OwnerID != nil {
		owner := *link.OwnerID
		c.OwnerID = &owner
	}
	if link.ExpiresAt != nil {
		expiresAt := *link.ExpiresAt
		c.ExpiresAt = &expiresAt
	}
	if link.DeviceTargeting != nil {
		dt := *link.DeviceTargeting
		c.DeviceTargeting = &dt
	}
	return &c
}

// VisitStorage keeps visits in memory in insertion order
type VisitStorage struct {
	mu     sync.RWMutex
	visits []entities.Visit
}

func NewVisitStorage() *VisitStorage {
	return &VisitStorage{}
}

func (m *VisitStorage) Create(ctx context.Context, visit *entities.Visit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = time.Now().UTC()
	}
	m.visits = append(m.visits, *visit)
	return nil
}

func (m *VisitStorage) FindByID(ctx context.Context, id string) (*entities.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.visits {
		if v.ID == id {
			visit := v
			return &visit, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *VisitStorage) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, v := range m.visits {
		if v.ID == id {
			m.visits = append(m.visits[:i], m.visits[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *VisitStorage) Query(ctx context.Context, filter models.VisitFilter) ([]*entities.Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.Visit, 0)
	for _, v := range m.visits {
		if matches(&v, filter) {
			visit := v
			result = append(result, &visit)
		}
	}
	return result, nil
}

func (m *VisitStorage) Count(ctx context.Context, filter models.VisitFilter) (int64, error) {
	visits, err := m.Query(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(visits)), nil
}

func (m *VisitStorage) CountByLink(ctx context.Context, expired bool) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64)
	for _, v := range m.visits {
		if v.ExpiredAtVisit == expired {
			counts[v.LinkID]++
		}
	}
	return counts, nil
}

func matches(v *entities.Visit, f models.VisitFilter) bool {
	switch {
	case f.LinkID != nil && v.LinkID != *f.LinkID:
		return false
	case f.LinkIDs != nil && !slices.Contains(f.LinkIDs, v.LinkID):
		return false
	case f.Expired != nil && v.ExpiredAtVisit != *f.Expired:
		return false
	case f.Country != "" && v.Geo.Country != f.Country:
		return false
	case f.State != "" && v.Geo.State != f.State:
		return false
	case f.OS != "" && v.Device.OS != f.OS:
		return false
	case f.DeviceType != "" && v.Device.DeviceType != f.DeviceType:
		return false
	case f.Browser != "" && v.Device.Browser != f.Browser:
		return false
	case f.From != nil && v.CreatedAt.Before(*f.From):
		return false
	case f.To != nil && v.CreatedAt.After(*f.To):
		return false
	}
	return true
}

var (
	_ repository.LinkRepository  = (*LinkStorage)(nil)
	_ repository.VisitRepository = (*VisitStorage)(nil)
)
