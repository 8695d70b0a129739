package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/models"
	"shortlink-be/internal/repository"
)

func TestLinkStorage_UniqueCode(t *testing.T) {
	ctx := context.Background()
	store := NewLinkStorage()

	first := &entities.Link{Code: "abc123", Destination: "https://example.com"}
	require.NoError(t, store.Create(ctx, first))
	assert.NotEmpty(t, first.ID)

	err := store.Create(ctx, &entities.Link{Code: "abc123", Destination: "https://other.example"})
	assert.ErrorIs(t, err, repository.ErrDuplicateCode)

	exists, err := store.ExistsByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLinkStorage_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewLinkStorage()

	link := &entities.Link{
		Code:            "abc123",
		Destination:     "https://example.com",
		DeviceTargeting: &entities.DeviceTargeting{Enabled: true, AndroidDestination: "https://a.example", IOSDestination: "https://i.example"},
	}
	require.NoError(t, store.Create(ctx, link))

	got, err := store.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	got.DeviceTargeting.AndroidDestination = "https://mutated.example"

	again, err := store.FindByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://a.example", again.DeviceTargeting.AndroidDestination)
}

func TestLinkStorage_DeleteFreesCode(t *testing.T) {
	ctx := context.Background()
	store := NewLinkStorage()

	link := &entities.Link{Code: "abc123", Destination: "https://example.com"}
	require.NoError(t, store.Create(ctx, link))
	require.NoError(t, store.Delete(ctx, link.ID))

	_, err := store.FindByCode(ctx, "abc123")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, link.ID), repository.ErrNotFound)
}

func TestVisitStorage_QueryFilters(t *testing.T) {
	ctx := context.Background()
	store := NewVisitStorage()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	visits := []entities.Visit{
		{LinkID: "l1", Geo: entities.Geo{Country: "India"}, Device: entities.Device{OS: "Android"}, CreatedAt: base},
		{LinkID: "l1", Geo: entities.Geo{Country: "India"}, Device: entities.Device{OS: "iOS"}, CreatedAt: base.Add(time.Hour)},
		{LinkID: "l1", Geo: entities.Geo{Country: "Germany"}, ExpiredAtVisit: true, CreatedAt: base.Add(2 * time.Hour)},
		{LinkID: "l2", Geo: entities.Geo{Country: "India"}, CreatedAt: base.Add(3 * time.Hour)},
	}
	for i := range visits {
		require.NoError(t, store.Create(ctx, &visits[i]))
	}

	linkID := "l1"
	notExpired := false
	from, to := base, base.Add(90*time.Minute)

	tests := []struct {
		name   string
		filter models.VisitFilter
		want   int64
	}{
		{name: "all", filter: models.VisitFilter{}, want: 4},
		{name: "link non-expired", filter: models.VisitFilter{LinkID: &linkID, Expired: &notExpired}, want: 2},
		{name: "country", filter: models.VisitFilter{Country: "India"}, want: 3},
		{name: "os", filter: models.VisitFilter{OS: "iOS"}, want: 1},
		{name: "inclusive time range", filter: models.VisitFilter{From: &from, To: &to}, want: 2},
		{name: "link set", filter: models.VisitFilter{LinkIDs: []string{"l2", "l9"}}, want: 1},
		{name: "empty link set", filter: models.VisitFilter{LinkIDs: []string{}}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	counts, err := store.CountByLink(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"l1": 1}, counts)
}
