package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/models"
	"shortlink-be/internal/repository"
)

// AnalyticsService answers read-only reporting queries over recorded visits.
// Per-link reports only count visits that were not expired when they happened.
// Reports on an owned link are only available to its owner, and the
// multi-link reports cover the caller's own links.
type AnalyticsService interface {
	Clicks(ctx context.Context, code, callerID string) (*models.ClickCountResponse, error)
	AllClicks(ctx context.Context, callerID string) (*models.AllClicksResponse, error)
	ExpiredClicks(ctx context.Context, callerID string) (*models.AllClicksResponse, error)
	GeoBreakdown(ctx context.Context, code, callerID string) (*models.GeoBreakdownResponse, error)
	DeviceBreakdown(ctx context.Context, code, callerID string) (*models.DeviceBreakdownResponse, error)
	Summary(ctx context.Context, code, callerID string) (*models.SummaryResponse, error)
	FilterVisits(ctx context.Context, callerID string, query models.VisitFilterQuery) ([]*entities.Visit, error)
}

type analyticsService struct {
	links  repository.LinkRepository
	visits repository.VisitRepository
}

func NewAnalyticsService(links repository.LinkRepository, visits repository.VisitRepository) AnalyticsService {
	return &analyticsService{links: links, visits: visits}
}

func (s *analyticsService) Clicks(ctx context.Context, code, callerID string) (*models.ClickCountResponse, error) {
	link, err := s.linkByCode(ctx, code, callerID)
	if err != nil {
		return nil, err
	}
	count, err := s.visits.Count(ctx, liveVisitsOf(link))
	if err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}
	return &models.ClickCountResponse{Destination: link.Destination, Code: link.Code, Clicks: count}, nil
}

// AllClicks lists every link of the caller with its count of non-expired visits
func (s *analyticsService) AllClicks(ctx context.Context, callerID string) (*models.AllClicksResponse, error) {
	return s.clicksPerLink(ctx, callerID, false, true)
}

// ExpiredClicks lists links that were visited after they expired, with those visit counts
func (s *analyticsService) ExpiredClicks(ctx context.Context, callerID string) (*models.AllClicksResponse, error) {
	return s.clicksPerLink(ctx, callerID, true, false)
}

func (s *analyticsService) clicksPerLink(ctx context.Context, callerID string, expired, includeZero bool) (*models.AllClicksResponse, error) {
	links, err := s.links.List(ctx, &callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	counts, err := s.visits.CountByLink(ctx, expired)
	if err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}

	data := make([]models.LinkClicks, 0, len(links))
	for _, link := range links {
		clicks := counts[link.ID]
		if clicks == 0 && !includeZero {
			continue
		}
		data = append(data, models.LinkClicks{
			ID:          link.ID,
			Code:        link.Code,
			Destination: link.Destination,
			Clicks:      clicks,
		})
	}
	return &models.AllClicksResponse{Data: data, TotalCount: len(data)}, nil
}

func (s *analyticsService) GeoBreakdown(ctx context.Context, code, callerID string) (*models.GeoBreakdownResponse, error) {
	link, err := s.linkByCode(ctx, code, callerID)
	if err != nil {
		return nil, err
	}
	visits, err := s.liveVisits(ctx, link)
	if err != nil {
		return nil, err
	}
	return &models.GeoBreakdownResponse{
		Destination: link.Destination,
		Code:        link.Code,
		GeoData:     GeoBreakdown(visits),
	}, nil
}

func (s *analyticsService) DeviceBreakdown(ctx context.Context, code, callerID string) (*models.DeviceBreakdownResponse, error) {
	link, err := s.linkByCode(ctx, code, callerID)
	if err != nil {
		return nil, err
	}
	visits, err := s.liveVisits(ctx, link)
	if err != nil {
		return nil, err
	}
	return &models.DeviceBreakdownResponse{
		Destination: link.Destination,
		Code:        link.Code,
		DeviceData:  DeviceBreakdown(visits),
	}, nil
}

// Summary counts visits and builds both breakdowns concurrently
func (s *analyticsService) Summary(ctx context.Context, code, callerID string) (*models.SummaryResponse, error) {
	link, err := s.linkByCode(ctx, code, callerID)
	if err != nil {
		return nil, err
	}

	resp := &models.SummaryResponse{Destination: link.Destination, Code: link.Code}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.visits.Count(gctx, liveVisitsOf(link))
		if err != nil {
			return fmt.Errorf("failed to count visits: %w", err)
		}
		resp.Clicks = count
		return nil
	})
	g.Go(func() error {
		visits, err := s.liveVisits(gctx, link)
		if err != nil {
			return err
		}
		resp.GeoData = GeoBreakdown(visits)
		resp.DeviceData = DeviceBreakdown(visits)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resp, nil
}

// FilterVisits returns visits matching the query. Without a code the search
// covers the caller's links. Dates are unix milliseconds and both bounds are
// inclusive.
func (s *analyticsService) FilterVisits(ctx context.Context, callerID string, query models.VisitFilterQuery) ([]*entities.Visit, error) {
	filter := models.VisitFilter{
		Country:    query.Country,
		State:      query.State,
		OS:         query.OS,
		DeviceType: query.DeviceType,
		Browser:    query.Browser,
	}

	if query.Code != "" {
		link, err := s.linkByCode(ctx, query.Code, callerID)
		if err != nil {
			return nil, err
		}
		filter.LinkID = &link.ID
	} else {
		owned, err := s.links.List(ctx, &callerID)
		if err != nil {
			return nil, fmt.Errorf("failed to list links: %w", err)
		}
		filter.LinkIDs = make([]string, len(owned))
		for i, link := range owned {
			filter.LinkIDs[i] = link.ID
		}
	}
	if query.StartDate != nil {
		from := time.UnixMilli(*query.StartDate).UTC()
		filter.From = &from
	}
	if query.EndDate != nil {
		to := time.UnixMilli(*query.EndDate).UTC()
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, newValidationError("startDate", "must not be after endDate")
	}

	visits, err := s.visits.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	return visits, nil
}

func (s *analyticsService) linkByCode(ctx context.Context, code, callerID string) (*entities.Link, error) {
	link, err := s.links.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	if err := canModify(link, callerID); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *analyticsService) liveVisits(ctx context.Context, link *entities.Link) ([]*entities.Visit, error) {
	visits, err := s.visits.Query(ctx, liveVisitsOf(link))
	if err != nil {
		return nil, fmt.Errorf("failed to query visits: %w", err)
	}
	return visits, nil
}

func liveVisitsOf(link *entities.Link) models.VisitFilter {
	expired := false
	return models.VisitFilter{LinkID: &link.ID, Expired: &expired}
}
