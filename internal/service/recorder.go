package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"github.com/rs/zerolog"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/models"
	"shortlink-be/internal/repository"
)

// GeoNamer resolves country and subdivision codes to display names,
// returning the code itself when it has no name for it.
type GeoNamer interface {
	CountryName(code string) string
	StateName(regionCode, countryCode string) string
}

const persistTimeout = 5 * time.Second

// VisitRecorder turns raw visit inputs into Visit records and persists them.
// Persistence failures are logged and never reach the resolution caller.
type VisitRecorder struct {
	visits repository.VisitRepository
	names  GeoNamer
	log    zerolog.Logger
	now    func() time.Time

	buffer chan *entities.Visit // nil when recording synchronously

	mu      sync.RWMutex
	stopped bool // set once Run has returned; later visits are persisted inline
}

func NewVisitRecorder(visits repository.VisitRepository, names GeoNamer, log zerolog.Logger) *VisitRecorder {
	return &VisitRecorder{
		visits: visits,
		names:  names,
		log:    log.With().Str("component", "visit_recorder").Logger(),
		now:    time.Now,
	}
}

// NewAsyncVisitRecorder queues visits on a buffered channel that Run drains.
// When the buffer is full new visits are dropped with a warning.
func NewAsyncVisitRecorder(visits repository.VisitRepository, names GeoNamer, log zerolog.Logger, size int) *VisitRecorder {
	r := NewVisitRecorder(visits, names, log)
	if size <= 0 {
		size = 1000
	}
	r.buffer = make(chan *entities.Visit, size)
	return r
}

// Build converts the inputs into a visit of link. The expiry flag is evaluated
// now and the password policy is copied by value.
func (r *VisitRecorder) Build(link *entities.Link, in models.VisitInputs) *entities.Visit {
	now := r.now()

	countryCode := in.TimezoneCountry
	if countryCode == "" {
		countryCode = in.CountryCode
	}

	return &entities.Visit{
		ID:     uuid.NewString(),
		LinkID: link.ID,
		IP:     in.IP,
		IPv4:   in.IPv4,
		IPv6:   in.IPv6,
		Geo: entities.Geo{
			Country:     r.names.CountryName(in.CountryCode),
			CountryCode: countryCode,
			State:       r.names.StateName(in.RegionCode, in.CountryCode),
			StateCode:   in.RegionCode,
			City:        in.City,
			Timezone:    in.Timezone,
			Coordinates: in.Coordinates,
		},
		Device:           deviceOf(in),
		ExpiredAtVisit:   link.IsExpired(now),
		PasswordSnapshot: entities.SnapshotOf(link.Password),
		CreatedAt:        now.UTC(),
	}
}

// deviceOf prefers caller supplied fields and falls back to parsing the user agent
func deviceOf(in models.VisitInputs) entities.Device {
	d := entities.Device{
		UserAgent:  in.UserAgent,
		DeviceType: in.DeviceType,
		OS:         in.Platform,
		Browser:    in.Browser,
	}
	if d.Browser == "" {
		d.Browser = lastToken(in.UserAgent)
	}
	if in.UserAgent == "" || (d.DeviceType != "" && d.OS != "") {
		return d
	}

	ua := useragent.New(in.UserAgent)
	if d.DeviceType == "" {
		d.DeviceType = "Desktop"
		if ua.Mobile() {
			d.DeviceType = "Mobile"
		}
	}
	if d.OS == "" {
		d.OS = ua.OSInfo().Name
	}
	return d
}

func lastToken(userAgent string) string {
	fields := strings.Split(userAgent, " ")
	return fields[len(fields)-1]
}

// Record builds and persists a visit. The returned visit carries its ID even
// when persistence is deferred or fails.
func (r *VisitRecorder) Record(ctx context.Context, link *entities.Link, in models.VisitInputs) *entities.Visit {
	visit := r.Build(link, in)

	if r.enqueue(link, visit) {
		return visit
	}

	r.persist(context.WithoutCancel(ctx), visit)
	return visit
}

// enqueue hands visit to the async worker. It reports false when the recorder
// is synchronous or the worker has already stopped.
func (r *VisitRecorder) enqueue(link *entities.Link, visit *entities.Visit) bool {
	if r.buffer == nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return false
	}

	select {
	case r.buffer <- visit:
	default:
		r.log.Warn().Str("code", link.Code).Msg("visit buffer full, dropping visit")
	}
	return true
}

func (r *VisitRecorder) persist(ctx context.Context, visit *entities.Visit) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if err := r.visits.Create(ctx, visit); err != nil {
		r.log.Error().Err(err).Str("link_id", visit.LinkID).Str("visit_id", visit.ID).Msg("failed to record visit")
	}
}

// Run drains the async buffer until ctx is done, then flushes what is left.
// Visits recorded after that are written synchronously. Run returns
// immediately for a synchronous recorder.
func (r *VisitRecorder) Run(ctx context.Context) error {
	if r.buffer == nil {
		return nil
	}

	for {
		select {
		case visit := <-r.buffer:
			r.persist(context.WithoutCancel(ctx), visit)
		case <-ctx.Done():
			r.mu.Lock()
			r.stopped = true
			r.mu.Unlock()

			r.flush()
			return nil
		}
	}
}

func (r *VisitRecorder) flush() {
	for {
		select {
		case visit := <-r.buffer:
			r.persist(context.Background(), visit)
		default:
			return
		}
	}
}
