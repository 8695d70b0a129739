package service

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"shortlink-be/internal/repository/inmemory"
)

// fakeHasher stores "hashed:<plaintext>" so tests do not pay for bcrypt
type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

func (fakeHasher) Verify(plaintext, hash string) bool {
	return strings.TrimPrefix(hash, "hashed:") == plaintext && strings.HasPrefix(hash, "hashed:")
}

type fakeNames struct{}

func (fakeNames) CountryName(code string) string {
	switch code {
	case "US":
		return "United States"
	case "IN":
		return "India"
	}
	return code
}

func (fakeNames) StateName(region, country string) string {
	if country != "US" {
		return region
	}
	switch region {
	case "CA":
		return "California"
	case "NY":
		return "New York"
	}
	return region
}

const (
	androidUA = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	iphoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type testEnv struct {
	svc    *linkService
	links  *inmemory.LinkStorage
	visits *inmemory.VisitStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	links := inmemory.NewLinkStorage()
	visits := inmemory.NewVisitStorage()
	recorder := NewVisitRecorder(visits, fakeNames{}, zerolog.Nop())
	svc := NewLinkService(links, visits, fakeHasher{}, recorder, LinkServiceOptions{}, zerolog.Nop()).(*linkService)
	return &testEnv{svc: svc, links: links, visits: visits}
}

// setClock pins every clock the service reads
func (e *testEnv) setClock(now time.Time) {
	clock := func() time.Time { return now }
	e.svc.now = clock
	e.svc.evaluator.now = clock
	e.svc.recorder.now = clock
}

func ptr[T any](v T) *T {
	return &v
}
