package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink-be/internal/credential"
	"shortlink-be/internal/entities"
	"shortlink-be/internal/geo"
	"shortlink-be/internal/jwt"
	"shortlink-be/internal/models"
	"shortlink-be/internal/repository/inmemory"
	"shortlink-be/internal/service"
)

const (
	testBaseURL = "http://sho.rt"
	androidUA   = "Mozilla/5.0 (Linux; Android 14; Pixel 8) Chrome/120.0 Mobile Safari/537.36"
)

type fixedLocator struct{}

func (fixedLocator) Locate(ip string) (geo.Location, bool) {
	return geo.Location{CountryCode: "US", RegionCode: "CA", City: "Los Angeles"}, true
}

type testServer struct {
	router *gin.Engine
	tokens *jwt.JWTService
	links  *inmemory.LinkStorage
	visits *inmemory.VisitStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	names, err := geo.NewNameLookup()
	require.NoError(t, err)

	links := inmemory.NewLinkStorage()
	visits := inmemory.NewVisitStorage()
	log := zerolog.Nop()
	recorder := service.NewVisitRecorder(visits, names, log)
	linkService := service.NewLinkService(links, visits, credential.NewBcryptHasher(4), recorder, service.LinkServiceOptions{}, log)
	tokens := jwt.NewJWTService("test-secret", time.Hour)

	router := NewRouter(RouterConfig{
		Links:     NewLinkController(linkService, testBaseURL),
		Shortener: NewShortenerController(linkService, fixedLocator{}),
		Analytics: NewAnalyticsController(service.NewAnalyticsService(links, visits)),
		QRCode:    NewQRCodeController(linkService, testBaseURL),
		Tokens:    tokens,
		Log:       log,
	})
	return &testServer{router: router, tokens: tokens, links: links, visits: visits}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) bearer(t *testing.T, userID string) map[string]string {
	t.Helper()
	token, err := s.tokens.GenerateToken(userID, userID+"@example.com")
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func (s *testServer) createLink(t *testing.T, req models.CreateLinkRequest, headers map[string]string) models.LinkResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/links", req, headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.LinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateLink(t *testing.T) {
	s := newTestServer(t)

	t.Run("anonymous", func(t *testing.T) {
		resp := s.createLink(t, models.CreateLinkRequest{Destination: "https://example.com/page"}, nil)
		assert.Len(t, resp.Code, 6)
		assert.Equal(t, testBaseURL+"/"+resp.Code, resp.ShortURL)
		assert.Nil(t, resp.OwnerID)
		assert.False(t, resp.PasswordProtection)
	})

	t.Run("owned", func(t *testing.T) {
		resp := s.createLink(t, models.CreateLinkRequest{Destination: "https://example.com"}, s.bearer(t, "user-1"))
		require.NotNil(t, resp.OwnerID)
		assert.Equal(t, "user-1", *resp.OwnerID)
	})

	t.Run("missing destination", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/links", map[string]any{}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid destination", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/links", models.CreateLinkRequest{Destination: "nope"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("password hash never returned", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/links", models.CreateLinkRequest{
			Destination: "https://example.com",
			AdvancedOptions: &models.AdvancedOptions{
				Password: &models.PasswordOption{Enabled: true, Password: "s3cret"},
			},
		}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		assert.NotContains(t, w.Body.String(), "s3cret")
		assert.NotContains(t, w.Body.String(), "$2a$")
		assert.Contains(t, w.Body.String(), `"password_protection":true`)
	})
}

func TestRedirect(t *testing.T) {
	s := newTestServer(t)

	plain := s.createLink(t, models.CreateLinkRequest{Destination: "https://ex.com/p?x=1"}, nil)
	protected := s.createLink(t, models.CreateLinkRequest{
		Destination: "https://ex.com/secret",
		AdvancedOptions: &models.AdvancedOptions{
			Password: &models.PasswordOption{Enabled: true, Password: "s3cret"},
			DeviceTargeting: &models.DeviceTargetingOption{
				Enabled:            true,
				AndroidDestination: "https://play.example/app",
				IOSDestination:     "https://apps.example/app",
			},
		},
	}, nil)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, s.links.Create(context.Background(), &entities.Link{
		Code:        "old001",
		Destination: "https://ex.com/old",
		ExpiresAt:   &past,
	}))

	tests := []struct {
		name         string
		path         string
		headers      map[string]string
		wantStatus   int
		wantLocation string
		wantState    string
	}{
		{
			name:         "plain with query",
			path:         "/" + plain.Code + "?x=2&y=3",
			wantStatus:   http.StatusFound,
			wantLocation: "https://ex.com/p?x=2&y=3",
		},
		{name: "unknown", path: "/ffffff", wantStatus: http.StatusNotFound, wantState: "NOT_FOUND"},
		{name: "expired", path: "/old001", wantStatus: http.StatusGone, wantState: "EXPIRED"},
		{name: "password required", path: "/" + protected.Code, wantStatus: http.StatusUnauthorized, wantState: "PASSWORD_REQUIRED"},
		{
			name:       "wrong password",
			path:       "/" + protected.Code,
			headers:    map[string]string{PasswordHeader: "guess"},
			wantStatus: http.StatusForbidden,
			wantState:  "INCORRECT_PASSWORD",
		},
		{
			name:         "android with password",
			path:         "/" + protected.Code,
			headers:      map[string]string{PasswordHeader: "s3cret", "User-Agent": androidUA},
			wantStatus:   http.StatusFound,
			wantLocation: "https://play.example/app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, tt.path, nil, tt.headers)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
			}
			if tt.wantState != "" {
				resp := decode[models.ResolveResponse](t, w)
				assert.Equal(t, tt.wantState, resp.Status)
			}
		})
	}

	// visits from direct redirects carry the located geo
	visits, err := s.visits.Query(context.Background(), models.VisitFilter{LinkID: &plain.ID})
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "United States", visits[0].Geo.Country)
	assert.Equal(t, "California", visits[0].Geo.State)
	assert.Equal(t, "Los Angeles", visits[0].Geo.City)
}

func TestResolveAndValidatePassword(t *testing.T) {
	s := newTestServer(t)

	link := s.createLink(t, models.CreateLinkRequest{
		Destination:     "https://ex.com/doc",
		AdvancedOptions: &models.AdvancedOptions{Password: &models.PasswordOption{Enabled: true, Password: "s3cret"}},
	}, nil)

	w := s.do(t, http.MethodPost, "/api/v1/resolve/"+link.Code+"?ref=mail", models.ResolveRequest{
		Visit: models.VisitInputs{CountryCode: "IN", RegionCode: "MH", City: "Pune", UserAgent: "curl/8.0"},
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	denied := decode[models.ResolveResponse](t, w)
	assert.Equal(t, "PASSWORD_REQUIRED", denied.Status)
	require.NotEmpty(t, denied.VisitID)

	w = s.do(t, http.MethodPost, "/api/v1/visits/"+denied.VisitID+"/password?ref=mail",
		models.ValidatePasswordRequest{Password: "wrong"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/visits/"+denied.VisitID+"/password?ref=mail",
		models.ValidatePasswordRequest{Password: "s3cret"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	allowed := decode[models.ResolveResponse](t, w)
	assert.Equal(t, "ALLOWED", allowed.Status)
	assert.Equal(t, "https://ex.com/doc?ref=mail", allowed.Destination)

	w = s.do(t, http.MethodPost, "/api/v1/visits/unknown/password", models.ValidatePasswordRequest{Password: "x"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	visit, err := s.visits.FindByID(context.Background(), denied.VisitID)
	require.NoError(t, err)
	assert.Equal(t, "India", visit.Geo.Country)
	assert.Equal(t, "Maharashtra", visit.Geo.State)
	assert.Equal(t, "curl/8.0", visit.Device.Browser)
}

func TestLinkLifecycle(t *testing.T) {
	s := newTestServer(t)
	owner := s.bearer(t, "owner")
	intruder := s.bearer(t, "intruder")

	link := s.createLink(t, models.CreateLinkRequest{Destination: "https://example.com"}, owner)

	w := s.do(t, http.MethodGet, "/api/v1/links/"+link.ID, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/links/"+link.ID, nil, intruder)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/links/"+link.ID, nil, owner)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/links", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/links", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_count":1`)

	update := models.UpdateLinkRequest{Destination: ptr("https://example.org")}
	w = s.do(t, http.MethodPut, "/api/v1/links/"+link.ID, update, intruder)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/links/"+link.ID, update, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://example.org", decode[models.LinkResponse](t, w).Destination)

	w = s.do(t, http.MethodDelete, "/api/v1/links/"+link.ID, nil, owner)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/links/"+link.ID, nil, owner)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteVisit(t *testing.T) {
	s := newTestServer(t)
	owner := s.bearer(t, "owner")

	link := s.createLink(t, models.CreateLinkRequest{Destination: "https://example.com"}, owner)
	w := s.do(t, http.MethodPost, "/api/v1/resolve/"+link.Code, models.ResolveRequest{}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	visitID := decode[models.ResolveResponse](t, w).VisitID

	w = s.do(t, http.MethodDelete, "/api/v1/visits/"+visitID, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/visits/"+visitID, nil, s.bearer(t, "someone"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/visits/"+visitID, nil, owner)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	s := newTestServer(t)
	analyst := s.bearer(t, "analyst")
	link := s.createLink(t, models.CreateLinkRequest{Destination: "https://example.com"}, analyst)

	for _, region := range []string{"CA", "CA", "NY"} {
		w := s.do(t, http.MethodPost, "/api/v1/resolve/"+link.Code, models.ResolveRequest{
			Visit: models.VisitInputs{CountryCode: "US", RegionCode: region, DeviceType: "Mobile", Platform: "Android", Browser: "Chrome"},
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := s.do(t, http.MethodGet, "/api/v1/analytics/clicks/"+link.Code, nil, analyst)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), decode[models.ClickCountResponse](t, w).Clicks)

	w = s.do(t, http.MethodGet, "/api/v1/analytics/geo/"+link.Code, nil, analyst)
	require.Equal(t, http.StatusOK, w.Code)
	geoResp := decode[models.GeoBreakdownResponse](t, w)
	require.Len(t, geoResp.GeoData, 1)
	assert.Equal(t, "United States", geoResp.GeoData[0].Country)
	assert.Equal(t, int64(3), geoResp.GeoData[0].Total)
	assert.Equal(t, []models.GeoDetail{
		{State: "California", Count: 2},
		{State: "New York", Count: 1},
	}, geoResp.GeoData[0].Details)

	w = s.do(t, http.MethodGet, "/api/v1/analytics/devices/"+link.Code, nil, analyst)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/analytics/summary/"+link.Code, nil, analyst)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), decode[models.SummaryResponse](t, w).Clicks)

	w = s.do(t, http.MethodGet, "/api/v1/analytics/clicks", nil, analyst)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.AllClicksResponse](t, w).TotalCount)

	w = s.do(t, http.MethodGet, "/api/v1/analytics/expired", nil, analyst)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[models.AllClicksResponse](t, w).TotalCount)

	w = s.do(t, http.MethodGet, "/api/v1/analytics/visits?code="+link.Code+"&state=California", nil, analyst)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_count":2`)

	w = s.do(t, http.MethodGet, "/api/v1/analytics/visits?startDate=2000&endDate=1000", nil, analyst)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/analytics/visits?startDate=abc", nil, analyst)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/analytics/geo/ffffff", nil, analyst)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyticsRequireOwner(t *testing.T) {
	s := newTestServer(t)
	owner := s.bearer(t, "owner-1")
	stranger := s.bearer(t, "owner-2")

	link := s.createLink(t, models.CreateLinkRequest{
		Destination: "https://secret.example/hidden",
		AdvancedOptions: &models.AdvancedOptions{
			Password: &models.PasswordOption{Enabled: true, Password: "s3cret"},
		},
	}, owner)

	w := s.do(t, http.MethodGet, "/"+link.Code, nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "secret.example")

	perLink := []string{
		"/api/v1/analytics/clicks/" + link.Code,
		"/api/v1/analytics/geo/" + link.Code,
		"/api/v1/analytics/devices/" + link.Code,
		"/api/v1/analytics/summary/" + link.Code,
		"/api/v1/analytics/visits?code=" + link.Code,
		"/api/v1/links/" + link.ID,
	}
	for _, path := range perLink {
		w := s.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.NotContains(t, w.Body.String(), "secret.example", path)

		w = s.do(t, http.MethodGet, path, nil, stranger)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		assert.NotContains(t, w.Body.String(), "secret.example", path)

		w = s.do(t, http.MethodGet, path, nil, owner)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	for _, path := range []string{"/api/v1/analytics/clicks", "/api/v1/analytics/expired", "/api/v1/analytics/visits"} {
		w := s.do(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)

		w = s.do(t, http.MethodGet, path, nil, stranger)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.NotContains(t, w.Body.String(), "secret.example", path)
		assert.Contains(t, w.Body.String(), `"total_count":0`, path)
	}

	w = s.do(t, http.MethodGet, "/api/v1/analytics/visits", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_count":1`)
}

func TestGenerateQRCode(t *testing.T) {
	s := newTestServer(t)
	link := s.createLink(t, models.CreateLinkRequest{Destination: "https://example.com"}, nil)

	w := s.do(t, http.MethodGet, "/api/v1/qrcode/"+link.Code, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = s.do(t, http.MethodGet, "/api/v1/qrcode/"+link.Code+"?size=10", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/qrcode/ffffff", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func ptr[T any](v T) *T {
	return &v
}
