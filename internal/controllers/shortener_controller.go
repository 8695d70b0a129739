package controllers

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"shortlink-be/internal/geo"
	"shortlink-be/internal/middleware"
	"shortlink-be/internal/models"
	"shortlink-be/internal/service"
)

// PasswordHeader carries the link password on direct redirects
const PasswordHeader = "X-Link-Password"

// IPLocator resolves a client IP to raw geo codes
type IPLocator interface {
	Locate(ip string) (geo.Location, bool)
}

type ShortenerController struct {
	links   service.LinkService
	locator IPLocator // nil when no GeoIP database is configured
}

func NewShortenerController(links service.LinkService, locator IPLocator) *ShortenerController {
	return &ShortenerController{
		links:   links,
		locator: locator,
	}
}

// RedirectToURL handles GET /:code - redirects to the resolved destination.
// Every query parameter is merged into the destination.
func (sc *ShortenerController) RedirectToURL(c *gin.Context) {
	in := service.ResolveInput{
		Query:     c.Request.URL.Query(),
		UserAgent: c.Request.UserAgent(),
	}
	if password := c.GetHeader(PasswordHeader); password != "" {
		in.Password = &password
	}

	res, err := sc.links.Resolve(c.Request.Context(), c.Param("code"), in, sc.visitInputs(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if res.Status.Allowed() {
		c.Redirect(http.StatusFound, res.Destination)
		return
	}
	c.JSON(statusCode(res.Status), toResolveResponse(res))
}

// Resolve handles POST /api/v1/resolve/:code - returns the decision as JSON.
// The caller reports the raw visit details in the body.
func (sc *ShortenerController) Resolve(c *gin.Context) {
	var req models.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if req.Visit.UserAgent == "" {
		req.Visit.UserAgent = c.Request.UserAgent()
	}
	if req.Visit.IP == "" {
		req.Visit.IP = middleware.GetIP(c)
	}
	in := service.ResolveInput{
		Password:  req.Password,
		Query:     c.Request.URL.Query(),
		UserAgent: req.Visit.UserAgent,
	}

	res, err := sc.links.Resolve(c.Request.Context(), c.Param("code"), in, req.Visit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(statusCode(res.Status), toResolveResponse(res))
}

// ValidateVisitPassword handles POST /api/v1/visits/:id/password
func (sc *ShortenerController) ValidateVisitPassword(c *gin.Context) {
	var req models.ValidatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	in := service.ResolveInput{
		Query:     c.Request.URL.Query(),
		UserAgent: c.Request.UserAgent(),
	}
	res, err := sc.links.ValidateVisitPassword(c.Request.Context(), c.Param("id"), req.Password, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(statusCode(res.Status), toResolveResponse(res))
}

// DeleteVisit handles DELETE /api/v1/visits/:id
func (sc *ShortenerController) DeleteVisit(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	if err := sc.links.DeleteVisit(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Visit deleted successfully",
	})
}

// visitInputs collects what a plain browser request tells about the visitor
func (sc *ShortenerController) visitInputs(c *gin.Context) models.VisitInputs {
	ip := middleware.GetIP(c)
	in := models.VisitInputs{
		IP:        ip,
		UserAgent: c.Request.UserAgent(),
	}
	if parsed := net.ParseIP(ip); parsed != nil {
		if parsed.To4() != nil {
			in.IPv4 = ip
		} else {
			in.IPv6 = ip
		}
	}

	if sc.locator != nil {
		if loc, ok := sc.locator.Locate(ip); ok {
			in.CountryCode = loc.CountryCode
			in.RegionCode = loc.RegionCode
			in.City = loc.City
			in.Timezone = loc.Timezone
			in.Coordinates = loc.Coordinates
		}
	}
	return in
}

func statusCode(s service.Status) int {
	switch s {
	case service.StatusAllowed:
		return http.StatusOK
	case service.StatusNotFound:
		return http.StatusNotFound
	case service.StatusExpired:
		return http.StatusGone
	case service.StatusPasswordRequired:
		return http.StatusUnauthorized
	case service.StatusIncorrectPassword:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func toResolveResponse(res *service.Resolution) models.ResolveResponse {
	return models.ResolveResponse{
		Status:       string(res.Status),
		Message:      res.Status.Message(),
		Destination:  res.Destination,
		CanonicalURL: res.CanonicalURL,
		VisitID:      res.VisitID,
	}
}
