package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shortlink-be/internal/middleware"
	"shortlink-be/internal/models"
	"shortlink-be/internal/service"
)

type LinkController struct {
	links   service.LinkService
	baseURL string
}

func NewLinkController(links service.LinkService, baseURL string) *LinkController {
	return &LinkController{
		links:   links,
		baseURL: baseURL,
	}
}

// CreateLink handles POST /api/v1/links. The caller is recorded as owner when authenticated.
func (lc *LinkController) CreateLink(c *gin.Context) {
	var req models.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	var ownerID *string
	if id, ok := middleware.UserID(c); ok {
		ownerID = &id
	}

	link, err := lc.links.CreateLink(c.Request.Context(), &req, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewLinkResponse(link, lc.baseURL))
}

// ListLinks handles GET /api/v1/links - links owned by the caller
func (lc *LinkController) ListLinks(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	links, err := lc.links.ListLinks(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]*models.LinkResponse, len(links))
	for i, link := range links {
		resp[i] = models.NewLinkResponse(link, lc.baseURL)
	}
	c.JSON(http.StatusOK, gin.H{
		"data":        resp,
		"total_count": len(resp),
	})
}

// GetLink handles GET /api/v1/links/:id
func (lc *LinkController) GetLink(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	link, err := lc.links.GetLink(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewLinkResponse(link, lc.baseURL))
}

// UpdateLink handles PUT /api/v1/links/:id
func (lc *LinkController) UpdateLink(c *gin.Context) {
	var req models.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, _ := middleware.UserID(c)

	link, err := lc.links.UpdateLink(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewLinkResponse(link, lc.baseURL))
}

// DeleteLink handles DELETE /api/v1/links/:id
func (lc *LinkController) DeleteLink(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	if err := lc.links.DeleteLink(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Link deleted successfully",
	})
}
