package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"shortlink-be/internal/service"
)

const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

type QRCodeController struct {
	links   service.LinkService
	baseURL string
}

func NewQRCodeController(links service.LinkService, baseURL string) *QRCodeController {
	return &QRCodeController{
		links:   links,
		baseURL: baseURL,
	}
}

// GenerateQRCode handles GET /api/v1/qrcode/:code - PNG QR code of the short URL
func (qc *QRCodeController) GenerateQRCode(c *gin.Context) {
	code := c.Param("code")

	link, err := qc.links.GetLinkByCode(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}

	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < minQRSize || parsed > maxQRSize {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "size must be between 64 and 1024",
			})
			return
		}
		size = parsed
	}

	// Medium error recovery
	pngData, err := qrcode.Encode(qc.baseURL+"/"+link.Code, qrcode.Medium, size)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename=qrcode-"+link.Code+".png")
	c.Data(http.StatusOK, "image/png", pngData)
}
