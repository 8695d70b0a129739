package models

import (
	"time"

	"shortlink-be/internal/entities"
)

// LinkResponse is the public view of a link; the password hash never leaves the service
type LinkResponse struct {
	ID                 string                    `json:"id"`
	Code               string                    `json:"code"`
	ShortURL           string                    `json:"short_url"`
	Destination        string                    `json:"destination"`
	OwnerID            *string                   `json:"owner_id,omitempty"`
	PasswordProtection bool                      `json:"password_protection"`
	ExpiresAt          *time.Time                `json:"expires_at,omitempty"`
	DeviceTargeting    *entities.DeviceTargeting `json:"device_targeting,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// NewLinkResponse converts a link entity to its response DTO
func NewLinkResponse(link *entities.Link, baseURL string) *LinkResponse {
	return &LinkResponse{
		ID:                 link.ID,
		Code:               link.Code,
		ShortURL:           baseURL + "/" + link.Code,
		Destination:        link.Destination,
		OwnerID:            link.OwnerID,
		PasswordProtection: link.Password.Enabled,
		ExpiresAt:          link.ExpiresAt,
		DeviceTargeting:    link.DeviceTargeting,
		CreatedAt:          link.CreatedAt,
		UpdatedAt:          link.UpdatedAt,
	}
}

// ResolveResponse carries a resolution decision
type ResolveResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	Destination  string `json:"destination,omitempty"`
	CanonicalURL string `json:"canonical_url,omitempty"`
	VisitID      string `json:"visit_id,omitempty"`
}
