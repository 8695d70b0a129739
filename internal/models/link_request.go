package models

import "time"

// CreateLinkRequest represents the request body for shortening a URL
type CreateLinkRequest struct {
	Destination     string           `json:"destination" binding:"required"`
	AdvancedOptions *AdvancedOptions `json:"advanced_options,omitempty"`
}

// UpdateLinkRequest replaces the destination and/or the whole advanced options block
type UpdateLinkRequest struct {
	Destination     *string          `json:"destination,omitempty"`
	AdvancedOptions *AdvancedOptions `json:"advanced_options,omitempty"`
}

// AdvancedOptions is the policy bundle of a link. Each feature is its own variant;
// a nil variant means the feature is off.
type AdvancedOptions struct {
	Password        *PasswordOption        `json:"password_protection,omitempty"`
	Expiry          *ExpiryOption          `json:"expiry,omitempty"`
	DeviceTargeting *DeviceTargetingOption `json:"device_targeting,omitempty"`
}

type PasswordOption struct {
	Enabled  bool   `json:"enabled"`
	Password string `json:"password,omitempty"` // plaintext, hashed before storage
}

type ExpiryOption struct {
	ExpiresAt time.Time `json:"expires_at" validate:"required"`
}

type DeviceTargetingOption struct {
	Enabled            bool   `json:"enabled"`
	AndroidDestination string `json:"android_destination,omitempty" validate:"required_if=Enabled true"`
	IOSDestination     string `json:"ios_destination,omitempty" validate:"required_if=Enabled true"`
}
