package entities

import "time"

// Link maps a short code to a destination URL plus its access policies
type Link struct {
	ID              string           `json:"id"` // UUID
	Code            string           `json:"code"`
	Destination     string           `json:"destination"`
	OwnerID         *string          `json:"owner_id,omitempty"` // nil for anonymous links
	Password        PasswordPolicy   `json:"password"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"` // nil means never expires
	DeviceTargeting *DeviceTargeting `json:"device_targeting,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// PasswordPolicy holds the password protection state of a link.
// Hash is set if and only if Enabled is true.
type PasswordPolicy struct {
	Enabled bool   `json:"enabled"`
	Hash    string `json:"-"`
}

// DeviceTargeting sends Android and iOS visitors to platform specific destinations
type DeviceTargeting struct {
	Enabled            bool   `json:"enabled"`
	AndroidDestination string `json:"android_destination,omitempty"`
	IOSDestination     string `json:"ios_destination,omitempty"`
}

// Complete reports whether both platform destinations are present.
func (d *DeviceTargeting) Complete() bool {
	return d.AndroidDestination != "" && d.IOSDestination != ""
}

// IsExpired compares the expiry against now. It is never cached.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// TargetingEnabled reports whether device targeting is switched on.
func (l *Link) TargetingEnabled() bool {
	return l.DeviceTargeting != nil && l.DeviceTargeting.Enabled
}
