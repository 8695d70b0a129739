package entities

import "time"

// Visit is an immutable record of one resolution attempt
type Visit struct {
	ID               string           `json:"id"` // UUID
	LinkID           string           `json:"link_id"`
	IP               string           `json:"ip,omitempty"`
	IPv4             string           `json:"ipv4,omitempty"`
	IPv6             string           `json:"ipv6,omitempty"`
	Geo              Geo              `json:"geo"`
	Device           Device           `json:"device"`
	ExpiredAtVisit   bool             `json:"expired"`
	PasswordSnapshot PasswordSnapshot `json:"password_snapshot"`
	CreatedAt        time.Time        `json:"created_at"`
}

type Geo struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	State       string `json:"state"`
	StateCode   string `json:"state_code"`
	City        string `json:"city"`
	Timezone    string `json:"timezone"`
	Coordinates string `json:"coordinates"`
}

type Device struct {
	UserAgent  string `json:"user_agent"`
	DeviceType string `json:"device_type"` // Desktop or Mobile
	OS         string `json:"os"`
	Browser    string `json:"browser"`
}

// PasswordSnapshot is a copy of the link's password policy taken when the visit was recorded
type PasswordSnapshot struct {
	Enabled bool   `json:"enabled"`
	Hash    string `json:"-"`
}

// SnapshotOf copies the password policy by value so the visit never aliases the link.
func SnapshotOf(p PasswordPolicy) PasswordSnapshot {
	return PasswordSnapshot{Enabled: p.Enabled, Hash: p.Hash}
}
