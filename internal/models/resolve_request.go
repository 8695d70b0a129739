package models

// ResolveRequest represents the body of POST /api/v1/resolve/:code.
// Query parameters are taken from the request URL, not the body.
type ResolveRequest struct {
	Password *string     `json:"password,omitempty"`
	Visit    VisitInputs `json:"visit"`
}

// VisitInputs are the raw visit details reported by the caller
type VisitInputs struct {
	IP              string `json:"user_ip_address,omitempty"`
	IPv4            string `json:"ipv4,omitempty"`
	IPv6            string `json:"ipv6,omitempty"`
	Coordinates     string `json:"long_lat,omitempty"`
	CountryCode     string `json:"user_country,omitempty"`
	RegionCode      string `json:"user_region,omitempty"`
	City            string `json:"user_city,omitempty"`
	Timezone        string `json:"timezone,omitempty"`
	TimezoneCountry string `json:"timezone_country,omitempty"` // country code derived from the timezone database
	UserAgent       string `json:"user_agent,omitempty"`
	Platform        string `json:"platform,omitempty"`
	DeviceType      string `json:"device_type,omitempty"`
	Browser         string `json:"browser,omitempty"`
}

// ValidatePasswordRequest represents the body of POST /api/v1/visits/:id/password
type ValidatePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}
