package models

import "time"

// ClickCountResponse is the non-expired visit count of one link
type ClickCountResponse struct {
	Destination string `json:"destination"`
	Code        string `json:"code"`
	Clicks      int64  `json:"clicks"`
}

// LinkClicks is one row of the all-links click report
type LinkClicks struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Destination string `json:"destination"`
	Clicks      int64  `json:"clicks"`
}

type AllClicksResponse struct {
	Data       []LinkClicks `json:"data"`
	TotalCount int          `json:"total_count"`
}

// GeoBreakdownResponse groups visits by country, then by (state, city)
type GeoBreakdownResponse struct {
	Destination string       `json:"destination"`
	Code        string       `json:"code"`
	GeoData     []CountryGeo `json:"geo_data"`
}

type CountryGeo struct {
	Country string      `json:"country"`
	Total   int64       `json:"total"`
	Details []GeoDetail `json:"details"`
}

type GeoDetail struct {
	State string `json:"state"`
	City  string `json:"city"`
	Count int64  `json:"count"`
}

// DeviceBreakdownResponse groups visits by country, then location, then device
type DeviceBreakdownResponse struct {
	Destination string           `json:"destination"`
	Code        string           `json:"code"`
	DeviceData  []CountryDevices `json:"device_data"`
}

type CountryDevices struct {
	Country string            `json:"country"`
	Details []LocationDevices `json:"details"`
}

type LocationDevices struct {
	State   string        `json:"state"`
	City    string        `json:"city"`
	Total   int64         `json:"total"`
	Devices []DeviceCount `json:"devices"`
}

type DeviceCount struct {
	Platform string `json:"platform"` // device type
	OS       string `json:"os"`
	Browser  string `json:"browser"`
	Count    int64  `json:"count"`
}

// SummaryResponse bundles the three per-link reports
type SummaryResponse struct {
	Destination string           `json:"destination"`
	Code        string           `json:"code"`
	Clicks      int64            `json:"clicks"`
	GeoData     []CountryGeo     `json:"geo_data"`
	DeviceData  []CountryDevices `json:"device_data"`
}

// VisitFilterQuery is bound from the query string of GET /api/v1/analytics/visits.
// StartDate and EndDate are unix milliseconds.
type VisitFilterQuery struct {
	Code       string `form:"code"`
	Country    string `form:"country"`
	State      string `form:"state"`
	OS         string `form:"os"`
	DeviceType string `form:"deviceType"`
	Browser    string `form:"browser"`
	StartDate  *int64 `form:"startDate"`
	EndDate    *int64 `form:"endDate"`
}

// VisitFilter is the validated filter handed to the visit repository
type VisitFilter struct {
	LinkID     *string
	LinkIDs    []string // non-nil restricts to these links, an empty list matches nothing
	Expired    *bool
	Country    string
	State      string
	OS         string
	DeviceType string
	Browser    string
	From       *time.Time
	To         *time.Time
}
