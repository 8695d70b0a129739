package service

import (
	"cmp"
	"slices"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/models"
)

// The aggregations below are pure functions of the visits they are given.
// Callers scope the input (non-expired or expired only). Output is ordered
// by country, state, city and then device fields; empty input gives an empty,
// non-nil result.

type locationKey struct {
	country, state, city string
}

type deviceKey struct {
	location             locationKey
	platform, os, browser string
}

func locationOf(v *entities.Visit) locationKey {
	return locationKey{country: v.Geo.Country, state: v.Geo.State, city: v.Geo.City}
}

// GeoBreakdown groups visits by country and then by (state, city)
func GeoBreakdown(visits []*entities.Visit) []models.CountryGeo {
	counts := make(map[locationKey]int64)
	for _, v := range visits {
		counts[locationOf(v)]++
	}

	byCountry := make(map[string]*models.CountryGeo)
	for key, count := range counts {
		c, ok := byCountry[key.country]
		if !ok {
			c = &models.CountryGeo{Country: key.country}
			byCountry[key.country] = c
		}
		c.Total += count
		c.Details = append(c.Details, models.GeoDetail{State: key.state, City: key.city, Count: count})
	}

	result := make([]models.CountryGeo, 0, len(byCountry))
	for _, c := range byCountry {
		slices.SortFunc(c.Details, func(a, b models.GeoDetail) int {
			return cmp.Or(cmp.Compare(a.State, b.State), cmp.Compare(a.City, b.City))
		})
		result = append(result, *c)
	}
	slices.SortFunc(result, func(a, b models.CountryGeo) int {
		return cmp.Compare(a.Country, b.Country)
	})
	return result
}

// DeviceBreakdown groups visits by (country, state, city, device type, os, browser),
// folds them into per-location blocks and then into countries
func DeviceBreakdown(visits []*entities.Visit) []models.CountryDevices {
	counts := make(map[deviceKey]int64)
	for _, v := range visits {
		counts[deviceKey{
			location: locationOf(v),
			platform: v.Device.DeviceType,
			os:       v.Device.OS,
			browser:  v.Device.Browser,
		}]++
	}

	byLocation := make(map[locationKey]*models.LocationDevices)
	for key, count := range counts {
		loc, ok := byLocation[key.location]
		if !ok {
			loc = &models.LocationDevices{State: key.location.state, City: key.location.city}
			byLocation[key.location] = loc
		}
		loc.Total += count
		loc.Devices = append(loc.Devices, models.DeviceCount{
			Platform: key.platform,
			OS:       key.os,
			Browser:  key.browser,
			Count:    count,
		})
	}

	byCountry := make(map[string]*models.CountryDevices)
	for key, loc := range byLocation {
		slices.SortFunc(loc.Devices, func(a, b models.DeviceCount) int {
			return cmp.Or(
				cmp.Compare(a.Platform, b.Platform),
				cmp.Compare(a.OS, b.OS),
				cmp.Compare(a.Browser, b.Browser),
			)
		})
		c, ok := byCountry[key.country]
		if !ok {
			c = &models.CountryDevices{Country: key.country}
			byCountry[key.country] = c
		}
		c.Details = append(c.Details, *loc)
	}

	result := make([]models.CountryDevices, 0, len(byCountry))
	for _, c := range byCountry {
		slices.SortFunc(c.Details, func(a, b models.LocationDevices) int {
			return cmp.Or(cmp.Compare(a.State, b.State), cmp.Compare(a.City, b.City))
		})
		result = append(result, *c)
	}
	slices.SortFunc(result, func(a, b models.CountryDevices) int {
		return cmp.Compare(a.Country, b.Country)
	})
	return result
}
