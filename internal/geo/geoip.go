package geo

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Location holds the raw geo codes resolved for an IP address
type Location struct {
	CountryCode string
	RegionCode  string
	City        string
	Timezone    string
	Coordinates string // "longitude,latitude"
}

// IPLocator resolves IP addresses with a MaxMind GeoLite2-City database
type IPLocator struct {
	reader *geoip2.Reader
}

func OpenIPLocator(path string) (*IPLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	return &IPLocator{reader: reader}, nil
}

// Locate returns the location of ip. The first address of a forwarded-for list is used.
func (l *IPLocator) Locate(ip string) (Location, bool) {
	if first, _, found := strings.Cut(ip, ","); found {
		ip = first
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return Location{}, false
	}

	record, err := l.reader.City(parsed)
	if err != nil || record.Country.IsoCode == "" {
		return Location{}, false
	}

	loc := Location{
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		Timezone:    record.Location.TimeZone,
	}
	if len(record.Subdivisions) > 0 {
		loc.RegionCode = record.Subdivisions[0].IsoCode
	}
	if record.Location.Latitude != 0 || record.Location.Longitude != 0 {
		loc.Coordinates = strconv.FormatFloat(record.Location.Longitude, 'f', 4, 64) + "," +
			strconv.FormatFloat(record.Location.Latitude, 'f', 4, 64)
	}
	return loc, true
}

func (l *IPLocator) Close() error {
	return l.reader.Close()
}
