package geo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

//go:embed subdivisions.json
var subdivisionsJSON []byte

// NameLookup turns ISO country and subdivision codes into English display names.
// Every lookup falls back to the code it was given.
type NameLookup struct {
	regions      display.Namer
	subdivisions map[string]map[string]string // country code -> region code -> name
}

func NewNameLookup() (*NameLookup, error) {
	var subdivisions map[string]map[string]string
	if err := json.Unmarshal(subdivisionsJSON, &subdivisions); err != nil {
		return nil, fmt.Errorf("failed to load subdivision names: %w", err)
	}
	return &NameLookup{
		regions:      display.English.Regions(),
		subdivisions: subdivisions,
	}, nil
}

// CountryName returns the English name for an ISO 3166-1 alpha-2 code
func (l *NameLookup) CountryName(code string) string {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != 2 {
		return code
	}
	region, err := language.ParseRegion(trimmed)
	if err != nil {
		return code
	}
	if name := l.regions.Name(region); name != "" && name != "Unknown Region" {
		return name
	}
	return code
}

// StateName returns the name of a subdivision; regionCode may carry the "US-" style prefix
func (l *NameLookup) StateName(regionCode, countryCode string) string {
	country := strings.ToUpper(strings.TrimSpace(countryCode))
	region := strings.ToUpper(strings.TrimSpace(regionCode))
	region = strings.TrimPrefix(region, country+"-")

	if name, ok := l.subdivisions[country][region]; ok {
		return name
	}
	return regionCode
}
