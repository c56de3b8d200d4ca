package model

// Country is the top of the location hierarchy.
type Country struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// State belongs to a country.
type State struct {
	ID        string `json:"id"`
	CountryID string `json:"country_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
}

// City belongs to a state.
type City struct {
	ID      string `json:"id"`
	StateID string `json:"state_id"`
	Name    string `json:"name"`
}

// Site is a ballpark or complex where games are played.
type Site struct {
	ID      string `json:"id"`
	CityID  string `json:"city_id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

// CountryRequest is the payload for get-or-create of a country.
type CountryRequest struct {
	Name string `json:"name" yaml:"name" validate:"required,max=100"`
	Code string `json:"code" yaml:"code" validate:"max=3"`
}

// StateRequest is the payload for get-or-create of a state.
type StateRequest struct {
	CountryID string `json:"country_id" validate:"required,uuid"`
	Name      string `json:"name" validate:"required,max=100"`
	Code      string `json:"code" validate:"max=10"`
}

// CityRequest is the payload for get-or-create of a city.
type CityRequest struct {
	StateID string `json:"state_id" validate:"required,uuid"`
	Name    string `json:"name" validate:"required,max=100"`
}

// SiteRequest is the payload for creating a site.
type SiteRequest struct {
	CityID  string `json:"city_id" validate:"required,uuid"`
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=300"`
}

// LocationImport is the YAML document accepted by the location importer.
type LocationImport struct {
	Countries []CountryImport `yaml:"countries"`
}

// CountryImport is one country in a LocationImport tree.
type CountryImport struct {
	Name   string        `yaml:"name"`
	Code   string        `yaml:"code"`
	States []StateImport `yaml:"states"`
}

// StateImport is one state in a LocationImport tree.
type StateImport struct {
	Name   string       `yaml:"name"`
	Code   string       `yaml:"code"`
	Cities []CityImport `yaml:"cities"`
}

// CityImport is one city in a LocationImport tree.
type CityImport struct {
	Name  string       `yaml:"name"`
	Sites []SiteImport `yaml:"sites"`
}

// SiteImport is one site in a LocationImport tree.
type SiteImport struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// ImportStats counts rows created versus rows that already existed.
type ImportStats struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

// Add records one get-or-create outcome.
func (s *ImportStats) Add(created bool) {
	if created {
		s.Created++
		return
	}
	s.Existing++
}
