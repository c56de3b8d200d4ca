package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// LocationStore is the persistence the location service needs.
type LocationStore interface {
	EnsureCountry(ctx context.Context, name, code string) (*model.Country, bool, error)
	EnsureState(ctx context.Context, countryID, name, code string) (*model.State, bool, error)
	EnsureCity(ctx context.Context, stateID, name string) (*model.City, bool, error)
	EnsureSite(ctx context.Context, cityID, name, address string) (*model.Site, bool, error)
	CreateSite(ctx context.Context, s *model.Site) (*model.Site, error)

	GetCountry(ctx context.Context, id string) (*model.Country, error)
	GetState(ctx context.Context, id string) (*model.State, error)
	GetCity(ctx context.Context, id string) (*model.City, error)

	ListCountries(ctx context.Context) ([]model.Country, error)
	ListStates(ctx context.Context, countryID string) ([]model.State, error)
	ListCities(ctx context.Context, stateID string) ([]model.City, error)
	ListSites(ctx context.Context, cityID string) ([]model.Site, error)
}

// LocationService manages the country → state → city → site hierarchy.
// Every Ensure* call is an idempotent get-or-create on the normalised name.
type LocationService struct {
	log   *slog.Logger
	store LocationStore
}

// NewLocationService constructs a LocationService.
func NewLocationService(log *slog.Logger, store LocationStore) *LocationService {
	return &LocationService{log: log, store: store}
}

// NormalizeName collapses whitespace, applies NFC, and title-cases s, so
// "  new   YORK " and "New York" resolve to the same row.
func NormalizeName(s string) string {
	s = strings.Join(strings.Fields(norm.NFC.String(s)), " ")
	return cases.Title(language.Und).String(s)
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// EnsureCountry returns the country, creating it on first use.
func (s *LocationService) EnsureCountry(ctx context.Context, req model.CountryRequest) (*model.Country, bool, error) {
	req.Name = NormalizeName(req.Name)
	req.Code = normalizeCode(req.Code)
	if err := validateStruct(req); err != nil {
		return nil, false, err
	}
	return s.store.EnsureCountry(ctx, req.Name, req.Code)
}

// EnsureState returns the state, creating it on first use.
func (s *LocationService) EnsureState(ctx context.Context, req model.StateRequest) (*model.State, bool, error) {
	req.Name = NormalizeName(req.Name)
	req.Code = normalizeCode(req.Code)
	if err := validateStruct(req); err != nil {
		return nil, false, err
	}
	if _, err := s.store.GetCountry(ctx, req.CountryID); err != nil {
		return nil, false, err
	}
	return s.store.EnsureState(ctx, req.CountryID, req.Name, req.Code)
}

// EnsureCity returns the city, creating it on first use.
func (s *LocationService) EnsureCity(ctx context.Context, req model.CityRequest) (*model.City, bool, error) {
	req.Name = NormalizeName(req.Name)
	if err := validateStruct(req); err != nil {
		return nil, false, err
	}
	if _, err := s.store.GetState(ctx, req.StateID); err != nil {
		return nil, false, err
	}
	return s.store.EnsureCity(ctx, req.StateID, req.Name)
}

// CreateSite adds a site to a city. A duplicate name within the city conflicts.
func (s *LocationService) CreateSite(ctx context.Context, req model.SiteRequest) (*model.Site, error) {
	req.Name = strings.Join(strings.Fields(req.Name), " ")
	req.Address = strings.TrimSpace(req.Address)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCity(ctx, req.CityID); err != nil {
		return nil, err
	}
	return s.store.CreateSite(ctx, &model.Site{CityID: req.CityID, Name: req.Name, Address: req.Address, Active: true})
}

// ListCountries returns every country.
func (s *LocationService) ListCountries(ctx context.Context) ([]model.Country, error) {
	return s.store.ListCountries(ctx)
}

// ListStates returns the states of a country.
func (s *LocationService) ListStates(ctx context.Context, countryID string) ([]model.State, error) {
	return s.store.ListStates(ctx, countryID)
}

// ListCities returns the cities of a state.
func (s *LocationService) ListCities(ctx context.Context, stateID string) ([]model.City, error) {
	return s.store.ListCities(ctx, stateID)
}

// ListSites returns the sites of a city.
func (s *LocationService) ListSites(ctx context.Context, cityID string) ([]model.Site, error) {
	return s.store.ListSites(ctx, cityID)
}

// ImportLocations reads a YAML location tree from r and applies it with
// get-or-create semantics. Re-running the same file creates nothing.
func (s *LocationService) ImportLocations(ctx context.Context, r io.Reader) (model.ImportStats, error) {
	const op = "service.Location.ImportLocations"
	log := s.log.With(slog.String("op", op))

	var doc model.LocationImport
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return model.ImportStats{}, fmt.Errorf("%w: parse locations: %v", ErrInvalidInput, err)
	}

	var stats model.ImportStats
	for _, c := range doc.Countries {
		country, created, err := s.EnsureCountry(ctx, model.CountryRequest{Name: c.Name, Code: c.Code})
		if err != nil {
			return stats, fmt.Errorf("country %q: %w", c.Name, err)
		}
		stats.Add(created)

		for _, st := range c.States {
			state, created, err := s.EnsureState(ctx, model.StateRequest{CountryID: country.ID, Name: st.Name, Code: st.Code})
			if err != nil {
				return stats, fmt.Errorf("state %q: %w", st.Name, err)
			}
			stats.Add(created)

			for _, ci := range st.Cities {
				city, created, err := s.EnsureCity(ctx, model.CityRequest{StateID: state.ID, Name: ci.Name})
				if err != nil {
					return stats, fmt.Errorf("city %q: %w", ci.Name, err)
				}
				stats.Add(created)

				for _, site := range ci.Sites {
					name := strings.Join(strings.Fields(site.Name), " ")
					if name == "" {
						return stats, invalid("site in %s has no name", city.Name)
					}
					_, created, err := s.store.EnsureSite(ctx, city.ID, name, strings.TrimSpace(site.Address))
					if err != nil {
						return stats, fmt.Errorf("site %q: %w", site.Name, err)
					}
					stats.Add(created)
				}
			}
		}
	}

	log.Info("locations imported", slog.Int("created", stats.Created), slog.Int("existing", stats.Existing))
	return stats, nil
}
