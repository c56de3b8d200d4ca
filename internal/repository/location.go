package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// ─── Get-or-create ────────────────────────────────────────────────────────────
//
// Each Ensure* method inserts with ON CONFLICT DO NOTHING and falls back to a
// lookup when the row already existed, so repeated imports are idempotent.
// The bool result reports whether the row was created by this call.

// EnsureCountry returns the country named name, creating it if needed.
func (q *Queries) EnsureCountry(ctx context.Context, name, code string) (*model.Country, bool, error) {
	var c model.Country
	err := q.db.QueryRow(ctx,
		`INSERT INTO countries (id, name, code) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING
		 RETURNING id, name, code`,
		uuid.New().String(), name, code,
	).Scan(&c.ID, &c.Name, &c.Code)
	if err == nil {
		return &c, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrap("insert country", err)
	}

	err = q.db.QueryRow(ctx,
		`SELECT id, name, code FROM countries WHERE name = $1`, name,
	).Scan(&c.ID, &c.Name, &c.Code)
	if err != nil {
		return nil, false, wrap("get country", err)
	}
	return &c, false, nil
}

// EnsureState returns the state named name within countryID, creating it if needed.
func (q *Queries) EnsureState(ctx context.Context, countryID, name, code string) (*model.State, bool, error) {
	var s model.State
	err := q.db.QueryRow(ctx,
		`INSERT INTO states (id, country_id, name, code) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (country_id, name) DO NOTHING
		 RETURNING id, country_id, name, code`,
		uuid.New().String(), countryID, name, code,
	).Scan(&s.ID, &s.CountryID, &s.Name, &s.Code)
	if err == nil {
		return &s, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrap("insert state", err)
	}

	err = q.db.QueryRow(ctx,
		`SELECT id, country_id, name, code FROM states WHERE country_id = $1 AND name = $2`,
		countryID, name,
	).Scan(&s.ID, &s.CountryID, &s.Name, &s.Code)
	if err != nil {
		return nil, false, wrap("get state", err)
	}
	return &s, false, nil
}

// EnsureCity returns the city named name within stateID, creating it if needed.
func (q *Queries) EnsureCity(ctx context.Context, stateID, name string) (*model.City, bool, error) {
	var c model.City
	err := q.db.QueryRow(ctx,
		`INSERT INTO cities (id, state_id, name) VALUES ($1, $2, $3)
		 ON CONFLICT (state_id, name) DO NOTHING
		 RETURNING id, state_id, name`,
		uuid.New().String(), stateID, name,
	).Scan(&c.ID, &c.StateID, &c.Name)
	if err == nil {
		return &c, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrap("insert city", err)
	}

	err = q.db.QueryRow(ctx,
		`SELECT id, state_id, name FROM cities WHERE state_id = $1 AND name = $2`,
		stateID, name,
	).Scan(&c.ID, &c.StateID, &c.Name)
	if err != nil {
		return nil, false, wrap("get city", err)
	}
	return &c, false, nil
}

// EnsureSite returns the site named name within cityID, creating it if needed.
func (q *Queries) EnsureSite(ctx context.Context, cityID, name, address string) (*model.Site, bool, error) {
	var s model.Site
	err := q.db.QueryRow(ctx,
		`INSERT INTO sites (id, city_id, name, address, active) VALUES ($1, $2, $3, $4, TRUE)
		 ON CONFLICT (city_id, name) DO NOTHING
		 RETURNING id, city_id, name, address, active`,
		uuid.New().String(), cityID, name, address,
	).Scan(&s.ID, &s.CityID, &s.Name, &s.Address, &s.Active)
	if err == nil {
		return &s, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrap("insert site", err)
	}

	err = q.db.QueryRow(ctx,
		`SELECT id, city_id, name, address, active FROM sites WHERE city_id = $1 AND name = $2`,
		cityID, name,
	).Scan(&s.ID, &s.CityID, &s.Name, &s.Address, &s.Active)
	if err != nil {
		return nil, false, wrap("get site", err)
	}
	return &s, false, nil
}

// ─── Reads ────────────────────────────────────────────────────────────────────

// ListCountries returns all countries by name.
func (q *Queries) ListCountries(ctx context.Context) ([]model.Country, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, code FROM countries ORDER BY name`)
	if err != nil {
		return nil, wrap("list countries", err)
	}
	out, err := collect(rows, func(row pgx.Row) (model.Country, error) {
		var c model.Country
		return c, row.Scan(&c.ID, &c.Name, &c.Code)
	})
	return out, wrap("scan country", err)
}

// ListStates returns the states of a country by name.
func (q *Queries) ListStates(ctx context.Context, countryID string) ([]model.State, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, country_id, name, code FROM states WHERE country_id = $1 ORDER BY name`, countryID)
	if err != nil {
		return nil, wrap("list states", err)
	}
	out, err := collect(rows, func(row pgx.Row) (model.State, error) {
		var s model.State
		return s, row.Scan(&s.ID, &s.CountryID, &s.Name, &s.Code)
	})
	return out, wrap("scan state", err)
}

// ListCities returns the cities of a state by name.
func (q *Queries) ListCities(ctx context.Context, stateID string) ([]model.City, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, state_id, name FROM cities WHERE state_id = $1 ORDER BY name`, stateID)
	if err != nil {
		return nil, wrap("list cities", err)
	}
	out, err := collect(rows, func(row pgx.Row) (model.City, error) {
		var c model.City
		return c, row.Scan(&c.ID, &c.StateID, &c.Name)
	})
	return out, wrap("scan city", err)
}

// ListSites returns the sites of a city by name.
func (q *Queries) ListSites(ctx context.Context, cityID string) ([]model.Site, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, city_id, name, address, active FROM sites WHERE city_id = $1 ORDER BY name`, cityID)
	if err != nil {
		return nil, wrap("list sites", err)
	}
	out, err := collect(rows, func(row pgx.Row) (model.Site, error) {
		var s model.Site
		return s, row.Scan(&s.ID, &s.CityID, &s.Name, &s.Address, &s.Active)
	})
	return out, wrap("scan site", err)
}

// GetCountry returns a country by id or ErrNotFound.
func (q *Queries) GetCountry(ctx context.Context, id string) (*model.Country, error) {
	var c model.Country
	err := q.db.QueryRow(ctx, `SELECT id, name, code FROM countries WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Code)
	if err != nil {
		return nil, wrap("get country", err)
	}
	return &c, nil
}

// GetState returns a state by id or ErrNotFound.
func (q *Queries) GetState(ctx context.Context, id string) (*model.State, error) {
	var s model.State
	err := q.db.QueryRow(ctx, `SELECT id, country_id, name, code FROM states WHERE id = $1`, id).
		Scan(&s.ID, &s.CountryID, &s.Name, &s.Code)
	if err != nil {
		return nil, wrap("get state", err)
	}
	return &s, nil
}

// GetCity returns a city by id or ErrNotFound.
func (q *Queries) GetCity(ctx context.Context, id string) (*model.City, error) {
	var c model.City
	err := q.db.QueryRow(ctx, `SELECT id, state_id, name FROM cities WHERE id = $1`, id).
		Scan(&c.ID, &c.StateID, &c.Name)
	if err != nil {
		return nil, wrap("get city", err)
	}
	return &c, nil
}

// GetSite returns a site by id or ErrNotFound.
func (q *Queries) GetSite(ctx context.Context, id string) (*model.Site, error) {
	var s model.Site
	err := q.db.QueryRow(ctx, `SELECT id, city_id, name, address, active FROM sites WHERE id = $1`, id).
		Scan(&s.ID, &s.CityID, &s.Name, &s.Address, &s.Active)
	if err != nil {
		return nil, wrap("get site", err)
	}
	return &s, nil
}

// CreateSite inserts a site. A duplicate name within the city yields ErrConflict.
func (q *Queries) CreateSite(ctx context.Context, s *model.Site) (*model.Site, error) {
	s.ID = uuid.New().String()
	_, err := q.db.Exec(ctx,
		`INSERT INTO sites (id, city_id, name, address, active) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.CityID, s.Name, s.Address, s.Active,
	)
	if err != nil {
		return nil, wrap("insert site", err)
	}
	return s, nil
}
