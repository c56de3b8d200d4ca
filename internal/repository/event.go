package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

// ─── Event types ──────────────────────────────────────────────────────────────

// CreateEventType inserts an event type. Duplicate names yield ErrConflict.
func (q *Queries) CreateEventType(ctx context.Context, name string) (*model.EventType, error) {
	t := &model.EventType{ID: uuid.New().String(), Name: name}
	_, err := q.db.Exec(ctx, `INSERT INTO event_types (id, name) VALUES ($1, $2)`, t.ID, t.Name)
	if err != nil {
		return nil, wrap("insert event type", err)
	}
	return t, nil
}

// ListEventTypes returns every event type by name.
func (q *Queries) ListEventTypes(ctx context.Context) ([]model.EventType, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name FROM event_types ORDER BY name`)
	if err != nil {
		return nil, wrap("list event types", err)
	}
	out, err := collect(rows, func(row pgx.Row) (model.EventType, error) {
		var t model.EventType
		return t, row.Scan(&t.ID, &t.Name)
	})
	return out, wrap("scan event type", err)
}

// ─── Divisions ────────────────────────────────────────────────────────────────

func scanDivision(row pgx.Row) (model.Division, error) {
	var d model.Division
	return d, row.Scan(&d.ID, &d.Name, &d.AgeGroup, &d.Active)
}

// CreateDivision inserts an active division.
func (q *Queries) CreateDivision(ctx context.Context, d *model.Division) (*model.Division, error) {
	d.ID = uuid.New().String()
	_, err := q.db.Exec(ctx,
		`INSERT INTO divisions (id, name, age_group, active) VALUES ($1, $2, $3, $4)`,
		d.ID, d.Name, d.AgeGroup, d.Active,
	)
	if err != nil {
		return nil, wrap("insert division", err)
	}
	return d, nil
}

// SetDivisionActive toggles a division and returns the updated row.
func (q *Queries) SetDivisionActive(ctx context.Context, id string, active bool) (*model.Division, error) {
	d, err := scanDivision(q.db.QueryRow(ctx,
		`UPDATE divisions SET active = $2 WHERE id = $1
		 RETURNING id, name, age_group, active`,
		id, active,
	))
	if err != nil {
		return nil, wrap("update division", err)
	}
	return &d, nil
}

// ListDivisions returns divisions by name, optionally only the active ones.
func (q *Queries) ListDivisions(ctx context.Context, activeOnly bool) ([]model.Division, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, name, age_group, active FROM divisions
		 WHERE active OR NOT $1
		 ORDER BY name`,
		activeOnly,
	)
	if err != nil {
		return nil, wrap("list divisions", err)
	}
	out, err := collect(rows, scanDivision)
	return out, wrap("scan division", err)
}

// GetDivisionsByIDs returns the divisions among ids that exist.
func (q *Queries) GetDivisionsByIDs(ctx context.Context, ids []string) ([]model.Division, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT id, name, age_group, active FROM divisions WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, wrap("get divisions", err)
	}
	out, err := collect(rows, scanDivision)
	return out, wrap("scan division", err)
}

// ─── Contacts ─────────────────────────────────────────────────────────────────

func scanContact(row pgx.Row) (model.Contact, error) {
	var c model.Contact
	return c, row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Active)
}

// CreateContact inserts an event contact.
func (q *Queries) CreateContact(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	c.ID = uuid.New().String()
	_, err := q.db.Exec(ctx,
		`INSERT INTO contacts (id, name, email, phone, active) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Email, c.Phone, c.Active,
	)
	if err != nil {
		return nil, wrap("insert contact", err)
	}
	return c, nil
}

// ListContacts returns every contact by name.
func (q *Queries) ListContacts(ctx context.Context) ([]model.Contact, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, email, phone, active FROM contacts ORDER BY name`)
	if err != nil {
		return nil, wrap("list contacts", err)
	}
	out, err := collect(rows, scanContact)
	return out, wrap("scan contact", err)
}

// GetContactsByIDs returns the contacts among ids that exist.
func (q *Queries) GetContactsByIDs(ctx context.Context, ids []string) ([]model.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT id, name, email, phone, active FROM contacts WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, wrap("get contacts", err)
	}
	out, err := collect(rows, scanContact)
	return out, wrap("scan contact", err)
}

// ─── Events ───────────────────────────────────────────────────────────────────

// eventColumns selects an event row plus its link sets as text arrays.
const eventColumns = `e.id, e.title, e.slug, e.event_type_id, e.site_id, e.city_id,
	e.start_date, e.end_date, e.registration_deadline, e.entry_fee_cents, e.status,
	e.description, e.created_at, e.updated_at,
	COALESCE((SELECT array_agg(division_id::text ORDER BY division_id) FROM event_divisions WHERE event_id = e.id), '{}'),
	COALESCE((SELECT array_agg(hotel_id::text ORDER BY hotel_id) FROM event_hotels WHERE event_id = e.id), '{}'),
	COALESCE((SELECT array_agg(contact_id::text ORDER BY contact_id) FROM event_contacts WHERE event_id = e.id), '{}')`

func scanEvent(row pgx.Row) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Slug, &e.EventTypeID, &e.SiteID, &e.CityID,
		&e.StartDate, &e.EndDate, &e.RegistrationDeadline, &e.EntryFeeCents, &e.Status,
		&e.Description, &e.CreatedAt, &e.UpdatedAt,
		&e.DivisionIDs, &e.HotelIDs, &e.ContactIDs)
	return e, err
}

// CreateEvent inserts an event together with its division, hotel, and
// contact links. A duplicate slug yields ErrConflict.
func (q *Queries) CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt

	err := q.inTx(ctx, func(tx *Queries) error {
		_, err := tx.db.Exec(ctx,
			`INSERT INTO events (id, title, slug, event_type_id, site_id, city_id, start_date, end_date,
			                     registration_deadline, entry_fee_cents, status, description, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			e.ID, e.Title, e.Slug, e.EventTypeID, e.SiteID, e.CityID, e.StartDate, e.EndDate,
			e.RegistrationDeadline, e.EntryFeeCents, string(e.Status), e.Description, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return wrap("insert event", err)
		}
		return tx.replaceEventLinks(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEvent overwrites the event row and replaces its link sets.
func (q *Queries) UpdateEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	e.UpdatedAt = time.Now().UTC()

	err := q.inTx(ctx, func(tx *Queries) error {
		tag, err := tx.db.Exec(ctx,
			`UPDATE events
			 SET title = $2, slug = $3, event_type_id = $4, site_id = $5, city_id = $6,
			     start_date = $7, end_date = $8, registration_deadline = $9, entry_fee_cents = $10,
			     status = $11, description = $12, updated_at = $13
			 WHERE id = $1`,
			e.ID, e.Title, e.Slug, e.EventTypeID, e.SiteID, e.CityID, e.StartDate, e.EndDate,
			e.RegistrationDeadline, e.EntryFeeCents, string(e.Status), e.Description, e.UpdatedAt,
		)
		if err != nil {
			return wrap("update event", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return tx.replaceEventLinks(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return q.GetEvent(ctx, e.ID)
}

// replaceEventLinks rewrites the three many-to-many link tables of e.
func (q *Queries) replaceEventLinks(ctx context.Context, e *model.Event) error {
	links := []struct {
		table, column string
		ids           []string
	}{
		{"event_divisions", "division_id", e.DivisionIDs},
		{"event_hotels", "hotel_id", e.HotelIDs},
		{"event_contacts", "contact_id", e.ContactIDs},
	}
	for _, l := range links {
		if _, err := q.db.Exec(ctx, `DELETE FROM `+l.table+` WHERE event_id = $1`, e.ID); err != nil {
			return wrap("clear "+l.table, err)
		}
		if len(l.ids) == 0 {
			continue
		}
		_, err := q.db.Exec(ctx,
			`INSERT INTO `+l.table+` (event_id, `+l.column+`)
			 SELECT $1, unnest($2::uuid[])
			 ON CONFLICT DO NOTHING`,
			e.ID, l.ids,
		)
		if err != nil {
			return wrap("link "+l.table, err)
		}
	}
	return nil
}

// GetEvent returns an event with its link sets or ErrNotFound.
func (q *Queries) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(q.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id))
	if err != nil {
		return nil, wrap("get event", err)
	}
	return &e, nil
}

// ListEvents returns events matching f ordered by start date.
func (q *Queries) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if f.EventTypeID != "" {
		args = append(args, f.EventTypeID)
		where = append(where, fmt.Sprintf("e.event_type_id = $%d", len(args)))
	}
	if f.UpcomingAt != nil {
		args = append(args, *f.UpcomingAt)
		where = append(where, fmt.Sprintf("e.end_date >= $%d::date", len(args)))
	}

	sql := `SELECT ` + eventColumns + ` FROM events e`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY e.start_date, e.title`

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrap("list events", err)
	}
	out, err := collect(rows, scanEvent)
	return out, wrap("scan event", err)
}

// DeleteEvent removes an event. Events with orders cannot be deleted and
// yield ErrInvalidReference.
func (q *Queries) DeleteEvent(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return wrap("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
