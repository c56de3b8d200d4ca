package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/nsc-international/internal/model"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone, is_staff, is_active, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.IsStaff, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user. A duplicate email yields ErrConflict.
func (q *Queries) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	u.ID = uuid.New().String()
	u.CreatedAt = time.Now().UTC()

	_, err := q.db.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, phone, is_staff, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.IsStaff, u.IsActive, u.CreatedAt,
	)
	if err != nil {
		return nil, wrap("insert user", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by normalised email or ErrNotFound.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, wrap("get user by email", err)
	}
	return u, nil
}

// GetUser returns a user by id or ErrNotFound.
func (q *Queries) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get user", err)
	}
	return u, nil
}

const playerColumns = `id, parent_id, first_name, last_name, birth_date, position, jersey_number, active, created_at`

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(&p.ID, &p.ParentID, &p.FirstName, &p.LastName, &p.BirthDate, &p.Position, &p.JerseyNumber, &p.Active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePlayer inserts a new player under p.ParentID.
func (q *Queries) CreatePlayer(ctx context.Context, p *model.Player) (*model.Player, error) {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()

	_, err := q.db.Exec(ctx,
		`INSERT INTO players (id, parent_id, first_name, last_name, birth_date, position, jersey_number, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.ParentID, p.FirstName, p.LastName, p.BirthDate, p.Position, p.JerseyNumber, p.Active, p.CreatedAt,
	)
	if err != nil {
		return nil, wrap("insert player", err)
	}
	return p, nil
}

// UpdatePlayer overwrites the mutable player fields.
func (q *Queries) UpdatePlayer(ctx context.Context, p *model.Player) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE players
		 SET first_name = $2, last_name = $3, birth_date = $4, position = $5, jersey_number = $6, active = $7
		 WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.BirthDate, p.Position, p.JerseyNumber, p.Active,
	)
	if err != nil {
		return wrap("update player", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPlayer returns a player by id or ErrNotFound.
func (q *Queries) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	p, err := scanPlayer(q.db.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get player", err)
	}
	return p, nil
}

// ListPlayersByParent returns a parent's players ordered by name.
func (q *Queries) ListPlayersByParent(ctx context.Context, parentID string) ([]model.Player, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+playerColumns+`
		 FROM players
		 WHERE parent_id = $1
		 ORDER BY first_name, last_name`,
		parentID,
	)
	if err != nil {
		return nil, wrap("list players", err)
	}
	players, err := collect(rows, func(row pgx.Row) (model.Player, error) {
		p, err := scanPlayer(row)
		if err != nil {
			return model.Player{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, wrap("scan player", err)
	}
	return players, nil
}
