package repo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/amadvs/internal/core"
	"example.com/amadvs/internal/platform/password"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
  id            text PRIMARY KEY,
  name          text NOT NULL,
  role          text NOT NULL,
  email         text NOT NULL,
  phone         text NOT NULL DEFAULT '',
  birth_date    text NOT NULL DEFAULT '',
  photo         text NOT NULL DEFAULT '',
  church        text NOT NULL DEFAULT '',
  approved      boolean NOT NULL,
  created_at    timestamptz NOT NULL,
  profile       jsonb,
  password_hash bytea NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx ON users (lower(email));
`

const userColumns = `id, name, role, email, phone, birth_date, photo, church, approved, created_at, profile, password_hash`

// UserPG is the Postgres-backed directory.
type UserPG struct {
	pool *pgxpool.Pool
}

func NewUserPG(pool *pgxpool.Pool) *UserPG {
	return &UserPG{pool: pool}
}

type profileJSON struct {
	Student *core.StudentProfile `json:"student,omitempty"`
	Maestro *core.MaestroProfile `json:"maestro,omitempty"`
}

// Migrate creates the table and inserts seeds whose email is not taken yet.
func (r *UserPG) Migrate(ctx context.Context, seeds []Seed) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return err
	}
	for _, s := range seeds {
		rec, err := s.record()
		if err != nil {
			return err
		}
		if err := r.Insert(ctx, rec); err != nil && !errors.Is(err, core.ErrEmailTaken) {
			return err
		}
	}
	return nil
}

func scanUser(row pgx.Row) (core.UserRecord, error) {
	var (
		rec     core.UserRecord
		role    string
		profile []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&role,
		&rec.Email,
		&rec.Phone,
		&rec.BirthDate,
		&rec.Photo,
		&rec.Church,
		&rec.Approved,
		&rec.CreatedAt,
		&profile,
		&rec.Hash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.UserRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.UserRecord{}, err
	}
	rec.Role = core.Role(role)
	if len(profile) > 0 {
		var p profileJSON
		if err := json.Unmarshal(profile, &p); err != nil {
			return core.UserRecord{}, err
		}
		rec.Student, rec.Maestro = p.Student, p.Maestro
	}
	return rec, nil
}

func (r *UserPG) ByEmail(ctx context.Context, email string) (core.UserRecord, error) {
	return scanUser(r.pool.QueryRow(ctx, `
    SELECT `+userColumns+`
    FROM users
    WHERE lower(email) = $1
  `, core.NormalizeEmail(email)))
}

func (r *UserPG) ByID(ctx context.Context, id string) (core.UserRecord, error) {
	return scanUser(r.pool.QueryRow(ctx, `
    SELECT `+userColumns+`
    FROM users
    WHERE id = $1
  `, id))
}

func (r *UserPG) Insert(ctx context.Context, rec core.UserRecord) error {
	var profile []byte
	if rec.Student != nil || rec.Maestro != nil {
		var err error
		profile, err = json.Marshal(profileJSON{Student: rec.Student, Maestro: rec.Maestro})
		if err != nil {
			return err
		}
	}
	_, err := r.pool.Exec(ctx, `
    INSERT INTO users (`+userColumns+`)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
  `, rec.ID, rec.Name, string(rec.Role), rec.Email, rec.Phone, rec.BirthDate, rec.Photo, rec.Church, rec.Approved, rec.CreatedAt, profile, rec.Hash)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return core.ErrEmailTaken
	}
	return err
}

func (r *UserPG) CheckPassword(ctx context.Context, email, pass string) (core.UserRecord, error) {
	u, err := r.ByEmail(ctx, email)
	if err != nil {
		return core.UserRecord{}, err
	}
	if password.Check(u.Hash, pass) != nil {
		return core.UserRecord{}, core.ErrBadCreds
	}
	return u, nil
}

func (r *UserPG) Approve(ctx context.Context, id string) (core.User, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET approved = true WHERE id = $1`, id)
	if err != nil {
		return core.User{}, err
	}
	if tag.RowsAffected() == 0 {
		return core.User{}, core.ErrNotFound
	}
	rec, err := r.ByID(ctx, id)
	return rec.User, err
}

func (r *UserPG) Pending(ctx context.Context) ([]core.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE NOT approved ORDER BY created_at, id`)
}

func (r *UserPG) List(ctx context.Context) ([]core.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
}

func (r *UserPG) list(ctx context.Context, query string) ([]core.User, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.User
	for rows.Next() {
		rec, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec.User)
	}
	return out, rows.Err()
}
