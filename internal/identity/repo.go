package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventure/ticketing/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const userColumns = `id, name, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || postgres.IsInvalidUUID(err) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *Repo) Create(ctx context.Context, u User) (User, error) {
	q := postgres.From(ctx, r.DB)
	row := q.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role)

	created, err := scanUser(row)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return created, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (User, error) {
	q := postgres.From(ctx, r.DB)
	return scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	q := postgres.From(ctx, r.DB)
	return scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *Repo) Update(ctx context.Context, u User) (User, error) {
	q := postgres.From(ctx, r.DB)
	row := q.QueryRow(ctx, `
		UPDATE users SET name = $2, email = $3, role = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.Role)
	return scanUser(row)
}

func (r *Repo) SetActive(ctx context.Context, id string, active bool) error {
	q := postgres.From(ctx, r.DB)
	ct, err := q.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		if postgres.IsInvalidUUID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("set active: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) ListByRole(ctx context.Context, role Role) ([]User, error) {
	q := postgres.From(ctx, r.DB)
	rows, err := q.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (r *Repo) ListAll(ctx context.Context) ([]User, error) {
	q := postgres.From(ctx, r.DB)
	rows, err := q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
