package user

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// notFound maps a missing row, or an id that is not a valid uuid, to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return ErrNotFound
	}
	return err
}

const userColumns = `id, full_name, national_id, email, password_hash, role_id, institution_id, last_login_at, last_logout_at, created_at, updated_at`

func scanUser(row pgx.Row, u *User) error {
	return row.Scan(
		&u.ID, &u.FullName, &u.NationalID, &u.Email, &u.PasswordHash,
		&u.RoleID, &u.InstitutionID, &u.LastLoginAt, &u.LastLogoutAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
}

func (r *PostgresRepo) Create(ctx context.Context, u *User) error {
	const query = `
	INSERT INTO users (id, full_name, national_id, email, password_hash, role_id, institution_id)
	VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
	RETURNING id, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.QueryRow(timeoutCtx, query,
		u.FullName, u.NationalID, u.Email, u.PasswordHash, u.RoleID, u.InstitutionID,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	var u User
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := scanUser(r.db.QueryRow(timeoutCtx, query, email), &u); err != nil {
		return User{}, notFound(err)
	}
	return u, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var u User
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := scanUser(r.db.QueryRow(timeoutCtx, query, id), &u); err != nil {
		return User{}, notFound(err)
	}
	return u, nil
}

func (r *PostgresRepo) GetProfile(ctx context.Context, id string) (Profile, error) {
	const query = `
	SELECT u.id, u.full_name, u.national_id, u.email, u.password_hash, u.role_id, u.institution_id,
		u.last_login_at, u.last_logout_at, u.created_at, u.updated_at,
		r.name, r.description, i.name, i.address
	FROM users u
	JOIN roles r ON r.id = u.role_id
	JOIN institutions i ON i.id = u.institution_id
	WHERE u.id = $1
	`
	var p Profile
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, id).Scan(
		&p.ID, &p.FullName, &p.NationalID, &p.Email, &p.PasswordHash,
		&p.RoleID, &p.InstitutionID, &p.LastLoginAt, &p.LastLogoutAt,
		&p.CreatedAt, &p.UpdatedAt,
		&p.RoleName, &p.RoleDescription, &p.InstitutionName, &p.InstitutionAddress,
	)
	if err != nil {
		return Profile{}, notFound(err)
	}
	return p, nil
}

func (r *PostgresRepo) exists(ctx context.Context, query string, arg any) (bool, error) {
	var ok bool
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, arg).Scan(&ok)
	return ok, err
}

func (r *PostgresRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *PostgresRepo) NationalIDExists(ctx context.Context, nationalID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE national_id = $1)`, nationalID)
}

func (r *PostgresRepo) InstitutionExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM institutions WHERE id = $1)`, id)
}

func (r *PostgresRepo) ListInstitutions(ctx context.Context) ([]Institution, error) {
	const query = `SELECT id, name, address FROM institutions ORDER BY name`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Institution{}
	for rows.Next() {
		var inst Institution
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.Address); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListStudents(ctx context.Context, institutionID int64) ([]Student, error) {
	const query = `
	SELECT id, full_name, email, last_login_at
	FROM users
	WHERE role_id = $1 AND institution_id = $2
	ORDER BY full_name
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, RoleStudent, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Student{}
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.FullName, &s.Email, &s.LastLoginAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) TouchLastLogin(ctx context.Context, id string) error {
	const query = `UPDATE users SET last_login_at = now(), updated_at = now() WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, query, id)
	return err
}

func (r *PostgresRepo) TouchLastLogout(ctx context.Context, id string) error {
	const query = `UPDATE users SET last_logout_at = now(), updated_at = now() WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, query, id)
	return err
}
