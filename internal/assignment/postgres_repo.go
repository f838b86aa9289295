package assignment

import (
	"context"
	"errors"
	"strings"
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

const assignmentSelect = `
	SELECT a.id, a.teacher_id, t.full_name, a.student_id, s.full_name, a.book_id, b.title, b.author, b.cover_url,
	       a.status, a.progress, a.due_date, a.notes, a.created_at, a.updated_at
	FROM assignments a
	JOIN users t ON t.id = a.teacher_id
	JOIN users s ON s.id = a.student_id
	JOIN books b ON b.id = a.book_id`

func scanAssignment(row pgx.Row, a *Assignment) error {
	return row.Scan(
		&a.ID, &a.TeacherID, &a.TeacherName, &a.StudentID, &a.StudentName,
		&a.BookID, &a.BookTitle, &a.BookAuthor, &a.CoverURL,
		&a.Status, &a.Progress, &a.DueDate, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
}

func (r *PostgresRepo) Create(ctx context.Context, a *Assignment) error {
	const query = `
	INSERT INTO assignments (teacher_id, student_id, book_id, status, progress, due_date, notes)
	VALUES ($1, $2, $3, $4, 0, $5, $6)
	RETURNING id, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, a.TeacherID, a.StudentID, a.BookID, a.Status, a.DueDate, a.Notes).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrAlreadyAssigned
			case "23503":
				if strings.Contains(pgErr.ConstraintName, "book_id") {
					return ErrBookNotFound
				}
			}
		}
		return err
	}
	return nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Assignment, error) {
	query := assignmentSelect + ` WHERE a.id = $1`
	var a Assignment
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := scanAssignment(r.db.QueryRow(timeoutCtx, query, id), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, err
	}
	return a, nil
}

func (r *PostgresRepo) list(ctx context.Context, query string, arg any) ([]Assignment, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Assignment{}
	for rows.Next() {
		var a Assignment
		if err := scanAssignment(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListByTeacher(ctx context.Context, teacherID string) ([]Assignment, error) {
	return r.list(ctx, assignmentSelect+` WHERE a.teacher_id = $1 ORDER BY a.created_at DESC`, teacherID)
}

func (r *PostgresRepo) ListByStudent(ctx context.Context, studentID string) ([]Assignment, error) {
	return r.list(ctx, assignmentSelect+` WHERE a.student_id = $1 ORDER BY a.due_date ASC NULLS LAST, a.created_at DESC`, studentID)
}

func (r *PostgresRepo) UpdateProgress(ctx context.Context, id int64, studentID string, progress int, status string) (Assignment, error) {
	const query = `
	UPDATE assignments SET progress = $3, status = $4, updated_at = now()
	WHERE id = $1 AND student_id = $2
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, id, studentID, progress, status)
	if err != nil {
		return Assignment{}, err
	}
	if tag.RowsAffected() == 0 {
		return Assignment{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64, teacherID string) error {
	const query = `DELETE FROM assignments WHERE id = $1 AND teacher_id = $2`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, id, teacherID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) StudentStats(ctx context.Context, studentID string) (Stats, error) {
	const query = `
	SELECT COUNT(*),
	       COUNT(*) FILTER (WHERE status = 'pending'),
	       COUNT(*) FILTER (WHERE status = 'in_progress'),
	       COUNT(*) FILTER (WHERE status = 'completed'),
	       COALESCE(AVG(progress), 0)::float8
	FROM assignments
	WHERE student_id = $1
	`
	var s Stats
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query, studentID).Scan(&s.Total, &s.Pending, &s.InProgress, &s.Completed, &s.AverageProgress)
	return s, err
}
