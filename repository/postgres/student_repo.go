package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campuskit/checkin/domain"
	"github.com/campuskit/checkin/repository"
)

type studentDirectory struct {
	pool *pgxpool.Pool
}

// NewStudentDirectory instantiates a Postgres-backed student directory.
func NewStudentDirectory(pool *pgxpool.Pool) repository.StudentDirectory {
	return &studentDirectory{pool: pool}
}

const studentColumns = `id, email, name, department, section, status, created_at, updated_at`

func (r *studentDirectory) FindByIdentifier(ctx context.Context, id string) (*domain.Student, error) {
	const query = `
	SELECT ` + studentColumns + `
	FROM students
	WHERE id = $1
	`
	return scanStudent(r.pool.QueryRow(ctx, query, id))
}

func (r *studentDirectory) FindByEmail(ctx context.Context, email string) (*domain.Student, error) {
	const query = `
	SELECT ` + studentColumns + `
	FROM students
	WHERE LOWER(email) = LOWER($1)
	`
	return scanStudent(r.pool.QueryRow(ctx, query, email))
}

func (r *studentDirectory) FindByNameContains(ctx context.Context, name string) (*domain.Student, error) {
	// First match wins. The ORDER BY only makes the ambiguity deterministic.
	const query = `
	SELECT ` + studentColumns + `
	FROM students
	WHERE name ILIKE '%' || $1 || '%'
	ORDER BY name
	LIMIT 1
	`
	return scanStudent(r.pool.QueryRow(ctx, query, name))
}

func scanStudent(row pgx.Row) (*domain.Student, error) {
	var student domain.Student
	if err := row.Scan(
		&student.ID,
		&student.Email,
		&student.Name,
		&student.Department,
		&student.Section,
		&student.Status,
		&student.CreatedAt,
		&student.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, err
	}
	return &student, nil
}
