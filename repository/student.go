package repository

import (
	"context"

	"github.com/campuskit/checkin/domain"
)

// StudentDirectory is the read-only view onto the university registry.
// Every lookup returns domain.ErrStudentNotFound when nothing matches.
type StudentDirectory interface {
	FindByIdentifier(ctx context.Context, id string) (*domain.Student, error)
	FindByEmail(ctx context.Context, email string) (*domain.Student, error)

	// FindByNameContains performs a case-insensitive partial match and
	// returns the first hit. Inherently ambiguous; callers treat it as a
	// last resort after id and email lookups fail.
	FindByNameContains(ctx context.Context, name string) (*domain.Student, error)
}
