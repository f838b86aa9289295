package user

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetProfile(ctx context.Context, id string) (Profile, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	NationalIDExists(ctx context.Context, nationalID string) (bool, error)
	InstitutionExists(ctx context.Context, id int64) (bool, error)
	ListInstitutions(ctx context.Context) ([]Institution, error)
	ListStudents(ctx context.Context, institutionID int64) ([]Student, error)
	TouchLastLogin(ctx context.Context, id string) error
	TouchLastLogout(ctx context.Context, id string) error
}
