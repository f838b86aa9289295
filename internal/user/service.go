package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"openbook/internal/platform/crypto"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register validates the role/domain pairing and uniqueness rules, then
// stores the account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	email := NormalizeEmail(in.Email)
	if err := CheckRoleEmail(email, in.RoleID); err != nil {
		return User{}, err
	}
	if err := crypto.ValidatePasswordStrength(in.Password); err != nil {
		return User{}, err
	}

	taken, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, ErrEmailTaken
	}
	taken, err = s.repo.NationalIDExists(ctx, in.NationalID)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, ErrNationalIDTaken
	}
	ok, err := s.repo.InstitutionExists(ctx, in.InstitutionID)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, ErrInvalidInstitution
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		FullName:      strings.TrimSpace(in.FullName),
		NationalID:    in.NationalID,
		Email:         email,
		PasswordHash:  hash,
		RoleID:        in.RoleID,
		InstitutionID: in.InstitutionID,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, mapUniqueViolation(err)
	}
	return *u, nil
}

// mapUniqueViolation covers the race between the existence checks and the insert.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	if strings.Contains(pgErr.ConstraintName, "national_id") {
		return ErrNationalIDTaken
	}
	return ErrEmailTaken
}

// EmailAvailable reports whether email can be registered. A non-zero roleID
// also checks the role domain.
func (s *Service) EmailAvailable(ctx context.Context, email string, roleID int) (bool, error) {
	email = NormalizeEmail(email)
	if roleID != 0 {
		if err := CheckRoleEmail(email, roleID); err != nil {
			return false, err
		}
	}
	taken, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}

func (s *Service) Profile(ctx context.Context, id string) (Profile, error) {
	return s.repo.GetProfile(ctx, id)
}

func (s *Service) TouchLastLogin(ctx context.Context, id string) error {
	return s.repo.TouchLastLogin(ctx, id)
}

func (s *Service) TouchLastLogout(ctx context.Context, id string) error {
	return s.repo.TouchLastLogout(ctx, id)
}

func (s *Service) ListInstitutions(ctx context.Context) ([]Institution, error) {
	return s.repo.ListInstitutions(ctx)
}

func (s *Service) ListStudents(ctx context.Context, institutionID int64) ([]Student, error) {
	return s.repo.ListStudents(ctx, institutionID)
}

// IsStudentOf reports whether studentID is a student at institutionID.
func (s *Service) IsStudentOf(ctx context.Context, studentID string, institutionID int64) (bool, error) {
	u, err := s.repo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.RoleID == RoleStudent && u.InstitutionID == institutionID, nil
}
