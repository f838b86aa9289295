// Package user owns accounts, institutions and the role/email-domain rules.
package user

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNationalIDTaken    = errors.New("national id already registered")
	ErrInvalidRole        = errors.New("invalid role")
	ErrRoleEmailMismatch  = errors.New("email domain does not match role")
	ErrInvalidInstitution = errors.New("invalid institution")
)

// Role ids match the rows seeded in the roles table.
const (
	RoleTeacher = 1
	RoleStudent = 2
)

const (
	RoleNameTeacher = "TEACHER"
	RoleNameStudent = "STUDENT"
)

var roleDomains = map[int]string{
	RoleTeacher: "maestro.edu.co",
	RoleStudent: "estudiante.edu.co",
}

type User struct {
	ID            string     `json:"id"`
	FullName      string     `json:"full_name"`
	NationalID    string     `json:"national_id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	RoleID        int        `json:"role_id"`
	InstitutionID int64      `json:"institution_id"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	LastLogoutAt  *time.Time `json:"last_logout_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Role returns the role name carried in access tokens.
func (u User) Role() string {
	return RoleName(u.RoleID)
}

// Profile is a user joined with its institution and role.
type Profile struct {
	User
	RoleName           string `json:"role_name"`
	RoleDescription    string `json:"role_description"`
	InstitutionName    string `json:"institution_name"`
	InstitutionAddress string `json:"institution_address"`
}

type Institution struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Student is the roster entry a teacher sees.
type Student struct {
	ID          string     `json:"id"`
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type RegisterInput struct {
	FullName      string `json:"full_name" validate:"required,min=3,max=150"`
	NationalID    string `json:"national_id" validate:"required,national_id"`
	Email         string `json:"email" validate:"required,email,max=255"`
	Password      string `json:"password" validate:"required,password_strength"`
	RoleID        int    `json:"role_id" validate:"required,oneof=1 2"`
	InstitutionID int64  `json:"institution_id" validate:"required,gt=0"`
}

func RoleName(roleID int) string {
	switch roleID {
	case RoleTeacher:
		return RoleNameTeacher
	case RoleStudent:
		return RoleNameStudent
	default:
		return ""
	}
}

// RoleDomain is the institutional email domain required for a role.
func RoleDomain(roleID int) (string, bool) {
	d, ok := roleDomains[roleID]
	return d, ok
}

// DashboardPath is the frontend page a role lands on after login.
func DashboardPath(roleID int) string {
	if roleID == RoleTeacher {
		return "/teacher-dashboard"
	}
	return "/student-dashboard"
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckRoleEmail verifies that email belongs to the domain of roleID.
func CheckRoleEmail(email string, roleID int) error {
	domain, ok := RoleDomain(roleID)
	if !ok {
		return ErrInvalidRole
	}
	_, got, found := strings.Cut(NormalizeEmail(email), "@")
	if !found || got != domain {
		return fmt.Errorf("%w: role requires @%s", ErrRoleEmailMismatch, domain)
	}
	return nil
}
