// Package assignment lets teachers assign books to students and students
// report reading progress.
package assignment

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("assignment not found")
	ErrAlreadyAssigned   = errors.New("book already assigned to student")
	ErrBookNotFound      = errors.New("book not found")
	ErrStudentNotAllowed = errors.New("student is not enrolled at the teacher's institution")
	ErrInvalidProgress   = errors.New("progress must be between 0 and 100")
	ErrInvalidStatus     = errors.New("invalid status")
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type Assignment struct {
	ID          int64      `json:"id"`
	TeacherID   string     `json:"teacher_id"`
	TeacherName string     `json:"teacher_name,omitempty"`
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name,omitempty"`
	BookID      int64      `json:"book_id"`
	BookTitle   string     `json:"book_title,omitempty"`
	BookAuthor  string     `json:"book_author,omitempty"`
	CoverURL    *string    `json:"cover_url,omitempty"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateInput struct {
	StudentID string     `json:"student_id" validate:"required,uuid"`
	BookID    int64      `json:"book_id" validate:"required,gt=0"`
	DueDate   *time.Time `json:"due_date"`
	Notes     string     `json:"notes" validate:"max=500"`
}

// ProgressInput updates a student's own assignment. Either field may be set.
type ProgressInput struct {
	Progress *int   `json:"progress" validate:"omitempty,gte=0,lte=100"`
	Status   string `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
}

// Stats summarises a student's assignments.
type Stats struct {
	Total           int     `json:"total"`
	Pending         int     `json:"pending"`
	InProgress      int     `json:"in_progress"`
	Completed       int     `json:"completed"`
	AverageProgress float64 `json:"average_progress"`
}

// Dashboard is the student landing page summary.
type Dashboard struct {
	Assignments Stats        `json:"assignments"`
	Favorites   int          `json:"favorites"`
	Upcoming    []Assignment `json:"upcoming"`
}

// StatusForProgress derives the status implied by a progress percentage.
func StatusForProgress(progress int) string {
	switch {
	case progress >= 100:
		return StatusCompleted
	case progress > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// Apply resolves in against the current state and returns the new progress
// and status. Status is always derived from progress; a bare status moves
// progress to match it. When both are set, progress wins.
func (in ProgressInput) Apply(current Assignment) (int, string, error) {
	if in.Progress != nil {
		p := *in.Progress
		if p < 0 || p > 100 {
			return 0, "", ErrInvalidProgress
		}
		return p, StatusForProgress(p), nil
	}

	progress := current.Progress
	switch in.Status {
	case "":
	case StatusPending:
		progress = 0
	case StatusInProgress:
		if progress == 0 {
			progress = 1
		} else if progress >= 100 {
			progress = 99
		}
	case StatusCompleted:
		progress = 100
	default:
		return 0, "", ErrInvalidStatus
	}
	return progress, StatusForProgress(progress), nil
}
