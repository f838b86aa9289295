package assignment

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, a *Assignment) error
	GetByID(ctx context.Context, id int64) (Assignment, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]Assignment, error)
	ListByStudent(ctx context.Context, studentID string) ([]Assignment, error)
	UpdateProgress(ctx context.Context, id int64, studentID string, progress int, status string) (Assignment, error)
	Delete(ctx context.Context, id int64, teacherID string) error
	StudentStats(ctx context.Context, studentID string) (Stats, error)
}

// StudentDirectory answers enrollment questions; user.Service satisfies it.
type StudentDirectory interface {
	IsStudentOf(ctx context.Context, studentID string, institutionID int64) (bool, error)
}

// FavoriteCounter is satisfied by favorite.Service.
type FavoriteCounter interface {
	Count(ctx context.Context, userID string) (int, error)
}
