package assignment

import (
	"context"
	"time"
)

// upcomingWindow bounds the due dates shown on the student dashboard.
const upcomingWindow = 7 * 24 * time.Hour

type Service struct {
	repo      Repository
	students  StudentDirectory
	favorites FavoriteCounter
	now       func() time.Time
}

func NewService(repo Repository, students StudentDirectory, favorites FavoriteCounter) *Service {
	return &Service{repo: repo, students: students, favorites: favorites, now: time.Now}
}

// Assign creates a pending assignment for a student of the teacher's institution.
func (s *Service) Assign(ctx context.Context, teacherID string, institutionID int64, in CreateInput) (Assignment, error) {
	ok, err := s.students.IsStudentOf(ctx, in.StudentID, institutionID)
	if err != nil {
		return Assignment{}, err
	}
	if !ok {
		return Assignment{}, ErrStudentNotAllowed
	}

	a := &Assignment{
		TeacherID: teacherID,
		StudentID: in.StudentID,
		BookID:    in.BookID,
		Status:    StatusPending,
		DueDate:   in.DueDate,
		Notes:     in.Notes,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Assignment{}, err
	}
	return *a, nil
}

func (s *Service) ListForTeacher(ctx context.Context, teacherID string) ([]Assignment, error) {
	return s.repo.ListByTeacher(ctx, teacherID)
}

func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]Assignment, error) {
	return s.repo.ListByStudent(ctx, studentID)
}

// Delete removes an assignment owned by teacherID.
func (s *Service) Delete(ctx context.Context, id int64, teacherID string) error {
	return s.repo.Delete(ctx, id, teacherID)
}

// UpdateProgress applies in to one of the student's own assignments.
func (s *Service) UpdateProgress(ctx context.Context, id int64, studentID string, in ProgressInput) (Assignment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if current.StudentID != studentID {
		return Assignment{}, ErrNotFound
	}

	progress, status, err := in.Apply(current)
	if err != nil {
		return Assignment{}, err
	}
	return s.repo.UpdateProgress(ctx, id, studentID, progress, status)
}

func (s *Service) Dashboard(ctx context.Context, studentID string) (Dashboard, error) {
	stats, err := s.repo.StudentStats(ctx, studentID)
	if err != nil {
		return Dashboard{}, err
	}
	favorites, err := s.favorites.Count(ctx, studentID)
	if err != nil {
		return Dashboard{}, err
	}
	all, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return Dashboard{}, err
	}

	now := s.now()
	upcoming := []Assignment{}
	for _, a := range all {
		if a.Status == StatusCompleted || a.DueDate == nil {
			continue
		}
		if a.DueDate.Before(now.Add(upcomingWindow)) {
			upcoming = append(upcoming, a)
		}
	}
	return Dashboard{Assignments: stats, Favorites: favorites, Upcoming: upcoming}, nil
}
