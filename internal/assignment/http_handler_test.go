package assignment

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"openbook/internal/testutil"
)

func TestHTTPHandler_Create(t *testing.T) {
	teacher := testutil.TestTeacher
	body := map[string]any{"student_id": testutil.TestStudent.UserID, "book_id": 5}

	tests := []struct {
		name     string
		body     any
		enrolled bool
		repoErr  error
		wantCode int
		wantErr  string
	}{
		{"created", body, true, nil, http.StatusCreated, ""},
		{"not enrolled", body, false, nil, http.StatusForbidden, "STUDENT_NOT_ALLOWED"},
		{"duplicate", body, true, ErrAlreadyAssigned, http.StatusConflict, "ALREADY_ASSIGNED"},
		{"unknown book", body, true, ErrBookNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"invalid student id", map[string]any{"student_id": "nope", "book_id": 5}, true, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, dir := new(mockRepo), new(mockDirectory)
			dir.On("IsStudentOf", mock.Anything, testutil.TestStudent.UserID, teacher.InstitutionID).Return(tt.enrolled, nil)
			repo.On("Create", mock.Anything, mock.Anything).Return(tt.repoErr)
			h := NewHTTPHandler(NewService(repo, dir, new(mockFavorites)), nil)

			w := httptest.NewRecorder()
			h.Create(w, testutil.AsUser(testutil.NewRequest(http.MethodPost, "/api/teacher/assignments", tt.body), teacher))

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, testutil.RecordHTTPResponse(w).ErrorCode())
			}
		})
	}
}

func TestHTTPHandler_UpdateProgress(t *testing.T) {
	student := testutil.TestStudent

	t.Run("updates progress", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByID", mock.Anything, int64(3)).Return(Assignment{ID: 3, StudentID: student.UserID}, nil)
		repo.On("UpdateProgress", mock.Anything, int64(3), student.UserID, 100, StatusCompleted).
			Return(Assignment{ID: 3, Progress: 100, Status: StatusCompleted}, nil)
		h := NewHTTPHandler(NewService(repo, new(mockDirectory), new(mockFavorites)), nil)

		r := testutil.NewRequest(http.MethodPut, "/api/users/assignments/3", map[string]any{"status": "completed"})
		r = testutil.WithURLParams(testutil.AsUser(r, student), map[string]string{"id": "3"})
		w := httptest.NewRecorder()
		h.UpdateProgress(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		repo.AssertExpectations(t)
	})

	t.Run("empty body", func(t *testing.T) {
		h := NewHTTPHandler(NewService(new(mockRepo), new(mockDirectory), new(mockFavorites)), nil)

		r := testutil.NewRequest(http.MethodPut, "/api/users/assignments/3", map[string]any{})
		r = testutil.WithURLParams(testutil.AsUser(r, student), map[string]string{"id": "3"})
		w := httptest.NewRecorder()
		h.UpdateProgress(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("progress out of range", func(t *testing.T) {
		h := NewHTTPHandler(NewService(new(mockRepo), new(mockDirectory), new(mockFavorites)), nil)

		r := testutil.NewRequest(http.MethodPut, "/api/users/assignments/3", map[string]any{"progress": 150})
		r = testutil.WithURLParams(testutil.AsUser(r, student), map[string]string{"id": "3"})
		w := httptest.NewRecorder()
		h.UpdateProgress(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		h := NewHTTPHandler(NewService(new(mockRepo), new(mockDirectory), new(mockFavorites)), nil)

		r := testutil.NewRequest(http.MethodPut, "/api/users/assignments/x", map[string]any{"progress": 10})
		r = testutil.WithURLParams(testutil.AsUser(r, student), map[string]string{"id": "x"})
		w := httptest.NewRecorder()
		h.UpdateProgress(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	teacher := testutil.TestTeacher
	repo := new(mockRepo)
	repo.On("Delete", mock.Anything, int64(4), teacher.UserID).Return(nil)
	repo.On("Delete", mock.Anything, int64(5), teacher.UserID).Return(ErrNotFound)
	h := NewHTTPHandler(NewService(repo, new(mockDirectory), new(mockFavorites)), nil)

	for id, want := range map[string]int{"4": http.StatusNoContent, "5": http.StatusNotFound} {
		r := testutil.NewRequest(http.MethodDelete, "/api/teacher/assignments/"+id, nil)
		r = testutil.WithURLParams(testutil.AsUser(r, teacher), map[string]string{"id": id})
		w := httptest.NewRecorder()
		h.Delete(w, r)
		assert.Equal(t, want, w.Code, "id %s", id)
	}
}

func TestHTTPHandler_Dashboard(t *testing.T) {
	student := testutil.TestStudent
	repo, favs := new(mockRepo), new(mockFavorites)
	repo.On("StudentStats", mock.Anything, student.UserID).Return(Stats{Total: 1, Pending: 1}, nil)
	repo.On("ListByStudent", mock.Anything, student.UserID).Return([]Assignment{}, nil)
	favs.On("Count", mock.Anything, student.UserID).Return(2, nil)
	h := NewHTTPHandler(NewService(repo, new(mockDirectory), favs), nil)

	w := httptest.NewRecorder()
	h.Dashboard(w, testutil.AsUser(testutil.NewRequest(http.MethodGet, "/api/users/dashboard", nil), student))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"favorites":2`)
}
