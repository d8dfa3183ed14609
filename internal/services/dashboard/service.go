package dashboard

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"sibeo/internal/api/client"
	"sibeo/internal/common"
	"sibeo/internal/models"
)

const (
	msgLoginRequired      = "Silakan login terlebih dahulu"
	msgInstructorOnly     = "Hanya instruktur yang dapat mengelola kursus"
	msgStudentOnly        = "Halaman ini hanya untuk siswa"
	msgCourseFieldsNeeded = "Judul dan deskripsi wajib diisi"
	msgCreateFailed       = "Gagal membuat kursus"
	msgDeleteFailed       = "Gagal menghapus kursus"
	msgUnenrollFailed     = "Gagal berhenti dari kursus"
)

// API is the part of the remote API the dashboard pages use
type API interface {
	GetInstructorDashboard(ctx context.Context) *models.InstructorDashboard
	GetStudentProgress(ctx context.Context) *models.StudentProgress
	GetAllCourses(ctx context.Context) []models.Course
	GetMyEnrollments(ctx context.Context) []models.Enrollment
	CreateCourse(ctx context.Context, input *client.CourseInput) client.Result[*models.Course]
	DeleteCourse(ctx context.Context, id int64) client.Result[struct{}]
	UnenrollCourse(ctx context.Context, enrollmentID int64) client.Result[struct{}]
}

// View is the dashboard for one user. Instructors get Courses and Stats,
// students get Enrollments and Progress.
type View struct {
	User        models.User
	Courses     []models.Course
	Stats       models.InstructorStats
	Enrollments []models.Enrollment
	Progress    models.StudentStats
}

// Service backs the dashboard and my-courses pages
type Service struct {
	api    API
	logger *zap.Logger
}

// NewService creates a new dashboard service
func NewService(api API, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, logger: logger}
}

// Load builds the dashboard for user
func (s *Service) Load(ctx context.Context, user *models.User) (*View, error) {
	if user == nil {
		return nil, common.ErrUnauthorizedError(msgLoginRequired)
	}

	view := &View{User: *user}
	if user.IsInstructor() {
		data := s.api.GetInstructorDashboard(ctx)
		courses := data.Courses
		if len(courses) == 0 {
			courses = common.Retain(s.api.GetAllCourses(ctx), func(c models.Course) bool {
				return c.InstructorID == user.ID
			})
		}
		view.Courses = courses
		view.Stats = models.InstructorStats{
			TotalCourses:     len(courses),
			TotalEnrollments: data.Stats.TotalEnrollments,
			TotalModules:     data.Stats.TotalModules,
		}
		return view, nil
	}

	view.Enrollments = s.api.GetMyEnrollments(ctx)
	progress := s.api.GetStudentProgress(ctx)
	view.Progress = progress.Stats
	if view.Progress.TotalCourses == 0 {
		view.Progress.TotalCourses = len(view.Enrollments)
	}
	return view, nil
}

// CreateCourse creates a course and appends it to the view
func (s *Service) CreateCourse(ctx context.Context, view *View, input client.CourseInput) (*models.Course, error) {
	if !view.User.IsInstructor() {
		return nil, common.ErrForbiddenError(msgInstructorOnly)
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	if input.Title == "" || input.Description == "" {
		return nil, common.ErrValidationError(msgCourseFieldsNeeded)
	}

	result := s.api.CreateCourse(ctx, &input)
	if !result.Success || result.Data == nil {
		s.logger.Warn("Course creation failed", zap.String("title", input.Title), zap.String("error", result.Error))
		return nil, common.ErrRemoteError(common.FirstNonEmpty(result.Error, msgCreateFailed))
	}

	view.Courses = append(view.Courses, *result.Data)
	view.Stats.TotalCourses = len(view.Courses)
	s.logger.Info("Course created", zap.Int64("course_id", result.Data.ID))
	return result.Data, nil
}

// DeleteCourse deletes a course and drops it from the view
func (s *Service) DeleteCourse(ctx context.Context, view *View, id int64) error {
	if !view.User.IsInstructor() {
		return common.ErrForbiddenError(msgInstructorOnly)
	}

	result := s.api.DeleteCourse(ctx, id)
	if !result.Success {
		s.logger.Warn("Course deletion failed", zap.Int64("course_id", id), zap.String("error", result.Error))
		return common.ErrRemoteError(common.FirstNonEmpty(result.Error, msgDeleteFailed))
	}

	view.Courses = common.Retain(view.Courses, func(c models.Course) bool { return c.ID != id })
	view.Stats.TotalCourses = len(view.Courses)
	s.logger.Info("Course deleted", zap.Int64("course_id", id))
	return nil
}

// MyCourses lists a student's enrollments
func (s *Service) MyCourses(ctx context.Context, user *models.User) ([]models.Enrollment, error) {
	if user == nil {
		return nil, common.ErrUnauthorizedError(msgLoginRequired)
	}
	if !user.IsStudent() {
		return nil, common.ErrForbiddenError(msgStudentOnly)
	}
	return s.api.GetMyEnrollments(ctx), nil
}

// Unenroll removes an enrollment and returns the remaining ones
func (s *Service) Unenroll(ctx context.Context, enrollments []models.Enrollment, key int64) ([]models.Enrollment, error) {
	result := s.api.UnenrollCourse(ctx, key)
	if !result.Success {
		s.logger.Warn("Unenroll failed", zap.Int64("enrollment_id", key), zap.String("error", result.Error))
		return enrollments, common.ErrRemoteError(common.FirstNonEmpty(result.Error, msgUnenrollFailed))
	}

	s.logger.Info("Unenrolled", zap.Int64("enrollment_id", key))
	return common.Retain(enrollments, func(e models.Enrollment) bool { return e.Key() != key }), nil
}
