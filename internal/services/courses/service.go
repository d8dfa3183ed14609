package courses

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"sibeo/internal/api/client"
	"sibeo/internal/common"
	"sibeo/internal/demo"
	"sibeo/internal/models"
)

const (
	msgCourseNotFound = "Kursus tidak ditemukan"
	msgLoginRequired  = "Silakan login terlebih dahulu"
	msgEnrollFailed   = "Gagal mendaftar kursus"

	// CategoryAll disables the category filter
	CategoryAll = "all"
)

// API is the part of the remote API the catalogue pages read
type API interface {
	GetAllCourses(ctx context.Context) []models.Course
	GetCourseDetail(ctx context.Context, id int64) *models.Course
	GetCourseModules(ctx context.Context, courseID int64) []models.Module
	GetMyEnrollments(ctx context.Context) []models.Enrollment
	EnrollCourse(ctx context.Context, courseID int64) client.Result[struct{}]
}

// Filter narrows the course listing
type Filter struct {
	Query    string
	Category string
}

// Listing is the course catalogue page
type Listing struct {
	Courses    []models.Course
	Categories []string
	// Total counts courses before filtering.
	Total int
	// Demo is set when the API had nothing and sample courses are shown.
	Demo bool
}

// Detail is a single course page
type Detail struct {
	Course         models.Course
	Modules        []models.Module
	Enrolled       bool
	CanViewModules bool
	ModuleCount    int
	Demo           bool
}

// Service backs the course catalogue and course detail pages
type Service struct {
	api     API
	samples *demo.Catalogue
	logger  *zap.Logger
}

// NewService creates a new catalogue service
func NewService(api API, samples *demo.Catalogue, logger *zap.Logger) *Service {
	if samples == nil {
		samples = demo.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, samples: samples, logger: logger}
}

// List returns the catalogue, falling back to sample courses when the API
// returns none.
func (s *Service) List(ctx context.Context, filter Filter) *Listing {
	all := s.api.GetAllCourses(ctx)
	listing := &Listing{}
	if len(all) == 0 {
		s.logger.Debug("No courses from API, showing samples")
		all = s.samples.Courses()
		listing.Demo = true
	}

	categories := make([]string, 0, len(all))
	for _, c := range all {
		categories = append(categories, c.Category)
	}
	listing.Categories = common.RemoveDuplicates(categories)
	listing.Total = len(all)
	listing.Courses = common.Retain(all, filter.matches)
	return listing
}

func (f Filter) matches(c models.Course) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(c.Title), q) && !strings.Contains(strings.ToLower(c.Description), q) {
			return false
		}
	}
	if f.Category != "" && f.Category != CategoryAll && c.Category != f.Category {
		return false
	}
	return true
}

// Detail loads a course page. Modules are only loaded for signed-in users and
// enrollment state only for students.
func (s *Service) Detail(ctx context.Context, id int64, user *models.User) (*Detail, error) {
	detail := &Detail{}

	course := s.api.GetCourseDetail(ctx, id)
	if course == nil {
		sample, ok := s.samples.Course(id)
		if !ok {
			return nil, common.ErrNotFoundError(msgCourseNotFound).WithContext("course_id", id)
		}
		course = sample
		detail.Demo = true
	}
	detail.Course = *course

	if user != nil {
		detail.Modules = s.loadModules(ctx, id)
		if user.IsStudent() {
			detail.Enrolled = s.isEnrolled(ctx, id)
		}
	}

	detail.CanViewModules = user != nil && (detail.Enrolled || user.IsInstructor())
	detail.ModuleCount = course.ModulesCount
	if detail.ModuleCount == 0 {
		detail.ModuleCount = len(detail.Modules)
	}
	return detail, nil
}

// Enroll enrolls a student and returns the modules that are now visible
func (s *Service) Enroll(ctx context.Context, id int64, user *models.User) ([]models.Module, error) {
	if user == nil {
		return nil, common.ErrUnauthorizedError(msgLoginRequired)
	}

	result := s.api.EnrollCourse(ctx, id)
	if !result.Success {
		s.logger.Warn("Enrollment failed", zap.Int64("course_id", id), zap.String("error", result.Error))
		return nil, common.ErrRemoteError(common.FirstNonEmpty(result.Error, msgEnrollFailed))
	}

	s.logger.Info("Enrolled", zap.Int64("course_id", id), zap.Int64("user_id", user.ID))
	return s.loadModules(ctx, id), nil
}

func (s *Service) loadModules(ctx context.Context, courseID int64) []models.Module {
	modules := common.Retain(s.api.GetCourseModules(ctx, courseID), func(m models.Module) bool {
		return m.Title != ""
	})
	if len(modules) == 0 {
		if samples := s.samples.Modules(courseID); samples != nil {
			return samples
		}
	}
	return modules
}

func (s *Service) isEnrolled(ctx context.Context, courseID int64) bool {
	for _, e := range s.api.GetMyEnrollments(ctx) {
		if e.CourseRef() == courseID {
			return true
		}
	}
	return false
}
