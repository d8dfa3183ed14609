package manage

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
	msgCourseNotFound     = "Kursus tidak ditemukan"
	msgCourseFieldsNeeded = "Judul dan deskripsi wajib diisi"
	msgModuleFieldsNeeded = "Judul dan konten modul wajib diisi"
	msgModuleNotFound     = "Modul tidak ditemukan"
	msgSaveFailed         = "Gagal menyimpan perubahan"
	msgCreateModuleFailed = "Gagal membuat modul"
	msgUpdateModuleFailed = "Gagal memperbarui modul"
	msgDeleteModuleFailed = "Gagal menghapus modul"
)

// API is the part of the remote API the course manager uses
type API interface {
	GetCourseDetail(ctx context.Context, id int64) *models.Course
	GetCourseModules(ctx context.Context, courseID int64) []models.Module
	GetCourseStudents(ctx context.Context, courseID int64) []models.User
	UpdateCourse(ctx context.Context, id int64, input *client.CourseInput) client.Result[struct{}]
	CreateModule(ctx context.Context, courseID int64, input *client.ModuleInput) client.Result[*models.Module]
	UpdateModule(ctx context.Context, id int64, input *client.ModuleInput) client.Result[struct{}]
	DeleteModule(ctx context.Context, id int64) client.Result[struct{}]
}

// Workspace is an instructor's editable view of one course
type Workspace struct {
	Course   models.Course
	Modules  []models.Module
	Students []models.User
}

// Service backs the instructor course manager
type Service struct {
	api    API
	logger *zap.Logger
}

// NewService creates a new course manager service
func NewService(api API, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, logger: logger}
}

// Open loads a course with its modules and enrolled students
func (s *Service) Open(ctx context.Context, user *models.User, courseID int64) (*Workspace, error) {
	if err := authorize(user); err != nil {
		return nil, err
	}

	course := s.api.GetCourseDetail(ctx, courseID)
	if course == nil {
		return nil, common.ErrNotFoundError(msgCourseNotFound).WithContext("course_id", courseID)
	}

	return &Workspace{
		Course:   *course,
		Modules:  s.api.GetCourseModules(ctx, courseID),
		Students: s.api.GetCourseStudents(ctx, courseID),
	}, nil
}

// SaveCourse updates the course's editable fields and merges them into ws
func (s *Service) SaveCourse(ctx context.Context, user *models.User, ws *Workspace, input client.CourseInput) error {
	if err := authorize(user); err != nil {
		return err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	if input.Title == "" || input.Description == "" {
		return common.ErrValidationError(msgCourseFieldsNeeded)
	}

	result := s.api.UpdateCourse(ctx, ws.Course.ID, &input)
	if !result.Success {
		return s.remoteFailure("Course update failed", ws.Course.ID, result.Error, msgSaveFailed)
	}

	ws.Course.Title = input.Title
	ws.Course.Description = input.Description
	ws.Course.Category = input.Category
	s.logger.Info("Course updated", zap.Int64("course_id", ws.Course.ID))
	return nil
}

// CreateModule adds a module to the course and appends it to ws
func (s *Service) CreateModule(ctx context.Context, user *models.User, ws *Workspace, input client.ModuleInput) (*models.Module, error) {
	if err := authorize(user); err != nil {
		return nil, err
	}
	if err := validateModule(&input); err != nil {
		return nil, err
	}

	result := s.api.CreateModule(ctx, ws.Course.ID, &input)
	if !result.Success || result.Data == nil {
		return nil, s.remoteFailure("Module creation failed", ws.Course.ID, result.Error, msgCreateModuleFailed)
	}

	ws.Modules = append(ws.Modules, *result.Data)
	s.logger.Info("Module created", zap.Int64("course_id", ws.Course.ID), zap.Int64("module_id", result.Data.ID))
	return result.Data, nil
}

// UpdateModule replaces a module's title and content in ws
func (s *Service) UpdateModule(ctx context.Context, user *models.User, ws *Workspace, moduleID int64, input client.ModuleInput) error {
	if err := authorize(user); err != nil {
		return err
	}
	idx := ws.moduleIndex(moduleID)
	if idx < 0 {
		return common.ErrNotFoundError(msgModuleNotFound).WithContext("module_id", moduleID)
	}
	if err := validateModule(&input); err != nil {
		return err
	}

	result := s.api.UpdateModule(ctx, moduleID, &input)
	if !result.Success {
		return s.remoteFailure("Module update failed", ws.Course.ID, result.Error, msgUpdateModuleFailed)
	}

	ws.Modules[idx].Title = input.Title
	ws.Modules[idx].Content = input.Content
	s.logger.Info("Module updated", zap.Int64("module_id", moduleID))
	return nil
}

// DeleteModule deletes a module and drops it from ws
func (s *Service) DeleteModule(ctx context.Context, user *models.User, ws *Workspace, moduleID int64) error {
	if err := authorize(user); err != nil {
		return err
	}

	result := s.api.DeleteModule(ctx, moduleID)
	if !result.Success {
		return s.remoteFailure("Module deletion failed", ws.Course.ID, result.Error, msgDeleteModuleFailed)
	}

	ws.Modules = common.Retain(ws.Modules, func(m models.Module) bool { return m.ID != moduleID })
	s.logger.Info("Module deleted", zap.Int64("module_id", moduleID))
	return nil
}

func (s *Service) remoteFailure(event string, courseID int64, serverMsg, fallback string) error {
	s.logger.Warn(event, zap.Int64("course_id", courseID), zap.String("error", serverMsg))
	return common.ErrRemoteError(common.FirstNonEmpty(serverMsg, fallback))
}

func (ws *Workspace) moduleIndex(id int64) int {
	for i, m := range ws.Modules {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func authorize(user *models.User) error {
	if user == nil {
		return common.ErrUnauthorizedError(msgLoginRequired)
	}
	if !user.IsInstructor() {
		return common.ErrForbiddenError(msgInstructorOnly)
	}
	return nil
}

func validateModule(input *client.ModuleInput) error {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" || strings.TrimSpace(input.Content) == "" {
		return common.ErrValidationError(msgModuleFieldsNeeded)
	}
	return nil
}
