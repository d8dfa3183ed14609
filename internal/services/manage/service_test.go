package manage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"sibeo/internal/api/client"
	"sibeo/internal/common"
	"sibeo/internal/models"
)

type fakeAPI struct {
	course   *models.Course
	modules  []models.Module
	students []models.User

	update       client.Result[struct{}]
	createModule client.Result[*models.Module]
	updateModule client.Result[struct{}]
	deleteModule client.Result[struct{}]

	calls []string
}

func (f *fakeAPI) GetCourseDetail(ctx context.Context, id int64) *models.Course {
	f.calls = append(f.calls, "detail")
	return f.course
}

func (f *fakeAPI) GetCourseModules(ctx context.Context, courseID int64) []models.Module {
	return f.modules
}

func (f *fakeAPI) GetCourseStudents(ctx context.Context, courseID int64) []models.User {
	return f.students
}

func (f *fakeAPI) UpdateCourse(ctx context.Context, id int64, input *client.CourseInput) client.Result[struct{}] {
	f.calls = append(f.calls, "update")
	return f.update
}

func (f *fakeAPI) CreateModule(ctx context.Context, courseID int64, input *client.ModuleInput) client.Result[*models.Module] {
	f.calls = append(f.calls, "createModule")
	return f.createModule
}

func (f *fakeAPI) UpdateModule(ctx context.Context, id int64, input *client.ModuleInput) client.Result[struct{}] {
	f.calls = append(f.calls, "updateModule")
	return f.updateModule
}

func (f *fakeAPI) DeleteModule(ctx context.Context, id int64) client.Result[struct{}] {
	f.calls = append(f.calls, "deleteModule")
	return f.deleteModule
}

var (
	student    = &models.User{ID: 5, Role: models.RoleStudent}
	instructor = &models.User{ID: 1, Role: models.RoleInstructor}
)

type ManageSuite struct {
	suite.Suite
	ctx context.Context
	api *fakeAPI
	svc *Service
	ws  *Workspace
}

func (s *ManageSuite) SetupTest() {
	s.ctx = context.Background()
	s.api = &fakeAPI{
		course: &models.Course{ID: 7, Title: "Go", Description: "Learn Go", Category: "Pemrograman"},
		modules: []models.Module{
			{ID: 1, CourseID: 7, Title: "Intro", Content: "hello", Order: 1},
			{ID: 2, CourseID: 7, Title: "Channels", Content: "chan", Order: 2},
		},
		students: []models.User{{ID: 5, Name: "Ani"}},
	}
	s.svc = NewService(s.api, zap.NewNop())

	ws, err := s.svc.Open(s.ctx, instructor, 7)
	s.Require().NoError(err)
	s.ws = ws
	s.api.calls = nil
}

func (s *ManageSuite) TestOpen() {
	s.Equal("Go", s.ws.Course.Title)
	s.Len(s.ws.Modules, 2)
	s.Len(s.ws.Students, 1)
}

func (s *ManageSuite) TestOpen_Access() {
	_, err := s.svc.Open(s.ctx, nil, 7)
	s.True(common.IsErrorCode(err, common.ErrUnauthorized))

	_, err = s.svc.Open(s.ctx, student, 7)
	s.True(common.IsErrorCode(err, common.ErrForbidden))
	s.Empty(s.api.calls)

	s.api.course = nil
	_, err = s.svc.Open(s.ctx, instructor, 7)
	s.True(common.IsErrorCode(err, common.ErrNotFound))
}

func (s *ManageSuite) TestSaveCourse() {
	s.api.update = client.Result[struct{}]{Success: true}

	err := s.svc.SaveCourse(s.ctx, instructor, s.ws, client.CourseInput{Title: "Go 2", Description: "Generics", Category: ""})

	s.Require().NoError(err)
	s.Equal("Go 2", s.ws.Course.Title)
	s.Equal("Generics", s.ws.Course.Description)
	s.Empty(s.ws.Course.Category)
	s.Equal(int64(7), s.ws.Course.ID)
}

func (s *ManageSuite) TestSaveCourse_Validation() {
	err := s.svc.SaveCourse(s.ctx, instructor, s.ws, client.CourseInput{Title: "Go"})

	s.Equal(msgCourseFieldsNeeded, common.UserMessage(err, ""))
	s.Empty(s.api.calls)
}

func (s *ManageSuite) TestSaveCourse_Failure() {
	err := s.svc.SaveCourse(s.ctx, instructor, s.ws, client.CourseInput{Title: "Go 2", Description: "d"})

	s.Equal(msgSaveFailed, common.UserMessage(err, ""))
	s.Equal("Go", s.ws.Course.Title)
}

func (s *ManageSuite) TestCreateModule() {
	s.api.createModule = client.Result[*models.Module]{Success: true, Data: &models.Module{ID: 3, CourseID: 7, Title: "Select"}}

	module, err := s.svc.CreateModule(s.ctx, instructor, s.ws, client.ModuleInput{Title: "Select", Content: "select {}"})

	s.Require().NoError(err)
	s.Equal(int64(3), module.ID)
	s.Len(s.ws.Modules, 3)
}

func (s *ManageSuite) TestCreateModule_Validation() {
	_, err := s.svc.CreateModule(s.ctx, instructor, s.ws, client.ModuleInput{Title: "Select", Content: "  "})

	s.Equal(msgModuleFieldsNeeded, common.UserMessage(err, ""))
	s.Empty(s.api.calls)
}

func (s *ManageSuite) TestCreateModule_ServerMessage() {
	s.api.createModule = client.Result[*models.Module]{Error: "Not course owner"}

	_, err := s.svc.CreateModule(s.ctx, instructor, s.ws, client.ModuleInput{Title: "Select", Content: "x"})

	s.Equal("Not course owner", common.UserMessage(err, ""))
	s.Len(s.ws.Modules, 2)
}

func (s *ManageSuite) TestUpdateModule() {
	s.api.updateModule = client.Result[struct{}]{Success: true}

	err := s.svc.UpdateModule(s.ctx, instructor, s.ws, 2, client.ModuleInput{Title: "Channels 2", Content: "buffered"})

	s.Require().NoError(err)
	s.Equal(models.Module{ID: 2, CourseID: 7, Title: "Channels 2", Content: "buffered", Order: 2}, s.ws.Modules[1])
}

func (s *ManageSuite) TestUpdateModule_Unknown() {
	err := s.svc.UpdateModule(s.ctx, instructor, s.ws, 99, client.ModuleInput{Title: "x", Content: "y"})

	s.True(common.IsErrorCode(err, common.ErrNotFound))
	s.Empty(s.api.calls)
}

func (s *ManageSuite) TestUpdateModule_Failure() {
	err := s.svc.UpdateModule(s.ctx, instructor, s.ws, 1, client.ModuleInput{Title: "x", Content: "y"})

	s.Equal(msgUpdateModuleFailed, common.UserMessage(err, ""))
	s.Equal("Intro", s.ws.Modules[0].Title)
}

func (s *ManageSuite) TestDeleteModule() {
	s.api.deleteModule = client.Result[struct{}]{Success: true}

	s.Require().NoError(s.svc.DeleteModule(s.ctx, instructor, s.ws, 1))

	s.Require().Len(s.ws.Modules, 1)
	s.Equal(int64(2), s.ws.Modules[0].ID)
}

func (s *ManageSuite) TestDeleteModule_Failure() {
	err := s.svc.DeleteModule(s.ctx, instructor, s.ws, 1)

	s.Equal(msgDeleteModuleFailed, common.UserMessage(err, ""))
	s.Len(s.ws.Modules, 2)
}

func TestManageSuite(t *testing.T) {
	suite.Run(t, new(ManageSuite))
}

func TestWriteOperationsRequireInstructor(t *testing.T) {
	api := &fakeAPI{}
	svc := NewService(api, nil)
	ws := &Workspace{Course: models.Course{ID: 1}}
	ctx := context.Background()

	errs := []error{
		svc.SaveCourse(ctx, student, ws, client.CourseInput{Title: "a", Description: "b"}),
		svc.DeleteModule(ctx, student, ws, 1),
		svc.UpdateModule(ctx, student, ws, 1, client.ModuleInput{Title: "a", Content: "b"}),
	}
	_, err := svc.CreateModule(ctx, student, ws, client.ModuleInput{Title: "a", Content: "b"})
	errs = append(errs, err)

	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, common.IsErrorCode(err, common.ErrForbidden))
	}
	assert.Empty(t, api.calls)
}
