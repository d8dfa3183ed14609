package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sibeo/internal/api/client"
	"sibeo/internal/auth"
	"sibeo/internal/common"
	"sibeo/internal/services/courses"
	"sibeo/internal/services/dashboard"
	"sibeo/internal/services/manage"
)

const featuredCourses = 3

// courseForm is the create/edit course form
type courseForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Category    string `form:"category"`
}

// moduleForm is the create/edit module form
type moduleForm struct {
	Title   string `form:"title"`
	Content string `form:"content"`
}

func (s *Server) home(c *gin.Context) {
	listing := s.courses.List(c.Request.Context(), courses.Filter{})
	featured := listing.Courses
	if len(featured) > featuredCourses {
		featured = featured[:featuredCourses]
	}
	s.render(c, http.StatusOK, "home.html", gin.H{"Courses": featured})
}

func (s *Server) listCourses(c *gin.Context) {
	filter := courses.Filter{Query: c.Query("q"), Category: c.DefaultQuery("category", courses.CategoryAll)}
	listing := s.courses.List(c.Request.Context(), filter)
	s.render(c, http.StatusOK, "courses.html", gin.H{"Listing": listing, "Filter": filter})
}

func (s *Server) courseDetail(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	detail, err := s.courses.Detail(c.Request.Context(), id, s.session.User())
	if err != nil {
		s.fail(c, err, "/courses")
		return
	}
	s.render(c, http.StatusOK, "course.html", gin.H{"Detail": detail})
}

func (s *Server) enroll(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	back := fmt.Sprintf("/courses/%d", id)
	if _, err := s.courses.Enroll(c.Request.Context(), id, s.session.User()); err != nil {
		s.fail(c, err, back)
		return
	}
	s.setFlash(c, auth.Popup{Title: "Berhasil", Message: "Anda berhasil mendaftar kursus ini", Kind: auth.PopupSuccess})
	c.Redirect(http.StatusSeeOther, back)
}

func (s *Server) loginPage(c *gin.Context) {
	if s.session.User() != nil {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	s.render(c, http.StatusOK, "login.html", nil)
}

func (s *Server) login(c *gin.Context) {
	var form auth.LoginForm
	s.bind(c, &form)
	if popup := s.forms.ValidateLogin(&form); popup != nil {
		s.render(c, http.StatusBadRequest, "login.html", gin.H{"Form": form, "Popup": popup})
		return
	}

	outcome := s.session.Login(c.Request.Context(), form.Email, form.Password)
	if !outcome.Success {
		popup := auth.LoginFailurePopup(outcome.Error)
		s.render(c, http.StatusUnauthorized, "login.html", gin.H{"Form": form, "Popup": popup})
		return
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) registerPage(c *gin.Context) {
	if s.session.User() != nil {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	s.render(c, http.StatusOK, "register.html", gin.H{"Form": auth.RegisterForm{}})
}

func (s *Server) register(c *gin.Context) {
	var form auth.RegisterForm
	s.bind(c, &form)
	if popup := s.forms.ValidateRegister(&form); popup != nil {
		s.render(c, http.StatusBadRequest, "register.html", gin.H{"Form": form, "Popup": popup})
		return
	}

	outcome := s.session.Register(c.Request.Context(), form.Name, form.Email, form.Password, form.Role)
	if !outcome.Success {
		popup := auth.RegisterFailurePopup(outcome.Error)
		s.render(c, http.StatusBadRequest, "register.html", gin.H{"Form": form, "Popup": popup})
		return
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) logout(c *gin.Context) {
	s.session.Logout(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) dashboardPage(c *gin.Context) {
	view, err := s.dashboard.Load(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err, "/")
		return
	}
	s.render(c, http.StatusOK, "dashboard.html", gin.H{"View": view})
}

func (s *Server) createCourse(c *gin.Context) {
	var form courseForm
	s.bind(c, &form)

	view := &dashboard.View{User: *currentUser(c)}
	input := client.CourseInput{Title: form.Title, Description: form.Description, Category: form.Category}
	if _, err := s.dashboard.CreateCourse(c.Request.Context(), view, input); err != nil {
		s.fail(c, err, "/dashboard")
		return
	}
	s.setFlash(c, auth.Popup{Title: "Berhasil", Message: "Kursus berhasil dibuat", Kind: auth.PopupSuccess})
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) deleteCourse(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	view := &dashboard.View{User: *currentUser(c)}
	if err := s.dashboard.DeleteCourse(c.Request.Context(), view, id); err != nil {
		s.fail(c, err, "/dashboard")
		return
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) myCourses(c *gin.Context) {
	enrollments, err := s.dashboard.MyCourses(c.Request.Context(), currentUser(c))
	if common.IsErrorCode(err, common.ErrForbidden) {
		s.render(c, http.StatusOK, "my_courses.html", gin.H{"InstructorOnly": true})
		return
	}
	if err != nil {
		s.fail(c, err, "/")
		return
	}
	s.render(c, http.StatusOK, "my_courses.html", gin.H{"Enrollments": enrollments})
}

func (s *Server) unenroll(c *gin.Context) {
	key, ok := s.pathID(c, "enrollmentID")
	if !ok {
		return
	}
	if _, err := s.dashboard.Unenroll(c.Request.Context(), nil, key); err != nil {
		s.fail(c, err, "/my-courses")
		return
	}
	c.Redirect(http.StatusSeeOther, "/my-courses")
}

func (s *Server) manageCourse(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	ws, err := s.manage.Open(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.fail(c, err, "/dashboard")
		return
	}
	s.render(c, http.StatusOK, "manage.html", gin.H{"Workspace": ws})
}

func (s *Server) saveCourse(c *gin.Context) {
	var form courseForm
	s.bind(c, &form)

	s.editWorkspace(c, "Perubahan berhasil disimpan", func(ctx context.Context, ws *manage.Workspace) error {
		input := client.CourseInput{Title: form.Title, Description: form.Description, Category: form.Category}
		return s.manage.SaveCourse(ctx, currentUser(c), ws, input)
	})
}

func (s *Server) createModule(c *gin.Context) {
	var form moduleForm
	s.bind(c, &form)

	s.editWorkspace(c, "Modul berhasil ditambahkan", func(ctx context.Context, ws *manage.Workspace) error {
		_, err := s.manage.CreateModule(ctx, currentUser(c), ws, client.ModuleInput{Title: form.Title, Content: form.Content})
		return err
	})
}

func (s *Server) updateModule(c *gin.Context) {
	moduleID, ok := s.pathID(c, "moduleID")
	if !ok {
		return
	}
	var form moduleForm
	s.bind(c, &form)

	s.editWorkspace(c, "Modul berhasil diperbarui", func(ctx context.Context, ws *manage.Workspace) error {
		return s.manage.UpdateModule(ctx, currentUser(c), ws, moduleID, client.ModuleInput{Title: form.Title, Content: form.Content})
	})
}

func (s *Server) deleteModule(c *gin.Context) {
	moduleID, ok := s.pathID(c, "moduleID")
	if !ok {
		return
	}

	s.editWorkspace(c, "Modul berhasil dihapus", func(ctx context.Context, ws *manage.Workspace) error {
		return s.manage.DeleteModule(ctx, currentUser(c), ws, moduleID)
	})
}

// editWorkspace opens the course named in the path, applies edit and
// redirects back to the course manager.
func (s *Server) editWorkspace(c *gin.Context, success string, edit func(ctx context.Context, ws *manage.Workspace) error) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	back := fmt.Sprintf("/dashboard/courses/%d", id)

	ctx := c.Request.Context()
	ws, err := s.manage.Open(ctx, currentUser(c), id)
	if err != nil {
		s.fail(c, err, "/dashboard")
		return
	}
	if err := edit(ctx, ws); err != nil {
		s.fail(c, err, back)
		return
	}
	s.setFlash(c, auth.Popup{Title: "Berhasil", Message: success, Kind: auth.PopupSuccess})
	c.Redirect(http.StatusSeeOther, back)
}

// bind fills form from the request body; fields that fail to bind stay empty
// and are caught by validation
func (s *Server) bind(c *gin.Context, form interface{}) {
	if err := c.ShouldBind(form); err != nil {
		s.logger.Debug("Form binding failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
}

// pathID parses a numeric path parameter, answering 404 when it is malformed
func (s *Server) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := common.ParseID(c.Param(name))
	if err != nil {
		s.render(c, http.StatusNotFound, "not_found.html", gin.H{"Message": "Halaman tidak ditemukan"})
		return 0, false
	}
	return id, true
}

// fail maps a service error to a redirect or an error page
func (s *Server) fail(c *gin.Context, err error, back string) {
	switch {
	case common.IsErrorCode(err, common.ErrUnauthorized):
		c.Redirect(http.StatusSeeOther, "/login")
	case common.IsErrorCode(err, common.ErrForbidden):
		c.Redirect(http.StatusSeeOther, "/dashboard")
	case common.IsErrorCode(err, common.ErrNotFound):
		s.render(c, http.StatusNotFound, "not_found.html", gin.H{"Message": common.UserMessage(err, "Halaman tidak ditemukan")})
	default:
		s.logger.Warn("Action failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		s.setFlash(c, auth.Popup{Message: common.UserMessage(err, "Terjadi kesalahan"), Kind: auth.PopupError})
		c.Redirect(http.StatusSeeOther, back)
	}
}
