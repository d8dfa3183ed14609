// Package web serves the course front end over the remote API.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sibeo/internal/auth"
	"sibeo/internal/models"
	"sibeo/internal/services/courses"
	"sibeo/internal/services/dashboard"
	"sibeo/internal/services/manage"
)

//go:embed templates/*.html
var templateFS embed.FS

// Session is the signed-in state the front end acts on
type Session interface {
	User() *models.User
	Login(ctx context.Context, email, password string) auth.Outcome
	Register(ctx context.Context, name, email, password string, role models.Role) auth.Outcome
	Logout(ctx context.Context)
}

// Deps are the collaborators a Server is built from
type Deps struct {
	Session   Session
	Forms     *auth.FormValidator
	Courses   *courses.Service
	Dashboard *dashboard.Service
	Manage    *manage.Service
	Flash     *FlashSigner
	// Health reports backing store health for /health; optional.
	Health func(ctx context.Context) error
	Logger *zap.Logger
}

// Server is the HTTP front end
type Server struct {
	engine    *gin.Engine
	session   Session
	forms     *auth.FormValidator
	courses   *courses.Service
	dashboard *dashboard.Service
	manage    *manage.Service
	flash     *FlashSigner
	health    func(ctx context.Context) error
	logger    *zap.Logger
}

// NewServer creates a front end with all routes registered
func NewServer(deps Deps) (*Server, error) {
	if deps.Session == nil || deps.Courses == nil || deps.Dashboard == nil || deps.Manage == nil {
		return nil, errors.New("web: session and services are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Forms == nil {
		return nil, errors.New("web: form validator is required")
	}
	if deps.Flash == nil {
		signer, err := NewFlashSigner("", flashTTL)
		if err != nil {
			return nil, err
		}
		deps.Flash = signer
	}

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		session:   deps.Session,
		forms:     deps.Forms,
		courses:   deps.Courses,
		dashboard: deps.Dashboard,
		manage:    deps.Manage,
		flash:     deps.Flash,
		health:    deps.Health,
		logger:    deps.Logger,
	}
	s.engine = s.setupRoutes(tmpl)
	return s, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Web front end listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down web front end")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(tmpl *template.Template) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(gin.Recovery(), requestID(), requestLogger(s.logger), s.sameOrigin(), s.flashes())

	r.GET("/health", s.healthCheck)

	// Public pages
	r.GET("/", s.home)
	r.GET("/courses", s.listCourses)
	r.GET("/courses/:id", s.courseDetail)
	r.POST("/courses/:id/enroll", s.enroll)
	r.GET("/login", s.loginPage)
	r.POST("/login", s.login)
	r.GET("/register", s.registerPage)
	r.POST("/register", s.register)
	r.POST("/logout", s.logout)

	// Signed-in pages
	member := r.Group("/", s.requireUser())
	member.GET("/dashboard", s.dashboardPage)
	member.GET("/my-courses", s.myCourses)
	member.POST("/my-courses/:enrollmentID/unenroll", s.unenroll)

	// Instructor pages
	instructor := member.Group("/dashboard", s.requireInstructor())
	instructor.POST("/courses", s.createCourse)
	instructor.POST("/courses/:id/delete", s.deleteCourse)
	instructor.GET("/courses/:id", s.manageCourse)
	instructor.POST("/courses/:id", s.saveCourse)
	instructor.POST("/courses/:id/modules", s.createModule)
	instructor.POST("/courses/:id/modules/:moduleID", s.updateModule)
	instructor.POST("/courses/:id/modules/:moduleID/delete", s.deleteModule)

	r.NoRoute(func(c *gin.Context) {
		s.render(c, http.StatusNotFound, "not_found.html", gin.H{"Message": "Halaman tidak ditemukan"})
	})
	return r
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	body := gin.H{
		"service":   "sibeo-web",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
	}
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
			body["error"] = err.Error()
		}
	}
	body["status"] = status
	c.JSON(code, body)
}

// render executes a page template with the session user and pending popup
func (s *Server) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if user := currentUser(c); user != nil {
		data["User"] = user
	} else {
		data["User"] = s.session.User()
	}
	if _, ok := data["Popup"]; !ok {
		if popup, exists := c.Get(ctxFlash); exists {
			data["Popup"] = popup
		}
	}
	c.HTML(status, name, data)
}

var templateFuncs = template.FuncMap{
	"excerpt": func(s string, n int) string {
		r := []rune(s)
		if len(r) <= n {
			return s
		}
		return strings.TrimSpace(string(r[:n])) + "…"
	},
	"inc": func(i int) int { return i + 1 },
	"roleLabel": func(role models.Role) string {
		if role == models.RoleInstructor {
			return "Instruktur"
		}
		return "Siswa"
	},
}
