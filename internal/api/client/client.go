package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"sibeo/internal/common"
	"sibeo/internal/models"
)

// Client provides a high-level client for the course API
type Client struct {
	baseURL string
	http    *resty.Client
	logger  *zap.Logger
}

// ClientConfig holds client configuration
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Jar carries the backend session cookies; nil disables cookies.
	Jar http.CookieJar
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:   common.DefaultAPIBaseURL,
		Timeout:   common.DefaultTimeout,
		UserAgent: "sibeo-client/1.0",
	}
}

// NewClient creates a new course API client
func NewClient(config *ClientConfig, logger *zap.Logger) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultClientConfig().UserAgent
	}

	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(config.Timeout).
		SetLogger(logger.Sugar()).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetCookieJar(config.Jar)

	return &Client{
		baseURL: baseURL,
		http:    rc,
		logger:  logger,
	}
}

// BaseURL returns the API origin the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session operations

// GetCurrentUser returns the user bound to the backend session, or nil
func (c *Client) GetCurrentUser(ctx context.Context) *models.User {
	status, body, err := c.doRequest(ctx, http.MethodGet, "/api/users", nil)
	if err != nil {
		c.logger.Warn("Error fetching current user", zap.Error(err))
		return nil
	}

	env := Normalize(status, body)
	var s string
	_ = json.Unmarshal(env.Fields["status"], &s)
	raw, present := env.Fields["data"]
	if s != statusSuccess || !present || isNull(raw) {
		return nil
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil
	}
	return &user
}

// PostLogin sends credentials and returns the raw response for the auth layer
func (c *Client) PostLogin(ctx context.Context, req *LoginRequest) (*RawResponse, error) {
	return c.raw(ctx, http.MethodPost, "/api/login", req)
}

// PostRegister creates an account and returns the raw response for the auth layer
func (c *Client) PostRegister(ctx context.Context, req *RegisterRequest) (*RawResponse, error) {
	return c.raw(ctx, http.MethodPost, "/api/register", req)
}

// PostLogout ends the backend session
func (c *Client) PostLogout(ctx context.Context) error {
	_, _, err := c.doRequest(ctx, http.MethodPost, "/api/logout", nil)
	return err
}

// Course operations

// GetAllCourses lists every course; failures yield an empty list
func (c *Client) GetAllCourses(ctx context.Context) []models.Course {
	env, ok := c.read(ctx, "/api/courses")
	if !ok {
		return []models.Course{}
	}
	return decodeItems[models.Course](env.Data, isCourse)
}

// GetCourseDetail returns a course, or nil when the response is unusable.
// A top-level message without a top-level title is treated as an error.
func (c *Client) GetCourseDetail(ctx context.Context, id int64) *models.Course {
	path := fmt.Sprintf("/api/courses/%d", id)
	env, ok := c.read(ctx, path)
	if !ok {
		return nil
	}
	if env.HasField("message") && !env.HasField("title") {
		c.logger.Warn("API error", zap.String("path", path), zap.ByteString("message", env.Fields["message"]))
		return nil
	}
	course, ok := decodeObject[models.Course](env.Data, isCourse)
	if !ok {
		return nil
	}
	return course
}

// CreateCourse creates a course owned by the session user
func (c *Client) CreateCourse(ctx context.Context, input *CourseInput) Result[*models.Course] {
	env := c.write(ctx, http.MethodPost, "/api/courses", input)
	result := Result[*models.Course]{Success: env.Success, Error: env.Error}
	if env.Success {
		result.Data, _ = decodeObject[models.Course](env.Data, nil)
	}
	return result
}

// UpdateCourse replaces a course's editable fields
func (c *Client) UpdateCourse(ctx context.Context, id int64, input *CourseInput) Result[struct{}] {
	return outcome(c.write(ctx, http.MethodPut, fmt.Sprintf("/api/courses/%d", id), input))
}

// DeleteCourse deletes a course
func (c *Client) DeleteCourse(ctx context.Context, id int64) Result[struct{}] {
	return c.remove(ctx, fmt.Sprintf("/api/courses/%d", id))
}

// GetCourseStudents lists the students enrolled in a course
func (c *Client) GetCourseStudents(ctx context.Context, courseID int64) []models.User {
	env, ok := c.strictRead(ctx, fmt.Sprintf("/api/courses/%d/students", courseID))
	if !ok {
		return []models.User{}
	}
	return decodeItems[models.User](env.Data, nil)
}

// Module operations

// GetCourseModules lists a course's modules; failures yield an empty list
func (c *Client) GetCourseModules(ctx context.Context, courseID int64) []models.Module {
	env, ok := c.read(ctx, fmt.Sprintf("/api/courses/%d/modules", courseID))
	if !ok {
		return []models.Module{}
	}
	return decodeItems[models.Module](env.Data, isModule)
}

// CreateModule appends a module to a course
func (c *Client) CreateModule(ctx context.Context, courseID int64, input *ModuleInput) Result[*models.Module] {
	env := c.write(ctx, http.MethodPost, fmt.Sprintf("/api/courses/%d/modules", courseID), input)
	result := Result[*models.Module]{Success: env.Success, Error: env.Error}
	if env.Success {
		result.Data, _ = decodeObject[models.Module](env.Data, nil)
	}
	return result
}

// UpdateModule replaces a module's title and content
func (c *Client) UpdateModule(ctx context.Context, id int64, input *ModuleInput) Result[struct{}] {
	return outcome(c.write(ctx, http.MethodPut, fmt.Sprintf("/api/modules/%d", id), input))
}

// DeleteModule deletes a module
func (c *Client) DeleteModule(ctx context.Context, id int64) Result[struct{}] {
	return c.remove(ctx, fmt.Sprintf("/api/modules/%d", id))
}

// Enrollment operations

// GetMyEnrollments lists the session user's enrollments
func (c *Client) GetMyEnrollments(ctx context.Context) []models.Enrollment {
	env, ok := c.read(ctx, "/api/enrollments/me")
	if !ok {
		return []models.Enrollment{}
	}
	return decodeItems[models.Enrollment](env.Data, isEnrollment)
}

// EnrollCourse enrolls the session user in a course
func (c *Client) EnrollCourse(ctx context.Context, courseID int64) Result[struct{}] {
	return outcome(c.write(ctx, http.MethodPost, "/api/enrollments", &EnrollRequest{CourseID: courseID}))
}

// UnenrollCourse removes an enrollment
func (c *Client) UnenrollCourse(ctx context.Context, enrollmentID int64) Result[struct{}] {
	return c.remove(ctx, fmt.Sprintf("/api/enrollments/%d", enrollmentID))
}

// Dashboards

// GetInstructorDashboard returns the instructor's courses and totals
func (c *Client) GetInstructorDashboard(ctx context.Context) *models.InstructorDashboard {
	dashboard := &models.InstructorDashboard{Courses: []models.Course{}}
	env, ok := c.strictRead(ctx, "/api/instructor/dashboard")
	if !ok {
		return dashboard
	}

	dataFields := objectFields(env.Fields["data"])
	if raw := firstArray(dataFields["courses"], env.Fields["courses"]); raw != nil {
		dashboard.Courses = decodeItems[models.Course](raw, nil)
	}
	if raw := firstPresent(dataFields["stats"], env.Fields["stats"]); raw != nil {
		_ = json.Unmarshal(raw, &dashboard.Stats)
	}
	return dashboard
}

// GetStudentProgress returns the student's enrollments and totals
func (c *Client) GetStudentProgress(ctx context.Context) *models.StudentProgress {
	progress := &models.StudentProgress{Enrollments: []models.Enrollment{}}
	env, ok := c.strictRead(ctx, "/api/student/progress")
	if !ok {
		return progress
	}

	dataFields := objectFields(env.Fields["data"])
	if raw := firstArray(dataFields["enrollments"], env.Fields["enrollments"]); raw != nil {
		progress.Enrollments = decodeItems[models.Enrollment](raw, nil)
	}
	if raw := firstPresent(dataFields["stats"], env.Fields["stats"]); raw != nil {
		_ = json.Unmarshal(raw, &progress.Stats)
	}
	return progress
}

// Low-level HTTP methods

// read performs a GET whose failures are logged and masked as "no data"
func (c *Client) read(ctx context.Context, path string) (Envelope, bool) {
	status, body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		c.logger.Warn("Error fetching from API", zap.String("path", path), zap.Error(err))
		return Envelope{}, false
	}

	env := Normalize(status, body)
	if !env.Success {
		c.logger.Warn("API error", zap.String("path", path), zap.Int("status", status), zap.String("error", env.Error))
		return env, false
	}
	return env, true
}

// strictRead is read where any top-level message also counts as a failure
func (c *Client) strictRead(ctx context.Context, path string) (Envelope, bool) {
	env, ok := c.read(ctx, path)
	if ok && env.HasField("message") {
		c.logger.Warn("API error", zap.String("path", path), zap.ByteString("message", env.Fields["message"]))
		return env, false
	}
	return env, ok
}

// write performs a mutating request; transport failures become a failed envelope
func (c *Client) write(ctx context.Context, method, path string, body interface{}) Envelope {
	status, respBody, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		c.logger.Error("Error calling API", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return Envelope{Error: ConnectionErrorMessage}
	}
	return Normalize(status, respBody)
}

// remove performs a DELETE where any 2xx status is success regardless of body
func (c *Client) remove(ctx context.Context, path string) Result[struct{}] {
	status, respBody, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		c.logger.Error("Error calling API", zap.String("method", http.MethodDelete), zap.String("path", path), zap.Error(err))
		return Result[struct{}]{Error: ConnectionErrorMessage}
	}
	if status == http.StatusNoContent || (status >= 200 && status < 300) {
		return Result[struct{}]{Success: true}
	}
	env := Normalize(status, respBody)
	return Result[struct{}]{Success: env.Success, Error: env.Error}
}

func (c *Client) raw(ctx context.Context, method, path string, body interface{}) (*RawResponse, error) {
	status, respBody, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(respBody, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &RawResponse{Status: status, Fields: fields}, nil
}

// doRequest performs a single HTTP request; there are no retries
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	requestID := common.NewRequestID()
	req := c.http.R().
		SetContext(ctx).
		SetHeader(common.RequestIDHeader, requestID)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	c.logger.Debug("API request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.String("request_id", requestID),
		zap.Duration("duration", resp.Time()),
	)
	return resp.StatusCode(), resp.Body(), nil
}

func outcome(env Envelope) Result[struct{}] {
	return Result[struct{}]{Success: env.Success, Error: env.Error}
}

func objectFields(raw json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if raw != nil {
		_ = json.Unmarshal(raw, &fields)
	}
	return fields
}

func firstArray(candidates ...json.RawMessage) json.RawMessage {
	for _, raw := range candidates {
		var elems []json.RawMessage
		if raw != nil && json.Unmarshal(raw, &elems) == nil && elems != nil {
			return raw
		}
	}
	return nil
}

func firstPresent(candidates ...json.RawMessage) json.RawMessage {
	for _, raw := range candidates {
		if raw != nil && !isNull(raw) {
			return raw
		}
	}
	return nil
}
