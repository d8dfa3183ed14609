package client

// Result is the uniform outcome of a write operation
type Result[T any] struct {
	Success bool
	Data    T
	// Error is human-readable copy, set only when Success is false.
	Error string
}

// RawResponse is an undecorated decoded response for callers that interpret
// the body themselves.
type RawResponse struct {
	Status int
	Fields map[string]interface{}
}

// OK reports whether the HTTP status is 2xx
func (r *RawResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Request types

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type CourseInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type ModuleInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type EnrollRequest struct {
	CourseID int64 `json:"course_id"`
}
