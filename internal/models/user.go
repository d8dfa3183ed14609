package models

// Role is the account type a user registered with
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// Valid reports whether the role is one the API accepts
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleInstructor
}

// User is the session record mirrored from the API
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsInstructor reports whether the user manages courses
func (u *User) IsInstructor() bool {
	return u != nil && u.Role == RoleInstructor
}

// IsStudent reports whether the user enrolls in courses
func (u *User) IsStudent() bool {
	return u != nil && u.Role == RoleStudent
}
