package models

// Course is a server-owned course record
type Course struct {
	ID               int64  `json:"id" yaml:"id"`
	Title            string `json:"title" yaml:"title"`
	Description      string `json:"description" yaml:"description"`
	Category         string `json:"category" yaml:"category"`
	InstructorID     int64  `json:"instructor_id" yaml:"instructor_id"`
	InstructorName   string `json:"instructor_name,omitempty" yaml:"instructor_name"`
	ModulesCount     int    `json:"modules_count,omitempty" yaml:"modules_count"`
	EnrollmentsCount int    `json:"enrollments_count,omitempty" yaml:"enrollments_count"`
	CreatedAt        string `json:"created_at,omitempty" yaml:"created_at"`
}

// Module is a unit of course content
type Module struct {
	ID       int64  `json:"id" yaml:"id"`
	CourseID int64  `json:"course_id" yaml:"course_id"`
	Title    string `json:"title" yaml:"title"`
	Content  string `json:"content" yaml:"content"`
	Order    int    `json:"order" yaml:"order"`
}

// Enrollment links a learner to a course they have joined
type Enrollment struct {
	ID           int64   `json:"id"`
	EnrollmentID int64   `json:"enrollment_id,omitempty"`
	EnrolledDate string  `json:"enrolled_date"`
	CourseID     int64   `json:"course_id"`
	Course       *Course `json:"course,omitempty"`
}

// Key returns the identifier used to unenroll
func (e Enrollment) Key() int64 {
	if e.EnrollmentID != 0 {
		return e.EnrollmentID
	}
	return e.ID
}

// CourseRef returns the enrolled course id, preferring the embedded course
func (e Enrollment) CourseRef() int64 {
	if e.Course != nil && e.Course.ID != 0 {
		return e.Course.ID
	}
	return e.CourseID
}

// InstructorStats summarizes an instructor's catalogue
type InstructorStats struct {
	TotalCourses     int `json:"total_courses"`
	TotalEnrollments int `json:"total_enrollments"`
	TotalModules     int `json:"total_modules"`
}

// StudentStats summarizes a student's progress
type StudentStats struct {
	TotalCourses     int `json:"total_courses"`
	CompletedModules int `json:"completed_modules"`
}

// InstructorDashboard is the payload of the instructor dashboard endpoint
type InstructorDashboard struct {
	Courses []Course        `json:"courses"`
	Stats   InstructorStats `json:"stats"`
}

// StudentProgress is the payload of the student progress endpoint
type StudentProgress struct {
	Enrollments []Enrollment `json:"enrollments"`
	Stats       StudentStats `json:"stats"`
}
