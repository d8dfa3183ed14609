package config

// Config holds the configuration for the CLI and the web front end
type Config struct {
	API     APIConfig     `yaml:"api" json:"api"`
	Session SessionConfig `yaml:"session" json:"session"`
	Web     WebConfig     `yaml:"web" json:"web"`
	Auth    AuthConfig    `yaml:"auth" json:"auth"`
	Log     LogConfig     `yaml:"log" json:"log"`
}

// APIConfig points the client at the remote course API
type APIConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// SessionConfig selects where the session record and cookies live
type SessionConfig struct {
	Backend string   `yaml:"backend" json:"backend"` // "local" or "s3"
	Dir     string   `yaml:"dir" json:"dir"`
	S3      S3Config `yaml:"s3" json:"s3"`
}

// S3Config for the roaming session backend
type S3Config struct {
	Bucket   string `yaml:"bucket" json:"bucket"`
	Region   string `yaml:"region" json:"region"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// WebConfig for the server-rendered front end
type WebConfig struct {
	Addr        string `yaml:"addr" json:"addr"`
	FlashSecret string `yaml:"flash_secret" json:"-"`
}

// AuthConfig holds registration settings
type AuthConfig struct {
	// InstructorCodeHash is a bcrypt hash of the instructor verification code.
	InstructorCodeHash string `yaml:"instructor_code_hash" json:"-"`
	// InstructorCode is a plaintext fallback used when no hash is configured.
	InstructorCode string `yaml:"instructor_code" json:"-"`
}

// LogConfig for the zap logger
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // "console" or "json"
}
