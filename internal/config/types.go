package config

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int            `yaml:"port"`
	Env            string         `yaml:"env"` // "development" | "production"
	Database       DatabaseConfig `yaml:"database"`
	RedisURL       string         `yaml:"redis_url"`
	Auth           AuthConfig     `yaml:"auth"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	Paths          PathsConfig    `yaml:"paths"`
	S3             S3Config       `yaml:"s3"`
	Timezone       string         `yaml:"timezone"`
}

// DatabaseConfig describes the console's own PostgreSQL store.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// AuthConfig carries token secrets and the lockout policy.
// Access and refresh secrets are independent so a leaked access secret
// cannot forge refresh tokens.
type AuthConfig struct {
	AccessSecret    string `yaml:"access_secret"`
	RefreshSecret   string `yaml:"refresh_secret"`
	BcryptCost      int    `yaml:"bcrypt_cost"`
	MaxLoginRetries int    `yaml:"max_login_retries"`
	LockoutMinutes  int    `yaml:"lockout_minutes"`
}

// PathsConfig holds writable runtime directories.
type PathsConfig struct {
	Logs    string `yaml:"logs"`
	Backups string `yaml:"backups"`
}

// S3Config configures optional off-site backup uploads.
type S3Config struct {
	Enable          bool   `yaml:"enable"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathTemplate    string `yaml:"path_template"`
}
